// Package acl is the anti-corruption layer between downstream HTTP services
// and the domain. Adapters here own the external DTOs, validate them, and
// translate both payloads and failures into domain types so nothing shaped
// by a downstream API leaks past this package.
//
// Failure translation:
//
//	404                     -> *domain.NotFoundError (adapters may refine it)
//	409                     -> *domain.ConflictError
//	400, 422, other 4xx     -> *domain.ValidationError
//	401, 403, 429, 5xx      -> *domain.UnavailableError
//	circuit open, retries   -> *domain.UnavailableError
//
// A downstream rejecting our credentials is an outage from the caller's
// point of view, so authentication failures surface as unavailability.
package acl
