// Package memory provides in-process implementations of the storage ports.
//
// The repositories are safe for concurrent use and keep every guarantee of
// the database adapters: quote status changes are compare-and-set and
// idempotency reservations are atomic. They back local runs, tests and the
// BDD suite. Reference data is seeded from a YAML file with LoadReferenceData.
package memory
