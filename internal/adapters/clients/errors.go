// Package clients holds the outbound HTTP client used for downstream
// reference services, with retries, a circuit breaker, tracing and metrics.
package clients

import "errors"

// Transport-level failures. Adapters built on Client translate these into
// domain errors.
var (
	// ErrCircuitOpen means the breaker rejected the call without sending it.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrMaxRetriesExceeded wraps the last failure once every attempt is used.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)
