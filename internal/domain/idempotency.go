package domain

import "time"

// IdempotencyRecord binds a client-supplied key to the quote it created.
// Keys are scoped per customer.
type IdempotencyRecord struct {
	CustomerID  string
	Key         string
	QuoteID     string
	RequestHash string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the record no longer protects its key.
func (r IdempotencyRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Matches reports whether a replayed request carries the same payload.
func (r IdempotencyRecord) Matches(requestHash string) bool {
	return r.RequestHash == requestHash
}
