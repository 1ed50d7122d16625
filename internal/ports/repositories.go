// Package ports defines the contracts between the quotation core and its
// infrastructure. Adapters implement these interfaces; the application layer
// depends only on them.
//
// Conventions:
//   - context.Context is always the first parameter
//   - only domain types cross the boundary
//   - failures are reported with domain errors (ErrNotFound, ErrConflict, ...)
package ports

import (
	"context"
	"time"

	"github.com/jsamuelsen/freight-quote-service/internal/domain"
)

// RateRepository is the read-only lane rate catalog.
type RateRepository interface {
	// FindRate returns the rate effective at the given time for key.
	// Returns *domain.RateNotFoundError when no rate applies.
	FindRate(ctx context.Context, key domain.RateKey, at time.Time) (*domain.RateEntry, error)

	// ListRates returns all rates matching filter, ordered by lane.
	ListRates(ctx context.Context, filter RateFilter) ([]domain.RateEntry, error)
}

// RateFilter narrows ListRates. Empty fields match everything.
type RateFilter struct {
	Mode        domain.Mode
	Service     domain.ServiceType
	Origin      string
	Destination string
}

// Matches reports whether a rate passes the filter.
func (f RateFilter) Matches(r domain.RateEntry) bool {
	return (f.Mode == "" || f.Mode == r.Mode) &&
		(f.Service == "" || f.Service == r.Service) &&
		(f.Origin == "" || f.Origin == r.Origin) &&
		(f.Destination == "" || f.Destination == r.Destination)
}

// AccessorialRepository is the read-only surcharge catalog.
type AccessorialRepository interface {
	// FindAccessorial returns the rule for code.
	// Returns *domain.AccessorialNotFoundError for unknown codes.
	FindAccessorial(ctx context.Context, code string) (*domain.AccessorialRule, error)

	// ListAccessorials returns every rule ordered by code.
	ListAccessorials(ctx context.Context) ([]domain.AccessorialRule, error)
}

// QuoteRepository persists quotes and performs status compare-and-set.
type QuoteRepository interface {
	// Create stores a new quote with its line items.
	// Returns domain.ErrConflict if the id already exists.
	Create(ctx context.Context, quote *domain.Quote) error

	// Get loads a quote by id. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.Quote, error)

	// List returns quotes matching filter, newest first.
	List(ctx context.Context, filter QuoteFilter) (*QuotePage, error)

	// UpdateStatus atomically moves a quote from change.From to change.To and
	// returns the updated quote. If the stored status is not change.From it
	// returns *domain.ConcurrentModificationError carrying the actual status.
	UpdateStatus(ctx context.Context, change domain.StatusChange) (*domain.Quote, error)
}

// QuoteFilter narrows List. Empty fields match everything.
type QuoteFilter struct {
	CustomerID string
	Status     domain.QuoteStatus

	// ValidUntilBefore selects quotes whose validity ends before this instant.
	ValidUntilBefore *time.Time

	// After resumes listing after the given position.
	After *QuoteCursor
	Limit int
}

// QuoteCursor is a keyset position in (created_at desc, id desc) order.
type QuoteCursor struct {
	CreatedAt time.Time
	ID        string
}

// QuotePage is one page of List results.
type QuotePage struct {
	Quotes []*domain.Quote
	Next   *QuoteCursor
}

// Matches reports whether a quote passes the non-paging filter fields.
func (f QuoteFilter) Matches(q *domain.Quote) bool {
	if f.CustomerID != "" && q.CustomerID != f.CustomerID {
		return false
	}

	if f.Status != "" && q.Status != f.Status {
		return false
	}

	if f.ValidUntilBefore != nil && (q.ValidUntil == nil || !q.ValidUntil.Before(*f.ValidUntilBefore)) {
		return false
	}

	if f.After != nil && !f.After.Precedes(q) {
		return false
	}

	return true
}

// Precedes reports whether the cursor sorts before q, i.e. q belongs to a
// later page.
func (c QuoteCursor) Precedes(q *domain.Quote) bool {
	if q.CreatedAt.Equal(c.CreatedAt) {
		return q.ID < c.ID
	}

	return q.CreatedAt.Before(c.CreatedAt)
}

// IdempotencyStore reserves idempotency keys for quote creation.
type IdempotencyStore interface {
	// Reserve atomically inserts rec unless an unexpired record for the same
	// (customer, key) exists. It returns the winning record and whether it
	// was newly created by this call.
	Reserve(ctx context.Context, rec domain.IdempotencyRecord) (*domain.IdempotencyRecord, bool, error)

	// Release removes a reservation whose quote could not be stored.
	Release(ctx context.Context, customerID, key string) error
}
