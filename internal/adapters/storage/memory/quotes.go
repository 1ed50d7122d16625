package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jsamuelsen/freight-quote-service/internal/domain"
	"github.com/jsamuelsen/freight-quote-service/internal/ports"
)

// QuoteRepository stores quotes in a map guarded by a mutex. Stored values
// are cloned on the way in and out so callers never share memory with the
// store.
type QuoteRepository struct {
	mu     sync.RWMutex
	quotes map[string]*domain.Quote
}

var _ ports.QuoteRepository = (*QuoteRepository)(nil)

// NewQuoteRepository creates an empty repository.
func NewQuoteRepository() *QuoteRepository {
	return &QuoteRepository{quotes: make(map[string]*domain.Quote)}
}

// Create stores quote. It fails with a conflict if the id is taken.
func (r *QuoteRepository) Create(_ context.Context, quote *domain.Quote) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.quotes[quote.ID]; ok {
		return domain.NewConflictError("quote", quote.ID, "already exists")
	}

	r.quotes[quote.ID] = quote.Clone()

	return nil
}

// Get returns a copy of the stored quote.
func (r *QuoteRepository) Get(_ context.Context, id string) (*domain.Quote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q, ok := r.quotes[id]
	if !ok {
		return nil, domain.NewNotFoundError("quote", id)
	}

	return q.Clone(), nil
}

// List returns quotes matching filter, newest first.
func (r *QuoteRepository) List(_ context.Context, filter ports.QuoteFilter) (*ports.QuotePage, error) {
	r.mu.RLock()

	matched := make([]*domain.Quote, 0, len(r.quotes))
	for _, q := range r.quotes {
		if filter.Matches(q) {
			matched = append(matched, q.Clone())
		}
	}

	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}

		return a.ID > b.ID
	})

	return paginate(matched, filter.Limit), nil
}

func paginate(quotes []*domain.Quote, limit int) *ports.QuotePage {
	page := &ports.QuotePage{Quotes: quotes}

	if limit > 0 && len(quotes) > limit {
		page.Quotes = quotes[:limit]
		last := page.Quotes[limit-1]
		page.Next = &ports.QuoteCursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}

	return page
}

// UpdateStatus applies change if the stored status still equals change.From.
func (r *QuoteRepository) UpdateStatus(_ context.Context, change domain.StatusChange) (*domain.Quote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	q, ok := r.quotes[change.QuoteID]
	if !ok {
		return nil, domain.NewNotFoundError("quote", change.QuoteID)
	}

	if q.Status != change.From {
		return nil, &domain.ConcurrentModificationError{
			QuoteID:  q.ID,
			Expected: change.From,
			Actual:   q.Status,
		}
	}

	q.Apply(change)

	return q.Clone(), nil
}

// Len returns the number of stored quotes.
func (r *QuoteRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.quotes)
}
