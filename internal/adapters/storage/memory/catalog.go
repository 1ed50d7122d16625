package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jsamuelsen/freight-quote-service/internal/domain"
	"github.com/jsamuelsen/freight-quote-service/internal/ports"
)

// RateRepository serves published lane rates. Several versions of a lane
// may coexist; FindRate picks the highest version effective at the
// requested time.
type RateRepository struct {
	mu    sync.RWMutex
	rates map[domain.RateKey][]domain.RateEntry
}

var _ ports.RateRepository = (*RateRepository)(nil)

// NewRateRepository creates a repository holding rates.
func NewRateRepository(rates ...domain.RateEntry) *RateRepository {
	r := &RateRepository{rates: make(map[domain.RateKey][]domain.RateEntry)}
	r.Put(rates...)

	return r
}

// Put adds rate versions.
func (r *RateRepository) Put(rates ...domain.RateEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rate := range rates {
		r.rates[rate.RateKey] = append(r.rates[rate.RateKey], rate)
	}
}

// FindRate returns the rate for key effective at at.
func (r *RateRepository) FindRate(_ context.Context, key domain.RateKey, at time.Time) (*domain.RateEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rate, ok := domain.SelectEffectiveRate(r.rates[key], at)
	if !ok {
		return nil, &domain.RateNotFoundError{Key: key}
	}

	return &rate, nil
}

// ListRates returns every stored version matching filter, ordered by lane
// then version.
func (r *RateRepository) ListRates(_ context.Context, filter ports.RateFilter) ([]domain.RateEntry, error) {
	r.mu.RLock()

	var out []domain.RateEntry

	for _, versions := range r.rates {
		for _, rate := range versions {
			if filter.Matches(rate) {
				out = append(out, rate)
			}
		}
	}

	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].RateKey.String(), out[j].RateKey.String()
		if a != b {
			return a < b
		}

		return out[i].Version < out[j].Version
	})

	return out, nil
}

// AccessorialRepository serves surcharge rules by code.
type AccessorialRepository struct {
	mu    sync.RWMutex
	rules map[string]domain.AccessorialRule
}

var _ ports.AccessorialRepository = (*AccessorialRepository)(nil)

// NewAccessorialRepository creates a repository holding rules.
func NewAccessorialRepository(rules ...domain.AccessorialRule) *AccessorialRepository {
	r := &AccessorialRepository{rules: make(map[string]domain.AccessorialRule, len(rules))}
	r.Put(rules...)

	return r
}

// Put adds or replaces rules.
func (r *AccessorialRepository) Put(rules ...domain.AccessorialRule) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rule := range rules {
		r.rules[rule.Code] = rule
	}
}

// FindAccessorial returns the rule for code.
func (r *AccessorialRepository) FindAccessorial(_ context.Context, code string) (*domain.AccessorialRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, ok := r.rules[code]
	if !ok {
		return nil, &domain.AccessorialNotFoundError{AccessorialCode: code}
	}

	return &rule, nil
}

// ListAccessorials returns every rule ordered by code.
func (r *AccessorialRepository) ListAccessorials(_ context.Context) ([]domain.AccessorialRule, error) {
	r.mu.RLock()

	out := make([]domain.AccessorialRule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, rule)
	}

	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })

	return out, nil
}
