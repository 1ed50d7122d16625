package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/freight-quote-service/internal/domain"
	"github.com/jsamuelsen/freight-quote-service/internal/ports"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func draft(id, customer string, created time.Time) *domain.Quote {
	return &domain.Quote{
		ID:         id,
		CustomerID: customer,
		Status:     domain.StatusDraft,
		Version:    1,
		CreatedAt:  created,
		UpdatedAt:  created,
		LineItems:  []domain.LineItem{{Sequence: 1, Type: domain.LineBase, Code: "FREIGHT_40HC"}},
	}
}

func TestQuoteRepository_CreateGet(t *testing.T) {
	ctx := context.Background()
	repo := NewQuoteRepository()

	q := draft("Q-00000001", "cust-1", t0)
	require.NoError(t, repo.Create(ctx, q))

	err := repo.Create(ctx, q)
	assert.True(t, domain.IsConflict(err))

	got, err := repo.Get(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, q.ID, got.ID)

	// Mutating the returned copy does not touch the store.
	got.LineItems[0].Code = "CHANGED"
	again, err := repo.Get(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, "FREIGHT_40HC", again.LineItems[0].Code)

	_, err = repo.Get(ctx, "Q-MISSING")
	assert.True(t, domain.IsNotFound(err))
}

func TestQuoteRepository_UpdateStatusCAS(t *testing.T) {
	ctx := context.Background()
	repo := NewQuoteRepository()
	require.NoError(t, repo.Create(ctx, draft("Q-1", "cust-1", t0)))

	validUntil := t0.Add(7 * 24 * time.Hour)
	change := domain.StatusChange{QuoteID: "Q-1", From: domain.StatusDraft, To: domain.StatusIssued, At: t0, ValidUntil: &validUntil}

	q, err := repo.UpdateStatus(ctx, change)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusIssued, q.Status)
	assert.Equal(t, 2, q.Version)
	assert.Equal(t, validUntil, *q.ValidUntil)

	_, err = repo.UpdateStatus(ctx, change)

	var cme *domain.ConcurrentModificationError
	require.ErrorAs(t, err, &cme)
	assert.Equal(t, domain.StatusDraft, cme.Expected)
	assert.Equal(t, domain.StatusIssued, cme.Actual)

	_, err = repo.UpdateStatus(ctx, domain.StatusChange{QuoteID: "nope", From: domain.StatusDraft, To: domain.StatusIssued})
	assert.True(t, domain.IsNotFound(err))
}

func TestQuoteRepository_ConcurrentTransitionsHaveOneWinner(t *testing.T) {
	ctx := context.Background()
	repo := NewQuoteRepository()
	require.NoError(t, repo.Create(ctx, draft("Q-1", "cust-1", t0)))

	targets := []domain.QuoteStatus{domain.StatusIssued, domain.StatusCancelled}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)

	for i := range 20 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := repo.UpdateStatus(ctx, domain.StatusChange{
				QuoteID: "Q-1", From: domain.StatusDraft, To: targets[i%2], At: t0,
			})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, successes)

	q, err := repo.Get(ctx, "Q-1")
	require.NoError(t, err)
	assert.Equal(t, 2, q.Version)
}

func TestQuoteRepository_ListPagination(t *testing.T) {
	ctx := context.Background()
	repo := NewQuoteRepository()

	for i := range 5 {
		customer := "cust-1"
		if i == 2 {
			customer = "cust-2"
		}

		require.NoError(t, repo.Create(ctx, draft(fmt.Sprintf("Q-%d", i), customer, t0.Add(time.Duration(i)*time.Minute))))
	}

	// Same timestamp as Q-4, ordered by id desc.
	require.NoError(t, repo.Create(ctx, draft("Q-9", "cust-1", t0.Add(4*time.Minute))))

	page, err := repo.List(ctx, ports.QuoteFilter{CustomerID: "cust-1", Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Quotes, 2)
	assert.Equal(t, "Q-9", page.Quotes[0].ID)
	assert.Equal(t, "Q-4", page.Quotes[1].ID)
	require.NotNil(t, page.Next)

	page, err = repo.List(ctx, ports.QuoteFilter{CustomerID: "cust-1", Limit: 2, After: page.Next})
	require.NoError(t, err)
	require.Len(t, page.Quotes, 2)
	assert.Equal(t, "Q-3", page.Quotes[0].ID)
	assert.Equal(t, "Q-1", page.Quotes[1].ID)

	page, err = repo.List(ctx, ports.QuoteFilter{CustomerID: "cust-1", Limit: 2, After: page.Next})
	require.NoError(t, err)
	require.Len(t, page.Quotes, 1)
	assert.Equal(t, "Q-0", page.Quotes[0].ID)
	assert.Nil(t, page.Next)
}

func TestIdempotencyStore_Reserve(t *testing.T) {
	ctx := context.Background()
	now := t0
	store := NewIdempotencyStore(ports.ClockFunc(func() time.Time { return now }))

	rec := domain.IdempotencyRecord{
		CustomerID: "cust-1", Key: "k1", QuoteID: "Q-1", RequestHash: "h1",
		CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}

	got, created, err := store.Reserve(ctx, rec)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Q-1", got.QuoteID)

	second := rec
	second.QuoteID = "Q-2"

	got, created, err = store.Reserve(ctx, second)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Q-1", got.QuoteID)

	// Other customers do not share keys.
	other := second
	other.CustomerID = "cust-2"
	_, created, err = store.Reserve(ctx, other)
	require.NoError(t, err)
	assert.True(t, created)

	now = now.Add(time.Hour)

	got, created, err = store.Reserve(ctx, second)
	require.NoError(t, err)
	assert.True(t, created, "expired reservation is replaced")
	assert.Equal(t, "Q-2", got.QuoteID)

	require.NoError(t, store.Release(ctx, "cust-1", "k1"))
	_, created, err = store.Reserve(ctx, rec)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestIdempotencyStore_ConcurrentReserveHasOneWinner(t *testing.T) {
	ctx := context.Background()
	store := NewIdempotencyStore(nil)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
	)

	for i := range 16 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			rec := domain.IdempotencyRecord{
				CustomerID: "cust-1", Key: "k", QuoteID: fmt.Sprintf("Q-%d", i),
				ExpiresAt: time.Now().Add(time.Hour),
			}

			if _, created, err := store.Reserve(ctx, rec); err == nil && created {
				mu.Lock()
				winners = append(winners, rec.QuoteID)
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	assert.Len(t, winners, 1)
}

func TestRateRepository_FindRate(t *testing.T) {
	ctx := context.Background()
	key := domain.RateKey{Mode: domain.ModeSea, Service: domain.ServiceFCL, Origin: "SGSIN", Destination: "EGALY", ContainerType: "40HC"}

	repo := NewRateRepository(
		domain.RateEntry{ID: "v1", RateKey: key, Price: decimal.NewFromInt(1900), Currency: "USD", Version: 1},
		domain.RateEntry{ID: "v2", RateKey: key, Price: decimal.NewFromInt(2000), Currency: "USD", Version: 2, EffectiveFrom: t0},
	)

	rate, err := repo.FindRate(ctx, key, t0.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "v1", rate.ID)

	rate, err = repo.FindRate(ctx, key, t0)
	require.NoError(t, err)
	assert.Equal(t, "v2", rate.ID)

	missing := key
	missing.ContainerType = "20GP"
	_, err = repo.FindRate(ctx, missing, t0)

	var notFound *domain.RateNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, missing, notFound.Key)
	assert.True(t, domain.IsNotQuotable(err))

	rates, err := repo.ListRates(ctx, ports.RateFilter{Origin: "SGSIN"})
	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.Equal(t, 1, rates[0].Version)
}

func TestAccessorialRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewAccessorialRepository(
		domain.AccessorialRule{Code: "PORT_FEES", Method: domain.MethodFlat, Value: decimal.NewFromInt(150)},
		domain.AccessorialRule{Code: "FUEL", Method: domain.MethodPercentOfBase, Value: decimal.NewFromInt(10)},
	)

	rule, err := repo.FindAccessorial(ctx, "FUEL")
	require.NoError(t, err)
	assert.Equal(t, domain.MethodPercentOfBase, rule.Method)

	_, err = repo.FindAccessorial(ctx, "UNKNOWN")

	var notFound *domain.AccessorialNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "UNKNOWN", notFound.AccessorialCode)

	rules, err := repo.ListAccessorials(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "FUEL", rules[0].Code)
}
