package ports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/freight-quote-service/internal/domain"
)

type stubChecker struct {
	name string
	err  error
}

func (s *stubChecker) Name() string                    { return s.name }
func (s *stubChecker) Check(ctx context.Context) error { return s.err }

type blockingChecker struct{ name string }

func (b *blockingChecker) Name() string { return b.name }

func (b *blockingChecker) Check(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

func TestHealthRegistry_Register(t *testing.T) {
	registry := NewHealthRegistry()

	require.NoError(t, registry.Register(&stubChecker{name: "postgres"}))

	err := registry.Register(&stubChecker{name: "postgres"})
	require.ErrorIs(t, err, ErrDuplicateChecker)
	assert.Contains(t, err.Error(), "postgres")
}

func TestHealthRegistry_CheckAll(t *testing.T) {
	tests := []struct {
		name     string
		checkers []HealthChecker
		want     HealthStatus
		messages map[string]string
	}{
		{
			name: "no checkers",
			want: HealthStatusHealthy,
		},
		{
			name:     "all healthy",
			checkers: []HealthChecker{&stubChecker{name: "postgres"}, &stubChecker{name: "redis"}},
			want:     HealthStatusHealthy,
			messages: map[string]string{"postgres": "", "redis": ""},
		},
		{
			name: "one failing",
			checkers: []HealthChecker{
				&stubChecker{name: "postgres"},
				&stubChecker{name: "redis", err: errors.New("dial tcp: connection refused")},
			},
			want:     HealthStatusUnhealthy,
			messages: map[string]string{"postgres": "", "redis": "dial tcp: connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewHealthRegistry()
			for _, c := range tt.checkers {
				require.NoError(t, registry.Register(c))
			}

			result := registry.CheckAll(context.Background())

			assert.Equal(t, tt.want, result.Status)
			assert.Len(t, result.Checks, len(tt.checkers))

			for name, msg := range tt.messages {
				require.Contains(t, result.Checks, name)
				assert.Equal(t, msg, result.Checks[name].Message)
			}
		})
	}
}

func TestHealthRegistry_CheckAllCancelled(t *testing.T) {
	registry := NewHealthRegistry()
	require.NoError(t, registry.Register(&blockingChecker{name: "dynamodb"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := registry.CheckAll(ctx)

	assert.Equal(t, HealthStatusUnhealthy, result.Status)
	assert.Contains(t, result.Checks["dynamodb"].Message, "context canceled")
}

func TestRateFilter_Matches(t *testing.T) {
	rate := domain.RateEntry{RateKey: domain.RateKey{
		Mode: domain.ModeSea, Service: domain.ServiceFCL, Origin: "SGSIN", Destination: "EGALY",
	}}

	assert.True(t, RateFilter{}.Matches(rate))
	assert.True(t, RateFilter{Mode: domain.ModeSea, Origin: "SGSIN"}.Matches(rate))
	assert.False(t, RateFilter{Service: domain.ServiceLCL}.Matches(rate))
	assert.False(t, RateFilter{Destination: "NLRTM"}.Matches(rate))
}

func TestQuoteFilter_Matches(t *testing.T) {
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	earlier := now.Add(-time.Hour)

	q := &domain.Quote{
		ID:         "Q-00000002",
		CustomerID: "c-1",
		Status:     domain.StatusIssued,
		CreatedAt:  earlier,
		ValidUntil: &earlier,
	}

	assert.True(t, QuoteFilter{}.Matches(q))
	assert.True(t, QuoteFilter{CustomerID: "c-1", Status: domain.StatusIssued}.Matches(q))
	assert.False(t, QuoteFilter{CustomerID: "c-2"}.Matches(q))
	assert.False(t, QuoteFilter{Status: domain.StatusDraft}.Matches(q))
	assert.True(t, QuoteFilter{ValidUntilBefore: &now}.Matches(q))
	assert.False(t, QuoteFilter{ValidUntilBefore: &earlier}.Matches(q))

	assert.True(t, QuoteFilter{After: &QuoteCursor{CreatedAt: now, ID: "Q-00000001"}}.Matches(q))
	assert.True(t, QuoteFilter{After: &QuoteCursor{CreatedAt: earlier, ID: "Q-00000003"}}.Matches(q))
	assert.False(t, QuoteFilter{After: &QuoteCursor{CreatedAt: earlier, ID: "Q-00000002"}}.Matches(q))
}

func TestClocks(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, fixed, ClockFunc(func() time.Time { return fixed }).Now())
	assert.Equal(t, time.UTC, SystemClock{}.Now().Location())
}
