package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/freight-quote-service/internal/domain"
	"github.com/jsamuelsen/freight-quote-service/internal/ports"
)

func newStore(t *testing.T, now time.Time) (*IdempotencyStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	clock := ports.ClockFunc(func() time.Time { return now })

	return NewIdempotencyStore(rdb, "", clock), mr
}

func reservation(now time.Time, quoteID string) domain.IdempotencyRecord {
	return domain.IdempotencyRecord{
		CustomerID:  "CUST-1",
		Key:         "key-1",
		QuoteID:     quoteID,
		RequestHash: "hash-" + quoteID,
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Hour),
	}
}

func TestIdempotencyStore_Reserve(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("first writer wins", func(t *testing.T) {
		store, mr := newStore(t, now)

		got, created, err := store.Reserve(ctx, reservation(now, "Q-AAAAAAAA"))
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "Q-AAAAAAAA", got.QuoteID)
		assert.Equal(t, time.Hour, mr.TTL("quote:idem:CUST-1:key-1"))

		got, created, err = store.Reserve(ctx, reservation(now, "Q-BBBBBBBB"))
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "Q-AAAAAAAA", got.QuoteID)
		assert.Equal(t, "hash-Q-AAAAAAAA", got.RequestHash)
		assert.True(t, got.ExpiresAt.Equal(now.Add(time.Hour)))
	})

	t.Run("expired key can be reserved again", func(t *testing.T) {
		store, mr := newStore(t, now)

		_, _, err := store.Reserve(ctx, reservation(now, "Q-AAAAAAAA"))
		require.NoError(t, err)

		mr.FastForward(time.Hour + time.Second)

		got, created, err := store.Reserve(ctx, reservation(now, "Q-BBBBBBBB"))
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "Q-BBBBBBBB", got.QuoteID)
	})

	t.Run("keys are scoped per customer", func(t *testing.T) {
		store, _ := newStore(t, now)

		_, _, err := store.Reserve(ctx, reservation(now, "Q-AAAAAAAA"))
		require.NoError(t, err)

		other := reservation(now, "Q-CCCCCCCC")
		other.CustomerID = "CUST-2"

		_, created, err := store.Reserve(ctx, other)
		require.NoError(t, err)
		assert.True(t, created)
	})

	t.Run("already expired reservation is rejected", func(t *testing.T) {
		store, _ := newStore(t, now)

		rec := reservation(now, "Q-AAAAAAAA")
		rec.ExpiresAt = now

		_, _, err := store.Reserve(ctx, rec)
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("server down is unavailable", func(t *testing.T) {
		store, mr := newStore(t, now)
		mr.Close()

		_, _, err := store.Reserve(ctx, reservation(now, "Q-AAAAAAAA"))
		assert.True(t, domain.IsUnavailable(err))
	})
}

func TestIdempotencyStore_Release(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()
	store, mr := newStore(t, now)

	_, _, err := store.Reserve(ctx, reservation(now, "Q-AAAAAAAA"))
	require.NoError(t, err)

	require.NoError(t, store.Release(ctx, "CUST-1", "key-1"))
	assert.False(t, mr.Exists("quote:idem:CUST-1:key-1"))

	require.NoError(t, store.Release(ctx, "CUST-1", "never-reserved"))
}

func TestHealthChecker(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	h := NewHealthChecker(rdb)
	assert.Equal(t, "redis", h.Name())
	require.NoError(t, h.Check(context.Background()))

	mr.Close()
	assert.Error(t, h.Check(context.Background()))
}
