// Package redisstore keeps idempotency reservations in Redis. A reservation
// is a single SET NX PX, so the key expires on its own once the window
// closes and the first writer wins every race.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jsamuelsen/freight-quote-service/internal/domain"
	"github.com/jsamuelsen/freight-quote-service/internal/ports"
)

const defaultPrefix = "quote:idem:"

// Config describes the Redis connection.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewClient opens a client and pings it.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}

	return rdb, nil
}

type record struct {
	CustomerID  string    `json:"customer_id"`
	Key         string    `json:"key"`
	QuoteID     string    `json:"quote_id"`
	RequestHash string    `json:"request_hash"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// IdempotencyStore implements ports.IdempotencyStore.
type IdempotencyStore struct {
	rdb    redis.Cmdable
	prefix string
	clock  ports.Clock
}

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// NewIdempotencyStore creates a store. An empty prefix uses "quote:idem:".
func NewIdempotencyStore(rdb redis.Cmdable, prefix string, clock ports.Clock) *IdempotencyStore {
	if prefix == "" {
		prefix = defaultPrefix
	}

	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &IdempotencyStore{rdb: rdb, prefix: prefix, clock: clock}
}

func (s *IdempotencyStore) key(customerID, key string) string {
	return s.prefix + customerID + ":" + key
}

// Reserve sets the key if absent. When another record holds it, that record
// is returned. A holder that expires between SET and GET is retried once.
func (s *IdempotencyStore) Reserve(ctx context.Context, rec domain.IdempotencyRecord) (*domain.IdempotencyRecord, bool, error) {
	ttl := rec.ExpiresAt.Sub(s.clock.Now())
	if ttl <= 0 {
		return nil, false, domain.NewValidationError("idempotency_key", "reservation already expired")
	}

	payload, err := json.Marshal(record(rec))
	if err != nil {
		return nil, false, fmt.Errorf("encoding idempotency record: %w", err)
	}

	k := s.key(rec.CustomerID, rec.Key)

	for range 2 {
		ok, err := s.rdb.SetNX(ctx, k, payload, ttl).Result()
		if err != nil {
			return nil, false, mapError(err)
		}

		if ok {
			return &rec, true, nil
		}

		raw, err := s.rdb.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}

		if err != nil {
			return nil, false, mapError(err)
		}

		var existing record
		if err := json.Unmarshal(raw, &existing); err != nil {
			return nil, false, fmt.Errorf("decoding idempotency record %s: %w", k, err)
		}

		out := domain.IdempotencyRecord(existing)

		return &out, false, nil
	}

	return nil, false, domain.NewConflictError("idempotency key", rec.Key, "reservation contended")
}

// Release deletes the key.
func (s *IdempotencyStore) Release(ctx context.Context, customerID, key string) error {
	if err := s.rdb.Del(ctx, s.key(customerID, key)).Err(); err != nil {
		return mapError(err)
	}

	return nil
}

// HealthChecker pings Redis.
type HealthChecker struct {
	rdb redis.Cmdable
}

var _ ports.HealthChecker = (*HealthChecker)(nil)

// NewHealthChecker creates a checker.
func NewHealthChecker(rdb redis.Cmdable) *HealthChecker {
	return &HealthChecker{rdb: rdb}
}

// Name implements ports.HealthChecker.
func (h *HealthChecker) Name() string { return "redis" }

// Check pings the server.
func (h *HealthChecker) Check(ctx context.Context) error {
	return h.rdb.Ping(ctx).Err()
}

func mapError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return domain.NewUnavailableError("redis", err.Error())
}
