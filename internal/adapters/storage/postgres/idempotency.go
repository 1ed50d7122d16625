package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jsamuelsen/freight-quote-service/internal/domain"
	"github.com/jsamuelsen/freight-quote-service/internal/ports"
)

// reserveKey inserts the record, or takes over an existing one that has
// expired. RETURNING yields a row only when this statement wrote it.
const reserveKey = `INSERT INTO idempotency_keys (customer_id, idem_key, quote_id, request_hash, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (customer_id, idem_key) DO UPDATE SET
	quote_id = EXCLUDED.quote_id,
	request_hash = EXCLUDED.request_hash,
	created_at = EXCLUDED.created_at,
	expires_at = EXCLUDED.expires_at
WHERE idempotency_keys.expires_at <= EXCLUDED.created_at
RETURNING quote_id`

const selectKey = `SELECT customer_id, idem_key, quote_id, request_hash, created_at, expires_at
FROM idempotency_keys WHERE customer_id = $1 AND idem_key = $2`

// IdempotencyStore keeps reservations in the idempotency_keys table.
type IdempotencyStore struct {
	db *DB
}

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// NewIdempotencyStore creates a store on db.
func NewIdempotencyStore(db *DB) *IdempotencyStore {
	return &IdempotencyStore{db: db}
}

// Reserve atomically claims (customer, key). rec.CreatedAt is the reference
// time for deciding whether an existing record has expired.
func (s *IdempotencyStore) Reserve(ctx context.Context, rec domain.IdempotencyRecord) (*domain.IdempotencyRecord, bool, error) {
	// A concurrent Release can delete the winner between the two statements;
	// one retry covers it.
	for range 2 {
		var quoteID string

		err := s.db.Pool.QueryRow(ctx, reserveKey,
			rec.CustomerID, rec.Key, rec.QuoteID, rec.RequestHash, rec.CreatedAt, rec.ExpiresAt,
		).Scan(&quoteID)
		if err == nil {
			return &rec, true, nil
		}

		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, false, mapError(err, "idempotency key", rec.Key)
		}

		var existing domain.IdempotencyRecord

		err = s.db.Pool.QueryRow(ctx, selectKey, rec.CustomerID, rec.Key).Scan(
			&existing.CustomerID, &existing.Key, &existing.QuoteID,
			&existing.RequestHash, &existing.CreatedAt, &existing.ExpiresAt,
		)
		if err == nil {
			existing.CreatedAt = existing.CreatedAt.UTC()
			existing.ExpiresAt = existing.ExpiresAt.UTC()

			return &existing, false, nil
		}

		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, false, mapError(err, "idempotency key", rec.Key)
		}
	}

	return nil, false, domain.NewConflictError("idempotency key", rec.Key, "reservation is contended")
}

// Release deletes the reservation.
func (s *IdempotencyStore) Release(ctx context.Context, customerID, key string) error {
	_, err := s.db.Pool.Exec(ctx,
		"DELETE FROM idempotency_keys WHERE customer_id = $1 AND idem_key = $2", customerID, key)

	return mapError(err, "idempotency key", key)
}
