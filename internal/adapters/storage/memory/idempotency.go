package memory

import (
	"context"
	"sync"

	"github.com/jsamuelsen/freight-quote-service/internal/domain"
	"github.com/jsamuelsen/freight-quote-service/internal/ports"
)

type idempotencyKey struct {
	customerID string
	key        string
}

// IdempotencyStore keeps reservations in memory. Expired records are
// replaced on the next reservation for the same key.
type IdempotencyStore struct {
	clock ports.Clock

	mu      sync.Mutex
	records map[idempotencyKey]domain.IdempotencyRecord
}

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// NewIdempotencyStore creates an empty store. A nil clock uses the system clock.
func NewIdempotencyStore(clock ports.Clock) *IdempotencyStore {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &IdempotencyStore{clock: clock, records: make(map[idempotencyKey]domain.IdempotencyRecord)}
}

// Reserve inserts rec unless an unexpired record for the same key exists.
func (s *IdempotencyStore) Reserve(_ context.Context, rec domain.IdempotencyRecord) (*domain.IdempotencyRecord, bool, error) {
	k := idempotencyKey{customerID: rec.CustomerID, key: rec.Key}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[k]; ok && !existing.Expired(s.clock.Now()) {
		return &existing, false, nil
	}

	s.records[k] = rec

	return &rec, true, nil
}

// Release deletes the reservation. Releasing an unknown key is a no-op.
func (s *IdempotencyStore) Release(_ context.Context, customerID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, idempotencyKey{customerID: customerID, key: key})

	return nil
}
