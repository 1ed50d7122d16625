package expiry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jsamuelsen/freight-quote-service/internal/domain"
	"github.com/jsamuelsen/freight-quote-service/internal/ports"
)

const (
	// DefaultQueue is the queue name used when none is configured.
	DefaultQueue = "quote-expiry"

	// publishTries is how many deliveries a job gets before lmstfy buries it.
	publishTries = 5
)

// payload is the job body.
type payload struct {
	QuoteID   string    `json:"quote_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Scheduler implements ports.ExpiryScheduler on a Queue.
type Scheduler struct {
	queue  Queue
	name   string
	clock  ports.Clock
	logger *slog.Logger
}

var _ ports.ExpiryScheduler = (*Scheduler)(nil)

// NewScheduler creates a scheduler publishing to the named queue.
func NewScheduler(queue Queue, name string, clock ports.Clock, logger *slog.Logger) *Scheduler {
	if name == "" {
		name = DefaultQueue
	}

	if clock == nil {
		clock = ports.SystemClock{}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{queue: queue, name: name, clock: clock, logger: logger.With(slog.String("component", "expiry.Scheduler"))}
}

// ScheduleExpiry publishes a job that becomes due at at. A time in the
// past is due immediately.
func (s *Scheduler) ScheduleExpiry(ctx context.Context, quoteID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(payload{QuoteID: quoteID, ExpiresAt: at.UTC()})
	if err != nil {
		return fmt.Errorf("encoding expiry job: %w", err)
	}

	delay := delaySeconds(at.Sub(s.clock.Now()))

	jobID, err := s.queue.Publish(s.name, body, 0, publishTries, delay)
	if err != nil {
		return domain.NewUnavailableError("lmstfy", err.Error())
	}

	s.logger.DebugContext(ctx, "expiry scheduled",
		slog.String("quote_id", quoteID),
		slog.String("job_id", jobID),
		slog.Uint64("delay_seconds", uint64(delay)))

	return nil
}

// delaySeconds rounds d up to whole seconds so a job is never due before
// the quote's validity ends.
func delaySeconds(d time.Duration) uint32 {
	if d <= 0 {
		return 0
	}

	secs := math.Ceil(d.Seconds())
	if secs > math.MaxUint32 {
		return math.MaxUint32
	}

	return uint32(secs)
}

func decodePayload(data []byte) (payload, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return payload{}, fmt.Errorf("decoding expiry job: %w", err)
	}

	if p.QuoteID == "" {
		return payload{}, errors.New("expiry job without quote_id")
	}

	return p, nil
}
