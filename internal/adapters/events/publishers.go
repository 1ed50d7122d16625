package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/jsamuelsen/freight-quote-service/internal/domain"
	"github.com/jsamuelsen/freight-quote-service/internal/ports"
)

// DefaultChannel is the pub/sub channel used when none is configured.
const DefaultChannel = "quotations"

// NopPublisher drops every event.
type NopPublisher struct{}

var _ ports.EventPublisher = NopPublisher{}

// Publish implements ports.EventPublisher.
func (NopPublisher) Publish(context.Context, ports.Event) error { return nil }

// LogPublisher writes each envelope to the log at info level. It suits
// local runs and environments where a log shipper forwards events.
type LogPublisher struct {
	logger *slog.Logger
	source string
	clock  ports.Clock
}

var _ ports.EventPublisher = (*LogPublisher)(nil)

// NewLogPublisher creates a log publisher.
func NewLogPublisher(logger *slog.Logger, source string, clock ports.Clock) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}

	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &LogPublisher{logger: logger.With(slog.String("component", "events.LogPublisher")), source: source, clock: clock}
}

// Publish implements ports.EventPublisher.
func (p *LogPublisher) Publish(ctx context.Context, event ports.Event) error {
	env, err := NewEnvelope(ctx, event, p.source, p.clock.Now())
	if err != nil {
		return err
	}

	p.logger.InfoContext(ctx, "event published",
		slog.String("event_type", env.EventType),
		slog.String("event_id", env.EventID),
		slog.String("correlation_id", env.CorrelationID),
		slog.String("data", string(env.Data)),
	)

	return nil
}

// RedisPublisher publishes envelopes as JSON on a Redis pub/sub channel.
type RedisPublisher struct {
	rdb     redis.Cmdable
	channel string
	source  string
	clock   ports.Clock
}

var _ ports.EventPublisher = (*RedisPublisher)(nil)

// NewRedisPublisher creates a publisher on channel, defaulting to
// DefaultChannel.
func NewRedisPublisher(rdb redis.Cmdable, channel, source string, clock ports.Clock) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}

	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &RedisPublisher{rdb: rdb, channel: channel, source: source, clock: clock}
}

// Publish implements ports.EventPublisher. A Redis failure is reported as
// *domain.UnavailableError. Having no subscribers is not an error.
func (p *RedisPublisher) Publish(ctx context.Context, event ports.Event) error {
	env, err := NewEnvelope(ctx, event, p.source, p.clock.Now())
	if err != nil {
		return err
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding envelope: %w", err)
	}

	if err := p.rdb.Publish(ctx, p.channel, body).Err(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return domain.NewUnavailableError("redis", fmt.Sprintf("publish %s: %v", env.EventType, err))
	}

	return nil
}
