// Package events publishes quote lifecycle events. Every event leaves the
// service wrapped in an Envelope so subscribers can route, deduplicate and
// correlate it without knowing the payload type.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jsamuelsen/freight-quote-service/internal/adapters/http/middleware"
	"github.com/jsamuelsen/freight-quote-service/internal/ports"
)

// EnvelopeVersion is the envelope schema version.
const EnvelopeVersion = "1.0"

// Envelope is the wire format of a published event.
type Envelope struct {
	EventType     string          `json:"event_type"`
	EventID       string          `json:"event_id"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	SourceService string          `json:"source_service"`
	Version       string          `json:"version"`
	Data          json.RawMessage `json:"data"`
}

// NewEnvelope wraps event. The correlation id is taken from ctx.
func NewEnvelope(ctx context.Context, event ports.Event, source string, now time.Time) (Envelope, error) {
	data, err := json.Marshal(event.Payload())
	if err != nil {
		return Envelope{}, fmt.Errorf("encoding %s payload: %w", event.EventType(), err)
	}

	return Envelope{
		EventType:     event.EventType(),
		EventID:       uuid.NewString(),
		Timestamp:     now.UTC(),
		CorrelationID: middleware.CorrelationIDFromContext(ctx),
		SourceService: source,
		Version:       EnvelopeVersion,
		Data:          data,
	}, nil
}
