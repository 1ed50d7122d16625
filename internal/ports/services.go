package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jsamuelsen/freight-quote-service/internal/domain"
)

// EventPublisher delivers lifecycle notifications.
// Returns domain.ErrUnavailable if the messaging system is unreachable.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// Event represents a domain event that can be published.
type Event interface {
	// EventType returns the routing name, e.g. "quote.issued".
	EventType() string

	// Payload returns the event data for serialization.
	Payload() any
}

// Document is a rendered quote.
type Document struct {
	Filename    string
	ContentType string
	Content     []byte
}

// DocumentRenderer produces a customer-facing document for an issued quote.
type DocumentRenderer interface {
	Render(ctx context.Context, quote *domain.Quote) (*Document, error)
}

// ExchangeRateProvider converts between currencies.
type ExchangeRateProvider interface {
	// ExchangeRate returns how many units of to equal one unit of from.
	// Returns *domain.MissingExchangeRateError when the pair is unknown.
	ExchangeRate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// ExpiryScheduler arranges for Expire to be called on a quote at a future time.
type ExpiryScheduler interface {
	ScheduleExpiry(ctx context.Context, quoteID string, at time.Time) error
}

// Clock abstracts the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// QuoteMetrics records business outcomes of the quotation core.
type QuoteMetrics interface {
	QuoteCreated(currency string, replayed bool)
	QuoteTransitioned(to domain.QuoteStatus)
	EventPublishFailed(eventType string)
	PricingObserved(duration time.Duration, outcome string)
}

// NopQuoteMetrics discards every observation.
type NopQuoteMetrics struct{}

func (NopQuoteMetrics) QuoteCreated(string, bool)             {}
func (NopQuoteMetrics) QuoteTransitioned(domain.QuoteStatus)  {}
func (NopQuoteMetrics) EventPublishFailed(string)             {}
func (NopQuoteMetrics) PricingObserved(time.Duration, string) {}
