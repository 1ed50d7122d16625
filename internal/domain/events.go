package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lifecycle event types, one per transition out of DRAFT or ISSUED.
const (
	EventQuoteIssued    = "quote.issued"
	EventQuoteAccepted  = "quote.accepted"
	EventQuoteExpired   = "quote.expired"
	EventQuoteCancelled = "quote.cancelled"
)

var eventTypes = map[QuoteStatus]string{
	StatusIssued:    EventQuoteIssued,
	StatusAccepted:  EventQuoteAccepted,
	StatusExpired:   EventQuoteExpired,
	StatusCancelled: EventQuoteCancelled,
}

// QuoteEvent notifies subscribers of a committed lifecycle transition.
type QuoteEvent struct {
	Type        string          `json:"-"`
	QuoteID     string          `json:"quote_id"`
	CustomerID  string          `json:"customer_id"`
	Status      QuoteStatus     `json:"status"`
	OccurredAt  time.Time       `json:"occurred_at"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency"`
	ValidUntil  *time.Time      `json:"valid_until,omitempty"`
}

// NewQuoteEvent describes the quote's current status as an event.
// It returns false for DRAFT, which has no event.
func NewQuoteEvent(q *Quote, at time.Time) (QuoteEvent, bool) {
	typ, ok := eventTypes[q.Status]
	if !ok {
		return QuoteEvent{}, false
	}

	return QuoteEvent{
		Type:        typ,
		QuoteID:     q.ID,
		CustomerID:  q.CustomerID,
		Status:      q.Status,
		OccurredAt:  at,
		TotalAmount: q.TotalAmount,
		Currency:    q.Currency,
		ValidUntil:  cloneTime(q.ValidUntil),
	}, true
}

// EventType returns the event name.
func (e QuoteEvent) EventType() string { return e.Type }

// Payload returns the event body.
func (e QuoteEvent) Payload() any { return e }
