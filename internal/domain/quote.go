package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuoteStatus is a position in the quote lifecycle.
type QuoteStatus string

// Quote statuses.
const (
	StatusDraft     QuoteStatus = "DRAFT"
	StatusIssued    QuoteStatus = "ISSUED"
	StatusAccepted  QuoteStatus = "ACCEPTED"
	StatusExpired   QuoteStatus = "EXPIRED"
	StatusCancelled QuoteStatus = "CANCELLED"
)

// transitions is the complete lifecycle table. Statuses without an entry are terminal.
var transitions = map[QuoteStatus][]QuoteStatus{
	StatusDraft:  {StatusIssued, StatusCancelled},
	StatusIssued: {StatusAccepted, StatusExpired, StatusCancelled},
}

// Valid reports whether s is a known status.
func (s QuoteStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusIssued, StatusAccepted, StatusExpired, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no transition leaves s.
func (s QuoteStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// CanTransitionTo reports whether the lifecycle table allows s -> to.
func (s QuoteStatus) CanTransitionTo(to QuoteStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == to {
			return true
		}
	}

	return false
}

// LineItemType distinguishes base freight from surcharges.
type LineItemType string

// Line item types.
const (
	LineBase      LineItemType = "BASE"
	LineSurcharge LineItemType = "SURCHARGE"
)

// LineItem is one priced row of a quote.
type LineItem struct {
	Sequence    int
	Type        LineItemType
	Code        string
	Description string
	UnitPrice   decimal.Decimal
	Quantity    decimal.Decimal
	TotalPrice  decimal.Decimal
	Currency    string
}

// Pricing is the output of the calculator for one request.
type Pricing struct {
	Currency    string
	LineItems   []LineItem
	BaseAmount  decimal.Decimal
	TotalAmount decimal.Decimal

	// SourceCurrency and ExchangeRate are set when amounts were converted
	// from the rate currency into a settlement currency.
	SourceCurrency string
	ExchangeRate   decimal.Decimal
}

// Quote is a priced offer and its lifecycle state. Quotes are never deleted.
type Quote struct {
	ID          string
	CustomerID  string
	Mode        Mode
	Service     ServiceType
	Origin      string
	Destination string
	Shipment    Shipment

	Currency       string
	LineItems      []LineItem
	BaseAmount     decimal.Decimal
	TotalAmount    decimal.Decimal
	SourceCurrency string
	ExchangeRate   decimal.Decimal

	Status  QuoteStatus
	Version int

	CreatedAt   time.Time
	UpdatedAt   time.Time
	IssuedAt    *time.Time
	ValidUntil  *time.Time
	AcceptedAt  *time.Time
	ExpiredAt   *time.Time
	CancelledAt *time.Time
}

// NewQuoteID returns an identifier of the form Q-1A2B3C4D.
func NewQuoteID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")

	return "Q-" + strings.ToUpper(raw[:8])
}

// NewDraftQuote builds a DRAFT quote from a validated request and its pricing.
func NewDraftQuote(id string, req QuoteRequest, pricing Pricing, now time.Time) *Quote {
	return &Quote{
		ID:             id,
		CustomerID:     req.CustomerID,
		Mode:           req.Mode,
		Service:        req.Service,
		Origin:         req.Origin,
		Destination:    req.Destination,
		Shipment:       req.Shipment(),
		Currency:       pricing.Currency,
		LineItems:      append([]LineItem(nil), pricing.LineItems...),
		BaseAmount:     pricing.BaseAmount,
		TotalAmount:    pricing.TotalAmount,
		SourceCurrency: pricing.SourceCurrency,
		ExchangeRate:   pricing.ExchangeRate,
		Status:         StatusDraft,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// PastValidity reports whether an ISSUED quote has outlived valid_until.
func (q *Quote) PastValidity(now time.Time) bool {
	return q.Status == StatusIssued && q.ValidUntil != nil && now.After(*q.ValidUntil)
}

// WasIssued reports whether the quote ever left DRAFT through issuance.
// Only such quotes can be rendered as documents.
func (q *Quote) WasIssued() bool {
	return q.IssuedAt != nil
}

// Clone returns a deep copy.
func (q *Quote) Clone() *Quote {
	c := *q
	c.LineItems = append([]LineItem(nil), q.LineItems...)
	c.Shipment.Containers = append([]ContainerSpec(nil), q.Shipment.Containers...)
	c.Shipment.Accessorials = append([]string(nil), q.Shipment.Accessorials...)
	c.IssuedAt = cloneTime(q.IssuedAt)
	c.ValidUntil = cloneTime(q.ValidUntil)
	c.AcceptedAt = cloneTime(q.AcceptedAt)
	c.ExpiredAt = cloneTime(q.ExpiredAt)
	c.CancelledAt = cloneTime(q.CancelledAt)

	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	v := *t

	return &v
}

// StatusChange is a compare-and-set request: move QuoteID from From to To at At.
type StatusChange struct {
	QuoteID string
	From    QuoteStatus
	To      QuoteStatus
	At      time.Time

	// ValidUntil is set when issuing.
	ValidUntil *time.Time
}

// NewStatusChange checks the lifecycle table and describes the transition
// of q to the target status.
func NewStatusChange(q *Quote, to QuoteStatus, at time.Time) (StatusChange, error) {
	if !q.Status.CanTransitionTo(to) {
		return StatusChange{}, &InvalidTransitionError{QuoteID: q.ID, From: q.Status, To: to}
	}

	return StatusChange{QuoteID: q.ID, From: q.Status, To: to, At: at}, nil
}

// Apply mutates q to reflect a committed status change. Callers must have
// verified q.Status == c.From.
func (q *Quote) Apply(c StatusChange) {
	at := c.At

	q.Status = c.To
	q.Version++
	q.UpdatedAt = at

	switch c.To {
	case StatusIssued:
		q.IssuedAt = &at
		q.ValidUntil = cloneTime(c.ValidUntil)
	case StatusAccepted:
		q.AcceptedAt = &at
	case StatusExpired:
		q.ExpiredAt = &at
	case StatusCancelled:
		q.CancelledAt = &at
	}
}
