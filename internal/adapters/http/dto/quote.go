package dto

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jsamuelsen/freight-quote-service/internal/domain"
	"github.com/jsamuelsen/freight-quote-service/internal/ports"
)

// ContainerRequest asks for Count containers of one ISO type.
type ContainerRequest struct {
	Type  string `json:"type"  validate:"required,oneof=20GP 40GP 40HC 45HC 20RF 40RF"`
	Count int    `json:"count" validate:"gte=1,lte=999"`
}

// CreateQuoteRequest is the body of POST /quotes. Cargo rules that depend
// on mode and service are checked by the domain after binding.
type CreateQuoteRequest struct {
	CustomerID         string             `json:"customer_id"         validate:"omitempty,max=64"`
	Mode               string             `json:"mode"                validate:"required,oneof=SEA AIR sea air"`
	ServiceType        string             `json:"service_type"        validate:"required,oneof=FCL LCL AIR fcl lcl air"`
	Origin             string             `json:"origin"              validate:"required,locode"`
	Destination        string             `json:"destination"         validate:"required,locode"`
	Containers         []ContainerRequest `json:"containers"          validate:"omitempty,max=50,dive"`
	WeightKg           *decimal.Decimal   `json:"weight_kg"`
	VolumeM3           *decimal.Decimal   `json:"volume_m3"`
	Accessorials       []string           `json:"accessorials"        validate:"omitempty,max=20,dive,notempty"`
	SettlementCurrency string             `json:"settlement_currency" validate:"omitempty,currency"`
}

// ToDomain converts the body into a quote request. defaultCustomer fills
// an empty customer_id.
func (r *CreateQuoteRequest) ToDomain(defaultCustomer string) domain.QuoteRequest {
	req := domain.QuoteRequest{
		CustomerID:         strings.TrimSpace(r.CustomerID),
		Mode:               domain.Mode(strings.ToUpper(r.Mode)),
		Service:            domain.ServiceType(strings.ToUpper(r.ServiceType)),
		Origin:             r.Origin,
		Destination:        r.Destination,
		Accessorials:       append([]string(nil), r.Accessorials...),
		SettlementCurrency: r.SettlementCurrency,
	}

	if req.CustomerID == "" {
		req.CustomerID = defaultCustomer
	}

	for _, c := range r.Containers {
		req.Containers = append(req.Containers, domain.ContainerSpec{
			Type:  domain.ContainerType(strings.ToUpper(c.Type)),
			Count: c.Count,
		})
	}

	if r.WeightKg != nil {
		req.WeightKg = *r.WeightKg
	}

	if r.VolumeM3 != nil {
		req.VolumeM3 = *r.VolumeM3
	}

	return req
}

// ListQuotesQuery is the query string of GET /quotes.
type ListQuotesQuery struct {
	PaginationRequest

	CustomerID string `form:"customer_id"`
	Status     string `form:"status" validate:"omitempty,oneof=DRAFT ISSUED ACCEPTED EXPIRED CANCELLED"`
}

// ToFilter converts the query into a repository filter. A malformed cursor
// is reported as a validation error on "cursor".
func (q *ListQuotesQuery) ToFilter() (ports.QuoteFilter, error) {
	filter := ports.QuoteFilter{
		CustomerID: strings.TrimSpace(q.CustomerID),
		Status:     domain.QuoteStatus(q.Status),
		Limit:      q.GetLimit(),
	}

	after, err := q.QuoteCursor()

	switch {
	case err == nil:
		filter.After = after
	case !errors.Is(err, ErrNoCursor):
		return filter, domain.NewValidationError("cursor", "malformed pagination cursor")
	}

	return filter, nil
}

// LineItemResponse is one priced row.
type LineItemResponse struct {
	Sequence    int    `json:"sequence"`
	Type        string `json:"type"`
	Code        string `json:"code"`
	Description string `json:"description"`
	UnitPrice   string `json:"unit_price"`
	Quantity    string `json:"quantity"`
	TotalPrice  string `json:"total_price"`
	Currency    string `json:"currency"`
}

// ContainerResponse echoes a requested container group.
type ContainerResponse struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// ShipmentResponse echoes the cargo a quote was priced for.
type ShipmentResponse struct {
	Containers   []ContainerResponse `json:"containers,omitempty"`
	WeightKg     string              `json:"weight_kg,omitempty"`
	VolumeM3     string              `json:"volume_m3,omitempty"`
	Accessorials []string            `json:"accessorials,omitempty"`
}

// ConversionResponse describes a currency conversion applied to a quote.
type ConversionResponse struct {
	SourceCurrency string `json:"source_currency"`
	ExchangeRate   string `json:"exchange_rate"`
}

// QuoteResponse is the representation of a quote. Money amounts are
// decimal strings with two places.
type QuoteResponse struct {
	ID          string              `json:"id"`
	CustomerID  string              `json:"customer_id"`
	Mode        string              `json:"mode"`
	ServiceType string              `json:"service_type"`
	Origin      string              `json:"origin"`
	Destination string              `json:"destination"`
	Shipment    ShipmentResponse    `json:"shipment"`
	Status      string              `json:"status"`
	Version     int                 `json:"version"`
	Currency    string              `json:"currency"`
	LineItems   []LineItemResponse  `json:"line_items"`
	BaseAmount  string              `json:"base_amount"`
	TotalAmount string              `json:"total_amount"`
	Conversion  *ConversionResponse `json:"conversion,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	IssuedAt    *time.Time          `json:"issued_at,omitempty"`
	ValidUntil  *time.Time          `json:"valid_until,omitempty"`
	AcceptedAt  *time.Time          `json:"accepted_at,omitempty"`
	ExpiredAt   *time.Time          `json:"expired_at,omitempty"`
	CancelledAt *time.Time          `json:"cancelled_at,omitempty"`
}

// NewQuoteResponse converts a domain quote.
func NewQuoteResponse(q *domain.Quote) QuoteResponse {
	resp := QuoteResponse{
		ID:          q.ID,
		CustomerID:  q.CustomerID,
		Mode:        string(q.Mode),
		ServiceType: string(q.Service),
		Origin:      q.Origin,
		Destination: q.Destination,
		Shipment:    newShipmentResponse(q.Shipment),
		Status:      string(q.Status),
		Version:     q.Version,
		Currency:    q.Currency,
		LineItems:   make([]LineItemResponse, 0, len(q.LineItems)),
		BaseAmount:  money(q.BaseAmount),
		TotalAmount: money(q.TotalAmount),
		CreatedAt:   q.CreatedAt.UTC(),
		UpdatedAt:   q.UpdatedAt.UTC(),
		IssuedAt:    utc(q.IssuedAt),
		ValidUntil:  utc(q.ValidUntil),
		AcceptedAt:  utc(q.AcceptedAt),
		ExpiredAt:   utc(q.ExpiredAt),
		CancelledAt: utc(q.CancelledAt),
	}

	for _, li := range q.LineItems {
		resp.LineItems = append(resp.LineItems, LineItemResponse{
			Sequence:    li.Sequence,
			Type:        string(li.Type),
			Code:        li.Code,
			Description: li.Description,
			UnitPrice:   money(li.UnitPrice),
			Quantity:    li.Quantity.String(),
			TotalPrice:  money(li.TotalPrice),
			Currency:    li.Currency,
		})
	}

	if q.SourceCurrency != "" {
		resp.Conversion = &ConversionResponse{
			SourceCurrency: q.SourceCurrency,
			ExchangeRate:   q.ExchangeRate.String(),
		}
	}

	return resp
}

// NewQuoteListResponse converts a page of quotes.
func NewQuoteListResponse(page *ports.QuotePage) *PaginatedResponse[QuoteResponse] {
	items := make([]QuoteResponse, 0, len(page.Quotes))
	for _, q := range page.Quotes {
		items = append(items, NewQuoteResponse(q))
	}

	return NewPaginatedResponse(items, EncodeQuoteCursor(page.Next))
}

func newShipmentResponse(s domain.Shipment) ShipmentResponse {
	resp := ShipmentResponse{Accessorials: s.Accessorials}

	for _, c := range s.Containers {
		resp.Containers = append(resp.Containers, ContainerResponse{Type: string(c.Type), Count: c.Count})
	}

	if !s.WeightKg.IsZero() {
		resp.WeightKg = s.WeightKg.String()
	}

	if !s.VolumeM3.IsZero() {
		resp.VolumeM3 = s.VolumeM3.String()
	}

	return resp
}

func money(d decimal.Decimal) string {
	return d.StringFixed(domain.MoneyPlaces)
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	u := t.UTC()

	return &u
}
