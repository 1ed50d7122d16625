package dynamostore

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jsamuelsen/freight-quote-service/internal/domain"
)

// Amounts are stored as strings to keep decimal precision exact; timestamps
// as RFC 3339 so created_at sorts lexically in the customer index.

type containerItem struct {
	Type  string `dynamodbav:"type"`
	Count int    `dynamodbav:"count"`
}

type lineItemItem struct {
	Sequence    int    `dynamodbav:"seq"`
	Type        string `dynamodbav:"type"`
	Code        string `dynamodbav:"code"`
	Description string `dynamodbav:"description"`
	UnitPrice   string `dynamodbav:"unit_price"`
	Quantity    string `dynamodbav:"quantity"`
	TotalPrice  string `dynamodbav:"total_price"`
	Currency    string `dynamodbav:"currency"`
}

type quoteItem struct {
	ID             string          `dynamodbav:"id"`
	CustomerID     string          `dynamodbav:"customer_id"`
	Mode           string          `dynamodbav:"mode"`
	Service        string          `dynamodbav:"service"`
	Origin         string          `dynamodbav:"origin"`
	Destination    string          `dynamodbav:"destination"`
	Containers     []containerItem `dynamodbav:"containers"`
	WeightKg       string          `dynamodbav:"weight_kg"`
	VolumeM3       string          `dynamodbav:"volume_m3"`
	Accessorials   []string        `dynamodbav:"accessorials"`
	Currency       string          `dynamodbav:"currency"`
	LineItems      []lineItemItem  `dynamodbav:"line_items"`
	BaseAmount     string          `dynamodbav:"base_amount"`
	TotalAmount    string          `dynamodbav:"total_amount"`
	SourceCurrency string          `dynamodbav:"source_currency,omitempty"`
	ExchangeRate   string          `dynamodbav:"exchange_rate,omitempty"`
	Status         string          `dynamodbav:"status"`
	Version        int             `dynamodbav:"version"`
	CreatedAt      string          `dynamodbav:"created_at"`
	UpdatedAt      string          `dynamodbav:"updated_at"`
	IssuedAt       string          `dynamodbav:"issued_at,omitempty"`
	ValidUntil     string          `dynamodbav:"valid_until,omitempty"`
	AcceptedAt     string          `dynamodbav:"accepted_at,omitempty"`
	ExpiredAt      string          `dynamodbav:"expired_at,omitempty"`
	CancelledAt    string          `dynamodbav:"cancelled_at,omitempty"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}

	return formatTime(*t)
}

func toQuoteItem(q *domain.Quote) quoteItem {
	it := quoteItem{
		ID:             q.ID,
		CustomerID:     q.CustomerID,
		Mode:           string(q.Mode),
		Service:        string(q.Service),
		Origin:         q.Origin,
		Destination:    q.Destination,
		WeightKg:       q.Shipment.WeightKg.String(),
		VolumeM3:       q.Shipment.VolumeM3.String(),
		Accessorials:   append([]string{}, q.Shipment.Accessorials...),
		Currency:       q.Currency,
		BaseAmount:     q.BaseAmount.String(),
		TotalAmount:    q.TotalAmount.String(),
		SourceCurrency: q.SourceCurrency,
		Status:         string(q.Status),
		Version:        q.Version,
		CreatedAt:      formatTime(q.CreatedAt),
		UpdatedAt:      formatTime(q.UpdatedAt),
		IssuedAt:       formatTimePtr(q.IssuedAt),
		ValidUntil:     formatTimePtr(q.ValidUntil),
		AcceptedAt:     formatTimePtr(q.AcceptedAt),
		ExpiredAt:      formatTimePtr(q.ExpiredAt),
		CancelledAt:    formatTimePtr(q.CancelledAt),
	}

	if !q.ExchangeRate.IsZero() {
		it.ExchangeRate = q.ExchangeRate.String()
	}

	it.Containers = make([]containerItem, len(q.Shipment.Containers))
	for i, c := range q.Shipment.Containers {
		it.Containers[i] = containerItem{Type: string(c.Type), Count: c.Count}
	}

	it.LineItems = make([]lineItemItem, len(q.LineItems))
	for i, li := range q.LineItems {
		it.LineItems[i] = lineItemItem{
			Sequence:    li.Sequence,
			Type:        string(li.Type),
			Code:        li.Code,
			Description: li.Description,
			UnitPrice:   li.UnitPrice.String(),
			Quantity:    li.Quantity.String(),
			TotalPrice:  li.TotalPrice.String(),
			Currency:    li.Currency,
		}
	}

	return it
}

// itemDecoder collects the first parse failure so conversions read linearly.
type itemDecoder struct {
	id  string
	err error
}

func (d *itemDecoder) decimal(field, s string) decimal.Decimal {
	if s == "" || d.err != nil {
		return decimal.Zero
	}

	v, err := decimal.NewFromString(s)
	if err != nil {
		d.err = fmt.Errorf("quote %s: field %s: %w", d.id, field, err)
	}

	return v
}

func (d *itemDecoder) time(field, s string) time.Time {
	if s == "" || d.err != nil {
		return time.Time{}
	}

	v, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		d.err = fmt.Errorf("quote %s: field %s: %w", d.id, field, err)
	}

	return v.UTC()
}

func (d *itemDecoder) timePtr(field, s string) *time.Time {
	if s == "" {
		return nil
	}

	v := d.time(field, s)

	return &v
}

func (it quoteItem) toDomain() (*domain.Quote, error) {
	d := &itemDecoder{id: it.ID}

	q := &domain.Quote{
		ID:          it.ID,
		CustomerID:  it.CustomerID,
		Mode:        domain.Mode(it.Mode),
		Service:     domain.ServiceType(it.Service),
		Origin:      it.Origin,
		Destination: it.Destination,
		Shipment: domain.Shipment{
			WeightKg:     d.decimal("weight_kg", it.WeightKg),
			VolumeM3:     d.decimal("volume_m3", it.VolumeM3),
			Accessorials: it.Accessorials,
		},
		Currency:       it.Currency,
		BaseAmount:     d.decimal("base_amount", it.BaseAmount),
		TotalAmount:    d.decimal("total_amount", it.TotalAmount),
		SourceCurrency: it.SourceCurrency,
		ExchangeRate:   d.decimal("exchange_rate", it.ExchangeRate),
		Status:         domain.QuoteStatus(it.Status),
		Version:        it.Version,
		CreatedAt:      d.time("created_at", it.CreatedAt),
		UpdatedAt:      d.time("updated_at", it.UpdatedAt),
		IssuedAt:       d.timePtr("issued_at", it.IssuedAt),
		ValidUntil:     d.timePtr("valid_until", it.ValidUntil),
		AcceptedAt:     d.timePtr("accepted_at", it.AcceptedAt),
		ExpiredAt:      d.timePtr("expired_at", it.ExpiredAt),
		CancelledAt:    d.timePtr("cancelled_at", it.CancelledAt),
	}

	for _, c := range it.Containers {
		q.Shipment.Containers = append(q.Shipment.Containers, domain.ContainerSpec{Type: domain.ContainerType(c.Type), Count: c.Count})
	}

	for _, li := range it.LineItems {
		q.LineItems = append(q.LineItems, domain.LineItem{
			Sequence:    li.Sequence,
			Type:        domain.LineItemType(li.Type),
			Code:        li.Code,
			Description: li.Description,
			UnitPrice:   d.decimal("unit_price", li.UnitPrice),
			Quantity:    d.decimal("quantity", li.Quantity),
			TotalPrice:  d.decimal("total_price", li.TotalPrice),
			Currency:    li.Currency,
		})
	}

	if d.err != nil {
		return nil, d.err
	}

	return q, nil
}

type idempotencyItem struct {
	PK          string `dynamodbav:"pk"`
	CustomerID  string `dynamodbav:"customer_id"`
	Key         string `dynamodbav:"idem_key"`
	QuoteID     string `dynamodbav:"quote_id"`
	RequestHash string `dynamodbav:"request_hash"`
	CreatedAt   string `dynamodbav:"created_at"`
	ExpiresAt   int64  `dynamodbav:"expires_at"`
	TTL         int64  `dynamodbav:"ttl"`
}

func idempotencyPK(customerID, key string) string {
	return customerID + "#" + key
}

func toIdempotencyItem(rec domain.IdempotencyRecord) idempotencyItem {
	return idempotencyItem{
		PK:          idempotencyPK(rec.CustomerID, rec.Key),
		CustomerID:  rec.CustomerID,
		Key:         rec.Key,
		QuoteID:     rec.QuoteID,
		RequestHash: rec.RequestHash,
		CreatedAt:   formatTime(rec.CreatedAt),
		ExpiresAt:   rec.ExpiresAt.UnixMilli(),
		TTL:         rec.ExpiresAt.Unix(),
	}
}

func (it idempotencyItem) toDomain() domain.IdempotencyRecord {
	created, _ := time.Parse(time.RFC3339Nano, it.CreatedAt)

	return domain.IdempotencyRecord{
		CustomerID:  it.CustomerID,
		Key:         it.Key,
		QuoteID:     it.QuoteID,
		RequestHash: it.RequestHash,
		CreatedAt:   created.UTC(),
		ExpiresAt:   time.UnixMilli(it.ExpiresAt).UTC(),
	}
}
