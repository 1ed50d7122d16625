package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jsamuelsen/freight-quote-service/internal/domain"
	"github.com/jsamuelsen/freight-quote-service/internal/ports"
)

// Amounts travel as text so NUMERIC precision is never routed through float64.
const quoteColumns = `id, customer_id, mode, service, origin, destination,
	containers::text, weight_kg::text, volume_m3::text, accessorials,
	currency, base_amount::text, total_amount::text, source_currency, exchange_rate::text,
	status, version, created_at, updated_at,
	issued_at, valid_until, accepted_at, expired_at, cancelled_at`

const insertQuote = `INSERT INTO quotes (
	id, customer_id, mode, service, origin, destination,
	containers, weight_kg, volume_m3, accessorials,
	currency, base_amount, total_amount, source_currency, exchange_rate,
	status, version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8::numeric, $9::numeric, $10,
	$11, $12::numeric, $13::numeric, $14, $15::numeric, $16, $17, $18, $19)`

const insertLineItem = `INSERT INTO quote_line_items (
	quote_id, seq, item_type, code, description, unit_price, quantity, total_price, currency)
VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8::numeric, $9)`

const selectLineItems = `SELECT quote_id, seq, item_type, code, description,
	unit_price::text, quantity::text, total_price::text, currency
FROM quote_line_items WHERE quote_id = ANY($1) ORDER BY quote_id, seq`

// updateStatus is the compare-and-set at the heart of the lifecycle: it
// only matches while the stored status is still the expected one.
const updateStatus = `UPDATE quotes SET
	status = $3::text,
	version = version + 1,
	updated_at = $4,
	issued_at = CASE WHEN $3::text = 'ISSUED' THEN $4 ELSE issued_at END,
	valid_until = CASE WHEN $3::text = 'ISSUED' THEN $5 ELSE valid_until END,
	accepted_at = CASE WHEN $3::text = 'ACCEPTED' THEN $4 ELSE accepted_at END,
	expired_at = CASE WHEN $3::text = 'EXPIRED' THEN $4 ELSE expired_at END,
	cancelled_at = CASE WHEN $3::text = 'CANCELLED' THEN $4 ELSE cancelled_at END
WHERE id = $1 AND status = $2::text
RETURNING ` + quoteColumns

// QuoteRepository stores quotes in the quotes and quote_line_items tables.
type QuoteRepository struct {
	db *DB
}

var _ ports.QuoteRepository = (*QuoteRepository)(nil)

// NewQuoteRepository creates a repository on db.
func NewQuoteRepository(db *DB) *QuoteRepository {
	return &QuoteRepository{db: db}
}

type containerJSON struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// Create inserts the quote and its line items in one transaction.
func (r *QuoteRepository) Create(ctx context.Context, q *domain.Quote) error {
	containers := make([]containerJSON, len(q.Shipment.Containers))
	for i, c := range q.Shipment.Containers {
		containers[i] = containerJSON{Type: string(c.Type), Count: c.Count}
	}

	containersDoc, err := json.Marshal(containers)
	if err != nil {
		return fmt.Errorf("encoding containers: %w", err)
	}

	accessorials := q.Shipment.Accessorials
	if accessorials == nil {
		accessorials = []string{}
	}

	err = pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, insertQuote,
			q.ID, q.CustomerID, string(q.Mode), string(q.Service), q.Origin, q.Destination,
			string(containersDoc), q.Shipment.WeightKg.String(), q.Shipment.VolumeM3.String(), accessorials,
			q.Currency, q.BaseAmount.String(), q.TotalAmount.String(), q.SourceCurrency, nullableDecimal(q.ExchangeRate),
			string(q.Status), q.Version, q.CreatedAt, q.UpdatedAt,
		)
		if err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, item := range q.LineItems {
			batch.Queue(insertLineItem,
				q.ID, item.Sequence, string(item.Type), item.Code, item.Description,
				item.UnitPrice.String(), item.Quantity.String(), item.TotalPrice.String(), item.Currency,
			)
		}

		return tx.SendBatch(ctx, batch).Close()
	})

	return mapError(err, "quote", q.ID)
}

// Get loads a quote with its line items.
func (r *QuoteRepository) Get(ctx context.Context, id string) (*domain.Quote, error) {
	row := r.db.Pool.QueryRow(ctx, "SELECT "+quoteColumns+" FROM quotes WHERE id = $1", id)

	q, err := scanQuote(row)
	if err != nil {
		return nil, mapError(err, "quote", id)
	}

	if err := r.attachLineItems(ctx, []*domain.Quote{q}); err != nil {
		return nil, err
	}

	return q, nil
}

// List returns one page of quotes ordered by created_at desc, id desc.
func (r *QuoteRepository) List(ctx context.Context, filter ports.QuoteFilter) (*ports.QuotePage, error) {
	query, args := buildListQuery(filter)

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "quote", "")
	}

	quotes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Quote, error) {
		return scanQuote(row)
	})
	if err != nil {
		return nil, mapError(err, "quote", "")
	}

	page := &ports.QuotePage{Quotes: quotes}

	if filter.Limit > 0 && len(quotes) > filter.Limit {
		page.Quotes = quotes[:filter.Limit]
		last := page.Quotes[filter.Limit-1]
		page.Next = &ports.QuoteCursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}

	if err := r.attachLineItems(ctx, page.Quotes); err != nil {
		return nil, err
	}

	return page, nil
}

// buildListQuery renders filter as SQL. One extra row is fetched to detect
// whether another page exists.
func buildListQuery(f ports.QuoteFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.CustomerID != "" {
		add("customer_id = $%d", f.CustomerID)
	}

	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}

	if f.ValidUntilBefore != nil {
		add("valid_until < $%d", *f.ValidUntilBefore)
	}

	if f.After != nil {
		args = append(args, f.After.CreatedAt, f.After.ID)
		conds = append(conds, fmt.Sprintf("(created_at, id) < ($%d, $%d)", len(args)-1, len(args)))
	}

	var b strings.Builder

	b.WriteString("SELECT " + quoteColumns + " FROM quotes")

	if len(conds) > 0 {
		b.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}

	b.WriteString(" ORDER BY created_at DESC, id DESC")

	if f.Limit > 0 {
		args = append(args, f.Limit+1)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}

	return b.String(), args
}

// UpdateStatus applies change if the stored status still equals change.From.
func (r *QuoteRepository) UpdateStatus(ctx context.Context, change domain.StatusChange) (*domain.Quote, error) {
	row := r.db.Pool.QueryRow(ctx, updateStatus,
		change.QuoteID, string(change.From), string(change.To), change.At, change.ValidUntil)

	q, err := scanQuote(row)
	if err == nil {
		if err := r.attachLineItems(ctx, []*domain.Quote{q}); err != nil {
			return nil, err
		}

		return q, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, mapError(err, "quote", change.QuoteID)
	}

	var actual string

	err = r.db.Pool.QueryRow(ctx, "SELECT status FROM quotes WHERE id = $1", change.QuoteID).Scan(&actual)
	if err != nil {
		return nil, mapError(err, "quote", change.QuoteID)
	}

	return nil, &domain.ConcurrentModificationError{
		QuoteID:  change.QuoteID,
		Expected: change.From,
		Actual:   domain.QuoteStatus(actual),
	}
}

func (r *QuoteRepository) attachLineItems(ctx context.Context, quotes []*domain.Quote) error {
	if len(quotes) == 0 {
		return nil
	}

	byID := make(map[string]*domain.Quote, len(quotes))
	ids := make([]string, len(quotes))

	for i, q := range quotes {
		byID[q.ID] = q
		ids[i] = q.ID
	}

	rows, err := r.db.Pool.Query(ctx, selectLineItems, ids)
	if err != nil {
		return mapError(err, "quote line items", "")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			quoteID, typ, unit, qty, total string
			item                           domain.LineItem
		)

		if err := rows.Scan(&quoteID, &item.Sequence, &typ, &item.Code, &item.Description,
			&unit, &qty, &total, &item.Currency); err != nil {
			return fmt.Errorf("scanning line item: %w", err)
		}

		item.Type = domain.LineItemType(typ)
		item.UnitPrice = decimal.RequireFromString(unit)
		item.Quantity = decimal.RequireFromString(qty)
		item.TotalPrice = decimal.RequireFromString(total)

		if q, ok := byID[quoteID]; ok {
			q.LineItems = append(q.LineItems, item)
		}
	}

	return mapError(rows.Err(), "quote line items", "")
}

func scanQuote(row pgx.Row) (*domain.Quote, error) {
	var (
		q                             domain.Quote
		mode, service, status         string
		containersDoc, weight, volume string
		base, total                   string
		exchangeRate                  *string
		issued, validUntil, accepted  *time.Time
		expired, cancelled            *time.Time
	)

	err := row.Scan(
		&q.ID, &q.CustomerID, &mode, &service, &q.Origin, &q.Destination,
		&containersDoc, &weight, &volume, &q.Shipment.Accessorials,
		&q.Currency, &base, &total, &q.SourceCurrency, &exchangeRate,
		&status, &q.Version, &q.CreatedAt, &q.UpdatedAt,
		&issued, &validUntil, &accepted, &expired, &cancelled,
	)
	if err != nil {
		return nil, err
	}

	var containers []containerJSON
	if err := json.Unmarshal([]byte(containersDoc), &containers); err != nil {
		return nil, fmt.Errorf("decoding containers of %s: %w", q.ID, err)
	}

	for _, c := range containers {
		q.Shipment.Containers = append(q.Shipment.Containers, domain.ContainerSpec{Type: domain.ContainerType(c.Type), Count: c.Count})
	}

	q.Mode = domain.Mode(mode)
	q.Service = domain.ServiceType(service)
	q.Status = domain.QuoteStatus(status)
	q.Shipment.WeightKg = decimal.RequireFromString(weight)
	q.Shipment.VolumeM3 = decimal.RequireFromString(volume)
	q.BaseAmount = decimal.RequireFromString(base)
	q.TotalAmount = decimal.RequireFromString(total)

	if exchangeRate != nil {
		q.ExchangeRate = decimal.RequireFromString(*exchangeRate)
	}

	q.CreatedAt = q.CreatedAt.UTC()
	q.UpdatedAt = q.UpdatedAt.UTC()
	q.IssuedAt = utc(issued)
	q.ValidUntil = utc(validUntil)
	q.AcceptedAt = utc(accepted)
	q.ExpiredAt = utc(expired)
	q.CancelledAt = utc(cancelled)

	return &q, nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	v := t.UTC()

	return &v
}

func nullableDecimal(d decimal.Decimal) *string {
	if d.IsZero() {
		return nil
	}

	s := d.String()

	return &s
}
