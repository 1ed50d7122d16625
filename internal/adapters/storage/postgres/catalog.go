package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jsamuelsen/freight-quote-service/internal/domain"
	"github.com/jsamuelsen/freight-quote-service/internal/ports"
)

const rateColumns = `id, mode, service, origin, destination, container_type, basis,
	price::text, minimum_charge::text, currency, effective_from, effective_to, version`

const findRate = `SELECT ` + rateColumns + ` FROM rates
WHERE mode = $1 AND service = $2 AND origin = $3 AND destination = $4 AND container_type = $5
	AND (effective_from IS NULL OR effective_from <= $6)
	AND (effective_to IS NULL OR effective_to > $6)
ORDER BY version DESC
LIMIT 1`

const upsertRate = `INSERT INTO rates (id, mode, service, origin, destination, container_type, basis,
	price, minimum_charge, currency, effective_from, effective_to, version)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9::numeric, $10, $11, $12, $13)
ON CONFLICT (id) DO UPDATE SET
	basis = EXCLUDED.basis, price = EXCLUDED.price, minimum_charge = EXCLUDED.minimum_charge,
	currency = EXCLUDED.currency, effective_from = EXCLUDED.effective_from,
	effective_to = EXCLUDED.effective_to, version = EXCLUDED.version`

const upsertAccessorial = `INSERT INTO accessorial_rules (code, description, method, value)
VALUES ($1, $2, $3, $4::numeric)
ON CONFLICT (code) DO UPDATE SET
	description = EXCLUDED.description, method = EXCLUDED.method, value = EXCLUDED.value`

// CatalogRepository serves rates and accessorial rules.
type CatalogRepository struct {
	db *DB
}

var (
	_ ports.RateRepository        = (*CatalogRepository)(nil)
	_ ports.AccessorialRepository = (*CatalogRepository)(nil)
)

// NewCatalogRepository creates a repository on db.
func NewCatalogRepository(db *DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// FindRate returns the highest version of the lane rate effective at at.
func (r *CatalogRepository) FindRate(ctx context.Context, key domain.RateKey, at time.Time) (*domain.RateEntry, error) {
	row := r.db.Pool.QueryRow(ctx, findRate,
		string(key.Mode), string(key.Service), key.Origin, key.Destination, string(key.ContainerType), at)

	rate, err := scanRate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &domain.RateNotFoundError{Key: key}
		}

		return nil, mapError(err, "rate", key.String())
	}

	return rate, nil
}

// ListRates returns every rate version matching filter.
func (r *CatalogRepository) ListRates(ctx context.Context, filter ports.RateFilter) ([]domain.RateEntry, error) {
	var (
		conds []string
		args  []any
	)

	for _, c := range []struct {
		column, value string
	}{
		{"mode", string(filter.Mode)},
		{"service", string(filter.Service)},
		{"origin", filter.Origin},
		{"destination", filter.Destination},
	} {
		if c.value == "" {
			continue
		}

		args = append(args, c.value)
		conds = append(conds, fmt.Sprintf("%s = $%d", c.column, len(args)))
	}

	query := "SELECT " + rateColumns + " FROM rates"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	query += " ORDER BY mode, service, origin, destination, container_type, version"

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "rate", "")
	}

	rates, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.RateEntry, error) {
		rate, err := scanRate(row)
		if err != nil {
			return domain.RateEntry{}, err
		}

		return *rate, nil
	})
	if err != nil {
		return nil, mapError(err, "rate", "")
	}

	return rates, nil
}

// FindAccessorial returns the rule for code.
func (r *CatalogRepository) FindAccessorial(ctx context.Context, code string) (*domain.AccessorialRule, error) {
	row := r.db.Pool.QueryRow(ctx,
		"SELECT code, description, method, value::text FROM accessorial_rules WHERE code = $1", code)

	rule, err := scanAccessorial(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &domain.AccessorialNotFoundError{AccessorialCode: code}
		}

		return nil, mapError(err, "accessorial", code)
	}

	return &rule, nil
}

// ListAccessorials returns every rule ordered by code.
func (r *CatalogRepository) ListAccessorials(ctx context.Context) ([]domain.AccessorialRule, error) {
	rows, err := r.db.Pool.Query(ctx,
		"SELECT code, description, method, value::text FROM accessorial_rules ORDER BY code")
	if err != nil {
		return nil, mapError(err, "accessorial", "")
	}

	rules, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.AccessorialRule, error) {
		return scanAccessorial(row)
	})
	if err != nil {
		return nil, mapError(err, "accessorial", "")
	}

	return rules, nil
}

// Seed upserts reference data, typically loaded from the catalog file.
func (r *CatalogRepository) Seed(ctx context.Context, rates []domain.RateEntry, rules []domain.AccessorialRule) error {
	batch := &pgx.Batch{}

	for _, rate := range rates {
		batch.Queue(upsertRate,
			rate.ID, string(rate.Mode), string(rate.Service), rate.Origin, rate.Destination,
			string(rate.ContainerType), string(rate.Basis), rate.Price.String(), rate.MinimumCharge.String(),
			rate.Currency, nullableTime(rate.EffectiveFrom), nullableTime(rate.EffectiveTo), rate.Version,
		)
	}

	for _, rule := range rules {
		batch.Queue(upsertAccessorial, rule.Code, rule.Description, string(rule.Method), rule.Value.String())
	}

	if err := r.db.Pool.SendBatch(ctx, batch).Close(); err != nil {
		return mapError(err, "reference data", "")
	}

	return nil
}

func scanRate(row pgx.Row) (*domain.RateEntry, error) {
	var (
		rate                            domain.RateEntry
		mode, service, container, basis string
		price, minimum                  string
		effectiveFrom, effectiveTo      *time.Time
	)

	err := row.Scan(&rate.ID, &mode, &service, &rate.Origin, &rate.Destination, &container, &basis,
		&price, &minimum, &rate.Currency, &effectiveFrom, &effectiveTo, &rate.Version)
	if err != nil {
		return nil, err
	}

	rate.Mode = domain.Mode(mode)
	rate.Service = domain.ServiceType(service)
	rate.ContainerType = domain.ContainerType(container)
	rate.Basis = domain.RateBasis(basis)
	rate.Price = decimal.RequireFromString(price)
	rate.MinimumCharge = decimal.RequireFromString(minimum)

	if effectiveFrom != nil {
		rate.EffectiveFrom = effectiveFrom.UTC()
	}

	if effectiveTo != nil {
		rate.EffectiveTo = effectiveTo.UTC()
	}

	return &rate, nil
}

func scanAccessorial(row pgx.Row) (domain.AccessorialRule, error) {
	var (
		rule          domain.AccessorialRule
		method, value string
	)

	if err := row.Scan(&rule.Code, &rule.Description, &method, &value); err != nil {
		return domain.AccessorialRule{}, err
	}

	rule.Method = domain.AccessorialMethod(method)
	rule.Value = decimal.RequireFromString(value)

	return rule, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}

	return &t
}
