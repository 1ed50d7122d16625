// Package refdata loads the rate and surcharge catalog from a YAML file.
//
//	rates:
//	  - id: SEA-FCL-SGSIN-EGALY-40HC
//	    mode: SEA
//	    service: FCL
//	    origin: SGSIN
//	    destination: EGALY
//	    container_type: 40HC
//	    basis: PER_CONTAINER
//	    price: "2000.00"
//	    currency: USD
//	    effective_from: "2026-01-01T00:00:00Z"
//	    version: 1
//	accessorials:
//	  - code: FUEL
//	    description: Bunker adjustment factor
//	    method: PERCENT_OF_BASE
//	    value: "10"
package refdata

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"

	"github.com/jsamuelsen/freight-quote-service/internal/domain"
)

// Catalog is the parsed reference data.
type Catalog struct {
	Rates        []domain.RateEntry
	Accessorials []domain.AccessorialRule
}

type rateDoc struct {
	ID            string `koanf:"id"`
	Mode          string `koanf:"mode"`
	Service       string `koanf:"service"`
	Origin        string `koanf:"origin"`
	Destination   string `koanf:"destination"`
	ContainerType string `koanf:"container_type"`
	Basis         string `koanf:"basis"`
	Price         string `koanf:"price"`
	MinimumCharge string `koanf:"minimum_charge"`
	Currency      string `koanf:"currency"`
	EffectiveFrom string `koanf:"effective_from"`
	EffectiveTo   string `koanf:"effective_to"`
	Version       int    `koanf:"version"`
}

type accessorialDoc struct {
	Code        string `koanf:"code"`
	Description string `koanf:"description"`
	Method      string `koanf:"method"`
	Value       string `koanf:"value"`
}

type catalogDoc struct {
	Rates        []rateDoc        `koanf:"rates"`
	Accessorials []accessorialDoc `koanf:"accessorials"`
}

// Load reads the catalog at path.
func Load(path string) (*Catalog, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("reading reference data %s: %w", path, err)
	}

	return decode(k)
}

func decode(k *koanf.Koanf) (*Catalog, error) {
	var doc catalogDoc
	if err := k.Unmarshal("", &doc); err != nil {
		return nil, fmt.Errorf("decoding reference data: %w", err)
	}

	catalog := &Catalog{
		Rates:        make([]domain.RateEntry, 0, len(doc.Rates)),
		Accessorials: make([]domain.AccessorialRule, 0, len(doc.Accessorials)),
	}

	for i, r := range doc.Rates {
		rate, err := r.toDomain()
		if err != nil {
			return nil, fmt.Errorf("rates[%d]: %w", i, err)
		}

		catalog.Rates = append(catalog.Rates, rate)
	}

	for i, a := range doc.Accessorials {
		rule, err := a.toDomain()
		if err != nil {
			return nil, fmt.Errorf("accessorials[%d]: %w", i, err)
		}

		catalog.Accessorials = append(catalog.Accessorials, rule)
	}

	return catalog, nil
}

func (r rateDoc) toDomain() (domain.RateEntry, error) {
	rate := domain.RateEntry{
		ID: r.ID,
		RateKey: domain.RateKey{
			Mode:          domain.Mode(r.Mode),
			Service:       domain.ServiceType(r.Service),
			Origin:        r.Origin,
			Destination:   r.Destination,
			ContainerType: domain.ContainerType(r.ContainerType),
		},
		Basis:    domain.RateBasis(r.Basis),
		Currency: r.Currency,
		Version:  r.Version,
	}

	if rate.Version == 0 {
		rate.Version = 1
	}

	if err := rate.Validate(); err != nil {
		return rate, err
	}

	if !domain.IsCurrencyCode(rate.Currency) {
		return rate, domain.NewValidationErrorWithValue("currency", "must be an ISO 4217 code", r.Currency)
	}

	var err error

	if rate.Price, err = parseAmount("price", r.Price); err != nil {
		return rate, err
	}

	if rate.MinimumCharge, err = parseAmount("minimum_charge", r.MinimumCharge); err != nil {
		return rate, err
	}

	if rate.EffectiveFrom, err = parseTime("effective_from", r.EffectiveFrom); err != nil {
		return rate, err
	}

	if rate.EffectiveTo, err = parseTime("effective_to", r.EffectiveTo); err != nil {
		return rate, err
	}

	return rate, nil
}

func (a accessorialDoc) toDomain() (domain.AccessorialRule, error) {
	value, err := parseAmount("value", a.Value)
	if err != nil {
		return domain.AccessorialRule{}, err
	}

	rule := domain.AccessorialRule{
		Code:        a.Code,
		Description: a.Description,
		Method:      domain.AccessorialMethod(a.Method),
		Value:       value,
	}

	if err := rule.Validate(); err != nil {
		return domain.AccessorialRule{}, err
	}

	return rule, nil
}

func parseAmount(field, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, domain.NewValidationErrorWithValue(field, "must be a decimal number", s)
	}

	if d.IsNegative() {
		return decimal.Zero, domain.NewValidationErrorWithValue(field, "must not be negative", s)
	}

	return d, nil
}

func parseTime(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, domain.NewValidationErrorWithValue(field, "must be an RFC 3339 timestamp", s)
	}

	return t.UTC(), nil
}
