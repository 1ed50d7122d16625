package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jsamuelsen/freight-quote-service/internal/app/requestctx"
	"github.com/jsamuelsen/freight-quote-service/internal/domain"
	"github.com/jsamuelsen/freight-quote-service/internal/platform/logging"
	"github.com/jsamuelsen/freight-quote-service/internal/ports"
)

const defaultLookupConcurrency = 4

// Pricer prices a validated quote request.
type Pricer interface {
	Price(ctx context.Context, req domain.QuoteRequest) (*domain.Pricing, error)
}

// PricingCalculatorConfig wires the calculator. Rates and Accessorials are
// required; ExchangeRates may be nil, in which case every conversion fails
// with *domain.MissingExchangeRateError.
type PricingCalculatorConfig struct {
	Rates         ports.RateRepository
	Accessorials  ports.AccessorialRepository
	ExchangeRates ports.ExchangeRateProvider
	Clock         ports.Clock
	Metrics       ports.QuoteMetrics
	Logger        *slog.Logger

	// LookupConcurrency bounds parallel reference data reads per request.
	LookupConcurrency int
}

// PricingCalculator turns a QuoteRequest into ordered line items and totals.
// It is a pure function of the request and the repository snapshot: the
// same inputs always produce the same lines in the same order.
type PricingCalculator struct {
	rates        ports.RateRepository
	accessorials ports.AccessorialRepository
	fx           ports.ExchangeRateProvider
	clock        ports.Clock
	metrics      ports.QuoteMetrics
	logger       *slog.Logger
	concurrency  int
}

// NewPricingCalculator creates a calculator. It panics if a required
// repository is missing.
func NewPricingCalculator(cfg PricingCalculatorConfig) *PricingCalculator {
	if cfg.Rates == nil {
		panic("app: PricingCalculatorConfig.Rates is required")
	}

	if cfg.Accessorials == nil {
		panic("app: PricingCalculatorConfig.Accessorials is required")
	}

	p := &PricingCalculator{
		rates:        cfg.Rates,
		accessorials: cfg.Accessorials,
		fx:           cfg.ExchangeRates,
		clock:        cfg.Clock,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
		concurrency:  cfg.LookupConcurrency,
	}

	if p.clock == nil {
		p.clock = ports.SystemClock{}
	}

	if p.metrics == nil {
		p.metrics = ports.NopQuoteMetrics{}
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	if p.concurrency < 1 {
		p.concurrency = defaultLookupConcurrency
	}

	p.logger = p.logger.With(slog.String("component", "app.PricingCalculator"))

	return p
}

// basePart is the rate behind one BASE line.
type basePart struct {
	containerType domain.ContainerType
	count         int
	rate          *domain.RateEntry
}

// Price computes line items and totals for req. The request must already
// be normalized and validated. Any missing rate or surcharge rule fails the
// whole calculation.
func (p *PricingCalculator) Price(ctx context.Context, req domain.QuoteRequest) (*domain.Pricing, error) {
	start := time.Now()

	pricing, err := p.price(ctx, req)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		if domain.IsNotQuotable(err) {
			outcome = "not_quotable"
		}
	}

	p.metrics.PricingObserved(time.Since(start), outcome)

	return pricing, err
}

func (p *PricingCalculator) price(ctx context.Context, req domain.QuoteRequest) (*domain.Pricing, error) {
	ctx, _ = requestctx.Ensure(ctx)
	now := p.clock.Now()
	shipment := req.Shipment()

	logger := p.logger
	if logging.HasLogger(ctx) {
		logger = logging.FromContext(ctx)
	}

	parts, rules, err := Parallel2(ctx,
		func(ctx context.Context) ([]basePart, error) { return p.lookupBase(ctx, req, now) },
		func(ctx context.Context) ([]*domain.AccessorialRule, error) {
			return ParallelLimit(ctx, p.concurrency, req.Accessorials, p.lookupAccessorial)
		},
	)
	if err != nil {
		return nil, err
	}

	currency := parts[0].rate.Currency
	for _, part := range parts[1:] {
		if part.rate.Currency != currency {
			return nil, &domain.NotQuotableError{
				Reason: fmt.Sprintf("lane rates are published in both %s and %s", currency, part.rate.Currency),
			}
		}
	}

	items := make([]domain.LineItem, 0, len(parts)+len(rules))

	for _, part := range parts {
		item, err := baseLine(req, shipment, part, currency)
		if err != nil {
			return nil, err
		}

		item.Sequence = len(items) + 1
		items = append(items, item)
	}

	base := domain.SumLines(items, domain.LineBase)

	for _, rule := range rules {
		if !rule.Method.Valid() {
			return nil, fmt.Errorf("accessorial %s has unsupported method %q", rule.Code, rule.Method)
		}

		unit, qty := rule.Charge(base, shipment)
		qty = domain.RoundQuantity(qty)

		items = append(items, domain.LineItem{
			Sequence:    len(items) + 1,
			Type:        domain.LineSurcharge,
			Code:        rule.Code,
			Description: rule.Description,
			UnitPrice:   unit,
			Quantity:    qty,
			TotalPrice:  domain.RoundMoney(unit.Mul(qty)),
			Currency:    currency,
		})
	}

	pricing := &domain.Pricing{
		Currency:    currency,
		LineItems:   items,
		BaseAmount:  base,
		TotalAmount: domain.SumLines(items, ""),
	}

	if req.SettlementCurrency != "" && req.SettlementCurrency != currency {
		if err := p.convert(ctx, pricing, req.SettlementCurrency); err != nil {
			return nil, err
		}
	}

	logger.DebugContext(ctx, "quote priced",
		slog.String("lane", req.Origin+"-"+req.Destination),
		slog.String("service", string(req.Service)),
		slog.Int("line_items", len(pricing.LineItems)),
		slog.String("total", pricing.TotalAmount.StringFixed(domain.MoneyPlaces)),
		slog.String("currency", pricing.Currency),
	)

	return pricing, nil
}

// lookupBase resolves the rates behind the BASE lines. FCL containers of the
// same type are aggregated in order of first appearance.
func (p *PricingCalculator) lookupBase(ctx context.Context, req domain.QuoteRequest, now time.Time) ([]basePart, error) {
	key := domain.RateKey{Mode: req.Mode, Service: req.Service, Origin: req.Origin, Destination: req.Destination}

	if req.Service != domain.ServiceFCL {
		rate, err := p.lookupRate(ctx, key, now)
		if err != nil {
			return nil, err
		}

		return []basePart{{rate: rate}}, nil
	}

	var parts []basePart

	index := make(map[domain.ContainerType]int)

	for _, c := range req.Containers {
		if i, ok := index[c.Type]; ok {
			parts[i].count += c.Count
			continue
		}

		index[c.Type] = len(parts)
		parts = append(parts, basePart{containerType: c.Type, count: c.Count})
	}

	rates, err := ParallelLimit(ctx, p.concurrency, parts, func(ctx context.Context, part basePart) (*domain.RateEntry, error) {
		k := key
		k.ContainerType = part.containerType

		return p.lookupRate(ctx, k, now)
	})
	if err != nil {
		return nil, err
	}

	for i := range parts {
		parts[i].rate = rates[i]
	}

	return parts, nil
}

func (p *PricingCalculator) lookupRate(ctx context.Context, key domain.RateKey, now time.Time) (*domain.RateEntry, error) {
	return requestctx.Fetch(ctx, "rate:"+key.String(), func(ctx context.Context) (*domain.RateEntry, error) {
		logging.FromContext(ctx).Log(ctx, logging.LevelTrace, "rate lookup", slog.String("key", key.String()))

		rate, err := p.rates.FindRate(ctx, key, now)
		if err != nil {
			return nil, fmt.Errorf("looking up rate %s: %w", key, err)
		}

		return rate, nil
	})
}

func (p *PricingCalculator) lookupAccessorial(ctx context.Context, code string) (*domain.AccessorialRule, error) {
	return requestctx.Fetch(ctx, "accessorial:"+code, func(ctx context.Context) (*domain.AccessorialRule, error) {
		rule, err := p.accessorials.FindAccessorial(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("looking up accessorial %s: %w", code, err)
		}

		return rule, nil
	})
}

func baseLine(req domain.QuoteRequest, shipment domain.Shipment, part basePart, currency string) (domain.LineItem, error) {
	rate := part.rate
	if !rate.Basis.Valid() {
		return domain.LineItem{}, fmt.Errorf("rate %s has unsupported basis %q", rate.ID, rate.Basis)
	}

	qty := domain.RoundQuantity(rate.Quantity(shipment, part.count))

	if !qty.IsPositive() && !rate.MinimumCharge.IsPositive() {
		return domain.LineItem{}, domain.NewValidationError(basisField(rate.Basis),
			fmt.Sprintf("must be positive for a %s rate", rate.Basis))
	}

	item := domain.LineItem{
		Type:        domain.LineBase,
		Code:        baseCode(req.Service, part.containerType),
		Description: baseDescription(req, part.containerType),
		UnitPrice:   rate.Price,
		Quantity:    qty,
		TotalPrice:  domain.RoundMoney(rate.Price.Mul(qty)),
		Currency:    currency,
	}

	if rate.MinimumCharge.GreaterThan(item.TotalPrice) {
		item.UnitPrice = rate.MinimumCharge
		item.Quantity = decimal.NewFromInt(1)
		item.TotalPrice = domain.RoundMoney(rate.MinimumCharge)
		item.Description += " (minimum charge)"
	}

	return item, nil
}

func basisField(basis domain.RateBasis) string {
	switch basis {
	case domain.BasisPerCBM:
		return "volume_m3"
	case domain.BasisPerContainer:
		return "containers"
	default:
		return "weight_kg"
	}
}

func baseCode(service domain.ServiceType, container domain.ContainerType) string {
	if container != "" {
		return "FREIGHT_" + string(container)
	}

	return "FREIGHT_" + string(service)
}

func baseDescription(req domain.QuoteRequest, container domain.ContainerType) string {
	lane := req.Origin + " to " + req.Destination

	switch req.Service {
	case domain.ServiceFCL:
		return fmt.Sprintf("Ocean freight %s, %s", container, lane)
	case domain.ServiceLCL:
		return "Ocean freight LCL, " + lane
	default:
		return "Air freight, " + lane
	}
}

// convert applies the exchange rate as the final step: every line is
// converted and rounded, then both totals are re-summed from the lines.
func (p *PricingCalculator) convert(ctx context.Context, pricing *domain.Pricing, to string) error {
	from := pricing.Currency
	if p.fx == nil {
		return &domain.MissingExchangeRateError{From: from, To: to}
	}

	rate, err := p.fx.ExchangeRate(ctx, from, to)
	if err != nil {
		return fmt.Errorf("converting %s to %s: %w", from, to, err)
	}

	for i := range pricing.LineItems {
		item := &pricing.LineItems[i]
		item.UnitPrice = domain.RoundMoney(item.UnitPrice.Mul(rate))
		item.TotalPrice = domain.RoundMoney(item.TotalPrice.Mul(rate))
		item.Currency = to
	}

	pricing.Currency = to
	pricing.SourceCurrency = from
	pricing.ExchangeRate = rate
	pricing.BaseAmount = domain.SumLines(pricing.LineItems, domain.LineBase)
	pricing.TotalAmount = domain.SumLines(pricing.LineItems, "")

	return nil
}
