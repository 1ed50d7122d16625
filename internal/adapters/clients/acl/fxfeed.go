package acl

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jsamuelsen/freight-quote-service/internal/adapters/clients"
	"github.com/jsamuelsen/freight-quote-service/internal/domain"
	"github.com/jsamuelsen/freight-quote-service/internal/platform/logging"
	"github.com/jsamuelsen/freight-quote-service/internal/ports"
)

// DefaultFXFeedName is the downstream name used in logs, errors and health.
const DefaultFXFeedName = "fx-feed"

// FXFeedConfig configures an FXFeed.
type FXFeedConfig struct {
	Client *clients.Client
	Logger *slog.Logger
}

// FXFeed reads exchange rates from an HTTP rate feed:
//
//	GET /rates/{FROM}/{TO} -> {"base":"USD","quote":"EUR","rate":"0.85","as_of":"..."}
//	GET /health            -> 2xx when the feed is serving
type FXFeed struct {
	BaseAdapter

	logger *slog.Logger
}

var (
	_ ports.ExchangeRateProvider = (*FXFeed)(nil)
	_ ports.HealthChecker        = (*FXFeed)(nil)
)

// NewFXFeed creates the adapter. It panics without a client.
func NewFXFeed(cfg FXFeedConfig) *FXFeed {
	if cfg.Client == nil {
		panic("acl.NewFXFeed: Client is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &FXFeed{
		BaseAdapter: NewBaseAdapter(cfg.Client, cfg.Client.ServiceName()),
		logger:      logger.With(slog.String("component", "acl.FXFeed")),
	}
}

// feedRate is the feed's wire format.
type feedRate struct {
	Base  string          `json:"base"`
	Quote string          `json:"quote"`
	Rate  decimal.Decimal `json:"rate"`
	AsOf  string          `json:"as_of"`
}

// ExchangeRate implements ports.ExchangeRateProvider. An unknown pair maps
// to *domain.MissingExchangeRateError; a malformed payload or a feed
// failure is reported as unavailability.
func (f *FXFeed) ExchangeRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	pair := from + "/" + to
	path := "/rates/" + url.PathEscape(from) + "/" + url.PathEscape(to)

	f.logger.Log(ctx, logging.LevelTrace, "fetching exchange rate", slog.String("pair", pair))

	body, err := f.Get(ctx, path, "get exchange rate", pair)
	if err != nil {
		if domain.IsNotFound(err) {
			return decimal.Zero, &domain.MissingExchangeRateError{From: from, To: to}
		}

		return decimal.Zero, err
	}

	ext, err := DecodeResponse[feedRate](body)
	if err != nil {
		return decimal.Zero, domain.NewUnavailableError(f.ServiceName(), err.Error())
	}

	rate, err := f.translate(ext, from, to)
	if err != nil {
		f.logger.WarnContext(ctx, "rejected feed payload", slog.String("pair", pair), slog.Any("error", err))

		return decimal.Zero, domain.NewUnavailableError(f.ServiceName(), err.Error())
	}

	f.logger.DebugContext(ctx, "exchange rate fetched",
		slog.String("pair", pair),
		slog.String("rate", rate.String()),
		slog.String("as_of", ext.AsOf))

	return rate, nil
}

func (f *FXFeed) translate(ext *feedRate, from, to string) (decimal.Decimal, error) {
	if err := ValidateRequired(ext.Base, "base"); err != nil {
		return decimal.Zero, err
	}

	if err := ValidateRequired(ext.Quote, "quote"); err != nil {
		return decimal.Zero, err
	}

	if !strings.EqualFold(ext.Base, from) || !strings.EqualFold(ext.Quote, to) {
		return decimal.Zero, fmt.Errorf("feed answered %s/%s for %s/%s", ext.Base, ext.Quote, from, to)
	}

	if !ext.Rate.IsPositive() {
		return decimal.Zero, domain.NewValidationError("rate", "must be positive")
	}

	if ext.AsOf != "" {
		if _, err := time.Parse(time.RFC3339, ext.AsOf); err != nil {
			return decimal.Zero, domain.NewValidationError("as_of", "must be RFC 3339")
		}
	}

	return ext.Rate, nil
}

// Name implements ports.HealthChecker.
func (f *FXFeed) Name() string { return f.ServiceName() }

// Check implements ports.HealthChecker.
func (f *FXFeed) Check(ctx context.Context) error {
	body, err := f.Get(ctx, "/health", "health check", "")
	if err != nil {
		return err
	}

	return body.Close()
}
