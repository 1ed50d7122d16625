// Package fxrates provides exchange rate sources for the pricing calculator:
// a static table loaded from configuration and a chain that falls back
// across several providers.
package fxrates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jsamuelsen/freight-quote-service/internal/domain"
	"github.com/jsamuelsen/freight-quote-service/internal/platform/logging"
	"github.com/jsamuelsen/freight-quote-service/internal/ports"
)

// inversePrecision is the number of decimal places kept when a rate is
// derived from its reverse pair.
const inversePrecision = 8

// Static serves rates from a fixed table keyed by currency pair.
type Static struct {
	rates map[pair]decimal.Decimal
}

type pair struct{ from, to string }

var _ ports.ExchangeRateProvider = (*Static)(nil)

// NewStatic parses a table of "FROM_TO" -> decimal string, for example
// {"USD_EUR": "0.85"}. Rates must be positive.
func NewStatic(table map[string]string) (*Static, error) {
	s := &Static{rates: make(map[pair]decimal.Decimal, len(table))}

	for name, raw := range table {
		from, to, ok := strings.Cut(strings.ToUpper(name), "_")
		if !ok || from == "" || to == "" {
			return nil, fmt.Errorf("exchange rate %q: name must be FROM_TO", name)
		}

		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("exchange rate %q: %w", name, err)
		}

		if !rate.IsPositive() {
			return nil, fmt.Errorf("exchange rate %q: must be positive", name)
		}

		s.rates[pair{from, to}] = rate
	}

	return s, nil
}

// ExchangeRate returns the direct rate, or the inverse of the reverse pair
// when only that is configured.
func (s *Static) ExchangeRate(_ context.Context, from, to string) (decimal.Decimal, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	if rate, ok := s.rates[pair{from, to}]; ok {
		return rate, nil
	}

	if rate, ok := s.rates[pair{to, from}]; ok {
		return decimal.NewFromInt(1).DivRound(rate, inversePrecision), nil
	}

	return decimal.Zero, &domain.MissingExchangeRateError{From: from, To: to}
}

// Len reports how many pairs are configured.
func (s *Static) Len() int { return len(s.rates) }

// Chain asks each provider in order. A provider that does not know the
// pair or is unavailable passes the question on; any other error stops the
// chain. When nobody answers, an unavailability error wins over a missing
// rate so the caller can tell a transient failure from a bad request.
type Chain struct {
	providers []ports.ExchangeRateProvider
	logger    *slog.Logger
}

var _ ports.ExchangeRateProvider = (*Chain)(nil)

// NewChain creates a chain. Nil providers are skipped.
func NewChain(logger *slog.Logger, providers ...ports.ExchangeRateProvider) *Chain {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Chain{logger: logger.With(slog.String("component", "fxrates.Chain"))}

	for _, p := range providers {
		if p != nil {
			c.providers = append(c.providers, p)
		}
	}

	return c
}

// ExchangeRate implements ports.ExchangeRateProvider.
func (c *Chain) ExchangeRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	var unavailable error

	for i, p := range c.providers {
		rate, err := p.ExchangeRate(ctx, from, to)

		var missing *domain.MissingExchangeRateError

		switch {
		case err == nil:
			return rate, nil
		case errors.As(err, &missing):
			c.logger.Log(ctx, logging.LevelTrace, "provider has no rate",
				slog.Int("provider", i), slog.String("from", from), slog.String("to", to))
		case domain.IsUnavailable(err):
			c.logger.WarnContext(ctx, "rate provider unavailable, trying next",
				slog.Int("provider", i), slog.Any("error", err))

			if unavailable == nil {
				unavailable = err
			}
		default:
			return decimal.Zero, err
		}
	}

	if unavailable != nil {
		return decimal.Zero, unavailable
	}

	return decimal.Zero, &domain.MissingExchangeRateError{From: strings.ToUpper(from), To: strings.ToUpper(to)}
}
