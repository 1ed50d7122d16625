package app

import (
	"context"
	"fmt"

	"github.com/jsamuelsen/freight-quote-service/internal/domain"
	"github.com/jsamuelsen/freight-quote-service/internal/ports"
)

// CatalogService exposes the read-only reference data.
type CatalogService struct {
	rates        ports.RateRepository
	accessorials ports.AccessorialRepository
}

// NewCatalogService creates a catalog over the given repositories.
func NewCatalogService(rates ports.RateRepository, accessorials ports.AccessorialRepository) *CatalogService {
	return &CatalogService{rates: rates, accessorials: accessorials}
}

// ListRates returns published rates matching filter.
func (c *CatalogService) ListRates(ctx context.Context, filter ports.RateFilter) ([]domain.RateEntry, error) {
	rates, err := c.rates.ListRates(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing rates: %w", err)
	}

	return rates, nil
}

// ListAccessorials returns every surcharge rule.
func (c *CatalogService) ListAccessorials(ctx context.Context) ([]domain.AccessorialRule, error) {
	rules, err := c.accessorials.ListAccessorials(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing accessorials: %w", err)
	}

	return rules, nil
}
