//go:build integration

package integration

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/freight-quote-service/internal/adapters/events"
	"github.com/jsamuelsen/freight-quote-service/internal/adapters/fxrates"
	httpadapter "github.com/jsamuelsen/freight-quote-service/internal/adapters/http"
	"github.com/jsamuelsen/freight-quote-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen/freight-quote-service/internal/adapters/pdf"
	"github.com/jsamuelsen/freight-quote-service/internal/adapters/storage/memory"
	"github.com/jsamuelsen/freight-quote-service/internal/adapters/storage/refdata"
	"github.com/jsamuelsen/freight-quote-service/internal/app"
	"github.com/jsamuelsen/freight-quote-service/internal/platform/config"
	"github.com/jsamuelsen/freight-quote-service/internal/ports"
)

const referenceDataPath = "../../configs/reference_data.yaml"

// stack is the service assembled in-process over the memory stores and the
// shipped reference catalog.
type stack struct {
	server *httptest.Server
	quotes *memory.QuoteRepository
}

type stackOptions struct {
	fx       ports.ExchangeRateProvider
	validity time.Duration
}

// newStack builds the router the way the binary does and serves it. With
// no exchange rate provider the static USD_EUR table is used.
func newStack(tb testing.TB, opts stackOptions) *stack {
	tb.Helper()

	gin.SetMode(gin.TestMode)

	catalog, err := refdata.Load(referenceDataPath)
	if err != nil {
		tb.Fatalf("loading reference data: %v", err)
	}

	fx := opts.fx
	if fx == nil {
		static, err := fxrates.NewStatic(map[string]string{"USD_EUR": "0.85"})
		if err != nil {
			tb.Fatalf("building exchange rates: %v", err)
		}

		fx = static
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := ports.SystemClock{}

	rates := memory.NewRateRepository(catalog.Rates...)
	accessorials := memory.NewAccessorialRepository(catalog.Accessorials...)
	quotes := memory.NewQuoteRepository()

	service := app.NewQuoteService(app.QuoteServiceConfig{
		Pricer: app.NewPricingCalculator(app.PricingCalculatorConfig{
			Rates:         rates,
			Accessorials:  accessorials,
			ExchangeRates: fx,
			Logger:        logger,
		}),
		Quotes:      quotes,
		Idempotency: memory.NewIdempotencyStore(clock),
		Events:      events.NewLogPublisher(logger, "integration", clock),
		Documents:   pdf.NewRenderer(pdf.Config{Issuer: "Integration"}),
		Logger:      logger,
		Validity:    opts.validity,
	})

	engine := gin.New()
	httpadapter.SetupRouter(engine, httpadapter.RouterConfig{
		ServiceName: "freight-quote-service",
		Auth: &config.AuthConfig{
			SubjectHeader: "X-User-ID",
			RolesHeader:   "X-User-Roles",
			AdminRole:     config.DefaultAdminRole,
		},
		Health:  handlers.NewHealthHandler(ports.NewHealthRegistry(), nil, handlers.NewBuildInfo("test", "none", "now")),
		Quotes:  handlers.NewQuoteHandler(service),
		Catalog: handlers.NewCatalogHandler(app.NewCatalogService(rates, accessorials)),
		Admin:   handlers.NewAdminHandler(service),
	})

	srv := httptest.NewServer(engine)
	tb.Cleanup(srv.Close)

	return &stack{server: srv, quotes: quotes}
}
