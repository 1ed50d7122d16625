package benchmark

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/jsamuelsen/freight-quote-service/internal/adapters/fxrates"
	httpadapter "github.com/jsamuelsen/freight-quote-service/internal/adapters/http"
	"github.com/jsamuelsen/freight-quote-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen/freight-quote-service/internal/adapters/storage/memory"
	"github.com/jsamuelsen/freight-quote-service/internal/app"
	"github.com/jsamuelsen/freight-quote-service/internal/domain"
	"github.com/jsamuelsen/freight-quote-service/internal/ports"
)

func init() {
	// Set Gin to release mode for accurate benchmarks
	gin.SetMode(gin.ReleaseMode)
}

var effective = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func rates() *memory.RateRepository {
	entry := func(container domain.ContainerType, price int64) domain.RateEntry {
		return domain.RateEntry{
			ID: "SEA-FCL-SGSIN-USNYC-" + string(container),
			RateKey: domain.RateKey{
				Mode:          domain.ModeSea,
				Service:       domain.ServiceFCL,
				Origin:        "SGSIN",
				Destination:   "USNYC",
				ContainerType: container,
			},
			Basis:         domain.BasisPerContainer,
			Price:         decimal.NewFromInt(price),
			Currency:      "USD",
			EffectiveFrom: effective,
			Version:       1,
		}
	}

	return memory.NewRateRepository(entry(domain.Container20GP, 1250), entry(domain.Container40HC, 2000))
}

func accessorials() *memory.AccessorialRepository {
	return memory.NewAccessorialRepository(
		domain.AccessorialRule{Code: "FUEL", Method: domain.MethodPercentOfBase, Value: decimal.NewFromInt(10)},
		domain.AccessorialRule{Code: "PORT_FEES", Method: domain.MethodFlat, Value: decimal.NewFromInt(150)},
		domain.AccessorialRule{Code: "SEAL", Method: domain.MethodPerContainer, Value: decimal.NewFromInt(20)},
	)
}

func newPricer() *app.PricingCalculator {
	fx, _ := fxrates.NewStatic(map[string]string{"USD_EUR": "0.85"})

	return app.NewPricingCalculator(app.PricingCalculatorConfig{
		Rates:         rates(),
		Accessorials:  accessorials(),
		ExchangeRates: fx,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func newRouter() *gin.Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	service := app.NewQuoteService(app.QuoteServiceConfig{
		Pricer:      newPricer(),
		Quotes:      memory.NewQuoteRepository(),
		Idempotency: memory.NewIdempotencyStore(nil),
		Logger:      logger,
	})

	registry := ports.NewHealthRegistry()
	_ = registry.Register(&simpleHealthChecker{name: "postgres"})
	_ = registry.Register(&simpleHealthChecker{name: "redis"})

	router := gin.New()
	httpadapter.SetupRouter(router, httpadapter.RouterConfig{
		ServiceName: "bench",
		Health:      handlers.NewHealthHandler(registry, nil, handlers.NewBuildInfo("1.0.0", "abc123", "2026-01-01T00:00:00Z")),
		Quotes:      handlers.NewQuoteHandler(service),
	})

	return router
}

var benchRequest = domain.QuoteRequest{
	CustomerID:   "ACME",
	Mode:         domain.ModeSea,
	Service:      domain.ServiceFCL,
	Origin:       "SGSIN",
	Destination:  "USNYC",
	Containers:   []domain.ContainerSpec{{Type: domain.Container40HC, Count: 2}, {Type: domain.Container20GP, Count: 1}},
	Accessorials: []string{"FUEL", "PORT_FEES", "SEAL"},
}

const benchBody = `{"mode":"SEA","service_type":"FCL","origin":"SGSIN","destination":"USNYC","containers":[{"type":"40HC","count":2},{"type":"20GP","count":1}],"accessorials":["FUEL","PORT_FEES","SEAL"]}`

// BenchmarkPrice measures the calculator alone: rate and surcharge lookups,
// line item assembly and rounding.
func BenchmarkPrice(b *testing.B) {
	pricer := newPricer()
	ctx := context.Background()

	b.ReportAllocs()

	for b.Loop() {
		if _, err := pricer.Price(ctx, benchRequest); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkPrice_Converted adds settlement currency conversion.
func BenchmarkPrice_Converted(b *testing.B) {
	pricer := newPricer()
	ctx := context.Background()

	req := benchRequest
	req.SettlementCurrency = "EUR"

	b.ReportAllocs()

	for b.Loop() {
		if _, err := pricer.Price(ctx, req); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkCreateQuote measures a full POST /api/v1/quotes through the
// middleware chain without an idempotency key.
func BenchmarkCreateQuote(b *testing.B) {
	router := newRouter()

	b.ReportAllocs()

	for b.Loop() {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", strings.NewReader(benchBody))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-User-ID", "ACME")

		router.ServeHTTP(w, req)

		if w.Code != http.StatusCreated {
			b.Fatalf("status %d: %s", w.Code, w.Body.String())
		}
	}
}

// BenchmarkCreateQuote_Replay measures idempotent replays of one request.
func BenchmarkCreateQuote_Replay(b *testing.B) {
	router := newRouter()

	send := func() int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", strings.NewReader(benchBody))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-User-ID", "ACME")
		req.Header.Set("Idempotency-Key", "bench-replay")

		router.ServeHTTP(w, req)

		return w.Code
	}

	if code := send(); code != http.StatusCreated {
		b.Fatalf("first request: status %d", code)
	}

	b.ReportAllocs()

	for b.Loop() {
		if code := send(); code != http.StatusOK {
			b.Fatalf("replay: status %d", code)
		}
	}
}

// BenchmarkListQuotes measures a page of 20 out of 200 stored quotes.
func BenchmarkListQuotes(b *testing.B) {
	router := newRouter()

	for i := range 200 {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", strings.NewReader(benchBody))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-User-ID", fmt.Sprintf("CUST-%d", i%4))

		router.ServeHTTP(w, req)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quotes?customer_id=CUST-1&limit=20", http.NoBody)

	b.ReportAllocs()

	for b.Loop() {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
	}
}

// BenchmarkReadiness measures readiness with registered health checks.
func BenchmarkReadiness(b *testing.B) {
	router := newRouter()
	req := httptest.NewRequest(http.MethodGet, "/-/ready", http.NoBody)

	b.ReportAllocs()

	for b.Loop() {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
	}
}

// simpleHealthChecker is a minimal health checker for benchmarking.
type simpleHealthChecker struct {
	name string
}

func (s *simpleHealthChecker) Name() string {
	return s.name
}

func (s *simpleHealthChecker) Check(_ context.Context) error {
	return nil
}
