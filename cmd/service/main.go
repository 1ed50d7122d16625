// Package main is the entry point for the freight quotation service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/jsamuelsen/freight-quote-service/internal/adapters/clients"
	"github.com/jsamuelsen/freight-quote-service/internal/adapters/clients/acl"
	"github.com/jsamuelsen/freight-quote-service/internal/adapters/events"
	"github.com/jsamuelsen/freight-quote-service/internal/adapters/expiry"
	"github.com/jsamuelsen/freight-quote-service/internal/adapters/flags"
	"github.com/jsamuelsen/freight-quote-service/internal/adapters/fxrates"
	"github.com/jsamuelsen/freight-quote-service/internal/adapters/http"
	"github.com/jsamuelsen/freight-quote-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen/freight-quote-service/internal/adapters/pdf"
	"github.com/jsamuelsen/freight-quote-service/internal/adapters/storage/dynamostore"
	"github.com/jsamuelsen/freight-quote-service/internal/adapters/storage/memory"
	"github.com/jsamuelsen/freight-quote-service/internal/adapters/storage/postgres"
	"github.com/jsamuelsen/freight-quote-service/internal/adapters/storage/redisstore"
	"github.com/jsamuelsen/freight-quote-service/internal/adapters/storage/refdata"
	"github.com/jsamuelsen/freight-quote-service/internal/app"
	"github.com/jsamuelsen/freight-quote-service/internal/platform/config"
	"github.com/jsamuelsen/freight-quote-service/internal/platform/logging"
	"github.com/jsamuelsen/freight-quote-service/internal/platform/telemetry"
	"github.com/jsamuelsen/freight-quote-service/internal/ports"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	// Version is the semantic version of the service.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "unknown"

	// BuildTime is the timestamp when the binary was built.
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// stores groups the persistence adapters selected by configuration.
type stores struct {
	rates        ports.RateRepository
	accessorials ports.AccessorialRepository
	quotes       ports.QuoteRepository
	idempotency  ports.IdempotencyStore
}

// closers run in reverse order on shutdown.
type closers []func()

func (c *closers) add(fn func()) { *c = append(*c, fn) }

func (c closers) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

func run() error {
	ctx := context.Background()

	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	// 1. Determine profile from environment
	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	// 2. Load and validate configuration (fail fast)
	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// 3. Initialize logging
	logger := logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	logging.SetDefault(logger)

	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
		slog.String("storage", cfg.Storage.Driver),
		slog.String("idempotency", cfg.Idempotency.Driver),
		slog.String("events", cfg.Events.Driver),
		slog.String("expiry", cfg.Expiry.Driver),
	)

	// 4. Initialize telemetry (noop if disabled)
	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if shutdownErr := telProvider.Shutdown(ctx); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	quoteMetrics, err := telemetry.NewQuoteMetrics(registry)
	if err != nil {
		return fmt.Errorf("registering quote metrics: %w", err)
	}

	// 5. Create health registry
	healthRegistry := ports.NewHealthRegistry()
	clock := ports.SystemClock{}

	var cleanup closers
	defer cleanup.run()

	// 6. Storage, idempotency and the shared redis connection
	var rdb *redis.Client

	if cfg.Idempotency.Driver == config.DriverRedis || cfg.Events.Driver == config.DriverRedis {
		rdb, err = redisstore.NewClient(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return err
		}

		cleanup.add(func() { _ = rdb.Close() })

		if err := healthRegistry.Register(redisstore.NewHealthChecker(rdb)); err != nil {
			return fmt.Errorf("registering redis health check: %w", err)
		}
	}

	st, err := openStores(ctx, cfg, rdb, clock, healthRegistry, &cleanup)
	if err != nil {
		return err
	}

	// 7. Exchange rates: optional HTTP feed first, static table as fallback
	fx, err := exchangeRates(cfg, logger, healthRegistry)
	if err != nil {
		return err
	}

	pricer := app.NewPricingCalculator(app.PricingCalculatorConfig{
		Rates:             st.rates,
		Accessorials:      st.accessorials,
		ExchangeRates:     fx,
		Clock:             clock,
		Metrics:           quoteMetrics,
		Logger:            logger,
		LookupConcurrency: cfg.Pricing.LookupConcurrency,
	})

	// 8. Lifecycle collaborators
	var publisher ports.EventPublisher

	switch cfg.Events.Driver {
	case config.DriverRedis:
		publisher = events.NewRedisPublisher(rdb, cfg.Events.Channel, cfg.Events.Source, clock)
	case config.DriverLog:
		publisher = events.NewLogPublisher(logger, cfg.Events.Source, clock)
	default:
		publisher = events.NopPublisher{}
	}

	var (
		queue     expiry.Queue
		scheduler ports.ExpiryScheduler
	)

	if cfg.Expiry.Driver == config.DriverLmstfy {
		queue = expiry.NewLmstfyQueue(expiry.LmstfyConfig{
			Host:      cfg.Expiry.Lmstfy.Host,
			Port:      cfg.Expiry.Lmstfy.Port,
			Namespace: cfg.Expiry.Lmstfy.Namespace,
			Token:     cfg.Expiry.Lmstfy.Token,
		})
		scheduler = expiry.NewScheduler(queue, cfg.Expiry.Lmstfy.Queue, clock, logger)
	}

	quoteService := app.NewQuoteService(app.QuoteServiceConfig{
		Pricer:         pricer,
		Quotes:         st.quotes,
		Idempotency:    st.idempotency,
		Events:         publisher,
		Documents:      pdf.NewRenderer(pdf.Config{Issuer: cfg.App.Name, Compress: true, Clock: clock}),
		Scheduler:      scheduler,
		Flags:          flags.NewStatic(cfg.Features),
		Clock:          clock,
		Metrics:        quoteMetrics,
		Logger:         logger,
		Validity:       cfg.Quotes.Validity,
		IdempotencyTTL: cfg.Idempotency.TTL,
		ExpiryWorkers:  cfg.Expiry.Workers,
	})

	// 9. Create handlers
	buildInfo := handlers.NewBuildInfo(Version, Commit, BuildTime)

	// 10. Create HTTP server
	server := http.New(&cfg.Server, logger)

	// 11. Setup router with all middleware and routes
	http.SetupRouter(server.Engine(), http.RouterConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		Auth:           &cfg.Auth,
		RequestTimeout: cfg.Server.RequestTimeout,
		Health:         handlers.NewHealthHandler(healthRegistry, registry, buildInfo),
		Quotes:         handlers.NewQuoteHandler(quoteService),
		Catalog:        handlers.NewCatalogHandler(app.NewCatalogService(st.rates, st.accessorials)),
		Admin:          handlers.NewAdminHandler(quoteService),
	})

	// 12. Start the expiry worker and the server (non-blocking)
	workerCtx, stopWorker := context.WithCancel(logging.WithContext(ctx, logger))
	defer stopWorker()

	workerDone := make(chan error, 1)

	if queue != nil && cfg.Expiry.Lmstfy.Enabled {
		worker := expiry.NewWorker(queue, quoteService, expiry.WorkerConfig{
			Queue:          cfg.Expiry.Lmstfy.Queue,
			Concurrency:    cfg.Expiry.Workers,
			ConsumeTimeout: cfg.Expiry.Lmstfy.ConsumeTimeout,
			TTR:            cfg.Expiry.Lmstfy.TTR,
			Clock:          clock,
			Logger:         logger,
		})

		go func() { workerDone <- worker.Run(workerCtx) }()
	} else {
		close(workerDone)
	}

	serverErr := server.Start()

	// 13. Wait for shutdown signal
	err = waitForShutdown(ctx, logger, server, serverErr, cfg.Server.ShutdownTimeout)

	stopWorker()

	if werr := <-workerDone; werr != nil && !errors.Is(werr, context.Canceled) {
		logger.Error("expiry worker stopped", slog.Any("error", werr))
	}

	return err
}

// openStores builds the rate, surcharge, quote and idempotency stores for
// the configured drivers.
func openStores(
	ctx context.Context,
	cfg *config.Config,
	rdb *redis.Client,
	clock ports.Clock,
	health *ports.DefaultHealthRegistry,
	cleanup *closers,
) (*stores, error) {
	st := &stores{}

	var (
		pg     *postgres.DB
		dynamo dynamostore.API
		err    error
	)

	if cfg.Storage.Driver == config.DriverPostgres || cfg.Idempotency.Driver == config.DriverPostgres {
		if pg, err = openPostgres(ctx, cfg.Storage.Postgres, health, cleanup); err != nil {
			return nil, err
		}
	}

	if cfg.Storage.Driver == config.DriverDynamoDB || cfg.Idempotency.Driver == config.DriverDynamoDB {
		if dynamo, err = openDynamo(ctx, cfg.Storage.DynamoDB, health); err != nil {
			return nil, err
		}
	}

	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		catalog := postgres.NewCatalogRepository(pg)

		if cfg.Storage.Postgres.SeedCatalog {
			seed, err := refdata.Load(cfg.ReferenceData.Path)
			if err != nil {
				return nil, err
			}

			if err := catalog.Seed(ctx, seed.Rates, seed.Accessorials); err != nil {
				return nil, fmt.Errorf("seeding catalog: %w", err)
			}
		}

		st.rates, st.accessorials = catalog, catalog
		st.quotes = postgres.NewQuoteRepository(pg)
	default:
		seed, err := refdata.Load(cfg.ReferenceData.Path)
		if err != nil {
			return nil, err
		}

		st.rates = memory.NewRateRepository(seed.Rates...)
		st.accessorials = memory.NewAccessorialRepository(seed.Accessorials...)

		if cfg.Storage.Driver == config.DriverDynamoDB {
			st.quotes = dynamostore.NewQuoteRepository(dynamo, cfg.Storage.DynamoDB.QuotesTable)
		} else {
			st.quotes = memory.NewQuoteRepository()
		}
	}

	switch cfg.Idempotency.Driver {
	case config.DriverPostgres:
		st.idempotency = postgres.NewIdempotencyStore(pg)
	case config.DriverRedis:
		st.idempotency = redisstore.NewIdempotencyStore(rdb, cfg.Redis.KeyPrefix, clock)
	case config.DriverDynamoDB:
		st.idempotency = dynamostore.NewIdempotencyStore(dynamo, cfg.Storage.DynamoDB.IdempotencyTable, clock)
	default:
		st.idempotency = memory.NewIdempotencyStore(clock)
	}

	return st, nil
}

func openPostgres(ctx context.Context, cfg config.PostgresConfig, health *ports.DefaultHealthRegistry, cleanup *closers) (*postgres.DB, error) {
	db, err := postgres.New(ctx, postgres.Config{
		DSN:             cfg.DSN,
		MaxConns:        cfg.MaxConns,
		MinConns:        cfg.MinConns,
		MaxConnIdleTime: cfg.MaxConnIdleTime,
	})
	if err != nil {
		return nil, err
	}

	cleanup.add(db.Close)

	if cfg.Migrate {
		if err := db.Migrate(ctx); err != nil {
			return nil, err
		}
	}

	if err := health.Register(db); err != nil {
		return nil, fmt.Errorf("registering postgres health check: %w", err)
	}

	return db, nil
}

func openDynamo(ctx context.Context, cfg config.DynamoDBConfig, health *ports.DefaultHealthRegistry) (dynamostore.API, error) {
	client, err := dynamostore.NewClient(ctx, dynamostore.Config{
		Region:           cfg.Region,
		Endpoint:         cfg.Endpoint,
		AccessKeyID:      cfg.AccessKeyID,
		SecretAccessKey:  cfg.SecretAccessKey,
		QuotesTable:      cfg.QuotesTable,
		IdempotencyTable: cfg.IdempotencyTable,
	})
	if err != nil {
		return nil, err
	}

	if err := health.Register(dynamostore.NewHealthChecker(client, cfg.QuotesTable)); err != nil {
		return nil, fmt.Errorf("registering dynamodb health check: %w", err)
	}

	return client, nil
}

// exchangeRates returns the static table, preceded by the HTTP feed when
// one is configured.
func exchangeRates(cfg *config.Config, logger *slog.Logger, health *ports.DefaultHealthRegistry) (ports.ExchangeRateProvider, error) {
	static, err := fxrates.NewStatic(cfg.Pricing.ExchangeRates)
	if err != nil {
		return nil, fmt.Errorf("loading exchange rates: %w", err)
	}

	if !cfg.Pricing.FXFeed.Enabled {
		return static, nil
	}

	client, err := clients.New(clients.Config{
		BaseURL:     cfg.Pricing.FXFeed.BaseURL,
		ServiceName: cfg.Pricing.FXFeed.Name,
		Timeout:     cfg.Client.Timeout,
		Retry:       cfg.Client.Retry,
		Circuit:     cfg.Client.CircuitBreaker,
		Transport:   cfg.Client.Transport,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating fx feed client: %w", err)
	}

	feed := acl.NewFXFeed(acl.FXFeedConfig{Client: client, Logger: logger})

	if err := health.Register(feed); err != nil {
		return nil, fmt.Errorf("registering fx feed health check: %w", err)
	}

	return fxrates.NewChain(logger, feed, static), nil
}

// waitForShutdown blocks until a shutdown signal is received or the server
// fails, then drains in-flight requests.
func waitForShutdown(
	ctx context.Context,
	logger *slog.Logger,
	server *http.Server,
	serverErr <-chan error,
	shutdownTimeout time.Duration,
) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err, ok := <-serverErr:
		if ok && err != nil {
			return fmt.Errorf("server error: %w", err)
		}

		return nil

	case sig := <-quit:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	logger.Info("initiating graceful shutdown",
		slog.Duration("timeout", shutdownTimeout),
	)

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("shutdown complete")

	return nil
}
