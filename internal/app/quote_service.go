// Package app orchestrates the quotation use cases: pricing, the quote
// lifecycle, document rendering and the reference data catalog. It talks
// to infrastructure only through the interfaces in package ports.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jsamuelsen/freight-quote-service/internal/app/requestctx"
	"github.com/jsamuelsen/freight-quote-service/internal/domain"
	"github.com/jsamuelsen/freight-quote-service/internal/platform/logging"
	"github.com/jsamuelsen/freight-quote-service/internal/ports"
)

// Defaults applied when the config leaves a field zero.
const (
	DefaultQuoteValidity  = 7 * 24 * time.Hour
	DefaultIdempotencyTTL = time.Hour
	DefaultListLimit      = 20
	MaxListLimit          = 100
	defaultExpiryWorkers  = 4
	defaultSweepBatch     = 500
)

var errKeyAlreadyReserved = errors.New("idempotency key already reserved")

// QuoteServiceConfig wires the lifecycle manager. Pricer, Quotes and
// Idempotency are required; the rest are optional collaborators.
type QuoteServiceConfig struct {
	Pricer      Pricer
	Quotes      ports.QuoteRepository
	Idempotency ports.IdempotencyStore

	Events    ports.EventPublisher
	Documents ports.DocumentRenderer
	Scheduler ports.ExpiryScheduler
	Flags     ports.FeatureFlags
	Clock     ports.Clock
	Metrics   ports.QuoteMetrics
	Logger    *slog.Logger

	Validity       time.Duration
	IdempotencyTTL time.Duration
	ExpiryWorkers  int
}

// QuoteService owns quote creation and every status transition.
type QuoteService struct {
	pricer      Pricer
	quotes      ports.QuoteRepository
	idempotency ports.IdempotencyStore
	events      ports.EventPublisher
	documents   ports.DocumentRenderer
	scheduler   ports.ExpiryScheduler
	flags       ports.FeatureFlags
	clock       ports.Clock
	metrics     ports.QuoteMetrics
	logger      *slog.Logger
	exec        *Executor

	validity       time.Duration
	idempotencyTTL time.Duration
	expiryWorkers  int
}

// NewQuoteService creates the lifecycle manager. It panics if a required
// dependency is missing.
func NewQuoteService(cfg QuoteServiceConfig) *QuoteService {
	switch {
	case cfg.Pricer == nil:
		panic("app: QuoteServiceConfig.Pricer is required")
	case cfg.Quotes == nil:
		panic("app: QuoteServiceConfig.Quotes is required")
	case cfg.Idempotency == nil:
		panic("app: QuoteServiceConfig.Idempotency is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With(slog.String("component", "app.QuoteService"))

	s := &QuoteService{
		pricer:         cfg.Pricer,
		quotes:         cfg.Quotes,
		idempotency:    cfg.Idempotency,
		events:         cfg.Events,
		documents:      cfg.Documents,
		scheduler:      cfg.Scheduler,
		flags:          cfg.Flags,
		clock:          cfg.Clock,
		metrics:        cfg.Metrics,
		logger:         logger,
		exec:           NewExecutor(logger),
		validity:       cfg.Validity,
		idempotencyTTL: cfg.IdempotencyTTL,
		expiryWorkers:  cfg.ExpiryWorkers,
	}

	if s.clock == nil {
		s.clock = ports.SystemClock{}
	}

	if s.metrics == nil {
		s.metrics = ports.NopQuoteMetrics{}
	}

	if s.validity <= 0 {
		s.validity = DefaultQuoteValidity
	}

	if s.idempotencyTTL <= 0 {
		s.idempotencyTTL = DefaultIdempotencyTTL
	}

	if s.expiryWorkers < 1 {
		s.expiryWorkers = defaultExpiryWorkers
	}

	return s
}

func (s *QuoteService) log(ctx context.Context) *slog.Logger {
	if logging.HasLogger(ctx) {
		return logging.FromContext(ctx).With(slog.String("component", "app.QuoteService"))
	}

	return s.logger
}

func (s *QuoteService) flag(ctx context.Context, name string, def bool) bool {
	if s.flags == nil {
		return def
	}

	return s.flags.IsEnabled(ctx, name, def)
}

// CreateResult is the outcome of Create.
type CreateResult struct {
	Quote *domain.Quote

	// Replayed is true when an earlier request with the same idempotency
	// key created the quote.
	Replayed bool
}

// Create prices req and stores a DRAFT quote. With a non-empty
// idempotencyKey, at most one quote is created per (customer, key) while the
// key is unexpired; repeats return the original quote.
func (s *QuoteService) Create(ctx context.Context, req domain.QuoteRequest, idempotencyKey string) (*CreateResult, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validating quote request: %w", err)
	}

	rc := requestctx.New()
	ctx = requestctx.WithContext(ctx, rc)
	logger := s.log(ctx).With(slog.String("customer_id", req.CustomerID))
	now := s.clock.Now()

	var (
		quote    *domain.Quote
		existing *domain.IdempotencyRecord
	)

	if idempotencyKey != "" {
		rec := domain.IdempotencyRecord{
			CustomerID:  req.CustomerID,
			Key:         idempotencyKey,
			QuoteID:     domain.NewQuoteID(),
			RequestHash: req.Fingerprint(),
			CreatedAt:   now,
			ExpiresAt:   now.Add(s.idempotencyTTL),
		}

		_ = rc.AddAction(requestctx.ActionFunc("reserve idempotency key",
			func(ctx context.Context) error {
				winner, created, err := s.idempotency.Reserve(ctx, rec)
				if err != nil {
					return err
				}

				if !created {
					existing = winner
					return errKeyAlreadyReserved
				}

				return nil
			},
			func(ctx context.Context) error {
				return s.idempotency.Release(ctx, rec.CustomerID, rec.Key)
			},
		))

		quote = &domain.Quote{ID: rec.QuoteID}
	} else {
		quote = &domain.Quote{ID: domain.NewQuoteID()}
	}

	_ = rc.AddAction(requestctx.ActionFunc("price quote", func(ctx context.Context) error {
		pricing, err := s.pricer.Price(ctx, req)
		if err != nil {
			return err
		}

		*quote = *domain.NewDraftQuote(quote.ID, req, *pricing, now)

		return nil
	}, nil))

	_ = rc.AddAction(requestctx.ActionFunc("store quote", func(ctx context.Context) error {
		return s.quotes.Create(ctx, quote)
	}, nil))

	if err := rc.Commit(ctx); err != nil {
		if errors.Is(err, errKeyAlreadyReserved) {
			return s.replay(ctx, req, existing)
		}

		return nil, fmt.Errorf("creating quote: %w", err)
	}

	s.metrics.QuoteCreated(quote.Currency, false)
	logger.InfoContext(ctx, "quote created",
		slog.String("quote_id", quote.ID),
		slog.String("total", quote.TotalAmount.StringFixed(domain.MoneyPlaces)),
		slog.String("currency", quote.Currency),
	)

	return &CreateResult{Quote: quote}, nil
}

func (s *QuoteService) replay(ctx context.Context, req domain.QuoteRequest, rec *domain.IdempotencyRecord) (*CreateResult, error) {
	if !rec.Matches(req.Fingerprint()) {
		return nil, domain.NewConflictError("idempotency key", rec.Key, "reused with a different request")
	}

	quote, err := s.quotes.Get(ctx, rec.QuoteID)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.NewConflictError("idempotency key", rec.Key, "original request is still in progress")
		}

		return nil, fmt.Errorf("loading replayed quote: %w", err)
	}

	s.metrics.QuoteCreated(quote.Currency, true)
	s.log(ctx).InfoContext(ctx, "idempotent replay", slog.String("quote_id", quote.ID))

	return &CreateResult{Quote: quote, Replayed: true}, nil
}

// Get returns a quote. An ISSUED quote found past its validity is expired
// first when lazy expiry is enabled.
func (s *QuoteService) Get(ctx context.Context, id string) (*domain.Quote, error) {
	quote, err := s.quotes.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting quote: %w", err)
	}

	if !quote.PastValidity(s.clock.Now()) || !s.flag(ctx, ports.FlagLazyExpiry, true) {
		return quote, nil
	}

	expired, err := s.transition(ctx, id, domain.StatusExpired, nil)
	if err == nil {
		return expired, nil
	}

	if !domain.IsConflict(err) {
		return nil, err
	}

	// Lost to a concurrent transition; the stored state is authoritative.
	quote, err = s.quotes.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting quote: %w", err)
	}

	return quote, nil
}

// List returns a page of quotes. Stored status is reported as is.
func (s *QuoteService) List(ctx context.Context, filter ports.QuoteFilter) (*ports.QuotePage, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	}

	if filter.Limit > MaxListLimit {
		filter.Limit = MaxListLimit
	}

	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.NewValidationErrorWithValue("status", "unknown quote status", filter.Status)
	}

	page, err := s.quotes.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing quotes: %w", err)
	}

	return page, nil
}

// Issue moves a DRAFT quote to ISSUED and starts its validity window.
func (s *QuoteService) Issue(ctx context.Context, id string) (*domain.Quote, error) {
	quote, err := s.transition(ctx, id, domain.StatusIssued, nil)
	if err != nil {
		return nil, err
	}

	s.scheduleExpiry(ctx, quote)

	return quote, nil
}

// Accept moves an ISSUED quote to ACCEPTED. A quote past its validity is
// expired instead and *domain.QuoteExpiredError is returned, even if its
// stored status was still ISSUED.
func (s *QuoteService) Accept(ctx context.Context, id string) (*domain.Quote, error) {
	return s.transition(ctx, id, domain.StatusAccepted, func(ctx context.Context, q *domain.Quote, now time.Time) error {
		if !q.PastValidity(now) {
			return nil
		}

		if _, err := s.transition(ctx, id, domain.StatusExpired, nil); err != nil {
			s.log(ctx).WarnContext(ctx, "expiring overdue quote on accept failed",
				slog.String("quote_id", id), slog.Any("error", err))
		}

		return &domain.QuoteExpiredError{QuoteID: q.ID, ValidUntil: *q.ValidUntil}
	})
}

// Expire moves an ISSUED quote to EXPIRED.
func (s *QuoteService) Expire(ctx context.Context, id string) (*domain.Quote, error) {
	return s.transition(ctx, id, domain.StatusExpired, nil)
}

// Cancel withdraws a DRAFT or ISSUED quote.
func (s *QuoteService) Cancel(ctx context.Context, id string) (*domain.Quote, error) {
	return s.transition(ctx, id, domain.StatusCancelled, nil)
}

// SweepResult summarizes ExpireOverdue.
type SweepResult struct {
	Expired int `json:"expired"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// ExpireOverdue expires every ISSUED quote whose validity has passed.
// Quotes changed concurrently by another writer are skipped.
func (s *QuoteService) ExpireOverdue(ctx context.Context) (*SweepResult, error) {
	now := s.clock.Now()

	var overdue []*domain.Quote

	filter := ports.QuoteFilter{Status: domain.StatusIssued, ValidUntilBefore: &now, Limit: defaultSweepBatch}

	for {
		page, err := s.quotes.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("listing overdue quotes: %w", err)
		}

		overdue = append(overdue, page.Quotes...)
		if page.Next == nil {
			break
		}

		filter.After = page.Next
	}

	var expired, skipped, failed atomic.Int64

	err := FanOut(ctx, s.expiryWorkers, overdue, func(ctx context.Context, q *domain.Quote) error {
		_, err := s.transition(ctx, q.ID, domain.StatusExpired, nil)

		switch {
		case err == nil:
			expired.Add(1)
		case domain.IsConflict(err):
			skipped.Add(1)
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			failed.Add(1)
		}

		return nil
	})

	result := &SweepResult{Expired: int(expired.Load()), Skipped: int(skipped.Load()), Failed: int(failed.Load())}

	s.log(ctx).InfoContext(ctx, "expiry sweep finished",
		slog.Int("expired", result.Expired), slog.Int("skipped", result.Skipped), slog.Int("failed", result.Failed))

	return result, err
}

// RenderDocument renders a quote that has been issued.
func (s *QuoteService) RenderDocument(ctx context.Context, id string) (*ports.Document, error) {
	if s.documents == nil {
		return nil, domain.NewUnavailableError("document renderer", "not configured")
	}

	quote, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !quote.WasIssued() {
		return nil, &domain.InvalidTransitionError{QuoteID: quote.ID, From: quote.Status, To: domain.StatusIssued}
	}

	doc, err := s.documents.Render(ctx, quote)
	if err != nil {
		return nil, fmt.Errorf("rendering quote %s: %w", id, err)
	}

	return doc, nil
}

func (s *QuoteService) scheduleExpiry(ctx context.Context, quote *domain.Quote) {
	if s.scheduler == nil || quote.ValidUntil == nil || !s.flag(ctx, ports.FlagScheduleExpiry, true) {
		return
	}

	if err := s.scheduler.ScheduleExpiry(ctx, quote.ID, *quote.ValidUntil); err != nil {
		s.log(ctx).WarnContext(ctx, "scheduling expiry failed",
			slog.String("quote_id", quote.ID), slog.Any("error", err))
	}
}
