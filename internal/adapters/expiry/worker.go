package expiry

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jsamuelsen/freight-quote-service/internal/domain"
	"github.com/jsamuelsen/freight-quote-service/internal/platform/logging"
	"github.com/jsamuelsen/freight-quote-service/internal/ports"
)

// Expirer expires one quote. *app.QuoteService satisfies it.
type Expirer interface {
	Expire(ctx context.Context, id string) (*domain.Quote, error)
}

// WorkerConfig tunes a Worker.
type WorkerConfig struct {
	Queue          string
	Concurrency    int
	ConsumeTimeout time.Duration
	TTR            time.Duration
	ErrorBackoff   time.Duration
	Clock          ports.Clock
	Logger         *slog.Logger
}

// Worker consumes due expiry jobs.
//
// A job is acknowledged when the quote was expired, is unknown, or has
// already left ISSUED. A job that fails for any other reason, or that
// arrived before the quote's validity ended, stays unacknowledged and is
// redelivered by the queue after its TTR.
type Worker struct {
	queue   Queue
	expirer Expirer
	cfg     WorkerConfig
	logger  *slog.Logger
}

// NewWorker creates a worker.
func NewWorker(queue Queue, expirer Expirer, cfg WorkerConfig) *Worker {
	if cfg.Queue == "" {
		cfg.Queue = DefaultQueue
	}

	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	if cfg.ConsumeTimeout <= 0 {
		cfg.ConsumeTimeout = 5 * time.Second
	}

	if cfg.TTR <= 0 {
		cfg.TTR = 30 * time.Second
	}

	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = time.Second
	}

	if cfg.Clock == nil {
		cfg.Clock = ports.SystemClock{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		queue:   queue,
		expirer: expirer,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "expiry.Worker"), slog.String("queue", cfg.Queue)),
	}
}

// Run consumes until ctx is cancelled. It returns nil on cancellation.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "expiry worker started", slog.Int("concurrency", w.cfg.Concurrency))

	g, gctx := errgroup.WithContext(ctx)

	for i := range w.cfg.Concurrency {
		g.Go(func() error {
			w.loop(gctx, i)
			return nil
		})
	}

	err := g.Wait()

	w.logger.InfoContext(ctx, "expiry worker stopped")

	return err
}

func (w *Worker) loop(ctx context.Context, id int) {
	logger := w.logger.With(slog.Int("consumer", id))

	for ctx.Err() == nil {
		job, err := w.queue.Consume(w.cfg.Queue, w.cfg.ConsumeTimeout, w.cfg.TTR)
		if err != nil {
			logger.WarnContext(ctx, "consume failed", slog.Any("error", err))

			select {
			case <-ctx.Done():
				return
			case <-time.After(w.cfg.ErrorBackoff):
			}

			continue
		}

		if job == nil {
			continue
		}

		w.Handle(ctx, job)
	}
}

// Handle processes one job and reports whether it was acknowledged.
func (w *Worker) Handle(ctx context.Context, job *Job) bool {
	logger := w.logger.With(slog.String("job_id", job.ID))

	p, err := decodePayload(job.Data)
	if err != nil {
		logger.ErrorContext(ctx, "dropping malformed expiry job", slog.Any("error", err))
		return w.ack(ctx, logger, job)
	}

	logger = logger.With(slog.String("quote_id", p.QuoteID))
	ctx = logging.WithContext(ctx, logger)

	if now := w.cfg.Clock.Now(); now.Before(p.ExpiresAt) {
		logger.DebugContext(ctx, "expiry job delivered early, leaving for redelivery",
			slog.Time("expires_at", p.ExpiresAt), slog.Time("now", now))

		return false
	}

	_, err = w.expirer.Expire(ctx, p.QuoteID)

	switch {
	case err == nil:
		logger.InfoContext(ctx, "quote expired by schedule")
	case domain.IsNotFound(err), domain.IsInvalidTransition(err), domain.IsConcurrentModification(err):
		logger.DebugContext(ctx, "quote no longer expirable", slog.Any("reason", err))
	default:
		logger.WarnContext(ctx, "expiring quote failed, job will be redelivered", slog.Any("error", err))
		return false
	}

	return w.ack(ctx, logger, job)
}

func (w *Worker) ack(ctx context.Context, logger *slog.Logger, job *Job) bool {
	if err := w.queue.Ack(w.cfg.Queue, job.ID); err != nil {
		logger.WarnContext(ctx, "ack failed", slog.Any("error", err))
		return false
	}

	return true
}
