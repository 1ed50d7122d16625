package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jsamuelsen/freight-quote-service/internal/domain"
)

// guardFunc runs after the transition table check and before the
// compare-and-set. Returning an error aborts the transition.
type guardFunc func(ctx context.Context, q *domain.Quote, now time.Time) error

// transitionInput carries state between the executor steps.
type transitionInput struct {
	quoteID string
	target  domain.QuoteStatus
	guard   guardFunc

	change domain.StatusChange
}

func (s *QuoteService) transitionOperation() Operation[*transitionInput, *domain.Quote, *domain.Quote, *domain.Quote] {
	return Operation[*transitionInput, *domain.Quote, *domain.Quote, *domain.Quote]{
		Name:              "quote.transition",
		Validate:          s.validateTransition,
		Perform:           s.performTransition,
		Verify:            verifyTransition,
		Archive:           s.archiveTransition,
		BestEffortArchive: true,
		Respond: func(_ context.Context, _ *transitionInput, q *domain.Quote) (*domain.Quote, error) {
			return q, nil
		},
	}
}

// transition runs one lifecycle change through the executor and returns the
// committed quote. Errors keep their domain type.
func (s *QuoteService) transition(ctx context.Context, id string, target domain.QuoteStatus, guard guardFunc) (*domain.Quote, error) {
	in := &transitionInput{quoteID: id, target: target, guard: guard}

	quote, err := Execute(ctx, s.exec, s.transitionOperation(), in)
	if err != nil {
		return nil, fmt.Errorf("%s quote %s: %w", verb(target), id, err)
	}

	return quote, nil
}

func (s *QuoteService) validateTransition(ctx context.Context, in *transitionInput) error {
	quote, err := s.quotes.Get(ctx, in.quoteID)
	if err != nil {
		return err
	}

	now := s.clock.Now()

	change, err := domain.NewStatusChange(quote, in.target, now)
	if err != nil {
		return err
	}

	if in.guard != nil {
		if err := in.guard(ctx, quote, now); err != nil {
			return err
		}
	}

	if in.target == domain.StatusIssued {
		validUntil := now.Add(s.validity)
		change.ValidUntil = &validUntil
	}

	in.change = change

	return nil
}

func (s *QuoteService) performTransition(ctx context.Context, in *transitionInput) (*domain.Quote, error) {
	return s.quotes.UpdateStatus(ctx, in.change)
}

func verifyTransition(_ context.Context, in *transitionInput, q *domain.Quote) (*domain.Quote, error) {
	if q == nil {
		return nil, fmt.Errorf("repository returned no quote for %s", in.quoteID)
	}

	if q.Status != in.change.To {
		return nil, &domain.ConcurrentModificationError{QuoteID: q.ID, Expected: in.change.To, Actual: q.Status}
	}

	return q, nil
}

// archiveTransition notifies subscribers. The transition is already
// committed, so failures here are counted and logged by the executor but
// never undo it.
func (s *QuoteService) archiveTransition(ctx context.Context, in *transitionInput, q *domain.Quote) error {
	s.metrics.QuoteTransitioned(q.Status)

	s.log(ctx).InfoContext(ctx, "quote transitioned",
		slog.String("quote_id", q.ID),
		slog.String("from", string(in.change.From)),
		slog.String("to", string(q.Status)),
		slog.Int("version", q.Version),
	)

	if s.events == nil {
		return nil
	}

	event, ok := domain.NewQuoteEvent(q, in.change.At)
	if !ok {
		return nil
	}

	if err := s.events.Publish(ctx, event); err != nil {
		s.metrics.EventPublishFailed(event.EventType())
		return fmt.Errorf("publishing %s: %w", event.EventType(), err)
	}

	return nil
}

func verb(target domain.QuoteStatus) string {
	switch target {
	case domain.StatusIssued:
		return "issuing"
	case domain.StatusAccepted:
		return "accepting"
	case domain.StatusExpired:
		return "expiring"
	case domain.StatusCancelled:
		return "cancelling"
	default:
		return "transitioning"
	}
}
