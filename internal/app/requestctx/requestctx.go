// Package requestctx provides per-request memoization of reads and staged
// writes with compensation.
//
// # Memoized reads
//
// Pricing performs many reference data lookups. Inside one request the same
// lane or surcharge is fetched at most once:
//
//	rc := requestctx.New()
//	ctx = requestctx.WithContext(ctx, rc)
//	rate, err := requestctx.Fetch(ctx, "rate:"+key.String(), func(ctx context.Context) (*domain.RateEntry, error) {
//	    return rates.FindRate(ctx, key, now)
//	})
//
// # Staged writes
//
// Quote creation stages its writes and commits them in order. When a step
// fails, the steps that already ran are compensated in reverse order:
//
//	rc.AddAction(reserveKey)
//	rc.AddAction(storeQuote)
//	err := rc.Commit(ctx)
package requestctx

import (
	"context"
	"errors"
	"sync"
)

// ErrAlreadyCommitted is returned when adding actions to, or committing, a
// context that was already committed.
var ErrAlreadyCommitted = errors.New("request context already committed")

type ctxKey struct{}

// RequestContext holds memoized values and staged actions for one request.
type RequestContext struct {
	cache sync.Map

	mu        sync.Mutex
	actions   []Action
	committed bool
}

// New creates an empty RequestContext.
func New() *RequestContext {
	return &RequestContext{}
}

// FromContext returns the RequestContext stored in ctx, or nil.
func FromContext(ctx context.Context) *RequestContext {
	if ctx == nil {
		return nil
	}

	rc, _ := ctx.Value(ctxKey{}).(*RequestContext)

	return rc
}

// WithContext stores rc in ctx.
func WithContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, rc)
}

// Ensure returns ctx unchanged if it already carries a RequestContext,
// otherwise it attaches a fresh one.
func Ensure(ctx context.Context) (context.Context, *RequestContext) {
	if rc := FromContext(ctx); rc != nil {
		return ctx, rc
	}

	rc := New()

	return WithContext(ctx, rc), rc
}

// Fetch returns the memoized value for key, calling fn on a miss. Errors are
// not cached. Without a RequestContext in ctx, fn is called directly.
func Fetch[T any](ctx context.Context, key string, fn func(context.Context) (T, error)) (T, error) {
	rc := FromContext(ctx)
	if rc == nil {
		return fn(ctx)
	}

	if cached, ok := rc.cache.Load(key); ok {
		return cached.(T), nil
	}

	value, err := fn(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	actual, _ := rc.cache.LoadOrStore(key, value)

	return actual.(T), nil
}
