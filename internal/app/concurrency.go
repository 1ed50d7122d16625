package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Parallel2 runs two independent lookups concurrently and returns both
// results, or the first error. The other call is cancelled on failure.
func Parallel2[T1, T2 any](
	ctx context.Context,
	fn1 func(context.Context) (T1, error),
	fn2 func(context.Context) (T2, error),
) (T1, T2, error) {
	var (
		result1 T1
		result2 T2
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		result1, err = fn1(gctx)

		return err
	})

	g.Go(func() error {
		var err error
		result2, err = fn2(gctx)

		return err
	})

	if err := g.Wait(); err != nil {
		var (
			zero1 T1
			zero2 T2
		)

		return zero1, zero2, err
	}

	return result1, result2, nil
}

// ParallelLimit maps fn over items with at most limit calls in flight.
// Results keep the order of items regardless of completion order.
func ParallelLimit[T, R any](ctx context.Context, limit int, items []T, fn func(context.Context, T) (R, error)) ([]R, error) {
	if limit < 1 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	results := make([]R, len(items))

	for i, item := range items {
		g.Go(func() error {
			r, err := fn(gctx, item)
			if err != nil {
				return err
			}

			results[i] = r

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// FanOut feeds items to a fixed pool of workers. Each worker handles items
// sequentially; the first error stops the pool.
//
//	err := FanOut(ctx, 4, overdue, func(ctx context.Context, q *domain.Quote) error {
//	    return expire(ctx, q.ID)
//	})
func FanOut[T any](ctx context.Context, workers int, items []T, fn func(context.Context, T) error) error {
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	queue := make(chan T)

	for range workers {
		g.Go(func() error {
			for item := range queue {
				if err := fn(gctx, item); err != nil {
					return err
				}
			}

			return nil
		})
	}

	g.Go(func() error {
		defer close(queue)

		for _, item := range items {
			select {
			case queue <- item:
			case <-gctx.Done():
				return gctx.Err()
			}
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("fan out: %w", err)
	}

	return nil
}
