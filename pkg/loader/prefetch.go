package loader

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Prefetch loads every URL through l with at most concurrency loads in
// flight, typically to fill a [Cached] loader ahead of a run. It returns
// the number of successful loads. Failed loads are joined into the error;
// cancellation of ctx stops the remaining loads and returns ctx.Err().
func Prefetch(ctx context.Context, l Loader, urls []string, concurrency int) (int, error) {
	if concurrency <= 0 {
		concurrency = 8
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var (
		mu     sync.Mutex
		loaded int
		failed []error
	)
	for _, u := range urls {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			_, err := l.Load(gctx, u)
			if err := gctx.Err(); err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, err)
				return nil
			}
			loaded++
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return loaded, err
	}
	if err := ctx.Err(); err != nil {
		return loaded, err
	}
	return loaded, errors.Join(failed...)
}
