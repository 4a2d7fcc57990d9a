package concurrent

import (
	"context"

	"github.com/juniorbueno0/coppercaves/pkg/sequence"
	"golang.org/x/sync/errgroup"
)

// MapLimit applies mapFn to every element with at most workers goroutines
// and returns the results in input order. The first error cancels ctx for the
// remaining calls and is returned. workers <= 1 runs inline on the caller.
func MapLimit[T any, R any](ctx context.Context, i *sequence.Iterator[T], workers int, mapFn func(context.Context, T) (R, error)) ([]R, error) {
	in := i.Collect()
	out := make([]R, len(in))

	if workers <= 1 {
		for idx, v := range in {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			r, err := mapFn(ctx, v)
			if err != nil {
				return nil, err
			}
			out[idx] = r
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for idx, v := range in {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := mapFn(gctx, v)
			if err != nil {
				return err
			}
			out[idx] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
