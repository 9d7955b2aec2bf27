package svo

import (
	"context"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// TraceRays traces rays concurrently with up to workers goroutines and
// returns the hits of rays[i] in element i. workers <= 0 uses GOMAXPROCS.
// The first error or the cancellation of ctx stops the batch.
func TraceRays(ctx context.Context, tracer Tracer, rays []Ray, workers int) ([][]Hit, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	out := make([][]Hit, len(rays))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range rays {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			hits, err := tracer.Trace(rays[i])
			if err != nil {
				return errors.Wrapf(err, "ray %d", i)
			}
			out[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
