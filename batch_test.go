package svo

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestTraceRays(t *testing.T) {
	tree := mustBuild(t, sphereSampler(1), 5)
	tracer := NewTreeTracer(tree, FrontToBack)
	rays := make([]Ray, len(sphereRays))
	for i, tc := range sphereRays {
		rays[i] = tc.ray
	}
	for _, workers := range []int{0, 1, 3} {
		got, err := TraceRays(context.Background(), tracer, rays, workers)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, len(got), test.ShouldEqual, len(rays))
		for i, r := range rays {
			want, err := tracer.Trace(r)
			test.That(t, err, test.ShouldBeNil)
			if diff := cmp.Diff(want, got[i]); diff != "" {
				t.Errorf("workers=%d ray %d mismatch (-sequential +batch):\n%s", workers, i, diff)
			}
		}
	}

	got, err := TraceRays(context.Background(), tracer, nil, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldBeEmpty)
}

func TestTraceRaysError(t *testing.T) {
	tracer := NewTreeTracer(mustBuild(t, sphereSampler(1), 3), FrontToBack)
	rays := []Ray{
		sphereRays[0].ray,
		{Origin: r3.Vec{X: -2}},
		sphereRays[1].ray,
	}
	_, err := TraceRays(context.Background(), tracer, rays, 2)
	test.That(t, errors.Is(err, ErrDegenerateRay), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "ray 1")
}

func TestTraceRaysCancelled(t *testing.T) {
	tracer := NewTreeTracer(mustBuild(t, sphereSampler(1), 3), FrontToBack)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := TraceRays(ctx, tracer, []Ray{sphereRays[0].ray}, 1)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
}
