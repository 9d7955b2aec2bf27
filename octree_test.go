package svo

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestSVOModes(t *testing.T) {
	cfg := DefaultBuildConfig(5)
	naive, err := New(sphereSampler(1), cfg, ModeNaive)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, naive.Mode(), test.ShouldEqual, ModeNaive)
	test.That(t, naive.Compact(), test.ShouldBeNil)
	test.That(t, naive.Tree(), test.ShouldNotBeNil)

	compact, err := New(sphereSampler(1), cfg, ModeCompact)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, compact.Mode(), test.ShouldEqual, ModeCompact)
	test.That(t, compact.Tree(), test.ShouldBeNil)
	test.That(t, compact.Compact(), test.ShouldNotBeNil)

	nv, err := naive.Voxels()
	test.That(t, err, test.ShouldBeNil)
	cv, err := compact.Voxels()
	test.That(t, err, test.ShouldBeNil)
	if diff := cmp.Diff(nv, cv); diff != "" {
		t.Fatalf("voxels mismatch (-naive +compact):\n%s", diff)
	}

	for i, tc := range sphereRays {
		nh, err := naive.Trace(tc.ray)
		test.That(t, err, test.ShouldBeNil)
		ch, err := compact.Trace(tc.ray)
		test.That(t, err, test.ShouldBeNil)
		if diff := cmp.Diff(nh, ch); diff != "" {
			t.Errorf("ray %d mismatch (-naive +compact):\n%s", i, diff)
		}
		test.That(t, hitPositions(nh), test.ShouldResemble, tc.want)

		all, err := compact.Tracer(Unordered).Trace(tc.ray)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, sortVoxels(hitVoxels(all)), test.ShouldResemble, sortVoxels(hitVoxels(nh)))
		all, err = naive.Tracer(Unordered).Trace(tc.ray)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, len(all), test.ShouldEqual, len(nh))
	}
}

func TestSVOErrors(t *testing.T) {
	_, err := New(sphereSampler(1), DefaultBuildConfig(0), ModeCompact)
	test.That(t, errors.Is(err, ErrInvalidConfig), test.ShouldBeTrue)
	_, err = New(sphereSampler(1), DefaultBuildConfig(3), Mode(7))
	test.That(t, errors.Is(err, ErrInvalidConfig), test.ShouldBeTrue)
	_, err = FromCompact(&Compact{MaxLevel: 3, Size: 2})
	test.That(t, errors.Is(err, ErrCorruptData), test.ShouldBeTrue)
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeNaive, ModeCompact} {
		got, err := ParseMode(m.String())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got, test.ShouldEqual, m)
	}
	_, err := ParseMode("octree")
	test.That(t, errors.Is(err, ErrInvalidConfig), test.ShouldBeTrue)
	test.That(t, Mode(7).String(), test.ShouldEqual, "Mode(7)")
}
