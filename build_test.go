package svo

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.viam.com/test"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestBuildNoSurface(t *testing.T) {
	for _, v := range []float64{1, -1} {
		tree := mustBuild(t, constantSampler(v), 5)
		test.That(t, tree.Empty(), test.ShouldBeTrue)
		test.That(t, tree.Leaves(), test.ShouldBeEmpty)
		test.That(t, tree.String(), test.ShouldEqual, "")
	}
}

func TestBuildSphereShell(t *testing.T) {
	const maxLevel = 5
	s := sphereSampler(1)
	tree := mustBuild(t, s, maxLevel)
	test.That(t, tree.Empty(), test.ShouldBeFalse)

	leaves := tree.Leaves()
	test.That(t, leaves, test.ShouldNotBeEmpty)
	for _, v := range leaves {
		test.That(t, v.Level, test.ShouldEqual, maxLevel)
		test.That(t, v.Size, test.ShouldEqual, 0.125)
		if !IsEdge(s, v) {
			t.Fatalf("leaf %v is not an edge voxel", v)
		}
	}

	// The leaves are exactly the edge voxels of the level grid.
	var want []Voxel
	const n = 16
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for k := 0; k < n; k++ {
				v := Voxel{
					Position: r3.Vec{X: -1 + float64(i)/8, Y: -1 + float64(j)/8, Z: -1 + float64(k)/8},
					Size:     0.125,
					Level:    maxLevel,
				}
				if IsEdge(s, v) {
					want = append(want, v)
				}
			}
		}
	}
	if diff := cmp.Diff(sortVoxels(want), sortVoxels(leaves)); diff != "" {
		t.Errorf("leaves mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildArenaLayout(t *testing.T) {
	tree := mustBuild(t, sphereSampler(0.8), 5)
	test.That(t, tree.Root().Parent, test.ShouldEqual, int32(noNode))
	test.That(t, tree.Root().Voxel, test.ShouldResemble, tree.RootVoxel())

	// Walk visits the arena in storage order.
	next := 0
	tree.Walk(func(n *Node) bool {
		if n != &tree.Nodes[next] {
			t.Fatalf("walk visited node %v out of arena order at %d", n, next)
		}
		next++
		return true
	})
	test.That(t, next, test.ShouldEqual, len(tree.Nodes))

	for idx := range tree.Nodes {
		n := &tree.Nodes[idx]
		kids := 0
		for i := 0; i < 8; i++ {
			c, ok := n.Child(i)
			if !ok {
				continue
			}
			kids++
			test.That(t, c, test.ShouldBeGreaterThan, int32(idx))
			child := &tree.Nodes[c]
			test.That(t, child.Parent, test.ShouldEqual, int32(idx))
			test.That(t, child.Voxel, test.ShouldResemble, childVoxel(n.Voxel, i))
		}
		if n.Leaf {
			test.That(t, kids, test.ShouldEqual, 0)
			test.That(t, n.Level, test.ShouldEqual, tree.MaxLevel)
		} else {
			test.That(t, kids, test.ShouldBeGreaterThan, 0)
			test.That(t, n.Level, test.ShouldBeLessThan, tree.MaxLevel)
		}
	}
}

func TestBuildWalkSkip(t *testing.T) {
	tree := mustBuild(t, sphereSampler(1), 4)
	visited := 0
	tree.Walk(func(n *Node) bool {
		visited++
		return n.Level < 2
	})
	test.That(t, visited, test.ShouldEqual, 9)
}

func TestBuildRootLeaf(t *testing.T) {
	tree := mustBuild(t, sphereSampler(1), 1)
	test.That(t, len(tree.Nodes), test.ShouldEqual, 1)
	test.That(t, tree.Root().Leaf, test.ShouldBeTrue)
	test.That(t, tree.Leaves(), test.ShouldResemble, []Voxel{tree.RootVoxel()})
}

func TestBuildInvalidConfig(t *testing.T) {
	for name, cfg := range map[string]BuildConfig{
		"zero level":    DefaultBuildConfig(0),
		"deep level":    DefaultBuildConfig(MaxSupportedLevel + 1),
		"zero size":     {MaxLevel: 3},
		"negative size": {MaxLevel: 3, Size: -2},
		"inf size":      {MaxLevel: 3, Size: math.Inf(1)},
		"nan origin":    {MaxLevel: 3, Size: 1, Origin: r3.Vec{Y: math.NaN()}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := cfg.Build(sphereSampler(1))
			test.That(t, errors.Is(err, ErrInvalidConfig), test.ShouldBeTrue)
		})
	}
	_, err := Build(nil, 3)
	test.That(t, errors.Is(err, ErrInvalidConfig), test.ShouldBeTrue)
}

func TestBuildCustomCube(t *testing.T) {
	cfg := BuildConfig{MaxLevel: 4, Origin: r3.Vec{X: 1, Y: 1, Z: 1}, Size: 4}
	s := SamplerFunc(func(x, y, z float64) float64 {
		return (x-3)*(x-3) + (y-3)*(y-3) + (z-3)*(z-3) - 4
	})
	tree, err := cfg.Build(s)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tree.Origin, test.ShouldResemble, cfg.Origin)
	for _, v := range tree.Leaves() {
		test.That(t, v.Size, test.ShouldEqual, 0.5)
		test.That(t, IsEdge(s, v), test.ShouldBeTrue)
	}
	// Same shape as the unit sphere over the default cube, scaled by 2.
	moved := mustBuild(t, sphereSampler(1), 4)
	test.That(t, len(tree.Leaves()), test.ShouldEqual, len(moved.Leaves()))
}

func TestBuildAttributes(t *testing.T) {
	cfg := DefaultBuildConfig(5)
	cfg.Attributes = true
	tree, err := cfg.Build(sphereSampler(1))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tree.Attributed, test.ShouldBeTrue)
	for _, n := range tree.Nodes {
		test.That(t, r3.Norm(n.Normal), test.ShouldAlmostEqual, 1, 1e-9)
		if !n.Leaf {
			continue
		}
		out := r3.Unit(n.Center())
		if r3.Dot(n.Normal, out) < 0.9 {
			t.Errorf("leaf %v normal %v does not point outward", n.Voxel, n.Normal)
		}
		test.That(t, n.Color, test.ShouldResemble, normalColor(n.Normal))
	}
	// Internal colors average their children.
	root := tree.Root()
	var sum float64
	count := 0
	for _, c := range root.Children {
		if c != noNode {
			sum += tree.Nodes[c].Color.R
			count++
		}
	}
	test.That(t, root.Color.R, test.ShouldAlmostEqual, sum/float64(count))
}

func TestBuildWithoutAttributes(t *testing.T) {
	tree := mustBuild(t, sphereSampler(1), 3)
	for _, n := range tree.Nodes {
		test.That(t, n.Normal, test.ShouldResemble, r3.Vec{})
	}
}

func TestNormalOrUp(t *testing.T) {
	test.That(t, normalOrUp(r3.Vec{}), test.ShouldResemble, r3.Vec{Y: 1})
	test.That(t, normalOrUp(r3.Vec{X: math.Inf(1)}), test.ShouldResemble, r3.Vec{Y: 1})
	test.That(t, normalOrUp(r3.Vec{Z: -3}), test.ShouldResemble, r3.Vec{Z: -1})
}

func TestBuildLogsSummary(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	cfg := DefaultBuildConfig(4)
	cfg.Logger = zap.New(core)
	tree, err := cfg.Build(sphereSampler(1))
	test.That(t, err, test.ShouldBeNil)

	entries := logs.FilterMessage("octree built").All()
	test.That(t, len(entries), test.ShouldEqual, 1)
	fields := entries[0].ContextMap()
	test.That(t, fields["nodes"], test.ShouldEqual, int64(len(tree.Nodes)))
	test.That(t, fields["leaves"], test.ShouldEqual, int64(len(tree.Leaves())))
}
