package svo

import (
	"math"
	"sort"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/spatial/r3"
)

// sphereSampler returns the density x²+y²+z²-r².
func sphereSampler(r float64) Sampler {
	return SamplerFunc(func(x, y, z float64) float64 {
		return x*x + y*y + z*z - r*r
	})
}

func constantSampler(v float64) Sampler {
	return SamplerFunc(func(x, y, z float64) float64 { return v })
}

// handTree builds trees node by node over the [-1, 1]³ cube.
type handTree struct{ t *Tree }

func newHandTree(maxLevel int) *handTree {
	t := &Tree{Origin: r3.Vec{X: -1, Y: -1, Z: -1}, Size: 2, MaxLevel: maxLevel}
	t.Nodes = []Node{newNode(t.RootVoxel(), maxLevel == 1, noNode)}
	return &handTree{t: t}
}

// add creates octant i of parent and returns its index.
func (h *handTree) add(parent int32, i int) int32 {
	v := childVoxel(h.t.Nodes[parent].Voxel, i)
	idx := int32(len(h.t.Nodes))
	h.t.Nodes = append(h.t.Nodes, newNode(v, v.Level == h.t.MaxLevel, parent))
	h.t.Nodes[parent].Children[i] = idx
	return idx
}

func mustBuild(t *testing.T, s Sampler, maxLevel int) *Tree {
	t.Helper()
	tree, err := Build(s, maxLevel)
	test.That(t, err, test.ShouldBeNil)
	return tree
}

func mustCompress(t *testing.T, tree *Tree) *Compact {
	t.Helper()
	c, err := Compress(tree)
	test.That(t, err, test.ShouldBeNil)
	return c
}

// sortVoxels orders voxels by position so sets can be compared.
func sortVoxels(v []Voxel) []Voxel {
	sort.Slice(v, func(i, j int) bool {
		a, b := v[i].Position, v[j].Position
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})
	return v
}

func hitVoxels(hits []Hit) []Voxel {
	v := make([]Voxel, len(hits))
	for i, h := range hits {
		v[i] = h.Voxel
	}
	return v
}

func TestOctantOffsets(t *testing.T) {
	for i, off := range octantOffset {
		test.That(t, off.X == 1, test.ShouldEqual, i&octX != 0)
		test.That(t, off.Y == 1, test.ShouldEqual, i&octY != 0)
		test.That(t, off.Z == 1, test.ShouldEqual, i&octZ != 0)
	}
	root := Voxel{Position: r3.Vec{X: -1, Y: -1, Z: -1}, Size: 2, Level: 1}
	for i := 0; i < 8; i++ {
		child := childVoxel(root, i)
		test.That(t, child.Size, test.ShouldEqual, 1.0)
		test.That(t, child.Level, test.ShouldEqual, 2)
		test.That(t, OctantOf(root, child.Center()), test.ShouldEqual, i)
	}
	// Points on a splitting plane belong to the upper octant.
	test.That(t, OctantOf(root, r3.Vec{}), test.ShouldEqual, octX|octY|octZ)
	test.That(t, OctantOf(root, r3.Vec{X: -0.5, Y: 0, Z: -0.5}), test.ShouldEqual, octY)
}

func TestVoxelGeometry(t *testing.T) {
	v := Voxel{Position: r3.Vec{X: 0.5, Y: -1, Z: 0}, Size: 0.25, Level: 4}
	test.That(t, v.Center(), test.ShouldResemble, r3.Vec{X: 0.625, Y: -0.875, Z: 0.125})
	box := v.Box()
	test.That(t, box.Min, test.ShouldResemble, v.Position)
	test.That(t, box.Max, test.ShouldResemble, r3.Vec{X: 0.75, Y: -0.75, Z: 0.25})
	test.That(t, v.Contains(v.Position), test.ShouldBeTrue)
	test.That(t, v.Contains(box.Max), test.ShouldBeFalse)
	test.That(t, v.Contains(r3.Vec{X: 0.6, Y: -0.8, Z: 0.25}), test.ShouldBeFalse)
}

func TestOrderString(t *testing.T) {
	test.That(t, FrontToBack.String(), test.ShouldEqual, "front-to-back")
	test.That(t, Unordered.String(), test.ShouldEqual, "unordered")
	test.That(t, Order(9).String(), test.ShouldEqual, "Order(9)")
}

func TestRayAt(t *testing.T) {
	r := Ray{Origin: r3.Vec{X: 1}, Direction: r3.Vec{Y: 2}}
	test.That(t, r.At(0.5), test.ShouldResemble, r3.Vec{X: 1, Y: 1})
	test.That(t, isFinite(math.Inf(1)), test.ShouldBeFalse)
}
