package svo

import "gonum.org/v1/gonum/spatial/r3"

// Octant index bits. Octant i of a node has its minimum corner at
// parent.Position + octantOffset[i]*parent.Size/2. The same bits address the
// valid and leaf masks of a ChildDescriptor and form the tracer's mirror mask.
const (
	octX = 1 << 0
	octY = 1 << 1
	octZ = 1 << 2
)

// octantBits is indexed by axis (0=x, 1=y, 2=z).
var octantBits = [3]int{octX, octY, octZ}

// octantOffset is the corner offset table of the 8 children, in octant order.
var octantOffset = [8]r3.Vec{
	{X: 0, Y: 0, Z: 0},
	{X: 1, Y: 0, Z: 0},
	{X: 0, Y: 1, Z: 0},
	{X: 1, Y: 1, Z: 0},
	{X: 0, Y: 0, Z: 1},
	{X: 1, Y: 0, Z: 1},
	{X: 0, Y: 1, Z: 1},
	{X: 1, Y: 1, Z: 1},
}

// faceDirections are the six probe directions used for edge voxel detection.
var faceDirections = [6]r3.Vec{
	{X: 1}, {X: -1},
	{Y: 1}, {Y: -1},
	{Z: 1}, {Z: -1},
}

// childVoxel returns the voxel of octant i of v.
func childVoxel(v Voxel, i int) Voxel {
	half := v.Size / 2
	return Voxel{
		Position: r3.Add(v.Position, r3.Scale(half, octantOffset[i])),
		Size:     half,
		Level:    v.Level + 1,
	}
}

// OctantOf returns the index of the octant of v that contains p, using
// the half-open convention: a point on a splitting plane belongs to the upper octant.
func OctantOf(v Voxel, p r3.Vec) int {
	c := v.Center()
	i := 0
	if p.X >= c.X {
		i |= octX
	}
	if p.Y >= c.Y {
		i |= octY
	}
	if p.Z >= c.Z {
		i |= octZ
	}
	return i
}
