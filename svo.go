// Package svo builds and queries sparse voxel octrees (SVO) extracted from
// implicit density fields.
//
// A density field is sampled over a root cube which is recursively subdivided
// into octants. Only octants on the zero-isosurface shell are kept. The
// resulting tree can be traced directly or compacted into a flat, pointer-free
// array of 32 bit child descriptors (plus an optional attachment array of
// compressed colors and normals) suitable for upload to a GPU buffer.
package svo

import (
	"math"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"github.com/soypat/svo/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrInvalidConfig is returned for bad build parameters and for octrees
	// that do not fit the descriptor layout.
	ErrInvalidConfig = errors.New("svo: invalid configuration")
	// ErrDegenerateRay is returned when a ray has no direction to trace.
	ErrDegenerateRay = errors.New("svo: degenerate ray direction")
	// ErrCorruptData is returned when a descriptor or attachment array
	// references data outside of its bounds.
	ErrCorruptData = errors.New("svo: corrupt octree data")
)

// Sampler is the interface to a scalar density field. Evaluate returns a
// negative value for points inside solid and a positive value for empty space.
type Sampler interface {
	Evaluate(p r3.Vec) float64
}

// SamplerFunc adapts a plain function to the Sampler interface.
type SamplerFunc func(x, y, z float64) float64

// Evaluate calls f(p.X, p.Y, p.Z).
func (f SamplerFunc) Evaluate(p r3.Vec) float64 { return f(p.X, p.Y, p.Z) }

// Ray is a half-line starting at Origin. Direction need not be normalized.
type Ray struct {
	Origin    r3.Vec
	Direction r3.Vec
}

// At returns the point along the ray at parameter t.
func (r Ray) At(t float64) r3.Vec {
	return r3.Add(r.Origin, r3.Scale(t, r.Direction))
}

// Voxel is the axis aligned cube of an octree node.
type Voxel struct {
	// Position is the minimum corner of the cube.
	Position r3.Vec
	Size     float64
	// Level is the depth of the node. The root cube is level 1.
	Level int
}

// Box returns the voxel's bounds.
func (v Voxel) Box() r3.Box {
	return r3.Box(d3.Cube(v.Position, v.Size))
}

// Center returns the center point of the voxel.
func (v Voxel) Center() r3.Vec {
	return r3.Add(v.Position, d3.Elem(v.Size/2))
}

// Contains reports whether p lies in the half-open cube [Position, Position+Size).
func (v Voxel) Contains(p r3.Vec) bool {
	return d3.Cube(v.Position, v.Size).ContainsHalfOpen(p)
}

// Hit is a leaf voxel intersected by a ray.
type Hit struct {
	Voxel
	// T is the ray parameter at which the ray enters the voxel, in units of
	// the ray's normalized direction. It is negative when the ray starts
	// inside the voxel.
	T float64
	// Color and Normal are only set when Attributed is true.
	Color      colorful.Color
	Normal     r3.Vec
	Attributed bool
}

// Tracer intersects rays with an octree. Tracers are safe for concurrent use
// since the structures they trace are never modified.
type Tracer interface {
	// Trace returns the leaf voxels intersected by r. The returned error
	// is non-nil only for degenerate rays or corrupt octree data.
	Trace(r Ray) ([]Hit, error)
}

// Order selects the traversal strategy of a Tracer.
type Order uint8

const (
	// FrontToBack visits octants along the ray with the parametric
	// next-octant state machine. Hits are sorted by increasing T.
	FrontToBack Order = iota
	// Unordered recurses into all 8 children in octant index order and
	// discards missed ones. Yields the same hit set as FrontToBack in
	// unspecified order.
	Unordered
)

func (o Order) String() string {
	switch o {
	case FrontToBack:
		return "front-to-back"
	case Unordered:
		return "unordered"
	}
	return "Order(" + strconv.Itoa(int(o)) + ")"
}

// isFinite reports whether f is neither NaN nor infinite.
func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
