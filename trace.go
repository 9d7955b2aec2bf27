package svo

import (
	"github.com/pkg/errors"
	"github.com/soypat/svo/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// parallelEpsilon replaces direction components smaller than itself once the
// ray has been mirrored into the positive octant. Planes perpendicular to such
// an axis are then crossed at parameters far outside any root cube.
const parallelEpsilon = 1e-12

// octreeSource abstracts the two octree representations for the tracer.
// N is a handle to a node.
type octreeSource[N any] interface {
	// root returns the root handle or false if the octree is empty.
	root() (N, bool)
	isLeaf(n N) bool
	// child returns the handle of octant i of non-leaf n.
	child(n N, i int, level int) (N, bool, error)
	// hit fills in the attributes of a hit on leaf n.
	hit(n N, h *Hit)
}

// traverser runs the parametric octree traversal over an octreeSource.
type traverser[N any] struct {
	src      octreeSource[N]
	rootVox  Voxel
	maxLevel int
	order    Order
}

// traversal holds the state of a single ray.
type traversal[N any] struct {
	*traverser[N]
	// mirror has octX, octY or octZ set for every axis along which the ray
	// direction was negated.
	mirror int
	hits   []Hit
}

func (tr *traverser[N]) trace(r Ray) ([]Hit, error) {
	if !d3.IsFinite(r.Origin) || !d3.IsFinite(r.Direction) {
		return nil, errors.Wrapf(ErrDegenerateRay, "non-finite ray %v", r)
	}
	norm := r3.Norm(r.Direction)
	if norm == 0 || !isFinite(norm) {
		return nil, errors.Wrapf(ErrDegenerateRay, "direction %v", r.Direction)
	}
	root, ok := tr.src.root()
	if !ok {
		return nil, nil
	}
	o := r.Origin
	dir := r3.Scale(1/norm, r.Direction)
	box := d3.Cube(tr.rootVox.Position, tr.rootVox.Size)
	center := box.Center()

	tv := traversal[N]{traverser: tr}
	for axis, bit := range octantBits {
		if d3.Axis(dir, axis) < 0 {
			o = d3.SetAxis(o, axis, 2*d3.Axis(center, axis)-d3.Axis(o, axis))
			dir = d3.SetAxis(dir, axis, -d3.Axis(dir, axis))
			tv.mirror |= bit
		}
		if d3.Axis(dir, axis) < parallelEpsilon {
			dir = d3.SetAxis(dir, axis, parallelEpsilon)
		}
	}
	t0 := divElem(r3.Sub(box.Min, o), dir)
	t1 := divElem(r3.Sub(box.Max, o), dir)
	if err := tv.subtree(t0, t1, root, tr.rootVox); err != nil {
		return nil, err
	}
	return tv.hits, nil
}

// subtree visits node n whose cube v is crossed by the ray over [max(t0), min(t1)).
// t0 and t1 are the parameters of the ray at the min and max planes of v in
// the mirrored frame.
func (tv *traversal[N]) subtree(t0, t1 r3.Vec, n N, v Voxel) error {
	tmin, tmax := d3.Max(t0), d3.Min(t1)
	if tmin >= tmax || tmax <= 0 {
		return nil
	}
	if tv.src.isLeaf(n) {
		h := Hit{Voxel: v, T: tmin}
		tv.src.hit(n, &h)
		tv.hits = append(tv.hits, h)
		return nil
	}
	if v.Level >= tv.maxLevel {
		return errors.Wrapf(ErrCorruptData, "non-leaf node at level %d, max level is %d", v.Level, tv.maxLevel)
	}
	tm := d3.Mid(t0, t1)
	visit := func(oct int) error {
		i := oct ^ tv.mirror
		child, ok, err := tv.src.child(n, i, v.Level)
		if err != nil || !ok {
			return err
		}
		c0, c1 := childParams(oct, t0, tm, t1)
		return tv.subtree(c0, c1, child, childVoxel(v, i))
	}

	if tv.order == Unordered {
		for i := 0; i < 8; i++ {
			if err := visit(i ^ tv.mirror); err != nil {
				return err
			}
		}
		return nil
	}
	for oct := firstOctant(t0, tm); oct < 8; {
		if err := visit(oct); err != nil {
			return err
		}
		_, c1 := childParams(oct, t0, tm, t1)
		oct = nextOctant(oct, c1)
	}
	return nil
}

// childParams returns the parameters of the child cube at mirrored octant oct.
func childParams(oct int, t0, tm, t1 r3.Vec) (c0, c1 r3.Vec) {
	c0, c1 = t0, tm
	if oct&octX != 0 {
		c0.X, c1.X = tm.X, t1.X
	}
	if oct&octY != 0 {
		c0.Y, c1.Y = tm.Y, t1.Y
	}
	if oct&octZ != 0 {
		c0.Z, c1.Z = tm.Z, t1.Z
	}
	return c0, c1
}

// firstOctant returns the mirrored octant through which the ray enters a node.
// The entry plane is the one with the largest t0; ties favor x, then y.
func firstOctant(t0, tm r3.Vec) int {
	oct := 0
	switch {
	case t0.X >= t0.Y && t0.X >= t0.Z:
		// Entry through a YZ plane.
		if tm.Y < t0.X {
			oct |= octY
		}
		if tm.Z < t0.X {
			oct |= octZ
		}
	case t0.Y >= t0.Z:
		if tm.X < t0.Y {
			oct |= octX
		}
		if tm.Z < t0.Y {
			oct |= octZ
		}
	default:
		if tm.X < t0.Z {
			oct |= octX
		}
		if tm.Y < t0.Z {
			oct |= octY
		}
	}
	return oct
}

// nextOctant returns the mirrored octant the ray moves into after leaving oct,
// whose exit parameters are t1, or 8 if the ray leaves the parent.
func nextOctant(oct int, t1 r3.Vec) int {
	var bit int
	if t1.X < t1.Y {
		if t1.X < t1.Z {
			bit = octX
		} else {
			bit = octZ
		}
	} else if t1.Y < t1.Z {
		bit = octY
	} else {
		bit = octZ
	}
	if oct&bit != 0 {
		return 8
	}
	return oct | bit
}

func divElem(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: a.X / b.X, Y: a.Y / b.Y, Z: a.Z / b.Z}
}

// TreeTracer traces rays through a Tree.
type TreeTracer struct {
	tr traverser[int32]
}

var _ Tracer = (*TreeTracer)(nil)

// NewTreeTracer returns a tracer over t. t must not be modified while in use.
func NewTreeTracer(t *Tree, order Order) *TreeTracer {
	return &TreeTracer{tr: traverser[int32]{
		src:      treeSource{t},
		rootVox:  t.RootVoxel(),
		maxLevel: t.MaxLevel,
		order:    order,
	}}
}

// Trace returns the leaves of the tree intersected by r. See Order for the
// ordering guarantees of the hits.
func (tt *TreeTracer) Trace(r Ray) ([]Hit, error) { return tt.tr.trace(r) }

type treeSource struct{ t *Tree }

func (s treeSource) root() (int32, bool) { return 0, !s.t.Empty() }

func (s treeSource) isLeaf(n int32) bool { return s.t.Nodes[n].Leaf }

func (s treeSource) child(n int32, i, level int) (int32, bool, error) {
	c := s.t.Nodes[n].Children[i]
	if c == noNode {
		return noNode, false, nil
	}
	if c < 0 || int(c) >= len(s.t.Nodes) {
		return noNode, false, errors.Wrapf(ErrCorruptData, "level %d child %d: node index %d out of range", level, i, c)
	}
	return c, true, nil
}

func (s treeSource) hit(n int32, h *Hit) {
	if !s.t.Attributed {
		return
	}
	node := &s.t.Nodes[n]
	h.Color, h.Normal, h.Attributed = node.Color, node.Normal, true
}

// CompactTracer traces rays through a Compact octree.
type CompactTracer struct {
	tr traverser[compactRef]
}

var _ Tracer = (*CompactTracer)(nil)

// NewCompactTracer returns a tracer over c. It fails if c's header or array
// lengths are inconsistent. Descriptor contents are checked while tracing.
func NewCompactTracer(c *Compact, order Order) (*CompactTracer, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &CompactTracer{tr: traverser[compactRef]{
		src:      compactSource{c},
		rootVox:  c.RootVoxel(),
		maxLevel: c.MaxLevel,
		order:    order,
	}}, nil
}

// Trace returns the leaves of the octree intersected by r.
func (ct *CompactTracer) Trace(r Ray) ([]Hit, error) { return ct.tr.trace(r) }

// compactRef addresses a node in a Compact octree.
type compactRef struct {
	// slot of the node's descriptor, -1 for leaves.
	slot int
	// parent is the descriptor slot of the parent, -1 for the root.
	parent int
	octant int
}

type compactSource struct{ c *Compact }

func (s compactSource) root() (compactRef, bool) {
	switch {
	case s.c.RootLeaf:
		return compactRef{slot: -1, parent: -1}, true
	case s.c.Empty():
		return compactRef{}, false
	}
	return compactRef{slot: 0, parent: -1}, true
}

func (s compactSource) isLeaf(n compactRef) bool { return n.slot < 0 }

func (s compactSource) child(n compactRef, i, level int) (compactRef, bool, error) {
	d, err := s.c.descriptor(n.slot, level)
	if err != nil || !d.Valid(i) {
		return compactRef{}, false, err
	}
	ref := compactRef{slot: -1, parent: n.slot, octant: i}
	if !d.Leaf(i) {
		ref.slot = d.ChildSlot(i)
	}
	return ref, true, nil
}

func (s compactSource) hit(n compactRef, h *Hit) {
	if !s.c.Attributed() {
		return
	}
	if n.parent < 0 {
		att := s.c.attachment(0)
		h.Color, h.Normal = att.A, att.Normal
	} else {
		att := s.c.attachment(n.parent)
		h.Color, h.Normal = att.ChildColor(n.octant), att.Normal
	}
	h.Attributed = true
}
