package svo

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"
)

// Compact is the pointer-free form of an octree. Slot 0 holds the root's
// descriptor. Leaves have no slot of their own; they are described by the
// valid and leaf masks of their parent.
//
// Compact values are immutable once built and safe for concurrent tracing.
type Compact struct {
	Descriptors []ChildDescriptor
	// Attachments is nil or holds two words per descriptor slot, see Attachment.
	Attachments []uint32
	Origin      r3.Vec
	Size        float64
	MaxLevel    int
	// RootLeaf is set when the root cube is itself a leaf (MaxLevel 1).
	// Descriptors then holds a single zero word.
	RootLeaf bool
}

// Empty reports whether the octree holds no surface.
func (c *Compact) Empty() bool {
	return !c.RootLeaf && (len(c.Descriptors) == 0 || c.Descriptors[0] == 0)
}

// Attributed reports whether c carries attachments.
func (c *Compact) Attributed() bool { return c.Attachments != nil }

// RootVoxel returns the cube spanned by the octree.
func (c *Compact) RootVoxel() Voxel {
	return Voxel{Position: c.Origin, Size: c.Size, Level: 1}
}

// Validate checks the header fields and array lengths of c. It does not
// walk the descriptors.
func (c *Compact) Validate() error {
	switch {
	case c.MaxLevel < 1 || c.MaxLevel > MaxSupportedLevel:
		return errors.Wrapf(ErrCorruptData, "max level %d out of range", c.MaxLevel)
	case !(c.Size > 0) || !isFinite(c.Size):
		return errors.Wrapf(ErrCorruptData, "bad root size %g", c.Size)
	case !isFinite(c.Origin.X) || !isFinite(c.Origin.Y) || !isFinite(c.Origin.Z):
		return errors.Wrapf(ErrCorruptData, "non-finite root origin %v", c.Origin)
	case len(c.Descriptors) == 0:
		return errors.Wrap(ErrCorruptData, "missing root descriptor")
	case len(c.Descriptors) > MaxPointer+1:
		return errors.Wrapf(ErrCorruptData, "%d descriptors exceed addressable slots", len(c.Descriptors))
	case c.Attachments != nil && len(c.Attachments) != 2*len(c.Descriptors):
		return errors.Wrapf(ErrCorruptData, "got %d attachment words for %d descriptors", len(c.Attachments), len(c.Descriptors))
	case c.RootLeaf && (len(c.Descriptors) != 1 || c.Descriptors[0] != 0):
		return errors.Wrap(ErrCorruptData, "leaf root with descriptors")
	case c.RootLeaf && c.MaxLevel != 1:
		return errors.Wrapf(ErrCorruptData, "leaf root at max level %d", c.MaxLevel)
	}
	return nil
}

// Compress flattens t into descriptor and attachment arrays. Non-leaf children
// of a node receive consecutive slots in octant order and the node's
// descriptor is written after its subtree. Attachments are produced iff t was
// built with attributes. A tree needing a child pointer beyond MaxPointer
// fails with a wrapped ErrInvalidConfig.
func Compress(t *Tree) (*Compact, error) {
	c := &Compact{
		Descriptors: []ChildDescriptor{0},
		Origin:      t.Origin,
		Size:        t.Size,
		MaxLevel:    t.MaxLevel,
	}
	if t.Attributed {
		c.Attachments = make([]uint32, 2)
	}
	if t.Empty() {
		return c, nil
	}
	root := t.Root()
	if root.Leaf {
		c.RootLeaf = true
		if t.Attributed {
			c.Attachments[0], c.Attachments[1] = Attachment{A: root.Color, B: root.Color, Normal: root.Normal}.Encode()
		}
		return c, nil
	}
	cp := compactor{t: t, c: c}
	if err := cp.compact(0, 0, 1); err != nil {
		return nil, err
	}
	if len(c.Descriptors) > MaxPointer+1 {
		return nil, errors.Wrapf(ErrInvalidConfig, "%d descriptors exceed 16 bit addressing", len(c.Descriptors))
	}
	return c, nil
}

type compactor struct {
	t *Tree
	c *Compact
}

func (cp *compactor) node(idx int32) (*Node, error) {
	if idx < 0 || int(idx) >= len(cp.t.Nodes) {
		return nil, errors.Wrapf(ErrCorruptData, "node index %d out of range", idx)
	}
	return &cp.t.Nodes[idx], nil
}

func (cp *compactor) compact(idx int32, slot, depth int) error {
	if depth >= cp.t.MaxLevel {
		return errors.Wrapf(ErrCorruptData, "non-leaf node %d at depth %d, max level is %d", idx, depth, cp.t.MaxLevel)
	}
	n, err := cp.node(idx)
	if err != nil {
		return err
	}
	var valid, leaf uint8
	var colors [8]colorful.Color
	pointer := 0
	for i, ci := range n.Children {
		if ci == noNode {
			continue
		}
		child, err := cp.node(ci)
		if err != nil {
			return err
		}
		valid |= 1 << i
		colors[i] = child.Color
		if child.Leaf {
			leaf |= 1 << i
			continue
		}
		if pointer == 0 {
			pointer = len(cp.c.Descriptors)
		}
		cp.c.Descriptors = append(cp.c.Descriptors, 0)
		if cp.c.Attachments != nil {
			cp.c.Attachments = append(cp.c.Attachments, 0, 0)
		}
	}

	next := pointer
	for i, ci := range n.Children {
		if ci == noNode || leaf&(1<<i) != 0 {
			continue
		}
		if err := cp.compact(ci, next, depth+1); err != nil {
			return err
		}
		next++
	}

	d, err := MakeDescriptor(pointer, valid, leaf)
	if err != nil {
		return errors.Wrapf(err, "compacting level %d node at %v", n.Level, n.Position)
	}
	cp.c.Descriptors[slot] = d
	if cp.c.Attachments != nil {
		att := makeAttachment(n.Normal, colors, valid)
		cp.c.Attachments[2*slot], cp.c.Attachments[2*slot+1] = att.Encode()
	}
	return nil
}

// Expand rebuilds an attributed or plain Tree from c. Leaf colors are
// taken from their parent's palette and normals from their parent's
// attachment. Out of range slots, malformed masks and descents below
// MaxLevel fail with a wrapped ErrCorruptData.
func Expand(c *Compact) (*Tree, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	t := &Tree{
		Origin:     c.Origin,
		Size:       c.Size,
		MaxLevel:   c.MaxLevel,
		Attributed: c.Attributed(),
	}
	switch {
	case c.RootLeaf:
		n := newNode(c.RootVoxel(), true, noNode)
		if t.Attributed {
			att := DecodeAttachment(c.Attachments[0], c.Attachments[1])
			n.Normal, n.Color = att.Normal, att.A
		}
		t.Nodes = []Node{n}
		return t, nil
	case c.Empty():
		return t, nil
	}
	var rootColor colorful.Color
	if t.Attributed {
		// The root color is not stored; use the mean of its palette.
		att := c.attachment(0)
		rootColor = att.A.BlendRgb(att.B, 0.5)
	}
	if err := expandInto(t, c, 0, c.RootVoxel(), noNode, rootColor); err != nil {
		return nil, err
	}
	return t, nil
}

func expandInto(t *Tree, c *Compact, slot int, v Voxel, parent int32, color colorful.Color) error {
	d, err := c.descriptor(slot, v.Level)
	if err != nil {
		return err
	}
	idx := int32(len(t.Nodes))
	n := newNode(v, false, parent)
	var att Attachment
	if t.Attributed {
		att = c.attachment(slot)
		n.Normal, n.Color = att.Normal, color
	}
	t.Nodes = append(t.Nodes, n)
	for i := 0; i < 8; i++ {
		if !d.Valid(i) {
			continue
		}
		cv := childVoxel(v, i)
		var childColor colorful.Color
		if t.Attributed {
			childColor = att.ChildColor(i)
		}
		if d.Leaf(i) {
			if cv.Level != c.MaxLevel {
				return errors.Wrapf(ErrCorruptData, "slot %d: leaf octant %d at level %d, want %d", slot, i, cv.Level, c.MaxLevel)
			}
			leaf := newNode(cv, true, idx)
			leaf.Normal, leaf.Color = n.Normal, childColor
			t.Nodes[idx].Children[i] = int32(len(t.Nodes))
			t.Nodes = append(t.Nodes, leaf)
			continue
		}
		t.Nodes[idx].Children[i] = int32(len(t.Nodes))
		if err := expandInto(t, c, d.ChildSlot(i), cv, idx, childColor); err != nil {
			return err
		}
	}
	return nil
}

// descriptor returns the descriptor of a non-leaf node at level in slot.
func (c *Compact) descriptor(slot, level int) (ChildDescriptor, error) {
	if level >= c.MaxLevel {
		return 0, errors.Wrapf(ErrCorruptData, "descriptor slot %d at level %d, max level is %d", slot, level, c.MaxLevel)
	}
	if slot < 0 || slot >= len(c.Descriptors) {
		return 0, errors.Wrapf(ErrCorruptData, "descriptor slot %d out of range [0, %d)", slot, len(c.Descriptors))
	}
	d := c.Descriptors[slot]
	if !d.wellFormed() {
		return 0, errors.Wrapf(ErrCorruptData, "slot %d: %v", slot, d)
	}
	return d, nil
}

// attachment decodes the attachment of slot. Callers check Attributed.
func (c *Compact) attachment(slot int) Attachment {
	return DecodeAttachment(c.Attachments[2*slot], c.Attachments[2*slot+1])
}

// Walk visits the leaves of c depth first in octant order.
func (c *Compact) Walk(fn func(leaf Voxel) error) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.RootLeaf {
		return fn(c.RootVoxel())
	}
	if c.Empty() {
		return nil
	}
	return c.walk(0, c.RootVoxel(), fn)
}

func (c *Compact) walk(slot int, v Voxel, fn func(Voxel) error) error {
	d, err := c.descriptor(slot, v.Level)
	if err != nil {
		return err
	}
	for i := 0; i < 8; i++ {
		if !d.Valid(i) {
			continue
		}
		cv := childVoxel(v, i)
		if d.Leaf(i) {
			err = fn(cv)
		} else {
			err = c.walk(d.ChildSlot(i), cv, fn)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Leaves returns every leaf voxel of c in depth first octant order.
func (c *Compact) Leaves() ([]Voxel, error) {
	var leaves []Voxel
	err := c.Walk(func(v Voxel) error {
		leaves = append(leaves, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return leaves, nil
}

// Stats summarizes the size of a Compact octree.
type Stats struct {
	Descriptors int
	Leaves      int
	// Bytes is the size of the descriptor and attachment arrays.
	Bytes int
}

func (s Stats) String() string {
	return fmt.Sprintf("descriptors=%d leaves=%d bytes=%d", s.Descriptors, s.Leaves, s.Bytes)
}

// Stats walks c and counts its descriptors and leaves.
func (c *Compact) Stats() (Stats, error) {
	s := Stats{
		Descriptors: len(c.Descriptors),
		Bytes:       4 * (len(c.Descriptors) + len(c.Attachments)),
	}
	err := c.Walk(func(Voxel) error {
		s.Leaves++
		return nil
	})
	return s, err
}
