package svo

import (
	"fmt"
	"math/bits"

	"github.com/pkg/errors"
)

// MaxPointer is the largest descriptor slot a child pointer can address.
const MaxPointer = 1<<16 - 1

// ChildDescriptor is the 32 bit record of a non-leaf node in a Compact octree.
//
//	bits 16-31: pointer, absolute slot of the first non-leaf child
//	bits  8-15: valid mask, bit i set if octant i is present
//	bits  0-7:  leaf mask, bit i set if octant i is a present leaf
//
// Non-leaf children of a node occupy consecutive slots in octant order.
type ChildDescriptor uint32

// MakeDescriptor packs a child descriptor. It fails if the pointer does
// not fit in 16 bits or leaf has bits not present in valid.
func MakeDescriptor(pointer int, valid, leaf uint8) (ChildDescriptor, error) {
	if pointer < 0 || pointer > MaxPointer {
		return 0, errors.Wrapf(ErrInvalidConfig, "child pointer %d does not fit in 16 bits", pointer)
	}
	if leaf&^valid != 0 {
		return 0, errors.Wrapf(ErrInvalidConfig, "leaf mask %08b not a subset of valid mask %08b", leaf, valid)
	}
	return ChildDescriptor(uint32(pointer)<<16 | uint32(valid)<<8 | uint32(leaf)), nil
}

// Pointer returns the slot of the first non-leaf child.
func (d ChildDescriptor) Pointer() int { return int(d >> 16) }

// ValidMask returns the present octants.
func (d ChildDescriptor) ValidMask() uint8 { return uint8(d >> 8) }

// LeafMask returns the present octants that are leaves.
func (d ChildDescriptor) LeafMask() uint8 { return uint8(d) }

// NonLeafMask returns the present octants that have a descriptor of their own.
func (d ChildDescriptor) NonLeafMask() uint8 { return d.ValidMask() &^ d.LeafMask() }

// Valid reports whether octant i is present.
func (d ChildDescriptor) Valid(i int) bool { return d.ValidMask()&(1<<i) != 0 }

// Leaf reports whether octant i is a present leaf.
func (d ChildDescriptor) Leaf(i int) bool { return d.LeafMask()&(1<<i) != 0 }

// ChildSlot returns the descriptor slot of non-leaf octant i. The result is
// meaningless if octant i is absent or a leaf.
func (d ChildDescriptor) ChildSlot(i int) int {
	below := d.NonLeafMask() & (1<<i - 1)
	return d.Pointer() + bits.OnesCount8(below)
}

// wellFormed reports whether the leaf mask is a subset of the valid mask.
func (d ChildDescriptor) wellFormed() bool { return d.LeafMask()&^d.ValidMask() == 0 }

func (d ChildDescriptor) String() string {
	return fmt.Sprintf("[ChildDescriptor pointer: %d, valid: %08b, leaf: %08b]", d.Pointer(), d.ValidMask(), d.LeafMask())
}
