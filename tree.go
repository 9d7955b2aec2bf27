package svo

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/spatial/r3"
)

// noNode marks an absent child or the parent of the root.
const noNode = -1

// Node is an octree node stored in a Tree's arena.
type Node struct {
	Voxel
	// Leaf is true for nodes at the tree's maximum level.
	Leaf bool
	// Children holds arena indices of the node's octants, in octant order.
	// Absent (empty or fully solid) octants are -1.
	Children [8]int32
	// Parent is the arena index of the parent node, -1 for the root.
	Parent int32
	// Normal and Color are set when the tree is built with attributes.
	Normal r3.Vec
	Color  colorful.Color
}

// Child returns the arena index of octant i and whether it is present.
func (n *Node) Child(i int) (int32, bool) {
	c := n.Children[i]
	return c, c != noNode
}

func (n Node) String() string {
	return fmt.Sprintf("[Node, Position (%.4f, %.4f, %.4f), Size: %g, Leaf: %t, Level: %d]",
		n.Position.X, n.Position.Y, n.Position.Z, n.Size, n.Leaf, n.Level)
}

// Tree is a pointer-free octree. Nodes are stored in pre-order with children
// visited in octant order; the root, if present, is Nodes[0].
type Tree struct {
	Nodes []Node
	// Origin is the minimum corner of the root cube and Size its edge length.
	Origin   r3.Vec
	Size     float64
	MaxLevel int
	// Attributed is set when nodes carry Normal and Color.
	Attributed bool
}

// Empty reports whether the tree has no surface, that is the root is absent.
func (t *Tree) Empty() bool { return len(t.Nodes) == 0 }

// Root returns the root node. It panics if the tree is empty.
func (t *Tree) Root() *Node {
	if t.Empty() {
		panic("svo: Root of empty tree")
	}
	return &t.Nodes[0]
}

// RootVoxel returns the cube spanned by the tree regardless of whether
// the tree is empty.
func (t *Tree) RootVoxel() Voxel {
	return Voxel{Position: t.Origin, Size: t.Size, Level: 1}
}

// Leaves returns the leaf voxels of the tree in depth-first octant order.
func (t *Tree) Leaves() []Voxel {
	var leaves []Voxel
	t.Walk(func(n *Node) bool {
		if n.Leaf {
			leaves = append(leaves, n.Voxel)
		}
		return true
	})
	return leaves
}

// Walk calls fn for every node in depth-first pre-order. If fn returns false
// the node's children are skipped.
func (t *Tree) Walk(fn func(n *Node) bool) {
	if t.Empty() {
		return
	}
	t.walk(0, fn)
}

func (t *Tree) walk(idx int32, fn func(n *Node) bool) {
	n := &t.Nodes[idx]
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		if c != noNode {
			t.walk(c, fn)
		}
	}
}

// String returns the hierarchy of the tree, one node per line in pre-order.
func (t *Tree) String() string {
	var sb strings.Builder
	t.Walk(func(n *Node) bool {
		sb.WriteString(strings.Repeat("  ", n.Level-1))
		sb.WriteString(n.String())
		sb.WriteByte('\n')
		return true
	})
	return sb.String()
}

// newNode returns a node with no children.
func newNode(v Voxel, leaf bool, parent int32) Node {
	return Node{
		Voxel:    v,
		Leaf:     leaf,
		Parent:   parent,
		Children: [8]int32{noNode, noNode, noNode, noNode, noNode, noNode, noNode, noNode},
	}
}
