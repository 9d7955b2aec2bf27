package svo

import (
	"math"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// MaxSupportedLevel is the deepest tree Build accepts. A full shell at this
// depth is far larger than what the 16 bit descriptor pointer can address.
const MaxSupportedLevel = 21

// BuildConfig configures octree construction.
type BuildConfig struct {
	// MaxLevel is the depth of the leaves. The root is level 1 so a
	// MaxLevel of 1 yields at most a single leaf spanning the root cube.
	MaxLevel int
	// Origin is the minimum corner of the root cube and Size its edge length.
	Origin r3.Vec
	Size   float64
	// Attributes enables computation of node normals and colors.
	Attributes bool
	// Logger receives a build summary at debug level. Nil discards logs.
	Logger *zap.Logger
}

// DefaultBuildConfig returns the configuration of the [-1, 1]³ cube.
func DefaultBuildConfig(maxLevel int) BuildConfig {
	return BuildConfig{
		MaxLevel: maxLevel,
		Origin:   r3.Vec{X: -1, Y: -1, Z: -1},
		Size:     2,
	}
}

// Build samples s over the [-1, 1]³ cube and returns the surface octree.
// A sampler with no surface in the cube yields an empty tree.
func Build(s Sampler, maxLevel int) (*Tree, error) {
	return DefaultBuildConfig(maxLevel).Build(s)
}

// Validate returns a wrapped ErrInvalidConfig describing the first bad field.
func (cfg BuildConfig) Validate() error {
	switch {
	case cfg.MaxLevel < 1:
		return errors.Wrapf(ErrInvalidConfig, "max level must be at least 1, got %d", cfg.MaxLevel)
	case cfg.MaxLevel > MaxSupportedLevel:
		return errors.Wrapf(ErrInvalidConfig, "max level %d exceeds %d", cfg.MaxLevel, MaxSupportedLevel)
	case !(cfg.Size > 0) || math.IsInf(cfg.Size, 0):
		return errors.Wrapf(ErrInvalidConfig, "root size must be positive and finite, got %g", cfg.Size)
	case !isFinite(cfg.Origin.X) || !isFinite(cfg.Origin.Y) || !isFinite(cfg.Origin.Z):
		return errors.Wrapf(ErrInvalidConfig, "non-finite root origin %v", cfg.Origin)
	}
	return nil
}

// Build samples s over the configured root cube and returns the surface octree.
func (cfg BuildConfig) Build(s Sampler) (*Tree, error) {
	if s == nil {
		return nil, errors.Wrap(ErrInvalidConfig, "nil sampler")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	b := builder{
		s:        s,
		maxLevel: cfg.MaxLevel,
		attrs:    cfg.Attributes,
	}
	start := time.Now()
	root := Voxel{Position: cfg.Origin, Size: cfg.Size, Level: 1}
	b.build(root, noNode)
	t := &Tree{
		Nodes:      b.nodes,
		Origin:     cfg.Origin,
		Size:       cfg.Size,
		MaxLevel:   cfg.MaxLevel,
		Attributed: cfg.Attributes,
	}
	log.Debug("octree built",
		zap.Int("maxLevel", cfg.MaxLevel),
		zap.Int("nodes", len(t.Nodes)),
		zap.Int("leaves", b.leaves),
		zap.Int("samples", b.samples),
		zap.Duration("elapsed", time.Since(start)),
	)
	return t, nil
}

// IsEdge reports whether voxel v is on the surface shell of s: its center is
// solid and at least one of the six points one voxel size away along the
// axes is empty.
func IsEdge(s Sampler, v Voxel) bool {
	return isEdge(s.Evaluate, v)
}

func isEdge(eval func(r3.Vec) float64, v Voxel) bool {
	c := v.Center()
	if eval(c) > 0 {
		return false
	}
	for _, d := range faceDirections {
		if eval(r3.Add(c, r3.Scale(v.Size, d))) > 0 {
			return true
		}
	}
	return false
}

type builder struct {
	s        Sampler
	maxLevel int
	attrs    bool
	nodes    []Node
	samples  int
	leaves   int
}

func (b *builder) eval(p r3.Vec) float64 {
	b.samples++
	return b.s.Evaluate(p)
}

// build appends v and its kept subtree to the arena in pre-order and returns
// the index of v. If nothing under v is kept the arena is truncated back to
// its length on entry.
func (b *builder) build(v Voxel, parent int32) (int32, bool) {
	idx := int32(len(b.nodes))
	if v.Level == b.maxLevel {
		if !isEdge(b.eval, v) {
			return noNode, false
		}
		n := newNode(v, true, parent)
		if b.attrs {
			n.Normal = b.gradient(v.Center(), v.Size/2)
			n.Color = normalColor(n.Normal)
		}
		b.nodes = append(b.nodes, n)
		b.leaves++
		return idx, true
	}

	b.nodes = append(b.nodes, newNode(v, false, parent))
	kept := 0
	for i := 0; i < 8; i++ {
		c, ok := b.build(childVoxel(v, i), idx)
		if ok {
			b.nodes[idx].Children[i] = c
			kept++
		}
	}
	if kept == 0 {
		b.nodes = b.nodes[:idx]
		return noNode, false
	}
	if b.attrs {
		b.average(idx)
	}
	return idx, true
}

// gradient returns the outward surface normal at p from a one sided
// difference with step h.
func (b *builder) gradient(p r3.Vec, h float64) r3.Vec {
	f := b.eval(p)
	var g r3.Vec
	g.X = f - b.eval(r3.Vec{X: p.X - h, Y: p.Y, Z: p.Z})
	g.Y = f - b.eval(r3.Vec{X: p.X, Y: p.Y - h, Z: p.Z})
	g.Z = f - b.eval(r3.Vec{X: p.X, Y: p.Y, Z: p.Z - h})
	return normalOrUp(g)
}

// average sets the attributes of internal node idx to the mean of its children.
func (b *builder) average(idx int32) {
	n := &b.nodes[idx]
	var sum r3.Vec
	var r, g, bl float64
	count := 0
	for _, c := range n.Children {
		if c == noNode {
			continue
		}
		child := &b.nodes[c]
		sum = r3.Add(sum, child.Normal)
		r += child.Color.R
		g += child.Color.G
		bl += child.Color.B
		count++
	}
	k := float64(count)
	n.Normal = normalOrUp(sum)
	n.Color = colorful.Color{R: r / k, G: g / k, B: bl / k}
}

// normalOrUp returns v normalized or +Y when v has no direction.
func normalOrUp(v r3.Vec) r3.Vec {
	norm := r3.Norm(v)
	if norm == 0 || !isFinite(norm) {
		return r3.Vec{Y: 1}
	}
	return r3.Scale(1/norm, v)
}

// normalColor maps a unit normal onto the RGB cube.
func normalColor(n r3.Vec) colorful.Color {
	return colorful.Color{R: (n.X + 1) / 2, G: (n.Y + 1) / 2, B: (n.Z + 1) / 2}.Clamped()
}
