package svo

import (
	"strconv"

	"github.com/pkg/errors"
)

// Mode selects the representation an SVO keeps for tracing.
type Mode uint8

const (
	// ModeNaive keeps the arena Tree and traces it directly.
	ModeNaive Mode = iota
	// ModeCompact compresses the tree and discards it.
	ModeCompact
)

func (m Mode) String() string {
	switch m {
	case ModeNaive:
		return "naive"
	case ModeCompact:
		return "compact"
	}
	return "Mode(" + strconv.Itoa(int(m)) + ")"
}

// ParseMode returns the Mode named by s.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "naive":
		return ModeNaive, nil
	case "compact":
		return ModeCompact, nil
	}
	return 0, errors.Wrapf(ErrInvalidConfig, "unknown mode %q", s)
}

// SVO is a built octree together with a front to back tracer over it.
type SVO struct {
	mode    Mode
	tree    *Tree
	compact *Compact
	tracer  Tracer
}

// New builds the octree of s with cfg and prepares it for tracing in the
// given mode.
func New(s Sampler, cfg BuildConfig, mode Mode) (*SVO, error) {
	t, err := cfg.Build(s)
	if err != nil {
		return nil, err
	}
	switch mode {
	case ModeNaive:
		return &SVO{mode: mode, tree: t, tracer: NewTreeTracer(t, FrontToBack)}, nil
	case ModeCompact:
		c, err := Compress(t)
		if err != nil {
			return nil, err
		}
		return FromCompact(c)
	}
	return nil, errors.Wrapf(ErrInvalidConfig, "unknown mode %v", mode)
}

// FromCompact wraps an already compacted octree.
func FromCompact(c *Compact) (*SVO, error) {
	tracer, err := NewCompactTracer(c, FrontToBack)
	if err != nil {
		return nil, err
	}
	return &SVO{mode: ModeCompact, compact: c, tracer: tracer}, nil
}

// Mode returns the representation held by s.
func (s *SVO) Mode() Mode { return s.mode }

// Tree returns the arena tree. It is nil in ModeCompact.
func (s *SVO) Tree() *Tree { return s.tree }

// Compact returns the compacted octree. It is nil in ModeNaive.
func (s *SVO) Compact() *Compact { return s.compact }

// Trace returns the leaves intersected by r sorted by increasing T.
func (s *SVO) Trace(r Ray) ([]Hit, error) { return s.tracer.Trace(r) }

// Tracer returns a tracer over the held representation with the given order.
func (s *SVO) Tracer(order Order) Tracer {
	if s.mode == ModeNaive {
		return NewTreeTracer(s.tree, order)
	}
	// The compact octree was validated by FromCompact.
	tracer, _ := NewCompactTracer(s.compact, order)
	return tracer
}

// Voxels returns every leaf voxel of the octree.
func (s *SVO) Voxels() ([]Voxel, error) {
	if s.mode == ModeNaive {
		return s.tree.Leaves(), nil
	}
	return s.compact.Leaves()
}
