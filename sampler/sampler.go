// Package sampler provides density fields to build sparse voxel octrees from.
// Fields are negative inside solid and positive in empty space.
package sampler

import (
	"math"

	"github.com/ojrac/opensimplex-go"
	"github.com/pkg/errors"
	"github.com/soypat/svo/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrInvalidParam is returned for field parameters that describe no shape.
var ErrInvalidParam = errors.New("sampler: invalid parameter")

// Field is a scalar density field. It is satisfied by svo.Sampler.
type Field interface {
	Evaluate(p r3.Vec) float64
}

type sphere struct {
	center r3.Vec
	r2     float64
}

// Sphere returns the field |p-center|² - radius². The squared form keeps the
// zero set of an exact distance field while staying polynomial.
func Sphere(center r3.Vec, radius float64) (Field, error) {
	if !(radius > 0) || math.IsInf(radius, 0) {
		return nil, errors.Wrapf(ErrInvalidParam, "sphere radius %g", radius)
	}
	return &sphere{center: center, r2: radius * radius}, nil
}

func (s *sphere) Evaluate(p r3.Vec) float64 {
	d := r3.Sub(p, s.center)
	return r3.Dot(d, d) - s.r2
}

type flatGround struct{ height float64 }

// FlatGround returns a field solid below the plane y = height.
func FlatGround(height float64) Field { return flatGround{height: height} }

func (g flatGround) Evaluate(p r3.Vec) float64 { return p.Y - g.height }

type cuboid struct {
	half r3.Vec
}

// Cuboid returns the exact distance field of an origin centered box with the
// given half extents.
func Cuboid(half r3.Vec) (Field, error) {
	if !(half.X > 0 && half.Y > 0 && half.Z > 0) {
		return nil, errors.Wrapf(ErrInvalidParam, "cuboid half extents %v", half)
	}
	return &cuboid{half: half}, nil
}

func (c *cuboid) Evaluate(p r3.Vec) float64 {
	d := r3.Sub(d3.AbsElem(p), c.half)
	outside := r3.Norm(d3.MaxElem(d, r3.Vec{}))
	return outside + math.Min(d3.Max(d), 0)
}

type translate struct {
	f      Field
	offset r3.Vec
}

// Translate moves f by offset.
func Translate(f Field, offset r3.Vec) Field {
	return &translate{f: f, offset: offset}
}

func (t *translate) Evaluate(p r3.Vec) float64 {
	return t.f.Evaluate(r3.Sub(p, t.offset))
}

type rotate struct {
	f   Field
	inv r3.Rotation
}

// Rotate rotates f by angle radians about axis.
func Rotate(f Field, angle float64, axis r3.Vec) (Field, error) {
	if r3.Norm(axis) == 0 || !d3.IsFinite(axis) {
		return nil, errors.Wrapf(ErrInvalidParam, "rotation axis %v", axis)
	}
	return &rotate{f: f, inv: r3.NewRotation(-angle, axis)}, nil
}

func (r *rotate) Evaluate(p r3.Vec) float64 {
	return r.f.Evaluate(r.inv.Rotate(p))
}

type union struct {
	fields []Field
}

// Union returns the solid union of fields, the pointwise minimum.
func Union(fields ...Field) (Field, error) {
	if len(fields) == 0 {
		return nil, errors.Wrap(ErrInvalidParam, "empty union")
	}
	for i, f := range fields {
		if f == nil {
			return nil, errors.Wrapf(ErrInvalidParam, "nil field %d in union", i)
		}
	}
	return &union{fields: fields}, nil
}

func (u *union) Evaluate(p r3.Vec) float64 {
	d := u.fields[0].Evaluate(p)
	for _, f := range u.fields[1:] {
		d = math.Min(d, f.Evaluate(p))
	}
	return d
}

type simplex struct {
	noise opensimplex.Noise
	freq  float64
}

// Simplex returns 3D OpenSimplex noise in [-1, 1] sampled at p*frequency.
func Simplex(seed int64, frequency float64) Field {
	return &simplex{noise: opensimplex.New(seed), freq: frequency}
}

func (s *simplex) Evaluate(p r3.Vec) float64 {
	return s.noise.Eval3(p.X*s.freq, p.Y*s.freq, p.Z*s.freq)
}

type terrain struct {
	noise     opensimplex.Noise
	height    float64
	amplitude float64
	freq      float64
	octaves   int
}

// Terrain returns a ground plane at height displaced by octaves of 2D
// simplex noise. Each octave doubles the frequency and halves the amplitude.
func Terrain(seed int64, height, amplitude, frequency float64, octaves int) (Field, error) {
	if octaves < 1 {
		return nil, errors.Wrapf(ErrInvalidParam, "terrain octaves %d", octaves)
	}
	return &terrain{
		noise:     opensimplex.New(seed),
		height:    height,
		amplitude: amplitude,
		freq:      frequency,
		octaves:   octaves,
	}, nil
}

func (t *terrain) Evaluate(p r3.Vec) float64 {
	h := t.height
	amp, freq := t.amplitude, t.freq
	for i := 0; i < t.octaves; i++ {
		h += amp * t.noise.Eval2(p.X*freq, p.Z*freq)
		amp /= 2
		freq *= 2
	}
	return p.Y - h
}
