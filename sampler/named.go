package sampler

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"
)

// Params holds named scalar parameters of a field, as read from a config file.
type Params map[string]float64

// Get returns p[key] or def if the key is not set.
func (p Params) Get(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// vec reads key.x, key.y and key.z.
func (p Params) vec(key string, def r3.Vec) r3.Vec {
	return r3.Vec{
		X: p.Get(key+".x", def.X),
		Y: p.Get(key+".y", def.Y),
		Z: p.Get(key+".z", def.Z),
	}
}

type constructor func(p Params) (Field, error)

var named = map[string]constructor{
	"sphere": func(p Params) (Field, error) {
		return Sphere(p.vec("center", r3.Vec{}), p.Get("radius", 0.8))
	},
	"flat-ground": func(p Params) (Field, error) {
		return FlatGround(p.Get("height", 0)), nil
	},
	"cuboid": func(p Params) (Field, error) {
		return Cuboid(p.vec("half", r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}))
	},
	"rotated-cuboid": func(p Params) (Field, error) {
		h := p.Get("half", 0.3)
		c, err := Cuboid(r3.Vec{X: h, Y: h, Z: h})
		if err != nil {
			return nil, err
		}
		angle := p.Get("degrees", 45) * math.Pi / 180
		return Rotate(c, angle, p.vec("axis", r3.Vec{X: 1, Y: 1, Z: 1}))
	},
	"simplex": func(p Params) (Field, error) {
		return Simplex(int64(p.Get("seed", 7)), p.Get("frequency", 2)), nil
	},
	"terrain": func(p Params) (Field, error) {
		return Terrain(int64(p.Get("seed", 7)), p.Get("height", 0), p.Get("amplitude", 0.3),
			p.Get("frequency", 1.5), int(p.Get("octaves", 4)))
	},
}

// Names returns the names accepted by FromConfig in sorted order.
func Names() []string {
	names := make([]string, 0, len(named))
	for name := range named {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FromConfig returns the field registered under name built from params.
// Missing parameters take their documented defaults.
func FromConfig(name string, params Params) (Field, error) {
	ctor, ok := named[name]
	if !ok {
		return nil, errors.Wrapf(ErrInvalidParam, "unknown field %q, want one of %v", name, Names())
	}
	f, err := ctor(params)
	if err != nil {
		return nil, errors.Wrapf(err, "field %q", name)
	}
	return f, nil
}
