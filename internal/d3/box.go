package d3

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// d3.Box is a 3d axis aligned bounding box.
type Box r3.Box

// Cube returns the axis aligned cube with minimum corner min and edge length size.
func Cube(min r3.Vec, size float64) Box {
	return Box{Min: min, Max: r3.Add(min, Elem(size))}
}

// Center returns the center of a 3d box.
func (a Box) Center() r3.Vec {
	return Mid(a.Min, a.Max)
}

// ContainsHalfOpen checks if v lies in [Min, Max) along every axis.
func (a Box) ContainsHalfOpen(v r3.Vec) bool {
	return a.Min.X <= v.X && a.Min.Y <= v.Y && a.Min.Z <= v.Z &&
		v.X < a.Max.X && v.Y < a.Max.Y && v.Z < a.Max.Z
}
