package svo

import (
	"github.com/chewxy/math32"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/soypat/glgl/math/ms3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Attachment is the decoded attribute payload of a non-leaf node. It holds
// two representative colors, a 2 bit palette choice per child and the
// node's normal. Encoded it takes two 32 bit words:
//
//	word 0: color A (5-6-5) << 16 | color B (5-6-5)
//	word 1: choices (2 bits per octant, octant 0 lowest) << 16 | normal
//
// The normal is packed as 1 sign bit (15), 2 bits of dominant axis (13-14)
// and the two remaining components divided by the dominant one, quantized
// to 7 bits (6-12) and 6 bits (0-5).
type Attachment struct {
	A, B    colorful.Color
	Choices uint16
	Normal  r3.Vec
}

// Palette returns the four colors a child can choose from:
// A, B, 2/3 A + 1/3 B and 1/3 A + 2/3 B.
func (a Attachment) Palette() [4]colorful.Color {
	return [4]colorful.Color{
		a.A,
		a.B,
		a.A.BlendRgb(a.B, 1.0/3),
		a.A.BlendRgb(a.B, 2.0/3),
	}
}

// Choice returns the palette index of octant i.
func (a Attachment) Choice(i int) int { return int(a.Choices>>(2*i)) & 3 }

// ChildColor returns the color chosen for octant i.
func (a Attachment) ChildColor(i int) colorful.Color {
	return a.Palette()[a.Choice(i)]
}

// Encode quantizes the attachment into its two words.
func (a Attachment) Encode() (w0, w1 uint32) {
	w0 = uint32(encodeRGB565(a.A))<<16 | uint32(encodeRGB565(a.B))
	w1 = uint32(a.Choices)<<16 | uint32(encodeNormal(a.Normal))
	return w0, w1
}

// DecodeAttachment unpacks the two words written by Encode.
func DecodeAttachment(w0, w1 uint32) Attachment {
	return Attachment{
		A:       decodeRGB565(uint16(w0 >> 16)),
		B:       decodeRGB565(uint16(w0)),
		Choices: uint16(w1 >> 16),
		Normal:  decodeNormal(uint16(w1)),
	}
}

// makeAttachment computes the attachment of a node from the colors of its
// present children. A and B are the two most distant child colors and every
// child picks the nearest palette entry. Colors are quantized before choices
// are made so a decoded palette reproduces the choices.
func makeAttachment(normal r3.Vec, colors [8]colorful.Color, present uint8) Attachment {
	var idx []int
	for i := 0; i < 8; i++ {
		if present&(1<<i) != 0 {
			idx = append(idx, i)
		}
	}
	att := Attachment{Normal: normal}
	if len(idx) == 0 {
		return att
	}
	a, b := idx[0], idx[0]
	best := -1.0
	for j, ci := range idx {
		for _, ck := range idx[j+1:] {
			if d := colors[ci].DistanceRgb(colors[ck]); d > best {
				best = d
				a, b = ci, ck
			}
		}
	}
	att.A = decodeRGB565(encodeRGB565(colors[a]))
	att.B = decodeRGB565(encodeRGB565(colors[b]))
	palette := att.Palette()
	for _, i := range idx {
		choice := 0
		bestDist := colors[i].DistanceRgb(palette[0])
		for k := 1; k < len(palette); k++ {
			if d := colors[i].DistanceRgb(palette[k]); d < bestDist {
				bestDist = d
				choice = k
			}
		}
		att.Choices |= uint16(choice) << (2 * i)
	}
	return att
}

func encodeRGB565(c colorful.Color) uint16 {
	c = c.Clamped()
	r := uint16(math32.Round(float32(c.R) * 31))
	g := uint16(math32.Round(float32(c.G) * 63))
	b := uint16(math32.Round(float32(c.B) * 31))
	return r<<11 | g<<5 | b
}

func decodeRGB565(v uint16) colorful.Color {
	return colorful.Color{
		R: float64(v>>11&31) / 31,
		G: float64(v>>5&63) / 63,
		B: float64(v&31) / 31,
	}
}

const (
	normalSignBit  = 1 << 15
	normalAxisPos  = 13
	normalUPos     = 6
	normalUMax     = 1<<7 - 1
	normalVMax     = 1<<6 - 1
	normalAxisMask = 3
)

// encodeNormal quantizes a direction. Directions without length encode +Y.
func encodeNormal(n r3.Vec) uint16 {
	v := ms3.Vec{X: float32(n.X), Y: float32(n.Y), Z: float32(n.Z)}
	if norm := ms3.Norm(v); norm == 0 || math32.IsNaN(norm) || math32.IsInf(norm, 0) {
		v = ms3.Vec{Y: 1}
	}
	abs := ms3.AbsElem(v)
	axis := 0
	dom, u, w := v.X, v.Y, v.Z
	switch {
	case abs.X >= abs.Y && abs.X >= abs.Z:
	case abs.Y >= abs.Z:
		axis = 1
		dom, u, w = v.Y, v.X, v.Z
	default:
		axis = 2
		dom, u, w = v.Z, v.X, v.Y
	}
	var enc uint16
	if dom < 0 {
		enc |= normalSignBit
	}
	d := math32.Abs(dom)
	enc |= uint16(axis) << normalAxisPos
	enc |= quantizeUnit(u/d, normalUMax) << normalUPos
	enc |= quantizeUnit(w/d, normalVMax)
	return enc
}

func decodeNormal(enc uint16) r3.Vec {
	dom := float32(1)
	if enc&normalSignBit != 0 {
		dom = -1
	}
	u := dequantizeUnit(enc>>normalUPos&normalUMax, normalUMax)
	w := dequantizeUnit(enc&normalVMax, normalVMax)
	var v ms3.Vec
	switch enc >> normalAxisPos & normalAxisMask {
	case 0:
		v = ms3.Vec{X: dom, Y: u, Z: w}
	case 1:
		v = ms3.Vec{X: u, Y: dom, Z: w}
	default:
		v = ms3.Vec{X: u, Y: w, Z: dom}
	}
	v = ms3.Unit(v)
	return r3.Vec{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)}
}

// quantizeUnit maps f in [-1, 1] onto [0, limit].
func quantizeUnit(f float32, limit uint16) uint16 {
	f = math32.Max(-1, math32.Min(1, f))
	return uint16(math32.Round((f + 1) / 2 * float32(limit)))
}

func dequantizeUnit(q, limit uint16) float32 {
	return float32(q)/float32(limit)*2 - 1
}
