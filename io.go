package svo

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"
)

// Binary layout of a Compact octree, all fields little endian:
//
//	header (compactHeader)
//	descriptors: NumDescriptors 32 bit words
//	attachments: 2*NumDescriptors 32 bit words if flagAttributed is set
//
// The word arrays are the buffers a renderer uploads as is.
const (
	compactMagic   = "SVO1"
	compactVersion = 1

	flagAttributed = 1 << 0
	flagRootLeaf   = 1 << 1
)

type compactHeader struct {
	Magic          [4]byte
	Version        uint16
	Flags          uint16
	MaxLevel       uint32
	NumDescriptors uint32
	Origin         [3]float64
	Size           float64
}

// WriteTo writes c in binary form to w.
func (c *Compact) WriteTo(w io.Writer) (int64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	header := compactHeader{
		Version:        compactVersion,
		MaxLevel:       uint32(c.MaxLevel),
		NumDescriptors: uint32(len(c.Descriptors)),
		Origin:         [3]float64{c.Origin.X, c.Origin.Y, c.Origin.Z},
		Size:           c.Size,
	}
	copy(header.Magic[:], compactMagic)
	if c.Attributed() {
		header.Flags |= flagAttributed
	}
	if c.RootLeaf {
		header.Flags |= flagRootLeaf
	}
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, &header); err != nil {
		return 0, err
	}
	if err := binary.Write(bw, binary.LittleEndian, c.Descriptors); err != nil {
		return 0, err
	}
	if c.Attributed() {
		if err := binary.Write(bw, binary.LittleEndian, c.Attachments); err != nil {
			return 0, err
		}
	}
	n := int64(binary.Size(&header)) + 4*int64(len(c.Descriptors)+len(c.Attachments))
	return n, bw.Flush()
}

// ReadCompact reads a Compact octree written by WriteTo. Malformed headers
// and inconsistent arrays fail with a wrapped ErrCorruptData.
func ReadCompact(r io.Reader) (*Compact, error) {
	var header compactHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, errors.Wrap(err, "reading svo header")
	}
	switch {
	case string(header.Magic[:]) != compactMagic:
		return nil, errors.Wrapf(ErrCorruptData, "bad magic %q", header.Magic[:])
	case header.Version != compactVersion:
		return nil, errors.Wrapf(ErrCorruptData, "unsupported version %d", header.Version)
	case header.Flags&^(flagAttributed|flagRootLeaf) != 0:
		return nil, errors.Wrapf(ErrCorruptData, "unknown flags %#x", header.Flags)
	case header.NumDescriptors == 0 || header.NumDescriptors > MaxPointer+1:
		return nil, errors.Wrapf(ErrCorruptData, "bad descriptor count %d", header.NumDescriptors)
	case header.MaxLevel == 0 || header.MaxLevel > MaxSupportedLevel:
		return nil, errors.Wrapf(ErrCorruptData, "bad max level %d", header.MaxLevel)
	}
	c := &Compact{
		Descriptors: make([]ChildDescriptor, header.NumDescriptors),
		Origin:      r3.Vec{X: header.Origin[0], Y: header.Origin[1], Z: header.Origin[2]},
		Size:        header.Size,
		MaxLevel:    int(header.MaxLevel),
		RootLeaf:    header.Flags&flagRootLeaf != 0,
	}
	if err := binary.Read(r, binary.LittleEndian, c.Descriptors); err != nil {
		return nil, errors.Wrap(err, "reading svo descriptors")
	}
	if header.Flags&flagAttributed != 0 {
		c.Attachments = make([]uint32, 2*header.NumDescriptors)
		if err := binary.Read(r, binary.LittleEndian, c.Attachments); err != nil {
			return nil, errors.Wrap(err, "reading svo attachments")
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// WriteFile writes c to a new file at path.
func (c *Compact) WriteFile(path string) error {
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fp.Close()
	if _, err = c.WriteTo(fp); err != nil {
		return err
	}
	return fp.Close()
}

// ReadFile reads a Compact octree from the file at path.
func ReadFile(path string) (*Compact, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	return ReadCompact(bufio.NewReader(fp))
}
