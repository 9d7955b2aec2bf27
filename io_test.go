package svo

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

func encodeCompact(t *testing.T, c *Compact) []byte {
	t.Helper()
	var buf bytes.Buffer
	n, err := c.WriteTo(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, n, test.ShouldEqual, int64(buf.Len()))
	return buf.Bytes()
}

func TestCompactRoundTrip(t *testing.T) {
	plain := mustCompress(t, mustBuild(t, sphereSampler(0.8), 5))
	cfg := DefaultBuildConfig(4)
	cfg.Attributes = true
	attributed, err := cfg.Build(sphereSampler(1))
	test.That(t, err, test.ShouldBeNil)
	rootLeaf := mustCompress(t, mustBuild(t, sphereSampler(1), 1))
	empty := mustCompress(t, mustBuild(t, constantSampler(1), 3))

	for name, c := range map[string]*Compact{
		"plain":      plain,
		"attributed": mustCompress(t, attributed),
		"root leaf":  rootLeaf,
		"empty":      empty,
	} {
		t.Run(name, func(t *testing.T) {
			data := encodeCompact(t, c)
			test.That(t, string(data[:4]), test.ShouldEqual, "SVO1")
			got, err := ReadCompact(bytes.NewReader(data))
			test.That(t, err, test.ShouldBeNil)
			if diff := cmp.Diff(c, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReadCompactCorrupt(t *testing.T) {
	c := mustCompress(t, mustBuild(t, sphereSampler(1), 3))
	data := encodeCompact(t, c)

	badMagic := bytes.Clone(data)
	copy(badMagic, "OBJ1")
	badVersion := bytes.Clone(data)
	binary.LittleEndian.PutUint16(badVersion[4:], 9)
	badFlags := bytes.Clone(data)
	binary.LittleEndian.PutUint16(badFlags[6:], 0x80)
	badLevel := bytes.Clone(data)
	binary.LittleEndian.PutUint32(badLevel[8:], 0)
	noDescriptors := bytes.Clone(data)
	binary.LittleEndian.PutUint32(noDescriptors[12:], 0)

	for name, b := range map[string][]byte{
		"magic":          badMagic,
		"version":        badVersion,
		"flags":          badFlags,
		"max level":      badLevel,
		"no descriptors": noDescriptors,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ReadCompact(bytes.NewReader(b))
			test.That(t, errors.Is(err, ErrCorruptData), test.ShouldBeTrue)
		})
	}

	for _, n := range []int{0, 10, len(data) - 1} {
		_, err := ReadCompact(bytes.NewReader(data[:n]))
		test.That(t, err, test.ShouldNotBeNil)
	}
}

func TestCompactFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sphere.svo")
	c := mustCompress(t, mustBuild(t, sphereSampler(1), 4))
	test.That(t, c.WriteFile(path), test.ShouldBeNil)
	got, err := ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got.Descriptors, test.ShouldResemble, c.Descriptors)
	test.That(t, got.MaxLevel, test.ShouldEqual, 4)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.svo"))
	test.That(t, err, test.ShouldNotBeNil)

	bad := &Compact{MaxLevel: 4, Size: 2}
	test.That(t, errors.Is(bad.WriteFile(path), ErrCorruptData), test.ShouldBeTrue)
}
