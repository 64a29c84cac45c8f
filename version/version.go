// Package version identifies the Python release that produced a .pyc
// file and exposes the ordering other packages need to pick opcode tables
// and branch on version-specific marshal/bytecode layout.
package version

import "fmt"

// Version is a Python release, identified by its (major, minor) pair.
// Patch releases never change bytecode or marshal layout so they are not
// represented.
type Version struct {
	Major, Minor int
}

// V is a shorthand constructor, mostly used in table literals.
func V(major, minor int) Version { return Version{major, minor} }

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compare returns -1, 0 or 1 as v is less than, equal to, or greater than w.
func (v Version) Compare(w Version) int {
	switch {
	case v.Major != w.Major:
		if v.Major < w.Major {
			return -1
		}
		return 1
	case v.Minor != w.Minor:
		if v.Minor < w.Minor {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// Less reports whether v precedes w.
func (v Version) Less(w Version) bool { return v.Compare(w) < 0 }

// AtLeast reports whether v is w or a later release.
func (v Version) AtLeast(w Version) bool { return v.Compare(w) >= 0 }

// ErrUnsupportedMagic is returned by FromMagic when the magic number is
// not recognized and cannot be approximated from a documented range.
type ErrUnsupportedMagic struct {
	Magic uint32
}

func (e *ErrUnsupportedMagic) Error() string {
	return fmt.Sprintf("unsupported .pyc magic number: 0x%08x", e.Magic)
}

// magicEntry pairs an exact magic number with the version it identifies.
// This table is not exhaustive back to the very first magics (which
// changed release to release before the format stabilized); unmatched
// values fall through to the documented 3.x range approximation in
// FromMagic, and values below the 3.0 floor with no exact match are
// rejected per spec.md §6.
var magicTable = map[uint32]Version{
	// Python 1.x / 2.x exact magics (low two bytes + 0x0a0d trailer, as
	// CPython has encoded them since the format's introduction).
	0x00999902: V(1, 0),
	0x00999903: V(1, 1),
	0x0a0d0001: V(1, 5),
	0x0a0d2099: V(1, 5),
	0x0a0dec43: V(1, 6),
	0x0a0d0003: V(2, 0),
	0x0a0d2a2b: V(2, 0),
	0x0a0d2d2d: V(2, 1),
	0x0a0d2f2f: V(2, 2),
	0x0a0d3132: V(2, 3),
	0x0a0d3636: V(2, 4),
	0x0a0d6262: V(2, 5),
	0x0a0df2f3: V(2, 6),
	0x0a0d0303: V(2, 7),

	0x0a0d0a0c: V(3, 0),
	0x0a0d0a13: V(3, 1),
	0x0a0d0a2d: V(3, 2),
	0x0a0d0a9e: V(3, 3),
	0x0a0d0abc: V(3, 4),
	0x0a0d0af2: V(3, 5),
	0x0a0d0d16: V(3, 6),
	0x0a0d0d42: V(3, 7),
	0x0a0d0d55: V(3, 8),
	0x0a0d0d61: V(3, 9),
	0x0a0d0d6f: V(3, 10),
	0x0a0d0da7: V(3, 11),
	0x0a0d0dcb: V(3, 12),
	0x0a0d0df6: V(3, 13),
	0x0a0d0e19: V(3, 14),
}

// magicRange approximates a version from documented ranges of 3.x magic
// numbers (low 16 bits of the magic word) per spec.md §6, for magics that
// were issued between official releases (alpha/beta cycles bump the magic
// number repeatedly within one release).
type magicRange struct {
	lo, hi uint32
	v      Version
}

var magicRanges = []magicRange{
	{3000, 3131, V(3, 0)},
	{3141, 3151, V(3, 1)},
	{3160, 3180, V(3, 2)},
	{3190, 3230, V(3, 3)},
	{3250, 3310, V(3, 4)},
	{3320, 3351, V(3, 5)},
	{3360, 3379, V(3, 6)},
	{3390, 3394, V(3, 7)},
	{3400, 3413, V(3, 8)},
	{3420, 3425, V(3, 9)},
	{3430, 3439, V(3, 10)},
	{3450, 3495, V(3, 11)},
	{3500, 3531, V(3, 12)},
	{3550, 3571, V(3, 13)},
	{3600, 3620, V(3, 14)},
}

// FromMagic maps a .pyc magic number (the first 4 bytes of the file,
// decoded little-endian) to the Version that produced it.
func FromMagic(magic uint32) (Version, error) {
	if v, ok := magicTable[magic]; ok {
		return v, nil
	}

	low := magic & 0xffff
	for _, r := range magicRanges {
		if low >= r.lo && low <= r.hi {
			return r.v, nil
		}
	}

	return Version{}, &ErrUnsupportedMagic{Magic: magic}
}

// HaveArgument returns the HAVE_ARGUMENT threshold for v: the smallest
// opcode byte value that carries an operand (spec.md §4.1).
func HaveArgument(v Version) int {
	switch {
	case v.AtLeast(V(3, 14)):
		return 43
	case v.AtLeast(V(3, 13)):
		return 44
	default:
		return 90
	}
}

// HasInlineCaches reports whether opcodes in v are followed by inline
// cache words (3.11+, spec.md §4.3/GLOSSARY).
func HasInlineCaches(v Version) bool {
	return v.AtLeast(V(3, 11))
}

// FixedWidth reports whether every instruction in v occupies a constant
// 2-byte word (3.6+) as opposed to the variable 1-or-3-byte pre-3.6
// encoding (spec.md §4.3).
func FixedWidth(v Version) bool {
	return v.AtLeast(V(3, 6))
}

// ToMagic returns one magic number that FromMagic would map back to v,
// for building synthetic .pyc headers in tests and tools. It is the
// inverse of the exact entries in magicTable only; versions known solely
// through magicRanges return the low end of their range.
func ToMagic(v Version) (uint32, bool) {
	for magic, mv := range magicTable {
		if mv == v {
			return magic, true
		}
	}
	for _, r := range magicRanges {
		if r.v == v {
			return 0x0a0d0000 | r.lo, true
		}
	}
	return 0, false
}
