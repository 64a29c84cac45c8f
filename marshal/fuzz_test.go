package marshal

import (
	"bytes"
	"testing"

	"pydis/version"
)

// FuzzReadObject is the native go test -fuzz replacement for og-rek's
// +build gofuzz Fuzz harness: decode arbitrary bytes, and whenever that
// succeeds, re-encode with Writer and assert the re-decoded value matches
// (round-trip property, spec.md §8 "decoder must never panic"). Writer
// doesn't preserve FLAG_REF back-references, but Reader resolves every
// TYPE_REF to the value it names, so the decoded value holds expanded
// copies that Writer re-encodes in full; containsRef only skips a Ref
// value, which Reader never returns.
func FuzzReadObject(f *testing.F) {
	seeds := [][]byte{
		{typeNone},
		{typeTrue},
		{typeInt, 0x2a, 0x00, 0x00, 0x00},
		{typeShortAscii, 0x02, 'h', 'i'},
		{typeSmallTuple, 0x00},
		{typeDict, typeNull},
		{},
		{0xff},
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		rd := NewReader(bytes.NewReader(data), version.V(3, 11), nil)
		obj, err := rd.ReadObject()
		if err != nil {
			return
		}
		if containsRef(obj) {
			return
		}

		var buf bytes.Buffer
		if err := NewWriter(&buf).WriteObject(obj); err != nil {
			t.Fatalf("encode of successfully-decoded object failed: %s", err)
		}

		rd2 := NewReader(&buf, version.V(3, 11), nil)
		obj2, err := rd2.ReadObject()
		if err != nil {
			t.Fatalf("re-decode of round-tripped object failed: %s", err)
		}
		if !constantsEqual(obj, obj2) {
			t.Fatalf("round trip mismatch: %#v != %#v", obj, obj2)
		}
	})
}

func containsRef(c Constant) bool {
	switch v := c.(type) {
	case Ref:
		return true
	case Tuple:
		return anyRef(v)
	case List:
		return anyRef(v)
	case Set:
		return anyRef(v)
	case FrozenSet:
		return anyRef(v)
	case Dict:
		for _, e := range v {
			if containsRef(e.Key) || containsRef(e.Value) {
				return true
			}
		}
	}
	return false
}

func anyRef(items []Constant) bool {
	for _, it := range items {
		if containsRef(it) {
			return true
		}
	}
	return false
}

// constantsEqual compares two decoded constants structurally. Float's
// NaN never round-trips as == so it gets its own rule; everything else
// can rely on Go's native equality/DeepEqual since Reader's Constant
// types are plain values and slices.
func constantsEqual(a, b Constant) bool {
	af, aok := a.(Float)
	bf, bok := b.(Float)
	if aok && bok {
		return (af != af && bf != bf) || af == bf // NaN != NaN, so compare bit patterns via self-inequality
	}
	return deepEqualConstant(a, b)
}

func deepEqualConstant(a, b Constant) bool {
	switch av := a.(type) {
	case Tuple:
		bv, ok := b.(Tuple)
		return ok && sliceEqual(av, bv)
	case List:
		bv, ok := b.(List)
		return ok && sliceEqual(av, bv)
	case Set:
		bv, ok := b.(Set)
		return ok && sliceEqual(av, bv)
	case FrozenSet:
		bv, ok := b.(FrozenSet)
		return ok && sliceEqual(av, bv)
	case Dict:
		bv, ok := b.(Dict)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !constantsEqual(av[i].Key, bv[i].Key) || !constantsEqual(av[i].Value, bv[i].Value) {
				return false
			}
		}
		return true
	case Bytes:
		bv, ok := b.(Bytes)
		return ok && bytes.Equal(av, bv)
	case Long:
		bv, ok := b.(Long)
		return ok && av.String() == bv.String()
	case Code:
		_, ok := b.(Code)
		return ok // nested code objects carry pointer identity; type match is as far as this property goes
	default:
		return a == b
	}
}

func sliceEqual(a, b []Constant) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !constantsEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}
