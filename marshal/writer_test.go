package marshal

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"pydis/version"
)

func roundTrip(t *testing.T, c Constant) Constant {
	t.Helper()
	var buf bytes.Buffer
	err := NewWriter(&buf).WriteObject(c)
	assert.NoError(t, err)

	rd := NewReader(&buf, version.V(3, 11), nil)
	got, err := rd.ReadObject()
	assert.NoError(t, err)
	return got
}

func TestWriteObjectScalars(t *testing.T) {
	assert.Equal(t, None{}, roundTrip(t, None{}))
	assert.Equal(t, Bool(true), roundTrip(t, Bool(true)))
	assert.Equal(t, Bool(false), roundTrip(t, Bool(false)))
	assert.Equal(t, Ellipsis{}, roundTrip(t, Ellipsis{}))
	assert.Equal(t, Int(42), roundTrip(t, Int(42)))
	assert.Equal(t, Int(-7), roundTrip(t, Int(-7)))
	assert.Equal(t, Float(3.5), roundTrip(t, Float(3.5)))
	assert.Equal(t, Complex(complex(1, 2)), roundTrip(t, Complex(complex(1, 2))))
	assert.Equal(t, Str("hello"), roundTrip(t, Str("hello")))
}

func TestWriteObjectLong(t *testing.T) {
	big := Long{FromInt64(123456789012345)}
	got := roundTrip(t, big)
	gotLong, ok := got.(Long)
	assert.True(t, ok)
	v, ok := gotLong.Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(123456789012345), v)

	neg := Long{FromInt64(-99)}
	got2 := roundTrip(t, neg)
	v2, ok := got2.(Long).Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(-99), v2)
}

func TestWriteObjectContainers(t *testing.T) {
	tup := Tuple{Int(1), Str("a"), None{}}
	assert.Equal(t, tup, roundTrip(t, tup))

	lst := List{Int(1), Int(2), Int(3)}
	assert.Equal(t, lst, roundTrip(t, lst))

	empty := Tuple{}
	got := roundTrip(t, empty)
	assert.Equal(t, Tuple{}, got)
}

func TestWriteObjectDict(t *testing.T) {
	d := Dict{
		{Key: Str("a"), Value: Int(1)},
		{Key: Str("b"), Value: Int(2)},
	}
	assert.Equal(t, d, roundTrip(t, d))
}

func TestWriteObjectBytes(t *testing.T) {
	b := Bytes("\x00\x01\xff")
	assert.Equal(t, b, roundTrip(t, b))
}

func TestWriteCodeObjectRoundTrip311(t *testing.T) {
	co := &CodeObject{
		Version:         version.V(3, 11),
		ArgCount:        1,
		StackSize:       2,
		Flags:           FlagOptimized | FlagNewLocals,
		Code:            []byte{0x01, 0x02, 0x03, 0x04},
		Consts:          []Constant{Int(1), Str("doc")},
		Names:           []string{"print"},
		LocalsPlusNames: []string{"x"},
		LocalsPlusKinds: []VarKind{VarLocal},
		Filename:        "mod.py",
		Name:            "f",
		Qualname:        "f",
		FirstLine:       1,
		LnotabOrLinetable: []byte{0x00},
		ExceptionTable:    []byte{},
	}

	var buf bytes.Buffer
	err := NewWriter(&buf).writeCode(co)
	assert.NoError(t, err)

	rd := NewReader(&buf, co.Version, nil)
	obj, err := rd.ReadObject()
	assert.NoError(t, err)
	code, ok := obj.(Code)
	assert.True(t, ok)

	assert.Equal(t, co.ArgCount, code.ArgCount)
	assert.Equal(t, co.Flags, code.Flags)
	assert.Equal(t, co.Code, code.Code)
	assert.Equal(t, co.Names, code.Names)
	assert.Equal(t, co.LocalsPlusNames, code.LocalsPlusNames)
	assert.Equal(t, co.LocalsPlusKinds, code.LocalsPlusKinds)
	assert.Equal(t, co.Name, code.Name)
	assert.Equal(t, co.Qualname, code.Qualname)
	assert.Len(t, code.Consts, 2)
}

func TestWritePycRoundTrip(t *testing.T) {
	co := &CodeObject{
		Version:   version.V(3, 11),
		Code:      []byte{},
		Names:     []string{},
		Filename:  "mod.py",
		Name:      "<module>",
		Qualname:  "<module>",
		FirstLine: 1,
		LnotabOrLinetable: []byte{},
		ExceptionTable:    []byte{},
	}

	var buf bytes.Buffer
	err := WritePyc(&buf, co)
	assert.NoError(t, err)

	got, err := ReadPyc(&buf)
	assert.NoError(t, err)
	assert.Equal(t, co.Name, got.Name)
	assert.Equal(t, co.Version, got.Version)
}
