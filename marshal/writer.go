package marshal

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"pydis/version"
)

// Writer serializes Constant values back into marshal's wire format, the
// write-side counterpart to Reader. It is a generalization of encode.go's
// protocol-conditional Go-value encoder: where that encoder branched on
// pickle protocol version to pick an opcode, WriteObject branches on a
// constant's concrete type to pick a marshal type byte. Unlike Reader it
// never emits FLAG_REF back-references — every container is written out
// in full each time it appears — so it is not a byte-perfect mirror of
// what CPython's own marshal.dumps would produce, but it is a faithful
// enough encoder to build .pyc fixtures a Reader can read back unchanged.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer wrapping w. A CodeObject's own Version field
// determines its wire layout (see writeCode), so Writer itself carries no
// version state; only the scalar/container encodings WriteObject picks
// for non-code constants are Python-version-independent in this
// simplification (see writeStr).
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (wr *Writer) emit(b ...byte) error {
	_, err := wr.w.Write(b)
	return err
}

func (wr *Writer) emitString(s string) error {
	_, err := io.WriteString(wr.w, s)
	return err
}

func (wr *Writer) writeInt32(v int32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	return wr.emit(b[:]...)
}

func (wr *Writer) writeUint16(v uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return wr.emit(b[:]...)
}

// writeVersionedInt is writeInt32's version-gated counterpart to
// Reader.readVersionedInt: pre-2.3 code headers pack argcount/nlocals/
// stacksize/flags into 16 bits, not 32.
func (wr *Writer) writeVersionedInt(ver version.Version, v int32) error {
	if ver.AtLeast(version.V(2, 3)) {
		return wr.writeInt32(v)
	}
	return wr.writeUint16(uint16(v))
}

func (wr *Writer) writeFloat64(v float64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	return wr.emit(b[:]...)
}

// WriteObject encodes one constant, choosing the shortest type byte the
// value admits the way encodeString/encodeInt pick the shortest pickle
// opcode for a given protocol: small-tuple over tuple under 256 elements,
// int32 over int64 when the value fits. Strings are always TYPE_UNICODE
// (see writeStr).
func (wr *Writer) WriteObject(c Constant) error {
	switch v := c.(type) {
	case nil:
		return wr.emit(typeNone)
	case None:
		return wr.emit(typeNone)
	case Bool:
		if v {
			return wr.emit(typeTrue)
		}
		return wr.emit(typeFalse)
	case Ellipsis:
		return wr.emit(typeEllipsis)
	case StopIterationSentinel:
		return wr.emit(typeStopIter)

	case Int:
		return wr.writeInt(v)
	case Long:
		return wr.writeLong(v)
	case Float:
		return wr.writeFloat(v)
	case Complex:
		return wr.writeComplex(v)

	case Str:
		return wr.writeStr(string(v))
	case Bytes:
		if err := wr.emit(typeString); err != nil {
			return err
		}
		if err := wr.writeInt32(int32(len(v))); err != nil {
			return err
		}
		_, err := wr.w.Write([]byte(v))
		return err

	case Tuple:
		return wr.writeSequence(typeSmallTuple, typeTuple, []Constant(v))
	case List:
		return wr.writeSequence(0, typeList, []Constant(v))
	case Set:
		return wr.writeSequence(0, typeSet, []Constant(v))
	case FrozenSet:
		return wr.writeSequence(0, typeFrozenSet, []Constant(v))

	case Dict:
		return wr.writeDict(v)

	case Code:
		return wr.writeCode(v.CodeObject)

	case Ref:
		if err := wr.emit(typeRef); err != nil {
			return err
		}
		return wr.writeInt32(int32(v.Index))

	default:
		return fmt.Errorf("marshal: write: unsupported constant type %T", c)
	}
}

func (wr *Writer) writeInt(v Int) error {
	if int64(v) < math.MinInt32 || int64(v) > math.MaxInt32 {
		if err := wr.emit(typeInt64); err != nil {
			return err
		}
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(v))
		return wr.emit(b[:]...)
	}
	if err := wr.emit(typeInt); err != nil {
		return err
	}
	return wr.writeInt32(int32(v))
}

func (wr *Writer) writeLong(v Long) error {
	n, digits := v.Digits()
	if err := wr.emit(typeLong); err != nil {
		return err
	}
	if err := wr.writeInt32(n); err != nil {
		return err
	}
	for _, d := range digits {
		if err := wr.writeUint16(d); err != nil {
			return err
		}
	}
	return nil
}

func (wr *Writer) writeFloat(v Float) error {
	if err := wr.emit(typeBinaryFloat); err != nil {
		return err
	}
	return wr.writeFloat64(float64(v))
}

func (wr *Writer) writeComplex(v Complex) error {
	if err := wr.emit(typeBinaryComplex); err != nil {
		return err
	}
	c := complex128(v)
	if err := wr.writeFloat64(real(c)); err != nil {
		return err
	}
	return wr.writeFloat64(imag(c))
}

// writeStr always emits TYPE_UNICODE: simpler and fully general, at the
// cost of the ASCII-optimized type bytes a real CPython marshal.dumps
// would prefer. Reader accepts TYPE_UNICODE from every era it supports,
// so round-tripping through Writer never depends on the shorter forms.
func (wr *Writer) writeStr(s string) error {
	if err := wr.emit(typeUnicode); err != nil {
		return err
	}
	if err := wr.writeInt32(int32(len(s))); err != nil {
		return err
	}
	return wr.emitString(s)
}

func (wr *Writer) writeSequence(smallType, fullType byte, items []Constant) error {
	if smallType != 0 && len(items) < 256 {
		if err := wr.emit(smallType); err != nil {
			return err
		}
		if err := wr.emit(byte(len(items))); err != nil {
			return err
		}
	} else {
		if err := wr.emit(fullType); err != nil {
			return err
		}
		if err := wr.writeInt32(int32(len(items))); err != nil {
			return err
		}
	}
	for _, it := range items {
		if err := wr.WriteObject(it); err != nil {
			return err
		}
	}
	return nil
}

// writeDict mirrors readDict's wire shape: alternating key/value objects
// terminated by a bare TYPE_NULL, not a length prefix.
func (wr *Writer) writeDict(d Dict) error {
	if err := wr.emit(typeDict); err != nil {
		return err
	}
	for _, e := range d {
		if err := wr.WriteObject(e.Key); err != nil {
			return err
		}
		if err := wr.WriteObject(e.Value); err != nil {
			return err
		}
	}
	return wr.emit(typeNull)
}

func (wr *Writer) writeStrings(names []string) error {
	items := make([]Constant, len(names))
	for i, n := range names {
		items[i] = Str(n)
	}
	return wr.writeSequence(0, typeTuple, items)
}

func (wr *Writer) writeBytesBlob(b []byte) error {
	if err := wr.emit(typeString); err != nil {
		return err
	}
	if err := wr.writeInt32(int32(len(b))); err != nil {
		return err
	}
	_, err := wr.w.Write(b)
	return err
}

// writeCode emits one TYPE_CODE body, following the same three eras
// readCode decodes (pre-3.0, 3.0-3.10, 3.11+), always writing the fields
// for co's own Version (Writer has no version of its own), so a nested code object that
// was decoded from a different era than its enclosing module (which
// never happens in a real .pyc, but costs nothing to support) round-trips
// honestly.
func (wr *Writer) writeCode(co *CodeObject) error {
	if err := wr.emit(typeCode); err != nil {
		return err
	}
	ver := co.Version

	if err := wr.writeVersionedInt(ver, int32(co.ArgCount)); err != nil {
		return err
	}
	if ver.AtLeast(version.V(3, 8)) {
		if err := wr.writeInt32(int32(co.PosOnlyArgCount)); err != nil {
			return err
		}
	}
	if ver.AtLeast(version.V(3, 0)) {
		if err := wr.writeInt32(int32(co.KwOnlyArgCount)); err != nil {
			return err
		}
	}
	if !ver.AtLeast(version.V(3, 11)) {
		if err := wr.writeVersionedInt(ver, int32(co.NLocals())); err != nil {
			return err
		}
	}
	if err := wr.writeVersionedInt(ver, int32(co.StackSize)); err != nil {
		return err
	}
	if err := wr.writeVersionedInt(ver, int32(co.Flags)); err != nil {
		return err
	}
	if err := wr.writeBytesBlob(co.Code); err != nil {
		return err
	}

	consts := make([]Constant, len(co.Consts))
	copy(consts, co.Consts)
	if err := wr.writeSequence(0, typeTuple, consts); err != nil {
		return err
	}
	if err := wr.writeStrings(co.Names); err != nil {
		return err
	}

	if ver.AtLeast(version.V(3, 11)) {
		if err := wr.writeStrings(co.LocalsPlusNames); err != nil {
			return err
		}
		kinds := make([]byte, len(co.LocalsPlusKinds))
		for i, k := range co.LocalsPlusKinds {
			kinds[i] = encodeVarKind(k)
		}
		if err := wr.writeBytesBlob(kinds); err != nil {
			return err
		}
	} else {
		if err := wr.writeStrings(co.Varnames); err != nil {
			return err
		}
		if err := wr.writeStrings(co.Freevars); err != nil {
			return err
		}
		if err := wr.writeStrings(co.Cellvars); err != nil {
			return err
		}
	}

	if err := wr.writeStr(co.Filename); err != nil {
		return err
	}
	if err := wr.writeStr(co.Name); err != nil {
		return err
	}
	if ver.AtLeast(version.V(3, 11)) {
		if err := wr.writeStr(co.Qualname); err != nil {
			return err
		}
	}

	if err := wr.writeInt32(int32(co.FirstLine)); err != nil {
		return err
	}
	if ver.AtLeast(version.V(2, 3)) {
		if err := wr.writeBytesBlob(co.LnotabOrLinetable); err != nil {
			return err
		}
	}
	if ver.AtLeast(version.V(3, 11)) {
		if err := wr.writeBytesBlob(co.ExceptionTable); err != nil {
			return err
		}
	}
	return nil
}

func encodeVarKind(k VarKind) byte {
	switch k {
	case VarFree:
		return coFastFree
	case VarCellArg:
		return coFastCell
	case VarHidden:
		return coFastHidden
	default:
		return coFastLocal
	}
}

// WritePyc writes a full .pyc stream: magic, a zeroed header (mtime/size
// or hash fields, whichever co.Version uses — their exact contents never
// affect decoding, per ReadPyc's comment), and the module code object.
func WritePyc(w io.Writer, co *CodeObject) error {
	magic, ok := version.ToMagic(co.Version)
	if !ok {
		return fmt.Errorf("marshal: no known magic number for Python %s", co.Version)
	}
	var magicBuf [4]byte
	binary.LittleEndian.PutUint32(magicBuf[:], magic)
	if _, err := w.Write(magicBuf[:]); err != nil {
		return err
	}

	var zero [4]byte
	if _, err := w.Write(zero[:]); err != nil {
		return err
	}
	if _, err := w.Write(zero[:]); err != nil {
		return err
	}
	if co.Version.AtLeast(version.V(3, 7)) {
		if _, err := w.Write(zero[:]); err != nil {
			return err
		}
	}

	return NewWriter(w).writeCode(co)
}
