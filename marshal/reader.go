package marshal

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/maphash"
	"io"
	"math"

	"github.com/aristanetworks/gomap"
	"pydis/diag"
	"pydis/version"
)

// Type bytes from CPython's Python/marshal.c, confirmed against the fq
// pyc format decoder (other_examples/...Leowbattle-fq...pyc.go.go).
const (
	typeNull  = '0'
	typeNone  = 'N'
	typeFalse = 'F'
	typeTrue  = 'T'
	typeStopIter = 'S'
	typeEllipsis = '.'

	typeInt   = 'i'
	typeInt64 = 'I'
	typeLong  = 'l'
	typeFloat = 'f'
	typeBinaryFloat   = 'g'
	typeComplex       = 'x'
	typeBinaryComplex = 'y'

	typeString = 's'
	typeInterned = 't'
	typeAscii    = 'a'
	typeAsciiInterned = 'A'
	typeShortAscii    = 'z'
	typeShortAsciiInterned = 'Z'
	typeUnicode            = 'u'

	typeSmallTuple = ')'
	typeTuple      = '('
	typeList       = '['
	typeDict       = '{'
	typeSet        = '<'
	typeFrozenSet  = '>'
	typeCode       = 'c'
	typeRef        = 'r'
	typeStringRef  = 'R' // Python 2 only; see stringrefs on Reader
	typeUnknown    = '?'

	flagRef byte = 0x80
)

// ReaderConfig tunes Reader, mirroring ogorek.go's DecoderConfig shape
// (a *Config struct of optional callbacks/knobs rather than functional
// options, matching the teacher's convention).
type ReaderConfig struct {
	// Version is stored on the Reader but not consulted: decoding uses
	// the version passed to NewReader (for ReadPyc, the one derived from
	// the file's magic number).
	Version version.Version
}

// Reader decodes a single marshal object stream: either a bare code
// object (as ReadPyc strips the .pyc header down to) or, via ReadObject,
// any top-level marshaled value.
type Reader struct {
	r      *bufio.Reader
	config *ReaderConfig
	ver    version.Version

	// refs implements marshal's FLAG_REF back-reference table. Entries
	// are appended in encounter order; a container that can contain
	// itself (e.g. a module's __dict__) reserves its slot *before*
	// decoding its children, exactly as CPython's r_object does. The
	// slot stays unfilled until the child finishes decoding, so a
	// genuine self-reference inside those children is distinguishable
	// from an out-of-range index — both are a RefError (spec.md §4.2/§7
	// "must raise an InvalidRef error — never proceed with undefined
	// content"), never a silently-returned placeholder.
	refs []refSlot

	// intern deduplicates TYPE_INTERNED/TYPE_*_INTERNED strings, mirroring
	// CPython's string interning and og-rek's Dict equality-aware map
	// pattern (gomap.Map keyed by string content rather than identity).
	intern *gomap.Map[string, Str]

	// stringrefs is the Python 2 stringref table TYPE_STRINGREF ('R')
	// resolves against: every interned string (TYPE_INTERNED and its
	// short/ascii variants) is appended here in encounter order,
	// independently of whether it was also a fresh entry in intern's
	// content-keyed dedup map (spec.md §4.2 "Interned strings
	// additionally feed a Python-2 intern table used by stringref ('R')
	// resolution").
	stringrefs []Str

	diag *diag.Sink // nil-safe; set via WithDiag
}

// refSlot is one entry of Reader.refs. filled distinguishes "decoded to
// a real value" from "reserved but still under construction", which a
// bare []Constant slice (using None{} as a placeholder) cannot: a
// genuine None and an in-progress placeholder would otherwise be
// indistinguishable to a back-reference that targets the slot early.
type refSlot struct {
	value  Constant
	filled bool
}

// WithDiag attaches a diagnostic sink for recoverable decode problems
// (malformed-but-skippable streams, spec.md §7). Returns rd for chaining.
func (rd *Reader) WithDiag(sink *diag.Sink) *Reader {
	rd.diag = sink
	return rd
}

func stringEqual(a, b string) bool { return a == b }
func stringHash(seed maphash.Seed, s string) uint64 {
	return maphash.String(seed, s)
}

// NewReader wraps r for decoding at the given version. cfg may be nil.
func NewReader(r io.Reader, ver version.Version, cfg *ReaderConfig) *Reader {
	if cfg == nil {
		cfg = &ReaderConfig{}
	}
	return &Reader{
		r:      bufio.NewReader(r),
		config: cfg,
		ver:    ver,
		intern: gomap.New[string, Str](stringEqual, stringHash),
	}
}

// ReadPyc reads a full .pyc file: the era-dependent header, followed by
// the single marshaled code object, and returns the decoded CodeObject
// for the module's top level.
func ReadPyc(r io.Reader) (*CodeObject, error) {
	br := bufio.NewReader(r)

	var magicBuf [4]byte
	if _, err := io.ReadFull(br, magicBuf[:]); err != nil {
		return nil, fmt.Errorf("marshal: reading magic: %w", err)
	}
	magic := binary.LittleEndian.Uint32(magicBuf[:])

	ver, err := version.FromMagic(magic)
	if err != nil {
		return nil, err
	}

	// Post-3.7 headers add a 4-byte bit field ahead of the timestamp
	// (PEP 552 hash-based pycs); pre-3.7 headers go straight to the
	// 4-byte mtime. Either way there are two more 4-byte words before
	// the object stream starts, so the exact meaning of each doesn't
	// matter for decompilation and is skipped rather than modeled.
	var headerWords [2][4]byte
	if _, err := io.ReadFull(br, headerWords[0][:]); err != nil {
		return nil, fmt.Errorf("marshal: reading pyc header: %w", err)
	}
	if _, err := io.ReadFull(br, headerWords[1][:]); err != nil {
		return nil, fmt.Errorf("marshal: reading pyc header: %w", err)
	}
	if ver.AtLeast(version.V(3, 7)) {
		var extra [4]byte
		if _, err := io.ReadFull(br, extra[:]); err != nil {
			return nil, fmt.Errorf("marshal: reading pyc hash-field: %w", err)
		}
	}

	rd := NewReader(br, ver, nil)
	obj, err := rd.ReadObject()
	if err != nil {
		return nil, err
	}
	code, ok := obj.(Code)
	if !ok {
		return nil, fmt.Errorf("marshal: top-level .pyc object is %T, not a code object", obj)
	}
	return code.CodeObject, nil
}

// ReadObject decodes the next marshaled value from the stream.
func (rd *Reader) ReadObject() (Constant, error) {
	tb, err := rd.r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("marshal: reading type byte: %w", err)
	}

	ref := tb&flagRef != 0
	ty := tb &^ flagRef

	var slot int
	if ref {
		slot = len(rd.refs)
		rd.refs = append(rd.refs, refSlot{}) // reserved, unfilled until below
	}

	obj, err := rd.readBody(ty)
	if err != nil {
		return nil, err
	}

	if ref {
		rd.refs[slot] = refSlot{value: obj, filled: true}
	}
	return obj, nil
}

// resolveRef looks up a TYPE_REF index against the back-reference table.
// An out-of-range index and a reference to a slot still under
// construction (a self-referential container reached from its own
// child before ReadObject filled the slot in) are both a RefError —
// spec.md §7 classifies InvalidRef as fatal, so there is no
// placeholder/undefined value to fall back to.
func (rd *Reader) resolveRef(idx int) (Constant, error) {
	if idx < 0 || idx >= len(rd.refs) {
		return nil, &RefError{Index: idx, Reason: "index out of range"}
	}
	slot := rd.refs[idx]
	if !slot.filled {
		return nil, &RefError{Index: idx, Reason: "reference to an object still under construction"}
	}
	return slot.value, nil
}

func (rd *Reader) readBody(ty byte) (Constant, error) {
	switch ty {
	case typeNull:
		return None{}, nil
	case typeNone:
		return None{}, nil
	case typeFalse:
		return Bool(false), nil
	case typeTrue:
		return Bool(true), nil
	case typeStopIter:
		return StopIterationSentinel{}, nil
	case typeEllipsis:
		return Ellipsis{}, nil

	case typeInt:
		v, err := rd.readInt32()
		return Int(v), err
	case typeInt64:
		v, err := rd.readInt64()
		return Int(v), err
	case typeLong:
		return rd.readLong()
	case typeFloat:
		return rd.readFloatText()
	case typeBinaryFloat:
		v, err := rd.readFloat64()
		return Float(v), err
	case typeComplex:
		re, err := rd.readFloatText()
		if err != nil {
			return nil, err
		}
		im, err := rd.readFloatText()
		if err != nil {
			return nil, err
		}
		return Complex(complex(float64(re.(Float)), float64(im.(Float)))), nil
	case typeBinaryComplex:
		re, err := rd.readFloat64()
		if err != nil {
			return nil, err
		}
		im, err := rd.readFloat64()
		if err != nil {
			return nil, err
		}
		return Complex(complex(re, im)), nil

	case typeString:
		b, err := rd.readBytes32()
		return Bytes(b), err

	case typeUnicode, typeAscii, typeShortAscii:
		s, err := rd.readStringByType(ty)
		return Str(s), err
	case typeInterned, typeAsciiInterned, typeShortAsciiInterned:
		s, err := rd.readStringByType(ty)
		if err != nil {
			return nil, err
		}
		v := rd.internString(s)
		rd.stringrefs = append(rd.stringrefs, v)
		return v, nil

	case typeSmallTuple:
		return rd.readSequence(Tuple{}, rd.readUint8Count)
	case typeTuple:
		return rd.readSequence(Tuple{}, rd.readInt32Count)
	case typeList:
		return rd.readSequence(List{}, rd.readInt32Count)
	case typeSet:
		return rd.readSequence(Set{}, rd.readInt32Count)
	case typeFrozenSet:
		return rd.readSequence(FrozenSet{}, rd.readInt32Count)

	case typeDict:
		return rd.readDict()

	case typeCode:
		co, err := rd.readCode()
		if err != nil {
			return nil, err
		}
		return Code{co}, nil

	case typeRef:
		idx, err := rd.readInt32()
		if err != nil {
			return nil, err
		}
		return rd.resolveRef(int(idx))

	case typeStringRef:
		idx, err := rd.readInt32()
		if err != nil {
			return nil, err
		}
		if int(idx) < 0 || int(idx) >= len(rd.stringrefs) {
			return nil, &RefError{Index: int(idx), Reason: "stringref index out of range"}
		}
		return rd.stringrefs[idx], nil

	case typeUnknown:
		return None{}, nil

	default:
		return nil, fmt.Errorf("marshal: unrecognized type byte %q (0x%02x)", rune(ty), ty)
	}
}

func (rd *Reader) internString(s string) Str {
	if v, ok := rd.intern.Get(s); ok {
		return v
	}
	v := Str(s)
	rd.intern.Set(s, v)
	return v
}

func (rd *Reader) readStringByType(ty byte) (string, error) {
	switch ty {
	case typeShortAscii, typeShortAsciiInterned:
		n, err := rd.r.ReadByte()
		if err != nil {
			return "", err
		}
		return rd.readRawString(int(n))
	default:
		n, err := rd.readInt32()
		if err != nil {
			return "", err
		}
		return rd.readRawString(int(n))
	}
}

func (rd *Reader) readRawString(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(rd.r, buf); err != nil {
		return "", fmt.Errorf("marshal: reading %d-byte string: %w", n, err)
	}
	return string(buf), nil
}

func (rd *Reader) readBytes32() ([]byte, error) {
	n, err := rd.readInt32()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(rd.r, buf); err != nil {
		return nil, fmt.Errorf("marshal: reading %d-byte blob: %w", n, err)
	}
	return buf, nil
}

func (rd *Reader) readUint8Count() (int, error) {
	b, err := rd.r.ReadByte()
	return int(b), err
}

func (rd *Reader) readInt32Count() (int, error) {
	v, err := rd.readInt32()
	return int(v), err
}

func (rd *Reader) readSequence(kind Constant, readCount func() (int, error)) (Constant, error) {
	n, err := readCount()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		rd.diag.Add(diag.OutOfRangeOperand, "", 0, "negative container length %d, treating as empty", n)
		n = 0
	}
	items := make([]Constant, 0, n)
	for i := 0; i < n; i++ {
		item, err := rd.ReadObject()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	switch kind.(type) {
	case Tuple:
		return Tuple(items), nil
	case List:
		return List(items), nil
	case Set:
		return Set(items), nil
	case FrozenSet:
		return FrozenSet(items), nil
	default:
		return Tuple(items), nil
	}
}

// readDict reads marshal's dict encoding: alternating key/value objects
// terminated by a TYPE_NULL key (spec.md §4.2), not a length prefix.
func (rd *Reader) readDict() (Constant, error) {
	var entries Dict
	for {
		tb, err := rd.r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("marshal: reading dict key: %w", err)
		}
		if tb&^flagRef == typeNull {
			return entries, nil
		}
		key, err := rd.readBody(tb &^ flagRef)
		if err != nil {
			return nil, err
		}
		if tb&flagRef != 0 {
			rd.refs = append(rd.refs, refSlot{value: key, filled: true})
		}
		val, err := rd.ReadObject()
		if err != nil {
			return nil, err
		}
		entries = append(entries, DictEntry{Key: key, Value: val})
	}
}

func (rd *Reader) readLong() (Constant, error) {
	n, err := rd.readInt32()
	if err != nil {
		return nil, err
	}
	count := int(n)
	if count < 0 {
		count = -count
	}
	digits := make([]uint16, count)
	for i := range digits {
		d, err := rd.readUint16()
		if err != nil {
			return nil, err
		}
		digits[i] = d
	}
	return Long{FromDigits(n, digits)}, nil
}

func (rd *Reader) readFloatText() (Constant, error) {
	n, err := rd.r.ReadByte()
	if err != nil {
		return nil, err
	}
	s, err := rd.readRawString(int(n))
	if err != nil {
		return nil, err
	}
	var f float64
	if _, err := fmt.Sscanf(s, "%g", &f); err != nil {
		return nil, fmt.Errorf("marshal: parsing legacy float literal %q: %w", s, err)
	}
	return Float(f), nil
}

func (rd *Reader) readFloat64() (float64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(rd.r, buf[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(buf[:])), nil
}

func (rd *Reader) readUint16() (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(rd.r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

// readVersionedInt reads one of a code object's header integer fields
// (argcount/nlocals/stacksize/flags): 4 bytes from Python 2.3 onward, 2
// bytes before that (spec.md §4.2 "pre-2.3 uses 16-bit integer fields").
func (rd *Reader) readVersionedInt() (int32, error) {
	if rd.ver.AtLeast(version.V(2, 3)) {
		return rd.readInt32()
	}
	v, err := rd.readUint16()
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}

func (rd *Reader) readInt32() (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(rd.r, buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(buf[:])), nil
}

func (rd *Reader) readInt64() (int64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(rd.r, buf[:]); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}
