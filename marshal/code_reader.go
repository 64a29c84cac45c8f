package marshal

import (
	"fmt"

	"pydis/version"
)

// readCode decodes one TYPE_CODE body. The field list CPython writes has
// grown steadily since 1.0; spec.md §4.2 enumerates the three shapes this
// switches on: pre-3.0 (no kwonlyargcount), 3.0-3.10 (kwonlyargcount,
// posonlyargcount from 3.8, no qualname/localsplus), and 3.11+
// (qualname, unified localsplusnames/localspluskinds, exceptiontable,
// no separate varnames/freevars/cellvars/nlocals).
func (rd *Reader) readCode() (*CodeObject, error) {
	co := &CodeObject{Version: rd.ver}

	argc, err := rd.readVersionedInt()
	if err != nil {
		return nil, fmt.Errorf("marshal: code.argcount: %w", err)
	}
	co.ArgCount = int(argc)

	if rd.ver.AtLeast(version.V(3, 8)) {
		v, err := rd.readInt32()
		if err != nil {
			return nil, fmt.Errorf("marshal: code.posonlyargcount: %w", err)
		}
		co.PosOnlyArgCount = int(v)
	}

	if rd.ver.AtLeast(version.V(3, 0)) {
		v, err := rd.readInt32()
		if err != nil {
			return nil, fmt.Errorf("marshal: code.kwonlyargcount: %w", err)
		}
		co.KwOnlyArgCount = int(v)
	}

	if !rd.ver.AtLeast(version.V(3, 11)) {
		nlocals, err := rd.readVersionedInt()
		if err != nil {
			return nil, fmt.Errorf("marshal: code.nlocals: %w", err)
		}
		_ = nlocals // derived from Varnames on read-back; kept only to advance the stream
	}

	stacksize, err := rd.readVersionedInt()
	if err != nil {
		return nil, fmt.Errorf("marshal: code.stacksize: %w", err)
	}
	co.StackSize = int(stacksize)

	flags, err := rd.readVersionedInt()
	if err != nil {
		return nil, fmt.Errorf("marshal: code.flags: %w", err)
	}
	co.Flags = uint32(flags)

	co.Code, err = rd.readObjectAsBytes()
	if err != nil {
		return nil, fmt.Errorf("marshal: code.code: %w", err)
	}

	consts, err := rd.readObjectAsConstants()
	if err != nil {
		return nil, fmt.Errorf("marshal: code.consts: %w", err)
	}
	co.Consts = consts

	co.Names, err = rd.readObjectAsStrings()
	if err != nil {
		return nil, fmt.Errorf("marshal: code.names: %w", err)
	}

	if rd.ver.AtLeast(version.V(3, 11)) {
		co.LocalsPlusNames, err = rd.readObjectAsStrings()
		if err != nil {
			return nil, fmt.Errorf("marshal: code.localsplusnames: %w", err)
		}
		kinds, err := rd.readObjectAsBytes()
		if err != nil {
			return nil, fmt.Errorf("marshal: code.localspluskinds: %w", err)
		}
		co.LocalsPlusKinds = make([]VarKind, len(kinds))
		for i, b := range kinds {
			co.LocalsPlusKinds[i] = decodeVarKind(b)
		}
	} else {
		co.Varnames, err = rd.readObjectAsStrings()
		if err != nil {
			return nil, fmt.Errorf("marshal: code.varnames: %w", err)
		}
		co.Freevars, err = rd.readObjectAsStrings()
		if err != nil {
			return nil, fmt.Errorf("marshal: code.freevars: %w", err)
		}
		co.Cellvars, err = rd.readObjectAsStrings()
		if err != nil {
			return nil, fmt.Errorf("marshal: code.cellvars: %w", err)
		}
	}

	co.Filename, err = rd.readObjectAsString()
	if err != nil {
		return nil, fmt.Errorf("marshal: code.filename: %w", err)
	}
	co.Name, err = rd.readObjectAsString()
	if err != nil {
		return nil, fmt.Errorf("marshal: code.name: %w", err)
	}
	co.Qualname = co.Name

	if rd.ver.AtLeast(version.V(3, 11)) {
		co.Qualname, err = rd.readObjectAsString()
		if err != nil {
			return nil, fmt.Errorf("marshal: code.qualname: %w", err)
		}
	}

	firstline, err := rd.readInt32()
	if err != nil {
		return nil, fmt.Errorf("marshal: code.firstlineno: %w", err)
	}
	co.FirstLine = int(firstline)

	// pre-2.3 code objects have no lnotab at all (spec.md §4.2
	// "pre-2.3 uses 16-bit integer fields and omits lnotab").
	if rd.ver.AtLeast(version.V(2, 3)) {
		co.LnotabOrLinetable, err = rd.readObjectAsBytes()
		if err != nil {
			return nil, fmt.Errorf("marshal: code.lnotab: %w", err)
		}
	}

	if rd.ver.AtLeast(version.V(3, 11)) {
		co.ExceptionTable, err = rd.readObjectAsBytes()
		if err != nil {
			return nil, fmt.Errorf("marshal: code.exceptiontable: %w", err)
		}
	}

	return co, nil
}

// CPython's localspluskinds packs a small set of flag bits per slot
// rather than a single enum byte; the bit meanings below follow
// Include/cpython/code.h's CO_FAST_* constants.
const (
	coFastLocal  = 0x20
	coFastCell   = 0x40
	coFastFree   = 0x80
	coFastHidden = 0x10
)

func decodeVarKind(b byte) VarKind {
	switch {
	case b&coFastFree != 0:
		return VarFree
	case b&coFastCell != 0:
		return VarCellArg
	case b&coFastHidden != 0:
		return VarHidden
	default:
		return VarLocal
	}
}

func (rd *Reader) readObjectAsBytes() ([]byte, error) {
	obj, err := rd.ReadObject()
	if err != nil {
		return nil, err
	}
	switch v := obj.(type) {
	case Bytes:
		return []byte(v), nil
	case Str:
		return []byte(v), nil
	case None:
		return nil, nil
	default:
		return nil, fmt.Errorf("marshal: expected bytes-like object, got %T", obj)
	}
}

func (rd *Reader) readObjectAsString() (string, error) {
	obj, err := rd.ReadObject()
	if err != nil {
		return "", err
	}
	switch v := obj.(type) {
	case Str:
		return string(v), nil
	case Bytes:
		return string(v), nil
	case None:
		return "", nil
	default:
		return "", fmt.Errorf("marshal: expected string-like object, got %T", obj)
	}
}

func (rd *Reader) readObjectAsStrings() ([]string, error) {
	obj, err := rd.ReadObject()
	if err != nil {
		return nil, err
	}
	var seq []Constant
	switch v := obj.(type) {
	case Tuple:
		seq = v
	case List:
		seq = v
	case None:
		return nil, nil
	default:
		return nil, fmt.Errorf("marshal: expected a sequence of names, got %T", obj)
	}
	out := make([]string, len(seq))
	for i, c := range seq {
		switch s := c.(type) {
		case Str:
			out[i] = string(s)
		case Bytes:
			out[i] = string(s)
		default:
			out[i] = fmt.Sprintf("%v", c)
		}
	}
	return out, nil
}

func (rd *Reader) readObjectAsConstants() ([]Constant, error) {
	obj, err := rd.ReadObject()
	if err != nil {
		return nil, err
	}
	switch v := obj.(type) {
	case Tuple:
		return []Constant(v), nil
	case List:
		return []Constant(v), nil
	case None:
		return nil, nil
	default:
		return nil, fmt.Errorf("marshal: expected a sequence of constants, got %T", obj)
	}
}
