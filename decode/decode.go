// Package decode turns a code object's raw bytecode into a linear
// instruction stream, absorbing EXTENDED_ARG and variable-width encoding
// differences so every later stage sees one consistent Instruction shape
// regardless of the producing Python version (spec.md §4.3).
package decode

import (
	"fmt"

	"pydis/opcode"
	"pydis/version"
)

// Instruction is one decoded bytecode operation, normalized across all
// supported eras (spec.md §3 "Instruction").
type Instruction struct {
	Op         opcode.Op
	Arg        uint32 // 0 if Op carries no operand; EXTENDED_ARG already folded in
	Offset     int    // byte offset of the instruction's first byte (its first EXTENDED_ARG prefix, if any)
	Size       int    // total bytes consumed, including any EXTENDED_ARG prefixes and inline caches
	CacheWords int    // count of inline cache words following the opcode, already folded into Size (3.11+; 0 before that)
}

// Decoder walks a CodeObject's raw bytecode, yielding one Instruction at
// a time via Next.
type Decoder struct {
	code  []byte
	table *opcode.Table
	ver   version.Version
	pos   int
}

// NewDecoder builds a Decoder for code, using the opcode table for code's
// producing version.
func NewDecoder(code []byte, ver version.Version) *Decoder {
	return &Decoder{code: code, table: opcode.TableFor(ver), ver: ver}
}

// Done reports whether the stream is exhausted.
func (d *Decoder) Done() bool { return d.pos >= len(d.code) }

// Next decodes one instruction, or returns io.EOF-shaped (Instruction{},
// false, nil) at end of stream. A truncated final instruction returns an error
// rather than panicking, so callers can report it and keep whatever was
// already decoded (spec.md §7).
func (d *Decoder) Next() (Instruction, bool, error) {
	if d.Done() {
		return Instruction{}, false, nil
	}
	if d.table.FixedWidth() {
		return d.nextFixed()
	}
	return d.nextVariable()
}

// nextFixed decodes one 3.6+ instruction: a 2-byte (opcode, arg) word,
// with EXTENDED_ARG words folded into the following instruction's
// operand and, from 3.11, a run of inline cache words skipped after the
// opcode they belong to.
func (d *Decoder) nextFixed() (Instruction, bool, error) {
	start := d.pos
	var arg uint32
	for {
		if d.pos+2 > len(d.code) {
			return Instruction{}, false, fmt.Errorf("decode: truncated instruction at offset %d", d.pos)
		}
		b := d.code[d.pos]
		a := d.code[d.pos+1]
		op := d.table.ByteToOp(b)
		d.pos += 2

		if op == opcode.ExtendedArg {
			arg = (arg << 8) | uint32(a)
			continue
		}
		arg = (arg << 8) | uint32(a)

		caches := d.table.CacheWords(op)
		d.pos += caches * 2

		return Instruction{
			Op:         op,
			Arg:        arg,
			Offset:     start,
			Size:       d.pos - start,
			CacheWords: caches,
		}, true, nil
	}
}

// nextVariable decodes one pre-3.6 instruction: a 1-byte opcode,
// followed by a 2-byte little-endian argument only if the opcode is at
// or above this era's HAVE_ARGUMENT threshold. EXTENDED_ARG folds the
// same way as the fixed-width case.
func (d *Decoder) nextVariable() (Instruction, bool, error) {
	start := d.pos
	var arg uint32
	for {
		if d.pos >= len(d.code) {
			return Instruction{}, false, fmt.Errorf("decode: truncated instruction at offset %d", d.pos)
		}
		b := d.code[d.pos]
		op := d.table.ByteToOp(b)
		d.pos++

		if !d.table.HasArg(op) {
			if op == opcode.ExtendedArg {
				return Instruction{}, false, fmt.Errorf("decode: EXTENDED_ARG without argument at offset %d", start)
			}
			return Instruction{Op: op, Offset: start, Size: d.pos - start}, true, nil
		}

		if d.pos+2 > len(d.code) {
			return Instruction{}, false, fmt.Errorf("decode: truncated operand at offset %d", d.pos)
		}
		lo := uint32(d.code[d.pos])
		hi := uint32(d.code[d.pos+1])
		d.pos += 2
		word := lo | (hi << 8)

		if op == opcode.ExtendedArg {
			arg = (arg << 16) | word
			continue
		}
		arg = (arg << 16) | word
		return Instruction{Op: op, Arg: arg, Offset: start, Size: d.pos - start}, true, nil
	}
}

// All decodes every instruction in code. It stops at the first decode
// error and returns it together with every instruction decoded before
// it, so a single corrupt tail doesn't erase everything decoded before it.
func All(code []byte, ver version.Version) ([]Instruction, error) {
	d := NewDecoder(code, ver)
	var out []Instruction
	for {
		ins, ok, err := d.Next()
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, ins)
	}
}

// InstructionAt finds the instruction whose Offset equals offset, used
// by jump-target resolution in cfg.
func InstructionAt(instrs []Instruction, offset int) (int, bool) {
	for i, ins := range instrs {
		if ins.Offset == offset {
			return i, true
		}
	}
	return -1, false
}
