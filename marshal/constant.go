package marshal

// Constant is a Python object as frozen into a code object's co_consts
// (spec.md §3 "Constant"). It is a closed tagged union: the concrete
// types below are the only ones a marshal stream can produce.
type Constant interface {
	constant()
}

// None is the Python singleton, mirroring ogorek.go's None{} marker value.
type None struct{}

func (None) constant() {}

// Bool is True/False (TYPE_TRUE/TYPE_FALSE).
type Bool bool

func (Bool) constant() {}

// Ellipsis is the `...` singleton.
type Ellipsis struct{}

func (Ellipsis) constant() {}

// StopIterationSentinel is marshal's legacy TYPE_STOPITER constant,
// produced only by very old bytecode.
type StopIterationSentinel struct{}

func (StopIterationSentinel) constant() {}

// Int is a machine-word integer (TYPE_INT, 32-bit on the wire but widened
// to Go's int64 on decode).
type Int int64

func (Int) constant() {}

// Long is an arbitrary-precision integer (TYPE_LONG).
type Long struct{ BigInt }

func (Long) constant() {}

// Float is a binary double (TYPE_BINARY_FLOAT) or, pre-3.0, a decimal
// literal string (TYPE_FLOAT) — the reader normalizes both to float64.
type Float float64

func (Float) constant() {}

// Complex is TYPE_COMPLEX/TYPE_BINARY_COMPLEX.
type Complex complex128

func (Complex) constant() {}

// Str is a Python text string (TYPE_UNICODE and its ASCII/short/interned
// variants, all normalized to Go's UTF-8 string here).
type Str string

func (Str) constant() {}

// Bytes is a Python bytes object (TYPE_STRING in 3.x marshal; the name
// comes from Python 2 where TYPE_STRING meant str, per the fq reference).
type Bytes []byte

func (Bytes) constant() {}

// Tuple, List, Set and FrozenSet are ordered/unordered constant
// containers. Order is preserved even for Set/FrozenSet so the code
// generator can emit them deterministically (spec.md Non-goals: no
// requirement to match CPython's runtime set iteration order, only to be
// stable run to run).
type Tuple []Constant

func (Tuple) constant() {}

type List []Constant

func (List) constant() {}

type Set []Constant

func (Set) constant() {}

type FrozenSet []Constant

func (FrozenSet) constant() {}

// DictEntry is one key/value pair of a marshaled dict constant. Marshal
// streams dicts as an alternating key/value sequence terminated by a
// TYPE_NULL key rather than a length-prefixed map (spec.md §4.2), so the
// reader preserves insertion order here instead of collapsing to a Go map.
type DictEntry struct {
	Key, Value Constant
}

// Dict is a marshaled dict constant (rare as a constant; common as a
// code object's __annotations__ or similar literal dict embedded as data).
type Dict []DictEntry

func (Dict) constant() {}

// Code wraps a nested CodeObject appearing as a constant — every nested
// function or class body, lambda and comprehension compiles to one of
// these sitting in the enclosing code object's co_consts.
type Code struct{ *CodeObject }

func (Code) constant() {}

// Ref is a marshal back-reference (TYPE_REF) consumed only by Writer,
// which never emits FLAG_REF and so writes a Ref it is asked to write as
// a bare index rather than expanding it. Reader
// never returns a Ref: a back-reference it cannot resolve is a RefError,
// not a value (spec.md §7: InvalidRef is fatal, never degrade into a
// placeholder).
type Ref struct{ Index int }

func (Ref) constant() {}
