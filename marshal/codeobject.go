package marshal

import "pydis/version"

// VarKind classifies one slot of a 3.11+ localsplusnames/localspluskinds
// pair (spec.md §3/§4.2): whether a name in the unified fast-locals array
// is a plain local, a cell, or a free variable.
type VarKind int

const (
	VarLocal VarKind = iota
	VarCellArg
	VarCell
	VarFree
	VarHidden // compiler-synthesized locals (e.g. comprehension iterator arg)
)

// CodeObject is a Python code object (spec.md §3 "CodeObject"), the unit
// a function, lambda, comprehension, class body or module body compiles
// to. Field presence and meaning vary across versions; Reader populates
// only the fields meaningful for the CodeObject's Version and leaves the
// rest at their zero value rather than guessing.
type CodeObject struct {
	Version version.Version

	ArgCount        int
	PosOnlyArgCount int // 0 before 3.8
	KwOnlyArgCount  int // 0 before 3.0
	StackSize       int
	Flags           uint32

	Code  []byte     // raw bytecode, not yet decoded
	Names []string   // global/attribute/import names referenced by LOAD_NAME &c
	Varnames []string // pre-3.11: local variable names, argcount+kwonlyargcount+locals in order
	Freevars []string // pre-3.11: free variable names (closed-over from an enclosing scope)
	Cellvars []string // pre-3.11: names captured by a nested scope

	// 3.11+: Varnames/Freevars/Cellvars collapse into one array with a
	// parallel kind tag per slot.
	LocalsPlusNames []string
	LocalsPlusKinds []VarKind

	Consts []Constant

	Filename    string
	Name        string
	Qualname    string // 3.11+; equal to Name before that
	FirstLine   int
	LnotabOrLinetable []byte // Lnotab (<3.10) or linetable (3.10+), not pre-decoded (spec.md §3 "lazy decode")
	ExceptionTable    []byte // 3.11+ only
}

// NLocals is co_nlocals: the count of plain local variables, derived
// rather than stored directly on 3.11+ code objects (spec.md §4.2 notes
// CPython omits nlocals from the 3.11+ wire format since it's recoverable
// from LocalsPlusKinds).
func (c *CodeObject) NLocals() int {
	if c.Version.AtLeast(version.V(3, 11)) {
		n := 0
		for _, k := range c.LocalsPlusKinds {
			if k == VarLocal || k == VarCellArg || k == VarHidden {
				n++
			}
		}
		return n
	}
	return len(c.Varnames)
}

// Flag bits shared across versions that need to be inspected directly
// (most others only matter to the interpreter, not to decompilation).
const (
	FlagOptimized  uint32 = 0x0001
	FlagNewLocals  uint32 = 0x0002
	FlagVarargs    uint32 = 0x0004
	FlagVarKeywords uint32 = 0x0008
	FlagNested     uint32 = 0x0010
	FlagGenerator  uint32 = 0x0020
	FlagNofree     uint32 = 0x0040 // no free or cell vars
	FlagCoroutine  uint32 = 0x0080
	FlagIterableCoroutine uint32 = 0x0100
	FlagAsyncGenerator    uint32 = 0x0200
)

func (c *CodeObject) IsGenerator() bool      { return c.Flags&FlagGenerator != 0 }
func (c *CodeObject) IsCoroutine() bool      { return c.Flags&FlagCoroutine != 0 }
func (c *CodeObject) IsAsyncGenerator() bool { return c.Flags&FlagAsyncGenerator != 0 }
func (c *CodeObject) HasVarargs() bool       { return c.Flags&FlagVarargs != 0 }
func (c *CodeObject) HasVarKeywords() bool   { return c.Flags&FlagVarKeywords != 0 }
