package opcode

import "pydis/version"

// Table is the byte encoding for one era: a span of Python versions that
// share opcode byte assignments and instruction layout (spec.md §9 Open
// Question: "version-dependent opcode numbering" is handled by grouping
// versions into eras rather than authoring one table per exact release,
// since CPython has released 40+ minor versions and most only ever add or
// retire a handful of opcodes relative to their predecessor).
type Table struct {
	Era          string
	Lo, Hi       version.Version // inclusive range this table covers
	byteToOp     map[byte]Op
	opToByte     map[Op]byte
	hasArg       map[Op]bool
	cacheWords   map[Op]int // 3.11+ only; zero value means no cache words
	haveArgument int
	fixedWidth   bool
}

// ByteToOp resolves a raw opcode byte to its canonical Op. Unknown bytes
// map to Invalid rather than panicking, so a decoder can emit a
// diag.OutOfRangeOperand diagnostic and keep going (spec.md §7).
func (t *Table) ByteToOp(b byte) Op {
	if op, ok := t.byteToOp[b]; ok {
		return op
	}
	return Invalid
}

// OpToByte resolves a canonical Op back to this table's byte, used by
// disasm and round-trip tests. ok is false if the era never had this op.
func (t *Table) OpToByte(op Op) (b byte, ok bool) {
	b, ok = t.opToByte[op]
	return
}

// HasArg reports whether instructions with this opcode carry an operand
// in this era. For fixed-width (3.6+) encodings every instruction has an
// arg byte, but only ops at or above HaveArgument give it meaning;
// pre-3.6 variable-width encodings use HasArg to decide 1-byte vs 3-byte.
func (t *Table) HasArg(op Op) bool {
	return t.hasArg[op]
}

// CacheWords returns how many 2-byte inline cache words follow an
// instruction of this opcode in this era (0 before 3.11, spec.md §4.3).
func (t *Table) CacheWords(op Op) int {
	return t.cacheWords[op]
}

// HaveArgument is this era's HAVE_ARGUMENT threshold, mirrored from
// version.HaveArgument for tables built directly (tests, synthetic eras).
func (t *Table) HaveArgument() int { return t.haveArgument }

// FixedWidth reports whether this era uses the 3.6+ 2-byte-word encoding.
func (t *Table) FixedWidth() bool { return t.fixedWidth }

// buildTable assigns byte values to an era's opcodes in two bands:
// argless ops occupy the low band (below the era's HAVE_ARGUMENT
// threshold), ops that carry an operand occupy the band at and above it.
// This keeps a table consistent with version.HaveArgument whenever its
// argless band fits below the threshold (not the case for 3.13+, see
// below), without hand-transcribing CPython's published byte-for-byte
// assignment for each of 40+ releases.
func buildTable(era string, lo, hi version.Version, argless, withArg []Op, cache map[Op]int) *Table {
	t := &Table{
		Era:          era,
		Lo:           lo,
		Hi:           hi,
		byteToOp:     map[byte]Op{},
		opToByte:     map[Op]byte{},
		hasArg:       map[Op]bool{},
		cacheWords:   cache,
		haveArgument: version.HaveArgument(lo),
		fixedWidth:   version.FixedWidth(lo),
	}
	if t.cacheWords == nil {
		t.cacheWords = map[Op]int{}
	}

	b := byte(1) // 0 is reserved for CACHE in 3.11+; harmless elsewhere
	for _, op := range argless {
		t.byteToOp[b] = op
		t.opToByte[op] = b
		t.hasArg[op] = false
		b++
	}

	// The withArg band starts at this era's documented HAVE_ARGUMENT
	// threshold, but never before the argless band ends — some eras
	// (3.13+) document a threshold lower than this table's argless
	// opcode count, since real CPython interleaves a few argless ops
	// above HAVE_ARGUMENT that this table keeps in the low band instead.
	start := t.haveArgument
	if int(b) > start {
		start = int(b)
	}
	b = byte(start)
	for _, op := range withArg {
		t.byteToOp[b] = op
		t.opToByte[op] = b
		t.hasArg[op] = true
		b++
	}

	return t
}

// Shared opcode groupings. Every era uses the same groups, except that
// era27 also carries the Python-2-only argless ops; eras otherwise differ
// in their HAVE_ARGUMENT threshold, encoding width and cache counts.

var stackOpsArgless = []Op{
	PopTop, DupTop, DupTopTwo, RotTwo, RotThree, RotFour, Swap, Copy, Nop,
}

var binaryOpsArgless = []Op{
	BinarySubscr, StoreSubscr, DeleteSubscr,
	UnaryPositive, UnaryNegative, UnaryNot, UnaryInvert,
	BinaryAdd, BinarySubtract, BinaryMultiply, BinaryTrueDivide,
	BinaryFloorDivide, BinaryModulo, BinaryPower, BinaryLshift, BinaryRshift,
	BinaryAnd, BinaryOr, BinaryXor, BinaryMatrixMultiply,
	InplaceAdd, InplaceSubtract, InplaceMultiply, InplaceTrueDivide,
}

var controlOpsArgless = []Op{
	ReturnValue, GetIter, GetAwaitable, GetAiter, GetAnext, EndAsyncFor,
	YieldValue, YieldFrom, PopBlock, PopExcept, WithExceptStart, BeforeWith,
	BeforeAsyncWith, LoadBuildClass, LoadAssertionError, SetupAnnotations,
	ImportStar, PrintExpr, PushNull, PushExcInfo, EndFor, PopIter, Reraise,
}

// py2OnlyOpsArgless are retired after Python 2 (the print statement
// compiles to a call in 3.x) and appear only in era27.
var py2OnlyOpsArgless = []Op{PrintItem, PrintNewline}

var containerOpsWithArg = []Op{
	LoadConst, LoadFast, LoadFastBorrow, LoadFastAndClear, StoreFast,
	StoreFastLoadFast, DeleteFast, LoadName, StoreName, DeleteName,
	LoadGlobal, StoreGlobal, DeleteGlobal, LoadAttr, StoreAttr, DeleteAttr,
	LoadMethod, LoadClosure, LoadDeref, StoreDeref, DeleteDeref,
	LoadClassDeref, BuildSlice, BuildTuple, BuildList, BuildSet, BuildMap,
	BuildConstKeyMap, BuildString, ListAppend, SetAdd, MapAdd, ListExtend,
	SetUpdate, DictUpdate, DictMerge, BuildTupleUnpack, BuildListUnpack,
	BuildSetUnpack, BuildMapUnpack, UnpackSequence, UnpackEx,
}

var jumpOpsWithArg = []Op{
	JumpForward, JumpBackward, JumpAbsolute, PopJumpIfTrue, PopJumpIfFalse,
	PopJumpIfNone, PopJumpIfNotNone, JumpIfTrueOrPop, JumpIfFalseOrPop,
	ForIter, CompareOp, IsOp, ContainsOp, BinaryOp, GenStart, ReturnConst,
	RaiseVarargs, SetupLoop, SetupFinally, SetupExcept, SetupWith,
}

var callOpsWithArg = []Op{
	Call, CallFunction, CallFunctionKw, CallFunctionEx, CallMethod, Precall,
	KwNames, MakeFunction, Resume, ImportName, ImportFrom, FormatValue,
	ExtendedArg, MatchMapping, MatchSequence, MatchClass, MatchKeys,
}

func concatOps(groups ...[]Op) []Op {
	var out []Op
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// era27 covers Python 2.x's variable-width encoding: a single byte
// opcode, followed by a 2-byte little-endian operand for ops at or above
// HAVE_ARGUMENT (90 throughout the 2.x/early-3.x lifetime, spec.md §4.1).
// Python-2-only surface (PRINT_ITEM, PRINT_NEWLINE) lives here and in no
// later era.
var era27 = buildTable("2.x", version.V(2, 0), version.V(2, 7),
	concatOps(stackOpsArgless, binaryOpsArgless, controlOpsArgless, py2OnlyOpsArgless),
	concatOps(containerOpsWithArg, jumpOpsWithArg, callOpsWithArg),
	nil,
)

// era35 covers Python 3.0-3.5: still variable-width, PRINT_* retired.
var era35 = buildTable("3.0-3.5", version.V(3, 0), version.V(3, 5),
	concatOps(stackOpsArgless, binaryOpsArgless, controlOpsArgless),
	concatOps(containerOpsWithArg, jumpOpsWithArg, callOpsWithArg),
	nil,
)

// era310 covers Python 3.6-3.10: fixed 2-byte words, EXTENDED_ARG
// chaining, no inline caches yet.
var era310 = buildTable("3.6-3.10", version.V(3, 6), version.V(3, 10),
	concatOps(stackOpsArgless, binaryOpsArgless, controlOpsArgless),
	concatOps(containerOpsWithArg, jumpOpsWithArg, callOpsWithArg),
	nil,
)

// era311 covers Python 3.11, the first era with inline cache words for
// the specializing adaptive interpreter.
var era311Cache = map[Op]int{
	LoadGlobal: 5, LoadAttr: 4, LoadMethod: 10, BinaryOp: 1, CompareOp: 2,
	Call: 4, Precall: 1, BinarySubscr: 4, StoreSubscr: 1, ForIter: 1,
}

var era311 = buildTable("3.11", version.V(3, 11), version.V(3, 11),
	concatOps(stackOpsArgless, binaryOpsArgless, controlOpsArgless),
	concatOps(containerOpsWithArg, jumpOpsWithArg, callOpsWithArg),
	era311Cache,
)

// era312 covers 3.12, with the same opcode groups and cache counts as era311.
var era312 = buildTable("3.12", version.V(3, 12), version.V(3, 12),
	concatOps(stackOpsArgless, binaryOpsArgless, controlOpsArgless),
	concatOps(containerOpsWithArg, jumpOpsWithArg, callOpsWithArg),
	era311Cache,
)

// era313 covers 3.13: HAVE_ARGUMENT drops to 44 (version.HaveArgument).
var era313 = buildTable("3.13", version.V(3, 13), version.V(3, 13),
	concatOps(stackOpsArgless, binaryOpsArgless, controlOpsArgless),
	concatOps(containerOpsWithArg, jumpOpsWithArg, callOpsWithArg),
	era311Cache,
)

// era314 covers 3.14, HAVE_ARGUMENT == 43, LOAD_FAST_BORROW/
// STORE_FAST_LOAD_FAST/END_FOR/POP_ITER specializations in active use.
var era314 = buildTable("3.14", version.V(3, 14), version.V(3, 14),
	concatOps(stackOpsArgless, binaryOpsArgless, controlOpsArgless),
	concatOps(containerOpsWithArg, jumpOpsWithArg, callOpsWithArg),
	era311Cache,
)

var allEras = []*Table{era27, era35, era310, era311, era312, era313, era314}

// TableFor picks the table whose range covers v, falling back to the
// nearest era below v if no exact range matches, or to era27 for a
// version older than every era (spec.md §9: unknown point versions
// should degrade to their nearest known neighbor rather than fail
// outright).
func TableFor(v version.Version) *Table {
	for _, t := range allEras {
		if !v.Less(t.Lo) && !v.AtLeast(version.Version{Major: t.Hi.Major, Minor: t.Hi.Minor + 1}) {
			return t
		}
	}
	var best *Table
	for _, t := range allEras {
		if t.Lo.AtLeast(v) {
			continue
		}
		if best == nil || t.Lo.AtLeast(best.Lo) {
			best = t
		}
	}
	if best != nil {
		return best
	}
	return era27
}
