// Package opcode maps canonical, version-independent operation names to
// the per-version byte encodings Python bytecode has used across releases
// (spec.md §4.1). No other package branches on Version to interpret an
// opcode's meaning (spec.md §9) — that knowledge lives here alone.
package opcode

// Op is a canonical opcode tag. The same Op may sit at different byte
// values in different Python versions, and an Op removed from later
// versions (e.g. JUMP_ABSOLUTE, SETUP_LOOP) still has a slot here so
// version-independent code can name it.
type Op int

const (
	Invalid Op = iota

	// stack shuffling
	PopTop
	DupTop
	DupTopTwo
	RotTwo
	RotThree
	RotFour
	Swap
	Copy
	Nop

	// loads/stores of simple names
	LoadConst
	LoadFast
	LoadFastBorrow
	LoadFastAndClear
	StoreFast
	StoreFastLoadFast
	DeleteFast
	LoadName
	StoreName
	DeleteName
	LoadGlobal
	StoreGlobal
	DeleteGlobal
	LoadAttr
	StoreAttr
	DeleteAttr
	LoadMethod
	LoadClosure
	LoadDeref
	StoreDeref
	DeleteDeref
	LoadClassDeref
	LoadBuildClass
	LoadAssertionError

	// subscript/slice
	BinarySubscr
	StoreSubscr
	DeleteSubscr
	BuildSlice

	// containers
	BuildTuple
	BuildList
	BuildSet
	BuildMap
	BuildConstKeyMap
	BuildString
	ListAppend
	SetAdd
	MapAdd
	ListExtend
	SetUpdate
	DictUpdate
	DictMerge
	BuildTupleUnpack
	BuildListUnpack
	BuildSetUnpack
	BuildMapUnpack
	UnpackSequence
	UnpackEx

	// operators
	UnaryPositive
	UnaryNegative
	UnaryNot
	UnaryInvert
	BinaryOp
	BinaryAdd
	BinarySubtract
	BinaryMultiply
	BinaryTrueDivide
	BinaryFloorDivide
	BinaryModulo
	BinaryPower
	BinaryLshift
	BinaryRshift
	BinaryAnd
	BinaryOr
	BinaryXor
	BinaryMatrixMultiply
	InplaceAdd
	InplaceSubtract
	InplaceMultiply
	InplaceTrueDivide
	CompareOp
	IsOp
	ContainsOp

	// control flow
	JumpForward
	JumpBackward
	JumpAbsolute
	PopJumpIfTrue
	PopJumpIfFalse
	PopJumpIfNone
	PopJumpIfNotNone
	JumpIfTrueOrPop
	JumpIfFalseOrPop
	GetIter
	ForIter
	EndFor
	PopIter
	GetAwaitable
	GetAiter
	GetAnext
	EndAsyncFor
	YieldValue
	YieldFrom
	GenStart
	ReturnValue
	ReturnConst
	RaiseVarargs
	Reraise
	PopBlock
	PopExcept
	SetupLoop
	SetupFinally
	SetupExcept
	SetupWith
	BeforeWith
	BeforeAsyncWith
	WithExceptStart
	PushExcInfo

	// calls / functions / classes
	Call
	CallFunction
	CallFunctionKw
	CallFunctionEx
	CallMethod
	Precall
	KwNames
	MakeFunction
	PushNull
	Resume
	Cache

	// imports / misc
	ImportName
	ImportFrom
	ImportStar
	SetupAnnotations
	FormatValue
	PrintExpr
	PrintItem
	PrintNewline
	ExtendedArg

	// pattern matching (3.10+)
	MatchMapping
	MatchSequence
	MatchClass
	MatchKeys

	numOps
)

var names = [numOps]string{
	Invalid:              "INVALID",
	PopTop:               "POP_TOP",
	DupTop:               "DUP_TOP",
	DupTopTwo:            "DUP_TOP_TWO",
	RotTwo:               "ROT_TWO",
	RotThree:             "ROT_THREE",
	RotFour:              "ROT_FOUR",
	Swap:                 "SWAP",
	Copy:                 "COPY",
	Nop:                  "NOP",
	LoadConst:            "LOAD_CONST",
	LoadFast:             "LOAD_FAST",
	LoadFastBorrow:       "LOAD_FAST_BORROW",
	LoadFastAndClear:     "LOAD_FAST_AND_CLEAR",
	StoreFast:            "STORE_FAST",
	StoreFastLoadFast:    "STORE_FAST_LOAD_FAST",
	DeleteFast:           "DELETE_FAST",
	LoadName:             "LOAD_NAME",
	StoreName:            "STORE_NAME",
	DeleteName:           "DELETE_NAME",
	LoadGlobal:           "LOAD_GLOBAL",
	StoreGlobal:          "STORE_GLOBAL",
	DeleteGlobal:         "DELETE_GLOBAL",
	LoadAttr:             "LOAD_ATTR",
	StoreAttr:            "STORE_ATTR",
	DeleteAttr:           "DELETE_ATTR",
	LoadMethod:           "LOAD_METHOD",
	LoadClosure:          "LOAD_CLOSURE",
	LoadDeref:            "LOAD_DEREF",
	StoreDeref:           "STORE_DEREF",
	DeleteDeref:          "DELETE_DEREF",
	LoadClassDeref:       "LOAD_CLASSDEREF",
	LoadBuildClass:       "LOAD_BUILD_CLASS",
	LoadAssertionError:   "LOAD_ASSERTION_ERROR",
	BinarySubscr:         "BINARY_SUBSCR",
	StoreSubscr:          "STORE_SUBSCR",
	DeleteSubscr:         "DELETE_SUBSCR",
	BuildSlice:           "BUILD_SLICE",
	BuildTuple:           "BUILD_TUPLE",
	BuildList:            "BUILD_LIST",
	BuildSet:             "BUILD_SET",
	BuildMap:             "BUILD_MAP",
	BuildConstKeyMap:     "BUILD_CONST_KEY_MAP",
	BuildString:          "BUILD_STRING",
	ListAppend:           "LIST_APPEND",
	SetAdd:               "SET_ADD",
	MapAdd:               "MAP_ADD",
	ListExtend:           "LIST_EXTEND",
	SetUpdate:            "SET_UPDATE",
	DictUpdate:           "DICT_UPDATE",
	DictMerge:            "DICT_MERGE",
	BuildTupleUnpack:     "BUILD_TUPLE_UNPACK",
	BuildListUnpack:      "BUILD_LIST_UNPACK",
	BuildSetUnpack:       "BUILD_SET_UNPACK",
	BuildMapUnpack:       "BUILD_MAP_UNPACK",
	UnpackSequence:       "UNPACK_SEQUENCE",
	UnpackEx:             "UNPACK_EX",
	UnaryPositive:        "UNARY_POSITIVE",
	UnaryNegative:        "UNARY_NEGATIVE",
	UnaryNot:             "UNARY_NOT",
	UnaryInvert:          "UNARY_INVERT",
	BinaryOp:             "BINARY_OP",
	BinaryAdd:            "BINARY_ADD",
	BinarySubtract:       "BINARY_SUBTRACT",
	BinaryMultiply:       "BINARY_MULTIPLY",
	BinaryTrueDivide:     "BINARY_TRUE_DIVIDE",
	BinaryFloorDivide:    "BINARY_FLOOR_DIVIDE",
	BinaryModulo:         "BINARY_MODULO",
	BinaryPower:          "BINARY_POWER",
	BinaryLshift:         "BINARY_LSHIFT",
	BinaryRshift:         "BINARY_RSHIFT",
	BinaryAnd:            "BINARY_AND",
	BinaryOr:             "BINARY_OR",
	BinaryXor:            "BINARY_XOR",
	BinaryMatrixMultiply: "BINARY_MATRIX_MULTIPLY",
	InplaceAdd:           "INPLACE_ADD",
	InplaceSubtract:      "INPLACE_SUBTRACT",
	InplaceMultiply:      "INPLACE_MULTIPLY",
	InplaceTrueDivide:    "INPLACE_TRUE_DIVIDE",
	CompareOp:            "COMPARE_OP",
	IsOp:                 "IS_OP",
	ContainsOp:           "CONTAINS_OP",
	JumpForward:          "JUMP_FORWARD",
	JumpBackward:         "JUMP_BACKWARD",
	JumpAbsolute:         "JUMP_ABSOLUTE",
	PopJumpIfTrue:        "POP_JUMP_IF_TRUE",
	PopJumpIfFalse:       "POP_JUMP_IF_FALSE",
	PopJumpIfNone:        "POP_JUMP_IF_NONE",
	PopJumpIfNotNone:     "POP_JUMP_IF_NOT_NONE",
	JumpIfTrueOrPop:      "JUMP_IF_TRUE_OR_POP",
	JumpIfFalseOrPop:     "JUMP_IF_FALSE_OR_POP",
	GetIter:              "GET_ITER",
	ForIter:              "FOR_ITER",
	EndFor:               "END_FOR",
	PopIter:              "POP_ITER",
	GetAwaitable:         "GET_AWAITABLE",
	GetAiter:             "GET_AITER",
	GetAnext:             "GET_ANEXT",
	EndAsyncFor:          "END_ASYNC_FOR",
	YieldValue:           "YIELD_VALUE",
	YieldFrom:            "YIELD_FROM",
	GenStart:             "GEN_START",
	ReturnValue:          "RETURN_VALUE",
	ReturnConst:          "RETURN_CONST",
	RaiseVarargs:         "RAISE_VARARGS",
	Reraise:              "RERAISE",
	PopBlock:             "POP_BLOCK",
	PopExcept:            "POP_EXCEPT",
	SetupLoop:            "SETUP_LOOP",
	SetupFinally:         "SETUP_FINALLY",
	SetupExcept:          "SETUP_EXCEPT",
	SetupWith:            "SETUP_WITH",
	BeforeWith:           "BEFORE_WITH",
	BeforeAsyncWith:      "BEFORE_ASYNC_WITH",
	WithExceptStart:      "WITH_EXCEPT_START",
	PushExcInfo:          "PUSH_EXC_INFO",
	Call:                 "CALL",
	CallFunction:         "CALL_FUNCTION",
	CallFunctionKw:       "CALL_FUNCTION_KW",
	CallFunctionEx:       "CALL_FUNCTION_EX",
	CallMethod:           "CALL_METHOD",
	Precall:              "PRECALL",
	KwNames:              "KW_NAMES",
	MakeFunction:         "MAKE_FUNCTION",
	PushNull:             "PUSH_NULL",
	Resume:               "RESUME",
	Cache:                "CACHE",
	ImportName:           "IMPORT_NAME",
	ImportFrom:           "IMPORT_FROM",
	ImportStar:           "IMPORT_STAR",
	SetupAnnotations:     "SETUP_ANNOTATIONS",
	FormatValue:          "FORMAT_VALUE",
	PrintExpr:            "PRINT_EXPR",
	PrintItem:            "PRINT_ITEM",
	PrintNewline:         "PRINT_NEWLINE",
	ExtendedArg:          "EXTENDED_ARG",
	MatchMapping:         "MATCH_MAPPING",
	MatchSequence:        "MATCH_SEQUENCE",
	MatchClass:           "MATCH_CLASS",
	MatchKeys:            "MATCH_KEYS",
}

func (op Op) String() string {
	if op < 0 || int(op) >= len(names) || names[op] == "" {
		return "OP?"
	}
	return names[op]
}

// BinOp is the canonical binary-operator code carried by BINARY_OP's
// operand in 3.11+ (spec.md §4.5): 0-12 select the operator, 13-25 select
// the in-place variant of operators 0-12.
type BinOp int

const (
	BinOpAdd BinOp = iota
	BinOpAnd
	BinOpFloorDivide
	BinOpLshift
	BinOpMatrixMultiply
	BinOpMultiply
	BinOpRemainder
	BinOpOr
	BinOpPower
	BinOpRshift
	BinOpSubtract
	BinOpTrueDivide
	BinOpXor
)

const binOpInplaceOffset = 13

// Inplace reports whether operand b selects an augmented-assignment
// variant, and returns the base (non-augmented) operator either way.
func (b BinOp) Inplace() (base BinOp, inplace bool) {
	if int(b) >= binOpInplaceOffset {
		return BinOp(int(b) - binOpInplaceOffset), true
	}
	return b, false
}

// Symbol returns the Python source-level spelling of the operator.
func (b BinOp) Symbol() string {
	switch b {
	case BinOpAdd:
		return "+"
	case BinOpAnd:
		return "&"
	case BinOpFloorDivide:
		return "//"
	case BinOpLshift:
		return "<<"
	case BinOpMatrixMultiply:
		return "@"
	case BinOpMultiply:
		return "*"
	case BinOpRemainder:
		return "%"
	case BinOpOr:
		return "|"
	case BinOpPower:
		return "**"
	case BinOpRshift:
		return ">>"
	case BinOpSubtract:
		return "-"
	case BinOpTrueDivide:
		return "/"
	case BinOpXor:
		return "^"
	default:
		return "?"
	}
}

// CompareOpName resolves COMPARE_OP's operand to a comparison symbol.
// shift is the number of low bits reserved for specialization flags that
// do not affect which comparison is performed (spec.md §4.5/§9): 0 before
// 3.12, 4 at 3.12, 5 at 3.13+.
func CompareOpName(operand uint32, shift int) (string, uint32) {
	idx := operand >> uint(shift)
	flags := operand & ((1 << uint(shift)) - 1)
	names := []string{"<", "<=", "==", "!=", ">", ">="}
	if int(idx) < len(names) {
		return names[idx], flags
	}
	return "?", flags
}
