// Package simulate reconstructs expression trees from a flat bytecode
// stream by interpreting each instruction's stack effect (spec.md §4.5).
// It does not recover control flow — conditional and unconditional jumps
// are reported as Steps for package cfg to interpret — so a block's
// value stack can be simulated independent of how it is later stitched
// into if/while/for/with statements.
package simulate

import (
	"fmt"

	"pydis/decode"
	"pydis/diag"
	"pydis/marshal"
	"pydis/opcode"
	"pydis/pyast"
	"pydis/version"
)

// Step pairs a decoded instruction with whatever the simulator resolved
// it to: a statement (for instructions with a side effect visible at
// statement granularity), a jump (for control instructions, left for cfg
// to interpret), or neither (pure stack shuffling).
type Step struct {
	Instr    decode.Instruction
	Stmt     pyast.Stmt // non-nil if this instruction produces one
	Cond     pyast.Expr // non-nil for a conditional jump's test
	Jump     JumpKind
	Target   int        // absolute byte offset, valid when Jump != JumpNone
	IterExpr pyast.Expr // set on JumpForIter steps: the iterable being consumed

	// WithCtx is set on a BEFORE_WITH/BEFORE_ASYNC_WITH step: the context
	// manager expression the with-statement evaluates (spec.md §4.6
	// "with-statement recognition").
	WithCtx   pyast.Expr
	WithAsync bool

	// WithExitEnd marks the CALL that invokes the with-block's __exit__
	// method on the normal (non-exceptional) path, i.e. the end of the
	// body cfg should fold into the With statement's Body.
	WithExitEnd bool
}

type JumpKind int

const (
	JumpNone JumpKind = iota
	JumpAlways
	JumpIfTrue
	JumpIfFalse
	JumpIfTruthyOrPop // keeps TOS on a true-ish branch (JUMP_IF_TRUE_OR_POP)
	JumpIfFalsyOrPop  // keeps TOS on a false-ish branch (JUMP_IF_FALSE_OR_POP)
	JumpIfNone
	JumpIfNotNone
	JumpForIter // FOR_ITER: falls through with the next item, jumps to Target on exhaustion
)

// nullSentinel marks PUSH_NULL's result and LOAD_METHOD's "no bound
// self" slot on the simulated stack. It is never emitted by codegen;
// cfg/codegen only ever see it consumed by a Call reconstruction.
type nullSentinel struct{}

func (nullSentinel) expr()           {}
func (nullSentinel) Precedence() int { return pyast.PrecAtom }

// codeSentinel wraps a nested code constant sitting on the stack between
// being pushed by LOAD_CONST and consumed by MAKE_FUNCTION.
type codeSentinel struct{ code *marshal.CodeObject }

func (codeSentinel) expr()           {}
func (codeSentinel) Precedence() int { return pyast.PrecAtom }

// withResultMarker/withExitMarker/withExitResultMarker name the three
// synthetic pyast.Name placeholders BEFORE_WITH and its normal-path
// cleanup call push onto the simulated stack, following the same
// convention ForIter's "<for-item>" placeholder uses: cfg matches these
// exact identifiers to fold the with-statement's `as` target and body
// extent (spec.md §4.6 "with-statement recognition"). None are valid
// Python identifiers, so they can never collide with real source names.
const (
	withResultMarker     = "<with-result>"
	withExitMarker       = "<with-exit>"
	withExitResultMarker = "<with-exit-result>"
)

// Simulator walks one code object's instructions maintaining an explicit
// expression stack, mirroring ogorek.go's Decoder.stack/push/pop idiom.
type Simulator struct {
	code    *marshal.CodeObject
	table   *opcode.Table
	ver     version.Version
	stack   []pyast.Expr
	diag    *diag.Sink
	kwNames []string // pending KW_NAMES argument names, consumed by the next CALL

	// condFolds/ifExpFolds/boolFolds track in-progress ternary and
	// bool-op folds across the flat, block-unaware instruction walk
	// (spec.md §4.6); see fold.go. Each frame carries the Step index(es)
	// in the slice Run is building that must be rewritten to JumpNone
	// once the fold commits, so cfg never sees the now-pure-expression
	// jump as a branch.
	condFolds  []condFrame
	ifExpFolds []ifExpFold
	boolFolds  []boolFoldFrame
}

// New builds a Simulator for code. sink may be nil.
func New(code *marshal.CodeObject, sink *diag.Sink) *Simulator {
	return &Simulator{
		code:  code,
		table: opcode.TableFor(code.Version),
		ver:   code.Version,
		diag:  sink,
	}
}

func (s *Simulator) push(e pyast.Expr) { s.stack = append(s.stack, e) }

func (s *Simulator) pop() pyast.Expr {
	if len(s.stack) == 0 {
		s.diag.Add(diag.OutOfRangeOperand, s.code.Name, 0, "pop on empty simulated stack")
		return pyast.Name{Id: "<stack-underflow>"}
	}
	n := len(s.stack) - 1
	e := s.stack[n]
	s.stack = s.stack[:n]
	return e
}

func (s *Simulator) popN(n int) []pyast.Expr {
	out := make([]pyast.Expr, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = s.pop()
	}
	return out
}

func (s *Simulator) top() pyast.Expr {
	if len(s.stack) == 0 {
		return pyast.Name{Id: "<empty>"}
	}
	return s.stack[len(s.stack)-1]
}

// Run simulates every instruction and returns one Step per instruction.
// Before each instruction it resolves any pending ternary or bool-op
// fold whose merge point is this instruction's offset (fold.go), and a
// JUMP_FORWARD is checked against the innermost open conditional to see
// whether it closes a ternary's then-arm rather than an ordinary
// if/else statement block.
func (s *Simulator) Run(instrs []decode.Instruction) []Step {
	steps := make([]Step, 0, len(instrs))
	for _, ins := range instrs {
		s.resolveBoolFoldsAt(ins.Offset, steps)
		s.resolveIfExpFoldsAt(ins.Offset)

		if ins.Op == opcode.JumpForward && s.tryFoldTernary(ins, steps) {
			steps = append(steps, Step{Instr: ins})
			continue
		}

		idx := len(steps)
		st := s.step(ins)
		steps = append(steps, st)

		switch st.Jump {
		case JumpIfTrue, JumpIfFalse:
			s.pushCondFrame(polarityTestForThen(st.Cond, ins.Op), st.Target, idx)
		case JumpIfTruthyOrPop:
			s.pushBoolFold("or", st.Cond, st.Target, idx)
		case JumpIfFalsyOrPop:
			s.pushBoolFold("and", st.Cond, st.Target, idx)
		}
	}
	return steps
}

func (s *Simulator) constAt(idx uint32) marshal.Constant {
	if int(idx) >= len(s.code.Consts) {
		s.diag.Add(diag.OutOfRangeOperand, s.code.Name, 0, "LOAD_CONST index %d out of range", idx)
		return marshal.None{}
	}
	return s.code.Consts[idx]
}

func (s *Simulator) nameAt(idx uint32) string {
	if int(idx) >= len(s.code.Names) {
		return fmt.Sprintf("<name#%d>", idx)
	}
	return s.code.Names[idx]
}

func (s *Simulator) localAt(idx uint32) string {
	if s.ver.AtLeast(version.V(3, 11)) {
		if int(idx) < len(s.code.LocalsPlusNames) {
			return s.code.LocalsPlusNames[idx]
		}
		return fmt.Sprintf("<local#%d>", idx)
	}
	if int(idx) < len(s.code.Varnames) {
		return s.code.Varnames[idx]
	}
	return fmt.Sprintf("<local#%d>", idx)
}

func (s *Simulator) freeAt(idx uint32) string {
	if s.ver.AtLeast(version.V(3, 11)) {
		if int(idx) < len(s.code.LocalsPlusNames) {
			return s.code.LocalsPlusNames[idx]
		}
		return fmt.Sprintf("<deref#%d>", idx)
	}
	n := len(s.code.Cellvars)
	if int(idx) < n {
		return s.code.Cellvars[idx]
	}
	idx -= uint32(n)
	if int(idx) < len(s.code.Freevars) {
		return s.code.Freevars[idx]
	}
	return fmt.Sprintf("<deref#%d>", idx)
}

func constToExpr(c marshal.Constant) pyast.Expr {
	switch v := c.(type) {
	case marshal.None:
		return pyast.Const{Kind: pyast.ConstNone}
	case marshal.Bool:
		if v {
			return pyast.Const{Kind: pyast.ConstTrue}
		}
		return pyast.Const{Kind: pyast.ConstFalse}
	case marshal.Ellipsis:
		return pyast.Const{Kind: pyast.ConstEllipsis}
	case marshal.Int:
		return pyast.Const{Kind: pyast.ConstInt, Text: fmt.Sprintf("%d", int64(v))}
	case marshal.Long:
		return pyast.Const{Kind: pyast.ConstInt, Text: v.String()}
	case marshal.Float:
		return pyast.Const{Kind: pyast.ConstFloat, Text: fmt.Sprintf("%g", float64(v))}
	case marshal.Complex:
		return pyast.Const{Kind: pyast.ConstComplex, Text: fmt.Sprintf("%g", complex128(v))}
	case marshal.Str:
		return pyast.Const{Kind: pyast.ConstStr, Text: string(v)}
	case marshal.Bytes:
		return pyast.Const{Kind: pyast.ConstBytes, Text: string(v)}
	case marshal.Tuple:
		elts := make([]pyast.Expr, len(v))
		for i, e := range v {
			elts[i] = constToExpr(e)
		}
		return pyast.Tuple{Elts: elts}
	case marshal.FrozenSet:
		elts := make([]pyast.Expr, len(v))
		for i, e := range v {
			elts[i] = constToExpr(e)
		}
		return pyast.SetLit{Elts: elts}
	case marshal.Code:
		return codeSentinel{code: v.CodeObject}
	default:
		return pyast.Name{Id: fmt.Sprintf("<const:%T>", c)}
	}
}

func attrChainName(e pyast.Expr) string {
	switch v := e.(type) {
	case pyast.Name:
		return v.Id
	case pyast.Attribute:
		return attrChainName(v.Value) + "." + v.Attr
	default:
		return "?"
	}
}
