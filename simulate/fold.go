package simulate

import (
	"pydis/decode"
	"pydis/opcode"
	"pydis/pyast"
)

// condFrame records an open POP_JUMP_IF_TRUE/FALSE that might close as a
// ternary's "then" arm: the classic `x if cond else y` compiles to
// `<cond>; POP_JUMP_IF_FALSE Lelse; <x>; JUMP_FORWARD Lend; Lelse: <y>;
// Lend:` (spec.md §4.6 "ternary recognition"). Run resolves the frame
// the moment it sees the JUMP_FORWARD that immediately precedes Lelse.
type condFrame struct {
	test       pyast.Expr // already polarity-adjusted for the fallthrough ("then") path
	elseTarget int        // where execution goes if the conditional jump IS taken
	baseDepth  int        // stack depth right after the conditional jump popped its operand
	stepIdx    int        // index into Run's steps slice of the conditional jump itself
}

// ifExpFold is a resolved then-arm waiting for the else-arm to be
// simulated so the two can merge into one pyast.IfExp at Target.
type ifExpFold struct {
	target int
	test   pyast.Expr
	then   pyast.Expr
}

// boolFoldFrame accumulates the operands of a JUMP_IF_TRUE_OR_POP /
// JUMP_IF_FALSE_OR_POP chain (`a and b and c` / `a or b or c`), all of
// which share the same merge target (spec.md §4.6 "boolean-operator
// folding").
type boolFoldFrame struct {
	op       string // "and" | "or"
	target   int
	values   []pyast.Expr
	stepIdxs []int // every OR_POP jump Step contributing to this chain
}

func (s *Simulator) pushCondFrame(test pyast.Expr, elseTarget, stepIdx int) {
	s.condFolds = append(s.condFolds, condFrame{test: test, elseTarget: elseTarget, baseDepth: len(s.stack), stepIdx: stepIdx})
}

// tryFoldTernary checks whether a JUMP_FORWARD instruction closes the
// most recently opened condFrame's then-arm: it must sit immediately
// before that frame's else-label, jump past it, and leave exactly one
// more value on the stack than was present when the frame opened (a
// pure expression, not a statement block). A frame that fails the
// depth check is still consumed here since nothing later can close it
// as this exact jump — it was an ordinary if/else, not a ternary.
//
// On success it neuters steps[frame.stepIdx] (the conditional jump) to
// a plain non-branching Step, since the whole diamond has collapsed
// into a single expression and cfg must not see it as a branch; the
// caller neuters this JUMP_FORWARD's own Step the same way.
func (s *Simulator) tryFoldTernary(ins decode.Instruction, steps []Step) bool {
	if len(s.condFolds) == 0 {
		return false
	}
	top := s.condFolds[len(s.condFolds)-1]
	elseStart := ins.Offset + ins.Size
	target := ins.Offset + ins.Size + int(ins.Arg)
	if elseStart != top.elseTarget || target <= top.elseTarget {
		return false
	}
	s.condFolds = s.condFolds[:len(s.condFolds)-1]
	if len(s.stack) != top.baseDepth+1 {
		return false
	}
	thenVal := s.pop()
	s.ifExpFolds = append(s.ifExpFolds, ifExpFold{target: target, test: top.test, then: thenVal})
	neuterStep(steps, top.stepIdx)
	return true
}

// resolveIfExpFoldsAt merges a pending then-arm with the value the
// simulated else-arm just pushed, the instant execution reaches the
// merge point both arms converge on.
func (s *Simulator) resolveIfExpFoldsAt(offset int) {
	for len(s.ifExpFolds) > 0 {
		last := s.ifExpFolds[len(s.ifExpFolds)-1]
		if last.target != offset {
			return
		}
		s.ifExpFolds = s.ifExpFolds[:len(s.ifExpFolds)-1]
		elseVal := s.pop()
		s.push(pyast.IfExp{Test: last.test, Body: last.then, Orelse: elseVal})
	}
}

// pushBoolFold records one operand of a JUMP_IF_*_OR_POP chain, merging
// it into the most recent frame when that frame shares the same target
// and operator (a longer `a and b and c` chain), or opening a new frame
// otherwise.
func (s *Simulator) pushBoolFold(op string, v pyast.Expr, target, stepIdx int) {
	if n := len(s.boolFolds); n > 0 {
		top := &s.boolFolds[n-1]
		if top.op == op && top.target == target {
			top.values = append(top.values, v)
			top.stepIdxs = append(top.stepIdxs, stepIdx)
			return
		}
	}
	s.boolFolds = append(s.boolFolds, boolFoldFrame{op: op, target: target, values: []pyast.Expr{v}, stepIdxs: []int{stepIdx}})
}

// resolveBoolFoldsAt closes every pending bool-op chain whose target is
// offset, folding in whatever the last operand's fallthrough evaluation
// just pushed, and neutering every OR_POP jump Step that contributed so
// cfg treats the whole chain as a single expression, not a branch.
func (s *Simulator) resolveBoolFoldsAt(offset int, steps []Step) {
	for len(s.boolFolds) > 0 {
		last := s.boolFolds[len(s.boolFolds)-1]
		if last.target != offset {
			return
		}
		s.boolFolds = s.boolFolds[:len(s.boolFolds)-1]
		v := s.pop()
		values := append(last.values, v)
		s.push(pyast.BoolOp{Op: last.op, Values: values})
		for _, idx := range last.stepIdxs {
			neuterStep(steps, idx)
		}
	}
}

func neuterStep(steps []Step, idx int) {
	if idx < 0 || idx >= len(steps) {
		return
	}
	steps[idx].Jump = JumpNone
	steps[idx].Cond = nil
}

// polarityTestForThen mirrors cfg.polarityTest for the two conditional
// jumps that can open a ternary: the "then" arm is whatever runs when
// the jump is NOT taken.
func polarityTestForThen(cond pyast.Expr, op opcode.Op) pyast.Expr {
	if op == opcode.PopJumpIfTrue {
		return pyast.UnaryOp{Op: "not", Operand: cond}
	}
	return cond
}
