package simulate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pydis/decode"
	"pydis/marshal"
	"pydis/opcode"
	"pydis/pyast"
	"pydis/version"
)

// TestRunTernaryFold exercises the classic `x if a else y` shape:
// POP_JUMP_IF_FALSE guards the else branch, and the then branch's
// trailing JUMP_FORWARD lands exactly on the else label (spec.md §4.6
// "ternary recognition"). Both the conditional jump and the
// JUMP_FORWARD must be neutered so cfg never sees this as a branch.
func TestRunTernaryFold(t *testing.T) {
	co := &marshal.CodeObject{
		Version:  version.V(3, 10),
		Varnames: []string{"a", "result"},
		Consts:   []marshal.Constant{marshal.Str("x"), marshal.Str("y")},
	}
	instrs := []decode.Instruction{
		{Op: opcode.LoadFast, Arg: 0, Offset: 0, Size: 2},
		{Op: opcode.PopJumpIfFalse, Arg: 4, Offset: 2, Size: 2},
		{Op: opcode.LoadConst, Arg: 0, Offset: 4, Size: 2},
		{Op: opcode.JumpForward, Arg: 2, Offset: 6, Size: 2},
		{Op: opcode.LoadConst, Arg: 1, Offset: 8, Size: 2},
		{Op: opcode.StoreFast, Arg: 1, Offset: 10, Size: 2},
	}

	s := New(co, nil)
	steps := s.Run(instrs)

	assert.Equal(t, JumpNone, steps[1].Jump, "the guard jump must be neutered once folded")
	assert.Nil(t, steps[1].Cond)
	assert.Equal(t, JumpNone, steps[3].Jump, "the then-arm's JUMP_FORWARD must be neutered too")

	want := pyast.Assign{
		Targets: []pyast.Expr{pyast.Name{Id: "result"}},
		Value: pyast.IfExp{
			Test:   pyast.Name{Id: "a"},
			Body:   pyast.Const{Kind: pyast.ConstStr, Text: "x"},
			Orelse: pyast.Const{Kind: pyast.ConstStr, Text: "y"},
		},
	}
	assert.Equal(t, want, steps[5].Stmt)
}

// TestRunBoolOpFold exercises `result = a and b`: JUMP_IF_FALSE_OR_POP
// leaves a on the stack when falsy, otherwise falls through to evaluate
// b, both landing on the same merge offset (spec.md §4.6 "boolean-
// operator folding").
func TestRunBoolOpFold(t *testing.T) {
	co := &marshal.CodeObject{
		Version:  version.V(3, 10),
		Varnames: []string{"a", "b", "result"},
	}
	instrs := []decode.Instruction{
		{Op: opcode.LoadFast, Arg: 0, Offset: 0, Size: 2},
		{Op: opcode.JumpIfFalseOrPop, Arg: 2, Offset: 2, Size: 2},
		{Op: opcode.LoadFast, Arg: 1, Offset: 4, Size: 2},
		{Op: opcode.StoreFast, Arg: 2, Offset: 6, Size: 2},
	}

	s := New(co, nil)
	steps := s.Run(instrs)

	assert.Equal(t, JumpNone, steps[1].Jump, "the OR_POP jump must be neutered once folded")

	want := pyast.Assign{
		Targets: []pyast.Expr{pyast.Name{Id: "result"}},
		Value: pyast.BoolOp{
			Op:     "and",
			Values: []pyast.Expr{pyast.Name{Id: "a"}, pyast.Name{Id: "b"}},
		},
	}
	assert.Equal(t, want, steps[3].Stmt)
}

// TestRunBoolOpChainFoldsFlat confirms `a and b and c` produces one
// BoolOp with three values rather than nested binary pairs: both
// JUMP_IF_FALSE_OR_POP links share the same merge target.
func TestRunBoolOpChainFoldsFlat(t *testing.T) {
	co := &marshal.CodeObject{
		Version:  version.V(3, 10),
		Varnames: []string{"a", "b", "c", "result"},
	}
	instrs := []decode.Instruction{
		{Op: opcode.LoadFast, Arg: 0, Offset: 0, Size: 2},
		{Op: opcode.JumpIfFalseOrPop, Arg: 6, Offset: 2, Size: 2}, // target offset 10, the merge point
		{Op: opcode.LoadFast, Arg: 1, Offset: 4, Size: 2},
		{Op: opcode.JumpIfFalseOrPop, Arg: 2, Offset: 6, Size: 2}, // target offset 10
		{Op: opcode.LoadFast, Arg: 2, Offset: 8, Size: 2},
		{Op: opcode.StoreFast, Arg: 3, Offset: 10, Size: 2},
	}

	s := New(co, nil)
	steps := s.Run(instrs)

	assign, ok := steps[5].Stmt.(pyast.Assign)
	if !assert.True(t, ok) {
		return
	}
	boolOp, ok := assign.Value.(pyast.BoolOp)
	if assert.True(t, ok) {
		assert.Equal(t, "and", boolOp.Op)
		assert.Equal(t, []pyast.Expr{
			pyast.Name{Id: "a"},
			pyast.Name{Id: "b"},
			pyast.Name{Id: "c"},
		}, boolOp.Values)
	}
}
