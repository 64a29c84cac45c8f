package decompiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pydis/cfg"
	"pydis/codegen"
	"pydis/decode"
	"pydis/marshal"
	"pydis/opcode"
	"pydis/simulate"
	"pydis/version"
)

// TestGoldenTernaryWithBoolOp reproduces spec.md §8's ternary/bool_op
// scenario end to end: `result = 'yes' if a < 0 and a % 2 == 0 else 'no'`
// compiled for 3.10. It drives the pipeline at the Instruction level
// (simulate.Run -> cfg.Recover -> codegen.Generate) rather than through
// DecompileCode's raw-byte entry point, since hand-encoding the marshal
// byte layout for this shape adds risk the Instruction literals don't.
func TestGoldenTernaryWithBoolOp(t *testing.T) {
	co := &marshal.CodeObject{
		Version:  version.V(3, 10),
		Name:     "<module>",
		Varnames: []string{"a", "result"},
		Consts: []marshal.Constant{
			marshal.Int(0),
			marshal.Int(2),
			marshal.Str("yes"),
			marshal.Str("no"),
		},
	}

	instrs := []decode.Instruction{
		{Op: opcode.LoadFast, Arg: 0, Offset: 0, Size: 2},
		{Op: opcode.LoadConst, Arg: 0, Offset: 2, Size: 2},
		{Op: opcode.CompareOp, Arg: 0, Offset: 4, Size: 2},         // "<"
		{Op: opcode.JumpIfFalseOrPop, Arg: 10, Offset: 6, Size: 2}, // target 18
		{Op: opcode.LoadFast, Arg: 0, Offset: 8, Size: 2},
		{Op: opcode.LoadConst, Arg: 1, Offset: 10, Size: 2},
		{Op: opcode.BinaryModulo, Arg: 0, Offset: 12, Size: 2},
		{Op: opcode.LoadConst, Arg: 0, Offset: 14, Size: 2},
		{Op: opcode.CompareOp, Arg: 2, Offset: 16, Size: 2},      // "=="
		{Op: opcode.PopJumpIfFalse, Arg: 4, Offset: 18, Size: 2}, // target 24
		{Op: opcode.LoadConst, Arg: 2, Offset: 20, Size: 2},      // "yes"
		{Op: opcode.JumpForward, Arg: 2, Offset: 22, Size: 2},    // target 26
		{Op: opcode.LoadConst, Arg: 3, Offset: 24, Size: 2},      // "no"
		{Op: opcode.StoreFast, Arg: 1, Offset: 26, Size: 2},
	}

	s := simulate.New(co, nil)
	steps := s.Run(instrs)
	body := cfg.Recover(steps, nil, co.Name)

	got := codegen.Generate(body)
	assert.Equal(t, "result = 'yes' if a < 0 and a % 2 == 0 else 'no'\n", got)
}
