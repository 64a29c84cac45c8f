package disasm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pydis/decode"
	"pydis/marshal"
	"pydis/opcode"
	"pydis/version"
)

func TestFormatEmptyCode(t *testing.T) {
	co := &marshal.CodeObject{Name: "<module>", Version: version.V(3, 11), Code: []byte{}}
	out := Format(co)
	assert.Contains(t, out, "<module>")
	assert.Contains(t, out, "CONSTANTS:")
	assert.Contains(t, out, "INSTRUCTIONS:")
}

func TestFormatConstantPool(t *testing.T) {
	co := &marshal.CodeObject{
		Name:    "<module>",
		Version: version.V(3, 11),
		Code:    []byte{},
		Consts: []marshal.Constant{
			marshal.Int(42),
			marshal.Str("hi"),
			marshal.None{},
		},
	}
	out := Format(co)
	assert.Contains(t, out, "42")
	assert.Contains(t, out, `"hi"`)
	assert.Contains(t, out, "None")
}

func TestOperandCommentResolvesConst(t *testing.T) {
	co := &marshal.CodeObject{Consts: []marshal.Constant{marshal.Str("hello")}}
	ins := decode.Instruction{Op: opcode.LoadConst, Arg: 0}
	got := operandComment(ins, co)
	assert.Equal(t, `"hello"`, got)
}
