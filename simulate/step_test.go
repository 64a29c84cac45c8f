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

func newSim(ver version.Version, names, varnames []string, consts ...marshal.Constant) *Simulator {
	co := &marshal.CodeObject{
		Version:  ver,
		Name:     "test",
		Names:    names,
		Varnames: varnames,
		Consts:   consts,
	}
	return New(co, nil)
}

func ins(op opcode.Op, arg uint32, offset int) decode.Instruction {
	return decode.Instruction{Op: op, Arg: arg, Offset: offset, Size: 2}
}

// TestCallPushNullConvention exercises 3.11+'s PUSH_NULL/CALL calling
// convention: PUSH_NULL leaves a sentinel under the callable that CALL
// must discard rather than treat as a self-binding argument.
func TestCallPushNullConvention(t *testing.T) {
	s := newSim(version.V(3, 11), []string{"foo"}, nil)
	s.step(ins(opcode.PushNull, 0, 0))
	s.step(ins(opcode.LoadGlobal, 0<<1, 2))
	st := s.step(ins(opcode.Call, 0, 4))
	assert.Nil(t, st.Stmt)
	call, ok := s.top().(pyast.Call)
	if assert.True(t, ok, "expected a Call expression on the stack") {
		assert.Equal(t, pyast.Name{Id: "foo"}, call.Func)
		assert.Empty(t, call.Args)
	}
}

// TestLoadGlobalPushNullFlag covers 3.11+'s specialization where
// LOAD_GLOBAL's low arg bit means "push a NULL first", folding what used
// to be a separate PUSH_NULL instruction into the same opcode.
func TestLoadGlobalPushNullFlag(t *testing.T) {
	s := newSim(version.V(3, 11), []string{"foo"}, nil)
	s.step(ins(opcode.LoadGlobal, 1, 0)) // idx 0, flag bit set
	assert.Len(t, s.stack, 2)
	_, isNull := s.stack[0].(nullSentinel)
	assert.True(t, isNull)
	assert.Equal(t, pyast.Name{Id: "foo"}, s.stack[1])
}

func TestSwap(t *testing.T) {
	s := newSim(version.V(3, 11), nil, nil)
	s.push(pyast.Name{Id: "a"})
	s.push(pyast.Name{Id: "b"})
	s.step(ins(opcode.Swap, 2, 0))
	assert.Equal(t, []pyast.Expr{pyast.Name{Id: "b"}, pyast.Name{Id: "a"}}, s.stack)
}

func TestCopy(t *testing.T) {
	s := newSim(version.V(3, 11), nil, nil)
	s.push(pyast.Name{Id: "a"})
	s.push(pyast.Name{Id: "b"})
	s.step(ins(opcode.Copy, 2, 0))
	assert.Equal(t, []pyast.Expr{pyast.Name{Id: "a"}, pyast.Name{Id: "b"}, pyast.Name{Id: "a"}}, s.stack)
}

func TestDupTop(t *testing.T) {
	s := newSim(version.V(3, 8), nil, nil)
	s.push(pyast.Name{Id: "a"})
	s.step(ins(opcode.DupTop, 0, 0))
	assert.Equal(t, []pyast.Expr{pyast.Name{Id: "a"}, pyast.Name{Id: "a"}}, s.stack)
}

func TestRotTwo(t *testing.T) {
	s := newSim(version.V(3, 8), nil, nil)
	s.push(pyast.Name{Id: "a"})
	s.push(pyast.Name{Id: "b"})
	s.step(ins(opcode.RotTwo, 0, 0))
	assert.Equal(t, []pyast.Expr{pyast.Name{Id: "b"}, pyast.Name{Id: "a"}}, s.stack)
}

// TestCompareOpShiftByVersion confirms COMPARE_OP's specialization-flag
// bit width is picked per era (0 pre-3.12, 4 at 3.12, 5 at 3.13+), not
// just the comparison index (spec.md §4.5/§9).
func TestCompareOpShiftByVersion(t *testing.T) {
	s := newSim(version.V(3, 13), nil, nil)
	s.push(pyast.Name{Id: "a"})
	s.push(pyast.Name{Id: "b"})
	// index 2 ("==") shifted left by 5 specialization bits.
	s.step(ins(opcode.CompareOp, 2<<5, 0))
	got, ok := s.top().(pyast.CompareChain)
	if assert.True(t, ok) {
		assert.Equal(t, []string{"=="}, got.Ops)
	}
}

func TestBinaryOpInplaceFoldsToBaseOperator(t *testing.T) {
	s := newSim(version.V(3, 11), nil, nil)
	s.push(pyast.Name{Id: "a"})
	s.push(pyast.Name{Id: "b"})
	s.step(ins(opcode.BinaryOp, uint32(opcode.BinOpAdd)+13, 0)) // in-place +=
	got, ok := s.top().(pyast.BinOp)
	if assert.True(t, ok) {
		assert.Equal(t, "+", got.Op)
	}
}

// TestBuildClassDetection confirms a __build_class__ call with a
// FuncObject body and string name argument folds to a ClassObject rather
// than a plain Call (spec.md §4.5 "__build_class__ detection").
func TestBuildClassDetection(t *testing.T) {
	inner := &marshal.CodeObject{Name: "C"}
	fn := pyast.FuncObject{Code: inner}
	got := maybeClassObject(pyast.Name{Id: "__build_class__"}, []pyast.Expr{fn, pyast.Const{Kind: pyast.ConstStr, Text: "C"}}, nil)
	cls, ok := got.(pyast.ClassObject)
	if assert.True(t, ok) {
		assert.Equal(t, "C", cls.Name)
		assert.Same(t, inner, cls.Code)
	}
}

func TestBuildClassDetectionIgnoresUnrelatedCalls(t *testing.T) {
	got := maybeClassObject(pyast.Name{Id: "print"}, []pyast.Expr{pyast.Const{Kind: pyast.ConstStr, Text: "hi"}}, nil)
	_, ok := got.(pyast.Call)
	assert.True(t, ok)
}
