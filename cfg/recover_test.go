package cfg

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pydis/decode"
	"pydis/opcode"
	"pydis/pyast"
	"pydis/simulate"
)

// step builds a minimal Step at the given byte offset, each instruction
// assumed to be 2 bytes wide (the fixed-width 3.6+ encoding).
func step(offset int, stmt pyast.Stmt) simulate.Step {
	return simulate.Step{Instr: decode.Instruction{Offset: offset, Size: 2}, Stmt: stmt}
}

func jumpStep(offset int, kind simulate.JumpKind, target int, cond pyast.Expr) simulate.Step {
	return simulate.Step{Instr: decode.Instruction{Offset: offset, Size: 2, Op: opcode.PopJumpIfFalse}, Jump: kind, Target: target, Cond: cond}
}

func printCall(name string) pyast.Stmt {
	return pyast.ExprStmt{Value: pyast.Call{Func: pyast.Name{Id: name}}}
}

func TestRecoverPlainSequence(t *testing.T) {
	steps := []simulate.Step{
		step(0, printCall("a")),
		step(2, printCall("b")),
	}
	body := Recover(steps, nil, "test")
	assert.Equal(t, []pyast.Stmt{printCall("a"), printCall("b")}, body)
}

func TestRecoverIfNoElse(t *testing.T) {
	cond := pyast.Name{Id: "cond"}
	steps := []simulate.Step{
		jumpStep(0, simulate.JumpIfFalse, 4, cond),
		step(2, printCall("then")),
		step(4, printCall("after")),
	}
	body := Recover(steps, nil, "test")
	if assert.Len(t, body, 2) {
		ifStmt, ok := body[0].(pyast.If)
		if assert.True(t, ok, "expected If statement") {
			assert.Equal(t, cond, ifStmt.Test)
			assert.Equal(t, []pyast.Stmt{printCall("then")}, ifStmt.Body)
			assert.Nil(t, ifStmt.Orelse)
		}
		assert.Equal(t, printCall("after"), body[1])
	}
}

func TestRecoverIfElse(t *testing.T) {
	cond := pyast.Name{Id: "cond"}
	steps := []simulate.Step{
		jumpStep(0, simulate.JumpIfFalse, 6, cond),
		step(2, printCall("then")),
		jumpStep(4, simulate.JumpAlways, 8, nil),
		step(6, printCall("else")),
		step(8, printCall("after")),
	}
	body := Recover(steps, nil, "test")
	if assert.Len(t, body, 2) {
		ifStmt, ok := body[0].(pyast.If)
		if assert.True(t, ok, "expected If statement") {
			assert.Equal(t, []pyast.Stmt{printCall("then")}, ifStmt.Body)
			assert.Equal(t, []pyast.Stmt{printCall("else")}, ifStmt.Orelse)
		}
		assert.Equal(t, printCall("after"), body[1])
	}
}

func TestRecoverWhile(t *testing.T) {
	cond := pyast.Name{Id: "cond"}
	steps := []simulate.Step{
		jumpStep(0, simulate.JumpIfFalse, 8, cond),
		step(2, printCall("body")),
		jumpStep(4, simulate.JumpAlways, 0, nil),
		step(8, printCall("after")),
	}
	body := Recover(steps, nil, "test")
	if assert.Len(t, body, 2) {
		whileStmt, ok := body[0].(pyast.While)
		if assert.True(t, ok, "expected While statement") {
			assert.Equal(t, cond, whileStmt.Test)
			assert.Equal(t, []pyast.Stmt{printCall("body")}, whileStmt.Body)
		}
		assert.Equal(t, printCall("after"), body[1])
	}
}

// TestRecoverWith exercises BEFORE_WITH's body-boundary pairing with its
// matching exit call: the body block sits strictly between the two, and
// the `as` target is recovered from the body's leading assignment of
// simulate's with-result placeholder (mirroring extractForTarget).
func TestRecoverWith(t *testing.T) {
	ctx := pyast.Call{Func: pyast.Name{Id: "open"}, Args: []pyast.Expr{pyast.Const{Kind: pyast.ConstStr, Text: "f.txt"}}}
	asTarget := pyast.Assign{Targets: []pyast.Expr{pyast.Name{Id: "f"}}, Value: pyast.Name{Id: "<with-result>"}}
	steps := []simulate.Step{
		simulate.Step{Instr: decode.Instruction{Offset: 0, Size: 2, Op: opcode.BeforeWith}, WithCtx: ctx},
		step(2, asTarget),
		step(4, printCall("body")),
		simulate.Step{Instr: decode.Instruction{Offset: 6, Size: 2, Op: opcode.Call}, WithExitEnd: true},
		step(8, printCall("after")),
	}
	body := Recover(steps, nil, "test")
	if assert.Len(t, body, 2) {
		withStmt, ok := body[0].(pyast.With)
		if assert.True(t, ok, "expected With statement") {
			if assert.Len(t, withStmt.Items, 1) {
				assert.Equal(t, ctx, withStmt.Items[0].Context)
				assert.Equal(t, pyast.Name{Id: "f"}, withStmt.Items[0].Target)
			}
			assert.Equal(t, []pyast.Stmt{printCall("body")}, withStmt.Body)
			assert.False(t, withStmt.IsAsync)
		}
		assert.Equal(t, printCall("after"), body[1])
	}
}

// TestRecoverWithNestedExitDepth confirms a nested with-statement's exit
// call isn't mistaken for the outer one's: findWithEnd must track
// nesting depth, not just the first WithExitEnd it sees.
func TestRecoverWithNestedExitDepth(t *testing.T) {
	outerCtx := pyast.Name{Id: "outer"}
	innerCtx := pyast.Name{Id: "inner"}
	steps := []simulate.Step{
		simulate.Step{Instr: decode.Instruction{Offset: 0, Size: 2, Op: opcode.BeforeWith}, WithCtx: outerCtx},
		simulate.Step{Instr: decode.Instruction{Offset: 2, Size: 2, Op: opcode.BeforeWith}, WithCtx: innerCtx},
		step(4, printCall("inner-body")),
		simulate.Step{Instr: decode.Instruction{Offset: 6, Size: 2, Op: opcode.Call}, WithExitEnd: true},
		simulate.Step{Instr: decode.Instruction{Offset: 8, Size: 2, Op: opcode.Call}, WithExitEnd: true},
		step(10, printCall("after")),
	}
	body := Recover(steps, nil, "test")
	if assert.Len(t, body, 2) {
		outer, ok := body[0].(pyast.With)
		if assert.True(t, ok, "expected outer With statement") {
			assert.Equal(t, outerCtx, outer.Items[0].Context)
			if assert.Len(t, outer.Body, 1) {
				inner, ok := outer.Body[0].(pyast.With)
				if assert.True(t, ok, "expected nested With statement") {
					assert.Equal(t, innerCtx, inner.Items[0].Context)
					assert.Equal(t, []pyast.Stmt{printCall("inner-body")}, inner.Body)
				}
			}
		}
		assert.Equal(t, printCall("after"), body[1])
	}
}

func TestRecoverFor(t *testing.T) {
	iterExpr := pyast.Name{Id: "items"}
	assignTarget := pyast.Assign{Targets: []pyast.Expr{pyast.Name{Id: "x"}}, Value: pyast.Name{Id: "<for-item>"}}
	steps := []simulate.Step{
		simulate.Step{Instr: decode.Instruction{Offset: 0, Size: 2, Op: opcode.ForIter}, Jump: simulate.JumpForIter, Target: 8, IterExpr: iterExpr},
		step(2, assignTarget),
		step(4, printCall("body")),
		jumpStep(6, simulate.JumpAlways, 0, nil),
		step(8, printCall("after")),
	}
	body := Recover(steps, nil, "test")
	if assert.Len(t, body, 2) {
		forStmt, ok := body[0].(pyast.For)
		if assert.True(t, ok, "expected For statement") {
			assert.Equal(t, pyast.Name{Id: "x"}, forStmt.Target)
			assert.Equal(t, iterExpr, forStmt.Iter)
			assert.Equal(t, []pyast.Stmt{printCall("body")}, forStmt.Body)
		}
		assert.Equal(t, printCall("after"), body[1])
	}
}
