package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pydis/pyast"
)

func exprCall(id string) pyast.Stmt {
	return pyast.ExprStmt{Value: pyast.Call{Func: name(id)}}
}

func TestIfElseNesting(t *testing.T) {
	v := pyast.If{
		Test:   name("cond"),
		Body:   []pyast.Stmt{exprCall("a")},
		Orelse: []pyast.Stmt{exprCall("b")},
	}
	p := &Printer{}
	p.stmt(v)
	assert.Equal(t, "if cond:\n    a()\nelse:\n    b()\n", p.buf.String())
}

func TestIfElifFlattening(t *testing.T) {
	// if cond1: a()
	// elif cond2: b()
	// else: c()
	v := pyast.If{
		Test: name("cond1"),
		Body: []pyast.Stmt{exprCall("a")},
		Orelse: []pyast.Stmt{pyast.If{
			Test:   name("cond2"),
			Body:   []pyast.Stmt{exprCall("b")},
			Orelse: []pyast.Stmt{exprCall("c")},
		}},
	}
	p := &Printer{}
	p.stmt(v)
	want := "if cond1:\n    a()\nelif cond2:\n    b()\nelse:\n    c()\n"
	assert.Equal(t, want, p.buf.String())
}

func TestIfNoElse(t *testing.T) {
	v := pyast.If{Test: name("cond"), Body: []pyast.Stmt{exprCall("a")}}
	p := &Printer{}
	p.stmt(v)
	assert.Equal(t, "if cond:\n    a()\n", p.buf.String())
}

func TestEmptyBlockPrintsPass(t *testing.T) {
	p := &Printer{}
	p.block(nil)
	assert.Equal(t, "pass\n", p.buf.String())
}

func TestFunctionDefStmt(t *testing.T) {
	v := pyast.FunctionDef{
		Name:      "greet",
		Args:      pyast.Arguments{Args: []string{"name"}},
		Body:      []pyast.Stmt{pyast.Return{Value: name("name")}},
		Docstring: "greets someone",
	}
	p := &Printer{}
	p.stmt(v)
	want := "def greet(name):\n    \"\"\"greets someone\"\"\"\n    return name\n"
	assert.Equal(t, want, p.buf.String())
}
