package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pydis/marshal"
	"pydis/pyast"
)

func TestLowerFunctionDef(t *testing.T) {
	fo := pyast.FuncObject{
		Code: &marshal.CodeObject{Name: "greet"},
		Args: pyast.Arguments{Args: []string{"name"}},
		Body: []pyast.Stmt{pyast.Return{Value: name("name")}},
	}
	stmts := Lower([]pyast.Stmt{
		pyast.Assign{Targets: []pyast.Expr{name("greet")}, Value: fo},
	})
	assert.Len(t, stmts, 1)
	def, ok := stmts[0].(pyast.FunctionDef)
	assert.True(t, ok)
	assert.Equal(t, "greet", def.Name)
	assert.Equal(t, []pyast.Stmt{pyast.Return{Value: name("name")}}, def.Body)
}

func TestLowerFunctionDefWithDocstringFallback(t *testing.T) {
	fo := pyast.FuncObject{
		Code: &marshal.CodeObject{Name: "greet"},
		Body: []pyast.Stmt{
			pyast.ExprStmt{Value: pyast.Const{Kind: pyast.ConstStr, Text: "greets"}},
			pyast.Return{Value: pyast.Const{Kind: pyast.ConstNone}},
		},
	}
	stmts := Lower([]pyast.Stmt{
		pyast.Assign{Targets: []pyast.Expr{name("greet")}, Value: fo},
	})
	def := stmts[0].(pyast.FunctionDef)
	assert.Equal(t, "greets", def.Docstring)
	assert.Equal(t, []pyast.Stmt{pyast.Return{Value: pyast.Const{Kind: pyast.ConstNone}}}, def.Body)
}

func TestLowerLambdaNotConvertedToFunctionDef(t *testing.T) {
	fo := pyast.FuncObject{
		Code: &marshal.CodeObject{Name: "<lambda>"},
		Body: []pyast.Stmt{pyast.Return{Value: name("x")}},
	}
	stmts := Lower([]pyast.Stmt{
		pyast.Assign{Targets: []pyast.Expr{name("f")}, Value: fo},
	})
	assign, ok := stmts[0].(pyast.Assign)
	assert.True(t, ok)
	l, ok := assign.Value.(pyast.Lambda)
	assert.True(t, ok)
	assert.Equal(t, name("x"), l.Body)
}

func TestLowerClassDef(t *testing.T) {
	co := pyast.ClassObject{
		Name: "Foo",
		Code: &marshal.CodeObject{Name: "Foo"},
		Body: []pyast.Stmt{pyast.Pass{}},
	}
	stmts := Lower([]pyast.Stmt{
		pyast.Assign{Targets: []pyast.Expr{name("Foo")}, Value: co},
	})
	def, ok := stmts[0].(pyast.ClassDef)
	assert.True(t, ok)
	assert.Equal(t, "Foo", def.Name)
}

func TestLowerDecoratorPeeling(t *testing.T) {
	fo := pyast.FuncObject{
		Code: &marshal.CodeObject{Name: "f"},
		Body: []pyast.Stmt{pyast.Pass{}},
	}
	decorated := pyast.Call{Func: name("decorator"), Args: []pyast.Expr{fo}}
	stmts := Lower([]pyast.Stmt{
		pyast.Assign{Targets: []pyast.Expr{name("f")}, Value: decorated},
	})
	def, ok := stmts[0].(pyast.FunctionDef)
	assert.True(t, ok)
	assert.Equal(t, []pyast.Decorator{{Value: name("decorator")}}, def.Decorators)
}

func TestRecognizeListComprehension(t *testing.T) {
	// [x for x in xs if x] compiled as (<listcomp>)(xs) whose body builds
	// the accumulator via BUILD_LIST+append, per simulate's ListAppend case.
	accumulator := name("<accumulator>")
	forStmt := pyast.For{
		Target: name("x"),
		Iter:   name("<iterator>"),
		Body: []pyast.Stmt{pyast.If{
			Test: name("x"),
			Body: []pyast.Stmt{
				pyast.ExprStmt{Value: pyast.Call{
					Func: pyast.Attribute{Value: accumulator, Attr: "append"},
					Args: []pyast.Expr{name("x")},
				}},
			},
		}},
	}
	fo := pyast.FuncObject{
		Code: &marshal.CodeObject{Name: "<listcomp>"},
		Body: []pyast.Stmt{forStmt},
	}
	call := pyast.Call{Func: fo, Args: []pyast.Expr{name("xs")}}
	got := lowerExpr(call)
	comp, ok := got.(pyast.Comprehension)
	assert.True(t, ok)
	assert.Equal(t, pyast.CompList, comp.Kind)
	assert.Equal(t, name("x"), comp.Element)
	assert.Len(t, comp.Clauses, 1)
	assert.Equal(t, name("xs"), comp.Clauses[0].Iter)
	assert.Equal(t, []pyast.Expr{name("x")}, comp.Clauses[0].Ifs)
}

func TestRecognizeDictComprehension(t *testing.T) {
	accumulator := name("<accumulator>")
	forStmt := pyast.For{
		Target: name("k"),
		Iter:   name("<iterator>"),
		Body: []pyast.Stmt{
			pyast.ExprStmt{Value: pyast.Call{
				Func: pyast.Attribute{Value: accumulator, Attr: "__setitem__"},
				Args: []pyast.Expr{name("k"), name("k")},
			}},
		},
	}
	fo := pyast.FuncObject{
		Code: &marshal.CodeObject{Name: "<dictcomp>"},
		Body: []pyast.Stmt{forStmt},
	}
	call := pyast.Call{Func: fo, Args: []pyast.Expr{name("ks")}}
	got := lowerExpr(call)
	comp, ok := got.(pyast.Comprehension)
	assert.True(t, ok)
	assert.Equal(t, pyast.CompDict, comp.Kind)
	assert.Equal(t, name("k"), comp.Key)
	assert.Equal(t, name("k"), comp.Element)
}

func TestRecognizeGeneratorExpression(t *testing.T) {
	forStmt := pyast.For{
		Target: name("x"),
		Iter:   name("<iterator>"),
		Body: []pyast.Stmt{
			pyast.ExprStmt{Value: pyast.Yield{Value: name("x")}},
		},
	}
	fo := pyast.FuncObject{
		Code: &marshal.CodeObject{Name: "<genexpr>"},
		Body: []pyast.Stmt{forStmt},
	}
	call := pyast.Call{Func: fo, Args: []pyast.Expr{name("xs")}}
	got := lowerExpr(call)
	comp, ok := got.(pyast.Comprehension)
	assert.True(t, ok)
	assert.Equal(t, pyast.CompGenerator, comp.Kind)
	assert.Equal(t, name("x"), comp.Element)
}

func TestUnrecognizedShapeLeftAsCall(t *testing.T) {
	// A call with two arguments can never be a comprehension invocation.
	call := pyast.Call{Func: name("f"), Args: []pyast.Expr{name("a"), name("b")}}
	got := lowerExpr(call)
	_, ok := got.(pyast.Call)
	assert.True(t, ok)
}
