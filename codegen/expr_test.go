package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pydis/pyast"
)

func name(id string) pyast.Name { return pyast.Name{Id: id} }

func intConst(text string) pyast.Const { return pyast.Const{Kind: pyast.ConstInt, Text: text} }

func TestExprStrPrecedenceParenthesization(t *testing.T) {
	// (a + b) * c needs parens around the looser-binding addition.
	add := pyast.BinOp{Op: "+", Left: name("a"), Right: name("b")}
	mul := pyast.BinOp{Op: "*", Left: add, Right: name("c")}
	assert.Equal(t, "(a + b) * c", exprStr(mul))

	// a * b + c does not, since multiplication already binds tighter.
	mul2 := pyast.BinOp{Op: "*", Left: name("a"), Right: name("b")}
	add2 := pyast.BinOp{Op: "+", Left: mul2, Right: name("c")}
	assert.Equal(t, "a * b + c", exprStr(add2))
}

func TestExprStrPowerRightAssociative(t *testing.T) {
	// a ** b ** c parses as a ** (b ** c); the right operand never needs
	// parens, but a left-nested ** does.
	inner := pyast.BinOp{Op: "**", Left: name("b"), Right: name("c")}
	outer := pyast.BinOp{Op: "**", Left: name("a"), Right: inner}
	assert.Equal(t, "a ** b ** c", exprStr(outer))

	nestedLeft := pyast.BinOp{Op: "**", Left: pyast.BinOp{Op: "**", Left: name("a"), Right: name("b")}, Right: name("c")}
	assert.Equal(t, "(a ** b) ** c", exprStr(nestedLeft))
}

func TestExprStrLambdaNeedsParensAsCallee(t *testing.T) {
	l := pyast.Lambda{Body: name("x")}
	call := pyast.Call{Func: l}
	assert.Equal(t, "(lambda: x)()", exprStr(call))
}

func TestExprStrTupleSingleElementTrailingComma(t *testing.T) {
	assert.Equal(t, "(1,)", exprStr(pyast.Tuple{Elts: []pyast.Expr{intConst("1")}}))
	assert.Equal(t, "(1, 2)", exprStr(pyast.Tuple{Elts: []pyast.Expr{intConst("1"), intConst("2")}}))
	assert.Equal(t, "()", exprStr(pyast.Tuple{}))
}

func TestExprStrCompareChain(t *testing.T) {
	c := pyast.CompareChain{Left: name("a"), Ops: []string{"<", "<="}, Comparators: []pyast.Expr{name("b"), name("c")}}
	assert.Equal(t, "a < b <= c", exprStr(c))
}

func TestExprStrDictAndSet(t *testing.T) {
	d := pyast.DictLit{Entries: []pyast.DictEntry{{Key: name("k"), Value: name("v")}}}
	assert.Equal(t, "{k: v}", exprStr(d))
	assert.Equal(t, "{}", exprStr(pyast.DictLit{}))
	assert.Equal(t, "set()", exprStr(pyast.SetLit{}))
	s := pyast.SetLit{Elts: []pyast.Expr{name("a")}}
	assert.Equal(t, "{a}", exprStr(s))
}

func TestComprehensionStr(t *testing.T) {
	comp := pyast.Comprehension{
		Kind:    pyast.CompList,
		Element: name("x"),
		Clauses: []pyast.CompFor{{Target: name("x"), Iter: name("xs"), Ifs: []pyast.Expr{name("c")}}},
	}
	assert.Equal(t, "[x for x in xs if c]", exprStr(comp))

	dictComp := pyast.Comprehension{
		Kind:    pyast.CompDict,
		Key:     name("k"),
		Element: name("v"),
		Clauses: []pyast.CompFor{{Target: name("k"), Iter: name("ks")}},
	}
	assert.Equal(t, "{k: v for k in ks}", exprStr(dictComp))
}

func TestArgumentsStr(t *testing.T) {
	args := pyast.Arguments{
		PosOnly:  []string{"a"},
		Args:     []string{"b", "c"},
		Defaults: []pyast.Expr{intConst("1")},
		VarArg:   "rest",
		KwArg:    "kwargs",
	}
	assert.Equal(t, "a, /, b, c=1, *rest, **kwargs", argumentsStr(args))
}

func TestArgumentsStrKwOnly(t *testing.T) {
	args := pyast.Arguments{
		Args:       []string{"a"},
		KwOnlyArgs: []string{"k"},
		KwDefaults: []pyast.Expr{intConst("2")},
	}
	assert.Equal(t, "a, *, k=2", argumentsStr(args))
}
