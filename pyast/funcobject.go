package pyast

import "pydis/marshal"

// FuncObject is the expression MAKE_FUNCTION produces: a closure value,
// not yet known to be a `def`, a `lambda`, or a comprehension's hidden
// helper function until whoever consumes it (decompiler, or a
// comprehension-building simulation rule) decides which (spec.md §4.5
// "comprehension/lambda reconstruction"). Body is filled in once the
// nested CodeObject has itself been decompiled.
type FuncObject struct {
	Code       *marshal.CodeObject
	Args       Arguments
	Defaults   map[string]Expr
	Annotations map[string]Expr
	Closure     bool // true if MAKE_FUNCTION's closure-tuple flag was set
	Body        []Stmt // filled in by the decompiler after recursing into Code
	Docstring   string
}

func (FuncObject) expr()            {}
func (FuncObject) Precedence() int { return PrecAtom }

// ClassObject mirrors FuncObject for `__build_class__` results (spec.md
// §4.5 "__build_class__ detection"): a class body compiled to its own
// CodeObject, not yet known to be a ClassDef until the decompiler
// recurses into it.
type ClassObject struct {
	Name     string
	Bases    []Expr
	Keywords []Keyword
	Code     *marshal.CodeObject
	Body     []Stmt
	Docstring string
}

func (ClassObject) expr()            {}
func (ClassObject) Precedence() int { return PrecAtom }
