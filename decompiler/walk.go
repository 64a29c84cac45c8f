package decompiler

import (
	"pydis/pyast"
)

// fillNested walks stmts looking for FuncObject/ClassObject expressions
// (MAKE_FUNCTION/__build_class__ results simulate leaves with an empty
// Body) and replaces each with a copy whose Body/Docstring have been
// filled in by recursively running the whole pipeline on its nested code
// object. Everything else is rebuilt unchanged around them, the same
// shape codegen.Lower uses to rewrite a tree bottom-up.
func fillNested(stmts []pyast.Stmt, rs *runState) []pyast.Stmt {
	out := make([]pyast.Stmt, len(stmts))
	for i, st := range stmts {
		out[i] = fillStmt(st, rs)
	}
	return out
}

func fillStmt(st pyast.Stmt, rs *runState) pyast.Stmt {
	switch v := st.(type) {
	case pyast.Assign:
		return pyast.Assign{Targets: v.Targets, Value: fillExpr(v.Value, rs)}
	case pyast.AugAssign:
		return pyast.AugAssign{Target: v.Target, Op: v.Op, Value: fillExpr(v.Value, rs)}
	case pyast.AnnAssign:
		return pyast.AnnAssign{Target: v.Target, Annotation: v.Annotation, Value: fillExpr(v.Value, rs)}
	case pyast.ExprStmt:
		return pyast.ExprStmt{Value: fillExpr(v.Value, rs)}
	case pyast.Return:
		return pyast.Return{Value: fillExpr(v.Value, rs)}
	case pyast.Assert:
		return pyast.Assert{Test: fillExpr(v.Test, rs), Msg: fillExpr(v.Msg, rs)}
	case pyast.Raise:
		return pyast.Raise{Exc: fillExpr(v.Exc, rs), Cause: fillExpr(v.Cause, rs)}
	case pyast.If:
		return pyast.If{Test: fillExpr(v.Test, rs), Body: fillNested(v.Body, rs), Orelse: fillNested(v.Orelse, rs)}
	case pyast.While:
		return pyast.While{Test: fillExpr(v.Test, rs), Body: fillNested(v.Body, rs), Orelse: fillNested(v.Orelse, rs)}
	case pyast.For:
		return pyast.For{Target: v.Target, Iter: fillExpr(v.Iter, rs), Body: fillNested(v.Body, rs), Orelse: fillNested(v.Orelse, rs), IsAsync: v.IsAsync}
	case pyast.With:
		items := make([]pyast.WithItem, len(v.Items))
		for i, it := range v.Items {
			items[i] = pyast.WithItem{Context: fillExpr(it.Context, rs), Target: it.Target}
		}
		return pyast.With{Items: items, Body: fillNested(v.Body, rs), IsAsync: v.IsAsync}
	case pyast.Try:
		handlers := make([]pyast.ExceptHandler, len(v.Handlers))
		for i, h := range v.Handlers {
			handlers[i] = pyast.ExceptHandler{Type: h.Type, Name: h.Name, Body: fillNested(h.Body, rs), Star: h.Star}
		}
		return pyast.Try{Body: fillNested(v.Body, rs), Handlers: handlers, Orelse: fillNested(v.Orelse, rs), Finally: fillNested(v.Finally, rs)}
	case pyast.Match:
		cases := make([]pyast.MatchCase, len(v.Cases))
		for i, c := range v.Cases {
			cases[i] = pyast.MatchCase{Pattern: c.Pattern, Guard: fillExpr(c.Guard, rs), Body: fillNested(c.Body, rs)}
		}
		return pyast.Match{Subject: fillExpr(v.Subject, rs), Cases: cases}
	case pyast.FunctionDef:
		return pyast.FunctionDef{
			Name: v.Name, Args: v.Args, Body: fillNested(v.Body, rs), Decorators: v.Decorators,
			Returns: v.Returns, IsAsync: v.IsAsync, Docstring: v.Docstring,
		}
	case pyast.ClassDef:
		return pyast.ClassDef{
			Name: v.Name, Bases: v.Bases, Keywords: v.Keywords, Body: fillNested(v.Body, rs),
			Decorators: v.Decorators, Docstring: v.Docstring,
		}
	default:
		return st
	}
}

// fillExpr recurses through every expression shape that can hold a
// FuncObject/ClassObject, decompiling each one it finds. nil is passed
// through unchanged so callers never need a nil-check before calling
// this (mirrors codegen.lowerExpr's nil handling).
func fillExpr(e pyast.Expr, rs *runState) pyast.Expr {
	switch v := e.(type) {
	case nil:
		return nil
	case pyast.FuncObject:
		if v.Code == nil || v.Body != nil {
			return v
		}
		body := decompileOne(v.Code, rs)
		docstring, body := extractLeadingDocstring(body)
		v.Body = body
		v.Docstring = docstring
		return v
	case pyast.ClassObject:
		if v.Code == nil || v.Body != nil {
			return v
		}
		body := decompileOne(v.Code, rs)
		docstring, body := extractLeadingDocstring(body)
		v.Body = body
		v.Docstring = docstring
		return v
	case pyast.Call:
		args := make([]pyast.Expr, len(v.Args))
		for i, a := range v.Args {
			args[i] = fillExpr(a, rs)
		}
		kws := make([]pyast.Keyword, len(v.Keywords))
		for i, k := range v.Keywords {
			kws[i] = pyast.Keyword{Name: k.Name, Value: fillExpr(k.Value, rs)}
		}
		return pyast.Call{Func: fillExpr(v.Func, rs), Args: args, Keywords: kws}
	case pyast.BinOp:
		return pyast.BinOp{Op: v.Op, Left: fillExpr(v.Left, rs), Right: fillExpr(v.Right, rs)}
	case pyast.UnaryOp:
		return pyast.UnaryOp{Op: v.Op, Operand: fillExpr(v.Operand, rs)}
	case pyast.BoolOp:
		vals := make([]pyast.Expr, len(v.Values))
		for i, e := range v.Values {
			vals[i] = fillExpr(e, rs)
		}
		return pyast.BoolOp{Op: v.Op, Values: vals}
	case pyast.CompareChain:
		comps := make([]pyast.Expr, len(v.Comparators))
		for i, e := range v.Comparators {
			comps[i] = fillExpr(e, rs)
		}
		return pyast.CompareChain{Left: fillExpr(v.Left, rs), Ops: v.Ops, Comparators: comps}
	case pyast.IfExp:
		return pyast.IfExp{Test: fillExpr(v.Test, rs), Body: fillExpr(v.Body, rs), Orelse: fillExpr(v.Orelse, rs)}
	case pyast.Tuple:
		return pyast.Tuple{Elts: fillExprList(v.Elts, rs)}
	case pyast.List:
		return pyast.List{Elts: fillExprList(v.Elts, rs)}
	case pyast.SetLit:
		return pyast.SetLit{Elts: fillExprList(v.Elts, rs)}
	case pyast.DictLit:
		entries := make([]pyast.DictEntry, len(v.Entries))
		for i, e := range v.Entries {
			entries[i] = pyast.DictEntry{Key: fillExpr(e.Key, rs), Value: fillExpr(e.Value, rs)}
		}
		return pyast.DictLit{Entries: entries}
	case pyast.Starred:
		return pyast.Starred{Value: fillExpr(v.Value, rs)}
	case pyast.DoubleStarred:
		return pyast.DoubleStarred{Value: fillExpr(v.Value, rs)}
	case pyast.Attribute:
		return pyast.Attribute{Value: fillExpr(v.Value, rs), Attr: v.Attr}
	case pyast.Subscript:
		return pyast.Subscript{Value: fillExpr(v.Value, rs), Index: fillExpr(v.Index, rs)}
	case pyast.Slice:
		return pyast.Slice{Lower: fillExpr(v.Lower, rs), Upper: fillExpr(v.Upper, rs), Step: fillExpr(v.Step, rs)}
	case pyast.Await:
		return pyast.Await{Value: fillExpr(v.Value, rs)}
	case pyast.Yield:
		if v.Value == nil {
			return v
		}
		return pyast.Yield{Value: fillExpr(v.Value, rs)}
	case pyast.YieldFrom:
		return pyast.YieldFrom{Value: fillExpr(v.Value, rs)}
	case pyast.NamedExpr:
		return pyast.NamedExpr{Target: v.Target, Value: fillExpr(v.Value, rs)}
	case pyast.FString:
		pieces := make([]pyast.Expr, len(v.Pieces))
		for i, p := range v.Pieces {
			pieces[i] = fillExpr(p, rs)
		}
		return pyast.FString{Pieces: pieces}
	case pyast.FormattedValue:
		return pyast.FormattedValue{Value: fillExpr(v.Value, rs), Conversion: v.Conversion, FormatSpec: fillExpr(v.FormatSpec, rs)}
	default:
		return e
	}
}

func fillExprList(elts []pyast.Expr, rs *runState) []pyast.Expr {
	out := make([]pyast.Expr, len(elts))
	for i, e := range elts {
		out[i] = fillExpr(e, rs)
	}
	return out
}
