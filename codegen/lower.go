package codegen

import "pydis/pyast"

// Lower rewrites the bytecode-shaped tree cfg.Recover produces into the
// statement forms a human would actually write: an Assign whose value is
// a FuncObject/ClassObject becomes a FunctionDef/ClassDef (CPython
// compiles `def`/`class` into exactly that "build then store" shape,
// spec.md §4.7 "function/class reconstruction"), and a comprehension's
// synthetic single-use function is folded back into its `[... for ...]`
// display form when the pattern matches cleanly.
func Lower(stmts []pyast.Stmt) []pyast.Stmt {
	out := make([]pyast.Stmt, 0, len(stmts))
	for _, st := range stmts {
		out = append(out, lowerStmt(st)...)
	}
	return out
}

func lowerStmt(st pyast.Stmt) []pyast.Stmt {
	switch v := st.(type) {
	case pyast.Assign:
		if len(v.Targets) == 1 {
			if def, ok := lowerFuncAssign(v.Targets[0], v.Value); ok {
				return []pyast.Stmt{def}
			}
			if def, ok := lowerClassAssign(v.Targets[0], v.Value); ok {
				return []pyast.Stmt{def}
			}
		}
		return []pyast.Stmt{pyast.Assign{Targets: v.Targets, Value: lowerExpr(v.Value)}}
	case pyast.ExprStmt:
		return []pyast.Stmt{pyast.ExprStmt{Value: lowerExpr(v.Value)}}
	case pyast.Return:
		if v.Value == nil {
			return []pyast.Stmt{v}
		}
		return []pyast.Stmt{pyast.Return{Value: lowerExpr(v.Value)}}
	case pyast.If:
		return []pyast.Stmt{pyast.If{Test: lowerExpr(v.Test), Body: Lower(v.Body), Orelse: Lower(v.Orelse)}}
	case pyast.While:
		return []pyast.Stmt{pyast.While{Test: lowerExpr(v.Test), Body: Lower(v.Body), Orelse: Lower(v.Orelse)}}
	case pyast.For:
		return []pyast.Stmt{pyast.For{Target: v.Target, Iter: lowerExpr(v.Iter), Body: Lower(v.Body), Orelse: Lower(v.Orelse), IsAsync: v.IsAsync}}
	case pyast.With:
		return []pyast.Stmt{pyast.With{Items: v.Items, Body: Lower(v.Body), IsAsync: v.IsAsync}}
	case pyast.Try:
		handlers := make([]pyast.ExceptHandler, len(v.Handlers))
		for i, h := range v.Handlers {
			handlers[i] = pyast.ExceptHandler{Type: h.Type, Name: h.Name, Body: Lower(h.Body), Star: h.Star}
		}
		return []pyast.Stmt{pyast.Try{Body: Lower(v.Body), Handlers: handlers, Orelse: Lower(v.Orelse), Finally: Lower(v.Finally)}}
	case pyast.FunctionDef:
		return []pyast.Stmt{pyast.FunctionDef{
			Name: v.Name, Args: v.Args, Body: Lower(v.Body), Decorators: v.Decorators,
			Returns: v.Returns, IsAsync: v.IsAsync, Docstring: v.Docstring,
		}}
	case pyast.ClassDef:
		return []pyast.Stmt{pyast.ClassDef{
			Name: v.Name, Bases: v.Bases, Keywords: v.Keywords, Body: Lower(v.Body),
			Decorators: v.Decorators, Docstring: v.Docstring,
		}}
	default:
		return []pyast.Stmt{st}
	}
}

// lowerExpr recursively rewrites e, folding any comprehension-shaped
// call it finds at any depth (spec.md §4.7 "comprehension
// reconstruction" applies wherever the comprehension appears, not just
// in statement position). Every other node is reconstructed with its
// children lowered; codegen's printer is still what turns the result
// into text.
func lowerExpr(e pyast.Expr) pyast.Expr {
	switch v := e.(type) {
	case nil:
		return nil
	case pyast.Call:
		if comp, ok := recognizeComprehension(v); ok {
			return comp
		}
		args := make([]pyast.Expr, len(v.Args))
		for i, a := range v.Args {
			args[i] = lowerExpr(a)
		}
		kws := make([]pyast.Keyword, len(v.Keywords))
		for i, k := range v.Keywords {
			kws[i] = pyast.Keyword{Name: k.Name, Value: lowerExpr(k.Value)}
		}
		return pyast.Call{Func: lowerExpr(v.Func), Args: args, Keywords: kws}
	case pyast.BinOp:
		return pyast.BinOp{Op: v.Op, Left: lowerExpr(v.Left), Right: lowerExpr(v.Right)}
	case pyast.UnaryOp:
		return pyast.UnaryOp{Op: v.Op, Operand: lowerExpr(v.Operand)}
	case pyast.BoolOp:
		vals := make([]pyast.Expr, len(v.Values))
		for i, e := range v.Values {
			vals[i] = lowerExpr(e)
		}
		return pyast.BoolOp{Op: v.Op, Values: vals}
	case pyast.CompareChain:
		comps := make([]pyast.Expr, len(v.Comparators))
		for i, e := range v.Comparators {
			comps[i] = lowerExpr(e)
		}
		return pyast.CompareChain{Left: lowerExpr(v.Left), Ops: v.Ops, Comparators: comps}
	case pyast.IfExp:
		return pyast.IfExp{Test: lowerExpr(v.Test), Body: lowerExpr(v.Body), Orelse: lowerExpr(v.Orelse)}
	case pyast.Tuple:
		return pyast.Tuple{Elts: lowerExprList(v.Elts)}
	case pyast.List:
		return pyast.List{Elts: lowerExprList(v.Elts)}
	case pyast.SetLit:
		return pyast.SetLit{Elts: lowerExprList(v.Elts)}
	case pyast.DictLit:
		entries := make([]pyast.DictEntry, len(v.Entries))
		for i, e := range v.Entries {
			entries[i] = pyast.DictEntry{Key: lowerExpr(e.Key), Value: lowerExpr(e.Value)}
		}
		return pyast.DictLit{Entries: entries}
	case pyast.Starred:
		return pyast.Starred{Value: lowerExpr(v.Value)}
	case pyast.Attribute:
		return pyast.Attribute{Value: lowerExpr(v.Value), Attr: v.Attr}
	case pyast.Subscript:
		return pyast.Subscript{Value: lowerExpr(v.Value), Index: lowerExpr(v.Index)}
	case pyast.Await:
		return pyast.Await{Value: lowerExpr(v.Value)}
	case pyast.Yield:
		if v.Value == nil {
			return v
		}
		return pyast.Yield{Value: lowerExpr(v.Value)}
	case pyast.YieldFrom:
		return pyast.YieldFrom{Value: lowerExpr(v.Value)}
	case pyast.NamedExpr:
		return pyast.NamedExpr{Target: v.Target, Value: lowerExpr(v.Value)}
	case pyast.FuncObject:
		body := Lower(v.Body)
		// A bare FuncObject reaching here (not consumed by an Assign or a
		// comprehension call above) is a lambda: CPython gives it no other
		// shape, and its body is always a single `return <expr>`.
		if v.Code != nil && v.Code.Name == "<lambda>" && len(body) == 1 {
			if ret, ok := body[0].(pyast.Return); ok && ret.Value != nil {
				args := v.Args
				args.Defaults = alignedDefaults(args, v.Defaults)
				return pyast.Lambda{Args: args, Body: ret.Value}
			}
		}
		return pyast.FuncObject{
			Code: v.Code, Args: v.Args, Defaults: v.Defaults, Annotations: v.Annotations,
			Closure: v.Closure, Body: body, Docstring: v.Docstring,
		}
	default:
		return e
	}
}

func lowerExprList(elts []pyast.Expr) []pyast.Expr {
	out := make([]pyast.Expr, len(elts))
	for i, e := range elts {
		out[i] = lowerExpr(e)
	}
	return out
}

// peelDecorators strips nested single-arg Call layers off e until it
// bottoms out at a FuncObject or ClassObject, collecting each layer's
// callee as a decorator in source (outer-to-inner = top-to-bottom) order
// (spec.md §4.7 "decorator reconstruction": `f = a(b(f))` <=> `@a`/`@b`).
func peelDecorators(e pyast.Expr) (pyast.Expr, []pyast.Decorator) {
	var decorators []pyast.Decorator
	for {
		switch e.(type) {
		case pyast.FuncObject, pyast.ClassObject:
			return e, decorators
		}
		call, ok := e.(pyast.Call)
		if !ok || len(call.Args) != 1 || len(call.Keywords) != 0 {
			return e, decorators
		}
		decorators = append(decorators, pyast.Decorator{Value: call.Func})
		e = call.Args[0]
	}
}

func lowerFuncAssign(target pyast.Expr, value pyast.Expr) (pyast.FunctionDef, bool) {
	name, ok := target.(pyast.Name)
	if !ok {
		return pyast.FunctionDef{}, false
	}
	bottom, decorators := peelDecorators(value)
	fo, ok := bottom.(pyast.FuncObject)
	if !ok || (fo.Code != nil && fo.Code.Name == "<lambda>") {
		// `f = lambda: x` reaches STORE_NAME through the exact same
		// MAKE_FUNCTION+STORE shape as `def f(): return x`; Code.Name is
		// the only signal telling them apart, so lambdas are left for
		// lowerExpr's FuncObject case to render as an expression instead.
		return pyast.FunctionDef{}, false
	}
	body := Lower(fo.Body)
	docstring := fo.Docstring
	if docstring == "" {
		docstring, body = extractDocstring(body)
	}
	args := fo.Args
	args.Defaults = alignedDefaults(args, fo.Defaults)
	var returns pyast.Expr
	if fo.Annotations != nil {
		annotations := make(map[string]pyast.Expr, len(fo.Annotations))
		for k, v := range fo.Annotations {
			if k == "return" {
				returns = v
				continue
			}
			annotations[k] = v
		}
		args.Annotations = annotations
	}
	return pyast.FunctionDef{
		Name:       name.Id,
		Args:       args,
		Body:       body,
		Decorators: decorators,
		Returns:    returns,
		IsAsync:    fo.Code != nil && fo.Code.IsCoroutine(),
		Docstring:  docstring,
	}, true
}

func lowerClassAssign(target pyast.Expr, value pyast.Expr) (pyast.ClassDef, bool) {
	name, ok := target.(pyast.Name)
	if !ok {
		return pyast.ClassDef{}, false
	}
	bottom, decorators := peelDecorators(value)
	co, ok := bottom.(pyast.ClassObject)
	if !ok {
		return pyast.ClassDef{}, false
	}
	body := Lower(co.Body)
	docstring := co.Docstring
	if docstring == "" {
		docstring, body = extractDocstring(body)
	}
	return pyast.ClassDef{
		Name:       name.Id,
		Bases:      co.Bases,
		Keywords:   co.Keywords,
		Body:       body,
		Decorators: decorators,
		Docstring:  docstring,
	}, true
}

// extractDocstring pulls a leading bare string-literal statement
// (CPython's compiled form of a docstring when it isn't optimized away
// entirely) off body and returns it separately, matching how FunctionDef
// and ClassDef carry their docstring out of band from Body.
func extractDocstring(body []pyast.Stmt) (string, []pyast.Stmt) {
	if len(body) == 0 {
		return "", body
	}
	st, ok := body[0].(pyast.ExprStmt)
	if !ok {
		return "", body
	}
	c, ok := st.Value.(pyast.Const)
	if !ok || c.Kind != pyast.ConstStr {
		return "", body
	}
	return c.Text, body[1:]
}

// alignedDefaults turns FuncObject's name->default map back into a
// positional slice aligned to Arguments' PosOnly+Args tail, the form
// codegen's argumentsStr expects.
func alignedDefaults(args pyast.Arguments, byName map[string]pyast.Expr) []pyast.Expr {
	return pyast.WithDefaults(args.PosOnly, args.Args, byName)
}

// recognizeComprehension folds a call to a synthetic `<listcomp>` /
// `<setcomp>` / `<dictcomp>` / `<genexpr>` function back into display
// syntax (spec.md §4.7 "comprehension reconstruction"). CPython compiles
// `[f(x) for x in y if c]` as a nested single-parameter function that
// builds its accumulator on the operand stack, loops over the passed-in
// iterator, and returns the accumulator — so the recognizable shape here
// is: one argument (the outer iterable), a body that is a single For
// (optionally nested for multi-clause comprehensions) whose innermost
// statement is an accumulator append/add/__setitem__ call.
func recognizeComprehension(call pyast.Call) (pyast.Comprehension, bool) {
	fo, ok := call.Func.(pyast.FuncObject)
	if !ok || len(call.Args) != 1 || fo.Code == nil {
		return pyast.Comprehension{}, false
	}
	kind, ok := comprehensionKind(fo.Code.Name)
	if !ok {
		return pyast.Comprehension{}, false
	}
	outerIter := call.Args[0]
	if st, ok := unwrapStarred(outerIter); ok {
		outerIter = st
	}
	if len(fo.Body) != 1 {
		return pyast.Comprehension{}, false
	}
	forStmt, ok := fo.Body[0].(pyast.For)
	if !ok {
		return pyast.Comprehension{}, false
	}
	clauses, key, element, ok := unwrapComprehensionBody(forStmt, outerIter, kind)
	if !ok {
		return pyast.Comprehension{}, false
	}
	return pyast.Comprehension{Kind: kind, Key: key, Element: element, Clauses: clauses}, true
}

func unwrapStarred(e pyast.Expr) (pyast.Expr, bool) {
	if s, ok := e.(pyast.Starred); ok {
		return s.Value, true
	}
	return e, false
}

func comprehensionKind(codeName string) (pyast.ComprehensionKind, bool) {
	switch codeName {
	case "<listcomp>":
		return pyast.CompList, true
	case "<setcomp>":
		return pyast.CompSet, true
	case "<dictcomp>":
		return pyast.CompDict, true
	case "<genexpr>":
		return pyast.CompGenerator, true
	default:
		return 0, false
	}
}

// unwrapComprehensionBody walks a (possibly nested) For/If chain down to
// the accumulator call, collecting one CompFor per For and folding
// guard Ifs into that clause's Ifs list.
func unwrapComprehensionBody(forStmt pyast.For, outerIter pyast.Expr, kind pyast.ComprehensionKind) ([]pyast.CompFor, pyast.Expr, pyast.Expr, bool) {
	clause := pyast.CompFor{Target: forStmt.Target, Iter: outerIter, IsAsync: forStmt.IsAsync}
	body := forStmt.Body
	for {
		if len(body) != 1 {
			return nil, nil, nil, false
		}
		ifStmt, ok := body[0].(pyast.If)
		if !ok {
			break
		}
		if len(ifStmt.Orelse) != 0 {
			return nil, nil, nil, false
		}
		clause.Ifs = append(clause.Ifs, ifStmt.Test)
		body = ifStmt.Body
	}
	if len(body) != 1 {
		return nil, nil, nil, false
	}
	if nested, ok := body[0].(pyast.For); ok {
		innerClauses, key, element, ok := unwrapComprehensionBody(nested, nested.Iter, kind)
		if !ok {
			return nil, nil, nil, false
		}
		return append([]pyast.CompFor{clause}, innerClauses...), key, element, true
	}
	exprStmt, ok := body[0].(pyast.ExprStmt)
	if !ok {
		return nil, nil, nil, false
	}
	if kind == pyast.CompGenerator {
		if y, ok := exprStmt.Value.(pyast.Yield); ok {
			return []pyast.CompFor{clause}, nil, y.Value, true
		}
		return nil, nil, nil, false
	}
	call, ok := exprStmt.Value.(pyast.Call)
	if !ok {
		return nil, nil, nil, false
	}
	attr, ok := call.Func.(pyast.Attribute)
	if !ok {
		return nil, nil, nil, false
	}
	switch {
	case kind == pyast.CompDict && attr.Attr == "__setitem__" && len(call.Args) == 2:
		return []pyast.CompFor{clause}, call.Args[0], call.Args[1], true
	case kind != pyast.CompDict && (attr.Attr == "append" || attr.Attr == "add") && len(call.Args) == 1:
		return []pyast.CompFor{clause}, nil, call.Args[0], true
	default:
		return nil, nil, nil, false
	}
}
