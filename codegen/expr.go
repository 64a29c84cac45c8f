package codegen

import (
	"strings"

	"pydis/pyast"
)

// exprStr renders e as Python source with no surrounding parentheses.
func exprStr(e pyast.Expr) string {
	if e == nil {
		return ""
	}
	switch v := e.(type) {
	case pyast.Name:
		return v.Id
	case pyast.Const:
		return constStr(v)
	case pyast.Tuple:
		return tupleStr(v)
	case pyast.List:
		return "[" + exprList(v.Elts) + "]"
	case pyast.SetLit:
		if len(v.Elts) == 0 {
			return "set()"
		}
		return "{" + exprList(v.Elts) + "}"
	case pyast.DictLit:
		return dictLitStr(v)
	case pyast.Starred:
		return "*" + sub(v.Value, pyast.PrecUnary)
	case pyast.DoubleStarred:
		return "**" + sub(v.Value, pyast.PrecUnary)
	case pyast.Attribute:
		return sub(v.Value, pyast.PrecCall) + "." + v.Attr
	case pyast.Subscript:
		return sub(v.Value, pyast.PrecCall) + "[" + exprStr(v.Index) + "]"
	case pyast.Slice:
		return sliceStr(v)
	case pyast.UnaryOp:
		return unaryStr(v)
	case pyast.BinOp:
		return binOpStr(v)
	case pyast.BoolOp:
		return boolOpStr(v)
	case pyast.CompareChain:
		return compareChainStr(v)
	case pyast.IfExp:
		return sub(v.Body, pyast.PrecOr) + " if " + sub(v.Test, pyast.PrecOr) + " else " + sub(v.Orelse, pyast.PrecTernary)
	case pyast.Call:
		return callStr(v)
	case pyast.Lambda:
		return lambdaStr(v)
	case pyast.Await:
		return "await " + sub(v.Value, pyast.PrecUnary)
	case pyast.Yield:
		if v.Value == nil {
			return "yield"
		}
		return "yield " + exprStr(v.Value)
	case pyast.YieldFrom:
		return "yield from " + exprStr(v.Value)
	case pyast.NamedExpr:
		return v.Target.Id + " := " + sub(v.Value, pyast.PrecTernary)
	case pyast.FString:
		return fstringStr(v)
	case pyast.FormattedValue:
		return formattedValueStr(v)
	case pyast.Comprehension:
		return comprehensionStr(v)
	case pyast.FuncObject:
		return "<function " + v.Code.Name + ">"
	case pyast.ClassObject:
		return "<class " + v.Name + ">"
	default:
		return "<?>"
	}
}

// sub renders e parenthesized if its precedence binds looser than the
// context that contains it (spec.md §4.7 "minimal parenthesization").
func sub(e pyast.Expr, ctxPrec int) string {
	if e == nil {
		return ""
	}
	s := exprStr(e)
	if e.Precedence() < ctxPrec {
		return "(" + s + ")"
	}
	return s
}

func exprList(elts []pyast.Expr) string {
	parts := make([]string, len(elts))
	for i, e := range elts {
		parts[i] = sub(e, pyast.PrecTernary+1)
	}
	return strings.Join(parts, ", ")
}

func tupleStr(t pyast.Tuple) string {
	if len(t.Elts) == 0 {
		return "()"
	}
	if len(t.Elts) == 1 {
		return "(" + sub(t.Elts[0], pyast.PrecTernary+1) + ",)"
	}
	return "(" + exprList(t.Elts) + ")"
}

func constStr(c pyast.Const) string {
	switch c.Kind {
	case pyast.ConstNone:
		return "None"
	case pyast.ConstTrue:
		return "True"
	case pyast.ConstFalse:
		return "False"
	case pyast.ConstEllipsis:
		return "..."
	case pyast.ConstStr:
		return quoteStr(c.Text)
	case pyast.ConstBytes:
		return quoteBytes(c.Text)
	case pyast.ConstComplex:
		return formatComplex(c.Text)
	default: // ConstInt, ConstFloat: already decimal text
		return c.Text
	}
}

func dictLitStr(d pyast.DictLit) string {
	if len(d.Entries) == 0 {
		return "{}"
	}
	parts := make([]string, len(d.Entries))
	for i, e := range d.Entries {
		if e.Key == nil {
			parts[i] = "**" + sub(e.Value, pyast.PrecUnary)
			continue
		}
		parts[i] = exprStr(e.Key) + ": " + sub(e.Value, pyast.PrecTernary+1)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func sliceStr(s pyast.Slice) string {
	var b strings.Builder
	if s.Lower != nil {
		b.WriteString(exprStr(s.Lower))
	}
	b.WriteByte(':')
	if s.Upper != nil {
		b.WriteString(exprStr(s.Upper))
	}
	if s.Step != nil {
		b.WriteByte(':')
		b.WriteString(exprStr(s.Step))
	}
	return b.String()
}

func unaryStr(u pyast.UnaryOp) string {
	operand := sub(u.Operand, u.Precedence())
	if u.Op == "not" {
		return "not " + operand
	}
	return u.Op + operand
}

func binOpStr(b pyast.BinOp) string {
	prec := b.Precedence()
	// ** is right-associative; every other binary op here is left-associative.
	leftPrec, rightPrec := prec, prec+1
	if b.Op == "**" {
		leftPrec, rightPrec = prec+1, prec
	}
	return sub(b.Left, leftPrec) + " " + b.Op + " " + sub(b.Right, rightPrec)
}

func boolOpStr(b pyast.BoolOp) string {
	parts := make([]string, len(b.Values))
	for i, v := range b.Values {
		parts[i] = sub(v, b.Precedence()+1)
	}
	return strings.Join(parts, " "+b.Op+" ")
}

func compareChainStr(c pyast.CompareChain) string {
	var b strings.Builder
	b.WriteString(sub(c.Left, pyast.PrecComparison+1))
	for i, op := range c.Ops {
		b.WriteByte(' ')
		b.WriteString(op)
		b.WriteByte(' ')
		b.WriteString(sub(c.Comparators[i], pyast.PrecComparison+1))
	}
	return b.String()
}

func callStr(c pyast.Call) string {
	var b strings.Builder
	b.WriteString(sub(c.Func, pyast.PrecCall))
	b.WriteByte('(')
	first := true
	for _, a := range c.Args {
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(sub(a, pyast.PrecTernary+1))
	}
	for _, kw := range c.Keywords {
		if !first {
			b.WriteString(", ")
		}
		first = false
		if kw.Name == "" {
			b.WriteString("**" + sub(kw.Value, pyast.PrecUnary))
		} else {
			b.WriteString(kw.Name + "=" + sub(kw.Value, pyast.PrecTernary+1))
		}
	}
	b.WriteByte(')')
	return b.String()
}

func lambdaStr(l pyast.Lambda) string {
	params := argumentsStr(l.Args)
	if params == "" {
		return "lambda: " + sub(l.Body, pyast.PrecLambda+1)
	}
	return "lambda " + params + ": " + sub(l.Body, pyast.PrecLambda+1)
}

func fstringStr(f pyast.FString) string {
	var b strings.Builder
	b.WriteString("f\"")
	for _, piece := range f.Pieces {
		switch v := piece.(type) {
		case pyast.Const:
			b.WriteString(escapeFStringLiteral(v.Text))
		case pyast.FormattedValue:
			b.WriteString(formattedValueStr(v))
		default:
			b.WriteString(exprStr(piece))
		}
	}
	b.WriteByte('"')
	return b.String()
}

func escapeFStringLiteral(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "{", "{{")
	s = strings.ReplaceAll(s, "}", "}}")
	return s
}

func formattedValueStr(f pyast.FormattedValue) string {
	var b strings.Builder
	b.WriteByte('{')
	b.WriteString(exprStr(f.Value))
	if f.Conversion != 0 {
		b.WriteByte('!')
		b.WriteRune(f.Conversion)
	}
	if f.FormatSpec != nil {
		b.WriteByte(':')
		if c, ok := f.FormatSpec.(pyast.Const); ok {
			b.WriteString(c.Text)
		} else {
			b.WriteString(exprStr(f.FormatSpec))
		}
	}
	b.WriteByte('}')
	return b.String()
}

func comprehensionStr(c pyast.Comprehension) string {
	var open, shut string
	switch c.Kind {
	case pyast.CompList:
		open, shut = "[", "]"
	case pyast.CompSet:
		open, shut = "{", "}"
	case pyast.CompDict:
		open, shut = "{", "}"
	default: // CompGenerator
		open, shut = "(", ")"
	}
	var b strings.Builder
	b.WriteString(open)
	if c.Kind == pyast.CompDict {
		b.WriteString(exprStr(c.Key))
		b.WriteString(": ")
		b.WriteString(sub(c.Element, pyast.PrecTernary+1))
	} else {
		b.WriteString(sub(c.Element, pyast.PrecTernary+1))
	}
	for _, clause := range c.Clauses {
		b.WriteByte(' ')
		if clause.IsAsync {
			b.WriteString("async ")
		}
		b.WriteString("for ")
		b.WriteString(exprStr(clause.Target))
		b.WriteString(" in ")
		b.WriteString(sub(clause.Iter, pyast.PrecOr))
		for _, cond := range clause.Ifs {
			b.WriteString(" if ")
			b.WriteString(sub(cond, pyast.PrecOr))
		}
	}
	b.WriteString(shut)
	return b.String()
}

func argumentsStr(a pyast.Arguments) string {
	var parts []string
	posOnlyCount := len(a.PosOnly)
	allPos := append(append([]string{}, a.PosOnly...), a.Args...)
	firstDefault := len(allPos) - len(a.Defaults)
	for i, name := range allPos {
		text := paramText(name, a.Annotations)
		if i >= firstDefault {
			if d := a.Defaults[i-firstDefault]; d != nil {
				text += "=" + exprStr(d)
			}
		}
		parts = append(parts, text)
		if posOnlyCount > 0 && i == posOnlyCount-1 {
			parts = append(parts, "/")
		}
	}
	if a.VarArg != "" {
		parts = append(parts, "*"+paramText(a.VarArg, a.Annotations))
	} else if len(a.KwOnlyArgs) > 0 {
		parts = append(parts, "*")
	}
	for i, name := range a.KwOnlyArgs {
		text := paramText(name, a.Annotations)
		if i < len(a.KwDefaults) && a.KwDefaults[i] != nil {
			text += "=" + exprStr(a.KwDefaults[i])
		}
		parts = append(parts, text)
	}
	if a.KwArg != "" {
		parts = append(parts, "**"+paramText(a.KwArg, a.Annotations))
	}
	return strings.Join(parts, ", ")
}

func paramText(name string, annotations map[string]pyast.Expr) string {
	if annot, ok := annotations[name]; ok && annot != nil {
		return name + ": " + exprStr(annot)
	}
	return name
}
