package codegen

import (
	"strings"

	"pydis/pyast"
)

func (p *Printer) stmt(st pyast.Stmt) {
	switch v := st.(type) {
	case pyast.ExprStmt:
		p.line(exprStr(v.Value))
	case pyast.Assign:
		p.assignStmt(v)
	case pyast.AugAssign:
		p.line(exprStr(v.Target) + " " + v.Op + "= " + exprStr(v.Value))
	case pyast.AnnAssign:
		text := exprStr(v.Target) + ": " + exprStr(v.Annotation)
		if v.Value != nil {
			text += " = " + exprStr(v.Value)
		}
		p.line(text)
	case pyast.Delete:
		p.line("del " + exprList(v.Targets))
	case pyast.Return:
		if v.Value == nil {
			p.line("return")
		} else {
			p.line("return " + exprStr(v.Value))
		}
	case pyast.Pass:
		p.line("pass")
	case pyast.Break:
		p.line("break")
	case pyast.Continue:
		p.line("continue")
	case pyast.Global:
		p.line("global " + strings.Join(v.Names, ", "))
	case pyast.Nonlocal:
		p.line("nonlocal " + strings.Join(v.Names, ", "))
	case pyast.Assert:
		if v.Msg == nil {
			p.line("assert " + exprStr(v.Test))
		} else {
			p.line("assert " + exprStr(v.Test) + ", " + exprStr(v.Msg))
		}
	case pyast.Raise:
		p.raiseStmt(v)
	case pyast.Import:
		p.line("import " + aliasListStr(v.Names))
	case pyast.ImportFrom:
		p.line("from " + strings.Repeat(".", v.Level) + v.Module + " import " + aliasListStr(v.Names))
	case pyast.Print:
		p.printStmt(v)
	case pyast.If:
		p.ifStmt(v)
	case pyast.While:
		p.whileStmt(v)
	case pyast.For:
		p.forStmt(v)
	case pyast.With:
		p.withStmt(v)
	case pyast.Try:
		p.tryStmt(v)
	case pyast.Match:
		p.matchStmt(v)
	case pyast.FunctionDef:
		p.functionDefStmt(v)
	case pyast.ClassDef:
		p.classDefStmt(v)
	case pyast.TypeAlias:
		p.line("type " + v.Name + " = " + exprStr(v.Value))
	default:
		p.line("# unrecognized statement")
	}
}

func (p *Printer) assignStmt(a pyast.Assign) {
	targets := make([]string, len(a.Targets))
	for i, t := range a.Targets {
		targets[i] = exprStr(t)
	}
	p.line(strings.Join(targets, " = ") + " = " + exprStr(a.Value))
}

func (p *Printer) raiseStmt(r pyast.Raise) {
	switch {
	case r.Exc == nil:
		p.line("raise")
	case r.Cause != nil:
		p.line("raise " + exprStr(r.Exc) + " from " + exprStr(r.Cause))
	default:
		p.line("raise " + exprStr(r.Exc))
	}
}

func aliasListStr(names []pyast.ImportAlias) string {
	parts := make([]string, len(names))
	for i, n := range names {
		if n.AsName == "" {
			parts[i] = n.Name
		} else {
			parts[i] = n.Name + " as " + n.AsName
		}
	}
	return strings.Join(parts, ", ")
}

func (p *Printer) printStmt(pr pyast.Print) {
	var b strings.Builder
	b.WriteString("print ")
	if pr.Dest != nil {
		b.WriteString(">>" + exprStr(pr.Dest))
		if len(pr.Values) > 0 {
			b.WriteString(", ")
		}
	}
	parts := make([]string, len(pr.Values))
	for i, v := range pr.Values {
		parts[i] = exprStr(v)
	}
	b.WriteString(strings.Join(parts, ", "))
	if pr.NoNewline {
		b.WriteString(",")
	}
	p.line(strings.TrimRight(b.String(), " "))
}

// ifStmt flattens a single-statement Orelse containing only another If
// into Python's `elif` (spec.md §4.7 "elif flattening") rather than
// nesting `else: if ...:` indefinitely.
func (p *Printer) ifStmt(v pyast.If) {
	p.ifOrElif("if", v)
}

func (p *Printer) ifOrElif(keyword string, v pyast.If) {
	p.line(keyword + " " + exprStr(v.Test) + ":")
	p.indent++
	p.block(v.Body)
	p.indent--
	p.elseOrElif(v.Orelse)
}

func (p *Printer) elseOrElif(orelse []pyast.Stmt) {
	if len(orelse) == 0 {
		return
	}
	if len(orelse) == 1 {
		if nested, ok := orelse[0].(pyast.If); ok {
			p.ifOrElif("elif", nested)
			return
		}
	}
	p.line("else:")
	p.indent++
	p.block(orelse)
	p.indent--
}

func (p *Printer) whileStmt(v pyast.While) {
	p.line("while " + exprStr(v.Test) + ":")
	p.indent++
	p.block(v.Body)
	p.indent--
	if len(v.Orelse) > 0 {
		p.line("else:")
		p.indent++
		p.block(v.Orelse)
		p.indent--
	}
}

func (p *Printer) forStmt(v pyast.For) {
	kw := "for "
	if v.IsAsync {
		kw = "async for "
	}
	p.line(kw + exprStr(v.Target) + " in " + exprStr(v.Iter) + ":")
	p.indent++
	p.block(v.Body)
	p.indent--
	if len(v.Orelse) > 0 {
		p.line("else:")
		p.indent++
		p.block(v.Orelse)
		p.indent--
	}
}

func (p *Printer) withStmt(v pyast.With) {
	kw := "with "
	if v.IsAsync {
		kw = "async with "
	}
	items := make([]string, len(v.Items))
	for i, it := range v.Items {
		if it.Target == nil {
			items[i] = exprStr(it.Context)
		} else {
			items[i] = exprStr(it.Context) + " as " + exprStr(it.Target)
		}
	}
	p.line(kw + strings.Join(items, ", ") + ":")
	p.indent++
	p.block(v.Body)
	p.indent--
}

func (p *Printer) tryStmt(v pyast.Try) {
	p.line("try:")
	p.indent++
	p.block(v.Body)
	p.indent--
	for _, h := range v.Handlers {
		kw := "except"
		if h.Star {
			kw = "except*"
		}
		text := kw
		if h.Type != nil {
			text += " " + exprStr(h.Type)
			if h.Name != "" {
				text += " as " + h.Name
			}
		}
		p.line(text + ":")
		p.indent++
		p.block(h.Body)
		p.indent--
	}
	if len(v.Orelse) > 0 {
		p.line("else:")
		p.indent++
		p.block(v.Orelse)
		p.indent--
	}
	if len(v.Finally) > 0 {
		p.line("finally:")
		p.indent++
		p.block(v.Finally)
		p.indent--
	}
}

func (p *Printer) matchStmt(v pyast.Match) {
	p.line("match " + exprStr(v.Subject) + ":")
	p.indent++
	for _, c := range v.Cases {
		text := "case " + patternStr(c.Pattern)
		if c.Guard != nil {
			text += " if " + exprStr(c.Guard)
		}
		p.line(text + ":")
		p.indent++
		p.block(c.Body)
		p.indent--
	}
	p.indent--
}

func patternStr(pat pyast.Pattern) string {
	switch v := pat.(type) {
	case pyast.CapturePattern:
		if v.Name == "" {
			return "_"
		}
		return v.Name
	case pyast.ValuePattern:
		return exprStr(v.Value)
	case pyast.SequencePattern:
		parts := make([]string, len(v.Elts))
		for i, e := range v.Elts {
			parts[i] = patternStr(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case pyast.MappingPattern:
		parts := make([]string, len(v.Keys))
		for i, k := range v.Keys {
			parts[i] = exprStr(k) + ": " + patternStr(v.Patterns[i])
		}
		if v.Rest != "" {
			parts = append(parts, "**"+v.Rest)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case pyast.ClassPattern:
		parts := make([]string, 0, len(v.Positional)+len(v.KeywordNames))
		for _, subPat := range v.Positional {
			parts = append(parts, patternStr(subPat))
		}
		for i, name := range v.KeywordNames {
			parts = append(parts, name+"="+patternStr(v.KeywordPatterns[i]))
		}
		return exprStr(v.Class) + "(" + strings.Join(parts, ", ") + ")"
	case pyast.OrPattern:
		parts := make([]string, len(v.Options))
		for i, o := range v.Options {
			parts[i] = patternStr(o)
		}
		return strings.Join(parts, " | ")
	case pyast.AsPattern:
		return patternStr(v.Pattern) + " as " + v.Name
	default:
		return "_"
	}
}

func (p *Printer) decorators(decs []pyast.Decorator) {
	for _, d := range decs {
		p.line("@" + exprStr(d.Value))
	}
}

func (p *Printer) functionDefStmt(v pyast.FunctionDef) {
	p.decorators(v.Decorators)
	kw := "def "
	if v.IsAsync {
		kw = "async def "
	}
	sig := kw + v.Name + "(" + argumentsStr(v.Args) + ")"
	if v.Returns != nil {
		sig += " -> " + exprStr(v.Returns)
	}
	p.line(sig + ":")
	p.indent++
	if v.Docstring != "" {
		p.line(formatDocstring(v.Docstring))
	}
	p.block(v.Body)
	p.indent--
}

func (p *Printer) classDefStmt(v pyast.ClassDef) {
	p.decorators(v.Decorators)
	sig := "class " + v.Name
	var bases []string
	for _, b := range v.Bases {
		bases = append(bases, exprStr(b))
	}
	for _, kw := range v.Keywords {
		if kw.Name == "" {
			bases = append(bases, "**"+exprStr(kw.Value))
		} else {
			bases = append(bases, kw.Name+"="+exprStr(kw.Value))
		}
	}
	if len(bases) > 0 {
		sig += "(" + strings.Join(bases, ", ") + ")"
	}
	p.line(sig + ":")
	p.indent++
	if v.Docstring != "" {
		p.line(formatDocstring(v.Docstring))
	}
	p.block(v.Body)
	p.indent--
}
