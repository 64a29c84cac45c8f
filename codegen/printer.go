// Package codegen renders a reconstructed pyast tree back into Python
// source text (spec.md §4.7 "code generation"). It is the mirror image
// of simulate+cfg: where those packages read bytecode and build a tree,
// codegen reads the tree and writes text, using each node's Precedence
// to decide where parentheses are structurally required.
package codegen

import (
	"strings"

	"pydis/pyast"
)

// Printer accumulates indented Python source text.
type Printer struct {
	buf    strings.Builder
	indent int
}

const indentUnit = "    "

func (p *Printer) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.buf.WriteString(indentUnit)
	}
}

func (p *Printer) line(s string) {
	p.writeIndent()
	p.buf.WriteString(s)
	p.buf.WriteByte('\n')
}

func (p *Printer) blank() {
	p.buf.WriteByte('\n')
}

// Generate renders a module's top-level statements as Python source.
func Generate(stmts []pyast.Stmt) string {
	p := &Printer{}
	stmts = Lower(stmts)
	p.block(stmts)
	return p.buf.String()
}

// GenerateModule renders a whole decompiled module, emitting its
// docstring (if any) before the body.
func GenerateModule(docstring string, stmts []pyast.Stmt) string {
	p := &Printer{}
	if docstring != "" {
		p.line(formatDocstring(docstring))
		p.blank()
	}
	stmts = Lower(stmts)
	p.block(stmts)
	return p.buf.String()
}

// block prints each statement in stmts at the printer's current indent,
// folding a single-If Orelse into `elif` chains (spec.md §4.7 "elif
// flattening").
func (p *Printer) block(stmts []pyast.Stmt) {
	if len(stmts) == 0 {
		p.line("pass")
		return
	}
	for _, st := range stmts {
		p.stmt(st)
	}
}
