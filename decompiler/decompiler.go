// Package decompiler orchestrates the full pipeline from a raw .pyc
// stream to a reconstructed Python syntax tree: marshal read, bytecode
// decode, stack simulation, control-flow recovery, and finally recursing
// into every nested code object a function or class body references
// (spec.md §4 "pipeline overview"). Rendering the tree to source text is
// codegen's job, kept out of this package so disasm and other consumers
// can use the tree without paying for a print pass.
package decompiler

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"pydis/cfg"
	"pydis/decode"
	"pydis/diag"
	"pydis/marshal"
	"pydis/pyast"
	"pydis/simulate"
)

// Result is one code object's decompiled form: its body plus whatever
// docstring was recovered for it (the module case, and the FunctionDef/
// ClassDef cases lowerFuncAssign/lowerClassAssign later re-derive this
// same way for nested defs).
type Result struct {
	Docstring   string
	Body        []pyast.Stmt
	Diagnostics []diag.Diagnostic
}

// Config tunes a decompile run, mirroring ogorek.go's DecoderConfig
// shape (a *Config struct of optional knobs rather than functional
// options). A nil *Config is always valid and reproduces the package's
// original behavior: diagnostics go to logrus's standard logger, and a
// CodeObject that fails to decode never aborts the overall result. A
// non-nil Config with ContinueOnError left false does abort.
type Config struct {
	// Logger receives one Warn-level entry per recoverable diagnostic
	// found anywhere in the recursive decompile. Nil means
	// logrus.StandardLogger().
	Logger logrus.FieldLogger

	// ContinueOnError controls what happens when decoding a code
	// object's raw bytecode (the module's own or a nested function or
	// class body's) fails outright (a truncated or corrupt stream, not
	// merely an unrecognized control flow shape, which always just gets
	// a diagnostic). true keeps going and returns the best-effort tree
	// with a diagnostic recorded for the failed body; false (the zero
	// value) makes Decompile/DecompileCode return the decode error
	// instead of a result.
	ContinueOnError bool
}

func (c *Config) logger() logrus.FieldLogger {
	if c != nil && c.Logger != nil {
		return c.Logger
	}
	return logrus.StandardLogger()
}

func (c *Config) continueOnError() bool {
	return c == nil || c.ContinueOnError
}

// runState threads a Config and the diagnostic sink through the
// recursive fillNested/fillExpr walk, and carries the first fatal
// nested-decode error (if Config says not to continue past one) back
// up to DecompileCode without every fill* function needing its own
// error return.
type runState struct {
	sink *diag.Sink
	conf *Config
	err  error
}

// Decompile reads a whole .pyc file and decompiles its module-level code
// object, recursing into every function and class body it references.
// conf may be nil.
func Decompile(r io.Reader, conf *Config) (*Result, error) {
	co, err := marshal.ReadPyc(r)
	if err != nil {
		return nil, fmt.Errorf("decompiler: %w", err)
	}
	return DecompileCode(co, conf)
}

// DecompileCode runs the pipeline on a single already-loaded code object.
// Exposed separately from Decompile so callers that already hold a
// CodeObject (e.g. disasm, or a test fixture) don't need to round-trip
// through marshal encoding first. conf may be nil.
func DecompileCode(co *marshal.CodeObject, conf *Config) (*Result, error) {
	rs := &runState{sink: diag.NewSink(), conf: conf}
	body := decompileOne(co, rs)
	docstring, body := extractLeadingDocstring(body)
	logDiagnostics(rs.sink, conf)
	if rs.err != nil {
		return nil, rs.err
	}
	return &Result{Docstring: docstring, Body: body, Diagnostics: rs.sink.Items()}, nil
}

// decompileOne runs decode+simulate+cfg for a single code object and then
// fills in the Body/Docstring of every FuncObject/ClassObject its
// resulting tree references, recursively.
func decompileOne(co *marshal.CodeObject, rs *runState) []pyast.Stmt {
	instrs, err := decode.All(co.Code, co.Version)
	if err != nil {
		rs.sink.Add(diag.OutOfRangeOperand, co.Name, 0, "decode: %s", err)
		if !rs.conf.continueOnError() && rs.err == nil {
			rs.err = fmt.Errorf("decompiler: code object %q: %w", co.Name, err)
		}
	}
	steps := simulate.New(co, rs.sink).Run(instrs)
	body := cfg.Recover(steps, rs.sink, co.Name)
	return fillNested(body, rs)
}

// logDiagnostics reports every recoverable problem found across the
// whole recursive decompilation at Warn level, keyed the way
// diag.Diagnostic.String() already formats them, so a single log line
// per issue is enough to locate it without re-deriving context. conf may
// be nil.
func logDiagnostics(sink *diag.Sink, conf *Config) {
	logger := conf.logger()
	for _, d := range sink.Items() {
		logger.WithFields(logrus.Fields{
			"kind":   d.Kind.String(),
			"code":   d.CodeName,
			"offset": d.Offset,
		}).Warn(d.Message)
	}
}

// extractLeadingDocstring pulls a leading bare string-constant statement
// off body, matching the same compiled shape codegen.Lower falls back to
// for nested defs — this is the primary path; codegen's fallback exists
// only for a body handed to it without having gone through this package.
func extractLeadingDocstring(body []pyast.Stmt) (string, []pyast.Stmt) {
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
