// Package diag holds the structured diagnostics the decompilation
// pipeline emits for recoverable problems (spec.md §7). Fatal errors are
// returned as ordinary Go errors by the package that detects them; diag
// is only for the best-effort-degrade cases.
package diag

import "fmt"

// Kind names one of the recoverable problem categories from spec.md §7.
type Kind int

const (
	_ Kind = iota
	InvalidComprehension
	InvalidLambdaBody
	UnsupportedConstant
	UnrecognizedControlFlow
	UnknownCompareFlags
	OutOfRangeOperand
)

func (k Kind) String() string {
	switch k {
	case InvalidComprehension:
		return "invalid-comprehension"
	case InvalidLambdaBody:
		return "invalid-lambda-body"
	case UnsupportedConstant:
		return "unsupported-constant"
	case UnrecognizedControlFlow:
		return "unrecognized-control-flow"
	case UnknownCompareFlags:
		return "unknown-compare-flags"
	case OutOfRangeOperand:
		return "out-of-range-operand"
	default:
		return "unknown"
	}
}

// Diagnostic names a recoverable defect found at a particular bytecode
// offset within a particular code object.
type Diagnostic struct {
	Kind       Kind
	CodeName   string // CodeObject.Name the diagnostic belongs to
	Offset     int    // byte offset into the owning code object's bytecode
	Message    string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s @%s+%d: %s", d.Kind, d.CodeName, d.CodeName, d.Offset, d.Message)
}

// Sink accumulates diagnostics across a single decompilation job. A nil
// *Sink silently discards everything, so callers that don't care about
// diagnostics can pass one without an extra nil-check at every call site.
type Sink struct {
	items []Diagnostic
}

// NewSink returns an empty diagnostic sink.
func NewSink() *Sink {
	return &Sink{}
}

// Add records a diagnostic. Safe to call on a nil *Sink.
func (s *Sink) Add(kind Kind, codeName string, offset int, format string, args ...any) {
	if s == nil {
		return
	}
	s.items = append(s.items, Diagnostic{
		Kind:     kind,
		CodeName: codeName,
		Offset:   offset,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Items returns all diagnostics recorded so far, in emission order.
func (s *Sink) Items() []Diagnostic {
	if s == nil {
		return nil
	}
	return s.items
}

// Len reports how many diagnostics have been recorded.
func (s *Sink) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}
