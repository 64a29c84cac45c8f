package codegen

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// quoteStr renders s the way Python's repr() would: prefer single quotes,
// fall back to double quotes when s contains a ' but no ", matching
// CPython's own heuristic (spec.md §4.7 "constant literal formatting").
// Adapted from pyquote.go's escaping table, generalized from pickle's
// fixed-double-quote wire format to repr's quote-picking rule.
func quoteStr(s string) string {
	quote := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}

	const hexdigits = "0123456789abcdef"
	out := make([]byte, 0, len(s)+2)
	out = append(out, quote)

	for len(s) > 0 {
		r, width := utf8.DecodeRuneInString(s)
		switch {
		case r == utf8.RuneError && width <= 1:
			out = append(out, '\\', 'x', hexdigits[s[0]>>4], hexdigits[s[0]&0xf])
		case r == rune(quote) || r == '\\':
			out = append(out, '\\', byte(r))
		case r == '\n':
			out = append(out, '\\', 'n')
		case r == '\r':
			out = append(out, '\\', 'r')
		case r == '\t':
			out = append(out, '\\', 't')
		case strconv.IsPrint(r):
			out = append(out, s[:width]...)
		default:
			rq := strconv.QuoteRune(r)
			out = append(out, rq[1:len(rq)-1]...)
		}
		s = s[width:]
	}

	out = append(out, quote)
	return string(out)
}

// quoteBytes renders a bytes literal the way Python's repr(b'...') would:
// always single-quoted (bytes reprs never switch to double quotes for an
// embedded single quote the way str reprs do — CPython escapes it instead).
func quoteBytes(s string) string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 0, len(s)+3)
	out = append(out, 'b', '\'')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'' || c == '\\':
			out = append(out, '\\', c)
		case c == '\n':
			out = append(out, '\\', 'n')
		case c == '\r':
			out = append(out, '\\', 'r')
		case c == '\t':
			out = append(out, '\\', 't')
		case c >= 0x20 && c < 0x7f:
			out = append(out, c)
		default:
			out = append(out, '\\', 'x', hexdigits[c>>4], hexdigits[c&0xf])
		}
	}
	out = append(out, '\'')
	return string(out)
}

// formatDocstring renders a docstring as a triple-quoted string literal.
func formatDocstring(s string) string {
	if !strings.Contains(s, `"""`) {
		return `"""` + s + `"""`
	}
	return quoteStr(s)
}

// formatComplex turns Go's "(a+bi)" complex formatting into Python's
// "(a+bj)" (marshal.Constant stores the Go-rendered text verbatim;
// Python spells the imaginary unit "j", not "i").
func formatComplex(text string) string {
	if strings.HasSuffix(text, "i)") {
		return text[:len(text)-2] + "j)"
	}
	if strings.HasSuffix(text, "i") {
		return text[:len(text)-1] + "j"
	}
	return text
}
