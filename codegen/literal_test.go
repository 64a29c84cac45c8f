package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteStr(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello", "'hello'"},
		{"prefers single quotes", `she said`, "'she said'"},
		{"switches to double on embedded single", "it's", `"it's"`},
		{"stays single when both quotes present", `it's "fine"`, `'it\'s "fine"'`},
		{"escapes backslash", `a\b`, `'a\\b'`},
		{"escapes control chars", "a\nb\tc\rd", `'a\nb\tc\rd'`},
		{"invalid utf8 hex escaped", "a\xffb", `'a\xffb'`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, quoteStr(c.in))
		})
	}
}

func TestQuoteBytes(t *testing.T) {
	assert.Equal(t, `b'hello'`, quoteBytes("hello"))
	assert.Equal(t, `b'a\x00b'`, quoteBytes("a\x00b"))
	assert.Equal(t, `b'it\'s'`, quoteBytes("it's"))
}

func TestFormatDocstring(t *testing.T) {
	assert.Equal(t, `"""hello"""`, formatDocstring("hello"))
	assert.Equal(t, `'contains """ already'`, formatDocstring(`contains """ already`))
}

func TestFormatComplex(t *testing.T) {
	assert.Equal(t, "(1+2j)", formatComplex("(1+2i)"))
	assert.Equal(t, "3j", formatComplex("3i"))
	assert.Equal(t, "3", formatComplex("3"))
}
