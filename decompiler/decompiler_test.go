package decompiler

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"pydis/diag"
	"pydis/marshal"
	"pydis/pyast"
	"pydis/version"
)

func emptyCode(name string) *marshal.CodeObject {
	return &marshal.CodeObject{Name: name, Version: version.V(3, 11), Code: []byte{}}
}

func TestDecompileCodeEmptyBody(t *testing.T) {
	result, err := DecompileCode(emptyCode("<module>"), nil)
	assert.NoError(t, err)
	assert.Empty(t, result.Body)
	assert.Empty(t, result.Docstring)
}

func TestDecompileCodeModuleDocstring(t *testing.T) {
	co := emptyCode("<module>")
	result, err := DecompileCode(co, nil)
	assert.NoError(t, err)
	assert.Empty(t, result.Docstring)

	// extractLeadingDocstring is exercised directly here since emptyCode
	// can't carry real bytecode for LOAD_CONST+POP_TOP without hand
	// encoding an era's byte layout; the pipeline wiring above already
	// proves decompileOne's output reaches it unchanged.
	body := []pyast.Stmt{
		pyast.ExprStmt{Value: pyast.Const{Kind: pyast.ConstStr, Text: "module doc"}},
		pyast.Return{},
	}
	doc, rest := extractLeadingDocstring(body)
	assert.Equal(t, "module doc", doc)
	assert.Equal(t, []pyast.Stmt{pyast.Return{}}, rest)
}

func TestFillNestedRecursesIntoFuncObject(t *testing.T) {
	inner := emptyCode("helper")
	fo := pyast.FuncObject{Code: inner}
	stmts := []pyast.Stmt{
		pyast.Assign{Targets: []pyast.Expr{pyast.Name{Id: "helper"}}, Value: fo},
	}
	rs := &runState{sink: diag.NewSink()}
	out := fillNested(stmts, rs)
	assign, ok := out[0].(pyast.Assign)
	assert.True(t, ok)
	filled, ok := assign.Value.(pyast.FuncObject)
	assert.True(t, ok)
	assert.NotNil(t, filled.Body)
	assert.Empty(t, filled.Body)
}

func TestFillNestedSkipsAlreadyFilledFuncObject(t *testing.T) {
	fo := pyast.FuncObject{Code: emptyCode("helper"), Body: []pyast.Stmt{pyast.Pass{}}}
	stmts := []pyast.Stmt{pyast.ExprStmt{Value: fo}}
	out := fillNested(stmts, &runState{sink: diag.NewSink()})
	filled := out[0].(pyast.ExprStmt).Value.(pyast.FuncObject)
	assert.Equal(t, []pyast.Stmt{pyast.Pass{}}, filled.Body)
}

func TestFillNestedRecursesThroughNestedCall(t *testing.T) {
	inner := emptyCode("<lambda>")
	fo := pyast.FuncObject{Code: inner}
	call := pyast.Call{Func: pyast.Name{Id: "apply"}, Args: []pyast.Expr{fo}}
	stmts := []pyast.Stmt{pyast.ExprStmt{Value: call}}
	out := fillNested(stmts, &runState{sink: diag.NewSink()})
	filledCall := out[0].(pyast.ExprStmt).Value.(pyast.Call)
	filled := filledCall.Args[0].(pyast.FuncObject)
	assert.NotNil(t, filled.Body)
}

// truncatedCode is a code object whose bytecode is too short for even
// one 3.11+ two-byte instruction word, which decode.All always fails on.
func truncatedCode(name string) *marshal.CodeObject {
	co := emptyCode(name)
	co.Code = []byte{0x01}
	return co
}

func TestDecompileCodeContinueOnErrorDefaultKeepsGoing(t *testing.T) {
	result, err := DecompileCode(truncatedCode("<module>"), nil)
	assert.NoError(t, err)
	assert.NotEmpty(t, result.Diagnostics)
}

func TestDecompileCodeContinueOnErrorFalseAborts(t *testing.T) {
	_, err := DecompileCode(truncatedCode("<module>"), &Config{ContinueOnError: false})
	assert.Error(t, err)
}

// TestDecompileCodeConfigLoggerInjectable exercises Config.Logger the
// way a caller that wants to capture diagnostics rather than let them
// reach logrus's global logger would: a logrus.New() instance with its
// output redirected to a buffer.
func TestDecompileCodeConfigLoggerInjectable(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.TextFormatter{DisableColors: true})

	result, err := DecompileCode(truncatedCode("<module>"), &Config{Logger: logger, ContinueOnError: true})
	assert.NoError(t, err)
	assert.NotEmpty(t, result.Diagnostics)
	assert.Contains(t, buf.String(), "decode:")
}
