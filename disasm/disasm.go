// Package disasm renders a code object's raw instruction stream as
// human-readable text, without running stack simulation or control-flow
// recovery — useful on its own for inspecting bytecode decompilation
// can't yet make sense of, and as a diagnostic companion to decompiler's
// output (spec.md §6 "--disasm mode"). Grounded on GlyphLang's
// DecompiledOutput.FormatDisassembly two-section layout: a constant pool
// followed by the instruction list.
package disasm

import (
	"fmt"
	"strings"

	"pydis/decode"
	"pydis/marshal"
)

// Format renders co's constant pool and instruction stream. Decode
// errors truncate the instruction section rather than aborting, so a
// malformed tail still leaves everything decoded before it visible.
func Format(co *marshal.CodeObject) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s (Python %s)\n", co.Name, co.Version)
	b.WriteString(strings.Repeat("=", 50) + "\n\n")

	b.WriteString("CONSTANTS:\n")
	b.WriteString(strings.Repeat("-", 30) + "\n")
	for i, c := range co.Consts {
		fmt.Fprintf(&b, "  [%3d] %-8s %s\n", i, constantKind(c), formatConstant(c))
	}

	b.WriteString("\nNAMES:\n")
	b.WriteString(strings.Repeat("-", 30) + "\n")
	for i, n := range co.Names {
		fmt.Fprintf(&b, "  [%3d] %s\n", i, n)
	}

	b.WriteString("\nINSTRUCTIONS:\n")
	b.WriteString(strings.Repeat("-", 30) + "\n")
	instrs, err := decode.All(co.Code, co.Version)
	for _, ins := range instrs {
		b.WriteString(formatInstruction(ins, co) + "\n")
	}
	if err != nil {
		fmt.Fprintf(&b, "  <decode error: %s>\n", err)
	}

	return b.String()
}

func constantKind(c marshal.Constant) string {
	switch c.(type) {
	case marshal.None:
		return "None"
	case marshal.Bool:
		return "bool"
	case marshal.Ellipsis:
		return "ellipsis"
	case marshal.Int:
		return "int"
	case marshal.Long:
		return "int"
	case marshal.Float:
		return "float"
	case marshal.Complex:
		return "complex"
	case marshal.Str:
		return "str"
	case marshal.Bytes:
		return "bytes"
	case marshal.Tuple:
		return "tuple"
	case marshal.List:
		return "list"
	case marshal.Set:
		return "set"
	case marshal.FrozenSet:
		return "frozenset"
	case marshal.Dict:
		return "dict"
	case marshal.Code:
		return "code"
	default:
		return "?"
	}
}

func formatConstant(c marshal.Constant) string {
	switch v := c.(type) {
	case marshal.None:
		return "None"
	case marshal.Bool:
		if v {
			return "True"
		}
		return "False"
	case marshal.Ellipsis:
		return "..."
	case marshal.Int:
		return fmt.Sprintf("%d", int64(v))
	case marshal.Long:
		return v.String()
	case marshal.Float:
		return fmt.Sprintf("%g", float64(v))
	case marshal.Complex:
		return fmt.Sprintf("%g", complex128(v))
	case marshal.Str:
		return fmt.Sprintf("%q", string(v))
	case marshal.Bytes:
		return fmt.Sprintf("%q", string(v))
	case marshal.Code:
		return fmt.Sprintf("<code %s>", v.Name)
	case marshal.Tuple:
		return formatSequence("(", ")", []marshal.Constant(v))
	case marshal.List:
		return formatSequence("[", "]", []marshal.Constant(v))
	case marshal.Set:
		return formatSequence("{", "}", []marshal.Constant(v))
	case marshal.FrozenSet:
		return "frozenset(" + formatSequence("{", "}", []marshal.Constant(v)) + ")"
	case marshal.Dict:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = formatConstant(e.Key) + ": " + formatConstant(e.Value)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return "?"
	}
}

func formatSequence(open, shut string, items []marshal.Constant) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = formatConstant(it)
	}
	return open + strings.Join(parts, ", ") + shut
}

// formatInstruction renders one instruction, resolving its operand
// against the owning code object's name tables where the opcode's
// mnemonic says which table applies (spec.md §4.3 "operand resolution").
func formatInstruction(ins decode.Instruction, co *marshal.CodeObject) string {
	line := fmt.Sprintf("  %4d %-20s", ins.Offset, ins.Op.String())
	if comment := operandComment(ins, co); comment != "" {
		return fmt.Sprintf("%s %-6d (%s)", line, ins.Arg, comment)
	}
	if strings.Contains(ins.Op.String(), "JUMP") || strings.Contains(ins.Op.String(), "FOR_ITER") {
		return fmt.Sprintf("%s %-6d", line, ins.Arg)
	}
	return strings.TrimRight(line, " ")
}

func operandComment(ins decode.Instruction, co *marshal.CodeObject) string {
	mnemonic := ins.Op.String()
	switch {
	case strings.Contains(mnemonic, "CONST"):
		return indexInto(len(co.Consts), ins.Arg, func(i int) string { return formatConstant(co.Consts[i]) })
	case strings.Contains(mnemonic, "NAME"), strings.Contains(mnemonic, "ATTR"), strings.Contains(mnemonic, "METHOD"), strings.Contains(mnemonic, "GLOBAL"):
		return indexInto(len(co.Names), ins.Arg, func(i int) string { return co.Names[i] })
	case strings.Contains(mnemonic, "FAST"):
		return indexInto(len(co.Varnames), ins.Arg, func(i int) string { return co.Varnames[i] })
	default:
		return ""
	}
}

func indexInto(n int, arg uint32, f func(int) string) string {
	i := int(arg)
	if i < 0 || i >= n {
		return ""
	}
	return f(i)
}
