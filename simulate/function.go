package simulate

import (
	"pydis/decode"
	"pydis/marshal"
	"pydis/pyast"
	"pydis/version"
)

var v311 = version.V(3, 11)

// makeFunction builds a FuncObject from MAKE_FUNCTION. Flag bits are
// stable from 3.0 onward (spec.md §4.5): bit 0 tuple of positional
// defaults, bit 1 dict of keyword defaults, bit 2 parameter annotations
// (recorded only when they arrive as a dict literal), bit 3 tuple of
// cell objects for a closure.
func (s *Simulator) makeFunction(ins decode.Instruction) Step {
	var closure, annotations, kwdefaults, defaults pyast.Expr

	if ins.Arg&0x08 != 0 {
		closure = s.pop()
	}
	if ins.Arg&0x04 != 0 {
		annotations = s.pop()
	}
	if ins.Arg&0x02 != 0 {
		kwdefaults = s.pop()
	}
	if ins.Arg&0x01 != 0 {
		defaults = s.pop()
	}

	codeCell := s.pop()
	cs, ok := codeCell.(codeSentinel)
	if !ok {
		s.push(pyast.Name{Id: "<non-code-make-function>"})
		return Step{Instr: ins}
	}
	co := cs.code

	args := funcArguments(co)
	fo := pyast.FuncObject{
		Code:    co,
		Args:    args,
		Closure: closure != nil,
	}
	if defaults != nil {
		if t, ok := defaults.(pyast.Tuple); ok {
			names := append(append([]string{}, args.PosOnly...), args.Args...)
			fo.Defaults = pyast.AlignDefaults(names, t.Elts)
		}
	}
	if kwdefaults != nil {
		if d, ok := kwdefaults.(pyast.DictLit); ok {
			kw := dictLitToMap(d)
			if fo.Defaults == nil {
				fo.Defaults = map[string]pyast.Expr{}
			}
			for k, v := range kw {
				fo.Defaults[k] = v
			}
		}
	}
	if annotations != nil {
		if d, ok := annotations.(pyast.DictLit); ok {
			fo.Annotations = dictLitToMap(d)
		}
	}

	s.push(fo)
	return Step{Instr: ins}
}

// funcArguments derives a parameter list from a code object's own
// argument-count fields and name arrays (spec.md §4.5: MAKE_FUNCTION's
// flags describe defaults, not parameter names, which always live on
// the nested CodeObject itself).
func funcArguments(co *marshal.CodeObject) pyast.Arguments {
	names := co.Varnames
	if co.Version.AtLeast(v311) {
		for i, n := range co.LocalsPlusNames {
			if i < len(co.LocalsPlusKinds) && co.LocalsPlusKinds[i] == marshal.VarHidden {
				continue
			}
			names = append(names, n)
			if len(names) >= co.ArgCount+co.KwOnlyArgCount+boolToInt(co.HasVarargs())+boolToInt(co.HasVarKeywords()) {
				break
			}
		}
	}

	pos := co.PosOnlyArgCount
	total := co.ArgCount
	var posOnly, args []string
	for i := 0; i < total && i < len(names); i++ {
		if i < pos {
			posOnly = append(posOnly, names[i])
		} else {
			args = append(args, names[i])
		}
	}

	var kwOnly []string
	for i := total; i < total+co.KwOnlyArgCount && i < len(names); i++ {
		kwOnly = append(kwOnly, names[i])
	}

	idx := total + co.KwOnlyArgCount
	varArg, kwArg := "", ""
	if co.HasVarargs() && idx < len(names) {
		varArg = names[idx]
		idx++
	}
	if co.HasVarKeywords() && idx < len(names) {
		kwArg = names[idx]
	}

	return pyast.Arguments{
		PosOnly:    posOnly,
		Args:       args,
		VarArg:     varArg,
		KwOnlyArgs: kwOnly,
		KwArg:      kwArg,
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func dictLitToMap(d pyast.DictLit) map[string]pyast.Expr {
	out := make(map[string]pyast.Expr, len(d.Entries))
	for _, e := range d.Entries {
		if k, ok := e.Key.(pyast.Const); ok && k.Kind == pyast.ConstStr {
			out[k.Text] = e.Value
		}
	}
	return out
}
