package simulate

import (
	"pydis/decode"
	"pydis/marshal"
	"pydis/opcode"
	"pydis/pyast"
	"pydis/version"
)

func jumpTarget(ins decode.Instruction, ver version.Version) int {
	if ver.Less(version.V(3, 10)) {
		return int(ins.Arg)
	}
	return ins.Offset + ins.Size + int(ins.Arg)
}

func compareShift(ver version.Version) int {
	switch {
	case ver.AtLeast(version.V(3, 13)):
		return 5
	case ver.AtLeast(version.V(3, 12)):
		return 4
	default:
		return 0
	}
}

// call implements the call-family opcodes. Every Python version since
// 2.x has had a different calling convention (CALL_FUNCTION's flat
// positional+keyword pairs, CALL_FUNCTION_KW's trailing names tuple,
// CALL_FUNCTION_EX's *args/**kwargs unpacking, LOAD_METHOD/CALL_METHOD's
// self-binding shortcut, and 3.11+'s PUSH_NULL/CALL convention where a
// NULL or bound-self sentinel always sits just under the callable,
// spec.md §4.5).
func (s *Simulator) call(ins decode.Instruction) Step {
	switch ins.Op {
	case opcode.KwNames:
		c := s.constAt(ins.Arg)
		s.kwNames = marshalStringTuple(c)
		return Step{Instr: ins}

	case opcode.CallFunction:
		argc := int(ins.Arg)
		args := s.popN(argc)
		fn := s.pop()
		s.push(maybeClassObject(fn, args, nil))
		return Step{Instr: ins}

	case opcode.CallFunctionKw:
		namesConst := s.pop()
		names := constStringTuple(namesConst)
		total := int(ins.Arg)
		values := s.popN(total)
		positional := values[:total-len(names)]
		kwvals := values[total-len(names):]
		fn := s.pop()
		kws := make([]pyast.Keyword, len(names))
		for i, n := range names {
			kws[i] = pyast.Keyword{Name: n, Value: kwvals[i]}
		}
		s.push(pyast.Call{Func: fn, Args: positional, Keywords: kws})
		return Step{Instr: ins}

	case opcode.CallFunctionEx:
		var kwargs pyast.Expr
		if ins.Arg&1 != 0 {
			kwargs = s.pop()
		}
		posArgs := s.pop()
		fn := s.pop()
		args := []pyast.Expr{pyast.Starred{Value: posArgs}}
		var kws []pyast.Keyword
		if kwargs != nil {
			kws = []pyast.Keyword{{Value: pyast.DoubleStarred{Value: kwargs}}}
		}
		s.push(pyast.Call{Func: fn, Args: args, Keywords: kws})
		return Step{Instr: ins}

	case opcode.CallMethod:
		argc := int(ins.Arg)
		args := s.popN(argc)
		selfMarker := s.pop()
		method := s.pop()
		if _, isNull := selfMarker.(nullSentinel); !isNull {
			// unbound form: CallMethod's "self" slot held an actual value
			args = append([]pyast.Expr{selfMarker}, args...)
		}
		s.push(pyast.Call{Func: method, Args: args})
		return Step{Instr: ins}

	case opcode.Precall:
		return Step{Instr: ins} // 3.11 splits CALL's stack-adjustment step out; no expression effect

	case opcode.Call:
		argc := int(ins.Arg)
		args := s.popN(argc)
		if len(s.kwNames) > 0 {
			nkw := len(s.kwNames)
			if nkw <= len(args) {
				kwvals := args[len(args)-nkw:]
				args = args[:len(args)-nkw]
				kws := make([]pyast.Keyword, nkw)
				for i, n := range s.kwNames {
					kws[i] = pyast.Keyword{Name: n, Value: kwvals[i]}
				}
				callee := s.pop()
				_ = s.pop() // NULL-or-self marker; already folded into callee by LOAD_METHOD/PUSH_NULL
				s.kwNames = nil
				s.push(maybeClassObject(callee, args, kws))
				return Step{Instr: ins}
			}
		}
		callee := s.pop()
		_ = s.pop()
		if n, ok := callee.(pyast.Name); ok && n.Id == withExitMarker {
			s.push(pyast.Name{Id: withExitResultMarker})
			return Step{Instr: ins, WithExitEnd: true}
		}
		s.push(maybeClassObject(callee, args, nil))
		return Step{Instr: ins}

	case opcode.MakeFunction:
		return s.makeFunction(ins)

	default:
		return Step{Instr: ins}
	}
}

// maybeClassObject recognizes CPython's class-statement compilation
// pattern: a call to __build_class__ whose first argument is the
// just-built class body function and second is the class name (spec.md
// §4.5 "__build_class__ detection"). Any remaining positional args are
// base classes; keyword args (metaclass=, etc.) pass through unchanged.
func maybeClassObject(fn pyast.Expr, args []pyast.Expr, kws []pyast.Keyword) pyast.Expr {
	name, ok := fn.(pyast.Name)
	if !ok || name.Id != "__build_class__" || len(args) < 2 {
		return pyast.Call{Func: fn, Args: args, Keywords: kws}
	}
	body, ok := args[0].(pyast.FuncObject)
	if !ok {
		return pyast.Call{Func: fn, Args: args, Keywords: kws}
	}
	className, ok := args[1].(pyast.Const)
	if !ok || className.Kind != pyast.ConstStr {
		return pyast.Call{Func: fn, Args: args, Keywords: kws}
	}
	return pyast.ClassObject{
		Name:     className.Text,
		Bases:    args[2:],
		Keywords: kws,
		Code:     body.Code,
	}
}

// constStringTuple reads the string names out of a tuple-of-str constant
// already converted to pyast (the CALL_FUNCTION_KW names argument is
// popped off the value stack, where LOAD_CONST already resolved it).
func constStringTuple(e pyast.Expr) []string {
	t, ok := e.(pyast.Tuple)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(t.Elts))
	for _, elt := range t.Elts {
		if c, ok := elt.(pyast.Const); ok && c.Kind == pyast.ConstStr {
			out = append(out, c.Text)
		}
	}
	return out
}

// marshalStringTuple reads the string names out of a tuple-of-str
// constant directly from the constant pool (KW_NAMES indexes co_consts
// without going through the value stack).
func marshalStringTuple(c marshal.Constant) []string {
	t, ok := c.(marshal.Tuple)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(t))
	for _, elt := range t {
		if s, ok := elt.(marshal.Str); ok {
			out = append(out, string(s))
		}
	}
	return out
}
