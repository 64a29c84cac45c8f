package simulate

import (
	"pydis/decode"
	"pydis/diag"
	"pydis/opcode"
	"pydis/pyast"
)

func (s *Simulator) step(ins decode.Instruction) Step {
	switch ins.Op {

	case opcode.Nop, opcode.Resume, opcode.Cache, opcode.SetupAnnotations:
		return Step{Instr: ins}

	case opcode.PushNull:
		s.push(nullSentinel{})
		return Step{Instr: ins}

	case opcode.PopTop:
		v := s.pop()
		if _, isNull := v.(nullSentinel); isNull {
			return Step{Instr: ins}
		}
		if n, ok := v.(pyast.Name); ok && (n.Id == withResultMarker || n.Id == withExitResultMarker) {
			return Step{Instr: ins}
		}
		return Step{Instr: ins, Stmt: pyast.ExprStmt{Value: v}}

	case opcode.DupTop:
		v := s.pop()
		s.push(v)
		s.push(v)
		return Step{Instr: ins}

	case opcode.DupTopTwo:
		b := s.pop()
		a := s.pop()
		s.push(a)
		s.push(b)
		s.push(a)
		s.push(b)
		return Step{Instr: ins}

	case opcode.RotTwo:
		b := s.pop()
		a := s.pop()
		s.push(b)
		s.push(a)
		return Step{Instr: ins}

	case opcode.RotThree:
		c := s.pop()
		b := s.pop()
		a := s.pop()
		s.push(c)
		s.push(a)
		s.push(b)
		return Step{Instr: ins}

	case opcode.RotFour:
		d := s.pop()
		c := s.pop()
		b := s.pop()
		a := s.pop()
		s.push(d)
		s.push(a)
		s.push(b)
		s.push(c)
		return Step{Instr: ins}

	case opcode.Swap:
		n := int(ins.Arg)
		if n >= 1 && n <= len(s.stack) {
			top := len(s.stack) - 1
			s.stack[top], s.stack[top-n+1] = s.stack[top-n+1], s.stack[top]
		}
		return Step{Instr: ins}

	case opcode.Copy:
		n := int(ins.Arg)
		if n >= 1 && n <= len(s.stack) {
			s.push(s.stack[len(s.stack)-n])
		} else {
			s.push(pyast.Name{Id: "<copy?>"})
		}
		return Step{Instr: ins}

	case opcode.LoadConst:
		c := s.constAt(ins.Arg)
		s.push(constToExpr(c))
		return Step{Instr: ins}

	case opcode.LoadFast, opcode.LoadFastBorrow, opcode.LoadFastAndClear:
		s.push(pyast.Name{Id: s.localAt(ins.Arg)})
		return Step{Instr: ins}

	case opcode.StoreFast:
		target := pyast.Name{Id: s.localAt(ins.Arg)}
		val := s.pop()
		return Step{Instr: ins, Stmt: pyast.Assign{Targets: []pyast.Expr{target}, Value: val}}

	case opcode.StoreFastLoadFast:
		target := pyast.Name{Id: s.localAt(ins.Arg)}
		val := s.pop()
		s.push(target)
		return Step{Instr: ins, Stmt: pyast.Assign{Targets: []pyast.Expr{target}, Value: val}}

	case opcode.DeleteFast:
		return Step{Instr: ins, Stmt: pyast.Delete{Targets: []pyast.Expr{pyast.Name{Id: s.localAt(ins.Arg)}}}}

	case opcode.LoadName, opcode.LoadGlobal:
		idx := ins.Arg
		if ins.Op == opcode.LoadGlobal && s.ver.AtLeast(v311) {
			idx >>= 1 // low bit is a "push NULL too" specialization flag in 3.11+
			if ins.Arg&1 != 0 {
				s.push(nullSentinel{})
			}
		}
		s.push(pyast.Name{Id: s.nameAt(idx)})
		return Step{Instr: ins}

	case opcode.StoreName, opcode.StoreGlobal:
		target := pyast.Name{Id: s.nameAt(ins.Arg)}
		val := s.pop()
		return Step{Instr: ins, Stmt: pyast.Assign{Targets: []pyast.Expr{target}, Value: val}}

	case opcode.DeleteName, opcode.DeleteGlobal:
		return Step{Instr: ins, Stmt: pyast.Delete{Targets: []pyast.Expr{pyast.Name{Id: s.nameAt(ins.Arg)}}}}

	case opcode.LoadAttr:
		obj := s.pop()
		s.push(pyast.Attribute{Value: obj, Attr: s.nameAt(ins.Arg)})
		return Step{Instr: ins}

	case opcode.StoreAttr:
		obj := s.pop()
		val := s.pop()
		target := pyast.Attribute{Value: obj, Attr: s.nameAt(ins.Arg)}
		return Step{Instr: ins, Stmt: pyast.Assign{Targets: []pyast.Expr{target}, Value: val}}

	case opcode.DeleteAttr:
		obj := s.pop()
		return Step{Instr: ins, Stmt: pyast.Delete{Targets: []pyast.Expr{pyast.Attribute{Value: obj, Attr: s.nameAt(ins.Arg)}}}}

	case opcode.LoadMethod:
		obj := s.pop()
		s.push(pyast.Attribute{Value: obj, Attr: s.nameAt(ins.Arg)})
		s.push(nullSentinel{})
		return Step{Instr: ins}

	case opcode.LoadClosure, opcode.LoadDeref, opcode.LoadClassDeref:
		s.push(pyast.Name{Id: s.freeAt(ins.Arg)})
		return Step{Instr: ins}

	case opcode.StoreDeref:
		target := pyast.Name{Id: s.freeAt(ins.Arg)}
		val := s.pop()
		return Step{Instr: ins, Stmt: pyast.Assign{Targets: []pyast.Expr{target}, Value: val}}

	case opcode.DeleteDeref:
		return Step{Instr: ins, Stmt: pyast.Delete{Targets: []pyast.Expr{pyast.Name{Id: s.freeAt(ins.Arg)}}}}

	case opcode.LoadBuildClass:
		s.push(pyast.Name{Id: "__build_class__"})
		return Step{Instr: ins}

	case opcode.LoadAssertionError:
		s.push(pyast.Name{Id: "AssertionError"})
		return Step{Instr: ins}

	case opcode.BinarySubscr:
		idx := s.pop()
		obj := s.pop()
		s.push(pyast.Subscript{Value: obj, Index: idx})
		return Step{Instr: ins}

	case opcode.StoreSubscr:
		idx := s.pop()
		obj := s.pop()
		val := s.pop()
		return Step{Instr: ins, Stmt: pyast.Assign{Targets: []pyast.Expr{pyast.Subscript{Value: obj, Index: idx}}, Value: val}}

	case opcode.DeleteSubscr:
		idx := s.pop()
		obj := s.pop()
		return Step{Instr: ins, Stmt: pyast.Delete{Targets: []pyast.Expr{pyast.Subscript{Value: obj, Index: idx}}}}

	case opcode.BuildSlice:
		switch ins.Arg {
		case 2:
			hi := s.pop()
			lo := s.pop()
			s.push(pyast.Slice{Lower: lo, Upper: hi})
		default:
			step := s.pop()
			hi := s.pop()
			lo := s.pop()
			s.push(pyast.Slice{Lower: lo, Upper: hi, Step: step})
		}
		return Step{Instr: ins}

	case opcode.UnaryPositive:
		return s.unary(ins, "+")
	case opcode.UnaryNegative:
		return s.unary(ins, "-")
	case opcode.UnaryNot:
		return s.unary(ins, "not")
	case opcode.UnaryInvert:
		return s.unary(ins, "~")

	case opcode.BinaryAdd, opcode.InplaceAdd:
		return s.binary(ins, "+")
	case opcode.BinarySubtract, opcode.InplaceSubtract:
		return s.binary(ins, "-")
	case opcode.BinaryMultiply, opcode.InplaceMultiply:
		return s.binary(ins, "*")
	case opcode.BinaryTrueDivide, opcode.InplaceTrueDivide:
		return s.binary(ins, "/")
	case opcode.BinaryFloorDivide:
		return s.binary(ins, "//")
	case opcode.BinaryModulo:
		return s.binary(ins, "%")
	case opcode.BinaryPower:
		return s.binary(ins, "**")
	case opcode.BinaryLshift:
		return s.binary(ins, "<<")
	case opcode.BinaryRshift:
		return s.binary(ins, ">>")
	case opcode.BinaryAnd:
		return s.binary(ins, "&")
	case opcode.BinaryOr:
		return s.binary(ins, "|")
	case opcode.BinaryXor:
		return s.binary(ins, "^")
	case opcode.BinaryMatrixMultiply:
		return s.binary(ins, "@")

	case opcode.BinaryOp:
		base, _ := opcode.BinOp(ins.Arg).Inplace()
		return s.binary(ins, base.Symbol())

	case opcode.CompareOp:
		sym, flags := opcode.CompareOpName(ins.Arg, compareShift(s.ver))
		if flags != 0 {
			s.diag.Add(diag.UnknownCompareFlags, s.code.Name, ins.Offset, "COMPARE_OP flag bits 0x%x beyond the comparison index", flags)
		}
		b := s.pop()
		a := s.pop()
		s.push(pyast.CompareChain{Left: a, Ops: []string{sym}, Comparators: []pyast.Expr{b}})
		return Step{Instr: ins}

	case opcode.IsOp:
		sym := "is"
		if ins.Arg != 0 {
			sym = "is not"
		}
		b := s.pop()
		a := s.pop()
		s.push(pyast.CompareChain{Left: a, Ops: []string{sym}, Comparators: []pyast.Expr{b}})
		return Step{Instr: ins}

	case opcode.ContainsOp:
		sym := "in"
		if ins.Arg != 0 {
			sym = "not in"
		}
		b := s.pop()
		a := s.pop()
		s.push(pyast.CompareChain{Left: a, Ops: []string{sym}, Comparators: []pyast.Expr{b}})
		return Step{Instr: ins}

	case opcode.BuildTuple:
		elts := s.popN(int(ins.Arg))
		s.push(pyast.Tuple{Elts: elts})
		return Step{Instr: ins}
	case opcode.BuildList:
		elts := s.popN(int(ins.Arg))
		s.push(pyast.List{Elts: elts})
		return Step{Instr: ins}
	case opcode.BuildSet:
		elts := s.popN(int(ins.Arg))
		s.push(pyast.SetLit{Elts: elts})
		return Step{Instr: ins}
	case opcode.BuildString:
		elts := s.popN(int(ins.Arg))
		s.push(pyast.FString{Pieces: elts})
		return Step{Instr: ins}

	case opcode.BuildMap:
		n := int(ins.Arg)
		entries := make([]pyast.DictEntry, n)
		for i := n - 1; i >= 0; i-- {
			v := s.pop()
			k := s.pop()
			entries[i] = pyast.DictEntry{Key: k, Value: v}
		}
		s.push(pyast.DictLit{Entries: entries})
		return Step{Instr: ins}

	case opcode.BuildConstKeyMap:
		n := int(ins.Arg)
		keysConst := s.pop()
		values := s.popN(n)
		var keys []pyast.Expr
		if t, ok := keysConst.(pyast.Tuple); ok {
			keys = t.Elts
		}
		entries := make([]pyast.DictEntry, n)
		for i := 0; i < n; i++ {
			var k pyast.Expr
			if i < len(keys) {
				k = keys[i]
			}
			entries[i] = pyast.DictEntry{Key: k, Value: values[i]}
		}
		s.push(pyast.DictLit{Entries: entries})
		return Step{Instr: ins}

	case opcode.ListAppend:
		v := s.pop()
		return Step{Instr: ins, Stmt: pyast.ExprStmt{Value: pyast.Call{
			Func: pyast.Attribute{Value: s.nthFromTop(int(ins.Arg)), Attr: "append"},
			Args: []pyast.Expr{v},
		}}}

	case opcode.SetAdd:
		v := s.pop()
		return Step{Instr: ins, Stmt: pyast.ExprStmt{Value: pyast.Call{
			Func: pyast.Attribute{Value: s.nthFromTop(int(ins.Arg)), Attr: "add"},
			Args: []pyast.Expr{v},
		}}}

	case opcode.MapAdd:
		v := s.pop()
		k := s.pop()
		return Step{Instr: ins, Stmt: pyast.ExprStmt{Value: pyast.Call{
			Func: pyast.Attribute{Value: s.nthFromTop(int(ins.Arg)), Attr: "__setitem__"},
			Args: []pyast.Expr{k, v},
		}}}

	case opcode.ListExtend:
		v := s.pop()
		return Step{Instr: ins, Stmt: pyast.ExprStmt{Value: pyast.Call{
			Func: pyast.Attribute{Value: s.nthFromTop(int(ins.Arg)), Attr: "extend"},
			Args: []pyast.Expr{v},
		}}}

	case opcode.SetUpdate:
		v := s.pop()
		return Step{Instr: ins, Stmt: pyast.ExprStmt{Value: pyast.Call{
			Func: pyast.Attribute{Value: s.nthFromTop(int(ins.Arg)), Attr: "update"},
			Args: []pyast.Expr{v},
		}}}

	case opcode.DictUpdate, opcode.DictMerge:
		v := s.pop()
		return Step{Instr: ins, Stmt: pyast.ExprStmt{Value: pyast.Call{
			Func: pyast.Attribute{Value: s.nthFromTop(int(ins.Arg)), Attr: "update"},
			Args: []pyast.Expr{v},
		}}}

	case opcode.UnpackSequence:
		// the source value is popped once here and N `val[i]` subscripts
		// are pushed in its place, so each of the following N STORE_*
		// instructions becomes its own assignment from one element; they
		// are not folded back into a single tuple-assignment.
		val := s.pop()
		n := int(ins.Arg)
		for i := 0; i < n; i++ {
			s.push(pyast.Subscript{Value: val, Index: pyast.Const{Kind: pyast.ConstInt, Text: itoa(n - 1 - i)}})
		}
		return Step{Instr: ins}

	case opcode.GetIter:
		v := s.pop()
		s.push(v) // GET_ITER's result is consumed structurally by FOR_ITER/cfg, not rewritten into an expression
		return Step{Instr: ins}

	case opcode.ForIter:
		iterExpr := s.top()
		s.push(pyast.Name{Id: "<for-item>"})
		return Step{Instr: ins, Jump: JumpForIter, Target: ins.Offset + ins.Size + int(ins.Arg), IterExpr: iterExpr}

	case opcode.JumpForward:
		return Step{Instr: ins, Jump: JumpAlways, Target: ins.Offset + ins.Size + int(ins.Arg)}

	case opcode.JumpBackward:
		return Step{Instr: ins, Jump: JumpAlways, Target: ins.Offset + ins.Size - int(ins.Arg)}

	case opcode.JumpAbsolute:
		return Step{Instr: ins, Jump: JumpAlways, Target: int(ins.Arg)}

	case opcode.PopJumpIfTrue:
		cond := s.pop()
		return Step{Instr: ins, Cond: cond, Jump: JumpIfTrue, Target: jumpTarget(ins, s.ver)}

	case opcode.PopJumpIfFalse:
		cond := s.pop()
		return Step{Instr: ins, Cond: cond, Jump: JumpIfFalse, Target: jumpTarget(ins, s.ver)}

	case opcode.PopJumpIfNone:
		cond := s.pop()
		return Step{Instr: ins, Cond: cond, Jump: JumpIfNone, Target: jumpTarget(ins, s.ver)}

	case opcode.PopJumpIfNotNone:
		cond := s.pop()
		return Step{Instr: ins, Cond: cond, Jump: JumpIfNotNone, Target: jumpTarget(ins, s.ver)}

	case opcode.JumpIfTrueOrPop:
		cond := s.pop()
		return Step{Instr: ins, Cond: cond, Jump: JumpIfTruthyOrPop, Target: jumpTarget(ins, s.ver)}

	case opcode.JumpIfFalseOrPop:
		cond := s.pop()
		return Step{Instr: ins, Cond: cond, Jump: JumpIfFalsyOrPop, Target: jumpTarget(ins, s.ver)}

	case opcode.ReturnValue:
		v := s.pop()
		return Step{Instr: ins, Stmt: pyast.Return{Value: v}}

	case opcode.ReturnConst:
		v := constToExpr(s.constAt(ins.Arg))
		return Step{Instr: ins, Stmt: pyast.Return{Value: v}}

	case opcode.BeforeWith, opcode.BeforeAsyncWith:
		ctx := s.pop()
		s.push(pyast.Name{Id: withExitMarker})
		s.push(pyast.Name{Id: withResultMarker})
		return Step{Instr: ins, WithCtx: ctx, WithAsync: ins.Op == opcode.BeforeAsyncWith}

	case opcode.EndFor, opcode.PopIter, opcode.PopBlock, opcode.PopExcept,
		opcode.WithExceptStart,
		opcode.SetupLoop, opcode.SetupFinally, opcode.SetupExcept, opcode.SetupWith,
		opcode.PushExcInfo, opcode.GetAwaitable, opcode.GetAiter, opcode.GetAnext,
		opcode.EndAsyncFor, opcode.GenStart, opcode.Reraise:
		return Step{Instr: ins}

	case opcode.RaiseVarargs:
		switch ins.Arg {
		case 0:
			return Step{Instr: ins, Stmt: pyast.Raise{}}
		case 1:
			return Step{Instr: ins, Stmt: pyast.Raise{Exc: s.pop()}}
		default:
			cause := s.pop()
			exc := s.pop()
			return Step{Instr: ins, Stmt: pyast.Raise{Exc: exc, Cause: cause}}
		}

	case opcode.YieldValue:
		v := s.pop()
		s.push(pyast.Yield{Value: v})
		return Step{Instr: ins}

	case opcode.YieldFrom:
		v := s.pop()
		_ = s.pop() // the sent-value slot YIELD_FROM otherwise leaves on the stack
		s.push(pyast.YieldFrom{Value: v})
		return Step{Instr: ins}

	case opcode.ImportName:
		fromlist := s.pop()
		level := s.pop()
		_ = fromlist
		_ = level
		s.push(pyast.Name{Id: s.nameAt(ins.Arg)})
		return Step{Instr: ins}

	case opcode.ImportFrom:
		mod := s.top()
		s.push(pyast.Attribute{Value: mod, Attr: s.nameAt(ins.Arg)})
		return Step{Instr: ins}

	case opcode.ImportStar:
		mod := s.pop()
		return Step{Instr: ins, Stmt: pyast.ImportFrom{Module: attrChainName(mod), Names: []pyast.ImportAlias{{Name: "*"}}}}

	case opcode.FormatValue:
		spec := pyast.Expr(nil)
		if ins.Arg&0x04 != 0 {
			spec = s.pop()
		}
		v := s.pop()
		conv := rune(0)
		switch ins.Arg & 0x03 {
		case 1:
			conv = 's'
		case 2:
			conv = 'r'
		case 3:
			conv = 'a'
		}
		s.push(pyast.FormattedValue{Value: v, Conversion: conv, FormatSpec: spec})
		return Step{Instr: ins}

	case opcode.PrintExpr:
		v := s.pop()
		return Step{Instr: ins, Stmt: pyast.ExprStmt{Value: pyast.Call{Func: pyast.Name{Id: "print"}, Args: []pyast.Expr{v}}}}

	case opcode.PrintItem:
		v := s.pop()
		return Step{Instr: ins, Stmt: pyast.Print{Values: []pyast.Expr{v}, NoNewline: true}}

	case opcode.PrintNewline:
		return Step{Instr: ins, Stmt: pyast.Print{}}

	case opcode.ExtendedArg:
		return Step{Instr: ins}

	case opcode.MatchMapping, opcode.MatchSequence:
		v := s.top()
		s.push(pyast.Call{Func: pyast.Name{Id: "isinstance"}, Args: []pyast.Expr{v}})
		return Step{Instr: ins}

	case opcode.MatchClass:
		cls := s.pop()
		subject := s.pop()
		s.push(pyast.Call{Func: pyast.Name{Id: "isinstance"}, Args: []pyast.Expr{subject, cls}})
		return Step{Instr: ins}

	case opcode.MatchKeys:
		return Step{Instr: ins}

	case opcode.Call, opcode.CallFunction, opcode.CallFunctionKw, opcode.CallFunctionEx,
		opcode.CallMethod, opcode.Precall, opcode.KwNames, opcode.MakeFunction:
		return s.call(ins)

	default:
		s.diag.Add(diag.UnrecognizedControlFlow, s.code.Name, ins.Offset, "no simulation rule for %s", ins.Op)
		s.push(pyast.Name{Id: "<" + ins.Op.String() + "?>"})
		return Step{Instr: ins}
	}
}

func (s *Simulator) unary(ins decode.Instruction, op string) Step {
	v := s.pop()
	s.push(pyast.UnaryOp{Op: op, Operand: v})
	return Step{Instr: ins}
}

func (s *Simulator) binary(ins decode.Instruction, op string) Step {
	b := s.pop()
	a := s.pop()
	s.push(pyast.BinOp{Op: op, Left: a, Right: b})
	return Step{Instr: ins}
}

func (s *Simulator) nthFromTop(n int) pyast.Expr {
	idx := len(s.stack) - 1 - n
	if idx < 0 || idx >= len(s.stack) {
		return pyast.Name{Id: "<stack?>"}
	}
	return s.stack[idx]
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
