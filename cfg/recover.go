package cfg

import (
	"pydis/diag"
	"pydis/pyast"
	"pydis/simulate"
)

// Recover lifts a code object's simulated Steps into a structured
// statement list (spec.md §4.6). Patterns recognized: straight-line
// sequences, if/elif/else, while, for, with, and a best-effort
// fallback for anything else, which is emitted in program order with a
// diagnostic rather than dropped (spec.md §7 "degrade gracefully").
// Loops are built without an else clause.
func Recover(steps []simulate.Step, sink *diag.Sink, codeName string) []pyast.Stmt {
	blocks := buildBlocks(steps)
	offsetIdx := buildOffsetIndex(steps)
	r := &recoverer{offsetIdx: offsetIdx, diag: sink, codeName: codeName}
	body, _ := r.structure(blocks, 0, len(blocks))
	return body
}

func buildOffsetIndex(steps []simulate.Step) map[int]int {
	m := make(map[int]int, len(steps))
	for i, st := range steps {
		m[st.Instr.Offset] = i
	}
	return m
}

type recoverer struct {
	offsetIdx map[int]int
	diag      *diag.Sink
	codeName  string
}

// structure processes blocks[lo:hi) into a statement list. It returns
// the statements and the block index it stopped at (== hi on a clean
// pass; always hi here since every branch consumes exactly the range it
// recognizes and recurses for the rest).
func (r *recoverer) structure(blocks []*Block, lo, hi int) ([]pyast.Stmt, int) {
	var out []pyast.Stmt
	i := lo
	for i < hi {
		b := blocks[i]
		plain, last := splitLastJump(b.Steps)
		out = append(out, stmtsOf(plain)...)

		if opener := withOpenerOf(b.Steps); opener != nil {
			endIdx, ok := r.findWithEnd(blocks, i+1, hi)
			if !ok {
				r.diag.Add(diag.UnrecognizedControlFlow, r.codeName, opener.Instr.Offset, "BEFORE_WITH without matching exit call")
				i++
				continue
			}
			bodyStmts, _ := r.structure(blocks, i+1, endIdx+1)
			bodyStmts, asTarget := extractWithTarget(bodyStmts)
			out = append(out, pyast.With{
				Items:   []pyast.WithItem{{Context: opener.WithCtx, Target: asTarget}},
				Body:    bodyStmts,
				IsAsync: opener.WithAsync,
			})
			i = endIdx + 1
			continue
		}

		if last == nil || last.Jump == simulate.JumpNone {
			i++
			continue
		}

		targetIdx, haveTarget := r.blockIndexForOffset(blocks, last.Target)

		switch last.Jump {
		case simulate.JumpAlways:
			// A forward unconditional jump with no matching structure
			// around it (not part of an if/else skip, handled below when
			// encountered from the branch side) is most often a loop's
			// `continue`-to-top or a bare `else:`-closing jump already
			// consumed by the if/else branch; if we reach one directly
			// it is an unrecognized edge, so stop this straight run here
			// and let the caller's range boundary absorb it.
			i++

		case simulate.JumpIfTrue, simulate.JumpIfFalse, simulate.JumpIfNone, simulate.JumpIfNotNone,
			simulate.JumpIfTruthyOrPop, simulate.JumpIfFalsyOrPop:
			if !haveTarget {
				r.diag.Add(diag.UnrecognizedControlFlow, r.codeName, last.Instr.Offset, "conditional jump target outside current range")
				i++
				continue
			}
			if loopEnd, ok := r.findBackEdge(blocks, i, hi); ok {
				test := polarityTest(last.Cond, last.Jump)
				bodyStmts, _ := r.structure(blocks, i+1, loopEnd+1)
				out = append(out, pyast.While{Test: test, Body: bodyStmts})
				i = targetIdx
				continue
			}
			thenStmts, elseStmts, next := r.structureIfElse(blocks, i, targetIdx, hi)
			out = append(out, pyast.If{
				Test:   polarityTest(last.Cond, last.Jump),
				Body:   thenStmts,
				Orelse: elseStmts,
			})
			i = next

		case simulate.JumpForIter:
			loopEnd, ok := r.findBackEdge(blocks, i, hi)
			if !ok {
				r.diag.Add(diag.UnrecognizedControlFlow, r.codeName, last.Instr.Offset, "FOR_ITER without matching back edge")
				i++
				continue
			}
			bodyStmts, _ := r.structure(blocks, i+1, loopEnd+1)
			bodyStmts, forTarget := extractForTarget(bodyStmts)
			out = append(out, pyast.For{Target: forTarget, Iter: last.IterExpr, Body: bodyStmts})
			if haveTarget {
				i = targetIdx
			} else {
				i = loopEnd + 1
			}

		default:
			i++
		}
	}
	return out, hi
}

func splitLastJump(steps []simulate.Step) (plain []simulate.Step, last *simulate.Step) {
	if len(steps) == 0 {
		return nil, nil
	}
	n := len(steps) - 1
	if steps[n].Jump != simulate.JumpNone {
		return steps[:n], &steps[n]
	}
	return steps, nil
}

func stmtsOf(steps []simulate.Step) []pyast.Stmt {
	var out []pyast.Stmt
	for _, st := range steps {
		if st.Stmt != nil {
			out = append(out, st.Stmt)
		}
	}
	return out
}

func (r *recoverer) blockIndexForOffset(blocks []*Block, offset int) (int, bool) {
	instrIdx, ok := r.offsetIdx[offset]
	if !ok {
		return -1, false
	}
	idx := blockIndexAt(blocks, instrIdx)
	return idx, idx >= 0
}

// findBackEdge looks for a block in (headerIdx, hi) whose last step is
// an unconditional backward jump to headerIdx. Both while's test block
// and FOR_ITER's block are "headers" closed by this same back-edge shape.
func (r *recoverer) findBackEdge(blocks []*Block, headerIdx, hi int) (int, bool) {
	for j := headerIdx + 1; j < hi; j++ {
		_, last := splitLastJump(blocks[j].Steps)
		if last == nil || last.Jump != simulate.JumpAlways {
			continue
		}
		tIdx, ok := r.blockIndexForOffset(blocks, last.Target)
		if ok && tIdx == headerIdx {
			return j, true
		}
	}
	return 0, false
}

// structureIfElse recognizes the if/else-skip pattern: the block just
// before targetIdx ending in an unconditional forward jump marks an
// else clause; otherwise it's a plain if with no else.
func (r *recoverer) structureIfElse(blocks []*Block, headerIdx, targetIdx, hi int) (thenStmts, elseStmts []pyast.Stmt, next int) {
	if targetIdx <= headerIdx+1 || targetIdx > hi {
		thenStmts, _ = r.structure(blocks, headerIdx+1, max(targetIdx, headerIdx+1))
		return thenStmts, nil, max(targetIdx, headerIdx+1)
	}

	beforeTarget := targetIdx - 1
	_, last := splitLastJump(blocks[beforeTarget].Steps)
	if last != nil && last.Jump == simulate.JumpAlways && beforeTarget > headerIdx {
		if elseEndIdx, ok := r.blockIndexForOffset(blocks, last.Target); ok && elseEndIdx > targetIdx {
			thenStmts, _ = r.structure(blocks, headerIdx+1, beforeTarget+1)
			elseStmts, _ = r.structure(blocks, targetIdx, elseEndIdx)
			return thenStmts, elseStmts, elseEndIdx
		}
	}

	thenStmts, _ = r.structure(blocks, headerIdx+1, targetIdx)
	return thenStmts, nil, targetIdx
}

func polarityTest(cond pyast.Expr, jump simulate.JumpKind) pyast.Expr {
	switch jump {
	case simulate.JumpIfFalse, simulate.JumpIfFalsyOrPop:
		return cond
	case simulate.JumpIfTrue, simulate.JumpIfTruthyOrPop:
		return pyast.UnaryOp{Op: "not", Operand: cond}
	case simulate.JumpIfNone:
		return pyast.CompareChain{Left: cond, Ops: []string{"is not"}, Comparators: []pyast.Expr{pyast.Const{Kind: pyast.ConstNone}}}
	case simulate.JumpIfNotNone:
		return pyast.CompareChain{Left: cond, Ops: []string{"is"}, Comparators: []pyast.Expr{pyast.Const{Kind: pyast.ConstNone}}}
	default:
		return cond
	}
}

// withOpenerOf returns the block's BEFORE_WITH/BEFORE_ASYNC_WITH step, if
// it ends the block (buildBlocks always forces a boundary right after
// one, so it is always the last step when present).
func withOpenerOf(steps []simulate.Step) *simulate.Step {
	if len(steps) == 0 {
		return nil
	}
	last := &steps[len(steps)-1]
	if last.WithCtx != nil {
		return last
	}
	return nil
}

// findWithEnd locates the block whose last step invokes the matching
// with-block's exit call, tracking nesting depth so an inner with inside
// the body doesn't get mistaken for the outer one's exit (spec.md §4.6
// "with-statement recognition").
func (r *recoverer) findWithEnd(blocks []*Block, lo, hi int) (int, bool) {
	depth := 1
	for j := lo; j < hi; j++ {
		for _, st := range blocks[j].Steps {
			if st.WithCtx != nil {
				depth++
			}
			if st.WithExitEnd {
				depth--
				if depth == 0 {
					return j, true
				}
			}
		}
	}
	return 0, false
}

// extractWithTarget pulls the `as` target assignment out of a with-
// body's first statement, mirroring extractForTarget below.
func extractWithTarget(body []pyast.Stmt) ([]pyast.Stmt, pyast.Expr) {
	if len(body) == 0 {
		return body, nil
	}
	if asg, ok := body[0].(pyast.Assign); ok {
		if n, ok := asg.Value.(pyast.Name); ok && n.Id == "<with-result>" {
			target := asg.Targets[0]
			if len(asg.Targets) > 1 {
				target = pyast.Tuple{Elts: asg.Targets}
			}
			return body[1:], target
		}
	}
	return body, nil
}

// extractForTarget pulls the loop-variable assignment FOR_ITER's first
// STORE_* produced out of the body and returns it as the For statement's
// target (spec.md §4.6 "for pattern recognition").
func extractForTarget(body []pyast.Stmt) ([]pyast.Stmt, pyast.Expr) {
	if len(body) == 0 {
		return body, pyast.Name{Id: "_"}
	}
	if asg, ok := body[0].(pyast.Assign); ok {
		if n, ok := asg.Value.(pyast.Name); ok && n.Id == "<for-item>" {
			target := asg.Targets[0]
			if len(asg.Targets) > 1 {
				target = pyast.Tuple{Elts: asg.Targets}
			}
			return body[1:], target
		}
	}
	return body, pyast.Name{Id: "_"}
}
