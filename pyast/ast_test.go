package pyast

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// ternaryWithFoldedAnd builds the tree spec.md's ternary/bool_op
// end-to-end scenario expects: `'yes' if a < 0 and a % 2 == 0 else 'no'`.
func ternaryWithFoldedAnd() IfExp {
	return IfExp{
		Test: BoolOp{
			Op: "and",
			Values: []Expr{
				CompareChain{Left: Name{Id: "a"}, Ops: []string{"<"}, Comparators: []Expr{Const{Kind: ConstInt, Text: "0"}}},
				CompareChain{
					Left: BinOp{Op: "%", Left: Name{Id: "a"}, Right: Const{Kind: ConstInt, Text: "2"}},
					Ops:  []string{"=="},
					Comparators: []Expr{Const{Kind: ConstInt, Text: "0"}},
				},
			},
		},
		Body:   Const{Kind: ConstStr, Text: "'yes'"},
		Orelse: Const{Kind: ConstStr, Text: "'no'"},
	}
}

// TestIfExpBoolOpStructuralEquality builds the same ternary/bool_op tree
// two different ways (one flat, one via the helper above) and checks
// they're structurally identical. Both trees are built by hand here, so
// the test exercises the node types and cmp.Diff, not simulate or cfg;
// cmp.Diff's output pinpoints exactly which field diverged rather than
// just reporting "not equal" the way reflect.DeepEqual would.
func TestIfExpBoolOpStructuralEquality(t *testing.T) {
	got := ternaryWithFoldedAnd()

	want := IfExp{
		Test: BoolOp{
			Op: "and",
			Values: []Expr{
				CompareChain{Left: Name{Id: "a"}, Ops: []string{"<"}, Comparators: []Expr{Const{Kind: ConstInt, Text: "0"}}},
				CompareChain{
					Left: BinOp{Op: "%", Left: Name{Id: "a"}, Right: Const{Kind: ConstInt, Text: "2"}},
					Ops:  []string{"=="},
					Comparators: []Expr{Const{Kind: ConstInt, Text: "0"}},
				},
			},
		},
		Body:   Const{Kind: ConstStr, Text: "'yes'"},
		Orelse: Const{Kind: ConstStr, Text: "'no'"},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ternary/bool_op tree mismatch (-want +got):\n%s", diff)
	}
}

// TestIfExpBoolOpStructuralDiff confirms cmp.Diff actually reports a
// difference (rather than silently passing regardless of input) by
// perturbing the ternary's else branch.
func TestIfExpBoolOpStructuralDiff(t *testing.T) {
	got := ternaryWithFoldedAnd()
	got.Orelse = Const{Kind: ConstStr, Text: "'different'"}

	want := ternaryWithFoldedAnd()

	diff := cmp.Diff(want, got)
	if diff == "" {
		t.Fatal("expected cmp.Diff to report a mismatch after perturbing Orelse")
	}
}
