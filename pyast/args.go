package pyast

import "golang.org/x/exp/slices"

// AlignDefaults pairs a function's positional defaults (as popped off
// the simulator's value stack, spec.md §4.5 "lambda reconstruction")
// with the tail of its parameter names: Python requires defaults to
// cover a contiguous suffix of Args/PosOnly, never an arbitrary subset.
func AlignDefaults(names []string, defaults []Expr) map[string]Expr {
	out := make(map[string]Expr, len(defaults))
	if len(defaults) == 0 {
		return out
	}
	start := len(names) - len(defaults)
	if start < 0 {
		start = 0
		defaults = defaults[len(defaults)-len(names):]
	}
	for i, name := range names[start:] {
		if i < len(defaults) {
			out[name] = defaults[i]
		}
	}
	return out
}

// WithDefaults builds Arguments.Defaults for codegen: a slice parallel
// to the tail of PosOnly+Args, using AlignDefaults's lookup so unset
// entries become nil.
func WithDefaults(posOnly, args []string, byName map[string]Expr) []Expr {
	all := append(slices.Clone(posOnly), slices.Clone(args)...)
	out := make([]Expr, 0, len(all))
	seenDefault := false
	for _, n := range all {
		if d, ok := byName[n]; ok {
			out = append(out, d)
			seenDefault = true
		} else if seenDefault {
			out = append(out, nil)
		}
	}
	return out
}
