package logic

import "github.com/standardbeagle/vfsboot/internal/tagid"

// enumerationLimit bounds the brute-force truth-table search; above this
// many free variables IsSatisfiable falls back to the backtracking
// search in dpll.
const enumerationLimit = 20

// IsSatisfiable reports whether some assignment makes f evaluate true.
// It never consults the rule set — only f's own free variables.
func (e *Engine) IsSatisfiable(f *Formula) bool {
	vars := f.FreeVars()
	if len(vars) <= enumerationLimit {
		return enumerateSat(f, vars)
	}
	return dpll(f, vars)
}

func enumerateSat(f *Formula, vars []tagid.ID) bool {
	n := len(vars)
	for mask := 0; mask < (1 << n); mask++ {
		assignment := &tagid.Set{}
		for i, v := range vars {
			if mask&(1<<i) != 0 {
				assignment.Insert(v)
			}
		}
		if f.Evaluate(assignment) {
			return true
		}
	}
	if n == 0 {
		return f.Evaluate(&tagid.Set{})
	}
	return false
}

// dpll is a plain backtracking search, used only once the variable
// count exceeds enumerationLimit. It assigns vars in order, trying false
// and then true for each, and evaluates f only on complete assignments.
// It does no unit propagation and prunes nothing on partial assignments,
// so its worst case is the same 2^n assignments as enumeration.
func dpll(f *Formula, vars []tagid.ID) bool {
	assignment := &tagid.Set{}
	return dpllSearch(f, vars, 0, assignment)
}

func dpllSearch(f *Formula, vars []tagid.ID, idx int, assignment *tagid.Set) bool {
	if idx == len(vars) {
		return f.Evaluate(assignment)
	}
	if idx == len(vars)-1 {
		// Unit step: try both values for the final variable directly.
		assignment.Erase(vars[idx])
		if f.Evaluate(assignment) {
			return true
		}
		assignment.Insert(vars[idx])
		return f.Evaluate(assignment)
	}
	assignment.Erase(vars[idx])
	if dpllSearch(f, vars, idx+1, assignment) {
		return true
	}
	assignment.Insert(vars[idx])
	return dpllSearch(f, vars, idx+1, assignment)
}
