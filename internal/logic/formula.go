// Package logic implements the implication-rule/tag theorem-proving
// engine from spec.md §4.3, grounded on
// _examples/original_source/src/VfsShell/logic_engine.h.
package logic

import (
	"fmt"
	"strings"

	"github.com/standardbeagle/vfsboot/internal/tagid"
)

// Op names a Formula node kind.
type Op int

const (
	OpVar Op = iota
	OpNot
	OpAnd
	OpOr
	OpImplies
)

// Formula is the logic-formula ADT: Var(TagId) | Not(f) | And([f]) |
// Or([f]) | Implies(lhs,rhs). Evaluation is total over any TagSet.
type Formula struct {
	Op       Op
	Var      tagid.ID
	Children []*Formula // Not: 1 child; And/Or: N children; Implies: [lhs, rhs]
}

func Var(id tagid.ID) *Formula { return &Formula{Op: OpVar, Var: id} }
func Not(f *Formula) *Formula  { return &Formula{Op: OpNot, Children: []*Formula{f}} }
func And(fs ...*Formula) *Formula {
	return &Formula{Op: OpAnd, Children: fs}
}
func Or(fs ...*Formula) *Formula {
	return &Formula{Op: OpOr, Children: fs}
}
func Implies(lhs, rhs *Formula) *Formula {
	return &Formula{Op: OpImplies, Children: []*Formula{lhs, rhs}}
}

// Evaluate is a pure, total evaluator: two calls on structurally equal
// inputs always return the same value (spec.md §8).
func (f *Formula) Evaluate(tags *tagid.Set) bool {
	if f == nil {
		return true
	}
	switch f.Op {
	case OpVar:
		return tags.Contains(f.Var)
	case OpNot:
		return !f.Children[0].Evaluate(tags)
	case OpAnd:
		for _, c := range f.Children {
			if !c.Evaluate(tags) {
				return false
			}
		}
		return true
	case OpOr:
		for _, c := range f.Children {
			if c.Evaluate(tags) {
				return true
			}
		}
		return false
	case OpImplies:
		return !f.Children[0].Evaluate(tags) || f.Children[1].Evaluate(tags)
	default:
		return false
	}
}

// FreeVars returns the distinct tag ids referenced anywhere in f, in
// first-seen order.
func (f *Formula) FreeVars() []tagid.ID {
	seen := make(map[tagid.ID]bool)
	var out []tagid.ID
	var walk func(*Formula)
	walk = func(n *Formula) {
		if n == nil {
			return
		}
		if n.Op == OpVar {
			if !seen[n.Var] {
				seen[n.Var] = true
				out = append(out, n.Var)
			}
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(f)
	return out
}

// PositiveLiterals canonicalizes the "positive literal closure" used by
// forward chaining (spec.md §4.3): for an And, its direct Var children
// (other children are skipped); for a bare Var, itself; for any other
// shape (Not, Or, Implies, ...), nil, since no single literal is
// guaranteed.
func (f *Formula) PositiveLiterals() []tagid.ID {
	switch f.Op {
	case OpVar:
		return []tagid.ID{f.Var}
	case OpAnd:
		var out []tagid.ID
		for _, c := range f.Children {
			if c.Op == OpVar {
				out = append(out, c.Var)
			}
		}
		return out
	default:
		return nil
	}
}

// String renders f using registered tag names, for diagnostics and the
// rule-persistence text form.
func (f *Formula) String(reg *tagid.Registry) string {
	if f == nil {
		return "true"
	}
	switch f.Op {
	case OpVar:
		return reg.Name(f.Var)
	case OpNot:
		return fmt.Sprintf("!%s", f.Children[0].String(reg))
	case OpAnd:
		parts := make([]string, len(f.Children))
		for i, c := range f.Children {
			parts[i] = c.String(reg)
		}
		return "(" + strings.Join(parts, " & ") + ")"
	case OpOr:
		parts := make([]string, len(f.Children))
		for i, c := range f.Children {
			parts[i] = c.String(reg)
		}
		return "(" + strings.Join(parts, " | ") + ")"
	case OpImplies:
		return fmt.Sprintf("(%s -> %s)", f.Children[0].String(reg), f.Children[1].String(reg))
	default:
		return "?"
	}
}
