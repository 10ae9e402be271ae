package logic

import (
	"fmt"

	"github.com/standardbeagle/vfsboot/internal/tagid"
)

// Rule is an implication rule: premise => conclusion, carrying a
// confidence in [0,1] and a provenance string. Rule names are unique;
// re-adding a name replaces the rule (mirrors ImplicationRule in
// logic_engine.h).
type Rule struct {
	Name       string
	Premise    *Formula
	Conclusion *Formula
	Confidence float64
	Source     string
}

// Engine owns the rule set and the registry it operates against.
type Engine struct {
	Registry *tagid.Registry
	rules    map[string]*Rule
	order    []string // insertion order, for deterministic iteration
}

func NewEngine(reg *tagid.Registry) *Engine {
	return &Engine{Registry: reg, rules: make(map[string]*Rule)}
}

// AddRule installs or replaces rule r by name.
func (e *Engine) AddRule(r Rule) {
	if _, exists := e.rules[r.Name]; !exists {
		e.order = append(e.order, r.Name)
	}
	cp := r
	e.rules[r.Name] = &cp
}

// RemoveRule deletes a rule by name. No-op if absent.
func (e *Engine) RemoveRule(name string) {
	if _, ok := e.rules[name]; !ok {
		return
	}
	delete(e.rules, name)
	for i, n := range e.order {
		if n == name {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

func (e *Engine) HasRule(name string) bool {
	_, ok := e.rules[name]
	return ok
}

// Rules returns rules in insertion order.
func (e *Engine) Rules() []*Rule {
	out := make([]*Rule, 0, len(e.order))
	for _, n := range e.order {
		out = append(out, e.rules[n])
	}
	return out
}

// AddSimpleRule installs premise-tag => conclusion-tag.
func (e *Engine) AddSimpleRule(name, premiseTag, conclusionTag string, confidence float64, source string) {
	e.AddRule(Rule{
		Name:       name,
		Premise:    Var(e.Registry.Register(premiseTag)),
		Conclusion: Var(e.Registry.Register(conclusionTag)),
		Confidence: confidence,
		Source:     source,
	})
}

// AddExclusionRule installs a rule whose firing means tag1 and tag2 are
// mutually exclusive: tag1 => !tag2.
func (e *Engine) AddExclusionRule(name, tag1, tag2, source string) {
	e.AddRule(Rule{
		Name:       name,
		Premise:    Var(e.Registry.Register(tag1)),
		Conclusion: Not(Var(e.Registry.Register(tag2))),
		Confidence: 1.0,
		Source:     source,
	})
}

// InferTags performs forward chaining to a fixed point (spec.md §4.3 /
// §8): starting from initial, repeatedly fire every rule whose premise
// evaluates true and whose confidence clears minConfidence, adding the
// positive literal closure of its conclusion. Stops when a full pass
// changes nothing (detected via the XOR fingerprint) or after
// len(rules)+1 passes, whichever comes first.
func (e *Engine) InferTags(initial *tagid.Set, minConfidence float64) *tagid.Set {
	current := initial.Clone()
	maxPasses := len(e.order) + 1
	for pass := 0; pass < maxPasses; pass++ {
		before := current.Fingerprint()
		beforeCard := current.Cardinality()
		for _, name := range e.order {
			r := e.rules[name]
			if r.Confidence < minConfidence {
				continue
			}
			if !r.Premise.Evaluate(current) {
				continue
			}
			for _, lit := range positiveClosure(r.Conclusion) {
				current.Insert(lit)
			}
		}
		if current.Fingerprint() == before && current.Cardinality() == beforeCard {
			break
		}
	}
	return current
}

// positiveClosure extends Formula.PositiveLiterals to also unwrap a
// top-level Implies' conclusion side, since conclusions are sometimes
// themselves stored as bare implications produced by rule composition.
func positiveClosure(f *Formula) []tagid.ID {
	if f == nil {
		return nil
	}
	if f.Op == OpImplies {
		return positiveClosure(f.Children[1])
	}
	return f.PositiveLiterals()
}

// ConflictInfo describes a consistency violation.
type ConflictInfo struct {
	Description      string
	ConflictingTags  []string
	Suggestions      []string
}

// CheckConsistency returns the first conflict an exclusion rule raises
// against tags, independent of confidence (spec.md §4.3).
func (e *Engine) CheckConsistency(tags *tagid.Set) *ConflictInfo {
	for _, name := range e.order {
		r := e.rules[name]
		if !isExclusion(r.Conclusion) {
			continue
		}
		if !r.Premise.Evaluate(tags) {
			continue
		}
		excluded := r.Conclusion.Children[0].Var
		if tags.Contains(excluded) {
			premiseTag := firstVar(r.Premise)
			return &ConflictInfo{
				Description: fmt.Sprintf("rule %q: %s conflicts with %s",
					r.Name, e.Registry.Name(premiseTag), e.Registry.Name(excluded)),
				ConflictingTags: []string{e.Registry.Name(premiseTag), e.Registry.Name(excluded)},
				Suggestions:     e.suggestRemovals(tags, []tagid.ID{premiseTag, excluded}),
			}
		}
	}
	return nil
}

func isExclusion(conclusion *Formula) bool {
	return conclusion != nil && conclusion.Op == OpNot && conclusion.Children[0].Op == OpVar
}

func firstVar(f *Formula) tagid.ID {
	vars := f.FreeVars()
	if len(vars) == 0 {
		return tagid.Invalid
	}
	return vars[0]
}

// ExplainInference returns a human-readable chain of rule names whose
// firing (starting from initial) introduces target, tracing backward
// from the first rule that derived target to a rule grounded in an
// initial tag.
func (e *Engine) ExplainInference(target tagid.ID, initial *tagid.Set) []string {
	introducedBy := make(map[tagid.ID]string) // tag -> rule name that first added it
	current := initial.Clone()
	maxPasses := len(e.order) + 1
	for pass := 0; pass < maxPasses; pass++ {
		before := current.Fingerprint()
		for _, name := range e.order {
			r := e.rules[name]
			if !r.Premise.Evaluate(current) {
				continue
			}
			for _, lit := range positiveClosure(r.Conclusion) {
				if !current.Contains(lit) {
					introducedBy[lit] = name
				}
				current.Insert(lit)
			}
		}
		if current.Fingerprint() == before {
			break
		}
	}
	var chain []string
	seen := make(map[tagid.ID]bool)
	var walk func(tagid.ID)
	walk = func(t tagid.ID) {
		if seen[t] {
			return
		}
		seen[t] = true
		name, ok := introducedBy[t]
		if !ok {
			return // grounded in an initial tag
		}
		r := e.rules[name]
		for _, dep := range r.Premise.FreeVars() {
			if !initial.Contains(dep) {
				walk(dep)
			}
		}
		chain = append(chain, name)
	}
	walk(target)
	return chain
}
