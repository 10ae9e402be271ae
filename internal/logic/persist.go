package logic

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/standardbeagle/vfsboot/internal/tagid"
)

// SerializeRule renders r as the text payload persisted at
// /plan/rules/<name> (spec.md §4.3/§6.3). The form is a small set of
// "key: value" lines, which DeserializeRule parses back exactly.
func (e *Engine) SerializeRule(r *Rule) string {
	var b strings.Builder
	fmt.Fprintf(&b, "name: %s\n", r.Name)
	fmt.Fprintf(&b, "premise: %s\n", r.Premise.String(e.Registry))
	fmt.Fprintf(&b, "conclusion: %s\n", r.Conclusion.String(e.Registry))
	fmt.Fprintf(&b, "confidence: %s\n", strconv.FormatFloat(r.Confidence, 'f', -1, 64))
	fmt.Fprintf(&b, "source: %s\n", r.Source)
	return b.String()
}

// DeserializeRule parses the text form produced by SerializeRule. Any
// tag names it encounters are registered against e.Registry if new.
func (e *Engine) DeserializeRule(text string) (*Rule, error) {
	fields := map[string]string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("malformed rule line %q", line)
		}
		fields[strings.TrimSpace(key)] = strings.TrimSpace(val)
	}
	for _, required := range []string{"name", "premise", "conclusion", "confidence", "source"} {
		if _, ok := fields[required]; !ok {
			return nil, fmt.Errorf("rule text missing field %q", required)
		}
	}
	premise, err := ParseFormula(fields["premise"], e.Registry)
	if err != nil {
		return nil, fmt.Errorf("rule %q premise: %w", fields["name"], err)
	}
	conclusion, err := ParseFormula(fields["conclusion"], e.Registry)
	if err != nil {
		return nil, fmt.Errorf("rule %q conclusion: %w", fields["name"], err)
	}
	confidence, err := strconv.ParseFloat(fields["confidence"], 64)
	if err != nil {
		return nil, fmt.Errorf("rule %q confidence: %w", fields["name"], err)
	}
	return &Rule{
		Name:       fields["name"],
		Premise:    premise,
		Conclusion: conclusion,
		Confidence: confidence,
		Source:     fields["source"],
	}, nil
}

// Reset discards every rule, used by LoadRules-style replace semantics.
func (e *Engine) Reset() {
	e.rules = make(map[string]*Rule)
	e.order = nil
}

// TagIDOf is a small convenience for callers outside this package that
// only have a tag name and need an ID for Var()/NewSet().
func TagIDOf(reg *tagid.Registry, name string) tagid.ID {
	return reg.Register(name)
}
