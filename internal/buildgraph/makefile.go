package buildgraph

import (
	"strings"

	"github.com/standardbeagle/vfsboot/internal/vferrors"
)

// Makefile is a parsed minimal GNU-make subset: variables (=, :=, ?=),
// .PHONY, and `target: deps` rules with tab-indented commands
// (make_main.cpp's MakeFile). ToGraph translates it into a Graph so the
// `make` command reuses the standard freshness/cycle machinery.
type Makefile struct {
	Variables map[string]string
	Order     []string // rule targets in appearance order
	rules     map[string]*makeRule
	phony     map[string]bool
}

type makeRule struct {
	target       string
	dependencies []string
	commands     []string
}

// ParseMakefile parses content, consulting getenv for ?= fallbacks.
func ParseMakefile(content string, getenv func(string) string) (*Makefile, error) {
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	m := &Makefile{
		Variables: make(map[string]string),
		rules:     make(map[string]*makeRule),
		phony:     make(map[string]bool),
	}
	current := ""
	for _, line := range strings.Split(content, "\n") {
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var err error
		current, err = m.parseLine(line, current, getenv)
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Makefile) parseLine(line, current string, getenv func(string) string) (string, error) {
	if line[0] == '\t' {
		if current == "" {
			return "", vferrors.ParseError("make", "command without target")
		}
		m.rules[current].commands = append(m.rules[current].commands, line[1:])
		return current, nil
	}

	eq := strings.IndexByte(line, '=')
	colon := strings.IndexByte(line, ':')
	if eq > 0 && (colon < 0 || colon > eq || colon == eq-1) {
		assignStart := eq
		mode := byte('=')
		if line[eq-1] == ':' || line[eq-1] == '?' {
			assignStart = eq - 1
			mode = line[eq-1]
		}
		name := strings.TrimSpace(line[:assignStart])
		value := strings.TrimSpace(line[eq+1:])
		switch mode {
		case '?':
			if _, exists := m.Variables[name]; exists {
				return "", nil
			}
			if env := getenv(name); env != "" {
				m.Variables[name] = env
				return "", nil
			}
		case ':':
			value = m.Expand(value)
		}
		m.Variables[name] = value
		return "", nil
	}

	if colon >= 0 {
		target := strings.TrimSpace(line[:colon])
		deps := strings.Fields(m.Expand(line[colon+1:]))
		if target == ".PHONY" {
			for _, p := range deps {
				m.phony[p] = true
			}
			return "", nil
		}
		target = m.Expand(target)
		if _, ok := m.rules[target]; !ok {
			m.rules[target] = &makeRule{target: target}
			m.Order = append(m.Order, target)
		}
		m.rules[target].dependencies = append(m.rules[target].dependencies, deps...)
		return target, nil
	}

	return "", vferrors.ParseError("make", "unrecognized line: "+line)
}

// Expand substitutes $(VAR) and ${VAR} references, leaving unknown
// variables empty and `$$` as a literal dollar.
func (m *Makefile) Expand(text string) string {
	var b strings.Builder
	for i := 0; i < len(text); i++ {
		if text[i] != '$' || i+1 >= len(text) {
			b.WriteByte(text[i])
			continue
		}
		next := text[i+1]
		if next == '$' {
			b.WriteByte('$')
			i++
			continue
		}
		var close byte
		switch next {
		case '(':
			close = ')'
		case '{':
			close = '}'
		default:
			b.WriteByte(text[i])
			continue
		}
		end := strings.IndexByte(text[i+2:], close)
		if end < 0 {
			b.WriteByte(text[i])
			continue
		}
		b.WriteString(m.Variables[text[i+2:i+2+end]])
		i += 2 + end
	}
	return b.String()
}

// expandAutomatic substitutes the automatic variables $@ (target),
// $< (first dependency), and $^ (all dependencies) for one rule.
func (m *Makefile) expandAutomatic(text string, r *makeRule) string {
	first := ""
	if len(r.dependencies) > 0 {
		first = r.dependencies[0]
	}
	text = strings.ReplaceAll(text, "$@", r.target)
	text = strings.ReplaceAll(text, "$<", first)
	text = strings.ReplaceAll(text, "$^", strings.Join(r.dependencies, " "))
	return text
}

// HasRule reports whether target has a rule.
func (m *Makefile) HasRule(target string) bool {
	_, ok := m.rules[target]
	return ok
}

// FirstRule returns the first target declared, the fallback `make` uses
// when no "all" rule exists.
func (m *Makefile) FirstRule() string {
	if len(m.Order) == 0 {
		return ""
	}
	return m.Order[0]
}

// ToGraph translates the makefile into a build Graph: one Rule per
// target with fully expanded shell commands, phony targets marked
// AlwaysRun.
func (m *Makefile) ToGraph() *Graph {
	g := NewGraph()
	for _, target := range m.Order {
		r := m.rules[target]
		rule := Rule{
			Name:         target,
			Dependencies: append([]string(nil), r.dependencies...),
			Outputs:      []string{target},
			AlwaysRun:    m.phony[target],
		}
		for _, c := range r.commands {
			rule.Commands = append(rule.Commands, Command{
				Kind: CommandShell,
				Text: m.expandAutomatic(m.Expand(c), r),
			})
		}
		g.AddRule(rule)
	}
	return g
}
