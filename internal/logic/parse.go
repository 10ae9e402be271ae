package logic

import (
	"fmt"
	"strings"

	"github.com/standardbeagle/vfsboot/internal/tagid"
)

// ParseFormula parses the text form produced by Formula.String, against
// reg (registering any tag name it hasn't seen yet). Grammar:
//
//	formula   := implication
//	implication := disjunction ( "->" disjunction )?
//	disjunction := conjunction ( "|" conjunction )*
//	conjunction := unary ( "&" unary )*
//	unary     := "!" unary | atom
//	atom      := ident | "(" formula ")"
func ParseFormula(src string, reg *tagid.Registry) (*Formula, error) {
	p := &fparser{toks: tokenizeFormula(src), reg: reg}
	f, err := p.parseImplication()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("unexpected trailing token %q", p.toks[p.pos])
	}
	return f, nil
}

func tokenizeFormula(src string) []string {
	var toks []string
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(' || c == ')' || c == '!' || c == '&' || c == '|':
			toks = append(toks, string(c))
			i++
		case c == '-' && i+1 < len(src) && src[i+1] == '>':
			toks = append(toks, "->")
			i += 2
		default:
			j := i
			for j < len(src) && !strings.ContainsRune(" \t\n\r()!&|", rune(src[j])) {
				j++
			}
			toks = append(toks, src[i:j])
			i = j
		}
	}
	return toks
}

type fparser struct {
	toks []string
	pos  int
	reg  *tagid.Registry
}

func (p *fparser) peek() string {
	if p.pos >= len(p.toks) {
		return ""
	}
	return p.toks[p.pos]
}

func (p *fparser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *fparser) parseImplication() (*Formula, error) {
	lhs, err := p.parseDisjunction()
	if err != nil {
		return nil, err
	}
	if p.peek() == "->" {
		p.next()
		rhs, err := p.parseDisjunction()
		if err != nil {
			return nil, err
		}
		return Implies(lhs, rhs), nil
	}
	return lhs, nil
}

func (p *fparser) parseDisjunction() (*Formula, error) {
	first, err := p.parseConjunction()
	if err != nil {
		return nil, err
	}
	terms := []*Formula{first}
	for p.peek() == "|" {
		p.next()
		next, err := p.parseConjunction()
		if err != nil {
			return nil, err
		}
		terms = append(terms, next)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return Or(terms...), nil
}

func (p *fparser) parseConjunction() (*Formula, error) {
	first, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	terms := []*Formula{first}
	for p.peek() == "&" {
		p.next()
		next, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		terms = append(terms, next)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return And(terms...), nil
}

func (p *fparser) parseUnary() (*Formula, error) {
	if p.peek() == "!" {
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Not(inner), nil
	}
	return p.parseAtom()
}

func (p *fparser) parseAtom() (*Formula, error) {
	tok := p.next()
	switch tok {
	case "":
		return nil, fmt.Errorf("unexpected end of formula")
	case "(":
		f, err := p.parseImplication()
		if err != nil {
			return nil, err
		}
		if p.next() != ")" {
			return nil, fmt.Errorf("expected closing paren")
		}
		return f, nil
	default:
		return Var(p.reg.Register(tok)), nil
	}
}
