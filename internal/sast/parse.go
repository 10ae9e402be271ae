package sast

import "github.com/standardbeagle/vfsboot/internal/vferrors"

// sexpr is the untyped parenthesized-list intermediate form produced by
// the first parse pass, before special-form recognition converts it into
// the typed Node tree.
type sexpr struct {
	atom     *Token
	list     []*sexpr
	isAtom   bool
}

type sparser struct {
	toks []Token
	pos  int
}

// Parse lexes and parses src into a typed Node tree, per spec.md §4.4.
func Parse(src string) (Node, error) {
	toks, err := Lex(src)
	if err != nil {
		return nil, err
	}
	p := &sparser{toks: toks}
	s, err := p.parseSexpr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, parseErrAt(p.toks[p.pos].Offset, "trailing input after expression")
	}
	return sexprToNode(s)
}

func (p *sparser) parseSexpr() (*sexpr, error) {
	if p.pos >= len(p.toks) {
		return nil, parseErrAt(-1, "unexpected end of input")
	}
	tok := p.toks[p.pos]
	if tok.Kind == TLParen {
		p.pos++
		var items []*sexpr
		for {
			if p.pos >= len(p.toks) {
				return nil, parseErrAt(tok.Offset, "unterminated list")
			}
			if p.toks[p.pos].Kind == TRParen {
				p.pos++
				break
			}
			item, err := p.parseSexpr()
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return &sexpr{list: items}, nil
	}
	if tok.Kind == TRParen {
		return nil, parseErrAt(tok.Offset, "unexpected )")
	}
	p.pos++
	t := tok
	return &sexpr{atom: &t, isAtom: true}, nil
}

func sexprToNode(s *sexpr) (Node, error) {
	if s.isAtom {
		switch s.atom.Kind {
		case TInt:
			return Int{Val: s.atom.Int}, nil
		case TBool:
			return Bool{Val: s.atom.Bool}, nil
		case TStr:
			return Str{Val: s.atom.Text}, nil
		case TSym:
			return Sym{ID: s.atom.Text}, nil
		default:
			return nil, parseErrAt(s.atom.Offset, "unexpected atom token")
		}
	}
	if len(s.list) == 0 {
		return nil, parseErrAt(-1, "empty list")
	}
	head := s.list[0]
	if head.isAtom && head.atom.Kind == TSym {
		switch head.atom.Text {
		case "if":
			return parseIf(s.list)
		case "lambda":
			return parseLambda(s.list)
		case "define":
			return parseDefine(s.list)
		case "let":
			return parseLet(s.list)
		}
	}
	fn, err := sexprToNode(head)
	if err != nil {
		return nil, err
	}
	args := make([]Node, 0, len(s.list)-1)
	for _, a := range s.list[1:] {
		n, err := sexprToNode(a)
		if err != nil {
			return nil, err
		}
		args = append(args, n)
	}
	return Call{Fn: fn, Args: args}, nil
}

func parseIf(items []*sexpr) (Node, error) {
	if len(items) != 4 {
		return nil, vferrors.ParseError("sast.parse", "if requires (if cond then else)")
	}
	cond, err := sexprToNode(items[1])
	if err != nil {
		return nil, err
	}
	then, err := sexprToNode(items[2])
	if err != nil {
		return nil, err
	}
	els, err := sexprToNode(items[3])
	if err != nil {
		return nil, err
	}
	return If{Cond: cond, Then: then, Else: els}, nil
}

func parseLambda(items []*sexpr) (Node, error) {
	if len(items) != 3 {
		return nil, vferrors.ParseError("sast.parse", "lambda requires (lambda (params...) body)")
	}
	if items[1].isAtom {
		return nil, vferrors.ParseError("sast.parse", "lambda parameter list must be a list")
	}
	params := make([]string, len(items[1].list))
	for i, p := range items[1].list {
		if !p.isAtom || p.atom.Kind != TSym {
			return nil, vferrors.ParseError("sast.parse", "lambda parameters must be symbols")
		}
		params[i] = p.atom.Text
	}
	body, err := sexprToNode(items[2])
	if err != nil {
		return nil, err
	}
	return Lambda{Params: params, Body: body}, nil
}

func parseDefine(items []*sexpr) (Node, error) {
	if len(items) != 3 || !items[1].isAtom || items[1].atom.Kind != TSym {
		return nil, vferrors.ParseError("sast.parse", "define requires (define name expr)")
	}
	expr, err := sexprToNode(items[2])
	if err != nil {
		return nil, err
	}
	return Define{Name: items[1].atom.Text, Expr: expr}, nil
}

func parseLet(items []*sexpr) (Node, error) {
	if len(items) != 3 || items[1].isAtom {
		return nil, vferrors.ParseError("sast.parse", "let requires (let ((name expr)...) body)")
	}
	var names []string
	var inits []Node
	for _, binding := range items[1].list {
		if binding.isAtom || len(binding.list) != 2 {
			return nil, vferrors.ParseError("sast.parse", "let binding must be (name expr)")
		}
		nameExpr := binding.list[0]
		if !nameExpr.isAtom || nameExpr.atom.Kind != TSym {
			return nil, vferrors.ParseError("sast.parse", "let binding name must be a symbol")
		}
		init, err := sexprToNode(binding.list[1])
		if err != nil {
			return nil, err
		}
		names = append(names, nameExpr.atom.Text)
		inits = append(inits, init)
	}
	body, err := sexprToNode(items[2])
	if err != nil {
		return nil, err
	}
	return Let{Names: names, Inits: inits, Body: body}, nil
}
