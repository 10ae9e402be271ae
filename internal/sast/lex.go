package sast

import (
	"strings"

	"github.com/standardbeagle/vfsboot/internal/vferrors"
)

// TokenKind discriminates a lexed token.
type TokenKind int

const (
	TLParen TokenKind = iota
	TRParen
	TInt
	TBool
	TStr
	TSym
)

// Token pairs a lexed value with its byte offset, so ParseError can
// report a location per spec.md §4.4.
type Token struct {
	Kind   TokenKind
	Text   string
	Int    int64
	Bool   bool
	Offset int
}

// Lex recognizes balanced parens, symbols, signed integers, #t/#f, and
// double-quoted strings with \\, \", \n, \t, \r, per spec.md §4.4.
func Lex(src string) ([]Token, error) {
	var toks []Token
	i := 0
	n := len(src)
	for i < n {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks = append(toks, Token{Kind: TLParen, Offset: i})
			i++
		case c == ')':
			toks = append(toks, Token{Kind: TRParen, Offset: i})
			i++
		case c == '"':
			start := i
			var b strings.Builder
			i++
			closed := false
			for i < n {
				if src[i] == '"' {
					i++
					closed = true
					break
				}
				if src[i] == '\\' && i+1 < n {
					switch src[i+1] {
					case '\\':
						b.WriteByte('\\')
					case '"':
						b.WriteByte('"')
					case 'n':
						b.WriteByte('\n')
					case 't':
						b.WriteByte('\t')
					case 'r':
						b.WriteByte('\r')
					default:
						return nil, parseErrAt(start, "unknown escape sequence")
					}
					i += 2
					continue
				}
				b.WriteByte(src[i])
				i++
			}
			if !closed {
				return nil, parseErrAt(start, "unterminated string literal")
			}
			toks = append(toks, Token{Kind: TStr, Text: b.String(), Offset: start})
		default:
			start := i
			for i < n && !isDelim(src[i]) {
				i++
			}
			word := src[start:i]
			if word == "" {
				return nil, parseErrAt(start, "unexpected character")
			}
			toks = append(toks, classify(word, start))
		}
	}
	return toks, nil
}

func isDelim(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '(' || c == ')' || c == '"'
}

func classify(word string, offset int) Token {
	switch word {
	case "#t":
		return Token{Kind: TBool, Bool: true, Offset: offset}
	case "#f":
		return Token{Kind: TBool, Bool: false, Offset: offset}
	}
	if isSignedInt(word) {
		var neg bool
		s := word
		if s[0] == '-' || s[0] == '+' {
			neg = s[0] == '-'
			s = s[1:]
		}
		var v int64
		for _, r := range s {
			v = v*10 + int64(r-'0')
		}
		if neg {
			v = -v
		}
		return Token{Kind: TInt, Int: v, Offset: offset}
	}
	return Token{Kind: TSym, Text: word, Offset: offset}
}

func isSignedInt(s string) bool {
	if s == "" {
		return false
	}
	start := 0
	if s[0] == '-' || s[0] == '+' {
		start = 1
	}
	if start == len(s) {
		return false
	}
	for _, r := range s[start:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func parseErrAt(offset int, detail string) error {
	return vferrors.ParseError("sast.parse", detail).WithDetail("%s (offset %d)", detail, offset)
}
