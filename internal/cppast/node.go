// Package cppast implements the C++ construction AST and dumper from
// spec.md §4.5, grounded on
// _examples/original_source/src/VfsShell/cpp_ast.h's CppNode hierarchy.
package cppast

import "fmt"

// Node is any dumpable C++ AST element. Dump renders source text at the
// given indent level; it is side-effect-free (spec.md §4.5).
type Node interface {
	Dump(indent int) string
}

func ind(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}

// Include is `#include "h"` or `#include <h>`.
type Include struct {
	Header string
	Angled bool
}

func (n Include) Dump(int) string {
	if n.Angled {
		return fmt.Sprintf("#include <%s>", n.Header)
	}
	return fmt.Sprintf("#include %q", n.Header)
}

// Expr is the marker for C++ expression nodes (CppExpr in cpp_ast.h).
type Expr interface {
	Node
	isExpr()
}

type Id struct{ ID string }

func (n Id) Dump(int) string { return n.ID }
func (Id) isExpr()           {}

// CppString is CppString in cpp_ast.h; escaped per spec.md §4.5 (`\\`,
// `\"`, `\n`, `\t`, `\r`, other control chars as `\xHH`).
type CppString struct{ Val string }

func (n CppString) Dump(int) string { return `"` + EscapeString(n.Val) + `"` }
func (CppString) isExpr()           {}

// EscapeString applies the C escape conventions spec.md §4.5 names.
func EscapeString(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			b = append(b, '\\', '\\')
		case '"':
			b = append(b, '\\', '"')
		case '\n':
			b = append(b, '\\', 'n')
		case '\t':
			b = append(b, '\\', 't')
		case '\r':
			b = append(b, '\\', 'r')
		default:
			if c < 0x20 || c == 0x7f {
				b = append(b, []byte(fmt.Sprintf(`\x%02x`, c))...)
			} else {
				b = append(b, c)
			}
		}
	}
	return string(b)
}

type Int struct{ Val int64 }

func (n Int) Dump(int) string { return fmt.Sprintf("%d", n.Val) }
func (Int) isExpr()           {}

type Call struct {
	Fn   Expr
	Args []Expr
}

func (n Call) Dump(int) string {
	s := n.Fn.Dump(0) + "("
	for i, a := range n.Args {
		if i > 0 {
			s += ", "
		}
		s += a.Dump(0)
	}
	return s + ")"
}
func (Call) isExpr() {}

type BinOp struct {
	Op   string
	A, B Expr
}

func (n BinOp) Dump(int) string { return n.A.Dump(0) + " " + n.Op + " " + n.B.Dump(0) }
func (BinOp) isExpr()           {}

// StreamOut renders a chain of `<<`-joined operands, with the sentinel
// Id{"endl"} rendering as `std::endl`, per spec.md §4.5.
type StreamOut struct {
	Chain []Expr
}

func (n StreamOut) Dump(int) string {
	s := "std::cout"
	for _, e := range n.Chain {
		if id, ok := e.(Id); ok && id.ID == "endl" {
			s += " << std::endl"
			continue
		}
		s += " << " + e.Dump(0)
	}
	return s
}
func (StreamOut) isExpr() {}

// RawExpr emits its text verbatim, no escape processing (spec.md §4.5).
type RawExpr struct{ Text string }

func (n RawExpr) Dump(int) string { return n.Text }
func (RawExpr) isExpr()           {}
