// Package sast implements the S-expression AST, evaluator, and builtin
// environment from spec.md §4.4. Grounded on
// _examples/original_source/VfsShell/sexp.h's Value/AstNode/Env variant.
package sast

import (
	"fmt"
	"strings"

	"github.com/standardbeagle/vfsboot/internal/vferrors"
)

// ValueKind discriminates Value's variant, mirroring sexp.h's
// std::variant<int64_t, bool, string, Builtin, Closure, List>.
type ValueKind int

const (
	KindInt ValueKind = iota
	KindBool
	KindStr
	KindBuiltin
	KindClosure
	KindList
)

// Builtin is a native function installed into the global environment.
type Builtin func(args []Value, env *Env) (Value, error)

// Closure captures its defining environment, per spec.md §4.4
// ("closures capture their defining environment; lifetime = longest
// holder").
type Closure struct {
	Params []string
	Body   Node
	Env    *Env
}

// Value is the evaluator's total result type.
type Value struct {
	Kind    ValueKind
	Int     int64
	Bool    bool
	Str     string
	Builtin Builtin
	Closure *Closure
	List    []Value
}

func IntVal(i int64) Value        { return Value{Kind: KindInt, Int: i} }
func BoolVal(b bool) Value        { return Value{Kind: KindBool, Bool: b} }
func StrVal(s string) Value       { return Value{Kind: KindStr, Str: s} }
func BuiltinVal(f Builtin) Value  { return Value{Kind: KindBuiltin, Builtin: f} }
func ClosureVal(c *Closure) Value { return Value{Kind: KindClosure, Closure: c} }
func ListVal(xs []Value) Value    { return Value{Kind: KindList, List: xs} }

// Show renders a Value for `print` and error messages.
func (v Value) Show() string {
	switch v.Kind {
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindBool:
		if v.Bool {
			return "#t"
		}
		return "#f"
	case KindStr:
		return v.Str
	case KindBuiltin:
		return "<builtin>"
	case KindClosure:
		return "<closure>"
	case KindList:
		parts := make([]string, len(v.List))
		for i, x := range v.List {
			parts[i] = x.Show()
		}
		return "(" + strings.Join(parts, " ") + ")"
	default:
		return "<unknown>"
	}
}

func typeName(k ValueKind) string {
	switch k {
	case KindInt:
		return "Int"
	case KindBool:
		return "Bool"
	case KindStr:
		return "Str"
	case KindBuiltin:
		return "Builtin"
	case KindClosure:
		return "Closure"
	case KindList:
		return "List"
	default:
		return "Unknown"
	}
}

func typeError(op string, want string, got Value) error {
	return vferrors.ParseError("sast.eval", fmt.Sprintf("%s: expected %s, got %s", op, want, typeName(got.Kind)))
}
