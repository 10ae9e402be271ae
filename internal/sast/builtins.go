package sast

import (
	"fmt"

	"github.com/standardbeagle/vfsboot/internal/vferrors"
)

// InstallBuiltins populates env with arithmetic, comparison, and list
// primitives plus print, per spec.md §4.4's "Built-ins installed at
// start". `if`, `lambda`, `define`, and `let` are parser-level special
// forms (see parse.go), not entries here, since they must not evaluate
// all their operands eagerly.
func InstallBuiltins(env *Env) {
	env.Set("+", BuiltinVal(arith("+", func(a, b int64) int64 { return a + b })))
	env.Set("-", BuiltinVal(arith("-", func(a, b int64) int64 { return a - b })))
	env.Set("*", BuiltinVal(arith("*", func(a, b int64) int64 { return a * b })))
	env.Set("/", BuiltinVal(divBuiltin))
	env.Set("mod", BuiltinVal(modBuiltin))

	env.Set("=", BuiltinVal(cmp("=", func(a, b int64) bool { return a == b })))
	env.Set("<", BuiltinVal(cmp("<", func(a, b int64) bool { return a < b })))
	env.Set(">", BuiltinVal(cmp(">", func(a, b int64) bool { return a > b })))
	env.Set("<=", BuiltinVal(cmp("<=", func(a, b int64) bool { return a <= b })))
	env.Set(">=", BuiltinVal(cmp(">=", func(a, b int64) bool { return a >= b })))

	env.Set("list", BuiltinVal(func(args []Value, _ *Env) (Value, error) {
		return ListVal(append([]Value(nil), args...)), nil
	}))
	env.Set("car", BuiltinVal(func(args []Value, _ *Env) (Value, error) {
		if len(args) != 1 || args[0].Kind != KindList || len(args[0].List) == 0 {
			return Value{}, vferrors.ParseError("sast.eval", "car: expected a non-empty list")
		}
		return args[0].List[0], nil
	}))
	env.Set("cdr", BuiltinVal(func(args []Value, _ *Env) (Value, error) {
		if len(args) != 1 || args[0].Kind != KindList || len(args[0].List) == 0 {
			return Value{}, vferrors.ParseError("sast.eval", "cdr: expected a non-empty list")
		}
		return ListVal(args[0].List[1:]), nil
	}))
	env.Set("cons", BuiltinVal(func(args []Value, _ *Env) (Value, error) {
		if len(args) != 2 || args[1].Kind != KindList {
			return Value{}, vferrors.ParseError("sast.eval", "cons: expected (value list)")
		}
		return ListVal(append([]Value{args[0]}, args[1].List...)), nil
	}))
	env.Set("length", BuiltinVal(func(args []Value, _ *Env) (Value, error) {
		if len(args) != 1 || args[0].Kind != KindList {
			return Value{}, vferrors.ParseError("sast.eval", "length: expected a list")
		}
		return IntVal(int64(len(args[0].List))), nil
	}))

	env.Set("print", BuiltinVal(func(args []Value, _ *Env) (Value, error) {
		for _, a := range args {
			fmt.Println(a.Show())
		}
		if len(args) == 0 {
			return Value{}, nil
		}
		return args[len(args)-1], nil
	}))
}

func arith(name string, f func(a, b int64) int64) Builtin {
	return func(args []Value, _ *Env) (Value, error) {
		if len(args) == 0 {
			return Value{}, vferrors.ParseError("sast.eval", name+": requires at least one argument")
		}
		acc := args[0]
		if acc.Kind != KindInt {
			return Value{}, typeError(name, "Int", acc)
		}
		result := acc.Int
		for _, v := range args[1:] {
			if v.Kind != KindInt {
				return Value{}, typeError(name, "Int", v)
			}
			result = f(result, v.Int)
		}
		if len(args) == 1 && name == "-" {
			return IntVal(-result), nil
		}
		return IntVal(result), nil
	}
}

func divBuiltin(args []Value, _ *Env) (Value, error) {
	if len(args) != 2 || args[0].Kind != KindInt || args[1].Kind != KindInt {
		return Value{}, vferrors.ParseError("sast.eval", "/: expected (Int Int)")
	}
	if args[1].Int == 0 {
		return Value{}, vferrors.ParseError("sast.eval", "/: division by zero")
	}
	return IntVal(args[0].Int / args[1].Int), nil
}

func modBuiltin(args []Value, _ *Env) (Value, error) {
	if len(args) != 2 || args[0].Kind != KindInt || args[1].Kind != KindInt {
		return Value{}, vferrors.ParseError("sast.eval", "mod: expected (Int Int)")
	}
	if args[1].Int == 0 {
		return Value{}, vferrors.ParseError("sast.eval", "mod: division by zero")
	}
	return IntVal(args[0].Int % args[1].Int), nil
}

func cmp(name string, f func(a, b int64) bool) Builtin {
	return func(args []Value, _ *Env) (Value, error) {
		if len(args) != 2 {
			return Value{}, vferrors.ParseError("sast.eval", name+": expected exactly 2 arguments")
		}
		if args[0].Kind != KindInt || args[1].Kind != KindInt {
			return Value{}, typeError(name, "Int", args[0])
		}
		return BoolVal(f(args[0].Int, args[1].Int)), nil
	}
}

// NewGlobalEnv builds a root environment with every builtin installed.
func NewGlobalEnv() *Env {
	env := NewEnv(nil)
	InstallBuiltins(env)
	return env
}
