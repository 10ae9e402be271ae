package sast

import "github.com/standardbeagle/vfsboot/internal/vferrors"

// Env is a lexical chain of {name -> Value} frames, per spec.md §4.4
// ("get walking up, set writing to the innermost"). Grounded on
// sexp.h's Env struct.
type Env struct {
	tbl map[string]Value
	up  *Env
}

func NewEnv(parent *Env) *Env {
	return &Env{tbl: make(map[string]Value), up: parent}
}

// Set writes to this frame only (never the parent), matching sexp.h's
// Env::set.
func (e *Env) Set(name string, v Value) { e.tbl[name] = v }

// Get walks up the chain until it finds name, or reports not-found.
func (e *Env) Get(name string) (Value, bool) {
	for env := e; env != nil; env = env.up {
		if v, ok := env.tbl[name]; ok {
			return v, true
		}
	}
	return Value{}, false
}

func unboundSymbol(name string) error {
	return vferrors.ParseError("sast.eval", "unbound symbol: "+name).WithPath(name)
}

func arityError(want, got int) error {
	return vferrors.ParseError("sast.eval", "arity mismatch").
		WithDetail("want %d args, got %d", want, got)
}
