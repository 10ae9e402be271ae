// Package vferrors defines the typed error taxonomy shared across the
// overlay VFS, the logic engine, the build graph, and the command
// dispatcher. Command handlers translate these into a user-facing
// message and a non-zero Result; nothing below the dispatcher boundary
// panics for a condition listed here.
package vferrors

import (
	"fmt"
	"time"
)

// Kind names one of the error taxonomy buckets from spec.md §7.
type Kind string

const (
	KindUser            Kind = "user"             // bad arguments, unknown command, syntax error
	KindNotFound        Kind = "not_found"         // path resolution failure
	KindAmbiguous       Kind = "ambiguous"         // manual policy with multiple overlay hits
	KindMismatch        Kind = "kind_mismatch"     // read on a dir, write on a mount, etc.
	KindBuildFailure    Kind = "build_failure"     // non-zero exit or circular dependency
	KindLogicConflict   Kind = "logic_conflict"    // checkConsistency violation
	KindExternalFailure Kind = "external_failure"  // mount/library/remote collaborator failure
	KindInternal        Kind = "internal"          // invariant violation, never corrupts state
)

// Error is the concrete error type used everywhere in this module. Every
// constructor below returns one of these, pre-tagged with its Kind.
type Error struct {
	Kind       Kind
	Op         string // operation that failed, e.g. "read", "mv", "logic.infer"
	Path       string // VFS path, if any
	Detail     string // human-readable extra context
	Underlying error
	Timestamp  time.Time
}

func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Detail != "":
		return fmt.Sprintf("%s: %s %q: %s", e.Kind, e.Op, e.Path, e.Detail)
	case e.Path != "":
		return fmt.Sprintf("%s: %s %q", e.Kind, e.Op, e.Path)
	case e.Detail != "":
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, e.Detail)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
}

func (e *Error) Unwrap() error { return e.Underlying }

func newErr(kind Kind, op string) *Error {
	return &Error{Kind: kind, Op: op, Timestamp: time.Now()}
}

// WithPath attaches the VFS path the operation was acting on.
func (e *Error) WithPath(p string) *Error { e.Path = p; return e }

// WithDetail attaches free-form human-readable context.
func (e *Error) WithDetail(format string, args ...any) *Error {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// WithUnderlying attaches a wrapped cause.
func (e *Error) WithUnderlying(err error) *Error { e.Underlying = err; return e }

// Constructors mirroring the taxonomy in spec.md §7.

func InvalidPath(op, path string) *Error {
	return newErr(KindUser, op).WithPath(path).WithDetail("not an absolute path")
}

func ParseError(op, detail string) *Error {
	return newErr(KindUser, op).WithDetail("%s", detail)
}

func UnknownCommand(name string) *Error {
	return newErr(KindUser, "dispatch").WithDetail("unknown command %q", name)
}

func NotFound(op, path string) *Error {
	return newErr(KindNotFound, op).WithPath(path)
}

func Ambiguous(op, path string, overlays []string) *Error {
	return newErr(KindAmbiguous, op).WithPath(path).
		WithDetail("ambiguous across overlays: %v", overlays)
}

func NotADirectory(op, path string) *Error {
	return newErr(KindMismatch, op).WithPath(path).WithDetail("not a directory")
}

func NotAFile(op, path string) *Error {
	return newErr(KindMismatch, op).WithPath(path).WithDetail("not a file")
}

func NotWritable(op, path string) *Error {
	return newErr(KindMismatch, op).WithPath(path).WithDetail("not writable")
}

func IsDirectory(op, path string) *Error {
	return newErr(KindMismatch, op).WithPath(path).WithDetail("is a directory")
}

func CircularDependency(target string, cycle []string) *Error {
	return newErr(KindBuildFailure, "build").WithPath(target).
		WithDetail("circular dependency: %v", cycle)
}

func BuildFailed(target, detail string) *Error {
	return newErr(KindBuildFailure, "build").WithPath(target).WithDetail("%s", detail)
}

func LogicConflict(description string) *Error {
	return newErr(KindLogicConflict, "logic.check").WithDetail("%s", description)
}

func MountDenied(path string) *Error {
	return newErr(KindUser, "mount").WithPath(path).WithDetail("mounting is disabled")
}

func ExternalFailure(op, detail string, underlying error) *Error {
	return newErr(KindExternalFailure, op).WithDetail("%s", detail).WithUnderlying(underlying)
}

func Internal(op, detail string) *Error {
	return newErr(KindInternal, op).WithDetail("%s", detail)
}

// Is reports whether err (or anything it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if ve, ok := err.(*Error); ok {
			e = ve
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == kind
}
