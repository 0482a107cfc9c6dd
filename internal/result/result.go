package result

import (
	"errors"
	"fmt"
)

// Kind classifies why a step or adapter call did not produce a value.
type Kind string

const (
	KindUpstream     Kind = "upstream"
	KindParse        Kind = "parse"
	KindPrecondition Kind = "precondition"
	KindNotFound     Kind = "not_found"
)

// Error carries a Kind alongside the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func Errorf(kind Kind, op string, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind of err, or "" when err carries none.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Result is either a value or a classified error.
type Result[T any] struct {
	Value T
	Err   error
}

func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

func Fail[T any](kind Kind, op string, err error) Result[T] {
	return Result[T]{Err: Wrap(kind, op, err)}
}

func (r Result[T]) OK() bool { return r.Err == nil }

func (r Result[T]) Kind() Kind { return KindOf(r.Err) }

// Or returns the value, or fallback when the result failed.
func (r Result[T]) Or(fallback T) T {
	if r.Err != nil {
		return fallback
	}
	return r.Value
}

func (r Result[T]) Unpack() (T, error) {
	return r.Value, r.Err
}
