// Package langerr defines the typed error taxonomy shared by the reader,
// compiler and virtual machine, so callers can branch on error class
// instead of matching message strings.
package langerr

import (
	"fmt"

	"github.com/orderrrr/link/lang/value"
)

// Kind classifies an Error into one of the fixed taxonomy entries.
type Kind int

const (
	_ Kind = iota
	Parse
	Compile
	Arity
	Type
	Arithmetic
	EmptyDomain
	Stack
)

func (k Kind) String() string {
	switch k {
	case Parse:
		return "parse"
	case Compile:
		return "compile"
	case Arity:
		return "arity"
	case Type:
		return "type"
	case Arithmetic:
		return "arithmetic"
	case EmptyDomain:
		return "empty-domain"
	case Stack:
		return "stack"
	default:
		return "unknown"
	}
}

// Error is the single error type produced anywhere in the reader, compiler
// or machine packages.
type Error struct {
	Kind Kind
	Msg  string
	Span value.Span
}

func (e *Error) Error() string {
	if e.Span.Start == 0 && e.Span.End == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s (at %d-%d)", e.Kind, e.Msg, e.Span.Start, e.Span.End)
}

// New builds an Error of the given kind.
func New(k Kind, span value.Span, format string, args ...any) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...), Span: span}
}
