// Package ast defines the fixed abstract syntax tree the compiler consumes.
// Nodes are produced by internal/sexpr and, in tests, constructed directly.
package ast

import (
	"github.com/orderrrr/link/lang/opcode"
	"github.com/orderrrr/link/lang/value"
)

// Node is implemented by every AST node.
type Node interface {
	Span() value.Span
}

type base struct{ Sp value.Span }

func (b base) Span() value.Span { return b.Sp }

// IntLit is an integer literal.
type IntLit struct {
	base
	Val int64
}

// FloatLit is a floating point literal.
type FloatLit struct {
	base
	Val float64
}

// BoolLit is a boolean literal.
type BoolLit struct {
	base
	Val bool
}

// StrLit is a string literal.
type StrLit struct {
	base
	Val string
}

// ListLit is a literal list. The compiler accepts only literal elements
// (nested lists included) and folds the whole list into one constant; any
// other element kind is a compile error.
type ListLit struct {
	base
	Elems []Node
}

// NameRef is a reference to a bound name: a variable, a user function, or
// one of the reserved train-argument names "w" (left) and "a" (right, also
// the sole argument of a monadic train).
type NameRef struct {
	base
	Name string
}

// TrainElemKind distinguishes the three shapes a train element can take.
type TrainElemKind int

const (
	// ElemPrimitive applies a fixed primitive, consuming the train's running
	// value (monadic position) or fresh operand pair (dyadic, leftmost
	// position). ElemPrimitive entries may carry a Comb (combinator).
	ElemPrimitive TrainElemKind = iota
	// ElemOverride is an ElemPrimitive written "OP:" in source: it always
	// compiles to a monadic application (MO) regardless of the role its
	// position would otherwise receive in a dyadic train.
	ElemOverride
	// ElemName is a bare name reference used as a train element: a
	// previously bound user function applied the same way a primitive would
	// be.
	ElemName
)

// TrainElem is one element of a train, the right-to-left chain of
// primitives/combinators/names that a train Apply node compiles.
type TrainElem struct {
	Kind TrainElemKind
	Prim opcode.Primitive // valid when Kind != ElemName
	Comb opcode.Combinator // opcode.None if uncombined
	Name string            // valid when Kind == ElemName
	Sp   value.Span
}

// Apply is a train application: Args holds 1 element for a monadic
// application ("a") or 2 for a dyadic one ("w", "a"), evaluated right
// argument first, before the train itself runs right to left over them.
type Apply struct {
	base
	Train []TrainElem
	Args  []Node
}

// Lambda is a function literal. Params is 1 or 2 long, named for the
// train-argument convention ("w" and, for a dyadic function, also "a").
type Lambda struct {
	base
	Name   string // empty for an anonymous literal
	Params []string
	Body   []Node
}

// DoBlock sequences expressions, discarding every intermediate result and
// yielding the last.
type DoBlock struct {
	base
	Body []Node
}

// Assign binds Name to the value of Rhs. It leaves no value on the stack.
type Assign struct {
	base
	Name string
	Rhs  Node
}

// NewSpan is a small constructor helper used by internal/sexpr.
func NewSpan(start, end int) value.Span { return value.Span{Start: start, End: end} }

// The constructors below let internal/sexpr build nodes without reaching
// into the unexported base field directly.

func NewIntLit(sp value.Span, v int64) *IntLit       { return &IntLit{base{sp}, v} }
func NewFloatLit(sp value.Span, v float64) *FloatLit { return &FloatLit{base{sp}, v} }
func NewBoolLit(sp value.Span, v bool) *BoolLit      { return &BoolLit{base{sp}, v} }
func NewStrLit(sp value.Span, v string) *StrLit      { return &StrLit{base{sp}, v} }
func NewNameRef(sp value.Span, name string) *NameRef { return &NameRef{base{sp}, name} }

func NewListLit(sp value.Span, elems []Node) *ListLit {
	return &ListLit{base{sp}, elems}
}

func NewApply(sp value.Span, train []TrainElem, args []Node) *Apply {
	return &Apply{base{sp}, train, args}
}

func NewLambda(sp value.Span, name string, params []string, body []Node) *Lambda {
	return &Lambda{base{sp}, name, params, body}
}

func NewDoBlock(sp value.Span, body []Node) *DoBlock {
	return &DoBlock{base{sp}, body}
}

func NewAssign(sp value.Span, name string, rhs Node) *Assign {
	return &Assign{base{sp}, name, rhs}
}
