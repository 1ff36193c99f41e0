// Package value defines the runtime value model shared by the compiler and
// the virtual machine.
package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Span records a byte-offset range in source text, used to locate errors.
// A plain start/end byte pair: the front end in this repository has no
// need for line/column tracking beyond error reporting.
type Span struct {
	Start, End int
}

// Value is implemented by every runtime value: Int, Float, Bool, Str, List
// and *UserFn.
type Value interface {
	// String returns the value's textual representation, as printed by the
	// REPL.
	String() string
	// Type names the value's kind, used in type-error messages.
	Type() string
}

// Int is a 64-bit signed integer scalar.
type Int int64

func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }
func (i Int) Type() string   { return "int" }

// Float is a 64-bit floating point scalar.
type Float float64

func (f Float) String() string { return strconv.FormatFloat(float64(f), 'g', -1, 64) }
func (f Float) Type() string   { return "float" }

// Bool is a boolean scalar.
type Bool bool

func (b Bool) String() string {
	if b {
		return "1"
	}
	return "0"
}
func (b Bool) Type() string { return "bool" }

// Str is a text scalar.
type Str string

func (s Str) String() string { return string(s) }
func (s Str) Type() string   { return "string" }

// List is a possibly-nested rank-N array of values, stored flat with an
// explicit shape (row-major). A List with an empty Shape is a
// scalar-shaped 1-element list.
type List struct {
	Shape []int
	Elems []Value
}

// NewVector builds a rank-1 List from elems.
func NewVector(elems ...Value) *List {
	return &List{Shape: []int{len(elems)}, Elems: elems}
}

func (l *List) Type() string { return "list" }

func (l *List) String() string {
	if len(l.Shape) <= 1 {
		parts := make([]string, len(l.Elems))
		for i, e := range l.Elems {
			parts[i] = e.String()
		}
		return strings.Join(parts, " ")
	}
	return formatGrid(l)
}

// formatGrid right-aligns a rank-2 (or higher, rendered row-major) list into
// columns, the way a nested array prints in the APL/J lineage.
func formatGrid(l *List) string {
	if len(l.Shape) < 2 {
		return l.String()
	}
	cols := l.Shape[len(l.Shape)-1]
	rows := len(l.Elems) / cols
	cells := make([]string, len(l.Elems))
	width := 0
	for i, e := range l.Elems {
		cells[i] = e.String()
		if n := len(cells[i]); n > width {
			width = n
		}
	}
	var b strings.Builder
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteByte('\n')
		}
		for c := 0; c < cols; c++ {
			if c > 0 {
				b.WriteByte(' ')
			}
			cell := cells[r*cols+c]
			b.WriteString(strings.Repeat(" ", width-len(cell)))
			b.WriteString(cell)
		}
	}
	return b.String()
}

// Rank reports the number of dimensions; a scalar-wrapping 1-element vector
// still has rank 1.
func (l *List) Rank() int { return len(l.Shape) }

// UserFn is a first-class function literal. It captures a private, immutable
// snapshot of the bytecode body and constant pool that were live at its
// definition site, so invoking it later never observes a rebinding of a name
// that happened after the function was defined: closures are over values,
// not names.
type UserFn struct {
	Name      string // empty for anonymous literals
	Params    []string
	Code      []byte
	Constants []Value

	// Captured is the name->value snapshot of every binding completed in a
	// REPL turn prior to this function's own definition. A call to the
	// function resolves free variables against exactly this map, never
	// against whatever turn happens to be running when it is invoked.
	Captured map[uint32]Value
}

func (f *UserFn) Type() string { return "function" }

func (f *UserFn) String() string {
	name := f.Name
	if name == "" {
		name = "anonymous"
	}
	return fmt.Sprintf("<function %s/%d>", name, len(f.Params))
}

// Arity reports the number of parameters the function was defined with (1
// for a function usable monadically, 2 for one usable dyadically). A call
// must match it exactly: a function is never usable both ways.
func (f *UserFn) Arity() int { return len(f.Params) }
