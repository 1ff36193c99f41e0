package machine

import (
	"math"

	"github.com/orderrrr/link/lang/langerr"
	"github.com/orderrrr/link/lang/opcode"
	"github.com/orderrrr/link/lang/value"
)

type monadicFn func(x value.Value) (value.Value, error)
type dyadicFn func(lhs, rhs value.Value) (value.Value, error)

type primitiveEntry struct {
	monadic monadicFn
	dyadic  dyadicFn
}

func notImplementedMonadic(name string) monadicFn {
	return func(value.Value) (value.Value, error) {
		return nil, langerr.New(langerr.Type, value.Span{}, "%s has no monadic form", name)
	}
}

func notImplementedDyadic(name string) dyadicFn {
	return func(value.Value, value.Value) (value.Value, error) {
		return nil, langerr.New(langerr.Type, value.Span{}, "%s has no dyadic form", name)
	}
}

var primitiveTable = map[opcode.Primitive]primitiveEntry{
	opcode.Plus:  {monadic: notImplementedMonadic("+"), dyadic: doPlus},
	opcode.Minus: {monadic: moNegate, dyadic: doMinus},
	opcode.Max:   {monadic: notImplementedMonadic("max"), dyadic: doMax},
	opcode.Min:   {monadic: moFloor, dyadic: doMin},
	opcode.Eq:    {monadic: moEq, dyadic: notImplementedDyadic("=")},
	opcode.Amp:   {monadic: notImplementedMonadic("&"), dyadic: doAmp},
	opcode.Bang:  {monadic: moBang, dyadic: doBang},
	opcode.Mult:  {monadic: notImplementedMonadic("*"), dyadic: notImplementedDyadic("*")}, // opcode reserved, never wired to an implementation
	opcode.Div:   {monadic: notImplementedMonadic("/"), dyadic: doDiv},
	opcode.Rho:   {monadic: moRho, dyadic: doRho},
}

func lookupPrimitive(p opcode.Primitive) (primitiveEntry, error) {
	e, ok := primitiveTable[p]
	if !ok {
		return primitiveEntry{}, langerr.New(langerr.Type, value.Span{}, "unknown primitive id %d", p)
	}
	return e, nil
}

func asFloat(v value.Value) (float64, bool) {
	switch v := v.(type) {
	case value.Int:
		return float64(v), true
	case value.Float:
		return float64(v), true
	case value.Bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func isInt(v value.Value) (int64, bool) {
	switch v := v.(type) {
	case value.Int:
		return int64(v), true
	case value.Bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// numeric applies a scalar-only float operation, broadcasting over List
// operands elementwise: a scalar is paired against every element, two
// equal-length lists are paired lane for lane.
func numeric(lhs, rhs value.Value, op func(a, b float64) (value.Value, error)) (value.Value, error) {
	ll, lIsList := lhs.(*value.List)
	rl, rIsList := rhs.(*value.List)

	switch {
	case lIsList && rIsList:
		if len(ll.Elems) != len(rl.Elems) {
			return nil, langerr.New(langerr.Arithmetic, value.Span{}, "shape mismatch: %d vs %d", len(ll.Elems), len(rl.Elems))
		}
		elems, err := elementwise(ll.Elems, rl.Elems, func(a, b value.Value) (value.Value, error) {
			return numeric(a, b, op)
		})
		if err != nil {
			return nil, err
		}
		return &value.List{Shape: append([]int(nil), ll.Shape...), Elems: elems}, nil
	case lIsList:
		elems := make([]value.Value, len(ll.Elems))
		for i, e := range ll.Elems {
			v, err := numeric(e, rhs, op)
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return &value.List{Shape: append([]int(nil), ll.Shape...), Elems: elems}, nil
	case rIsList:
		elems := make([]value.Value, len(rl.Elems))
		for i, e := range rl.Elems {
			v, err := numeric(lhs, e, op)
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return &value.List{Shape: append([]int(nil), rl.Shape...), Elems: elems}, nil
	default:
		a, aok := asFloat(lhs)
		b, bok := asFloat(rhs)
		if !aok || !bok {
			return nil, langerr.New(langerr.Type, value.Span{}, "expected numeric operands, got %s and %s", lhs.Type(), rhs.Type())
		}
		return op(a, b)
	}
}

func moNegate(x value.Value) (value.Value, error) {
	return numeric(value.Int(0), x, func(_, b float64) (value.Value, error) {
		if _, ok := x.(value.Float); ok {
			return value.Float(-b), nil
		}
		return value.Int(-int64(b)), nil
	})
}

// moFloor truncates a float down to an int; it has no meaning for operands
// that are already integral.
func moFloor(x value.Value) (value.Value, error) {
	f, ok := x.(value.Float)
	if !ok {
		return nil, langerr.New(langerr.Type, value.Span{}, "min (floor) expects a float, got %s", x.Type())
	}
	return value.Int(int64(math.Floor(float64(f)))), nil
}

// moEq is a deep zero-test: each scalar becomes true iff it equals zero,
// recursing into nested lists element by element.
func moEq(x value.Value) (value.Value, error) {
	switch v := x.(type) {
	case *value.List:
		elems := make([]value.Value, len(v.Elems))
		for i, e := range v.Elems {
			r, err := moEq(e)
			if err != nil {
				return nil, err
			}
			elems[i] = r
		}
		return &value.List{Shape: append([]int(nil), v.Shape...), Elems: elems}, nil
	default:
		n, ok := isInt(v)
		if !ok {
			return nil, langerr.New(langerr.Type, value.Span{}, "= (zero-test) expects int or list, got %s", x.Type())
		}
		return value.Bool(n == 0), nil
	}
}

func doPlus(lhs, rhs value.Value) (value.Value, error) {
	return numeric(lhs, rhs, func(a, b float64) (value.Value, error) {
		return wrapNumeric(lhs, rhs, a+b), nil
	})
}

func doMinus(lhs, rhs value.Value) (value.Value, error) {
	return numeric(lhs, rhs, func(a, b float64) (value.Value, error) {
		return wrapNumeric(lhs, rhs, a-b), nil
	})
}

func doMax(lhs, rhs value.Value) (value.Value, error) {
	return numeric(lhs, rhs, func(a, b float64) (value.Value, error) {
		return wrapNumeric(lhs, rhs, math.Max(a, b)), nil
	})
}

func doMin(lhs, rhs value.Value) (value.Value, error) {
	return numeric(lhs, rhs, func(a, b float64) (value.Value, error) {
		return wrapNumeric(lhs, rhs, math.Min(a, b)), nil
	})
}

// wrapNumeric keeps results Int-typed when both operands were integral
// (Int or Bool), matching the convention that arithmetic over whole numbers
// stays whole unless a Float operand is involved.
func wrapNumeric(lhs, rhs value.Value, f float64) value.Value {
	_, lf := lhs.(value.Float)
	_, rf := rhs.(value.Float)
	if lf || rf {
		return value.Float(f)
	}
	return value.Int(int64(f))
}

// doAmp filters rhs by lhs: the result keeps rhs[i] wherever lhs[i] is
// true, dropping it otherwise. Both operands must be equal-length lists of
// the same arity as each other; lhs's elements must be Bool.
func doAmp(lhs, rhs value.Value) (value.Value, error) {
	ll, lok := lhs.(*value.List)
	rl, rok := rhs.(*value.List)
	if !lok || !rok {
		return nil, langerr.New(langerr.Type, value.Span{}, "& (filter) expects two lists, got %s and %s", lhs.Type(), rhs.Type())
	}
	if len(ll.Elems) != len(rl.Elems) {
		return nil, langerr.New(langerr.Arithmetic, value.Span{}, "& (filter) list length mismatch: %d vs %d", len(ll.Elems), len(rl.Elems))
	}
	out := make([]value.Value, 0, len(rl.Elems))
	for i, m := range ll.Elems {
		b, ok := m.(value.Bool)
		if !ok {
			return nil, langerr.New(langerr.Type, value.Span{}, "& (filter) mask must be bool, got %s", m.Type())
		}
		if b {
			out = append(out, rl.Elems[i])
		}
	}
	return &value.List{Shape: []int{len(out)}, Elems: out}, nil
}

// moBang produces the range [0, n).
func moBang(x value.Value) (value.Value, error) {
	n, ok := isInt(x)
	if !ok || n < 0 {
		return nil, langerr.New(langerr.EmptyDomain, value.Span{}, "! (range) expects a non-negative integer, got %s", x.String())
	}
	elems := make([]value.Value, n)
	for i := int64(0); i < n; i++ {
		elems[i] = value.Int(i)
	}
	return &value.List{Shape: []int{int(n)}, Elems: elems}, nil
}

// doBang is mathematical modulo: rhs modulo lhs, erroring on a zero lhs.
// The result is never negative (0 <= result < |lhs|).
func doBang(lhs, rhs value.Value) (value.Value, error) {
	w, wok := isInt(lhs)
	a, aok := isInt(rhs)
	if !wok || !aok {
		return nil, langerr.New(langerr.Type, value.Span{}, "! (modulo) expects integer operands, got %s and %s", lhs.Type(), rhs.Type())
	}
	if w == 0 {
		return nil, langerr.New(langerr.Arithmetic, value.Span{}, "modulo by zero")
	}
	r := a % w
	if r < 0 {
		if w > 0 {
			r += w
		} else {
			r -= w
		}
	}
	return value.Int(r), nil
}

// doDiv divides rhs by lhs (the left operand is the divisor), erroring on a
// zero divisor.
func doDiv(lhs, rhs value.Value) (value.Value, error) {
	return numeric(lhs, rhs, func(w, a float64) (value.Value, error) {
		if w == 0 {
			return nil, langerr.New(langerr.Arithmetic, value.Span{}, "division by zero")
		}
		return value.Float(a / w), nil
	})
}

// shapeOf extracts a non-negative dimension vector from a scalar int or a
// list of ints.
func shapeOf(x value.Value) ([]int, error) {
	if l, ok := x.(*value.List); ok {
		shape := make([]int, len(l.Elems))
		for i, d := range l.Elems {
			n, ok := isInt(d)
			if !ok || n < 0 {
				return nil, langerr.New(langerr.Arithmetic, value.Span{}, "shape dimensions must be non-negative integers")
			}
			shape[i] = int(n)
		}
		return shape, nil
	}
	n, ok := isInt(x)
	if !ok {
		return nil, langerr.New(langerr.Type, value.Span{}, "rho expects a shape vector, got %s", x.Type())
	}
	if n < 0 {
		return nil, langerr.New(langerr.Arithmetic, value.Span{}, "shape dimensions must be non-negative integers")
	}
	return []int{int(n)}, nil
}

// buildNested lays flat data out into shape (row-major), recursively
// nesting one List per leading dimension beyond the last.
func buildNested(shape []int, data []value.Value) *value.List {
	if len(shape) <= 1 {
		return &value.List{Shape: []int{len(data)}, Elems: append([]value.Value(nil), data...)}
	}
	rows := shape[0]
	inner := shape[1:]
	rowLen := 1
	for _, d := range inner {
		rowLen *= d
	}
	elems := make([]value.Value, rows)
	for r := 0; r < rows; r++ {
		start := r * rowLen
		end := start + rowLen
		if start > len(data) {
			start = len(data)
		}
		if end > len(data) {
			end = len(data)
		}
		elems[r] = buildNested(inner, data[start:end])
	}
	return &value.List{Shape: []int{rows}, Elems: elems}
}

// moRho takes a shape description (an int or a list of ints) and produces a
// zeroed array of that shape.
func moRho(x value.Value) (value.Value, error) {
	shape, err := shapeOf(x)
	if err != nil {
		return nil, err
	}
	reversed := make([]int, len(shape))
	for i, d := range shape {
		reversed[len(shape)-1-i] = d
	}
	total := 1
	for _, d := range reversed {
		total *= d
	}
	data := make([]value.Value, total)
	for i := range data {
		data[i] = value.Int(0)
	}
	return buildNested(reversed, data), nil
}

// doRho reshapes rhs's elements (cycling/truncating as needed) into the
// shape described by lhs, a vector of non-negative integer dimensions. The
// shape is consumed in reverse (innermost dimension first) before nesting,
// so the outermost dimension is built last, wrapping everything nested
// inside it.
func doRho(lhs, rhs value.Value) (value.Value, error) {
	shape, err := shapeOf(lhs)
	if err != nil {
		return nil, err
	}
	reversed := make([]int, len(shape))
	for i, d := range shape {
		reversed[len(shape)-1-i] = d
	}

	total := 1
	for _, d := range reversed {
		total *= d
	}

	var source []value.Value
	if l, ok := rhs.(*value.List); ok {
		source = l.Elems
	} else {
		source = []value.Value{rhs}
	}
	if len(source) == 0 {
		return nil, langerr.New(langerr.EmptyDomain, value.Span{}, "cannot reshape an empty list into a non-empty shape")
	}

	data := make([]value.Value, total)
	for i := range data {
		data[i] = source[i%len(source)]
	}
	return buildNested(reversed, data), nil
}
