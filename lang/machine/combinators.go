package machine

import (
	"github.com/orderrrr/link/lang/langerr"
	"github.com/orderrrr/link/lang/opcode"
	"github.com/orderrrr/link/lang/value"
)

// applyMonadicCombinator applies comb to the single monadic operand x.
// Only Fold is meaningful in a monadic context.
func applyMonadicCombinator(entry primitiveEntry, comb opcode.Combinator, x value.Value) (value.Value, error) {
	switch comb {
	case opcode.Fold:
		return foldList(entry, x)
	case opcode.Each:
		return nil, langerr.New(langerr.Type, value.Span{}, "each (ǁ) is reserved and not implemented")
	default:
		return nil, langerr.New(langerr.Type, value.Span{}, "combinator %s is not supported in a monadic context", comb)
	}
}

// applyDyadicCombinator applies comb to the dyadic operand pair (lhs, rhs).
// Only ScanL is meaningful in a dyadic context.
func applyDyadicCombinator(entry primitiveEntry, comb opcode.Combinator, lhs, rhs value.Value) (value.Value, error) {
	switch comb {
	case opcode.ScanL:
		return scanList(entry, lhs, rhs)
	case opcode.Each:
		return nil, langerr.New(langerr.Type, value.Span{}, "each (ǁ) is reserved and not implemented")
	default:
		return nil, langerr.New(langerr.Type, value.Span{}, "combinator %s is not supported in a dyadic context", comb)
	}
}

// foldList reduces x's elements by entry's dyadic function, left to right,
// seeded with the first element.
func foldList(entry primitiveEntry, x value.Value) (value.Value, error) {
	l, ok := x.(*value.List)
	if !ok {
		return nil, langerr.New(langerr.Type, value.Span{}, "fold (/) expects a list operand, got %s", x.Type())
	}
	if len(l.Elems) == 0 {
		return nil, langerr.New(langerr.EmptyDomain, value.Span{}, "fold (/) over an empty list")
	}
	acc := l.Elems[0]
	for i := 1; i < len(l.Elems); i++ {
		v, err := entry.dyadic(acc, l.Elems[i])
		if err != nil {
			return nil, err
		}
		acc = v
	}
	return acc, nil
}

// scanList broadcasts rhs across every element of lhs (itself a list),
// applying entry's dyadic function lane by lane: when rhs is a list it must
// match lhs's length and the two are paired elementwise; otherwise rhs is
// broadcast as a scalar against every lhs element.
func scanList(entry primitiveEntry, lhs, rhs value.Value) (value.Value, error) {
	l, ok := lhs.(*value.List)
	if !ok {
		return nil, langerr.New(langerr.Type, value.Span{}, "scanl (\\) lhs expects a list, got %s", lhs.Type())
	}
	rl, rIsList := rhs.(*value.List)
	if rIsList && len(rl.Elems) != len(l.Elems) {
		return nil, langerr.New(langerr.Arithmetic, value.Span{}, "scanl (\\) list length mismatch: %d vs %d", len(l.Elems), len(rl.Elems))
	}
	out := make([]value.Value, len(l.Elems))
	for i, w := range l.Elems {
		if rIsList {
			v, err := entry.dyadic(w, rl.Elems[i])
			if err != nil {
				return nil, err
			}
			out[i] = v
			continue
		}
		v, err := entry.dyadic(w, rhs)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return &value.List{Shape: []int{len(out)}, Elems: out}, nil
}
