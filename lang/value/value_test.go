package value_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orderrrr/link/lang/value"
)

func TestScalarStringAndType(t *testing.T) {
	cases := []struct {
		desc    string
		v       value.Value
		wantStr string
		wantTyp string
	}{
		{"int", value.Int(-7), "-7", "int"},
		{"float", value.Float(3.5), "3.5", "float"},
		{"bool true", value.Bool(true), "1", "bool"},
		{"bool false", value.Bool(false), "0", "bool"},
		{"string", value.Str("hi"), "hi", "string"},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			require.Equal(t, c.wantStr, c.v.String())
			require.Equal(t, c.wantTyp, c.v.Type())
		})
	}
}

func TestNewVectorRank(t *testing.T) {
	v := value.NewVector(value.Int(1), value.Int(2), value.Int(3))
	require.Equal(t, 1, v.Rank())
	require.Equal(t, "1 2 3", v.String())
}

func TestListStringNestedRows(t *testing.T) {
	l := &value.List{
		Shape: []int{2},
		Elems: []value.Value{
			value.NewVector(value.Int(0), value.Int(1), value.Int(2)),
			value.NewVector(value.Int(30), value.Int(4), value.Int(5)),
		},
	}
	// Top-level list has rank 1 (two rows, each itself a List), so String
	// renders the outer level space-joined, and each row renders its own
	// elements space-joined too: no column alignment happens.
	require.Equal(t, "0 1 2 30 4 5", l.String())
}

func TestListStringFlatRank2Grid(t *testing.T) {
	l := &value.List{
		Shape: []int{2, 3},
		Elems: []value.Value{
			value.Int(0), value.Int(1), value.Int(2),
			value.Int(30), value.Int(4), value.Int(5),
		},
	}
	require.Equal(t, 2, l.Rank())
	require.Equal(t, " 0  1  2\n30  4  5", l.String())
}

func TestUserFnArityAndString(t *testing.T) {
	fn := &value.UserFn{Name: "inc", Params: []string{"w"}}
	require.Equal(t, 1, fn.Arity())
	require.Equal(t, "<function inc/1>", fn.String())
	require.Equal(t, "function", fn.Type())

	anon := &value.UserFn{Params: []string{"w", "a"}}
	require.Equal(t, 2, anon.Arity())
	require.Equal(t, "<function anonymous/2>", anon.String())
}
