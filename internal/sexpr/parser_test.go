package sexpr_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orderrrr/link/internal/sexpr"
	"github.com/orderrrr/link/lang/ast"
	"github.com/orderrrr/link/lang/opcode"
)

func TestParseLiterals(t *testing.T) {
	forms, err := sexpr.Parse(`1 2.5 true false "hi"`)
	require.NoError(t, err)
	require.Len(t, forms, 5)

	require.Equal(t, int64(1), forms[0].(*ast.IntLit).Val)
	require.Equal(t, 2.5, forms[1].(*ast.FloatLit).Val)
	require.Equal(t, true, forms[2].(*ast.BoolLit).Val)
	require.Equal(t, false, forms[3].(*ast.BoolLit).Val)
	require.Equal(t, "hi", forms[4].(*ast.StrLit).Val)
}

func TestParseListLiteral(t *testing.T) {
	forms, err := sexpr.Parse("(1 2 3)")
	require.NoError(t, err)
	require.Len(t, forms, 1)
	lst, ok := forms[0].(*ast.ListLit)
	require.True(t, ok)
	require.Len(t, lst.Elems, 3)
}

func TestParseMonadicApply(t *testing.T) {
	forms, err := sexpr.Parse("(-| 2)")
	require.NoError(t, err)
	app, ok := forms[0].(*ast.Apply)
	require.True(t, ok)
	require.Len(t, app.Args, 1)
	require.Len(t, app.Train, 1)
	require.Equal(t, ast.ElemPrimitive, app.Train[0].Kind)
	require.Equal(t, opcode.Minus, app.Train[0].Prim)
}

func TestParseMonadicApplyWithFold(t *testing.T) {
	forms, err := sexpr.Parse("(+/| (!| 10))")
	require.NoError(t, err)
	app, ok := forms[0].(*ast.Apply)
	require.True(t, ok)
	require.Len(t, app.Args, 1)
	require.Equal(t, opcode.Plus, app.Train[0].Prim)
	require.Equal(t, opcode.Fold, app.Train[0].Comb)
}

func TestParseTrainWithOverride(t *testing.T) {
	forms, err := sexpr.Parse("(- OP: - | 5 2)")
	require.NoError(t, err)
	app, ok := forms[0].(*ast.Apply)
	require.True(t, ok)
	require.Len(t, app.Train, 2)
	require.Equal(t, ast.ElemPrimitive, app.Train[0].Kind)
	require.Equal(t, ast.ElemOverride, app.Train[1].Kind)
	require.Equal(t, opcode.Minus, app.Train[1].Prim)
}

func TestParseNameReferenceTrainElement(t *testing.T) {
	forms, err := sexpr.Parse("(inc| 5)")
	require.NoError(t, err)
	app, ok := forms[0].(*ast.Apply)
	require.True(t, ok)
	require.Equal(t, ast.ElemName, app.Train[0].Kind)
	require.Equal(t, "inc", app.Train[0].Name)
}

func TestParseLambda(t *testing.T) {
	forms, err := sexpr.Parse("(λ (w a) (+| w a))")
	require.NoError(t, err)
	lam, ok := forms[0].(*ast.Lambda)
	require.True(t, ok)
	require.Equal(t, []string{"w", "a"}, lam.Params)
	require.Len(t, lam.Body, 1)
}

func TestParseDoBlockAndAssign(t *testing.T) {
	forms, err := sexpr.Parse("(do (: x 5) x)")
	require.NoError(t, err)
	block, ok := forms[0].(*ast.DoBlock)
	require.True(t, ok)
	require.Len(t, block.Body, 2)

	assign, ok := block.Body[0].(*ast.Assign)
	require.True(t, ok)
	require.Equal(t, "x", assign.Name)

	ref, ok := block.Body[1].(*ast.NameRef)
	require.True(t, ok)
	require.Equal(t, "x", ref.Name)
}

func TestParseStringEscapes(t *testing.T) {
	forms, err := sexpr.Parse(`"a\nb\t\"c\""`)
	require.NoError(t, err)
	require.Equal(t, "a\nb\t\"c\"", forms[0].(*ast.StrLit).Val)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		desc string
		src  string
	}{
		{"unterminated string", `"abc`},
		{"unterminated list", "(1 2"},
		{"empty train", "(| 1)"},
		{"too many args", "(+| 1 2 3)"},
		{"lambda missing body", "(λ (w))"},
		{"override without primitive", "(OP: | 1 2)"},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			_, err := sexpr.Parse(c.src)
			require.Error(t, err)
		})
	}
}

func TestParseCommentsIgnored(t *testing.T) {
	forms, err := sexpr.Parse("1 # this is a comment\n2")
	require.NoError(t, err)
	require.Len(t, forms, 2)
}
