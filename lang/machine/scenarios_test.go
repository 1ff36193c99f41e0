package machine_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orderrrr/link/internal/sexpr"
	"github.com/orderrrr/link/lang/compiler"
	"github.com/orderrrr/link/lang/machine"
	"github.com/orderrrr/link/lang/value"
)

// run compiles and executes src against a fresh environment, returning the
// last popped value stack slot.
func run(t *testing.T, src string) value.Value {
	t.Helper()
	forms, err := sexpr.Parse(src)
	require.NoError(t, err)
	prog, _, err := compiler.Compile(compiler.NewEnvironment(), forms)
	require.NoError(t, err)
	vm := machine.New(prog, nil)
	require.NoError(t, vm.Run())
	return vm.LastPopped()
}

// TestEndToEndScenarios covers one small representative program per
// language feature: negation, addition, range generation, fold, a literal
// list, do-block sequencing, assignment, and dyadic reshape.
func TestEndToEndScenarios(t *testing.T) {
	t.Run("negate", func(t *testing.T) {
		require.Equal(t, value.Int(-2), run(t, "(-| 2)"))
	})
	t.Run("plus", func(t *testing.T) {
		require.Equal(t, value.Int(4), run(t, "(+| 2 2)"))
	})
	t.Run("range", func(t *testing.T) {
		got := run(t, "(!| 4)")
		lst, ok := got.(*value.List)
		require.True(t, ok)
		require.Equal(t, []int{4}, lst.Shape)
		require.Equal(t, []value.Value{value.Int(0), value.Int(1), value.Int(2), value.Int(3)}, lst.Elems)
	})
	t.Run("fold plus over range", func(t *testing.T) {
		require.Equal(t, value.Int(45), run(t, "(+/| (!| 10))"))
	})
	t.Run("literal list", func(t *testing.T) {
		got := run(t, "(1 2 3)")
		lst, ok := got.(*value.List)
		require.True(t, ok)
		require.Equal(t, []value.Value{value.Int(1), value.Int(2), value.Int(3)}, lst.Elems)
	})
	t.Run("sequencing via do block", func(t *testing.T) {
		require.Equal(t, value.Int(7), run(t, "(do (+| 1 2) (+| 3 4))"))
	})
	t.Run("assign then reference", func(t *testing.T) {
		require.Equal(t, value.Int(5), run(t, "(do (: x 5) x)"))
	})
	t.Run("dyadic reshape", func(t *testing.T) {
		// shape (3,2) reshapes range-6 into a 2-row, 3-column nested
		// list [[0,1,2],[3,4,5]]: dimensions are given cols-then-rows
		// but nested rows-then-cols, outermost last.
		got := run(t, "(ρ| (3 2) (!| 6))")
		lst, ok := got.(*value.List)
		require.True(t, ok)
		require.Equal(t, []int{2}, lst.Shape)
		require.Len(t, lst.Elems, 2)

		row0, ok := lst.Elems[0].(*value.List)
		require.True(t, ok)
		require.Equal(t, []value.Value{value.Int(0), value.Int(1), value.Int(2)}, row0.Elems)

		row1, ok := lst.Elems[1].(*value.List)
		require.True(t, ok)
		require.Equal(t, []value.Value{value.Int(3), value.Int(4), value.Int(5)}, row1.Elems)
	})
}

// TestDyadicTrainHookRule exercises the dyadic train rule: every
// train element but the leftmost applies monadically to the running right
// operand before the leftmost element combines the left operand with that
// chain dyadically. "(- -| 5 2)" negates 2 to -2, then computes 5 - (-2).
func TestDyadicTrainHookRule(t *testing.T) {
	require.Equal(t, value.Int(7), run(t, "(- -| 5 2)"))
}

func TestFoldOverEmptyListIsError(t *testing.T) {
	forms, err := sexpr.Parse("(+/| ())")
	require.NoError(t, err)
	prog, _, err := compiler.Compile(compiler.NewEnvironment(), forms)
	require.NoError(t, err)
	vm := machine.New(prog, nil)
	require.Error(t, vm.Run())
}

func TestDivisionByZeroIsArithmeticError(t *testing.T) {
	// ÷'s left ("w") operand is the divisor, matching the grounding
	// source's do_mathdiv/do_mathmod convention (w is the value checked for
	// zero; the result is the right operand divided by it).
	forms, err := sexpr.Parse("(÷| 0 1)")
	require.NoError(t, err)
	prog, _, err := compiler.Compile(compiler.NewEnvironment(), forms)
	require.NoError(t, err)
	vm := machine.New(prog, nil)
	err = vm.Run()
	require.Error(t, err)
}

// TestUserFunctionClosureSnapshot exercises closure-over-values across three
// separate REPL turns, since Environment only folds a turn's bindings into
// Bound once that turn completes: a Lambda compiled and called within the
// same turn would never observe a prior turn's Bound values in the first
// place.
func TestUserFunctionClosureSnapshot(t *testing.T) {
	env := compiler.NewEnvironment()
	globals := machine.NewGlobals()

	turn := func(src string) value.Value {
		t.Helper()
		forms, err := sexpr.Parse(src)
		require.NoError(t, err)
		prog, nextEnv, err := compiler.Compile(env, forms)
		require.NoError(t, err)
		vm := machine.New(prog, globals)
		require.NoError(t, vm.Run())
		nextEnv.AdoptBindings(vm.Globals().Snapshot())
		env = nextEnv
		globals = vm.Globals()
		return vm.LastPopped()
	}

	turn("(: x 1)")
	turn("(: f (λ (w) (+| w x)))")
	turn("(: x 100)")
	require.Equal(t, value.Int(6), turn("(f| 5)"))
}
