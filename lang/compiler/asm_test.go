package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orderrrr/link/lang/compiler"
	"github.com/orderrrr/link/lang/machine"
	"github.com/orderrrr/link/lang/opcode"
	"github.com/orderrrr/link/lang/value"
)

func TestAssembleAndRun(t *testing.T) {
	prog, err := compiler.Assemble(`
		const 2
		mbl done
		mo -
		end
		done:
	`)
	require.NoError(t, err)
	vm := machine.New(prog, nil)
	require.NoError(t, vm.Run())
	require.Equal(t, value.Int(-2), vm.LastPopped())
}

func TestAssembleFoldCombinator(t *testing.T) {
	prog, err := compiler.Assemble(`
		const [1 2 3 4 5 6 7 8 9 10]
		mbl done
		mo + fold
		end
		done:
	`)
	require.NoError(t, err)
	vm := machine.New(prog, nil)
	require.NoError(t, vm.Run())
	require.Equal(t, value.Int(55), vm.LastPopped())
}

func TestAssembleErrors(t *testing.T) {
	cases := []struct {
		desc string
		src  string
		err  string
	}{
		{"unknown instruction", "frobnicate", `unknown instruction "frobnicate"`},
		{"empty label", "   :", "empty label"},
		{"jmp without label", "jmp", "expects a label operand"},
		{"undefined label", "jmp nowhere", `undefined label "nowhere"`},
		{"mo without primitive", "mo", "expects a primitive and optional combinator"},
		{"mo unknown primitive", "mo bogus", `unknown primitive "bogus"`},
		{"mo unknown combinator", "mo + bogus", `unknown combinator "bogus"`},
		{"store without name", "store", "expects a name operand"},
		{"const invalid literal", "const @@@", "invalid literal"},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			_, err := compiler.Assemble(c.src)
			require.ErrorContains(t, err, c.err)
		})
	}
}

func TestDisassembleRendersNamesAndConstants(t *testing.T) {
	prog, err := compiler.Assemble(`
		const 41
		store x
		load x
	`)
	require.NoError(t, err)
	out := compiler.Disassemble(prog)
	require.Contains(t, out, "const")
	require.Contains(t, out, "41")
	require.Contains(t, out, "store")
	require.Contains(t, out, "x")
	require.Contains(t, out, "load")
}

func TestAssembleStringAndBoolLiterals(t *testing.T) {
	prog, err := compiler.Assemble(`const "hi\n"`)
	require.NoError(t, err)
	require.Len(t, prog.Constants, 1)
	require.Equal(t, value.Str("hi\n"), prog.Constants[0])

	prog, err = compiler.Assemble(`const true`)
	require.NoError(t, err)
	require.Equal(t, value.Bool(true), prog.Constants[0])
}

func TestEnvironmentCloneIsolatesMutation(t *testing.T) {
	env := compiler.NewEnvironment()
	idx := env.Intern("x")
	env.AddConstant(value.Int(1))
	env.Bind(idx, value.Int(1))

	clone := env.Clone()
	clone.Intern("y")
	clone.AddConstant(value.Int(2))
	clone.Bind(idx, value.Int(999))

	require.Len(t, env.Names, 1)
	require.Len(t, env.Constants, 1)
	v, ok := env.BoundValue(idx)
	require.True(t, ok)
	require.Equal(t, value.Int(1), v)

	require.Len(t, clone.Names, 2)
	require.Len(t, clone.Constants, 2)
	cv, ok := clone.BoundValue(idx)
	require.True(t, ok)
	require.Equal(t, value.Int(999), cv)
}

func TestEnvironmentInternIsIdempotent(t *testing.T) {
	env := compiler.NewEnvironment()
	a := env.Intern("same")
	b := env.Intern("same")
	require.Equal(t, a, b)
	require.Len(t, env.Names, 1)

	idx, ok := env.Lookup("same")
	require.True(t, ok)
	require.Equal(t, a, idx)

	_, ok = env.Lookup("missing")
	require.False(t, ok)
}

// sanity check that opcode ids referenced by the assembler's combinator
// grammar match the ones the machine package actually dispatches on.
func TestCombinatorIDsMatchTable(t *testing.T) {
	c, ok := opcode.LookupCombinator("fold")
	require.True(t, ok)
	require.Equal(t, opcode.Fold, c)
}
