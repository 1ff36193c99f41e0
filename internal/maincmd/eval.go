package maincmd

import (
	"github.com/orderrrr/link/internal/sexpr"
	"github.com/orderrrr/link/lang/compiler"
	"github.com/orderrrr/link/lang/machine"
	"github.com/orderrrr/link/lang/value"
)

// session carries compile-time and runtime state across turns, exactly the
// split lang/compiler.Environment and lang/machine.Globals keep distinct:
// the former tracks names/constants seen so far, the latter the bindings a
// running VM actually produced.
type session struct {
	env     *compiler.Environment
	globals *machine.Globals
}

func newSession() *session {
	return &session{
		env:     compiler.NewEnvironment(),
		globals: machine.NewGlobals(),
	}
}

// evalTurn compiles and runs one chunk of source against the session. A
// compile error leaves the session exactly as it was before the call (no
// names or constants are interned into a failed compile's Environment, per
// §7's "compile errors abort before any Environment mutation"). A runtime
// error still advances env/globals to whatever the turn produced before the
// failing instruction: every STORE that executed runs against the *same*
// Globals instance the session already holds, so those bindings are live
// the moment they happen; adopting nextEnv here keeps the compiler's
// name->index table in step with them, so a later turn's reference to a
// name stored before the error resolves to the binding that's actually
// there instead of silently re-interning a fresh, unbound index for it.
func evalTurn(s *session, src string) (value.Value, error) {
	forms, err := sexpr.Parse(src)
	if err != nil {
		return nil, err
	}
	prog, nextEnv, err := compiler.Compile(s.env, forms)
	if err != nil {
		return nil, err
	}
	vm := machine.New(prog, s.globals)
	runErr := vm.Run()
	nextEnv.AdoptBindings(vm.Globals().Snapshot())
	s.env = nextEnv
	s.globals = vm.Globals()
	if runErr != nil {
		return nil, runErr
	}
	return vm.LastPopped(), nil
}
