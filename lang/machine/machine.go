// Package machine implements the stack virtual machine that runs a compiled
// compiler.Program: a value stack, a small tagged control stack for train
// frames, and the per-turn Globals a REPL carries from one compiled Program
// to the next. The instruction choreography (train duplication, the END
// frame-tag cleanup, combinator dispatch) follows this language's own fused
// MO/DO encoding (see lang/opcode).
package machine

import (
	"encoding/binary"

	"github.com/orderrrr/link/lang/compiler"
	"github.com/orderrrr/link/lang/langerr"
	"github.com/orderrrr/link/lang/opcode"
	"github.com/orderrrr/link/lang/value"
)

// DefaultMaxDepth bounds both the value stack and the control stack.
const DefaultMaxDepth = 512

// frameTag classifies an active control-stack entry by the instruction that
// opened it, driving END's cleanup behavior.
type frameTag uint8

const (
	frameJMP frameTag = iota
	frameDUP
	frameMBL
	frameDBL
)

type frame struct {
	ip  int
	tag frameTag

	// savedLeft/savedRight hold whatever GETL/GETR resolved to in the
	// enclosing context, restored when this frame's END runs so a nested
	// train never leaks its own w/a binding outward.
	savedLeft, savedRight value.Value
}

// VM executes one compiled Program.
type VM struct {
	code   []byte
	consts []value.Value
	names  []string

	globals *Globals

	stack []value.Value
	ctrl  []frame

	leftArg, rightArg value.Value

	maxDepth   int
	lastPopped value.Value
	ip         int
}

// New returns a VM ready to run prog against globals (the bindings carried
// forward from prior turns). Pass nil or machine.NewGlobals() for a run
// with no prior bindings.
func New(prog *compiler.Program, globals *Globals) *VM {
	if globals == nil {
		globals = NewGlobals()
	}
	return &VM{
		code:     prog.Code,
		consts:   prog.Constants,
		names:    prog.Names,
		globals:  globals,
		maxDepth: DefaultMaxDepth,
	}
}

// SetMaxDepth overrides the default stack depth bound.
func (vm *VM) SetMaxDepth(n int) { vm.maxDepth = n }

// Globals returns the VM's bindings table, mutated in place by STORE. The
// caller snapshots it after Run returns (whether or not it errored) to
// persist bindings into the next turn's Environment.
func (vm *VM) Globals() *Globals { return vm.globals }

// LastPopped returns the most recently popped value stack element or, once
// Run has completed with a non-empty stack, the element on top of it; for a
// well-formed top-level Program that is the turn's result.
func (vm *VM) LastPopped() value.Value { return vm.lastPopped }

// Run executes the Program from its first instruction to the end of its
// code. A returned error means the turn aborted partway through; bindings
// made by any STORE that already executed remain visible in vm.Globals().
func (vm *VM) Run() error {
	for vm.ip < len(vm.code) {
		op := opcode.Op(vm.code[vm.ip])
		vm.ip++
		if err := vm.step(op); err != nil {
			return err
		}
	}
	// A top-level DoBlock never POPs its last expression's value (only
	// non-last, non-Assign expressions are followed by a POP), so it is
	// still sitting on the value stack once the program runs out of code.
	// Surface it as the last-popped slot without removing it from the
	// stack: the stack still holds exactly the last expression's result,
	// and that result is also what the REPL reads back.
	if n := len(vm.stack); n > 0 {
		vm.lastPopped = vm.stack[n-1]
	}
	return nil
}

func (vm *VM) name(idx uint16) string {
	if int(idx) < len(vm.names) {
		return vm.names[idx]
	}
	return "?"
}

func (vm *VM) readU16() (uint16, error) {
	if vm.ip+2 > len(vm.code) {
		return 0, langerr.New(langerr.Compile, value.Span{}, "truncated instruction at %d", vm.ip)
	}
	v := binary.BigEndian.Uint16(vm.code[vm.ip:])
	vm.ip += 2
	return v, nil
}

func (vm *VM) push(v value.Value) error {
	if len(vm.stack) >= vm.maxDepth {
		return langerr.New(langerr.Stack, value.Span{}, "value stack overflow (max %d)", vm.maxDepth)
	}
	vm.stack = append(vm.stack, v)
	return nil
}

func (vm *VM) pop() (value.Value, error) {
	n := len(vm.stack)
	if n == 0 {
		return nil, langerr.New(langerr.Stack, value.Span{}, "value stack underflow")
	}
	v := vm.stack[n-1]
	vm.stack = vm.stack[:n-1]
	vm.lastPopped = v
	return v, nil
}

func (vm *VM) peek() (value.Value, error) {
	n := len(vm.stack)
	if n == 0 {
		return nil, langerr.New(langerr.Stack, value.Span{}, "value stack underflow")
	}
	return vm.stack[n-1], nil
}

func (vm *VM) peekBelow() (value.Value, error) {
	n := len(vm.stack)
	if n < 2 {
		return nil, langerr.New(langerr.Stack, value.Span{}, "value stack underflow")
	}
	return vm.stack[n-2], nil
}

func (vm *VM) dup() error {
	v, err := vm.peek()
	if err != nil {
		return err
	}
	return vm.push(v)
}

// ddup duplicates the element one below the current top onto the top; used
// twice in a row to turn "... L R" into "... L R L R".
func (vm *VM) ddup() error {
	v, err := vm.peekBelow()
	if err != nil {
		return err
	}
	return vm.push(v)
}

func (vm *VM) cpush(f frame) error {
	if len(vm.ctrl) >= vm.maxDepth {
		return langerr.New(langerr.Stack, value.Span{}, "control stack overflow (max %d)", vm.maxDepth)
	}
	vm.ctrl = append(vm.ctrl, f)
	return nil
}

func (vm *VM) cpop() (frame, error) {
	n := len(vm.ctrl)
	if n == 0 {
		return frame{}, langerr.New(langerr.Stack, value.Span{}, "control stack underflow")
	}
	f := vm.ctrl[n-1]
	vm.ctrl = vm.ctrl[:n-1]
	return f, nil
}

// cpeekTag returns the tag of the currently active frame, or frameJMP (a
// neutral tag, never confused with frameDBL) if no frame is open.
func (vm *VM) cpeekTag() frameTag {
	if len(vm.ctrl) == 0 {
		return frameJMP
	}
	return vm.ctrl[len(vm.ctrl)-1].tag
}

func (vm *VM) step(op opcode.Op) error {
	switch op {
	case opcode.CONST:
		idx, err := vm.readU16()
		if err != nil {
			return err
		}
		if int(idx) >= len(vm.consts) {
			return langerr.New(langerr.Compile, value.Span{}, "constant index %d out of range", idx)
		}
		return vm.push(vm.consts[idx])

	case opcode.POP:
		_, err := vm.pop()
		return err

	case opcode.JMP:
		addr, err := vm.readU16()
		if err != nil {
			return err
		}
		if err := vm.cpush(frame{ip: vm.ip, tag: frameJMP}); err != nil {
			return err
		}
		vm.ip = int(addr)
		return nil

	case opcode.GETL:
		if vm.leftArg == nil {
			return langerr.New(langerr.Compile, value.Span{}, "w referenced outside a dyadic train")
		}
		return vm.push(vm.leftArg)

	case opcode.GETR:
		if vm.rightArg == nil {
			return langerr.New(langerr.Compile, value.Span{}, "a referenced outside a train")
		}
		return vm.push(vm.rightArg)

	case opcode.DUP:
		addr, err := vm.readU16()
		if err != nil {
			return err
		}
		if vm.cpeekTag() == frameDBL {
			if err := vm.ddup(); err != nil {
				return err
			}
			if err := vm.ddup(); err != nil {
				return err
			}
		} else {
			if err := vm.dup(); err != nil {
				return err
			}
		}
		if err := vm.cpush(frame{ip: int(addr), tag: frameDUP}); err != nil {
			return err
		}
		return nil

	case opcode.MBL:
		addr, err := vm.readU16()
		if err != nil {
			return err
		}
		arg, err := vm.peek()
		if err != nil {
			return err
		}
		if err := vm.dup(); err != nil {
			return err
		}
		f := frame{ip: int(addr), tag: frameMBL, savedLeft: vm.leftArg, savedRight: vm.rightArg}
		vm.rightArg = arg
		return vm.cpush(f)

	case opcode.DBL:
		addr, err := vm.readU16()
		if err != nil {
			return err
		}
		rhs, err := vm.peekBelow() // pushed first: "a"
		if err != nil {
			return err
		}
		lhs, err := vm.peek() // pushed second, on top: "w"
		if err != nil {
			return err
		}
		if err := vm.ddup(); err != nil {
			return err
		}
		if err := vm.ddup(); err != nil {
			return err
		}
		f := frame{ip: int(addr), tag: frameDBL, savedLeft: vm.leftArg, savedRight: vm.rightArg}
		vm.leftArg, vm.rightArg = lhs, rhs
		return vm.cpush(f)

	case opcode.END:
		return vm.doEnd()

	case opcode.MO:
		return vm.doMO()

	case opcode.DO:
		return vm.doDO()

	case opcode.STORE:
		idx, err := vm.readU16()
		if err != nil {
			return err
		}
		v, err := vm.pop()
		if err != nil {
			return err
		}
		vm.globals.set(uint32(idx), v)
		return nil

	case opcode.LOAD:
		idx, err := vm.readU16()
		if err != nil {
			return err
		}
		v, ok := vm.globals.get(uint32(idx))
		if !ok {
			return langerr.New(langerr.Compile, value.Span{}, "undefined name %q", vm.name(idx))
		}
		return vm.push(v)

	case opcode.MCALL:
		return vm.doMCall()

	case opcode.DCALL:
		return vm.doDCall()

	default:
		return langerr.New(langerr.Compile, value.Span{}, "illegal opcode %s", op)
	}
}

// doEnd closes the currently active train frame: an MBL/DBL frame leaves one
// auxiliary duplicate slot (MBL) or two (DBL) beneath its result, which END
// discards; if the frame now exposed by that pop is itself a DBL frame (this
// train nests inside a dyadic train element), the just-computed result is
// reinserted above that enclosing frame's own duplicated right operand so
// the next train element upstream can still chain against it. With no such
// enclosing DBL frame the stale slot is discarded fully rather than left
// stranded beneath the result.
func (vm *VM) doEnd() error {
	f, err := vm.cpop()
	if err != nil {
		return err
	}
	vm.ip = f.ip
	vm.leftArg, vm.rightArg = f.savedLeft, f.savedRight

	switch f.tag {
	case frameDBL:
		if _, err := vm.pop(); err != nil { // discard one duplicate
			return err
		}
		res, err := vm.pop()
		if err != nil {
			return err
		}
		if _, err := vm.pop(); err != nil { // discard the other duplicate
			return err
		}
		if vm.cpeekTag() == frameDBL {
			// This train nests inside a dyadic train element: the
			// remaining slot is the enclosing frame's own right operand,
			// kept alive above our result so the next element upstream
			// can still chain against it.
			rhs, err := vm.pop()
			if err != nil {
				return err
			}
			if err := vm.push(res); err != nil {
				return err
			}
			return vm.push(rhs)
		}
		// No enclosing train frame: the remaining slot is a leftover
		// original operand with nothing left to chain against. Discard it
		// fully instead of leaving it stranded beneath the result.
		if _, err := vm.pop(); err != nil {
			return err
		}
		return vm.push(res)

	case frameMBL:
		res, err := vm.pop()
		if err != nil {
			return err
		}
		if _, err := vm.pop(); err != nil { // discard duplicate
			return err
		}
		if vm.cpeekTag() == frameDBL {
			rhs, err := vm.pop()
			if err != nil {
				return err
			}
			if err := vm.push(res); err != nil {
				return err
			}
			return vm.push(rhs)
		}
		return vm.push(res)

	default: // frameJMP, frameDUP: no stack cleanup beyond the ip restore
		return nil
	}
}

func (vm *VM) readPrimComb() (opcode.Primitive, opcode.Combinator, error) {
	if vm.ip+2 > len(vm.code) {
		return 0, 0, langerr.New(langerr.Compile, value.Span{}, "truncated MO/DO operand at %d", vm.ip)
	}
	prim := opcode.Primitive(vm.code[vm.ip])
	comb := opcode.Combinator(vm.code[vm.ip+1])
	vm.ip += 2
	return prim, comb, nil
}

func (vm *VM) doMO() error {
	prim, comb, err := vm.readPrimComb()
	if err != nil {
		return err
	}
	entry, err := lookupPrimitive(prim)
	if err != nil {
		return err
	}

	var stashed value.Value
	stash := vm.cpeekTag() == frameDBL
	if stash {
		if stashed, err = vm.pop(); err != nil {
			return err
		}
	}

	arg, err := vm.pop()
	if err != nil {
		return err
	}
	var res value.Value
	if comb == opcode.None {
		res, err = entry.monadic(arg)
	} else {
		res, err = applyMonadicCombinator(entry, comb, arg)
	}
	if err != nil {
		return err
	}
	if err := vm.push(res); err != nil {
		return err
	}
	if stash {
		return vm.push(stashed)
	}
	return nil
}

func (vm *VM) doDO() error {
	prim, comb, err := vm.readPrimComb()
	if err != nil {
		return err
	}
	entry, err := lookupPrimitive(prim)
	if err != nil {
		return err
	}

	lhs, err := vm.pop() // "w", top of stack
	if err != nil {
		return err
	}
	rhs, err := vm.pop() // "a"
	if err != nil {
		return err
	}
	var res value.Value
	if comb == opcode.None {
		res, err = entry.dyadic(lhs, rhs)
	} else {
		res, err = applyDyadicCombinator(entry, comb, lhs, rhs)
	}
	if err != nil {
		return err
	}
	if err := vm.push(res); err != nil {
		return err
	}
	return vm.dup()
}

func (vm *VM) resolveFn(idx uint16, wantArity int) (*value.UserFn, error) {
	v, ok := vm.globals.get(uint32(idx))
	if !ok {
		return nil, langerr.New(langerr.Compile, value.Span{}, "undefined function %q", vm.name(idx))
	}
	fn, ok := v.(*value.UserFn)
	if !ok {
		return nil, langerr.New(langerr.Type, value.Span{}, "%q is not a function", vm.name(idx))
	}
	if fn.Arity() != wantArity {
		return nil, langerr.New(langerr.Arity, value.Span{}, "%q takes %d argument(s), called with %d", vm.name(idx), fn.Arity(), wantArity)
	}
	return fn, nil
}

func (vm *VM) doMCall() error {
	idx, err := vm.readU16()
	if err != nil {
		return err
	}
	fn, err := vm.resolveFn(idx, 1)
	if err != nil {
		return err
	}

	var stashed value.Value
	stash := vm.cpeekTag() == frameDBL
	if stash {
		if stashed, err = vm.pop(); err != nil {
			return err
		}
	}

	arg, err := vm.pop()
	if err != nil {
		return err
	}
	res, err := vm.callUserFn(fn, arg)
	if err != nil {
		return err
	}
	if err := vm.push(res); err != nil {
		return err
	}
	if stash {
		return vm.push(stashed)
	}
	return nil
}

func (vm *VM) doDCall() error {
	idx, err := vm.readU16()
	if err != nil {
		return err
	}
	fn, err := vm.resolveFn(idx, 2)
	if err != nil {
		return err
	}
	lhs, err := vm.pop() // "w"
	if err != nil {
		return err
	}
	rhs, err := vm.pop() // "a"
	if err != nil {
		return err
	}
	res, err := vm.callUserFn(fn, lhs, rhs)
	if err != nil {
		return err
	}
	if err := vm.push(res); err != nil {
		return err
	}
	return vm.dup()
}

// callUserFn invokes fn in a fresh, isolated VM: its Globals start from
// exactly fn.Captured (no access to whatever else is bound in the caller's
// turn), and its args are pushed caller-first ("w" then "a") so the
// function body's reverse-order STORE sequence binds them to the right
// parameter names. Arguments are given most-significant (leftmost, "w")
// first to this helper; when there are two, the convention matches DCALL's
// own push order of lhs then rhs. A parameter spelled with a reserved
// argument name ("w" or "a") is also made the inner VM's left or right
// argument, since the compiler turns a reference to either name into
// GETL/GETR rather than LOAD.
func (vm *VM) callUserFn(fn *value.UserFn, args ...value.Value) (value.Value, error) {
	inner := &VM{
		code:     fn.Code,
		consts:   fn.Constants,
		names:    vm.names,
		globals:  NewGlobalsFromMap(fn.Captured),
		maxDepth: vm.maxDepth,
	}
	for i, p := range fn.Params {
		if i >= len(args) {
			break
		}
		switch p {
		case compiler.ReservedLeft:
			inner.leftArg = args[i]
		case compiler.ReservedRight:
			inner.rightArg = args[i]
		}
	}
	for _, a := range args {
		if err := inner.push(a); err != nil {
			return nil, err
		}
	}
	if err := inner.Run(); err != nil {
		if lerr, ok := err.(*langerr.Error); ok {
			return nil, langerr.New(lerr.Kind, lerr.Span, "in user function %s: %s", fnLabel(fn), lerr.Msg)
		}
		return nil, err
	}
	return inner.pop()
}

func fnLabel(fn *value.UserFn) string {
	if fn.Name != "" {
		return fn.Name
	}
	return "anonymous"
}
