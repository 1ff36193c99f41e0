package compiler

import (
	"github.com/dolthub/swiss"

	"github.com/orderrrr/link/lang/value"
)

// Environment is the compile-time symbol table and constant pool carried
// across REPL turns: a fresh compiler is seeded from the previous turn's
// Environment so names bound in earlier turns resolve to the same index,
// and is replaced by the Environment that compile produced, with the
// machine's post-run bindings adopted into it, once a turn finishes
// (successfully or partially), per the Environment-carry contract.
//
// The name index is backed by a swiss-table map, an open-addressed hash
// map, applied here to the one hash-map-shaped concern this language
// actually has: a string-keyed index.
type Environment struct {
	Names     []string
	Constants []value.Value

	// Bound is the runtime value bound to each name index as of the end of
	// the last completed REPL turn. It is the one piece of runtime state the
	// otherwise compile-only Environment carries, because a Lambda compiled
	// mid-turn needs to snapshot it into the UserFn's Captured map (see
	// value.UserFn.Captured) before the turn that defines it has even
	// finished running.
	Bound map[uint32]value.Value

	index *swiss.Map[string, uint32]
}

// NewEnvironment returns an empty Environment.
func NewEnvironment() *Environment {
	return &Environment{
		Bound: make(map[uint32]value.Value),
		index: swiss.NewMap[string, uint32](16),
	}
}

// Clone returns a deep-enough copy of e that appending to the clone's Names
// or Constants never mutates e. Used to compile a turn against a snapshot
// without committing partial additions to the persisted Environment if
// compilation fails outright (a Compile-kind error aborts before any
// Environment mutation is observed by the caller).
func (e *Environment) Clone() *Environment {
	c := &Environment{
		Names:     append([]string(nil), e.Names...),
		Constants: append([]value.Value(nil), e.Constants...),
		Bound:     make(map[uint32]value.Value, len(e.Bound)),
		index:     swiss.NewMap[string, uint32](uint32(len(e.Names)) + 16),
	}
	for k, v := range e.Bound {
		c.Bound[k] = v
	}
	e.index.Iter(func(k string, v uint32) bool {
		c.index.Put(k, v)
		return false
	})
	return c
}

// Bind records idx as bound to v as of the current turn, so a Lambda
// compiled in a later turn captures it and the next turn's Globals can be
// seeded with it.
func (e *Environment) Bind(idx uint32, v value.Value) {
	e.Bound[idx] = v
}

// AdoptBindings replaces Bound wholesale with snapshot, the caller's
// post-Run machine.Globals snapshot. Called once per completed turn so the
// next turn's Lambdas capture this turn's STOREs; never called mid-turn,
// which is what keeps a Lambda compiled and invoked in the same turn from
// seeing bindings that turn hasn't actually committed yet.
func (e *Environment) AdoptBindings(snapshot map[uint32]value.Value) {
	e.Bound = make(map[uint32]value.Value, len(snapshot))
	for idx, v := range snapshot {
		e.Bound[idx] = v
	}
}

// BoundValue returns the value bound to idx as of the last completed turn,
// if any.
func (e *Environment) BoundValue(idx uint32) (value.Value, bool) {
	v, ok := e.Bound[idx]
	return v, ok
}

// Intern returns the index for name, assigning it a fresh one if this is
// the first time it is seen.
func (e *Environment) Intern(name string) uint32 {
	if idx, ok := e.index.Get(name); ok {
		return idx
	}
	idx := uint32(len(e.Names))
	e.Names = append(e.Names, name)
	e.index.Put(name, idx)
	return idx
}

// Lookup returns the index assigned to name, if any.
func (e *Environment) Lookup(name string) (uint32, bool) {
	return e.index.Get(name)
}

// AddConstant appends v to the constant pool and returns its index.
func (e *Environment) AddConstant(v value.Value) uint32 {
	idx := uint32(len(e.Constants))
	e.Constants = append(e.Constants, v)
	return idx
}
