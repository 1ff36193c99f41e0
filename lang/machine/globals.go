package machine

import "github.com/orderrrr/link/lang/value"

// Globals is the runtime half of the REPL-persisted Environment: the
// values actually bound to each name index by STORE, carried forward
// alongside the compiler's Environment (which tracks the name->index
// assignment and keeps in Bound a copy of these values as of the last
// finished turn).
type Globals struct {
	byIndex map[uint32]value.Value
}

// NewGlobals returns an empty Globals.
func NewGlobals() *Globals {
	return &Globals{byIndex: make(map[uint32]value.Value)}
}

// NewGlobalsFromMap seeds a Globals from a snapshot of name-index to value
// bindings, such as an Environment's Bound map or a UserFn's Captured map.
// The map is copied; mutating the returned Globals never mutates m.
func NewGlobalsFromMap(m map[uint32]value.Value) *Globals {
	g := &Globals{byIndex: make(map[uint32]value.Value, len(m))}
	for k, v := range m {
		g.byIndex[k] = v
	}
	return g
}

// Snapshot returns a copy of every binding currently held, safe for the
// caller to persist into an Environment's Bound map across turns.
func (g *Globals) Snapshot() map[uint32]value.Value {
	out := make(map[uint32]value.Value, len(g.byIndex))
	for k, v := range g.byIndex {
		out[k] = v
	}
	return out
}

// Clone returns a shallow copy safe to mutate independently of g.
func (g *Globals) Clone() *Globals {
	c := &Globals{byIndex: make(map[uint32]value.Value, len(g.byIndex))}
	for k, v := range g.byIndex {
		c.byIndex[k] = v
	}
	return c
}

func (g *Globals) get(idx uint32) (value.Value, bool) {
	v, ok := g.byIndex[idx]
	return v, ok
}

func (g *Globals) set(idx uint32, v value.Value) {
	g.byIndex[idx] = v
}
