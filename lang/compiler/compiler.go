// Package compiler turns the fixed AST into bytecode for the stack machine,
// and provides a textual assembler/disassembler pair for driving the
// machine directly in tests.
package compiler

import (
	"encoding/binary"

	"github.com/orderrrr/link/lang/ast"
	"github.com/orderrrr/link/lang/langerr"
	"github.com/orderrrr/link/lang/opcode"
	"github.com/orderrrr/link/lang/value"
)

// Program is a compiled, ready-to-run unit: one linear instruction stream
// plus the constant and name pools it indexes into. A Program compiled for
// one REPL turn embeds the names and constants of the Environment as of the
// end of that compile; the values bound to those names live outside the
// Program, in the machine's Globals.
type Program struct {
	Code      []byte
	Constants []value.Value
	Names     []string
}

// Reserved names used for train/function argument access. A bare reference
// to one of these two names is special-cased to emit GETL/GETR directly
// instead of falling through to the ordinary CONST/LOAD name-resolution
// path; every other name still resolves through that path.
const (
	ReservedLeft  = "w"
	ReservedRight = "a"
)

type compilerState struct {
	env  *Environment
	code []byte
}

func (c *compilerState) emit(op opcode.Op) {
	c.code = append(c.code, byte(op))
}

func (c *compilerState) emitU16(op opcode.Op, arg uint16) {
	c.code = append(c.code, byte(op), 0, 0)
	binary.BigEndian.PutUint16(c.code[len(c.code)-2:], arg)
}

// emitPlaceholderU16 reserves space for a forward-patched address and
// returns the offset of the two placeholder bytes.
func (c *compilerState) emitPlaceholderU16(op opcode.Op) int {
	c.code = append(c.code, byte(op), 0, 0)
	return len(c.code) - 2
}

func (c *compilerState) patchU16(at int, arg uint16) {
	binary.BigEndian.PutUint16(c.code[at:], arg)
}

func (c *compilerState) emitMODO(op opcode.Op, prim opcode.Primitive, comb opcode.Combinator) {
	c.code = append(c.code, byte(op), byte(prim), byte(comb))
}

// Compile compiles a turn's sequence of top-level forms as a single
// DoBlock, seeded by env (read-only; env itself is never mutated — compile
// errors must never be observable as a partial Environment update). On
// success it returns the compiled Program together with the grown
// Environment the caller should persist for the next turn.
func Compile(env *Environment, forms []ast.Node) (*Program, *Environment, error) {
	work := env.Clone()
	c := &compilerState{env: work}
	if err := c.doBlock(forms); err != nil {
		return nil, nil, err
	}
	prog := &Program{
		Code:      c.code,
		Constants: append([]value.Value(nil), work.Constants...),
		Names:     append([]string(nil), work.Names...),
	}
	return prog, work, nil
}

func (c *compilerState) doBlock(body []ast.Node) error {
	for i, n := range body {
		if err := c.expr(n); err != nil {
			return err
		}
		last := i == len(body)-1
		if !last {
			if _, isAssign := n.(*ast.Assign); !isAssign {
				c.emit(opcode.POP)
			}
		}
	}
	if len(body) == 0 {
		return langerr.New(langerr.Compile, value.Span{}, "empty program")
	}
	return nil
}

func (c *compilerState) expr(n ast.Node) error {
	switch n := n.(type) {
	case *ast.IntLit:
		c.emitU16(opcode.CONST, c.constIdx(value.Int(n.Val)))
		return nil
	case *ast.FloatLit:
		c.emitU16(opcode.CONST, c.constIdx(value.Float(n.Val)))
		return nil
	case *ast.BoolLit:
		c.emitU16(opcode.CONST, c.constIdx(value.Bool(n.Val)))
		return nil
	case *ast.StrLit:
		c.emitU16(opcode.CONST, c.constIdx(value.Str(n.Val)))
		return nil
	case *ast.ListLit:
		lst, err := literalList(n)
		if err != nil {
			return err
		}
		c.emitU16(opcode.CONST, c.constIdx(lst))
		return nil
	case *ast.NameRef:
		return c.nameRef(n)
	case *ast.Assign:
		if err := c.expr(n.Rhs); err != nil {
			return err
		}
		idx := c.env.Intern(n.Name)
		c.emitU16(opcode.STORE, uint16(idx))
		return nil
	case *ast.DoBlock:
		return c.doBlock(n.Body)
	case *ast.Lambda:
		return c.lambda(n)
	case *ast.Apply:
		return c.apply(n)
	default:
		return langerr.New(langerr.Compile, n.Span(), "unsupported expression %T", n)
	}
}

func (c *compilerState) constIdx(v value.Value) uint16 {
	return uint16(c.env.AddConstant(v))
}

func (c *compilerState) nameRef(n *ast.NameRef) error {
	switch n.Name {
	case ReservedLeft:
		c.emit(opcode.GETL)
		return nil
	case ReservedRight:
		c.emit(opcode.GETR)
		return nil
	default:
		idx := c.env.Intern(n.Name)
		c.emitU16(opcode.LOAD, uint16(idx))
		return nil
	}
}

func literalList(n *ast.ListLit) (*value.List, error) {
	elems := make([]value.Value, len(n.Elems))
	for i, e := range n.Elems {
		v, err := literalValue(e)
		if err != nil {
			return nil, err
		}
		elems[i] = v
	}
	return &value.List{Shape: []int{len(elems)}, Elems: elems}, nil
}

func literalValue(n ast.Node) (value.Value, error) {
	switch n := n.(type) {
	case *ast.IntLit:
		return value.Int(n.Val), nil
	case *ast.FloatLit:
		return value.Float(n.Val), nil
	case *ast.BoolLit:
		return value.Bool(n.Val), nil
	case *ast.StrLit:
		return value.Str(n.Val), nil
	case *ast.ListLit:
		return literalList(n)
	default:
		return nil, langerr.New(langerr.Compile, n.Span(), "list literals may only contain literal elements, not %T", n)
	}
}

// lambda compiles a function literal into a constant UserFn value: its own
// isolated bytecode body and constant pool, snapshotted at definition time
// so a later rebinding of a name the body references never changes what
// this function sees.
func (c *compilerState) lambda(n *ast.Lambda) error {
	if len(n.Params) != 1 && len(n.Params) != 2 {
		return langerr.New(langerr.Compile, n.Span(), "function must take 1 or 2 parameters, got %d", len(n.Params))
	}
	body := &compilerState{env: c.env}
	// Params are pushed onto the stack by the caller (DCALL: w first, then
	// a, so a is on top; MCALL: the single arg). Bind them by emitting STORE for
	// each parameter in reverse order, so the first STORE executed pops the
	// top-of-stack value into the last-declared parameter name.
	for i := len(n.Params) - 1; i >= 0; i-- {
		idx := body.env.Intern(n.Params[i])
		body.emitU16(opcode.STORE, uint16(idx))
	}
	if err := body.doBlock(n.Body); err != nil {
		return err
	}
	captured := make(map[uint32]value.Value, len(c.env.Bound))
	for idx, v := range c.env.Bound {
		captured[idx] = v
	}
	fn := &value.UserFn{
		Name:      n.Name,
		Params:    append([]string(nil), n.Params...),
		Code:      body.code,
		Constants: append([]value.Value(nil), c.env.Constants...),
		Captured:  captured,
	}
	c.emitU16(opcode.CONST, c.constIdx(fn))
	return nil
}

// apply compiles a train application. Args holds the expressions for the
// train's operand(s), evaluated before the train runs.
func (c *compilerState) apply(n *ast.Apply) error {
	switch len(n.Args) {
	case 1:
		return c.applyMonadic(n)
	case 2:
		return c.applyDyadic(n)
	default:
		return langerr.New(langerr.Arity, n.Span(), "a train takes 1 or 2 arguments, got %d", len(n.Args))
	}
}

func (c *compilerState) applyMonadic(n *ast.Apply) error {
	if len(n.Train) == 0 {
		return langerr.New(langerr.Compile, n.Span(), "empty train")
	}
	if err := c.expr(n.Args[0]); err != nil {
		return err
	}
	endAt := c.emitPlaceholderU16(opcode.MBL)
	for i := len(n.Train) - 1; i >= 0; i-- {
		elem := n.Train[i]
		switch elem.Kind {
		case ast.ElemPrimitive:
			c.emitMODO(opcode.MO, elem.Prim, elem.Comb)
		case ast.ElemName:
			idx := c.env.Intern(elem.Name)
			c.emitU16(opcode.MCALL, uint16(idx))
		default:
			return langerr.New(langerr.Compile, elem.Sp, "OP: override is only valid in a dyadic train")
		}
	}
	c.emit(opcode.END)
	c.patchU16(endAt, uint16(len(c.code)))
	return nil
}

func (c *compilerState) applyDyadic(n *ast.Apply) error {
	if len(n.Train) == 0 {
		return langerr.New(langerr.Compile, n.Span(), "empty train")
	}
	// Compile the right arg ("a") first, then the left arg ("w"): the
	// right arg ends up beneath the left on the stack, which is what
	// DBL/DO expect to find when they peek the top two slots.
	if err := c.expr(n.Args[1]); err != nil { // a (right)
		return err
	}
	if err := c.expr(n.Args[0]); err != nil { // w (left)
		return err
	}
	endAt := c.emitPlaceholderU16(opcode.DBL)
	for i := len(n.Train) - 1; i >= 0; i-- {
		elem := n.Train[i]
		// The train's leftmost element is dyadic (it combines with the
		// running chain result); every other element, including the
		// rightmost, applies monadically.
		leftmost := i == 0
		switch elem.Kind {
		case ast.ElemPrimitive:
			if leftmost {
				c.emitMODO(opcode.DO, elem.Prim, elem.Comb)
			} else {
				c.emitMODO(opcode.MO, elem.Prim, elem.Comb)
			}
		case ast.ElemOverride:
			// OP: always compiles to a monadic application, regardless of
			// this element's position in the train.
			c.emitMODO(opcode.MO, elem.Prim, elem.Comb)
		case ast.ElemName:
			idx := c.env.Intern(elem.Name)
			if leftmost {
				c.emitU16(opcode.DCALL, uint16(idx))
			} else {
				c.emitU16(opcode.MCALL, uint16(idx))
			}
		}
	}
	c.emit(opcode.END)
	c.patchU16(endAt, uint16(len(c.code)))
	return nil
}
