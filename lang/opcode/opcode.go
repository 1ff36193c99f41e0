// Package opcode defines the fixed single-byte instruction set the compiler
// emits and the virtual machine executes, plus the primitive and combinator
// id tables referenced by the MO/DO instructions.
package opcode

import "fmt"

// Op is a single instruction byte.
type Op uint8

// The instruction set is fixed: no opcode is ever added or removed at
// runtime, and every opcode below has a stable byte value across this
// repository's lifetime. This VM never persists bytecode across builds,
// so there is no version tag on compiled programs to manage.
const (
	CONST Op = 1 // <u16 const-index>       -> value
	POP   Op = 2 //                value    ->
	JMP   Op = 3 // <u16 addr>              ->        unconditional: skips a lambda's body at definition time
	GETL  Op = 4 //                         -> value  (reserved name "w")
	GETR  Op = 5 //                         -> value  (reserved name "a")

	DUP Op = 8 //                  x        -> x x
	MBL Op = 9 // <u16 end-addr>   x        -> x x    opens a monadic train frame
	DBL Op = 10 // <u16 end-addr>  x y      -> x y x y opens a dyadic train frame
	END Op = 11 //                 ...       -> value  closes the active train frame

	MO Op = 12 // <op_id> <co_id>   x       -> value  apply primitive monadically
	DO Op = 13 // <op_id> <co_id>  x y      -> value  apply primitive dyadically
	CO Op = 14 // combinator id, never emitted as a free-standing instruction;
	// retained only as a named id (String/Lookup); the assembler rejects it.

	STORE Op = 15 // <u16 name-index>  value ->        pops the value and binds it to the name
	LOAD  Op = 16 // <u16 name-index>        -> value
	MCALL Op = 17 // <u16 name-index>  x     -> value  invoke a 1-arg user function
	DCALL Op = 18 // <u16 name-index>  x y   -> value  invoke a 2-arg user function

	// OpArgMin is the first opcode whose u16 operand is a code address.
	OpArgMin = JMP
)

var names = map[Op]string{
	CONST: "const",
	POP:   "pop",
	JMP:   "jmp",
	GETL:  "getl",
	GETR:  "getr",
	DUP:   "dup",
	MBL:   "mbl",
	DBL:   "dbl",
	END:   "end",
	MO:    "mo",
	DO:    "do",
	CO:    "co",
	STORE: "store",
	LOAD:  "load",
	MCALL: "mcall",
	DCALL: "dcall",
}

var reverse = func() map[string]Op {
	m := make(map[string]Op, len(names))
	for op, s := range names {
		m[s] = op
	}
	return m
}()

func (op Op) String() string {
	if s, ok := names[op]; ok {
		return s
	}
	return fmt.Sprintf("illegal op (%d)", op)
}

// Lookup returns the Op named by s (case-sensitive, lowercase), used by the
// textual assembler.
func Lookup(s string) (Op, bool) {
	op, ok := reverse[s]
	return op, ok
}

// HasU16Arg reports whether op is encoded with a trailing big-endian u16
// operand (CONST/JMP/MBL/DBL/DUP/STORE/LOAD/MCALL/DCALL).
func HasU16Arg(op Op) bool {
	switch op {
	case CONST, JMP, MBL, DBL, DUP, STORE, LOAD, MCALL, DCALL:
		return true
	default:
		return false
	}
}

// HasOpID reports whether op is followed by a one-byte primitive id and a
// one-byte combinator id (MO/DO); the combinator byte is None when the
// primitive is uncombined.
func HasOpID(op Op) bool {
	return op == MO || op == DO
}

// Primitive identifies one of the fixed built-in primitive functions. A
// primitive id is never executed on its own; it is always the operand byte
// of an MO or DO instruction.
type Primitive uint8

const (
	Plus  Primitive = 1
	Minus Primitive = 2
	Max   Primitive = 3
	Min   Primitive = 4
	Eq    Primitive = 5
	Amp   Primitive = 6
	Bang  Primitive = 7
	Mult  Primitive = 8
	Div   Primitive = 9
	Rho   Primitive = 10
)

var primitiveNames = map[Primitive]string{
	Plus:  "+",
	Minus: "-",
	Max:   "max",
	Min:   "min",
	Eq:    "=",
	Amp:   "&",
	Bang:  "!",
	Mult:  "*",
	Div:   "/",
	Rho:   "rho",
}

func (p Primitive) String() string {
	if s, ok := primitiveNames[p]; ok {
		return s
	}
	return fmt.Sprintf("illegal primitive (%d)", p)
}

var reversePrimitive = func() map[string]Primitive {
	m := make(map[string]Primitive, len(primitiveNames))
	for p, s := range primitiveNames {
		m[s] = p
	}
	return m
}()

// LookupPrimitive returns the Primitive named by its textual symbol (e.g.
// "+", "max", "rho"), used by the textual assembler.
func LookupPrimitive(s string) (Primitive, bool) {
	p, ok := reversePrimitive[s]
	return p, ok
}

// Combinator identifies a combinator id, always the byte immediately
// following a primitive's op_id inside an MO/DO instruction's operand span.
type Combinator uint8

const (
	None   Combinator = 0
	Fold   Combinator = 1
	ScanL  Combinator = 2
	Each   Combinator = 3
)

var combinatorNames = map[Combinator]string{
	None:  "none",
	Fold:  "fold",
	ScanL: "scanl",
	Each:  "each",
}

func (c Combinator) String() string {
	if s, ok := combinatorNames[c]; ok {
		return s
	}
	return fmt.Sprintf("illegal combinator (%d)", c)
}

var reverseCombinator = func() map[string]Combinator {
	m := make(map[string]Combinator, len(combinatorNames))
	for c, s := range combinatorNames {
		m[s] = c
	}
	return m
}()

// LookupCombinator returns the Combinator named by its textual symbol
// ("fold", "scanl", "each"), used by the textual assembler. "none" is
// deliberately not resolvable here: the absence of a
// combinator is a syntactic fact (no token present), not a named one.
func LookupCombinator(s string) (Combinator, bool) {
	if s == "none" {
		return 0, false
	}
	c, ok := reverseCombinator[s]
	return c, ok
}
