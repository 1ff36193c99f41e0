package compiler

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/orderrrr/link/lang/opcode"
	"github.com/orderrrr/link/lang/value"
)

// Assemble reads a textual bytecode listing and produces a Program, letting
// tests drive the machine directly without going through the reader and
// compiler. One instruction per line; blank lines and "; comment" lines are
// ignored. A line ending in ":" defines a label at the current code offset,
// resolved for any earlier or later MBL/DBL/DUP/JMP operand naming it.
//
// Instruction syntax:
//
//	const <literal>          ; int | float | true/false | "string" | [lit...]
//	pop
//	jmp <label>
//	getl
//	getr
//	dup <label>
//	mbl <label>
//	dbl <label>
//	end
//	mo <primitive> [<combinator>]
//	do <primitive> [<combinator>]
//	store <name>
//	load <name>
//	mcall <name>
//	dcall <name>
//
// <primitive> is one of the symbols in opcode's primitive table (+ - max
// min = & ! * / rho); <combinator> is one of fold/scanl/each.
func Assemble(src string) (*Program, error) {
	env := NewEnvironment()
	lines, err := splitLines(src)
	if err != nil {
		return nil, err
	}

	labels := map[string]uint16{}
	var code []byte

	type pending struct {
		at  int // offset of the placeholder u16 in code
		lbl string
	}
	var fixups []pending

	for _, ln := range lines {
		if lbl, ok := strings.CutSuffix(ln.text, ":"); ok {
			name := strings.TrimSpace(lbl)
			if name == "" {
				return nil, asmErr(ln.no, "empty label")
			}
			labels[name] = uint16(len(code))
			continue
		}
		fields := strings.Fields(ln.text)
		mnem := fields[0]
		op, ok := opcode.Lookup(mnem)
		if !ok {
			return nil, asmErr(ln.no, "unknown instruction %q", mnem)
		}
		switch op {
		case opcode.CONST:
			v, err := parseLiteral(strings.TrimSpace(strings.TrimPrefix(ln.text, mnem)))
			if err != nil {
				return nil, asmErr(ln.no, "%s", err)
			}
			idx := env.AddConstant(v)
			code = append(code, byte(opcode.CONST), 0, 0)
			putU16(code[len(code)-2:], uint16(idx))

		case opcode.POP, opcode.GETL, opcode.GETR, opcode.END:
			code = append(code, byte(op))

		case opcode.JMP, opcode.MBL, opcode.DBL, opcode.DUP:
			if len(fields) != 2 {
				return nil, asmErr(ln.no, "%s expects a label operand", mnem)
			}
			code = append(code, byte(op), 0, 0)
			fixups = append(fixups, pending{at: len(code) - 2, lbl: fields[1]})

		case opcode.MO, opcode.DO:
			if len(fields) < 2 || len(fields) > 3 {
				return nil, asmErr(ln.no, "%s expects a primitive and optional combinator", mnem)
			}
			prim, ok := opcode.LookupPrimitive(fields[1])
			if !ok {
				return nil, asmErr(ln.no, "unknown primitive %q", fields[1])
			}
			comb := opcode.None
			if len(fields) == 3 {
				comb, ok = opcode.LookupCombinator(fields[2])
				if !ok {
					return nil, asmErr(ln.no, "unknown combinator %q", fields[2])
				}
			}
			code = append(code, byte(op), byte(prim), byte(comb))

		case opcode.STORE, opcode.LOAD, opcode.MCALL, opcode.DCALL:
			if len(fields) != 2 {
				return nil, asmErr(ln.no, "%s expects a name operand", mnem)
			}
			idx := env.Intern(fields[1])
			code = append(code, byte(op), 0, 0)
			putU16(code[len(code)-2:], uint16(idx))

		default:
			return nil, asmErr(ln.no, "instruction %q is not assignable from source", mnem)
		}
	}

	for _, f := range fixups {
		addr, ok := labels[f.lbl]
		if !ok {
			return nil, fmt.Errorf("asm: undefined label %q", f.lbl)
		}
		putU16(code[f.at:], addr)
	}

	return &Program{
		Code:      code,
		Constants: append([]value.Value(nil), env.Constants...),
		Names:     append([]string(nil), env.Names...),
	}, nil
}

type sourceLine struct {
	no   int
	text string
}

func splitLines(src string) ([]sourceLine, error) {
	var out []sourceLine
	sc := bufio.NewScanner(strings.NewReader(src))
	no := 0
	for sc.Scan() {
		no++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, ";") {
			continue
		}
		out = append(out, sourceLine{no: no, text: text})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func asmErr(line int, format string, args ...any) error {
	return fmt.Errorf("asm:%d: %s", line, fmt.Sprintf(format, args...))
}

func putU16(b []byte, v uint16) {
	b[0] = byte(v >> 8)
	b[1] = byte(v)
}

// parseLiteral parses one CONST operand: an int, a float, true/false, a
// double-quoted string, or a bracketed list of literals ("[1 2 3]").
func parseLiteral(s string) (value.Value, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "true":
		return value.Bool(true), nil
	case s == "false":
		return value.Bool(false), nil
	case strings.HasPrefix(s, "\""):
		return parseStringLiteral(s)
	case strings.HasPrefix(s, "["):
		return parseListLiteral(s)
	default:
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return value.Int(i), nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return value.Float(f), nil
		}
		return nil, fmt.Errorf("invalid literal %q", s)
	}
}

func parseStringLiteral(s string) (value.Value, error) {
	unq, err := strconv.Unquote(s)
	if err != nil {
		return nil, fmt.Errorf("invalid string literal %q: %w", s, err)
	}
	return value.Str(unq), nil
}

func parseListLiteral(s string) (value.Value, error) {
	if !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("unterminated list literal %q", s)
	}
	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return &value.List{Shape: []int{0}, Elems: nil}, nil
	}
	fields := strings.Fields(inner)
	elems := make([]value.Value, len(fields))
	for i, f := range fields {
		v, err := parseLiteral(f)
		if err != nil {
			return nil, err
		}
		elems[i] = v
	}
	return &value.List{Shape: []int{len(elems)}, Elems: elems}, nil
}

// Disassemble renders prog as a readable listing, one instruction per line
// with its code offset, numeric operands and the constant or name they
// refer to. The listing is not in the format Assemble reads.
func Disassemble(prog *Program) string {
	var b strings.Builder
	ip := 0
	for ip < len(prog.Code) {
		op := opcode.Op(prog.Code[ip])
		fmt.Fprintf(&b, "%4d  %s", ip, op)
		ip++
		switch {
		case op == opcode.CONST:
			idx := u16At(prog.Code, ip)
			ip += 2
			fmt.Fprintf(&b, " %d", idx)
			if int(idx) < len(prog.Constants) {
				fmt.Fprintf(&b, "  ; %s", prog.Constants[idx])
			}
		case opcode.HasU16Arg(op):
			idx := u16At(prog.Code, ip)
			ip += 2
			fmt.Fprintf(&b, " %d", idx)
			if (op == opcode.STORE || op == opcode.LOAD || op == opcode.MCALL || op == opcode.DCALL) && int(idx) < len(prog.Names) {
				fmt.Fprintf(&b, "  ; %s", prog.Names[idx])
			}
		case opcode.HasOpID(op):
			prim := opcode.Primitive(prog.Code[ip])
			comb := opcode.Combinator(prog.Code[ip+1])
			ip += 2
			fmt.Fprintf(&b, " %s", prim)
			if comb != opcode.None {
				fmt.Fprintf(&b, " %s", comb)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func u16At(code []byte, at int) uint16 {
	if at+2 > len(code) {
		return 0
	}
	return uint16(code[at])<<8 | uint16(code[at+1])
}
