package sexpr

import (
	"strconv"

	"github.com/orderrrr/link/lang/ast"
	"github.com/orderrrr/link/lang/langerr"
	"github.com/orderrrr/link/lang/opcode"
)

// primitiveGlyphs maps a train element's leading rune to the primitive it
// names, using this language's own single-character glyphs rather than
// opcode's ASCII assembler mnemonics (opcode.LookupPrimitive serves the
// textual bytecode assembler's distinct format; the source language the
// REPL user types is free to spell primitives however its own grammar
// wants).
var primitiveGlyphs = map[rune]opcode.Primitive{
	'+': opcode.Plus,
	'-': opcode.Minus,
	'¯': opcode.Max,
	'_': opcode.Min,
	'=': opcode.Eq,
	'&': opcode.Amp,
	'!': opcode.Bang,
	'×': opcode.Mult,
	'÷': opcode.Div,
	'ρ': opcode.Rho,
}

// combinatorGlyphs maps the rune immediately following a primitive glyph,
// with no space in between, to the combinator it fuses onto that primitive.
var combinatorGlyphs = map[rune]opcode.Combinator{
	'/':  opcode.Fold,
	'\\': opcode.ScanL,
	'ǁ':  opcode.Each,
}

const overrideMarker = "OP:"
const lambdaWord = "λ"
const doWord = "do"

// Parse reads src (a sequence of top-level forms) into the fixed AST shape
// lang/compiler consumes. It is the whole of this repository's front end:
// no grammar beyond what's needed to exercise every ast.Node kind.
func Parse(src string) ([]ast.Node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	var forms []ast.Node
	for p.peek().kind != tokEOF {
		n, err := p.form()
		if err != nil {
			return nil, err
		}
		forms = append(forms, n)
	}
	return forms, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token  { return p.toks[p.pos] }
func (p *parser) advance() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(k tokenKind, what string) (token, error) {
	t := p.peek()
	if t.kind != k {
		return token{}, langerr.New(langerr.Parse, t.span, "expected %s, got %q", what, t.text)
	}
	return p.advance(), nil
}

// form parses one top-level/nested expression: a literal, a name, or a
// parenthesized apply/lambda/doblock/assign/list.
func (p *parser) form() (ast.Node, error) {
	t := p.peek()
	switch t.kind {
	case tokInt:
		p.advance()
		iv, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, langerr.New(langerr.Parse, t.span, "invalid integer literal %q", t.text)
		}
		return ast.NewIntLit(t.span, iv), nil
	case tokFloat:
		p.advance()
		fv, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, langerr.New(langerr.Parse, t.span, "invalid float literal %q", t.text)
		}
		return ast.NewFloatLit(t.span, fv), nil
	case tokBool:
		p.advance()
		return ast.NewBoolLit(t.span, t.text == "true"), nil
	case tokString:
		p.advance()
		return ast.NewStrLit(t.span, t.val), nil
	case tokWord:
		p.advance()
		return ast.NewNameRef(t.span, t.text), nil
	case tokLParen:
		return p.paren()
	default:
		return nil, langerr.New(langerr.Parse, t.span, "unexpected token %q", t.text)
	}
}

func (p *parser) paren() (ast.Node, error) {
	open, err := p.expect(tokLParen, "'('")
	if err != nil {
		return nil, err
	}

	switch {
	case p.peek().kind == tokColon:
		return p.assign(open)
	case p.peek().kind == tokWord && p.peek().text == lambdaWord:
		return p.lambda(open)
	case p.peek().kind == tokWord && p.peek().text == doWord:
		return p.doBlock(open)
	}

	if p.hasPipeAtDepth0() {
		return p.apply(open)
	}
	return p.listLit(open)
}

// hasPipeAtDepth0 reports whether a PIPE token appears before this group's
// matching RPAREN without descending into a nested parenthesized group.
func (p *parser) hasPipeAtDepth0() bool {
	depth := 0
	for i := p.pos; i < len(p.toks); i++ {
		switch p.toks[i].kind {
		case tokLParen:
			depth++
		case tokRParen:
			if depth == 0 {
				return false
			}
			depth--
		case tokPipe:
			if depth == 0 {
				return true
			}
		case tokEOF:
			return false
		}
	}
	return false
}

func (p *parser) assign(open token) (ast.Node, error) {
	if _, err := p.expect(tokColon, "':'"); err != nil {
		return nil, err
	}
	name, err := p.expect(tokWord, "a name")
	if err != nil {
		return nil, err
	}
	rhs, err := p.form()
	if err != nil {
		return nil, err
	}
	close, err := p.expect(tokRParen, "')'")
	if err != nil {
		return nil, err
	}
	return ast.NewAssign(ast.NewSpan(open.span.Start, close.span.End), name.text, rhs), nil
}

func (p *parser) lambda(open token) (ast.Node, error) {
	p.advance() // λ
	if _, err := p.expect(tokLParen, "'(' starting the parameter list"); err != nil {
		return nil, err
	}
	var params []string
	for p.peek().kind != tokRParen {
		name, err := p.expect(tokWord, "a parameter name")
		if err != nil {
			return nil, err
		}
		params = append(params, name.text)
	}
	if _, err := p.expect(tokRParen, "')' closing the parameter list"); err != nil {
		return nil, err
	}
	var body []ast.Node
	for p.peek().kind != tokRParen {
		if p.peek().kind == tokEOF {
			return nil, langerr.New(langerr.Parse, p.peek().span, "unterminated lambda body")
		}
		n, err := p.form()
		if err != nil {
			return nil, err
		}
		body = append(body, n)
	}
	close, err := p.expect(tokRParen, "')'")
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, langerr.New(langerr.Compile, close.span, "lambda body must have at least one expression")
	}
	return ast.NewLambda(ast.NewSpan(open.span.Start, close.span.End), "", params, body), nil
}

func (p *parser) doBlock(open token) (ast.Node, error) {
	p.advance() // "do"
	var body []ast.Node
	for p.peek().kind != tokRParen {
		if p.peek().kind == tokEOF {
			return nil, langerr.New(langerr.Parse, p.peek().span, "unterminated do block")
		}
		n, err := p.form()
		if err != nil {
			return nil, err
		}
		body = append(body, n)
	}
	close, err := p.expect(tokRParen, "')'")
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, langerr.New(langerr.Compile, close.span, "do block must have at least one expression")
	}
	return ast.NewDoBlock(ast.NewSpan(open.span.Start, close.span.End), body), nil
}

// apply parses "train '|' form form?", the 1- or 2-argument function
// application the rest of the grammar exists to feed.
func (p *parser) apply(open token) (ast.Node, error) {
	train, err := p.train()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokPipe, "'|'"); err != nil {
		return nil, err
	}
	var args []ast.Node
	for len(args) < 2 && p.peek().kind != tokRParen {
		n, err := p.form()
		if err != nil {
			return nil, err
		}
		args = append(args, n)
	}
	close, err := p.expect(tokRParen, "')'")
	if err != nil {
		return nil, err
	}
	if len(args) == 0 || len(args) > 2 {
		return nil, langerr.New(langerr.Arity, close.span, "a train takes 1 or 2 arguments, got %d", len(args))
	}
	return ast.NewApply(ast.NewSpan(open.span.Start, close.span.End), train, args), nil
}

// train parses one or more train elements up to (not including) the PIPE
// that separates the train from its arguments.
func (p *parser) train() ([]ast.TrainElem, error) {
	var elems []ast.TrainElem
	for p.peek().kind != tokPipe {
		t := p.peek()
		if t.kind == tokEOF || t.kind == tokRParen {
			return nil, langerr.New(langerr.Parse, t.span, "expected a train element or '|'")
		}
		if t.kind == tokWord && t.text == overrideMarker {
			p.advance()
			nt := p.peek()
			prim, _, ok := decodeTrainWord(nt.text)
			if nt.kind != tokWord || !ok {
				return nil, langerr.New(langerr.Compile, nt.span, "%s must be followed by a primitive", overrideMarker)
			}
			p.advance()
			elems = append(elems, ast.TrainElem{Kind: ast.ElemOverride, Prim: prim, Sp: ast.NewSpan(t.span.Start, nt.span.End)})
			continue
		}
		if t.kind != tokWord {
			return nil, langerr.New(langerr.Parse, t.span, "expected a train element, got %q", t.text)
		}
		p.advance()
		if prim, comb, ok := decodeTrainWord(t.text); ok {
			elems = append(elems, ast.TrainElem{Kind: ast.ElemPrimitive, Prim: prim, Comb: comb, Sp: t.span})
			continue
		}
		elems = append(elems, ast.TrainElem{Kind: ast.ElemName, Name: t.text, Sp: t.span})
	}
	if len(elems) == 0 {
		return nil, langerr.New(langerr.Compile, p.peek().span, "a train must have at least one element")
	}
	return elems, nil
}

// decodeTrainWord recognizes a bare primitive glyph, optionally fused with a
// trailing combinator glyph (e.g. "+/", "ρ\\"). A word that doesn't start
// with a known primitive glyph is not a primitive/combinator pair at all —
// the caller falls back to treating it as a user-function name reference.
func decodeTrainWord(word string) (opcode.Primitive, opcode.Combinator, bool) {
	runes := []rune(word)
	if len(runes) == 0 || len(runes) > 2 {
		return 0, opcode.None, false
	}
	prim, ok := primitiveGlyphs[runes[0]]
	if !ok {
		return 0, opcode.None, false
	}
	if len(runes) == 1 {
		return prim, opcode.None, true
	}
	comb, ok := combinatorGlyphs[runes[1]]
	if !ok {
		return 0, opcode.None, false
	}
	return prim, comb, true
}

// listLit parses a parenthesized group with no top-level pipe as a literal
// list, each element itself an arbitrary form.
func (p *parser) listLit(open token) (ast.Node, error) {
	var elems []ast.Node
	for p.peek().kind != tokRParen {
		if p.peek().kind == tokEOF {
			return nil, langerr.New(langerr.Parse, p.peek().span, "unterminated list")
		}
		n, err := p.form()
		if err != nil {
			return nil, err
		}
		elems = append(elems, n)
	}
	close, err := p.expect(tokRParen, "')'")
	if err != nil {
		return nil, err
	}
	return ast.NewListLit(ast.NewSpan(open.span.Start, close.span.End), elems), nil
}
