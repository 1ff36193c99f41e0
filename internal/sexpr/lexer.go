// Package sexpr is the minimal S-expression reader for this language's
// surface syntax: it turns REPL/file input into the fixed AST shape
// lang/compiler consumes, and nothing more.
package sexpr

import (
	"strings"

	"github.com/orderrrr/link/lang/langerr"
	"github.com/orderrrr/link/lang/value"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokLParen
	tokRParen
	tokPipe
	tokColon
	tokInt
	tokFloat
	tokBool
	tokString
	tokWord // identifier, primitive symbol, combinator word, "λ", "do", "OP:"
)

type token struct {
	kind tokenKind
	text string
	val  string // unescaped text for tokString
	span value.Span
}

// lex splits src into tokens, stripping whitespace and "#...\n" comments.
func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	n := len(src)
	for i < n {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			i++
		case c == '#':
			for i < n && src[i] != '\n' {
				i++
			}
		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", span: value.Span{Start: i, End: i + 1}})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", span: value.Span{Start: i, End: i + 1}})
			i++
		case c == '|':
			toks = append(toks, token{kind: tokPipe, text: "|", span: value.Span{Start: i, End: i + 1}})
			i++
		case c == '"':
			start := i
			j := i + 1
			for j < n && src[j] != '"' {
				if src[j] == '\\' && j+1 < n {
					j++
				}
				j++
			}
			if j >= n {
				return nil, langerr.New(langerr.Parse, value.Span{Start: start, End: n}, "unterminated string literal")
			}
			raw := src[start : j+1]
			unq, err := unescapeString(raw)
			if err != nil {
				return nil, langerr.New(langerr.Parse, value.Span{Start: start, End: j + 1}, "%s", err)
			}
			toks = append(toks, token{kind: tokString, text: raw, val: unq, span: value.Span{Start: start, End: j + 1}})
			i = j + 1
		default:
			start := i
			for i < n && !isDelim(src[i]) {
				i++
			}
			word := src[start:i]
			toks = append(toks, classify(word, start, i))
		}
	}
	toks = append(toks, token{kind: tokEOF, span: value.Span{Start: n, End: n}})
	return toks, nil
}

func isDelim(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '(', ')', '"', '#', '|':
		return true
	default:
		return false
	}
}

func classify(word string, start, end int) token {
	sp := value.Span{Start: start, End: end}
	switch word {
	case "|":
		return token{kind: tokPipe, text: word, span: sp}
	case ":":
		return token{kind: tokColon, text: word, span: sp}
	case "true", "false":
		return token{kind: tokBool, text: word, span: sp}
	}
	if looksNumeric(word) {
		if strings.ContainsAny(word, ".eE") && word != "e" && word != "E" {
			return token{kind: tokFloat, text: word, span: sp}
		}
		return token{kind: tokInt, text: word, span: sp}
	}
	return token{kind: tokWord, text: word, span: sp}
}

// looksNumeric reports whether word parses as a number: an optional leading
// '-' followed by at least one digit, optionally with a decimal point or
// exponent. A bare "-" is left as a word (the Minus primitive symbol).
func looksNumeric(word string) bool {
	s := word
	if strings.HasPrefix(s, "-") {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	sawDigit := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			sawDigit = true
		case r == '.' || r == 'e' || r == 'E' || r == '+' || r == '-':
			// allowed inside the numeric tail (e.g. exponents)
		default:
			return false
		}
	}
	return sawDigit
}

func unescapeString(quoted string) (string, error) {
	inner := quoted[1 : len(quoted)-1]
	var b strings.Builder
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(inner) {
			b.WriteByte('\\')
			break
		}
		switch inner[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case '"':
			b.WriteByte('"')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte(inner[i])
		}
	}
	return b.String(), nil
}
