// Package replio holds the REPL's presentation concerns — ASCII alias
// rewriting and ANSI syntax coloring for the echoed line — kept separate
// from the compile/execute core: convenience wrappers the REPL shell
// applies before a line ever reaches the parser, re-expressed over Go
// runes.
package replio

import "unicode"

// alias is one ASCII spelling and the Unicode symbol it stands for.
type alias struct {
	name   string
	symbol string
}

// Aliases lists every ASCII spelling this REPL accepts. Each one is applied
// in turn, and only where it stands as a whole word, so no alias ever
// matches inside a longer one and the order of the list does not change
// the result.
var Aliases = []alias{
	{"max", "¯"},
	{"min", "_"},
	{"mod", "!"},
	{"mul", "×"},
	{"div", "÷"},
	{"eq", "="},
	{"amp", "&"},
	{"rho", "ρ"},
	{"each", "ǁ"},
	{"fold", "/"},
	{"scanl", "\\"},
}

// ReplaceAliases rewrites every standalone occurrence of an ASCII alias in
// input with its Unicode symbol, skipping anything inside a double-quoted
// string literal. "Standalone" means not immediately preceded or followed
// by a letter or underscore, so "rho5" becomes "ρ5" but "throttle" is left
// alone.
func ReplaceAliases(input string) string {
	result := input
	for _, a := range Aliases {
		result = replaceOne(result, a.name, a.symbol)
	}
	return result
}

func replaceOne(s, name, symbol string) string {
	chars := []rune(s)
	nameChars := []rune(name)
	n, m := len(chars), len(nameChars)
	var out []rune
	inString := false
	i := 0
	for i < n {
		if chars[i] == '"' {
			inString = !inString
			out = append(out, chars[i])
			i++
			continue
		}
		if inString {
			out = append(out, chars[i])
			i++
			continue
		}
		if i+m <= n && runesEqual(chars[i:i+m], nameChars) {
			before := i == 0 || !isWordRune(chars[i-1])
			after := i+m >= n || !isWordRune(chars[i+m])
			if before && after {
				out = append(out, []rune(symbol)...)
				i += m
				continue
			}
		}
		out = append(out, chars[i])
		i++
	}
	return string(out)
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}
