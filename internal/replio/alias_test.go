package replio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReplaceAliases(t *testing.T) {
	cases := []struct {
		desc string
		in   string
		want string
	}{
		{"no aliases", "(+| 1 2)", "(+| 1 2)"},
		{"single alias", "(max| 1 2)", "(¯| 1 2)"},
		{"several aliases", "mul div eq amp", "× ÷ = &"},
		{"multi-letter combinator aliases", "scanl fold", "\\ /"},
		{"inside identifier left alone", "throttle maximal", "throttle maximal"},
		{"skips inside string literal", `(print "mod five")`, `(print "mod five")`},
		{"rewrites outside a quoted segment", `mod (print "mod")`, `! (print "mod")`},
		{"adjacent alias words both rewrite", "rho each", "ρ ǁ"},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			require.Equal(t, c.want, ReplaceAliases(c.in))
		})
	}
}
