package replio

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHighlightColorsAndStripsClean(t *testing.T) {
	line := `(+| 1 "two")`
	colored := Highlight(line)
	require.Contains(t, colored, Cyan)
	require.Contains(t, colored, Green)
	require.Contains(t, colored, Blue)
	require.Equal(t, line, stripANSI(colored))
}

func TestHighlightComment(t *testing.T) {
	colored := Highlight("+ # trailing comment")
	require.True(t, strings.HasSuffix(colored, Reset))
	require.Contains(t, colored, Grey)
}

func stripANSI(s string) string {
	var b strings.Builder
	inEsc := false
	for i := 0; i < len(s); i++ {
		if inEsc {
			if s[i] == 'm' {
				inEsc = false
			}
			continue
		}
		if s[i] == '\x1b' {
			inEsc = true
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
