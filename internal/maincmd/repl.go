package maincmd

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/mna/mainer"

	"github.com/orderrrr/link/internal/replio"
)

const replPrompt = ">> "
const contPrompt = ".. "

// Repl starts the interactive read-eval-print loop: one bufio.Scanner over
// stdin, a line ending in "\" continues onto the next line before the
// accumulated chunk is rewritten (ASCII aliases to their Unicode symbols),
// colored for echo, and handed to the reader/compiler/machine pipeline. The
// session's compiler.Environment and machine.Globals persist across turns
// so a later line can reference a name an earlier one bound.
func (c *Cmd) Repl(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return RunRepl(ctx, stdio)
}

func RunRepl(ctx context.Context, stdio mainer.Stdio) error {
	s := newSession()
	sc := bufio.NewScanner(stdio.Stdin)

	fmt.Fprint(stdio.Stdout, replPrompt)
	var pending strings.Builder
	for sc.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := sc.Text()
		if cont, ok := strings.CutSuffix(line, "\\"); ok {
			pending.WriteString(cont)
			pending.WriteByte('\n')
			fmt.Fprint(stdio.Stdout, contPrompt)
			continue
		}
		pending.WriteString(line)
		chunk := pending.String()
		pending.Reset()

		trimmed := strings.TrimSpace(chunk)
		if trimmed == ":q" {
			return nil
		}
		if trimmed == "" {
			fmt.Fprint(stdio.Stdout, replPrompt)
			continue
		}

		rewritten := replio.ReplaceAliases(chunk)
		fmt.Fprintln(stdio.Stdout, replio.Highlight(rewritten))

		result, err := evalTurn(s, rewritten)
		if err != nil {
			printError(stdio, err)
		} else if result != nil {
			fmt.Fprintln(stdio.Stdout, result)
		}
		fmt.Fprint(stdio.Stdout, replPrompt)
	}
	fmt.Fprintln(stdio.Stdout)
	return sc.Err()
}
