package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
)

// Run compiles and executes every form in the named file as a single turn,
// printing the value of the file's last expression. Unlike Repl, there is
// no persisted session across invocations: one file, one VM.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	if len(args) == 0 {
		return printError(stdio, fmt.Errorf("run: a file path must be provided"))
	}
	src, err := os.ReadFile(args[0])
	if err != nil {
		return printError(stdio, err)
	}

	s := newSession()
	result, err := evalTurn(s, string(src))
	if err != nil {
		return printError(stdio, err)
	}
	if result != nil {
		fmt.Fprintln(stdio.Stdout, result)
	}
	return nil
}
