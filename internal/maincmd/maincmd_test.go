package maincmd_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mna/mainer"
	"github.com/stretchr/testify/require"

	"github.com/orderrrr/link/internal/maincmd"
)

func TestRunPrintsLastFormResult(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.link")
	require.NoError(t, os.WriteFile(path, []byte("(do (: x 2) (+| x 3))"), 0o644))

	var out, errOut bytes.Buffer
	stdio := mainer.Stdio{Stdout: &out, Stderr: &errOut}
	c := &maincmd.Cmd{}

	require.NoError(t, c.Run(context.Background(), stdio, []string{path}))
	require.Equal(t, "5\n", out.String())
	require.Empty(t, errOut.String())
}

func TestRunRequiresPath(t *testing.T) {
	var out, errOut bytes.Buffer
	stdio := mainer.Stdio{Stdout: &out, Stderr: &errOut}
	c := &maincmd.Cmd{}

	err := c.Run(context.Background(), stdio, nil)
	require.Error(t, err)
	require.Contains(t, errOut.String(), "a file path must be provided")
}

func TestRunSurfacesCompileErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.link")
	require.NoError(t, os.WriteFile(path, []byte("(+| 1 2 3)"), 0o644))

	var out, errOut bytes.Buffer
	stdio := mainer.Stdio{Stdout: &out, Stderr: &errOut}
	c := &maincmd.Cmd{}

	require.Error(t, c.Run(context.Background(), stdio, []string{path}))
	require.NotEmpty(t, errOut.String())
	require.Empty(t, out.String())
}

func TestRunMissingFile(t *testing.T) {
	var out, errOut bytes.Buffer
	stdio := mainer.Stdio{Stdout: &out, Stderr: &errOut}
	c := &maincmd.Cmd{}

	require.Error(t, c.Run(context.Background(), stdio, []string{filepath.Join(t.TempDir(), "nope.link")}))
	require.NotEmpty(t, errOut.String())
}

func TestRunReplEchoesAndPersistsBindingsAcrossLines(t *testing.T) {
	in := strings.NewReader("(: x 10)\n(+| x 1)\n:q\n")
	var out, errOut bytes.Buffer
	stdio := mainer.Stdio{Stdin: in, Stdout: &out, Stderr: &errOut}

	require.NoError(t, maincmd.RunRepl(context.Background(), stdio))

	got := out.String()
	require.Contains(t, got, "11")
	require.Empty(t, errOut.String())
}

func TestRunReplLineContinuation(t *testing.T) {
	in := strings.NewReader("(+| \\\n1 2)\n:q\n")
	var out, errOut bytes.Buffer
	stdio := mainer.Stdio{Stdin: in, Stdout: &out, Stderr: &errOut}

	require.NoError(t, maincmd.RunRepl(context.Background(), stdio))
	require.Contains(t, out.String(), "3")
}

func TestRunReplKeepsGoingAfterATurnError(t *testing.T) {
	in := strings.NewReader("(+| 1 2 3)\n(+| 1 2)\n:q\n")
	var out, errOut bytes.Buffer
	stdio := mainer.Stdio{Stdin: in, Stdout: &out, Stderr: &errOut}

	require.NoError(t, maincmd.RunRepl(context.Background(), stdio))
	require.NotEmpty(t, errOut.String())
	require.Contains(t, out.String(), "3")
}

func TestRunReplPreservesPriorAssignmentsAfterARuntimeError(t *testing.T) {
	// The STORE for x runs and succeeds before the division by zero aborts
	// the turn; per the error propagation policy, x must still resolve on
	// the next turn rather than silently becoming unbound.
	in := strings.NewReader("(do (: x 10) (÷| 0 1))\n(+| x 1)\n:q\n")
	var out, errOut bytes.Buffer
	stdio := mainer.Stdio{Stdin: in, Stdout: &out, Stderr: &errOut}

	require.NoError(t, maincmd.RunRepl(context.Background(), stdio))
	require.NotEmpty(t, errOut.String())
	require.Contains(t, out.String(), "11")
}

func TestCmdMainHelpAndVersion(t *testing.T) {
	var out, errOut bytes.Buffer
	c := &maincmd.Cmd{BuildVersion: "v0.0.0-test", BuildDate: "2026-07-31"}
	code := c.Main([]string{"link", "--help"}, mainer.Stdio{Stdout: &out, Stderr: &errOut})
	require.Equal(t, mainer.Success, code)
	require.Contains(t, out.String(), "usage: link")

	out.Reset()
	c2 := &maincmd.Cmd{BuildVersion: "v0.0.0-test", BuildDate: "2026-07-31"}
	code = c2.Main([]string{"link", "--version"}, mainer.Stdio{Stdout: &out, Stderr: &errOut})
	require.Equal(t, mainer.Success, code)
	require.Contains(t, out.String(), "v0.0.0-test")
}

func TestCmdMainUnknownCommand(t *testing.T) {
	var out, errOut bytes.Buffer
	c := &maincmd.Cmd{}
	code := c.Main([]string{"link", "bogus"}, mainer.Stdio{Stdout: &out, Stderr: &errOut})
	require.Equal(t, mainer.InvalidArgs, code)
}

func TestCmdMainRunWithoutPath(t *testing.T) {
	var out, errOut bytes.Buffer
	c := &maincmd.Cmd{}
	code := c.Main([]string{"link", "run"}, mainer.Stdio{Stdout: &out, Stderr: &errOut})
	require.Equal(t, mainer.InvalidArgs, code)
}
