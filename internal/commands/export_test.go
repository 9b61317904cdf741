package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"todo/internal/state"
)

// SetStdin replaces the password source for the duration of a test. With terminal set,
// r stands in for the no-echo terminal read.
func SetStdin(t testing.TB, r io.Reader, terminal bool) {
	oldIn, oldTerm, oldRead := Stdin, stdinIsTerminal, readTerminalPassword
	Stdin = r
	stdinIsTerminal = func() bool { return terminal }
	readTerminalPassword = func(errOut io.Writer) (string, error) {
		fmt.Fprint(errOut, "Password: ")
		line, err := bufio.NewReader(r).ReadString('\n')
		fmt.Fprintln(errOut)
		if err != nil && err != io.EOF {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	t.Cleanup(func() { Stdin, stdinIsTerminal, readTerminalPassword = oldIn, oldTerm, oldRead })
}

// SetRunUI replaces the dashboard runner for the duration of a test.
func SetRunUI(t testing.TB, fn func(context.Context, *state.Store, io.Writer) error) {
	old := runUI
	runUI = fn
	t.Cleanup(func() { runUI = old })
}
