package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"todo/internal/exitcode"
	"todo/internal/service"
	"todo/internal/state"
	"todo/internal/task"
)

// fail reports err on errOut and returns the matching exit code.
func fail(errOut io.Writer, err error) int {
	var refErr *RefError
	var decErr *task.DecodeError
	switch {
	case errors.Is(err, state.ErrValidation),
		errors.As(err, &refErr),
		errors.Is(err, ErrTaskRefRequired),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrWeakPassword):
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError

	case errors.Is(err, service.ErrNotFound):
		fmt.Fprintln(errOut, "error: task not found (it may have been deleted elsewhere)")
		return exitcode.UserError

	case errors.Is(err, service.ErrInvalidCredentials):
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError

	case service.IsAuthError(err):
		fmt.Fprintf(errOut, "error: auth error: %v (run: todo login)\n", err)
		return exitcode.AuthError

	case errors.As(err, &decErr):
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError

	case errors.Is(err, context.Canceled):
		fmt.Fprintln(errOut, "error: cancelled")
		return exitcode.BackendError
	}

	fmt.Fprintf(errOut, "error: backend error: %v\n", err)
	return exitcode.BackendError
}

// usage reports a bad invocation.
func usage(errOut io.Writer, format string, args ...any) int {
	fmt.Fprintf(errOut, "error: "+format+"\n", args...)
	return exitcode.UserError
}

// success prints the success marker unless quiet.
func success(out io.Writer, quiet bool) int {
	if !quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
