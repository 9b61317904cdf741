// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"io"

	"todo/internal/config"
	"todo/internal/state"
)

// Access says what a command needs before it can run.
type Access int

const (
	// Offline commands run without a backend (help, version).
	Offline Access = iota

	// Public commands get a store but skip the route guard (login, register, logout, ui).
	Public

	// SignedIn commands run only when the route guard allows the protected view.
	SignedIn
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// Access reports whether the command needs a backend and a signed-in account.
	Access() Access

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// cfg is always provided.
	// store is nil for Offline commands; otherwise it is initialized (auth state observed).
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, cfg *config.Config, store *state.Store, args []string, out, errOut io.Writer) int
}
