package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"todo/internal/config"
	"todo/internal/exitcode"
	"todo/internal/state"
	"todo/internal/ui"
)

func init() {
	Register(&UICmd{})
}

// runUI is replaced in tests.
var runUI = ui.Run

// UICmd implements the ui command.
type UICmd struct{}

func (c *UICmd) Name() string      { return "ui" }
func (c *UICmd) Aliases() []string { return []string{"tui"} }
func (c *UICmd) Synopsis() string  { return "Open the interactive dashboard" }
func (c *UICmd) Usage() string     { return "todo ui" }
func (c *UICmd) Access() Access    { return Public }

func (c *UICmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *UICmd) Run(ctx context.Context, cfg *config.Config, store *state.Store, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		return usage(errOut, "unexpected argument: %s", args[0])
	}
	if err := runUI(ctx, store, out); err != nil {
		if errors.Is(err, ui.ErrNotTTY) {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		return fail(errOut, err)
	}
	return exitcode.Success
}
