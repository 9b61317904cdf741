package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"todo/internal/config"
	"todo/internal/exitcode"
	"todo/internal/state"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct {
	// Registry lists the commands to describe. Defaults to DefaultRegistry.
	Registry *Registry
}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "todo help" }
func (c *HelpCmd) Access() Access    { return Offline }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, store *state.Store, args []string, out, errOut io.Writer) int {
	reg := c.Registry
	if reg == nil {
		reg = DefaultRegistry
	}

	fmt.Fprintln(out, "Usage:")
	fmt.Fprintf(out, "  %-44s %s\n", "todo", "List tasks (same as: todo list)")
	for _, cmd := range reg.All() {
		synopsis := cmd.Synopsis()
		if aliases := cmd.Aliases(); len(aliases) > 0 {
			synopsis += " (alias: " + strings.Join(aliases, ", ") + ")"
		}
		if u := cmd.Usage(); len(u) > 44 {
			fmt.Fprintf(out, "  %s\n  %-44s %s\n", u, "", synopsis)
		} else {
			fmt.Fprintf(out, "  %-44s %s\n", u, synopsis)
		}
	}
	fmt.Fprint(out, commonFlagsHelp)
	return exitcode.Success
}

const commonFlagsHelp = `
Task references:
  <n>              Position shown by "todo list" (newest first)
  <id-prefix>      Unique prefix of a task ID (see "todo list --ids")

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
