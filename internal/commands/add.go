package commands

import (
	"context"
	"flag"
	"io"
	"strings"

	"todo/internal/config"
	"todo/internal/state"
	"todo/internal/task"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	description string
	priority    string
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string {
	return "todo add [--description <text>] [--priority low|medium|high] <title...>"
}
func (c *AddCmd) Access() Access { return SignedIn }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.description, "description", "", "")
	fs.StringVar(&c.description, "d", "", "")
	fs.StringVar(&c.priority, "priority", "", "")
	fs.StringVar(&c.priority, "p", "", "")
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, store *state.Store, args []string, out, errOut io.Writer) int {
	priority, err := task.ParsePriority(c.priority)
	if err != nil {
		return usage(errOut, "%v", err)
	}
	draft := task.Draft{
		Title:       strings.Join(args, " "),
		Description: c.description,
		Priority:    priority,
	}

	cmd, err := store.CreateTask(draft)
	if err != nil {
		return fail(errOut, err)
	}
	if err := store.Settle(cmd); err != nil {
		return fail(errOut, err)
	}
	return success(out, cfg.Quiet)
}
