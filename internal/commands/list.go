package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todo/internal/config"
	"todo/internal/exitcode"
	"todo/internal/output"
	"todo/internal/state"
	"todo/internal/task"
)

func init() {
	Register(&ListCmd{})
}

// loadTasks fetches the signed-in account's tasks, newest first.
func loadTasks(store *state.Store) ([]task.Task, error) {
	if err := store.Settle(store.Reload()); err != nil {
		return nil, err
	}
	return store.Tasks().Items, nil
}

// ListCmd implements the list command.
type ListCmd struct {
	filter string
	search string
	ids    bool
}

// SetView sets the filter and search (for testing).
func (c *ListCmd) SetView(filter, search string) {
	c.filter, c.search = filter, search
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks, newest first" }
func (c *ListCmd) Usage() string {
	return "todo list [--filter all|active|completed] [--search <text>] [--ids]"
}
func (c *ListCmd) Access() Access { return SignedIn }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.filter, "filter", "", "")
	fs.StringVar(&c.filter, "f", "", "")
	fs.StringVar(&c.search, "search", "", "")
	fs.StringVar(&c.search, "s", "", "")
	fs.BoolVar(&c.ids, "ids", false, "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, store *state.Store, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		return usage(errOut, "unexpected argument: %s", args[0])
	}
	filter, err := task.ParseFilter(c.filter)
	if err != nil {
		return usage(errOut, "%v", err)
	}
	view := task.View{Filter: filter, Search: c.search}

	items, err := loadTasks(store)
	if err != nil {
		return fail(errOut, err)
	}

	shown := 0
	for i, t := range items {
		if !view.Filter.Match(t) || !task.MatchesSearch(t, view.Search) {
			continue
		}
		output.FormatTask(out, i+1, t, c.ids)
		shown++
	}

	if cfg.Quiet {
		return exitcode.Success
	}
	if shown == 0 {
		fmt.Fprintln(out, "no tasks found")
		return exitcode.Success
	}
	output.FormatSummary(out, items, view)
	return exitcode.Success
}
