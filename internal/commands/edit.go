package commands

import (
	"context"
	"flag"
	"io"

	"todo/internal/config"
	"todo/internal/state"
	"todo/internal/task"
)

func init() {
	Register(&EditCmd{})
	Register(&DoneCmd{})
	Register(&UndoCmd{})
	Register(&RmCmd{})
}

// updateRef resolves a task reference and applies patch to it.
func updateRef(cfg *config.Config, store *state.Store, args []string, patch task.Patch, out, errOut io.Writer) int {
	items, err := loadTasks(store)
	if err != nil {
		return fail(errOut, err)
	}
	t, err := ResolveTaskRef(items, args)
	if err != nil {
		return fail(errOut, err)
	}
	cmd, err := store.UpdateTask(t.ID, patch)
	if err != nil {
		return fail(errOut, err)
	}
	if err := store.Settle(cmd); err != nil {
		return fail(errOut, err)
	}
	return success(out, cfg.Quiet)
}

// EditCmd implements the edit command.
type EditCmd struct {
	title       *string
	description *string
	priority    *string
}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return nil }
func (c *EditCmd) Synopsis() string  { return "Change a task's title, description or priority" }
func (c *EditCmd) Usage() string {
	return "todo edit [--title <t>] [--description <d>] [--priority low|medium|high] <ref>"
}
func (c *EditCmd) Access() Access { return SignedIn }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	c.title, c.description, c.priority = nil, nil, nil
	set := func(dst **string) func(string) error {
		return func(v string) error {
			*dst = &v
			return nil
		}
	}
	fs.Func("title", "", set(&c.title))
	fs.Func("description", "", set(&c.description))
	fs.Func("d", "", set(&c.description))
	fs.Func("priority", "", set(&c.priority))
	fs.Func("p", "", set(&c.priority))
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, store *state.Store, args []string, out, errOut io.Writer) int {
	var patch task.Patch
	patch.Title = c.title
	patch.Description = c.description
	if c.priority != nil {
		p, err := task.ParsePriority(*c.priority)
		if err != nil {
			return usage(errOut, "%v", err)
		}
		patch.Priority = &p
	}
	if patch.Empty() {
		return usage(errOut, "nothing to change (use --title, --description or --priority)")
	}
	return updateRef(cfg, store, args, patch, out, errOut)
}

// DoneCmd implements the done command.
type DoneCmd struct{}

func (c *DoneCmd) Name() string                   { return "done" }
func (c *DoneCmd) Aliases() []string              { return nil }
func (c *DoneCmd) Synopsis() string               { return "Mark a task completed" }
func (c *DoneCmd) Usage() string                  { return "todo done <ref>" }
func (c *DoneCmd) Access() Access                 { return SignedIn }
func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, store *state.Store, args []string, out, errOut io.Writer) int {
	return updateRef(cfg, store, args, task.SetCompleted(true), out, errOut)
}

// UndoCmd implements the undo command.
type UndoCmd struct{}

func (c *UndoCmd) Name() string                   { return "undo" }
func (c *UndoCmd) Aliases() []string              { return []string{"reopen"} }
func (c *UndoCmd) Synopsis() string               { return "Mark a task active again" }
func (c *UndoCmd) Usage() string                  { return "todo undo <ref>" }
func (c *UndoCmd) Access() Access                 { return SignedIn }
func (c *UndoCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *UndoCmd) Run(ctx context.Context, cfg *config.Config, store *state.Store, args []string, out, errOut io.Writer) int {
	return updateRef(cfg, store, args, task.SetCompleted(false), out, errOut)
}

// RmCmd implements the rm command.
type RmCmd struct{}

func (c *RmCmd) Name() string                   { return "rm" }
func (c *RmCmd) Aliases() []string              { return []string{"delete"} }
func (c *RmCmd) Synopsis() string               { return "Delete a task" }
func (c *RmCmd) Usage() string                  { return "todo rm <ref>" }
func (c *RmCmd) Access() Access                 { return SignedIn }
func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RmCmd) Run(ctx context.Context, cfg *config.Config, store *state.Store, args []string, out, errOut io.Writer) int {
	items, err := loadTasks(store)
	if err != nil {
		return fail(errOut, err)
	}
	t, err := ResolveTaskRef(items, args)
	if err != nil {
		return fail(errOut, err)
	}
	cmd, err := store.DeleteTask(t.ID)
	if err != nil {
		return fail(errOut, err)
	}
	if err := store.Settle(cmd); err != nil {
		return fail(errOut, err)
	}
	return success(out, cfg.Quiet)
}
