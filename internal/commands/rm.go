package commands

import (
	"context"
	"flag"
	"io"

	"taskmirror/internal/app"
	"taskmirror/internal/config"
	"taskmirror/internal/exitcode"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command. Only the local copy is removed; a later
// refresh does not bring it back unless the remote item is newer than the
// sync position.
type RmCmd struct {
	view viewFlags
}

func (c *RmCmd) Name() string      { return "rm" }
func (c *RmCmd) Aliases() []string { return []string{"delete"} }
func (c *RmCmd) Synopsis() string  { return "Delete a task from the mirror" }
func (c *RmCmd) Usage() string     { return "taskmirror rm [--search <text>] [--filter <status>] <ref>" }
func (c *RmCmd) NeedsApp() bool    { return true }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {
	c.view.register(fs)
}

func (c *RmCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	task, code := c.view.lookup(a, args, errOut)
	if code != exitcode.Success {
		return code
	}
	if err := a.Actions.Delete(ctx, task); err != nil {
		return printError(errOut, err)
	}
	return exitcode.Success
}
