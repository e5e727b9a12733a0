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
	Register(&ReadCmd{})
}

// ReadCmd implements the read command. It flips the read flag of a task.
type ReadCmd struct {
	view viewFlags
}

func (c *ReadCmd) Name() string      { return "read" }
func (c *ReadCmd) Aliases() []string { return []string{"unread"} }
func (c *ReadCmd) Synopsis() string  { return "Toggle the read flag of a task" }
func (c *ReadCmd) Usage() string     { return "taskmirror read [--search <text>] [--filter <status>] <ref>" }
func (c *ReadCmd) NeedsApp() bool    { return true }

func (c *ReadCmd) RegisterFlags(fs *flag.FlagSet) {
	c.view.register(fs)
}

func (c *ReadCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	task, code := c.view.lookup(a, args, errOut)
	if code != exitcode.Success {
		return code
	}
	if _, err := a.Actions.ToggleRead(ctx, task); err != nil {
		return printError(errOut, err)
	}
	return exitcode.Success
}
