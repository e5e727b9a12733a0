package commands

import (
	"context"
	"flag"
	"io"

	"taskmirror/internal/app"
	"taskmirror/internal/config"
	"taskmirror/internal/exitcode"
	"taskmirror/internal/output"
)

func init() {
	Register(&ShowCmd{})
}

// ShowCmd implements the show command.
type ShowCmd struct {
	view viewFlags
}

func (c *ShowCmd) Name() string      { return "show" }
func (c *ShowCmd) Aliases() []string { return nil }
func (c *ShowCmd) Synopsis() string  { return "Print every field of a task" }
func (c *ShowCmd) Usage() string     { return "taskmirror show [--search <text>] [--filter <status>] <ref>" }
func (c *ShowCmd) NeedsApp() bool    { return true }

func (c *ShowCmd) RegisterFlags(fs *flag.FlagSet) {
	c.view.register(fs)
}

func (c *ShowCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	task, code := c.view.lookup(a, args, errOut)
	if code != exitcode.Success {
		return code
	}
	output.FormatTaskDetail(out, task)
	return exitcode.Success
}
