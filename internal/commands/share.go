package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskmirror/internal/actions"
	"taskmirror/internal/app"
	"taskmirror/internal/config"
	"taskmirror/internal/exitcode"
)

func init() {
	Register(&ShareCmd{})
}

// ShareCmd implements the share command. By default the task is copied to
// the clipboard; --print writes the same text to stdout instead.
type ShareCmd struct {
	view  viewFlags
	print bool
}

func (c *ShareCmd) Name() string      { return "share" }
func (c *ShareCmd) Aliases() []string { return []string{"copy"} }
func (c *ShareCmd) Synopsis() string  { return "Share a task (clipboard or stdout)" }
func (c *ShareCmd) Usage() string     { return "taskmirror share [--print] [--search <text>] [--filter <status>] <ref>" }
func (c *ShareCmd) NeedsApp() bool    { return true }

func (c *ShareCmd) RegisterFlags(fs *flag.FlagSet) {
	c.view.register(fs)
	fs.BoolVar(&c.print, "print", false, "")
}

func (c *ShareCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	task, code := c.view.lookup(a, args, errOut)
	if code != exitcode.Success {
		return code
	}
	if c.print {
		fmt.Fprintln(out, actions.FormatShareText(actions.ShareDataFor(task)))
		return exitcode.Success
	}
	if err := a.Actions.Share(ctx, task); err != nil {
		return printError(errOut, err)
	}
	return exitcode.Success
}
