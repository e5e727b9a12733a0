package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskmirror/internal/app"
	"taskmirror/internal/config"
	"taskmirror/internal/exitcode"
)

func init() {
	Register(&PushCmd{})
}

// PushCmd implements the push command.
type PushCmd struct{}

func (c *PushCmd) Name() string      { return "push" }
func (c *PushCmd) Aliases() []string { return nil }
func (c *PushCmd) Synopsis() string  { return "Send local edits back to Notion" }
func (c *PushCmd) Usage() string     { return "taskmirror push" }
func (c *PushCmd) NeedsApp() bool    { return true }

func (c *PushCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *PushCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	res, err := a.Engine.PushUnsyncedChanges(ctx)
	if err != nil {
		return printError(errOut, err)
	}

	if res.Success == 0 && res.Failed == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "nothing to push")
		}
		return exitcode.Success
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "pushed %d, failed %d\n", res.Success, res.Failed)
	}
	if res.Failed > 0 {
		return exitcode.BackendError
	}
	return exitcode.Success
}
