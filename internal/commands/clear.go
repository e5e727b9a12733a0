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
	Register(&ClearCmd{})
}

// ClearCmd implements the clear command. Settings other than the sync
// position survive.
type ClearCmd struct{}

func (c *ClearCmd) Name() string      { return "clear" }
func (c *ClearCmd) Aliases() []string { return nil }
func (c *ClearCmd) Synopsis() string  { return "Delete every mirrored task" }
func (c *ClearCmd) Usage() string     { return "taskmirror clear" }
func (c *ClearCmd) NeedsApp() bool    { return true }

func (c *ClearCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ClearCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	if err := a.Engine.ClearData(ctx); err != nil {
		return printError(errOut, err)
	}
	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
