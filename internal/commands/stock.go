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
	Register(&StockCmd{})
}

// StockCmd implements the stock command.
type StockCmd struct {
	view viewFlags
}

func (c *StockCmd) Name() string      { return "stock" }
func (c *StockCmd) Aliases() []string { return []string{"unstock"} }
func (c *StockCmd) Synopsis() string  { return "Toggle the stocked flag of a task" }
func (c *StockCmd) Usage() string     { return "taskmirror stock [--search <text>] [--filter <status>] <ref>" }
func (c *StockCmd) NeedsApp() bool    { return true }

func (c *StockCmd) RegisterFlags(fs *flag.FlagSet) {
	c.view.register(fs)
}

func (c *StockCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	task, code := c.view.lookup(a, args, errOut)
	if code != exitcode.Success {
		return code
	}
	if _, err := a.Actions.ToggleStock(ctx, task); err != nil {
		return printError(errOut, err)
	}
	return exitcode.Success
}
