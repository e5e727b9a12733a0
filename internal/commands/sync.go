package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"taskmirror/internal/app"
	"taskmirror/internal/config"
	"taskmirror/internal/exitcode"
	"taskmirror/internal/syncer"
)

func init() {
	Register(&SyncCmd{})
}

// SyncCmd implements the sync command.
// Without flags it fetches items newer than the mirror; --more fetches older ones.
type SyncCmd struct {
	more bool
}

func (c *SyncCmd) Name() string      { return "sync" }
func (c *SyncCmd) Aliases() []string { return []string{"refresh"} }
func (c *SyncCmd) Synopsis() string  { return "Fetch new (or, with --more, older) items" }
func (c *SyncCmd) Usage() string     { return "taskmirror sync [--more]" }
func (c *SyncCmd) NeedsApp() bool    { return true }

func (c *SyncCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.more, "more", false, "")
	fs.BoolVar(&c.more, "m", false, "")
}

func (c *SyncCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	dir := syncer.Refresh
	if c.more {
		dir = syncer.LoadMore
	}

	res, err := a.Engine.Sync(ctx, dir)
	if err != nil {
		// The engine has already reported classified failures.
		if errors.Is(err, syncer.ErrBusy) {
			fmt.Fprintf(errOut, "error: %v\n", err)
		}
		return exitCodeFor(err)
	}

	if dir == syncer.LoadMore && !cfg.Quiet {
		switch {
		case res.Fetched > 0:
			fmt.Fprintf(out, "Loaded %d older item(s)\n", res.Fetched)
		case !res.HasMore:
			fmt.Fprintln(out, "No older items")
		}
	}
	return exitcode.Success
}
