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
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "taskmirror help" }
func (c *HelpCmd) NeedsApp() bool    { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  taskmirror                                   List mirrored tasks
  taskmirror list [view flags] [--page <n>]    List tasks; paging near the end loads older items
  taskmirror sync [--more]                     Fetch newer items (--more: older items)
  taskmirror push                              Send local edits back to Notion
  taskmirror read [view flags] <ref>           Toggle read
  taskmirror stock [view flags] <ref>          Toggle stocked
  taskmirror share [view flags] [--print] <ref>
  taskmirror show [view flags] <ref>
  taskmirror rm [view flags] <ref>             Delete from the mirror
  taskmirror configure [--backend <name>] [--notion-key <key>] [--notion-database <id>]
                       [--task-list <id>] [--proxy <url>] [--check]
  taskmirror clear                             Delete every mirrored task
  taskmirror help
  taskmirror version

A <ref> is a row number from list (with the same view flags) or a task id.

View flags:
  --search, -s <text>                     Match title, description or author
  --filter, -f all|read|unread|stocked    Restrict by local flags

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
