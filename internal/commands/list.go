package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskmirror/internal/app"
	"taskmirror/internal/config"
	"taskmirror/internal/exitcode"
	"taskmirror/internal/filter"
	"taskmirror/internal/output"
	"taskmirror/internal/syncer"
)

const (
	// rowsPerPage is the number of tasks printed per page.
	rowsPerPage = 20

	// rowHeight converts rows to scroll units. One page is exactly
	// syncer.LoadMoreThreshold tall.
	rowHeight = syncer.LoadMoreThreshold / rowsPerPage
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `taskmirror` (no args) and `taskmirror list`.
type ListCmd struct {
	view viewFlags
	page int
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List mirrored tasks" }
func (c *ListCmd) Usage() string {
	return "taskmirror list [--search <text>] [--filter all|read|unread|stocked] [--page <n>]"
}
func (c *ListCmd) NeedsApp() bool { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	c.view.register(fs)
	fs.IntVar(&c.page, "page", 0, "")
	fs.IntVar(&c.page, "p", 0, "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	if c.page < 0 {
		fmt.Fprintf(errOut, "error: invalid page number: %d\n", c.page)
		return exitcode.UserError
	}

	tasks, err := c.view.project(a.Engine.Tasks())
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	page := max(c.page, 1)

	// Paging towards the end of the mirror pulls older items first.
	if c.page > 0 && a.Engine.Settings().Validate() == nil {
		loaded, err := a.Engine.OnScroll(ctx, scrollMetrics(page, len(tasks)))
		if err != nil {
			return exitCodeFor(err)
		}
		if loaded {
			tasks, _ = c.view.project(a.Engine.Tasks())
		}
	}

	if len(tasks) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no tasks found")
		}
		return exitcode.Success
	}

	pages := (len(tasks) + rowsPerPage - 1) / rowsPerPage
	if page > pages {
		fmt.Fprintf(errOut, "error: page out of range: %d\n", page)
		return exitcode.UserError
	}

	start := (page - 1) * rowsPerPage
	end := min(start+rowsPerPage, len(tasks))
	for i := start; i < end; i++ {
		output.FormatTask(out, i+1, tasks[i])
	}

	if !cfg.Quiet {
		output.FormatFooter(out, page, pages, filter.UnreadCount(a.Engine.Tasks()))
	}
	return exitcode.Success
}

// scrollMetrics describes viewing page of a projection with total rows.
func scrollMetrics(page, total int) syncer.ScrollMetrics {
	return syncer.ScrollMetrics{
		Offset:   float64((page - 1) * rowsPerPage * rowHeight),
		Viewport: float64(rowsPerPage * rowHeight),
		Content:  float64(total * rowHeight),
	}
}
