// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"taskmirror/internal/service"
)

const (
	// ListSeparator is the separator line between the task list and its footer.
	ListSeparator = "------------"

	unreadMark  = '*'
	stockedMark = '+'
)

// FormatTask formats a task line for the list.
// Format: "{N:>4}  {U}{S}  {TITLE}\n" where U is '*' for unread and S is '+' for stocked.
func FormatTask(w io.Writer, num int, task service.Task) {
	u, s := ' ', ' '
	if !task.Read {
		u = unreadMark
	}
	if task.Stocked {
		s = stockedMark
	}
	fmt.Fprintf(w, "%4d  %c%c  %s\n", num, u, s, normalizeTitle(task.Title))
}

// FormatFooter formats the list footer.
func FormatFooter(w io.Writer, page, pages, unread int) {
	fmt.Fprintln(w, ListSeparator)
	fmt.Fprintf(w, "page %d of %d, %d unread\n", page, pages, unread)
}

// FormatTaskDetail formats every populated field of a task, one per line.
func FormatTaskDetail(w io.Writer, task service.Task) {
	field := func(name, value string) {
		if strings.TrimSpace(value) != "" {
			fmt.Fprintf(w, "%-12s %s\n", name+":", value)
		}
	}

	field("title", normalizeTitle(task.Title))
	field("id", task.ID)
	field("source", string(task.Source))
	field("author", task.Author)
	field("created", formatTime(task.CreatedAt))
	field("updated", formatTime(task.UpdatedAt))
	field("read", yesNo(task.Read))
	field("stocked", yesNo(task.Stocked))
	if task.Source == service.SourceNotion {
		field("synced", yesNo(task.SyncedWithNotion))
	}
	if task.Completed {
		field("completed", "yes")
	}
	field("tags", strings.Join(task.Tags, ", "))
	field("url", task.URL)
	field("notion", task.NotionPageURL)
	field("image", task.ImageURL)
	field("ogp image", task.OGPImageURL)
	field("icon", task.IconURL)
	if d := strings.TrimSpace(task.Description); d != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, d)
	}
}

// FormatSettings formats settings with the Notion key masked.
func FormatSettings(w io.Writer, s service.Settings) {
	backend := string(s.BackendType)
	if backend == "" {
		backend = "(none)"
	}
	fmt.Fprintf(w, "%-16s %s\n", "backend:", backend)
	fmt.Fprintf(w, "%-16s %s\n", "notion key:", mask(s.Notion.APIKey))
	fmt.Fprintf(w, "%-16s %s\n", "notion database:", orNone(s.Notion.DatabaseID))
	fmt.Fprintf(w, "%-16s %s\n", "task list:", orNone(s.GoogleTasks.TaskListID))
	fmt.Fprintf(w, "%-16s %s\n", "proxy:", orNone(s.ProxyServerURL))
	fmt.Fprintf(w, "%-16s %s\n", "newest synced:", formatTimePtr(s.NewestTaskCreatedAt))
	fmt.Fprintf(w, "%-16s %s\n", "oldest synced:", formatTimePtr(s.OldestTaskCreatedAt))
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}

func mask(secret string) string {
	switch {
	case secret == "":
		return "(none)"
	case len(secret) <= 4:
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return "(none)"
	}
	return formatTime(*t)
}
