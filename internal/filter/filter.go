// Package filter projects the task collection for display.
package filter

import (
	"fmt"
	"slices"
	"strings"

	"taskmirror/internal/service"
)

// Status restricts a projection by local flags.
type Status string

const (
	All     Status = "all"
	Read    Status = "read"
	Unread  Status = "unread"
	Stocked Status = "stocked"
)

// ParseStatus parses a status name. An empty string means All.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return All, nil
	case All, Read, Unread, Stocked:
		return st, nil
	}
	return "", fmt.Errorf("unknown filter: %s (want all, read, unread or stocked)", s)
}

func (s Status) match(t service.Task) bool {
	switch s {
	case Read:
		return t.Read
	case Unread:
		return !t.Read
	case Stocked:
		return t.Stocked
	default:
		return true
	}
}

// Project returns the tasks matching query and status, newest first.
// Duplicate ids keep their first occurrence. The query is matched
// case-insensitively against title, description and author.
func Project(tasks []service.Task, query string, status Status) []service.Task {
	q := strings.ToLower(strings.TrimSpace(query))
	seen := make(map[string]struct{}, len(tasks))
	out := make([]service.Task, 0, len(tasks))
	for _, t := range tasks {
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}

		if q != "" && !matches(t, q) {
			continue
		}
		if !status.match(t) {
			continue
		}
		out = append(out, t)
	}

	slices.SortStableFunc(out, func(a, b service.Task) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

func matches(t service.Task, q string) bool {
	return strings.Contains(strings.ToLower(t.Title), q) ||
		strings.Contains(strings.ToLower(t.Description), q) ||
		strings.Contains(strings.ToLower(t.Author), q)
}

// UnreadCount counts unread tasks in the unfiltered collection.
func UnreadCount(tasks []service.Task) int {
	seen := make(map[string]struct{}, len(tasks))
	n := 0
	for _, t := range tasks {
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		if !t.Read {
			n++
		}
	}
	return n
}
