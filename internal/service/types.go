// Package service defines the backend-agnostic data model and the remote source contract.
package service

import (
	"strings"
	"time"
)

// Source identifies which remote adapter owns a task.
type Source string

const (
	SourceNotion      Source = "notion"
	SourceGoogleTasks Source = "google-tasks"
)

// Task represents one item mirrored from a remote source.
type Task struct {
	ID          string
	SourceID    string
	Title       string
	Description string
	Completed   bool

	// Read and Stocked are local-only; adapters never set them on fetch.
	Read    bool
	Stocked bool

	CreatedAt time.Time
	UpdatedAt time.Time
	Source    Source

	Tags          []string
	Author        string
	URL           string
	IconURL       string
	ImageURL      string
	OGPImageURL   string
	NotionPageURL string

	// SyncedWithNotion is true when title, description, read and stocked
	// match what was last pushed to Notion.
	SyncedWithNotion bool
}

// ShareURL returns the first non-empty link of the task.
func (t Task) ShareURL() string {
	if t.URL != "" {
		return t.URL
	}
	return t.NotionPageURL
}

// DisplayTitle returns the title with newlines flattened.
func (t Task) DisplayTitle() string {
	title := strings.ReplaceAll(t.Title, "\r", " ")
	return strings.ReplaceAll(title, "\n", " ")
}

// DateFilterType selects the side of a date-range filter.
type DateFilterType string

const (
	FilterAfter  DateFilterType = "after"
	FilterBefore DateFilterType = "before"
)

// DateFilter restricts a fetch to tasks created strictly after or before Date.
type DateFilter struct {
	Type DateFilterType
	Date time.Time
}

// Match reports whether createdAt satisfies the filter. A nil filter matches everything.
func (f *DateFilter) Match(createdAt time.Time) bool {
	if f == nil {
		return true
	}
	switch f.Type {
	case FilterAfter:
		return createdAt.After(f.Date)
	case FilterBefore:
		return createdAt.Before(f.Date)
	}
	return true
}

// FetchResult is one page of tasks returned by a remote source.
type FetchResult struct {
	Tasks      []Task
	HasMore    bool
	NextCursor string
}
