// Package service defines the backend-agnostic data model and the remote source contract.
package service

import "context"

// Service defines the interface for a remote task source.
// The sync engine only talks to remotes through this interface;
// it never imports the Notion or Google SDKs directly.
//
// Errors returned from HTTP-backed implementations must contain the HTTP
// status code as a substring of the message (e.g. "notion api error 404: ...").
// The sync engine classifies failures by that substring.
type Service interface {
	// Authenticate checks that the configured credentials are accepted.
	Authenticate(ctx context.Context) (bool, error)

	// FetchTasks returns up to pageSize tasks ordered by creation time,
	// newest first. filter is optional.
	FetchTasks(ctx context.Context, pageSize int, filter *DateFilter) (FetchResult, error)

	// CreateTask creates a remote item and returns it with server-assigned fields.
	CreateTask(ctx context.Context, task Task) (Task, error)

	// UpdateTask pushes the mutable fields of task and echoes back the stored item.
	UpdateTask(ctx context.Context, task Task) (Task, error)

	// DeleteTask archives the remote item. It does not hard-delete.
	DeleteTask(ctx context.Context, id string) error
}
