package syncer

import (
	"context"
	"errors"
	"fmt"
	"net"
	neturl "net/url"
	"strings"

	"taskmirror/internal/service"
)

// ErrBusy is returned when a sync is requested while another is in flight.
var ErrBusy = errors.New("sync already in progress")

// Kind classifies a failed sync.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindTimeout
	KindAuthentication
	KindNotFound
	KindNetwork
	KindPushBack
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindTimeout:
		return "timeout"
	case KindAuthentication:
		return "authentication"
	case KindNotFound:
		return "not_found"
	case KindNetwork:
		return "network"
	case KindPushBack:
		return "push_back"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Title is the short user-facing summary for the kind.
func (k Kind) Title() string {
	switch k {
	case KindConfiguration:
		return "Backend is not configured"
	case KindTimeout:
		return "Sync timed out"
	case KindAuthentication:
		return "Authentication failed"
	case KindNotFound:
		return "Database or list not found"
	case KindNetwork:
		return "Network error"
	case KindPushBack:
		return "Could not push changes to Notion"
	case KindCanceled:
		return "Sync canceled"
	default:
		return "Sync failed"
	}
}

// Remediation tells the user what to try next. Empty for unknown and
// canceled syncs.
func (k Kind) Remediation() string {
	switch k {
	case KindConfiguration:
		return "Select a backend and fill in its credentials with `taskmirror configure`."
	case KindTimeout:
		return "The source did not answer in time. Check your network connection and proxy settings, then sync again."
	case KindAuthentication:
		return "Check the Notion API key or the Google OAuth token."
	case KindNotFound:
		return "Check the database or task list id and that the integration has been shared with it."
	case KindNetwork:
		return "Check your network connection. If a proxy is configured, make sure its URL is correct and reachable."
	case KindPushBack:
		return "The changes are kept locally and will be pushed again on the next toggle or `taskmirror push`."
	default:
		return ""
	}
}

// Error is a classified sync failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Title()
	}
	return e.Kind.Title() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Detail is the long-form text: raw cause plus remediation.
func (e *Error) Detail() string {
	var parts []string
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	if r := e.Kind.Remediation(); r != "" {
		parts = append(parts, r)
	}
	return strings.Join(parts, "\n")
}

// storeError marks a failure of the local store. Its message may carry task
// ids, which must not be mistaken for HTTP status codes.
type storeError struct {
	err error
}

func (e *storeError) Error() string { return e.err.Error() }
func (e *storeError) Unwrap() error { return e.err }

func storeErrorf(format string, args ...any) error {
	return &storeError{err: fmt.Errorf(format, args...)}
}

// Classify maps err onto a Kind. Adapters put the HTTP status code into
// their messages, so status-based kinds are matched by substring.
// An *Error is returned unchanged.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return &Error{Kind: kindOf(err), Err: err}
}

func kindOf(err error) Kind {
	if errors.Is(err, service.ErrConfiguration) {
		return KindConfiguration
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	var storeErr *storeError
	if errors.As(err, &storeErr) {
		return KindUnknown
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "401") || strings.Contains(lower, "unauthorized"):
		return KindAuthentication
	case strings.Contains(msg, "404"):
		return KindNotFound
	case strings.Contains(lower, "cors") || strings.Contains(lower, "fetch"):
		return KindNetwork
	}

	var urlErr *neturl.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return KindNetwork
	}
	return KindUnknown
}
