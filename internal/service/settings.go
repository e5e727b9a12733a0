package service

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// BackendType selects the remote source. The zero value means unset.
type BackendType string

const (
	BackendNone        BackendType = ""
	BackendNotion      BackendType = "notion"
	BackendGoogleTasks BackendType = "google-tasks"
)

// ParseBackendType parses a user-supplied backend name.
func ParseBackendType(s string) (BackendType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "notion":
		return BackendNotion, nil
	case "google-tasks", "googletasks", "google":
		return BackendGoogleTasks, nil
	case "", "none":
		return BackendNone, nil
	}
	return BackendNone, fmt.Errorf("unknown backend: %s", s)
}

// ErrConfiguration is wrapped by every settings validation failure.
var ErrConfiguration = errors.New("configuration error")

// NotionCredentials holds the Notion integration secret and database id.
type NotionCredentials struct {
	APIKey     string `json:"apiKey,omitempty"`
	DatabaseID string `json:"databaseId,omitempty"`
}

// GoogleTasksCredentials identifies the task list. OAuth files live in the config dir.
// An empty TaskListID means the default list.
type GoogleTasksCredentials struct {
	TaskListID string `json:"taskListId,omitempty"`
}

// Settings is the singleton configuration and sync position record.
type Settings struct {
	BackendType    BackendType            `json:"backendType"`
	Notion         NotionCredentials      `json:"notion"`
	GoogleTasks    GoogleTasksCredentials `json:"googleTasks"`
	ProxyServerURL string                 `json:"proxyServerUrl,omitempty"`

	// Date-range sync position. Nil means no sync has recorded a bound yet.
	NewestTaskCreatedAt *time.Time `json:"newestTaskCreatedAt,omitempty"`
	OldestTaskCreatedAt *time.Time `json:"oldestTaskCreatedAt,omitempty"`
}

// Validate checks that a backend is selected and its credentials are present.
func (s Settings) Validate() error {
	switch s.BackendType {
	case BackendNone:
		return fmt.Errorf("%w: no backend selected", ErrConfiguration)
	case BackendNotion:
		if strings.TrimSpace(s.Notion.APIKey) == "" {
			return fmt.Errorf("%w: notion api key is missing", ErrConfiguration)
		}
		if strings.TrimSpace(s.Notion.DatabaseID) == "" {
			return fmt.Errorf("%w: notion database id is missing", ErrConfiguration)
		}
	case BackendGoogleTasks:
		// An empty list id selects the account's default list.
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrConfiguration, s.BackendType)
	}
	return nil
}

// ResetSyncPosition clears the date-range bounds.
func (s *Settings) ResetSyncPosition() {
	s.NewestTaskCreatedAt = nil
	s.OldestTaskCreatedAt = nil
}
