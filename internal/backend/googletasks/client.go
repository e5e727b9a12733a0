// Package googletasks implements the service.Service interface using Google Tasks API.
package googletasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	neturl "net/url"
	"os"
	"sort"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"taskmirror/internal/backend/proxy"
	"taskmirror/internal/config"
	"taskmirror/internal/service"
)

const (
	// DefaultListID is the special ID for the default list.
	DefaultListID = "@default"

	// listPageSize is the number of tasks requested per API page.
	listPageSize = 100

	// OAuth scope for Google Tasks
	tasksScope = "https://www.googleapis.com/auth/tasks"

	statusCompleted = "completed"
)

// Client implements service.Service using Google Tasks API.
type Client struct {
	svc    *tasks.Service
	listID string
}

// New creates a new Google Tasks client for the list in settings.
// Requires oauth_client.json and token.json in the config directory.
func New(ctx context.Context, cfg *config.Config, settings service.Settings) (*Client, error) {
	if !cfg.HasOAuthClient() {
		return nil, fmt.Errorf("%w: oauth_client.json not found in %s", service.ErrConfiguration, cfg.Dir)
	}
	if !cfg.HasToken() {
		return nil, fmt.Errorf("%w: token.json not found in %s", service.ErrConfiguration, cfg.Dir)
	}

	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth_client.json: %w", err)
	}

	oauthConfig, err := google.ConfigFromJSON(clientJSON, tasksScope)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid oauth_client.json: %v", service.ErrConfiguration, err)
	}

	tokenData, err := os.ReadFile(cfg.TokenPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read token.json: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("%w: invalid token.json: %v", service.ErrConfiguration, err)
	}

	// Token refreshes go through the relay as well.
	base := proxy.Client(settings.ProxyServerURL, nil)
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)

	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Source: oauthConfig.TokenSource(ctx, &token),
			Base:   base.Transport,
		},
	}

	return NewWithHTTPClient(ctx, httpClient, settings.GoogleTasks.TaskListID)
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, listID string, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	if listID == "" {
		listID = DefaultListID
	}
	return &Client{svc: svc, listID: listID}, nil
}

// Authenticate implements service.Service by reading the configured list.
func (c *Client) Authenticate(ctx context.Context) (bool, error) {
	if _, err := c.svc.Tasklists.Get(c.listID).Context(ctx).Do(); err != nil {
		return false, wrapError(err)
	}
	return true, nil
}

// FetchTasks implements service.Service.
// Google Tasks exposes no creation time, so the last update time is used as
// the ordering key. The list is read in full and filtered client-side;
// "after" filters are also passed as updatedMin to narrow the response.
func (c *Client) FetchTasks(ctx context.Context, pageSize int, filter *service.DateFilter) (service.FetchResult, error) {
	call := c.svc.Tasks.List(c.listID).
		MaxResults(listPageSize).
		ShowCompleted(true).
		ShowHidden(true).
		ShowDeleted(false)
	if filter != nil && filter.Type == service.FilterAfter {
		call = call.UpdatedMin(filter.Date.UTC().Format(time.RFC3339Nano))
	}

	var matched []service.Task
	err := call.Pages(ctx, func(resp *tasks.Tasks) error {
		for _, item := range resp.Items {
			task, err := toTask(item)
			if err != nil {
				return err
			}
			if filter.Match(task.CreatedAt) {
				matched = append(matched, task)
			}
		}
		return nil
	})
	if err != nil {
		return service.FetchResult{}, wrapError(err)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	result := service.FetchResult{Tasks: matched}
	if pageSize > 0 && len(matched) > pageSize {
		result.Tasks = matched[:pageSize]
		result.HasMore = true
	}
	return result, nil
}

// CreateTask implements service.Service.
func (c *Client) CreateTask(ctx context.Context, task service.Task) (service.Task, error) {
	created, err := c.svc.Tasks.Insert(c.listID, &tasks.Task{
		Title: task.Title,
		Notes: task.Description,
	}).Context(ctx).Do()
	if err != nil {
		return service.Task{}, wrapError(err)
	}
	return toTask(created)
}

// UpdateTask implements service.Service. Read and stocked have no Google
// Tasks counterpart and are not sent.
func (c *Client) UpdateTask(ctx context.Context, task service.Task) (service.Task, error) {
	status := "needsAction"
	if task.Completed {
		status = statusCompleted
	}
	patch := &tasks.Task{
		Title:           task.Title,
		Notes:           task.Description,
		Status:          status,
		ForceSendFields: []string{"Notes"},
	}

	updated, err := c.svc.Tasks.Patch(c.listID, task.SourceID, patch).Context(ctx).Do()
	if err != nil {
		return service.Task{}, wrapError(err)
	}

	echoed, err := toTask(updated)
	if err != nil {
		return service.Task{}, err
	}
	echoed.Read = task.Read
	echoed.Stocked = task.Stocked
	return echoed, nil
}

// DeleteTask implements service.Service. Google keeps deleted tasks
// retrievable with showDeleted, which is the closest match to archiving.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	if err := c.svc.Tasks.Delete(c.listID, id).Context(ctx).Do(); err != nil {
		return wrapError(err)
	}
	return nil
}

func toTask(item *tasks.Task) (service.Task, error) {
	updated, err := time.Parse(time.RFC3339, item.Updated)
	if err != nil {
		return service.Task{}, fmt.Errorf("invalid updated time %q for task %s: %w", item.Updated, item.Id, err)
	}
	updated = updated.UTC()

	url := item.WebViewLink
	for _, link := range item.Links {
		if link != nil && link.Link != "" {
			url = link.Link
			break
		}
	}

	return service.Task{
		ID:          item.Id,
		SourceID:    item.Id,
		Title:       item.Title,
		Description: item.Notes,
		Completed:   item.Status == statusCompleted,
		CreatedAt:   updated,
		UpdatedAt:   updated,
		Source:      service.SourceGoogleTasks,
		URL:         url,
	}, nil
}

// wrapError keeps the HTTP status code in the message for error classification.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("google tasks request timed out: %w", err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		msg := strings.TrimSpace(apiErr.Message)
		if msg == "" {
			msg = http.StatusText(apiErr.Code)
		}
		return fmt.Errorf("google tasks api error %d: %s: %w", apiErr.Code, msg, err)
	}

	var urlErr *neturl.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("google tasks fetch failed: %w", err)
	}

	return err
}
