// Package notion implements the service.Service interface on top of a Notion database.
package notion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	neturl "net/url"
	"strings"

	"github.com/jomei/notionapi"

	"taskmirror/internal/backend/proxy"
	"taskmirror/internal/service"
)

// maxRetries is the number of attempts notionapi makes on 429 responses.
const maxRetries = 3

// Properties maps task fields to Notion database property names.
// An empty name disables the field.
type Properties struct {
	Title       string
	Description string
	Author      string
	URL         string
	Tags        string
	Read        string
	Stocked     string
	OGPImage    string
}

// DefaultProperties returns the property names used by the reading-list template.
func DefaultProperties() Properties {
	return Properties{
		Title:       "Name",
		Description: "Description",
		Author:      "Author",
		URL:         "URL",
		Tags:        "Tags",
		Read:        "Read",
		Stocked:     "Stocked",
		OGPImage:    "OGP Image",
	}
}

// WithOverrides returns p with every non-empty entry of m applied.
// Keys are the lower-case field names: title, description, author, url,
// tags, read, stocked, ogp_image.
func (p Properties) WithOverrides(m map[string]string) Properties {
	for k, v := range m {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		switch strings.ToLower(k) {
		case "title":
			p.Title = v
		case "description":
			p.Description = v
		case "author":
			p.Author = v
		case "url":
			p.URL = v
		case "tags":
			p.Tags = v
		case "read":
			p.Read = v
		case "stocked":
			p.Stocked = v
		case "ogp_image", "ogpimage":
			p.OGPImage = v
		}
	}
	return p
}

// Client implements service.Service for a single Notion database.
type Client struct {
	api        *notionapi.Client
	databaseID notionapi.DatabaseID
	props      Properties
}

// New creates a client from settings. Outbound calls go through the
// configured proxy prefix, if any.
func New(settings service.Settings, props Properties) (*Client, error) {
	if strings.TrimSpace(settings.Notion.APIKey) == "" || strings.TrimSpace(settings.Notion.DatabaseID) == "" {
		return nil, fmt.Errorf("%w: notion api key and database id are required", service.ErrConfiguration)
	}
	return NewWithHTTPClient(proxy.Client(settings.ProxyServerURL, nil), settings.Notion.APIKey, settings.Notion.DatabaseID, props), nil
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(httpClient *http.Client, apiKey, databaseID string, props Properties) *Client {
	api := notionapi.NewClient(
		notionapi.Token(apiKey),
		notionapi.WithHTTPClient(httpClient),
		notionapi.WithRetry(maxRetries),
	)
	return &Client{
		api:        api,
		databaseID: notionapi.DatabaseID(databaseID),
		props:      props,
	}
}

// Authenticate implements service.Service by reading the database metadata.
func (c *Client) Authenticate(ctx context.Context) (bool, error) {
	if _, err := c.api.Database.Get(ctx, c.databaseID); err != nil {
		return false, wrapError(err)
	}
	return true, nil
}

// FetchTasks implements service.Service. Results are ordered by
// created_time descending.
func (c *Client) FetchTasks(ctx context.Context, pageSize int, filter *service.DateFilter) (service.FetchResult, error) {
	req := &notionapi.DatabaseQueryRequest{
		Sorts: []notionapi.SortObject{{
			Timestamp: notionapi.TimestampCreated,
			Direction: notionapi.SortOrderDESC,
		}},
		PageSize: pageSize,
	}
	if filter != nil {
		date := notionapi.Date(filter.Date.UTC())
		cond := &notionapi.DateFilterCondition{}
		switch filter.Type {
		case service.FilterAfter:
			cond.After = &date
		case service.FilterBefore:
			cond.Before = &date
		default:
			return service.FetchResult{}, fmt.Errorf("unknown date filter %q", filter.Type)
		}
		req.Filter = &notionapi.TimestampFilter{
			Timestamp:   notionapi.TimestampCreated,
			CreatedTime: cond,
		}
	}

	resp, err := c.api.Database.Query(ctx, c.databaseID, req)
	if err != nil {
		return service.FetchResult{}, wrapError(err)
	}

	result := service.FetchResult{
		Tasks:      make([]service.Task, 0, len(resp.Results)),
		HasMore:    resp.HasMore,
		NextCursor: string(resp.NextCursor),
	}
	for _, page := range resp.Results {
		result.Tasks = append(result.Tasks, c.toTask(page))
	}
	return result, nil
}

// CreateTask implements service.Service.
func (c *Client) CreateTask(ctx context.Context, task service.Task) (service.Task, error) {
	page, err := c.api.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: c.databaseID,
		},
		Properties: c.writableProperties(task),
	})
	if err != nil {
		return service.Task{}, wrapError(err)
	}
	return c.toTask(*page), nil
}

// UpdateTask implements service.Service. Title, description, read and
// stocked are written back.
func (c *Client) UpdateTask(ctx context.Context, task service.Task) (service.Task, error) {
	page, err := c.api.Page.Update(ctx, notionapi.PageID(task.SourceID), &notionapi.PageUpdateRequest{
		Properties: c.writableProperties(task),
	})
	if err != nil {
		return service.Task{}, wrapError(err)
	}
	return c.toTask(*page), nil
}

// DeleteTask implements service.Service by archiving the page.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	_, err := c.api.Page.Update(ctx, notionapi.PageID(id), &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{},
		Archived:   true,
	})
	return wrapError(err)
}

func (c *Client) writableProperties(task service.Task) notionapi.Properties {
	props := notionapi.Properties{}
	if c.props.Title != "" {
		props[c.props.Title] = notionapi.TitleProperty{
			Type:  notionapi.PropertyTypeTitle,
			Title: richText(task.Title),
		}
	}
	if c.props.Description != "" {
		props[c.props.Description] = notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(task.Description),
		}
	}
	if c.props.Read != "" {
		props[c.props.Read] = notionapi.CheckboxProperty{
			Type:     notionapi.PropertyTypeCheckbox,
			Checkbox: task.Read,
		}
	}
	if c.props.Stocked != "" {
		props[c.props.Stocked] = notionapi.CheckboxProperty{
			Type:     notionapi.PropertyTypeCheckbox,
			Checkbox: task.Stocked,
		}
	}
	return props
}

func richText(s string) []notionapi.RichText {
	if s == "" {
		return []notionapi.RichText{}
	}
	return []notionapi.RichText{{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{Content: s},
	}}
}

// toTask maps a page to a task. Read and stocked stay false: they are
// written to Notion but owned by the local store.
func (c *Client) toTask(page notionapi.Page) service.Task {
	id := page.ID.String()
	task := service.Task{
		ID:               id,
		SourceID:         id,
		Title:            c.text(page.Properties, c.props.Title),
		Description:      c.text(page.Properties, c.props.Description),
		CreatedAt:        page.CreatedTime.UTC(),
		UpdatedAt:        page.LastEditedTime.UTC(),
		Source:           service.SourceNotion,
		Tags:             c.tags(page.Properties),
		Author:           c.text(page.Properties, c.props.Author),
		URL:              c.text(page.Properties, c.props.URL),
		OGPImageURL:      c.text(page.Properties, c.props.OGPImage),
		NotionPageURL:    page.URL,
		SyncedWithNotion: true,
	}
	if task.Author == "" {
		task.Author = page.CreatedBy.Name
	}
	if page.Icon != nil {
		task.IconURL = fileURL(page.Icon.File, page.Icon.External)
	}
	if page.Cover != nil {
		task.ImageURL = fileURL(page.Cover.File, page.Cover.External)
	}
	return task
}

// text renders a property as plain text regardless of its Notion type.
func (c *Client) text(props notionapi.Properties, name string) string {
	if name == "" {
		return ""
	}
	switch p := props[name].(type) {
	case *notionapi.TitleProperty:
		return plainText(p.Title)
	case *notionapi.RichTextProperty:
		return plainText(p.RichText)
	case *notionapi.URLProperty:
		return p.URL
	case *notionapi.EmailProperty:
		return p.Email
	case *notionapi.SelectProperty:
		return p.Select.Name
	case *notionapi.PeopleProperty:
		names := make([]string, 0, len(p.People))
		for _, u := range p.People {
			if u.Name != "" {
				names = append(names, u.Name)
			}
		}
		return strings.Join(names, ", ")
	case *notionapi.CreatedByProperty:
		return p.CreatedBy.Name
	case *notionapi.FilesProperty:
		for _, f := range p.Files {
			if u := fileURL(f.File, f.External); u != "" {
				return u
			}
		}
	}
	return ""
}

func (c *Client) tags(props notionapi.Properties) []string {
	if c.props.Tags == "" {
		return nil
	}
	switch p := props[c.props.Tags].(type) {
	case *notionapi.MultiSelectProperty:
		tags := make([]string, 0, len(p.MultiSelect))
		for _, opt := range p.MultiSelect {
			tags = append(tags, opt.Name)
		}
		return tags
	case *notionapi.SelectProperty:
		if p.Select.Name != "" {
			return []string{p.Select.Name}
		}
	}
	return nil
}

func plainText(rt []notionapi.RichText) string {
	var b strings.Builder
	for _, r := range rt {
		if r.PlainText != "" {
			b.WriteString(r.PlainText)
		} else if r.Text != nil {
			b.WriteString(r.Text.Content)
		}
	}
	return b.String()
}

func fileURL(file, external *notionapi.FileObject) string {
	if file != nil && file.URL != "" {
		return file.URL
	}
	if external != nil {
		return external.URL
	}
	return ""
}

// wrapError keeps the HTTP status code in the message for error classification.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("notion request timed out: %w", err)
	}

	var apiErr *notionapi.Error
	if errors.As(err, &apiErr) {
		msg := strings.TrimSpace(apiErr.Message)
		if msg == "" {
			msg = http.StatusText(apiErr.Status)
		}
		return fmt.Errorf("notion api error %d: %s: %w", apiErr.Status, msg, err)
	}

	var urlErr *neturl.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("notion fetch failed: %w", err)
	}

	return err
}

