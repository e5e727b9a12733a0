// Package actions applies user edits to single tasks.
package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"taskmirror/internal/logging"
	"taskmirror/internal/service"
	"taskmirror/internal/syncer"
)

// ErrShareCanceled is returned by a Sharer when the user dismissed the share.
var ErrShareCanceled = errors.New("share canceled")

// Store is the local persistence the actions write through.
type Store interface {
	Upsert(ctx context.Context, task service.Task, markUnsyncedIfNotion bool) error
	Delete(ctx context.Context, id string) error
}

// Engine is the part of the sync engine the actions drive.
type Engine interface {
	ReplaceTask(task service.Task)
	RemoveTask(id string)
	PushUnsyncedChanges(ctx context.Context) (syncer.PushResult, error)
}

// ShareData is what gets shared for a task.
type ShareData struct {
	Title string
	Text  string
	URL   string
}

// Sharer hands a task to a platform share facility.
type Sharer interface {
	Share(ctx context.Context, data ShareData) error
}

// Clipboard receives the text block when no Sharer is available.
type Clipboard interface {
	WriteAll(text string) error
}

// SystemClipboard writes to the OS clipboard.
type SystemClipboard struct{}

func (SystemClipboard) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}

// Option configures Actions.
type Option func(*Actions)

func WithSharer(s Sharer) Option { return func(a *Actions) { a.sharer = s } }

func WithClipboard(c Clipboard) Option { return func(a *Actions) { a.clip = c } }

func WithLogger(l logging.Logger) Option { return func(a *Actions) { a.log = l } }

func WithClock(now func() time.Time) Option { return func(a *Actions) { a.now = now } }

// Actions implements toggle, delete and share.
type Actions struct {
	store    Store
	engine   Engine
	notifier syncer.Notifier
	sharer   Sharer
	clip     Clipboard
	log      logging.Logger
	now      func() time.Time
}

func New(store Store, engine Engine, notifier syncer.Notifier, opts ...Option) *Actions {
	a := &Actions{
		store:    store,
		engine:   engine,
		notifier: notifier,
		clip:     SystemClipboard{},
		log:      logging.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ToggleRead flips the read flag and returns the task as stored.
func (a *Actions) ToggleRead(ctx context.Context, task service.Task) (service.Task, error) {
	task.Read = !task.Read
	msg := "Marked as unread"
	if task.Read {
		msg = "Marked as read"
	}
	return a.write(ctx, task, msg)
}

// ToggleStock flips the stocked flag and returns the task as stored.
func (a *Actions) ToggleStock(ctx context.Context, task service.Task) (service.Task, error) {
	task.Stocked = !task.Stocked
	msg := "Removed from stock"
	if task.Stocked {
		msg = "Stocked"
	}
	return a.write(ctx, task, msg)
}

// write persists a local edit. Notion tasks are then pushed; push problems
// go to the notifier and do not fail the edit.
func (a *Actions) write(ctx context.Context, task service.Task, msg string) (service.Task, error) {
	task.UpdatedAt = a.now().UTC()
	if err := a.store.Upsert(ctx, task, true); err != nil {
		return task, fmt.Errorf("failed to save task: %w", err)
	}
	if task.Source == service.SourceNotion {
		task.SyncedWithNotion = false
	}
	a.engine.ReplaceTask(task)
	a.notifier.Notify(syncer.Notice{Level: syncer.LevelSuccess, Message: msg})

	if task.Source == service.SourceNotion {
		a.push(ctx)
	}
	return task, nil
}

func (a *Actions) push(ctx context.Context) {
	res, err := a.engine.PushUnsyncedChanges(ctx)
	if err != nil {
		serr := syncer.Classify(err)
		a.log.Warn(ctx, "push after edit failed", "kind", serr.Kind.String(), "error", err)
		a.notifier.Notify(syncer.Notice{Level: syncer.LevelError, Message: serr.Kind.Title(), Detail: serr.Detail()})
		return
	}
	a.log.Debug(ctx, "pushed after edit", "success", res.Success, "failed", res.Failed)
}

// Delete removes the task locally. The remote item is left untouched.
func (a *Actions) Delete(ctx context.Context, task service.Task) error {
	if err := a.store.Delete(ctx, task.ID); err != nil {
		return fmt.Errorf("failed to delete task %s: %w", task.ID, err)
	}
	a.engine.RemoveTask(task.ID)
	a.notifier.Notify(syncer.Notice{Level: syncer.LevelSuccess, Message: "Deleted"})
	return nil
}

// Share sends the task to the Sharer, or copies it to the clipboard when
// there is none or it fails. A canceled share is not an error.
func (a *Actions) Share(ctx context.Context, task service.Task) error {
	data := ShareDataFor(task)

	if a.sharer != nil {
		err := a.sharer.Share(ctx, data)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrShareCanceled):
			a.log.Debug(ctx, "share canceled", "task_id", task.ID)
			return nil
		}
		a.log.Warn(ctx, "share failed, falling back to clipboard", "task_id", task.ID, "error", err)
	}

	if err := a.clip.WriteAll(FormatShareText(data)); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	a.notifier.Notify(syncer.Notice{Level: syncer.LevelSuccess, Message: "Copied to clipboard"})
	return nil
}

// ShareDataFor builds the share payload of a task.
func ShareDataFor(task service.Task) ShareData {
	return ShareData{
		Title: task.DisplayTitle(),
		Text:  task.Description,
		URL:   task.ShareURL(),
	}
}

// FormatShareText renders share data as a plain text block, one field per line.
func FormatShareText(d ShareData) string {
	lines := make([]string, 0, 3)
	for _, s := range []string{d.Title, d.Text, d.URL} {
		if s = strings.TrimSpace(s); s != "" {
			lines = append(lines, s)
		}
	}
	return strings.Join(lines, "\n")
}
