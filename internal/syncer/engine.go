// Package syncer mirrors a remote task source into the local store.
//
// The engine runs one sync at a time in either direction: Refresh catches up
// with items created after the newest stored item, LoadMore fetches the page
// created before the oldest one. Every merged batch is followed by a full
// re-read of the store, so observers always see the deduplicated collection.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskmirror/internal/logging"
	"taskmirror/internal/service"
)

const (
	DefaultPageSize = 20
	DefaultTimeout  = 30 * time.Second
)

// Store is the local persistence the engine reads and merges into.
type Store interface {
	GetAll(ctx context.Context) ([]service.Task, error)
	AddTask(ctx context.Context, task service.Task) (bool, error)
	Upsert(ctx context.Context, task service.Task, markUnsyncedIfNotion bool) error
	GetUnsynced(ctx context.Context) ([]service.Task, error)
	Clear(ctx context.Context) error
	GetSettings(ctx context.Context) (service.Settings, error)
	SaveSettings(ctx context.Context, settings service.Settings) error
}

// SourceFactory resolves the remote adapter for the current settings.
type SourceFactory func(ctx context.Context, settings service.Settings) (service.Service, error)

// Result summarizes a finished sync.
type Result struct {
	Fetched  int
	Inserted int
	HasMore  bool
}

// Option configures an Engine.
type Option func(*Engine)

func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.obs = o
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithTimeout bounds each remote call. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithPageSize sets the number of items requested per sync.
func WithPageSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.pageSize = n
		}
	}
}

// Engine owns the sync state and the in-memory task collection.
type Engine struct {
	store    Store
	sources  SourceFactory
	obs      Observer
	log      logging.Logger
	timeout  time.Duration
	pageSize int

	mu       sync.Mutex
	state    State
	tasks    []service.Task
	settings service.Settings
}

func New(store Store, sources SourceFactory, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		sources:  sources,
		obs:      nopObserver{},
		log:      logging.Nop(),
		timeout:  DefaultTimeout,
		pageSize: DefaultPageSize,
		state:    State{Phase: Idle, HasMore: true},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load reads the stored collection and settings into memory and publishes them.
func (e *Engine) Load(ctx context.Context) error {
	tasks, err := e.store.GetAll(ctx)
	if err != nil {
		return storeErrorf("failed to load tasks: %w", err)
	}
	settings, err := e.store.GetSettings(ctx)
	if err != nil {
		return storeErrorf("failed to load settings: %w", err)
	}

	e.mu.Lock()
	e.tasks = tasks
	e.settings = settings
	e.mu.Unlock()

	e.obs.SettingsChanged(settings)
	e.obs.TasksChanged(slices.Clone(tasks))
	return nil
}

// State returns a snapshot of the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Settings returns the settings as last loaded or saved by the engine.
func (e *Engine) Settings() service.Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// Sync runs one sync in the given direction. It returns ErrBusy without side
// effects when another sync is running. Failures are reported to the
// observer and returned as *Error.
func (e *Engine) Sync(ctx context.Context, dir Direction) (Result, error) {
	if !e.begin(dir.phase()) {
		return Result{}, ErrBusy
	}
	defer e.finish()

	log := e.log.With("run_id", uuid.NewString(), "direction", dir.String())
	log.Debug(ctx, "sync started")

	res, err := e.run(ctx, dir, log)
	if err != nil {
		serr := Classify(err)
		log.Error(ctx, "sync failed", "kind", serr.Kind.String(), "error", err)
		e.obs.Notify(Notice{Level: LevelError, Message: serr.Kind.Title(), Detail: serr.Detail()})
		return res, serr
	}

	log.Info(ctx, "sync finished", "fetched", res.Fetched, "inserted", res.Inserted, "has_more", res.HasMore)
	return res, nil
}

func (e *Engine) run(ctx context.Context, dir Direction, log logging.Logger) (Result, error) {
	settings, err := e.store.GetSettings(ctx)
	if err != nil {
		return Result{}, storeErrorf("failed to load settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return Result{}, err
	}

	var filter *service.DateFilter
	switch dir {
	case Refresh:
		if settings.NewestTaskCreatedAt != nil {
			filter = &service.DateFilter{Type: service.FilterAfter, Date: *settings.NewestTaskCreatedAt}
		}
	case LoadMore:
		if settings.OldestTaskCreatedAt == nil {
			log.Debug(ctx, "no sync position recorded, nothing older to load")
			e.setHasMore(false)
			return Result{HasMore: false}, nil
		}
		filter = &service.DateFilter{Type: service.FilterBefore, Date: *settings.OldestTaskCreatedAt}
	}

	src, err := e.sources(ctx, settings)
	if err != nil {
		return Result{}, err
	}

	fetched, err := e.fetch(ctx, src, filter)
	if err != nil {
		return Result{}, err
	}
	log.Debug(ctx, "fetched page", "count", len(fetched.Tasks), "remote_has_more", fetched.HasMore)

	if len(fetched.Tasks) == 0 {
		if dir == LoadMore {
			e.setHasMore(false)
		} else {
			e.obs.Notify(Notice{Level: LevelInfo, Message: "No new items"})
		}
		return Result{HasMore: e.State().HasMore}, nil
	}

	res := Result{Fetched: len(fetched.Tasks)}
	for _, task := range fetched.Tasks {
		inserted, err := e.store.AddTask(ctx, task)
		if err != nil {
			return res, storeErrorf("failed to store task %s: %w", task.ID, err)
		}
		if inserted {
			res.Inserted++
		}
	}

	if err := e.reload(ctx); err != nil {
		return res, err
	}

	newest, oldest := bounds(fetched.Tasks)
	settings.NewestTaskCreatedAt = later(settings.NewestTaskCreatedAt, newest)
	settings.OldestTaskCreatedAt = earlier(settings.OldestTaskCreatedAt, oldest)
	if err := e.saveSettings(ctx, settings); err != nil {
		return res, err
	}

	res.HasMore = e.State().HasMore
	if dir == Refresh {
		e.obs.Notify(Notice{Level: LevelSuccess, Message: fmt.Sprintf("Synced %d %s", res.Fetched, plural(res.Fetched, "item"))})
	}
	return res, nil
}

// fetch races the adapter call against the timeout. On timeout the adapter
// is left to observe its cancelled context.
func (e *Engine) fetch(ctx context.Context, src service.Service, filter *service.DateFilter) (service.FetchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type outcome struct {
		res service.FetchResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := src.FetchTasks(ctx, e.pageSize, filter)
		done <- outcome{res, err}
	}()

	select {
	case o := <-done:
		return o.res, o.err
	case <-ctx.Done():
		err := ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			return service.FetchResult{}, fmt.Errorf("source did not respond within %s: %w", e.timeout, err)
		}
		return service.FetchResult{}, err
	}
}

// reload replaces the in-memory collection with the store contents and publishes it.
func (e *Engine) reload(ctx context.Context) error {
	tasks, err := e.store.GetAll(ctx)
	if err != nil {
		return storeErrorf("failed to reload tasks: %w", err)
	}
	e.mu.Lock()
	e.tasks = tasks
	e.mu.Unlock()

	e.obs.TasksChanged(slices.Clone(tasks))
	return nil
}

// SaveSettings persists settings and publishes them.
func (e *Engine) SaveSettings(ctx context.Context, settings service.Settings) error {
	return e.saveSettings(ctx, settings)
}

func (e *Engine) saveSettings(ctx context.Context, settings service.Settings) error {
	if err := e.store.SaveSettings(ctx, settings); err != nil {
		return storeErrorf("failed to save settings: %w", err)
	}
	e.mu.Lock()
	e.settings = settings
	e.mu.Unlock()

	e.obs.SettingsChanged(settings)
	return nil
}

// ClearData deletes every stored task and resets the sync position.
// Backend settings are kept.
func (e *Engine) ClearData(ctx context.Context) error {
	if !e.begin(Syncing) {
		return ErrBusy
	}
	defer e.finish()

	if err := e.store.Clear(ctx); err != nil {
		return storeErrorf("failed to clear tasks: %w", err)
	}
	settings, err := e.store.GetSettings(ctx)
	if err != nil {
		return storeErrorf("failed to load settings: %w", err)
	}
	settings.ResetSyncPosition()
	if err := e.saveSettings(ctx, settings); err != nil {
		return err
	}

	e.mu.Lock()
	e.tasks = nil
	e.state.HasMore = true
	e.mu.Unlock()

	e.obs.TasksChanged(nil)
	e.log.Info(ctx, "local data cleared")
	return nil
}

// Tasks returns a copy of the in-memory collection.
func (e *Engine) Tasks() []service.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.tasks)
}

// ReplaceTask swaps the in-memory copy of task, keyed by ID, and publishes
// the collection. Unknown tasks are appended.
func (e *Engine) ReplaceTask(task service.Task) {
	e.mu.Lock()
	i := slices.IndexFunc(e.tasks, func(t service.Task) bool { return t.ID == task.ID })
	if i >= 0 {
		e.tasks[i] = task
	} else {
		e.tasks = append(e.tasks, task)
	}
	tasks := slices.Clone(e.tasks)
	e.mu.Unlock()

	e.obs.TasksChanged(tasks)
}

// RemoveTask drops a task from the in-memory collection and publishes it.
func (e *Engine) RemoveTask(id string) {
	e.mu.Lock()
	e.tasks = slices.DeleteFunc(e.tasks, func(t service.Task) bool { return t.ID == id })
	tasks := slices.Clone(e.tasks)
	e.mu.Unlock()

	e.obs.TasksChanged(tasks)
}

func (e *Engine) begin(p Phase) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Phase != Idle {
		return false
	}
	e.state.Phase = p
	return true
}

func (e *Engine) finish() {
	e.mu.Lock()
	e.state.Phase = Idle
	e.mu.Unlock()
}

func (e *Engine) setHasMore(v bool) {
	e.mu.Lock()
	e.state.HasMore = v
	e.mu.Unlock()
}

func bounds(tasks []service.Task) (newest, oldest time.Time) {
	for i, t := range tasks {
		if i == 0 || t.CreatedAt.After(newest) {
			newest = t.CreatedAt
		}
		if i == 0 || t.CreatedAt.Before(oldest) {
			oldest = t.CreatedAt
		}
	}
	return newest, oldest
}

func later(cur *time.Time, t time.Time) *time.Time {
	if cur != nil && !t.After(*cur) {
		return cur
	}
	return &t
}

func earlier(cur *time.Time, t time.Time) *time.Time {
	if cur != nil && !t.Before(*cur) {
		return cur
	}
	return &t
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
