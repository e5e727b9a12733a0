// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"taskmirror/internal/service"
)

// ErrNotFound is returned when a task is not found.
var ErrNotFound = errors.New("fake api error 404: task not found")

// FakeService is an in-memory implementation of service.Service for testing.
// Fetches honour the date filter and page size the way the real adapters do.
type FakeService struct {
	mu    sync.Mutex
	tasks map[string]service.Task

	// Error injection for testing
	AuthenticateErr error
	FetchErr        error
	CreateTaskErr   error
	DeleteTaskErr   error
	UpdateTaskErr   map[string]error // task id -> error

	// FetchHook runs before every fetch; a hook that blocks until ctx is done
	// simulates a hung remote.
	FetchHook func(ctx context.Context)

	// Recorded calls
	FetchCalls   int
	Filters      []*service.DateFilter
	UpdateCalls  []string
	DeleteCalls  []string
	createdCount int
}

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{
		tasks:         make(map[string]service.Task),
		UpdateTaskErr: make(map[string]error),
	}
}

// AddTask stores a remote task.
func (f *FakeService) AddTask(task service.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if task.SourceID == "" {
		task.SourceID = task.ID
	}
	f.tasks[task.ID] = task
}

// Task returns the remote copy of a task.
func (f *FakeService) Task(id string) (service.Task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	return t, ok
}

// Authenticate implements service.Service.
func (f *FakeService) Authenticate(ctx context.Context) (bool, error) {
	if f.AuthenticateErr != nil {
		return false, f.AuthenticateErr
	}
	return true, nil
}

// FetchTasks implements service.Service.
func (f *FakeService) FetchTasks(ctx context.Context, pageSize int, filter *service.DateFilter) (service.FetchResult, error) {
	f.mu.Lock()
	f.FetchCalls++
	f.Filters = append(f.Filters, filter)
	hook := f.FetchHook
	fetchErr := f.FetchErr
	f.mu.Unlock()

	if hook != nil {
		hook(ctx)
	}
	if err := ctx.Err(); err != nil {
		return service.FetchResult{}, err
	}
	if fetchErr != nil {
		return service.FetchResult{}, fetchErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []service.Task
	for _, t := range f.tasks {
		if filter.Match(t.CreatedAt) {
			matched = append(matched, t)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	res := service.FetchResult{Tasks: matched}
	if pageSize > 0 && len(matched) > pageSize {
		res.Tasks = matched[:pageSize]
		res.HasMore = true
	}
	return res, nil
}

// CreateTask implements service.Service.
func (f *FakeService) CreateTask(ctx context.Context, task service.Task) (service.Task, error) {
	if f.CreateTaskErr != nil {
		return service.Task{}, f.CreateTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if task.ID == "" {
		f.createdCount++
		task.ID = fmt.Sprintf("created-%d", f.createdCount)
	}
	task.SourceID = task.ID
	f.tasks[task.ID] = task
	return task, nil
}

// UpdateTask implements service.Service.
func (f *FakeService) UpdateTask(ctx context.Context, task service.Task) (service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.UpdateCalls = append(f.UpdateCalls, task.ID)
	if err := f.UpdateTaskErr[task.ID]; err != nil {
		return service.Task{}, err
	}
	if _, ok := f.tasks[task.SourceID]; !ok {
		return service.Task{}, ErrNotFound
	}
	f.tasks[task.SourceID] = task
	return task, nil
}

// DeleteTask implements service.Service.
func (f *FakeService) DeleteTask(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DeleteCalls = append(f.DeleteCalls, id)
	if f.DeleteTaskErr != nil {
		return f.DeleteTaskErr
	}
	if _, ok := f.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(f.tasks, id)
	return nil
}

// Factory returns a source factory that always yields f.
func (f *FakeService) Factory() func(context.Context, service.Settings) (service.Service, error) {
	return func(context.Context, service.Settings) (service.Service, error) {
		return f, nil
	}
}
