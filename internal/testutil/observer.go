package testutil

import (
	"sync"

	"taskmirror/internal/service"
	"taskmirror/internal/syncer"
)

// RecordingObserver captures everything the engine publishes.
type RecordingObserver struct {
	mu       sync.Mutex
	tasks    [][]service.Task
	settings []service.Settings
	notices  []syncer.Notice
}

// TasksChanged implements syncer.Observer.
func (r *RecordingObserver) TasksChanged(tasks []service.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, tasks)
}

// SettingsChanged implements syncer.Observer.
func (r *RecordingObserver) SettingsChanged(s service.Settings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = append(r.settings, s)
}

// Notify implements syncer.Observer.
func (r *RecordingObserver) Notify(n syncer.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

// LastTasks returns the most recently published collection.
func (r *RecordingObserver) LastTasks() []service.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.tasks) == 0 {
		return nil
	}
	return r.tasks[len(r.tasks)-1]
}

// TaskPublishes returns how many times the collection was published.
func (r *RecordingObserver) TaskPublishes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// LastSettings returns the most recently published settings.
func (r *RecordingObserver) LastSettings() (service.Settings, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.settings) == 0 {
		return service.Settings{}, false
	}
	return r.settings[len(r.settings)-1], true
}

// Notices returns a copy of all notices.
func (r *RecordingObserver) Notices() []syncer.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]syncer.Notice(nil), r.notices...)
}
