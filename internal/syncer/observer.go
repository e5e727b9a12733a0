package syncer

import "taskmirror/internal/service"

// Level is the severity of a notice.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notice is a user-facing message. Detail is optional long-form text.
type Notice struct {
	Level   Level
	Message string
	Detail  string
}

// Observer receives engine output. Calls are made without engine locks held.
type Observer interface {
	// TasksChanged receives the full collection, newest first.
	TasksChanged(tasks []service.Task)
	SettingsChanged(settings service.Settings)
	Notify(n Notice)
}

// Notifier is the subset of Observer used by callers that only report.
type Notifier interface {
	Notify(n Notice)
}

type nopObserver struct{}

func (nopObserver) TasksChanged([]service.Task)      {}
func (nopObserver) SettingsChanged(service.Settings) {}
func (nopObserver) Notify(Notice)                    {}
