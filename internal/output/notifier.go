package output

import (
	"fmt"
	"io"
	"strings"

	"taskmirror/internal/service"
	"taskmirror/internal/syncer"
)

// Notifier prints engine notices. Errors go to ErrOut with their detail
// indented below; other notices go to Out unless Quiet is set.
type Notifier struct {
	Out    io.Writer
	ErrOut io.Writer
	Quiet  bool
}

// Notify implements syncer.Observer.
func (n *Notifier) Notify(no syncer.Notice) {
	if no.Level == syncer.LevelError {
		fmt.Fprintf(n.ErrOut, "error: %s\n", no.Message)
		for _, line := range strings.Split(strings.TrimSpace(no.Detail), "\n") {
			if line != "" {
				fmt.Fprintf(n.ErrOut, "  %s\n", line)
			}
		}
		return
	}
	if !n.Quiet {
		fmt.Fprintln(n.Out, no.Message)
	}
}

// TasksChanged implements syncer.Observer. Commands print the collection themselves.
func (n *Notifier) TasksChanged([]service.Task) {}

// SettingsChanged implements syncer.Observer.
func (n *Notifier) SettingsChanged(service.Settings) {}
