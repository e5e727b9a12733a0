package commands

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"taskmirror/internal/app"
	"taskmirror/internal/exitcode"
	"taskmirror/internal/filter"
	"taskmirror/internal/service"
)

// TaskRef is a parsed task reference: a 1-based row number of the current
// projection, or a task id (a unique prefix is enough).
type TaskRef struct {
	Num int
	ID  string
}

// minIDPrefix is the shortest id prefix accepted as a reference.
const minIDPrefix = 4

var (
	// ErrTaskRefRequired indicates no task reference was provided.
	ErrTaskRefRequired = errors.New("task reference required")

	// ErrTaskNotFound indicates no task matches an id reference.
	ErrTaskNotFound = errors.New("task not found")

	// ErrAmbiguousRef indicates an id prefix matches more than one task.
	ErrAmbiguousRef = errors.New("ambiguous task reference")
)

// ParseTaskRef parses a task reference from args.
//
// Parsing rules:
// 1. No args → error: task reference required
// 2. All digits → row number
// 3. Anything else → task id or id prefix
// 4. Extra args → error: unexpected argument
func ParseTaskRef(args []string) (TaskRef, error) {
	if len(args) == 0 {
		return TaskRef{}, ErrTaskRefRequired
	}
	if len(args) > 1 {
		return TaskRef{}, fmt.Errorf("unexpected argument: %s", args[1])
	}

	arg := strings.TrimSpace(args[0])
	if arg == "" {
		return TaskRef{}, ErrTaskRefRequired
	}
	if isAllDigits(arg) {
		num, err := strconv.Atoi(arg)
		if err != nil {
			return TaskRef{}, fmt.Errorf("invalid task reference: %s", arg)
		}
		return TaskRef{Num: num}, nil
	}
	return TaskRef{ID: arg}, nil
}

// Resolve finds the referenced task in tasks. Row numbers index tasks
// directly; ids match exactly first, then by unique prefix.
func (r TaskRef) Resolve(tasks []service.Task) (service.Task, error) {
	if r.ID == "" {
		if r.Num < 1 || r.Num > len(tasks) {
			return service.Task{}, fmt.Errorf("task number out of range: %d", r.Num)
		}
		return tasks[r.Num-1], nil
	}

	for _, t := range tasks {
		if t.ID == r.ID {
			return t, nil
		}
	}

	if len(r.ID) < minIDPrefix {
		return service.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, r.ID)
	}
	var found []service.Task
	for _, t := range tasks {
		if strings.HasPrefix(t.ID, r.ID) {
			found = append(found, t)
		}
	}
	switch len(found) {
	case 0:
		return service.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, r.ID)
	case 1:
		return found[0], nil
	}
	return service.Task{}, fmt.Errorf("%w: %s", ErrAmbiguousRef, r.ID)
}

// isAllDigits returns true if s is non-empty and contains only ASCII digits.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// viewFlags selects the projection that row numbers refer to. Commands that
// take a row number accept the same flags as list so the numbers line up.
type viewFlags struct {
	search string
	status string
}

func (v *viewFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&v.search, "search", "", "")
	fs.StringVar(&v.search, "s", "", "")
	fs.StringVar(&v.status, "filter", "", "")
	fs.StringVar(&v.status, "f", "", "")
}

// project applies the search and status filter to tasks.
func (v *viewFlags) project(tasks []service.Task) ([]service.Task, error) {
	status, err := filter.ParseStatus(v.status)
	if err != nil {
		return nil, err
	}
	return filter.Project(tasks, v.search, status), nil
}

// lookup parses args and resolves the task against the current projection.
// On failure it prints the error and returns a non-zero exit code.
func (v *viewFlags) lookup(a *app.App, args []string, errOut io.Writer) (service.Task, int) {
	ref, err := ParseTaskRef(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return service.Task{}, exitcode.UserError
	}
	tasks, err := v.project(a.Engine.Tasks())
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return service.Task{}, exitcode.UserError
	}
	task, err := ref.Resolve(tasks)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return service.Task{}, exitcode.UserError
	}
	return task, exitcode.Success
}
