package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"taskmirror/internal/exitcode"
	"taskmirror/internal/syncer"
)

// exitCodeFor maps an error to the process exit code.
func exitCodeFor(err error) int {
	if err == nil {
		return exitcode.Success
	}
	if errors.Is(err, syncer.ErrBusy) {
		return exitcode.UserError
	}
	var serr *syncer.Error
	if errors.As(err, &serr) {
		switch serr.Kind {
		case syncer.KindConfiguration, syncer.KindAuthentication:
			return exitcode.AuthError
		}
		return exitcode.BackendError
	}
	return exitcode.BackendError
}

// printError writes err to errOut. Classified errors are printed the way the
// notifier prints error notices. Errors the engine already reported must not
// be passed here.
func printError(errOut io.Writer, err error) int {
	var serr *syncer.Error
	if !errors.As(err, &serr) {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitCodeFor(err)
	}
	fmt.Fprintf(errOut, "error: %s\n", serr.Kind.Title())
	for _, line := range strings.Split(serr.Detail(), "\n") {
		if line != "" {
			fmt.Fprintf(errOut, "  %s\n", line)
		}
	}
	return exitCodeFor(serr)
}
