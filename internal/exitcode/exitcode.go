// Package exitcode defines exit codes for the CLI.
package exitcode

const (
	// Success indicates successful completion.
	Success = 0

	// UserError covers bad arguments, unknown task references and a sync
	// that is already running.
	UserError = 1

	// AuthError indicates missing backend configuration or rejected credentials.
	AuthError = 2

	// BackendError indicates a remote, network, push or local storage failure.
	BackendError = 3
)
