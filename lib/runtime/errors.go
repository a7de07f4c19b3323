package runtime

import "errors"

var (
	// ErrNotFound is returned when an operation assumes a resource exists
	// and the runtime reports it absent.
	ErrNotFound = errors.New("resource not found")

	// ErrNotRunning is returned when an exec targets a container that is
	// not running.
	ErrNotRunning = errors.New("container not running")
)
