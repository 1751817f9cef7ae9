package worker

import "errors"

// Sentinel errors returned by pool lifecycle and submission calls. They
// are returned unwrapped so callers can compare with errors.Is or plain
// equality.
var (
	// ErrPoolNotStarted means work was submitted before Start.
	ErrPoolNotStarted = errors.New("worker pool not started")

	// ErrPoolStopped means work was submitted after Stop completed.
	ErrPoolStopped = errors.New("worker pool stopped")

	// ErrPoolAlreadyStarted means Start was called twice.
	ErrPoolAlreadyStarted = errors.New("worker pool already started")

	// ErrQueueFull means a non-blocking Submit found the queue at capacity.
	ErrQueueFull = errors.New("worker pool queue full")

	// ErrNilProcessor is the panic value for a nil processor function.
	ErrNilProcessor = errors.New("processor function cannot be nil")

	// ErrStopTimeout means workers were still busy when the Stop timeout
	// elapsed. Stop may be retried.
	ErrStopTimeout = errors.New("timeout waiting for workers to stop")
)
