// Package watcher detects changes to a fixed set of project files and
// dispatches them to reactions: the tracked documents trigger a context
// resynchronization and commit, the running executable triggers a restart.
package watcher

import (
	"context"
	"errors"
	"time"
)

// =============================================================================
// Constants
// =============================================================================

// DefaultDebounce is the default debounce window for a logical key (100ms).
const DefaultDebounce = 100 * time.Millisecond

// DefaultSettleDelay is how long a restart waits for the writer of the
// executable to finish flushing.
const DefaultSettleDelay = 500 * time.Millisecond

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrNoPathsConfigured indicates a handler was built with an empty path set.
	ErrNoPathsConfigured = errors.New("no paths configured for watching")

	// ErrDuplicatePath indicates two keys resolve to the same canonical path.
	ErrDuplicatePath = errors.New("duplicate watch path")

	// ErrEmptyKey indicates a path was registered without a logical key.
	ErrEmptyKey = errors.New("logical key cannot be empty")

	// ErrInvalidPattern indicates an ignore pattern could not be compiled.
	ErrInvalidPattern = errors.New("invalid ignore pattern")

	// ErrObserverRunning indicates Start was called on a running observer.
	ErrObserverRunning = errors.New("observer already running")

	// ErrSupervisorUsed indicates Run was called on a supervisor that already ran.
	ErrSupervisorUsed = errors.New("supervisor already used")

	// ErrNoObservers indicates every observer failed to start.
	ErrNoObservers = errors.New("no observer could be started")

	// ErrRestartAborted indicates a restart was cancelled because the
	// supervisor is shutting down.
	ErrRestartAborted = errors.New("restart aborted")
)

// =============================================================================
// FileOperation
// =============================================================================

// FileOperation represents the type of file operation detected.
type FileOperation int

const (
	// OpModify indicates the content of a file changed.
	OpModify FileOperation = iota

	// OpDelete indicates a file was deleted.
	OpDelete

	// OpRename indicates a file was renamed away.
	OpRename

	// OpChmod indicates only file attributes changed.
	OpChmod
)

// String returns a human-readable name for the file operation.
func (op FileOperation) String() string {
	switch op {
	case OpModify:
		return "modify"
	case OpDelete:
		return "delete"
	case OpRename:
		return "rename"
	case OpChmod:
		return "chmod"
	default:
		return "unknown"
	}
}

// =============================================================================
// Reaction
// =============================================================================

// Reaction is the side effect a Handler runs for an accepted change.
// Trigger runs synchronously on the observer goroutine that received the
// event.
type Reaction interface {
	Trigger(ctx context.Context, key string)
}

// ReactionFunc adapts a plain function to the Reaction interface.
type ReactionFunc func(ctx context.Context, key string)

// Trigger calls f(ctx, key).
func (f ReactionFunc) Trigger(ctx context.Context, key string) {
	f(ctx, key)
}
