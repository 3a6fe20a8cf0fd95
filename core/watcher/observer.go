package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

// DefaultIgnorePatterns filters editor swap and backup files before they
// reach a handler.
var DefaultIgnorePatterns = []string{"*.swp", "*.swx", "*~", ".#*", "4913", "*.tmp"}

// =============================================================================
// Observer
// =============================================================================

// Observer owns one fsnotify subscription for a Handler and runs its event
// loop on a dedicated goroutine. An Observer is single use: once stopped it
// cannot be started again.
type Observer struct {
	handler  *Handler
	excludes []glob.Glob
	logger   *slog.Logger

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	started  bool
	stopped  atomic.Bool
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewObserver creates an observer for handler. ignore holds glob patterns for
// file names that are dropped before dispatch.
func NewObserver(handler *Handler, ignore []string, logger *slog.Logger) (*Observer, error) {
	excludes, err := compileIgnorePatterns(ignore)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{
		handler:  handler,
		excludes: excludes,
		logger:   logger,
		done:     make(chan struct{}),
	}, nil
}

// compileIgnorePatterns compiles glob patterns for ignore matching.
func compileIgnorePatterns(patterns []string) ([]glob.Glob, error) {
	excludes := make([]glob.Glob, 0, len(patterns))

	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, errors.Join(ErrInvalidPattern, err)
		}
		excludes = append(excludes, g)
	}

	return excludes, nil
}

// Handler returns the observed handler.
func (o *Observer) Handler() *Handler {
	return o.handler
}

// =============================================================================
// Start
// =============================================================================

// Start subscribes to the parent directories of the handler's files
// (non-recursive) and starts the event loop. Reactions receive a context that
// carries ctx's values but is never cancelled by Stop, so an in-flight
// reaction always runs to completion.
func (o *Observer) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.started {
		return ErrObserverRunning
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}

	for _, dir := range o.handler.Index().Dirs() {
		if err := w.Add(dir); err != nil {
			w.Close()
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	o.watcher = w
	o.started = true
	o.wg.Add(1)
	go o.processEvents(context.WithoutCancel(ctx))

	o.logger.Info("observer started",
		"component", "watcher",
		"handler", o.handler.Name(),
		"dirs", o.handler.Index().Dirs(),
	)
	return nil
}

// =============================================================================
// Event Processing
// =============================================================================

// processEvents reads from fsnotify until Stop is called.
func (o *Observer) processEvents(ctx context.Context) {
	defer o.wg.Done()

	for {
		if shouldStop := o.processOnce(ctx); shouldStop {
			return
		}
	}
}

// processOnce processes one iteration of the event loop.
// Returns true if the loop should stop.
func (o *Observer) processOnce(ctx context.Context) bool {
	select {
	case <-o.done:
		return true
	case event, ok := <-o.watcher.Events:
		if !ok {
			return true
		}
		o.handleFSEvent(ctx, event)
		return false
	case err, ok := <-o.watcher.Errors:
		if !ok {
			return true
		}
		o.logger.Warn("fsnotify error",
			"component", "watcher",
			"handler", o.handler.Name(),
			"error", err,
		)
		return false
	}
}

// handleFSEvent filters a single fsnotify event and dispatches modifications.
func (o *Observer) handleFSEvent(ctx context.Context, event fsnotify.Event) {
	if o.stopped.Load() {
		return
	}
	if mapFSNotifyOperation(event.Op) != OpModify {
		return
	}
	if o.isExcluded(event.Name) {
		return
	}
	o.dispatch(ctx, event.Name)
}

// dispatch runs the handler, recovering from a panicking reaction so the
// loop keeps serving events.
func (o *Observer) dispatch(ctx context.Context, path string) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("reaction panicked",
				"component", "watcher",
				"handler", o.handler.Name(),
				"path", path,
				"panic", r,
			)
		}
	}()
	o.handler.OnEvent(ctx, path)
}

// fsOpMappings defines the mapping from fsnotify operations to FileOperation.
// Order matters: first match wins. Create is a modification because editors
// and build tools replace files by renaming a temp file over them.
var fsOpMappings = []struct {
	fsOp   fsnotify.Op
	fileOp FileOperation
}{
	{fsnotify.Write, OpModify},
	{fsnotify.Create, OpModify},
	{fsnotify.Remove, OpDelete},
	{fsnotify.Rename, OpRename},
	{fsnotify.Chmod, OpChmod},
}

// mapFSNotifyOperation converts fsnotify.Op to FileOperation.
func mapFSNotifyOperation(op fsnotify.Op) FileOperation {
	for _, m := range fsOpMappings {
		if op.Has(m.fsOp) {
			return m.fileOp
		}
	}
	return OpChmod
}

// isExcluded checks if a path matches any ignore pattern.
func (o *Observer) isExcluded(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range o.excludes {
		if pattern.Match(path) || pattern.Match(base) {
			return true
		}
	}
	return false
}

// =============================================================================
// Stop
// =============================================================================

// Stop unsubscribes and waits for the event loop to exit. When Stop returns
// no reaction is running and none will start. Safe to call multiple times and
// on an observer that was never started.
func (o *Observer) Stop() error {
	var err error
	o.stopOnce.Do(func() {
		o.stopped.Store(true)
		close(o.done)

		o.mu.Lock()
		w := o.watcher
		o.mu.Unlock()

		if w != nil {
			err = w.Close()
		}
		o.wg.Wait()

		o.logger.Info("observer stopped",
			"component", "watcher",
			"handler", o.handler.Name(),
		)
	})
	return err
}
