package watcher

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/adalundhe/ctxsync/core/commit"
	"github.com/adalundhe/ctxsync/core/pipeline"
)

// Synchronizer rebuilds and persists the context payload.
type Synchronizer interface {
	Run(ctx context.Context) (*pipeline.ContextPayload, error)
}

// Committer stages and commits every repository change.
type Committer interface {
	CommitAll(ctx context.Context) (*commit.Result, error)
}

// =============================================================================
// DocumentReaction
// =============================================================================

// DocumentReaction resynchronizes the full context and commits whenever any
// tracked document changes. The key is logged but not branched on.
type DocumentReaction struct {
	sync      Synchronizer
	committer Committer
	drain     *sync.Mutex
	logger    *slog.Logger
}

// NewDocumentReaction creates the document reaction. drain is shared with the
// Restarter so a restart waits for an in-flight commit.
func NewDocumentReaction(s Synchronizer, c Committer, drain *sync.Mutex, logger *slog.Logger) *DocumentReaction {
	if drain == nil {
		drain = &sync.Mutex{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentReaction{sync: s, committer: c, drain: drain, logger: logger}
}

// Trigger runs the synchronization pipeline, then the commit reactor.
// Failures are logged; the observer keeps running.
func (d *DocumentReaction) Trigger(ctx context.Context, key string) {
	d.drain.Lock()
	defer d.drain.Unlock()

	if _, err := d.sync.Run(ctx); err != nil {
		d.logger.Error("context synchronization failed",
			"component", "watcher",
			"operation", "sync",
			"key", key,
			"error", err,
		)
		return
	}

	res, err := d.committer.CommitAll(ctx)
	if err != nil {
		d.logger.Error("commit failed",
			"component", "watcher",
			"operation", "commit",
			"key", key,
			"error", err,
		)
		return
	}
	if !res.Committed {
		d.logger.Info("nothing to commit",
			"component", "watcher",
			"key", key,
		)
	}
}

// =============================================================================
// SelfRestartReaction
// =============================================================================

// SelfRestartReaction restarts the process when its executable changes.
type SelfRestartReaction struct {
	restarter *Restarter
	logger    *slog.Logger
}

// NewSelfRestartReaction creates the self-restart reaction.
func NewSelfRestartReaction(r *Restarter, logger *slog.Logger) *SelfRestartReaction {
	if logger == nil {
		logger = slog.Default()
	}
	return &SelfRestartReaction{restarter: r, logger: logger}
}

// Trigger executes the restart. It only returns if the restart failed.
func (s *SelfRestartReaction) Trigger(ctx context.Context, _ string) {
	err := s.restarter.Execute(ctx)
	if errors.Is(err, ErrRestartAborted) {
		s.logger.Info("self restart skipped during shutdown", "component", "watcher")
		return
	}
	if err != nil {
		s.logger.Error("self restart failed",
			"component", "watcher",
			"operation", "restart",
			"error", err,
		)
	}
}
