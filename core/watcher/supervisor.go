package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// State is the lifecycle state of a Supervisor.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateShuttingDown
	StateStopped
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Handler names used in logs.
const (
	DocumentsHandlerName = "documents"
	SelfHandlerName      = "self"
	selfKey              = "self"
)

// SupervisorConfig configures a Supervisor.
type SupervisorConfig struct {
	// Documents maps logical keys ("architecture") to document paths.
	Documents map[string]string

	// SelfPath is the file whose change triggers a restart. Defaults to the
	// Restarter's executable.
	SelfPath string

	// Debounce is the per-key debounce window. Zero uses DefaultDebounce.
	Debounce time.Duration

	// Ignore holds glob patterns dropped before dispatch.
	Ignore []string

	Synchronizer Synchronizer
	Committer    Committer

	// Restarter performs the self restart. A nil Restarter disables the self
	// watcher.
	Restarter *Restarter

	// Drain is shared between the document reaction and the Restarter.
	Drain *sync.Mutex

	Logger *slog.Logger
}

// Supervisor runs the document and self observers until its context is
// cancelled, then shuts them down in order: documents first, then self.
type Supervisor struct {
	cfg    SupervisorConfig
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	docs    *Handler
	self    *Handler
	docObs  *Observer
	selfObs *Observer
	baseCtx context.Context
}

// NewSupervisor creates an idle supervisor.
func NewSupervisor(cfg SupervisorConfig) *Supervisor {
	if cfg.Drain == nil {
		cfg.Drain = &sync.Mutex{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Ignore == nil {
		cfg.Ignore = DefaultIgnorePatterns
	}
	return &Supervisor{cfg: cfg, logger: cfg.Logger, state: StateIdle}
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Run starts both observers and blocks until ctx is cancelled. A watcher
// that fails to start is logged and skipped; Run fails only when neither
// starts.
func (s *Supervisor) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrSupervisorUsed
	}
	s.baseCtx = ctx

	if err := s.buildHandlers(); err != nil {
		s.state = StateStopped
		s.mu.Unlock()
		return err
	}

	var errs []error
	if obs, err := s.startObserver(ctx, s.docs); err != nil {
		errs = append(errs, fmt.Errorf("%s watcher: %w", DocumentsHandlerName, err))
	} else {
		s.docObs = obs
	}
	if s.self != nil {
		if obs, err := s.startObserver(ctx, s.self); err != nil {
			errs = append(errs, fmt.Errorf("%s watcher: %w", SelfHandlerName, err))
		} else {
			s.selfObs = obs
		}
	}

	for _, err := range errs {
		s.logger.Error("watcher failed to start",
			"component", "supervisor",
			"error", err,
		)
	}

	if s.docObs == nil && s.selfObs == nil {
		s.state = StateStopped
		s.mu.Unlock()
		return errors.Join(append([]error{ErrNoObservers}, errs...)...)
	}

	s.state = StateRunning
	s.mu.Unlock()

	if s.cfg.Restarter != nil {
		s.cfg.Restarter.SetHooks(s.pauseDocuments, s.resumeDocuments)
	}

	s.logger.Info("watching",
		"component", "supervisor",
		"documents", s.docObs != nil,
		"self", s.selfObs != nil,
	)

	<-ctx.Done()

	return s.shutdown()
}

// buildHandlers constructs the document and self handlers. Caller holds mu.
func (s *Supervisor) buildHandlers() error {
	reaction := NewDocumentReaction(s.cfg.Synchronizer, s.cfg.Committer, s.cfg.Drain, s.logger)
	docs, err := NewHandler(DocumentsHandlerName, s.cfg.Documents, reaction, s.cfg.Debounce,
		WithHandlerLogger(s.logger))
	if err != nil {
		return fmt.Errorf("%s handler: %w", DocumentsHandlerName, err)
	}
	s.docs = docs

	if s.cfg.Restarter == nil {
		return nil
	}

	selfPath := s.cfg.SelfPath
	if selfPath == "" {
		selfPath = s.cfg.Restarter.Executable()
	}
	self, err := NewHandler(SelfHandlerName, map[string]string{selfKey: selfPath},
		NewSelfRestartReaction(s.cfg.Restarter, s.logger), s.cfg.Debounce,
		WithHandlerLogger(s.logger))
	if err != nil {
		return fmt.Errorf("%s handler: %w", SelfHandlerName, err)
	}
	s.self = self
	return nil
}

func (s *Supervisor) startObserver(ctx context.Context, h *Handler) (*Observer, error) {
	obs, err := NewObserver(h, s.cfg.Ignore, s.logger)
	if err != nil {
		return nil, err
	}
	if err := obs.Start(ctx); err != nil {
		return nil, err
	}
	return obs, nil
}

// shutdown stops the document observer, then the self observer.
func (s *Supervisor) shutdown() error {
	s.mu.Lock()
	s.state = StateShuttingDown
	docObs, selfObs := s.docObs, s.selfObs
	s.docObs, s.selfObs = nil, nil
	s.mu.Unlock()

	s.logger.Info("shutting down", "component", "supervisor")

	var errs []error
	if docObs != nil {
		if err := docObs.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if selfObs != nil {
		if err := selfObs.Stop(); err != nil {
			errs = append(errs, err)
		}
	}

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()

	s.logger.Info("stopped", "component", "supervisor")
	return errors.Join(errs...)
}

// pauseDocuments stops the document observer ahead of a restart. Stopping
// joins its goroutine, so an in-flight commit finishes first. It refuses
// once shutdown has begun.
func (s *Supervisor) pauseDocuments() bool {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return false
	}
	obs := s.docObs
	s.docObs = nil
	s.mu.Unlock()

	if obs != nil {
		if err := obs.Stop(); err != nil {
			s.logger.Warn("document watcher stop failed",
				"component", "supervisor",
				"error", err,
			)
		}
	}
	return true
}

// resumeDocuments restarts the document observer after a failed restart.
func (s *Supervisor) resumeDocuments() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning || s.docObs != nil || s.docs == nil {
		return
	}

	obs, err := s.startObserver(s.baseCtx, s.docs)
	if err != nil {
		s.logger.Error("document watcher could not resume",
			"component", "supervisor",
			"error", err,
		)
		return
	}
	s.docObs = obs
}
