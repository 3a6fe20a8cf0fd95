package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// ExecFunc replaces the running process with argv0 invoked as argv.
// It only returns on failure.
type ExecFunc func(argv0 string, argv []string, envv []string) error

// RestarterConfig configures a Restarter.
type RestarterConfig struct {
	// Executable is the program to re-run. Defaults to os.Executable().
	Executable string

	// Args is the full argv of the new process. Defaults to os.Args as
	// captured when the Restarter is created.
	Args []string

	// SettleDelay is the pause before restarting. Defaults to DefaultSettleDelay.
	SettleDelay time.Duration

	// Drain is held while the process image is replaced. Share it with the
	// DocumentReaction.
	Drain *sync.Mutex

	// Exec overrides the platform exec primitive.
	Exec ExecFunc

	Logger *slog.Logger
}

// Restarter replaces the running process with a fresh invocation of itself,
// keeping its argv and environment.
type Restarter struct {
	executable string
	args       []string
	settle     time.Duration
	drain      *sync.Mutex
	exec       ExecFunc
	logger     *slog.Logger

	hookMu  sync.Mutex
	prepare func() bool
	resume  func()
}

// NewRestarter captures the process identity and returns a Restarter.
func NewRestarter(cfg RestarterConfig) (*Restarter, error) {
	if cfg.Executable == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("resolve executable: %w", err)
		}
		cfg.Executable = exe
	}
	if len(cfg.Args) == 0 {
		cfg.Args = os.Args
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	if cfg.Drain == nil {
		cfg.Drain = &sync.Mutex{}
	}
	if cfg.Exec == nil {
		cfg.Exec = execImage
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	args := make([]string, len(cfg.Args))
	copy(args, cfg.Args)

	return &Restarter{
		executable: cfg.Executable,
		args:       args,
		settle:     cfg.SettleDelay,
		drain:      cfg.Drain,
		exec:       cfg.Exec,
		logger:     cfg.Logger,
	}, nil
}

// Executable returns the program the Restarter re-runs.
func (r *Restarter) Executable() string {
	return r.executable
}

// Args returns a copy of the argv passed to the new process.
func (r *Restarter) Args() []string {
	out := make([]string, len(r.args))
	copy(out, r.args)
	return out
}

// SetHooks installs functions run before the exec (prepare) and after a
// failed exec (resume). A prepare returning false aborts the restart.
func (r *Restarter) SetHooks(prepare func() bool, resume func()) {
	r.hookMu.Lock()
	defer r.hookMu.Unlock()
	r.prepare = prepare
	r.resume = resume
}

func (r *Restarter) hooks() (func() bool, func()) {
	r.hookMu.Lock()
	defer r.hookMu.Unlock()
	return r.prepare, r.resume
}

// Execute waits for the settle delay, drains in-flight document work and
// replaces the process. It returns only when the restart did not happen.
func (r *Restarter) Execute(ctx context.Context) error {
	timer := time.NewTimer(r.settle)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	prepare, resume := r.hooks()
	if prepare != nil && !prepare() {
		return ErrRestartAborted
	}

	r.drain.Lock()
	r.logger.Info("restarting",
		"component", "watcher",
		"operation", "restart",
		"executable", r.executable,
		"args", r.args,
	)
	err := r.exec(r.executable, r.Args(), os.Environ())
	r.drain.Unlock()
	if err == nil {
		return nil
	}

	if resume != nil {
		resume()
	}
	return fmt.Errorf("exec %s: %w", r.executable, err)
}
