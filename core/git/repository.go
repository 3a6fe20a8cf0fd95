package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	gogit "github.com/go-git/go-git/v5"
)

// Repository wraps a working directory. The underlying repository is opened
// on first use and initialized there if absent.
type Repository struct {
	path     string
	identity Identity
	logger   *slog.Logger

	mu       sync.Mutex
	repo     *gogit.Repository
	ready    bool
	initOnce sync.Once
	initErr  error
}

// Option configures a Repository.
type Option func(*Repository)

// WithIdentity sets the identity written when the repository is initialized.
func WithIdentity(id Identity) Option {
	return func(r *Repository) {
		if id.Name != "" {
			r.identity.Name = id.Name
		}
		if id.Email != "" {
			r.identity.Email = id.Email
		}
	}
}

// WithLogger sets the logger used for git failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRepository creates a handle for the working directory at path. No disk
// access happens until the first operation.
func NewRepository(path string, opts ...Option) (*Repository, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	r := &Repository{
		path:     absPath,
		identity: DefaultIdentity,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Path returns the working directory.
func (r *Repository) Path() string {
	return r.path
}

// =============================================================================
// Lazy Initialization
// =============================================================================

// ensure opens the repository, initializing it on first use when absent.
func (r *Repository) ensure() error {
	r.initOnce.Do(func() {
		r.initErr = r.openOrInit()
	})
	return r.initErr
}

func (r *Repository) openOrInit() error {
	if _, err := exec.LookPath("git"); err != nil {
		return ErrGitNotInstalled
	}

	repo, err := gogit.PlainOpenWithOptions(r.path, &gogit.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		repo, err = r.initRepository()
	}
	if err != nil {
		return fmt.Errorf("open repository %s: %w", r.path, err)
	}

	r.mu.Lock()
	r.repo = repo
	r.ready = true
	r.mu.Unlock()
	return nil
}

// initRepository creates a repository at the working directory and writes
// the default identity to its local config.
func (r *Repository) initRepository() (*gogit.Repository, error) {
	repo, err := gogit.PlainInit(r.path, false)
	if err != nil {
		return nil, err
	}

	cfg, err := repo.Config()
	if err != nil {
		return nil, err
	}
	cfg.User.Name = r.identity.Name
	cfg.User.Email = r.identity.Email
	if err := repo.SetConfig(cfg); err != nil {
		return nil, err
	}

	r.logger.Info("initialized repository",
		"component", "git",
		"path", r.path,
		"identity", r.identity.Name,
	)
	return repo, nil
}

// IsReady reports whether the repository has been opened.
func (r *Repository) IsReady() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

// =============================================================================
// Operations
// =============================================================================

// StageAll stages every change in the working tree. It reports whether the
// index differs from HEAD afterwards.
func (r *Repository) StageAll(ctx context.Context) (bool, error) {
	if err := r.ensure(); err != nil {
		return false, err
	}

	if _, err := r.run(ctx, "add", "-A"); err != nil {
		return false, err
	}
	return r.hasStagedChanges(ctx)
}

// hasStagedChanges uses the exit code of diff --quiet: 1 means differences.
func (r *Repository) hasStagedChanges(ctx context.Context) (bool, error) {
	_, err := r.run(ctx, "diff", "--cached", "--quiet")
	if err == nil {
		return false, nil
	}

	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.ExitCode == 1 {
		return true, nil
	}
	return false, err
}

// StagedDiff returns the full diff of the index against HEAD.
func (r *Repository) StagedDiff(ctx context.Context) (string, error) {
	if err := r.ensure(); err != nil {
		return "", err
	}
	return r.run(ctx, "diff", "--cached", "--no-color")
}

// Commit records the index with message and returns the new commit.
func (r *Repository) Commit(ctx context.Context, message string) (*CommitInfo, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}
	if err := r.ensure(); err != nil {
		return nil, err
	}

	if _, err := r.run(ctx, "commit", "--quiet", "-m", message); err != nil {
		if strings.Contains(err.Error(), "nothing to commit") {
			return nil, ErrNothingToCommit
		}
		return nil, err
	}

	hash, err := r.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return nil, err
	}

	branch, err := r.CurrentBranch(ctx)
	if err != nil {
		branch = ""
	}

	return &CommitInfo{
		Hash:    strings.TrimSpace(hash),
		Branch:  branch,
		Message: message,
	}, nil
}

// CurrentBranch returns the checked-out branch name, or "" on a detached HEAD.
func (r *Repository) CurrentBranch(ctx context.Context) (string, error) {
	if err := r.ensure(); err != nil {
		return "", err
	}

	out, err := r.run(ctx, "branch", "--show-current")
	if err == nil {
		return strings.TrimSpace(out), nil
	}

	// Older git without --show-current: ask go-git.
	r.mu.Lock()
	repo := r.repo
	r.mu.Unlock()

	ref, headErr := repo.Head()
	if headErr != nil {
		return "", err
	}
	if !ref.Name().IsBranch() {
		return "", nil
	}
	return ref.Name().Short(), nil
}

// =============================================================================
// Command Execution
// =============================================================================

// run executes a git command in the working directory and returns stdout.
func (r *Repository) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.path

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", parseGitError(args, err, stdout.String(), stderr.String())
	}
	return stdout.String(), nil
}

// parseGitError converts git command errors into appropriate error types.
func parseGitError(args []string, err error, stdout, stderr string) error {
	if strings.Contains(stderr, "not a git repository") {
		return ErrNotGitRepository
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		detail := stderr
		if strings.TrimSpace(detail) == "" {
			detail = stdout
		}
		return &CommandError{Args: args, ExitCode: exitErr.ExitCode(), Stderr: detail}
	}
	return err
}
