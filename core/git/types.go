// Package git provides the repository handle used by the commit reactor. It
// uses go-git/v5 for repository discovery, initialization and identity, and
// the git CLI for staging, diffing and committing.
package git

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrEmptyPath indicates an empty repository path.
	ErrEmptyPath = errors.New("repository path cannot be empty")

	// ErrGitNotInstalled indicates the git CLI is not on PATH.
	ErrGitNotInstalled = errors.New("git is not installed or not in PATH")

	// ErrNotGitRepository indicates git reported the path is not a repository.
	ErrNotGitRepository = errors.New("not a git repository")

	// ErrNothingToCommit indicates a commit was attempted on a clean index.
	ErrNothingToCommit = errors.New("nothing to commit")

	// ErrEmptyMessage indicates a commit message with no content.
	ErrEmptyMessage = errors.New("commit message cannot be empty")
)

// =============================================================================
// Identity
// =============================================================================

// Identity is the author identity written to a repository that ctxsync
// initializes itself.
type Identity struct {
	Name  string
	Email string
}

// DefaultIdentity is the identity used when none is configured.
var DefaultIdentity = Identity{Name: "ctxsync", Email: "ctxsync@localhost"}

// =============================================================================
// CommandError
// =============================================================================

// CommandError describes a git invocation that exited non-zero.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = fmt.Sprintf("exit status %d", e.ExitCode)
	}
	return fmt.Sprintf("git %s: %s", strings.Join(e.Args, " "), msg)
}

// CommitInfo describes a commit created by the repository handle.
type CommitInfo struct {
	Hash    string
	Branch  string
	Message string
}

// ShortHash returns the abbreviated (7 character) hash.
func (c *CommitInfo) ShortHash() string {
	if len(c.Hash) <= 7 {
		return c.Hash
	}
	return c.Hash[:7]
}
