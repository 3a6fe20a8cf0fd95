package commit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/adalundhe/ctxsync/core/git"
	"github.com/adalundhe/ctxsync/core/journal"
	"github.com/adalundhe/ctxsync/core/providers"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of generated messages kept per process.
const DefaultCacheSize = 64

// Repository is the version-control surface the reactor needs.
type Repository interface {
	StageAll(ctx context.Context) (bool, error)
	StagedDiff(ctx context.Context) (string, error)
	Commit(ctx context.Context, message string) (*git.CommitInfo, error)
}

// Recorder persists reactor outcomes.
type Recorder interface {
	Record(ctx context.Context, entry journal.Entry) error
}

// Config configures a Reactor.
type Config struct {
	Repository Repository

	// Generator produces messages. Nil always uses the fallback message.
	Generator providers.Generator

	// Recorder receives every commit attempt. Optional.
	Recorder Recorder

	// DiffLimit bounds the diff passed to the generator. Defaults to
	// DefaultDiffLimit.
	DiffLimit int

	// CacheSize bounds the message cache. Defaults to DefaultCacheSize.
	CacheSize int

	// Now overrides the clock used for fallback dates.
	Now func() time.Time

	Logger *slog.Logger
}

// Result describes one CommitAll call.
type Result struct {
	RunID          string
	Committed      bool
	Classification Classification
	Message        string
	Hash           string
	Branch         string
	Fallback       bool
	CacheHit       bool
	DiffTruncated  bool
}

// Reactor stages, classifies, names and commits repository changes.
type Reactor struct {
	repo      Repository
	generator providers.Generator
	recorder  Recorder
	diffLimit int
	cache     *lru.Cache[string, string]
	now       func() time.Time
	logger    *slog.Logger
}

// ErrNoRepository indicates a Reactor was configured without a repository.
var ErrNoRepository = errors.New("commit reactor requires a repository")

// NewReactor creates a Reactor.
func NewReactor(cfg Config) (*Reactor, error) {
	if cfg.Repository == nil {
		return nil, ErrNoRepository
	}
	if cfg.DiffLimit <= 0 {
		cfg.DiffLimit = DefaultDiffLimit
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	cache, err := lru.New[string, string](cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	return &Reactor{
		repo:      cfg.Repository,
		generator: cfg.Generator,
		recorder:  cfg.Recorder,
		diffLimit: cfg.DiffLimit,
		cache:     cache,
		now:       cfg.Now,
		logger:    cfg.Logger,
	}, nil
}

// CommitAll stages every change and commits it. A clean tree is not an
// error: the result reports Committed false. Failures return a non-committed
// result together with the error.
func (r *Reactor) CommitAll(ctx context.Context) (*Result, error) {
	res := &Result{RunID: uuid.NewString()}
	logger := r.logger.With("component", "commit", "run_id", res.RunID)

	staged, err := r.repo.StageAll(ctx)
	if err != nil {
		r.record(ctx, res, err)
		return res, err
	}
	if !staged {
		logger.Debug("working tree clean")
		return res, nil
	}

	diff, err := r.repo.StagedDiff(ctx)
	if err != nil {
		r.record(ctx, res, err)
		return res, err
	}
	diff, res.DiffTruncated = TruncateDiff(diff, r.diffLimit)

	res.Classification = Classify(diff)
	res.Message, res.Fallback, res.CacheHit = r.message(ctx, logger, res.Classification, diff)

	info, err := r.repo.Commit(ctx, res.Message)
	if err != nil {
		r.record(ctx, res, err)
		return res, err
	}

	res.Committed = true
	res.Hash = info.Hash
	res.Branch = info.Branch
	r.record(ctx, res, nil)

	logger.Info("committed",
		"hash", info.ShortHash(),
		"branch", info.Branch,
		"type", string(res.Classification),
		"message", res.Message,
		"fallback", res.Fallback,
	)
	return res, nil
}

// message returns the commit subject for diff, reporting whether the
// fallback was used and whether it came from the cache.
func (r *Reactor) message(ctx context.Context, logger *slog.Logger, c Classification, diff string) (string, bool, bool) {
	fallback := FallbackMessage(c, r.now())
	if r.generator == nil {
		return fallback, true, false
	}

	key := cacheKey(c, diff)
	if cached, ok := r.cache.Get(key); ok {
		return cached, false, true
	}

	raw, err := r.generator.Generate(ctx, SystemRole, BuildPrompt(c, diff))
	if err != nil {
		logger.Warn("message generation failed, using fallback",
			"provider", r.generator.Name(),
			"error", err,
		)
		return fallback, true, false
	}

	msg := SanitizeMessage(c, raw)
	if err := ValidateMessage(c, msg); err != nil {
		logger.Warn("generated message rejected, using fallback",
			"provider", r.generator.Name(),
			"raw", raw,
			"error", err,
		)
		return fallback, true, false
	}

	r.cache.Add(key, msg)
	return msg, false, false
}

func (r *Reactor) record(ctx context.Context, res *Result, commitErr error) {
	if r.recorder == nil {
		return
	}

	entry := journal.Entry{
		RunID:          res.RunID,
		CreatedAt:      r.now(),
		Classification: string(res.Classification),
		Message:        res.Message,
		Hash:           res.Hash,
		Branch:         res.Branch,
		Fallback:       res.Fallback,
		Committed:      res.Committed,
	}
	if commitErr != nil {
		entry.Error = commitErr.Error()
	}

	if err := r.recorder.Record(ctx, entry); err != nil {
		r.logger.Warn("journal write failed",
			"component", "commit",
			"run_id", res.RunID,
			"error", err,
		)
	}
}

func cacheKey(c Classification, diff string) string {
	sum := sha256.Sum256([]byte(string(c) + "\x00" + diff))
	return hex.EncodeToString(sum[:])
}
