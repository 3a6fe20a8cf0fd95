package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/adalundhe/ctxsync/core/commit"
	"github.com/adalundhe/ctxsync/core/config"
	"github.com/adalundhe/ctxsync/core/git"
	"github.com/adalundhe/ctxsync/core/journal"
	"github.com/adalundhe/ctxsync/core/pipeline"
	"github.com/adalundhe/ctxsync/core/providers"
	"github.com/adalundhe/ctxsync/core/storage"
)

// app holds the components shared by the watch, sync and commit commands.
type app struct {
	cfg      *config.Config
	root     string
	logger   *slog.Logger
	pipeline *pipeline.Pipeline
	reactor  *commit.Reactor
	journal  *journal.Journal
	drain    *sync.Mutex
}

func newApp(cfg *config.Config, d *storage.Dirs, root string, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, root: root, logger: logger, drain: &sync.Mutex{}}

	format, err := pipeline.ParseFormat(cfg.Context.Format)
	if err != nil {
		return nil, err
	}
	a.pipeline, err = pipeline.New(pipeline.Config{
		Documents:   cfg.DocumentPaths(root),
		ContextPath: cfg.ContextPath(root),
		Format:      format,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}

	repo, err := git.NewRepository(root,
		git.WithIdentity(git.Identity{Name: cfg.Commit.AuthorName, Email: cfg.Commit.AuthorEmail}),
		git.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	var recorder commit.Recorder
	if cfg.Journal.Enabled {
		a.journal, err = journal.Open(cfg.JournalPath(d, root))
		if err != nil {
			return nil, err
		}
		recorder = a.journal
	}

	a.reactor, err = commit.NewReactor(commit.Config{
		Repository: repo,
		Generator:  newGenerator(cfg.LLM, logger),
		Recorder:   recorder,
		DiffLimit:  cfg.Commit.DiffLimit,
		CacheSize:  cfg.Commit.MessageCacheSize,
		Logger:     logger,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create reactor: %w", err)
	}
	return a, nil
}

// newGenerator returns nil when no provider is usable; the reactor then
// falls back to deterministic messages.
func newGenerator(cfg config.LLMConfig, logger *slog.Logger) providers.Generator {
	gen, err := providers.New(providers.Config{
		Provider:  providers.ProviderType(cfg.Provider),
		Model:     cfg.Model,
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.Timeout,
		MaxTokens: cfg.MaxTokens,
	})
	switch {
	case err == nil:
		logger.Info("message generator ready", "component", "providers", "provider", gen.Name())
		return gen
	case errors.Is(err, providers.ErrDisabled):
		logger.Info("message generation disabled", "component", "providers")
	default:
		logger.Warn("message generation unavailable, using fallback messages",
			"component", "providers",
			"error", err,
		)
	}
	return nil
}

func (a *app) Close() {
	if a.journal == nil {
		return
	}
	if err := a.journal.Close(); err != nil {
		a.logger.Warn("close journal", "component", "journal", "error", err)
	}
}
