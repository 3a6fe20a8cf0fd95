package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// ErrNoContextPath indicates the pipeline has nowhere to write.
var ErrNoContextPath = errors.New("context path cannot be empty")

// Config configures a Pipeline.
type Config struct {
	// Documents maps the logical keys to document paths.
	Documents map[string]string

	// ContextPath is where the serialized payload is written.
	ContextPath string

	// Format selects the serialization. Defaults to JSON.
	Format Format

	Logger *slog.Logger
}

// Pipeline re-reads the tracked documents and overwrites the context file
// with a fresh payload on every run.
type Pipeline struct {
	store       *DocumentStore
	contextPath string
	format      Format
	logger      *slog.Logger
}

// New creates a Pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.ContextPath == "" {
		return nil, ErrNoContextPath
	}
	if cfg.Format == "" {
		cfg.Format = FormatJSON
	}
	if _, err := ParseFormat(string(cfg.Format)); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{
		store:       NewDocumentStore(cfg.Documents),
		contextPath: cfg.ContextPath,
		format:      cfg.Format,
		logger:      cfg.Logger,
	}, nil
}

// ContextPath returns the path of the context file.
func (p *Pipeline) ContextPath() string {
	return p.contextPath
}

// Build reads the documents and assembles a payload without writing it.
func (p *Pipeline) Build() (*ContextPayload, error) {
	payload := &ContextPayload{}
	for _, key := range Keys {
		content, ok, err := p.store.Read(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			content = Placeholder(key)
		}
		payload.Set(key, content)
	}
	return payload, nil
}

// Run rebuilds the payload and persists it, replacing any previous content.
func (p *Pipeline) Run(ctx context.Context) (*ContextPayload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger := p.logger.With("component", "pipeline", "run_id", runID)

	payload, err := p.Build()
	if err != nil {
		return nil, err
	}

	data, err := payload.Encode(p.format)
	if err != nil {
		return nil, fmt.Errorf("encode context: %w", err)
	}

	if err := atomicWrite(p.contextPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("write context: %w", err)
	}

	logger.Info("context synchronized",
		"path", p.contextPath,
		"format", string(p.format),
		"bytes", len(data),
	)
	return payload, nil
}
