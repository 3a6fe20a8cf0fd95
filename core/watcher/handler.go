package watcher

import (
	"context"
	"log/slog"
	"time"
)

// Handler binds a PathIndex and a private DebounceGate to a Reaction. It has
// no I/O of its own: OnEvent either drops the event or runs the reaction.
type Handler struct {
	name     string
	index    *PathIndex
	gate     *DebounceGate
	reaction Reaction
	now      func() time.Time
	logger   *slog.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithClock overrides the time source used for debouncing.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.now = now
	}
}

// WithHandlerLogger sets the logger used for dispatch records.
func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler builds a handler over keyToPath that runs reaction for accepted
// changes. window is the debounce window; zero uses DefaultDebounce.
func NewHandler(name string, keyToPath map[string]string, reaction Reaction, window time.Duration, opts ...HandlerOption) (*Handler, error) {
	index, err := NewPathIndex(keyToPath)
	if err != nil {
		return nil, err
	}

	h := &Handler{
		name:     name,
		index:    index,
		gate:     NewDebounceGate(window),
		reaction: reaction,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Name returns the handler's name ("documents", "self").
func (h *Handler) Name() string {
	return h.name
}

// Index returns the handler's path index.
func (h *Handler) Index() *PathIndex {
	return h.index
}

// OnEvent dispatches a modification of path. It returns true when the
// reaction ran.
func (h *Handler) OnEvent(ctx context.Context, path string) bool {
	key, ok := h.index.Lookup(path)
	if !ok {
		return false
	}

	if !h.gate.ShouldFire(key, h.now()) {
		h.logger.Debug("debounced duplicate event",
			"component", "watcher",
			"handler", h.name,
			"key", key,
			"path", path,
		)
		return false
	}

	h.logger.Info("change detected",
		"component", "watcher",
		"handler", h.name,
		"key", key,
		"path", path,
	)
	h.reaction.Trigger(ctx, key)
	return true
}
