// Package signal turns process signals into a graceful shutdown of the
// watch loop, with a forced exit on a repeated signal.
package signal

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
)

// ForcedExitCode is the status used when a second signal arrives while a
// graceful shutdown is still draining.
const ForcedExitCode = 130

type OSSignalHandler struct {
	cancel context.CancelFunc
	exit   func(int)
	logger *slog.Logger

	mu                sync.Mutex
	running           bool
	interruptReceived atomic.Bool
	stopCh            chan struct{}
	sigCh             chan os.Signal
	wg                sync.WaitGroup
}

// NewOSSignalHandler returns a handler that calls cancel on the first
// SIGINT or SIGTERM and exit(ForcedExitCode) on the next one. A nil exit
// uses os.Exit.
func NewOSSignalHandler(cancel context.CancelFunc, exit func(int), logger *slog.Logger) *OSSignalHandler {
	if exit == nil {
		exit = os.Exit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OSSignalHandler{
		cancel: cancel,
		exit:   exit,
		logger: logger,
		stopCh: make(chan struct{}),
		sigCh:  make(chan os.Signal, 1),
	}
}

func (h *OSSignalHandler) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return
	}

	h.running = true
	signal.Notify(h.sigCh, syscall.SIGINT, syscall.SIGTERM)
	h.wg.Add(1)
	go h.listen()
}

func (h *OSSignalHandler) listen() {
	defer h.wg.Done()
	for {
		select {
		case <-h.stopCh:
			return
		case sig := <-h.sigCh:
			h.handleSignal(sig)
		}
	}
}

func (h *OSSignalHandler) handleSignal(sig os.Signal) {
	if h.interruptReceived.Swap(true) {
		h.logger.Warn("second signal, exiting without draining",
			"component", "signal",
			"signal", sig.String(),
		)
		h.exit(ForcedExitCode)
		return
	}

	h.logger.Info("shutdown requested",
		"component", "signal",
		"signal", sig.String(),
	)
	h.cancel()
}

// Stop unregisters the handler. Safe to call more than once.
func (h *OSSignalHandler) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	signal.Stop(h.sigCh)
	close(h.stopCh)
	h.running = false
	h.mu.Unlock()

	h.wg.Wait()
}

func (h *OSSignalHandler) IsRunning() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}

func (h *OSSignalHandler) InterruptReceived() bool {
	return h.interruptReceived.Load()
}
