package signal

import (
	"context"
	"sync/atomic"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandleSignalCancelsThenExits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var exitCode atomic.Int32
	h := NewOSSignalHandler(cancel, func(code int) { exitCode.Store(int32(code)) }, nil)

	h.handleSignal(syscall.SIGTERM)
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.True(t, h.InterruptReceived())
	assert.Zero(t, exitCode.Load())

	h.handleSignal(syscall.SIGINT)
	assert.EqualValues(t, ForcedExitCode, exitCode.Load())
}

func TestStartStop(t *testing.T) {
	h := NewOSSignalHandler(func() {}, func(int) {}, nil)
	assert.False(t, h.IsRunning())

	h.Start()
	h.Start()
	assert.True(t, h.IsRunning())

	h.Stop()
	h.Stop()
	assert.False(t, h.IsRunning())
}
