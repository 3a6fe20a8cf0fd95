package watcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execRecorder captures exec calls instead of replacing the test binary.
type execRecorder struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (e *execRecorder) Exec(argv0 string, argv []string, _ []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, append([]string{argv0}, argv...))
	return e.err
}

func (e *execRecorder) Calls() [][]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][]string(nil), e.calls...)
}

func TestRestarterPreservesArgv(t *testing.T) {
	rec := &execRecorder{}
	args := []string{"/usr/local/bin/ctxsync", "watch", "--project", "/srv/app"}
	r, err := NewRestarter(RestarterConfig{
		Executable:  "/usr/local/bin/ctxsync",
		Args:        args,
		SettleDelay: time.Millisecond,
		Exec:        rec.Exec,
	})
	require.NoError(t, err)

	args[1] = "mutated"
	require.NoError(t, r.Execute(context.Background()))

	calls := rec.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"/usr/local/bin/ctxsync", "/usr/local/bin/ctxsync", "watch", "--project", "/srv/app"}, calls[0])
}

func TestRestarterDefaults(t *testing.T) {
	r, err := NewRestarter(RestarterConfig{})
	require.NoError(t, err)
	assert.NotEmpty(t, r.Executable())
	assert.NotEmpty(t, r.Args())
	assert.Equal(t, DefaultSettleDelay, r.settle)

	args := r.Args()
	args[0] = "changed"
	assert.NotEqual(t, "changed", r.Args()[0])
}

func TestRestarterWaitsForSettleDelay(t *testing.T) {
	rec := &execRecorder{}
	r, err := NewRestarter(RestarterConfig{
		Executable:  "/bin/ctxsync",
		Args:        []string{"ctxsync"},
		SettleDelay: 80 * time.Millisecond,
		Exec:        rec.Exec,
	})
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, r.Execute(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestRestarterContextCancelled(t *testing.T) {
	rec := &execRecorder{}
	r, err := NewRestarter(RestarterConfig{
		Executable:  "/bin/ctxsync",
		Args:        []string{"ctxsync"},
		SettleDelay: time.Hour,
		Exec:        rec.Exec,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.Execute(ctx), context.Canceled)
	assert.Empty(t, rec.Calls())
}

func TestRestarterHooks(t *testing.T) {
	t.Run("prepare refusal aborts", func(t *testing.T) {
		rec := &execRecorder{}
		r, err := NewRestarter(RestarterConfig{
			Executable: "/bin/ctxsync", Args: []string{"ctxsync"},
			SettleDelay: time.Millisecond, Exec: rec.Exec,
		})
		require.NoError(t, err)
		r.SetHooks(func() bool { return false }, nil)

		assert.ErrorIs(t, r.Execute(context.Background()), ErrRestartAborted)
		assert.Empty(t, rec.Calls())
	})

	t.Run("failed exec resumes", func(t *testing.T) {
		rec := &execRecorder{err: errors.New("permission denied")}
		r, err := NewRestarter(RestarterConfig{
			Executable: "/bin/ctxsync", Args: []string{"ctxsync"},
			SettleDelay: time.Millisecond, Exec: rec.Exec,
		})
		require.NoError(t, err)

		var prepared, resumed bool
		r.SetHooks(func() bool { prepared = true; return true }, func() { resumed = true })

		err = r.Execute(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "permission denied")
		assert.True(t, prepared)
		assert.True(t, resumed)
	})
}

func TestRestarterWaitsForDrain(t *testing.T) {
	rec := &execRecorder{}
	drain := &sync.Mutex{}
	r, err := NewRestarter(RestarterConfig{
		Executable: "/bin/ctxsync", Args: []string{"ctxsync"},
		SettleDelay: time.Millisecond, Exec: rec.Exec, Drain: drain,
	})
	require.NoError(t, err)

	drain.Lock()
	done := make(chan error, 1)
	go func() { done <- r.Execute(context.Background()) }()

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, rec.Calls(), "exec must wait for the in-flight commit")

	drain.Unlock()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(eventuallyWait):
		t.Fatal("restart did not proceed after drain")
	}
	assert.Len(t, rec.Calls(), 1)
}
