package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adalundhe/ctxsync/core/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDirs(t *testing.T) *storage.Dirs {
	t.Helper()
	return &storage.Dirs{
		Config: t.TempDir(),
		Data:   t.TempDir(),
	}
}

func writeYAML(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "ARCHITECTURE.md", cfg.Watch.Documents["architecture"])
	assert.Equal(t, "PROGRESS.md", cfg.Watch.Documents["progress"])
	assert.Equal(t, "TASKS.md", cfg.Watch.Documents["tasks"])
	assert.Equal(t, 100*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.SettleDelay)
	assert.True(t, cfg.Watch.SelfRestart)
	assert.Equal(t, "json", cfg.Context.Format)
	assert.Equal(t, 4000, cfg.Commit.DiffLimit)
	assert.Equal(t, "auto", cfg.LLM.Provider)
	assert.True(t, cfg.Journal.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestManagerGetBeforeLoad(t *testing.T) {
	m := NewManager(testDirs(t), t.TempDir())
	require.NotNil(t, m.Get())
	assert.Equal(t, "info", m.Get().Log.Level)
}

func TestManagerLayering(t *testing.T) {
	root := t.TempDir()
	dirs := testDirs(t)

	writeYAML(t, filepath.Join(root, ".ctxsync", "config.yaml"), `
watch:
  documents:
    tasks: docs/TODO.md
  debounce: 250ms
context:
  format: yaml
llm:
  provider: openai
`)
	writeYAML(t, dirs.ConfigDir("config.yaml"), `
llm:
  provider: anthropic
  model: claude-test
`)
	writeYAML(t, filepath.Join(root, ".ctxsync", "local", "config.yaml"), `
commit:
  diff_limit: 1000
`)

	m := NewManager(dirs, root)
	require.NoError(t, m.Load())
	cfg := m.Get()

	assert.Equal(t, "docs/TODO.md", cfg.Watch.Documents["tasks"])
	assert.Equal(t, "ARCHITECTURE.md", cfg.Watch.Documents["architecture"], "unset keys keep defaults")
	assert.Equal(t, 250*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, "yaml", cfg.Context.Format)
	assert.Equal(t, "anthropic", cfg.LLM.Provider, "user config overrides project")
	assert.Equal(t, "claude-test", cfg.LLM.Model)
	assert.Equal(t, 1000, cfg.Commit.DiffLimit)
}

func TestManagerEnvironmentOverride(t *testing.T) {
	root := t.TempDir()
	writeYAML(t, filepath.Join(root, ".ctxsync", "config.yaml"), `
llm:
  provider: openai
`)

	t.Setenv("CTXSYNC_LLM_PROVIDER", "none")
	t.Setenv("CTXSYNC_DEBOUNCE", "1s")
	t.Setenv("CTXSYNC_SELF_RESTART", "false")
	t.Setenv("CTXSYNC_DIFF_LIMIT", "not-a-number")
	t.Setenv("CTXSYNC_JOURNAL_ENABLED", "FALSE")
	t.Setenv("CTXSYNC_LOG_LEVEL", "debug")

	m := NewManager(testDirs(t), root)
	require.NoError(t, m.Load())
	cfg := m.Get()

	assert.Equal(t, "none", cfg.LLM.Provider)
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
	assert.False(t, cfg.Watch.SelfRestart)
	assert.Equal(t, 4000, cfg.Commit.DiffLimit, "invalid values are ignored")
	assert.False(t, cfg.Journal.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestManagerInvalidYAML(t *testing.T) {
	root := t.TempDir()
	writeYAML(t, filepath.Join(root, ".ctxsync", "config.yaml"), "watch: [unclosed")

	m := NewManager(testDirs(t), root)
	assert.Error(t, m.Load())
	assert.Equal(t, DefaultConfig().Context.Path, m.Get().Context.Path, "failed load keeps previous config")
}

func TestManagerLoadPicksUpChanges(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, ".ctxsync", "config.yaml")
	writeYAML(t, path, "context:\n  path: out/a.json\n")

	m := NewManager(nil, root)
	require.NoError(t, m.Load())
	assert.Equal(t, "out/a.json", m.Get().Context.Path)

	writeYAML(t, path, "context:\n  path: out/b.json\n")
	require.NoError(t, m.Load())
	assert.Equal(t, "out/b.json", m.Get().Context.Path)
	assert.Equal(t, root, m.ProjectRoot())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no documents", func(c *Config) { c.Watch.Documents = nil }},
		{"empty document path", func(c *Config) { c.Watch.Documents["tasks"] = " " }},
		{"negative debounce", func(c *Config) { c.Watch.Debounce = -time.Second }},
		{"negative settle delay", func(c *Config) { c.Watch.SettleDelay = -time.Second }},
		{"empty context path", func(c *Config) { c.Context.Path = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfigPaths(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "srv", "app")
	cfg := DefaultConfig()

	docs := cfg.DocumentPaths(root)
	assert.Equal(t, filepath.Join(root, "TASKS.md"), docs["tasks"])

	abs := filepath.Join(string(filepath.Separator), "tmp", "context.json")
	cfg.Context.Path = abs
	assert.Equal(t, abs, cfg.ContextPath(root))

	dirs := &storage.Dirs{Data: filepath.Join(string(filepath.Separator), "data")}
	assert.Equal(t, dirs.JournalPath(root), cfg.JournalPath(dirs, root))
	assert.Equal(t, filepath.Join(root, ".ctxsync", "local", "journal.db"), cfg.JournalPath(nil, root))

	cfg.Journal.Path = "var/journal.db"
	assert.Equal(t, filepath.Join(root, "var", "journal.db"), cfg.JournalPath(dirs, root))
}
