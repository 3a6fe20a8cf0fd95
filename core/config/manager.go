// Package config loads layered ctxsync configuration: built-in defaults,
// project, user and project-local YAML files, then CTXSYNC_* environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/adalundhe/ctxsync/core/storage"
	"gopkg.in/yaml.v3"
)

type Manager struct {
	configPtr   atomic.Pointer[Config]
	dirs        *storage.Dirs
	projectRoot string
}

type Config struct {
	Watch   WatchConfig   `yaml:"watch"`
	Context ContextConfig `yaml:"context"`
	Commit  CommitConfig  `yaml:"commit"`
	LLM     LLMConfig     `yaml:"llm"`
	Journal JournalConfig `yaml:"journal"`
	Log     LogConfig     `yaml:"log"`
}

type WatchConfig struct {
	Documents   map[string]string `yaml:"documents"`
	SelfPath    string            `yaml:"self_path"`
	SelfRestart bool              `yaml:"self_restart"`
	Debounce    time.Duration     `yaml:"debounce"`
	SettleDelay time.Duration     `yaml:"settle_delay"`
	Ignore      []string          `yaml:"ignore"`
}

type ContextConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"`
}

type CommitConfig struct {
	DiffLimit        int    `yaml:"diff_limit"`
	AuthorName       string `yaml:"author_name"`
	AuthorEmail      string `yaml:"author_email"`
	MessageCacheSize int    `yaml:"message_cache_size"`
}

type LLMConfig struct {
	Provider  string        `yaml:"provider"`
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	MaxTokens int           `yaml:"max_tokens"`
}

type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// NewManager creates a manager for the project at projectRoot holding the
// defaults until Load is called.
func NewManager(dirs *storage.Dirs, projectRoot string) *Manager {
	m := &Manager{
		dirs:        dirs,
		projectRoot: projectRoot,
	}
	m.configPtr.Store(DefaultConfig())
	return m
}

func DefaultConfig() *Config {
	return &Config{
		Watch: WatchConfig{
			Documents: map[string]string{
				"architecture": "ARCHITECTURE.md",
				"progress":     "PROGRESS.md",
				"tasks":        "TASKS.md",
			},
			SelfRestart: true,
			Debounce:    100 * time.Millisecond,
			SettleDelay: 500 * time.Millisecond,
			Ignore:      []string{"*.swp", "*.swx", "*~", ".#*", "4913", "*.tmp"},
		},
		Context: ContextConfig{
			Path:   filepath.Join(storage.ProjectDirName, "context.json"),
			Format: "json",
		},
		Commit: CommitConfig{
			DiffLimit:        4000,
			AuthorName:       "ctxsync",
			AuthorEmail:      "ctxsync@localhost",
			MessageCacheSize: 64,
		},
		LLM: LLMConfig{
			Provider:  "auto",
			Timeout:   30 * time.Second,
			MaxTokens: 100,
		},
		Journal: JournalConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func (m *Manager) Get() *Config {
	return m.configPtr.Load()
}

// ProjectRoot returns the directory relative paths are resolved against.
func (m *Manager) ProjectRoot() string {
	return m.projectRoot
}

func (m *Manager) Load() error {
	cfg := DefaultConfig()

	if err := m.loadProjectConfig(cfg); err != nil {
		return fmt.Errorf("project config: %w", err)
	}

	if err := m.loadUserConfig(cfg); err != nil {
		return fmt.Errorf("user config: %w", err)
	}

	if err := m.loadLocalConfig(cfg); err != nil {
		return fmt.Errorf("local config: %w", err)
	}

	m.applyEnvironment(cfg)

	if err := cfg.Validate(); err != nil {
		return err
	}

	m.configPtr.Store(cfg)
	return nil
}

func (m *Manager) loadProjectConfig(cfg *Config) error {
	projectDirs := storage.ResolveProjectDirs(m.projectRoot)
	return m.loadYAMLFile(projectDirs.Config, cfg)
}

func (m *Manager) loadUserConfig(cfg *Config) error {
	if m.dirs == nil {
		return nil
	}
	userConfigPath := m.dirs.ConfigDir("config.yaml")
	return m.loadYAMLFile(userConfigPath, cfg)
}

func (m *Manager) loadLocalConfig(cfg *Config) error {
	projectDirs := storage.ResolveProjectDirs(m.projectRoot)
	localPath := filepath.Join(projectDirs.Local, "config.yaml")
	return m.loadYAMLFile(localPath, cfg)
}

func (m *Manager) loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func (m *Manager) applyEnvironment(cfg *Config) {
	if v := os.Getenv("CTXSYNC_DEBOUNCE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Watch.Debounce = d
		}
	}
	if v := os.Getenv("CTXSYNC_SETTLE_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Watch.SettleDelay = d
		}
	}
	if v := os.Getenv("CTXSYNC_SELF_RESTART"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Watch.SelfRestart = b
		}
	}
	if v := os.Getenv("CTXSYNC_SELF_PATH"); v != "" {
		cfg.Watch.SelfPath = v
	}
	if v := os.Getenv("CTXSYNC_CONTEXT_PATH"); v != "" {
		cfg.Context.Path = v
	}
	if v := os.Getenv("CTXSYNC_CONTEXT_FORMAT"); v != "" {
		cfg.Context.Format = v
	}
	if v := os.Getenv("CTXSYNC_DIFF_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Commit.DiffLimit = n
		}
	}
	if v := os.Getenv("CTXSYNC_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("CTXSYNC_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("CTXSYNC_LLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.LLM.Timeout = d
		}
	}
	if v := os.Getenv("CTXSYNC_JOURNAL_ENABLED"); v != "" {
		cfg.Journal.Enabled = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("CTXSYNC_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Validate rejects configurations the watcher cannot run with.
func (c *Config) Validate() error {
	if len(c.Watch.Documents) == 0 {
		return fmt.Errorf("watch.documents: at least one document is required")
	}
	for key, path := range c.Watch.Documents {
		if strings.TrimSpace(key) == "" || strings.TrimSpace(path) == "" {
			return fmt.Errorf("watch.documents: empty key or path")
		}
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	if c.Watch.SettleDelay < 0 {
		return fmt.Errorf("watch.settle_delay must not be negative")
	}
	if strings.TrimSpace(c.Context.Path) == "" {
		return fmt.Errorf("context.path is required")
	}
	return nil
}

// DocumentPaths returns the tracked documents with paths resolved against root.
func (c *Config) DocumentPaths(root string) map[string]string {
	out := make(map[string]string, len(c.Watch.Documents))
	for key, path := range c.Watch.Documents {
		out[key] = resolve(root, path)
	}
	return out
}

// ContextPath returns the context file path resolved against root.
func (c *Config) ContextPath(root string) string {
	return resolve(root, c.Context.Path)
}

// JournalPath returns the journal database path, defaulting to the
// per-project data directory.
func (c *Config) JournalPath(dirs *storage.Dirs, root string) string {
	if c.Journal.Path != "" {
		return resolve(root, c.Journal.Path)
	}
	if dirs == nil {
		return filepath.Join(root, storage.ProjectDirName, "local", "journal.db")
	}
	return dirs.JournalPath(root)
}

func resolve(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
