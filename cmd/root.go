package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/adalundhe/ctxsync/core/config"
	"github.com/adalundhe/ctxsync/core/storage"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	projectDir string
	logLevel   string

	cfgManager *config.Manager
	dirs       *storage.Dirs
)

var rootCmd = &cobra.Command{
	Use:   "ctxsync",
	Short: "ctxsync - keep project context in sync and committed",
	Long: `ctxsync watches the architecture, progress and task documents of a project,
rebuilds the aggregated context file whenever one of them changes and commits
the result with a generated conventional-commit message.`,
	SilenceUsage:      true,
	PersistentPreRunE: initialize,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project", "C", ".", "Project root directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

func Execute() error {
	return rootCmd.Execute()
}

// initialize loads .env credentials, configuration and the default logger.
func initialize(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(projectDir)
	if err != nil {
		return fmt.Errorf("resolve project root: %w", err)
	}

	if err := loadDotEnv(root); err != nil {
		return err
	}

	dirs, err = storage.ResolveDirs()
	if err != nil {
		return fmt.Errorf("resolve directories: %w", err)
	}

	cfgManager = config.NewManager(dirs, root)
	if err := cfgManager.Load(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := cfgManager.Get().Log.Level
	if logLevel != "" {
		level = logLevel
	}
	slog.SetDefault(newLogger(os.Stderr, level))
	return nil
}

// loadDotEnv loads root/.env without overriding variables already set.
func loadDotEnv(root string) error {
	err := godotenv.Load(filepath.Join(root, ".env"))
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load .env: %w", err)
}
