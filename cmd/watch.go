package cmd

import (
	"context"
	"log/slog"

	"github.com/adalundhe/ctxsync/core/signal"
	"github.com/adalundhe/ctxsync/core/watcher"
	"github.com/spf13/cobra"
)

var watchNoRestart bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch project documents and sync, commit and self-restart on change",
	Long: `Watch the configured architecture, progress and task documents. Each change
rebuilds the context file and commits the working tree. When self-restart is
enabled, a change to the ctxsync binary replaces the running process.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchNoRestart, "no-restart", false, "Disable the self-restart watcher")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := cfgManager.Get()
	root := cfgManager.ProjectRoot()
	logger := slog.Default()

	a, err := newApp(cfg, dirs, root, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var restarter *watcher.Restarter
	if cfg.Watch.SelfRestart && !watchNoRestart {
		restarter, err = watcher.NewRestarter(watcher.RestarterConfig{
			SettleDelay: cfg.Watch.SettleDelay,
			Drain:       a.drain,
			Logger:      logger,
		})
		if err != nil {
			return err
		}
	}

	sup := watcher.NewSupervisor(watcher.SupervisorConfig{
		Documents:    cfg.DocumentPaths(root),
		SelfPath:     cfg.Watch.SelfPath,
		Debounce:     cfg.Watch.Debounce,
		Ignore:       cfg.Watch.Ignore,
		Synchronizer: a.pipeline,
		Committer:    a.reactor,
		Restarter:    restarter,
		Drain:        a.drain,
		Logger:       logger,
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	signals := signal.NewOSSignalHandler(cancel, nil, logger)
	signals.Start()
	defer signals.Stop()

	logger.Info("watching",
		"component", "cli",
		"project", root,
		"self_restart", restarter != nil,
	)
	return sup.Run(ctx)
}
