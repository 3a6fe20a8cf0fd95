package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var syncNoCommit bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Rebuild the context file once and commit",
	Long: `Rebuild the aggregated context file from the project documents, then stage
and commit the working tree. Use --no-commit to only rebuild the context file.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Stage and commit the working tree once",
	Args:  cobra.NoArgs,
	RunE:  runCommit,
}

func init() {
	syncCmd.Flags().BoolVar(&syncNoCommit, "no-commit", false, "Only rebuild the context file")
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(commitCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfgManager.Get(), dirs, cfgManager.ProjectRoot(), slog.Default())
	if err != nil {
		return err
	}
	defer a.Close()

	a.drain.Lock()
	defer a.drain.Unlock()

	if _, err := a.pipeline.Run(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "context written to %s\n", a.pipeline.ContextPath())

	if syncNoCommit {
		return nil
	}
	return commitOnce(cmd, a)
}

func runCommit(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfgManager.Get(), dirs, cfgManager.ProjectRoot(), slog.Default())
	if err != nil {
		return err
	}
	defer a.Close()
	return commitOnce(cmd, a)
}

func commitOnce(cmd *cobra.Command, a *app) error {
	res, err := a.reactor.CommitAll(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !res.Committed {
		fmt.Fprintln(out, "nothing to commit")
		return nil
	}
	fmt.Fprintf(out, "[%s %s] %s\n", res.Branch, shortHash(res.Hash), res.Message)
	return nil
}

func shortHash(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}
