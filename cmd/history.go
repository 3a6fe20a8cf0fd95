package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/adalundhe/ctxsync/core/journal"
	"github.com/spf13/cobra"
)

// OutputFormat selects how history entries are printed.
type OutputFormat string

const (
	OutputTable OutputFormat = "table"
	OutputJSON  OutputFormat = "json"
	OutputPlain OutputFormat = "plain"
)

var (
	historyFormat string
	historyLimit  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent commit attempts from the journal",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVarP(&historyFormat, "format", "f", "table", "Output format (table, json, plain)")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of entries")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg := cfgManager.Get()
	j, err := journal.Open(cfg.JournalPath(dirs, cfgManager.ProjectRoot()))
	if err != nil {
		return err
	}
	defer j.Close()

	entries, err := j.Recent(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	return writeHistory(cmd.OutOrStdout(), entries, parseOutputFormat(historyFormat))
}

func parseOutputFormat(s string) OutputFormat {
	switch strings.ToLower(s) {
	case "json":
		return OutputJSON
	case "plain":
		return OutputPlain
	default:
		return OutputTable
	}
}

func writeHistory(w io.Writer, entries []journal.Entry, format OutputFormat) error {
	switch format {
	case OutputJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if entries == nil {
			entries = []journal.Entry{}
		}
		return encoder.Encode(entries)
	case OutputPlain:
		return writeHistoryPlain(w, entries)
	default:
		return writeHistoryTable(w, entries)
	}
}

func writeHistoryPlain(w io.Writer, entries []journal.Entry) error {
	for _, e := range entries {
		if e.Committed {
			fmt.Fprintf(w, "commit %s (%s)\n", e.Hash, e.Branch)
		} else {
			fmt.Fprintf(w, "failed: %s\n", e.Error)
		}
		fmt.Fprintf(w, "Date:   %s\n", e.CreatedAt.Format(time.RFC1123))
		if e.Fallback {
			fmt.Fprintln(w, "Source: fallback")
		}
		fmt.Fprintf(w, "\n    %s\n\n", e.Message)
	}
	return nil
}

func writeHistoryTable(w io.Writer, entries []journal.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "HASH\tDATE\tTYPE\tSTATUS\tMESSAGE")
	fmt.Fprintln(tw, "----\t----\t----\t------\t-------")

	for _, e := range entries {
		status := "ok"
		switch {
		case !e.Committed:
			status = "failed"
		case e.Fallback:
			status = "fallback"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			shortHash(e.Hash),
			e.CreatedAt.Local().Format("2006-01-02 15:04"),
			e.Classification,
			status,
			truncateString(e.Message, 60),
		)
	}
	return tw.Flush()
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
