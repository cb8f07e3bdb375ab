package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sleuth/adapters/store"
	"sleuth/internal/display"
	"sleuth/internal/format"
)

var statusFlags struct {
	dbPath   string
	markdown bool
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List recorded investigation sessions",
	RunE:  runStatus,
}

func init() {
	f := statusCmd.Flags()
	f.StringVar(&statusFlags.dbPath, "db", store.DefaultDBPath, "Path to the session database")
	f.BoolVar(&statusFlags.markdown, "markdown", false, "Render the table as Markdown")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	st, err := store.Open(statusFlags.dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	summaries, err := st.ListReports()
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(summaries) == 0 {
		fmt.Fprintf(out, "No sessions recorded in %s\n", statusFlags.dbPath)
		fmt.Fprintf(out, "Run 'sleuth investigate' or 'sleuth serve' to start one.\n")
		return nil
	}

	mode := format.ASCII
	if statusFlags.markdown {
		mode = format.Markdown
	}
	tb := format.NewTable(mode)
	tb.Header("Session", "Status", "Error", "Created", "Closed")
	for _, sum := range summaries {
		tb.Row(sum.ID, display.Status(sum.Terminal), format.Truncate(sum.ErrorHead, 60), sum.CreatedAt, sum.ClosedAt)
	}
	tb.Footer("", "", "", "", fmt.Sprintf("%d total", len(summaries)))
	tb.Columns(format.ColumnConfig{Number: 3, MaxWidth: 60})
	fmt.Fprintln(out, tb.String())
	return nil
}
