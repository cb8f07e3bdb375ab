package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"sleuth/adapters/store"
	"sleuth/internal/format"
)

var reportFlags struct {
	dbPath   string
	jsonOut  bool
	markdown bool
}

var reportCmd = &cobra.Command{
	Use:   "report <session-id>",
	Short: "Print the full report of a recorded session",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&reportFlags.dbPath, "db", store.DefaultDBPath, "Path to the session database")
	f.BoolVar(&reportFlags.jsonOut, "json", false, "Emit the raw report as JSON")
	f.BoolVar(&reportFlags.markdown, "markdown", false, "Render tables as Markdown")
}

func runReport(cmd *cobra.Command, args []string) error {
	st, err := store.Open(reportFlags.dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	report, err := st.GetReport(args[0])
	if err != nil {
		return fmt.Errorf("load report: %w", err)
	}
	if report == nil {
		return fmt.Errorf("no session %q in %s", args[0], reportFlags.dbPath)
	}

	out := cmd.OutOrStdout()
	if reportFlags.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	mode := format.ASCII
	if reportFlags.markdown {
		mode = format.Markdown
	}
	fmt.Fprintln(out, format.RenderReport(mode, report))
	return nil
}
