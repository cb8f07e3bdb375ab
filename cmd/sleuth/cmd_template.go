package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sleuth/internal/format"
	"sleuth/internal/template"
)

var templateFlags struct {
	file     string
	jsonOut  bool
	markdown bool
}

var templateCmd = &cobra.Command{
	Use:   "template [error text]",
	Short: "Extract error templates from raw error text",
	Long: `Extracts the stable template of an error: fixed structure kept, variable
values (paths, addresses, ids, numbers) removed. Two errors differing only in
variables share a fingerprint.`,
	RunE: runTemplate,
}

func init() {
	f := templateCmd.Flags()
	f.StringVarP(&templateFlags.file, "file", "f", "", "Read the error text from a file instead of arguments")
	f.BoolVar(&templateFlags.jsonOut, "json", false, "Emit templates as JSON")
	f.BoolVar(&templateFlags.markdown, "markdown", false, "Render the table as Markdown")
}

func runTemplate(cmd *cobra.Command, args []string) error {
	var raw string
	switch {
	case templateFlags.file != "":
		data, err := os.ReadFile(templateFlags.file)
		if err != nil {
			return fmt.Errorf("read error text: %w", err)
		}
		raw = string(data)
	case len(args) > 0:
		raw = strings.Join(args, " ")
	default:
		return fmt.Errorf("provide error text as arguments or via --file")
	}

	templates := template.ExtractTemplates(raw)
	out := cmd.OutOrStdout()

	if templateFlags.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(templates)
	}

	mode := format.ASCII
	if templateFlags.markdown {
		mode = format.Markdown
	}
	tb := format.NewTable(mode)
	tb.Header("Fingerprint", "Template", "Removed", "Ambiguous")
	for _, tmpl := range templates {
		var removed []string
		for _, span := range tmpl.Removed {
			removed = append(removed, fmt.Sprintf("%s %q", span.Kind, span.Text))
		}
		ambiguous := ""
		if tmpl.Ambiguous {
			ambiguous = "yes"
		}
		tb.Row(tmpl.Fingerprint, tmpl.Text, strings.Join(removed, ", "), ambiguous)
	}
	tb.Columns(
		format.ColumnConfig{Number: 2, MaxWidth: 60},
		format.ColumnConfig{Number: 3, MaxWidth: 40},
	)
	fmt.Fprintln(out, tb.String())
	return nil
}
