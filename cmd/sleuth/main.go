// sleuth is the main CLI: investigate captured errors, extract templates,
// inspect stored sessions, emit reports, and serve the MCP integration.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sleuth/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	logLevel  string
	logFormat string
}

var rootCmd = &cobra.Command{
	Use:   "sleuth",
	Short: "Evidence-based diagnosis of captured runtime errors",
	Long: "Sleuth turns a captured error into an investigation: it extracts the\n" +
		"error's template, seeds ranked hypotheses, weighs test evidence by\n" +
		"source trust, and drives the session to a resolved, blocked, or\n" +
		"workaround outcome.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRun: func(*cobra.Command, []string) {
		logging.Init(logging.ParseLevel(rootFlags.logLevel), rootFlags.logFormat)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&rootFlags.logFormat, "log-format", "text", "Log format (text, json)")

	rootCmd.AddCommand(investigateCmd)
	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
