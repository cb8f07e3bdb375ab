package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"sleuth/adapters/store"
	"sleuth/internal/logging"
	mcpserver "sleuth/internal/mcp"
)

var serveFlags struct {
	dbPath     string
	sessionTTL time.Duration
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over stdio for agent integration",
	Long: `Starts an MCP server over stdin/stdout. A coding agent connects via its
MCP configuration and drives investigations through the diagnosis tools:
start_investigation, get_next_hypothesis, submit_test_result,
submit_fix_outcome and get_report. The agent runs commands and applies
fixes; the server owns the session state machine and persists every state
change.

The server monitors for parent process death. When the agent host
disconnects, the server self-terminates to prevent zombie processes.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.dbPath, "db", store.DefaultDBPath, "Path to the session database")
	f.DurationVar(&serveFlags.sessionTTL, "session-ttl", mcpserver.DefaultSessionTTL, "Close idle sessions as blocked after this long without agent activity")
}

func runServe(cmd *cobra.Command, _ []string) error {
	st, err := store.Open(serveFlags.dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	srv := mcpserver.NewServer(st)
	srv.SessionTTL = serveFlags.sessionTTL
	defer srv.Shutdown()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	mcpserver.WatchParent(ctx, cancel)

	logging.New("mcp").Info("starting sleuth MCP server over stdio (parent watchdog active)",
		"db", serveFlags.dbPath, "session_ttl", serveFlags.sessionTTL)
	return srv.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}
