package mcp

import (
	"context"
	"os"
	"time"

	"sleuth/internal/logging"
)

// WatchParent monitors for parent process death in a background goroutine.
// When the parent PID changes (the editor or agent host disconnected), it
// calls cancelFn to trigger graceful shutdown, so stale server processes do
// not accumulate.
//
// This must NOT read from stdin: the MCP SDK's stdio transport owns stdin
// exclusively, and stealing bytes there corrupts the JSON-RPC stream.
func WatchParent(ctx context.Context, cancelFn context.CancelFunc) {
	ppid := os.Getppid()
	log := logging.New("mcp")
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
				if os.Getppid() != ppid {
					log.Warn("parent process died, shutting down", "was_pid", ppid)
					cancelFn()
					return
				}
			}
		}
	}()
}
