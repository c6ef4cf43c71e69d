package daemon

import (
	"encoding/json"
	"os"

	"github.com/forgelabs/forged/internal/ipc"
	"github.com/forgelabs/forged/internal/store"
)

// registerHandlers wires the daemon-lifecycle commands plus the full engine
// command surface. Every state command goes through store.Dispatch, the
// same entry point the client fallback uses.
func (d *Daemon) registerHandlers() {
	d.server.Handle("ping", func(json.RawMessage) *ipc.Response {
		return ipc.OK(map[string]any{"pid": os.Getpid()})
	})

	d.server.Handle("shutdown", func(json.RawMessage) *ipc.Response {
		d.logger.Info("shutdown requested via socket")
		go d.Shutdown()
		return ipc.OK(map[string]any{"success": true, "stopping": true})
	})

	for _, cmd := range store.Commands() {
		cmd := cmd
		d.server.Handle(cmd, func(params json.RawMessage) *ipc.Response {
			return store.Dispatch(d.st, cmd, params)
		})
	}
}
