package client

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/forgelabs/forged/internal/config"
	"github.com/forgelabs/forged/internal/ipc"
)

func testWorkspace(t *testing.T) string {
	t.Helper()
	// Under /tmp directly so the socket path stays short.
	dir, err := os.MkdirTemp("/tmp", "forged-client-*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return dir
}

func newTestCoordinator(t *testing.T) (*Coordinator, string) {
	t.Helper()
	ws := testWorkspace(t)
	cfg, err := config.Load(ws)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return New(ws, cfg), ws
}

func TestExec_FileFallback(t *testing.T) {
	c, _ := newTestCoordinator(t)

	resp, err := c.Exec("activate", nil)
	if err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
	if !resp.Success() {
		t.Fatalf("activate failed: %+v", resp)
	}
	if c.Transport() != TransportFile {
		t.Errorf("transport = %q, want file", c.Transport())
	}
	if c.Degraded() {
		t.Error("no socket existed; fallback must not count as degraded")
	}

	resp, err = c.Exec("is-active", nil)
	if err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
	if !resp.Bool("active") {
		t.Error("workflow not active after fallback activate")
	}
}

func TestExec_PrefersDaemon(t *testing.T) {
	c, ws := newTestCoordinator(t)
	if err := os.MkdirAll(config.StateDir(ws), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	server := ipc.NewServer(config.SocketPath(ws), nil)
	server.Handle("is-active", func(json.RawMessage) *ipc.Response {
		return ipc.OK(map[string]any{"active": true, "served_by": "daemon"})
	})
	if err := server.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	defer func() { _ = server.Stop() }()

	resp, err := c.Exec("is-active", nil)
	if err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
	if c.Transport() != TransportDaemon {
		t.Errorf("transport = %q, want daemon", c.Transport())
	}
	if resp.String("served_by") != "daemon" {
		t.Error("reply did not come from the daemon")
	}
}

func TestExec_DegradedOnDeadSocket(t *testing.T) {
	c, ws := newTestCoordinator(t)
	if err := os.MkdirAll(config.StateDir(ws), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	// A stale socket path that nothing listens on.
	if err := os.WriteFile(config.SocketPath(ws), nil, 0o600); err != nil {
		t.Fatalf("write fake socket: %v", err)
	}

	resp, err := c.Exec("is-active", nil)
	if err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
	if c.Transport() != TransportFile {
		t.Errorf("transport = %q, want file", c.Transport())
	}
	if !c.Degraded() {
		t.Error("dead socket must mark the exchange degraded")
	}
	if resp.Status != ipc.StatusOK {
		t.Errorf("status = %q, want ok", resp.Status)
	}
}

func TestExec_FallbackSharesEngineState(t *testing.T) {
	c, ws := newTestCoordinator(t)

	if _, err := c.Exec("activate", nil); err != nil {
		t.Fatalf("activate: %v", err)
	}
	resp, err := c.Exec("checkpoint", map[string]string{"agent": "forge:input-agent"})
	if err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	if !resp.Success() {
		t.Fatalf("checkpoint refused: %+v", resp)
	}

	// A second coordinator on the same workspace reads the persisted phase.
	cfg, err := config.Load(ws)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	c2 := New(ws, cfg)
	resp, err = c2.Exec("get-phase", nil)
	if err != nil {
		t.Fatalf("get-phase: %v", err)
	}
	if got := resp.Int("phase"); got != 1 {
		t.Errorf("phase = %d, want 1", got)
	}
}

func TestDaemonRunning_NoSocket(t *testing.T) {
	c, _ := newTestCoordinator(t)
	if c.DaemonRunning() {
		t.Error("DaemonRunning = true with no socket")
	}
}

func TestStopDaemon_NotRunningIsNoop(t *testing.T) {
	c, _ := newTestCoordinator(t)
	if err := c.StopDaemon(); err != nil {
		t.Errorf("StopDaemon = %v, want nil", err)
	}
}

func TestExec_UnknownCommand(t *testing.T) {
	c, _ := newTestCoordinator(t)
	resp, err := c.Exec("bogus", nil)
	if err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
	if resp.Status != ipc.StatusError {
		t.Errorf("status = %q, want error", resp.Status)
	}
}
