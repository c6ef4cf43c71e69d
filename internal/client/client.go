// Package client is the thin coordination layer used by every hook
// invocation: prefer the daemon over its socket, fall back to direct file
// access when no daemon is running. The fallback runs the same engine as
// the daemon, so behavior is identical with reduced atomicity.
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/forgelabs/forged/internal/config"
	"github.com/forgelabs/forged/internal/ipc"
	"github.com/forgelabs/forged/internal/model"
	"github.com/forgelabs/forged/internal/store"
)

// ErrDaemonUnreachable marks a socket that exists but does not answer.
// This is deliberately distinct from "no daemon running": an unreachable
// daemon is degraded operation, not intentional non-enforcement.
var ErrDaemonUnreachable = errors.New("daemon socket present but unreachable")

// Transport names the path a command actually took.
type Transport string

const (
	TransportDaemon Transport = "daemon"
	TransportFile   Transport = "file"
)

type Coordinator struct {
	workspace string
	cfg       config.Config
	ipc       *ipc.Client

	lastTransport Transport
	degraded      bool
}

func New(workspace string, cfg config.Config) *Coordinator {
	c := ipc.NewClient(config.SocketPath(workspace))
	c.SetTimeout(cfg.ConnTimeout)
	return &Coordinator{workspace: workspace, cfg: cfg, ipc: c}
}

// Transport reports which path the last Exec took.
func (c *Coordinator) Transport() Transport {
	return c.lastTransport
}

// Degraded reports whether the last Exec fell back because a daemon socket
// existed but did not answer.
func (c *Coordinator) Degraded() bool {
	return c.degraded
}

// Exec runs one command: over the socket when a daemon answers, otherwise
// in-process against the state file. Both paths share store.Dispatch.
func (c *Coordinator) Exec(cmd string, params any) (*ipc.Response, error) {
	c.degraded = false

	socketPath := config.SocketPath(c.workspace)
	if _, err := os.Stat(socketPath); err == nil {
		resp, err := c.ipc.SendCommand(cmd, params)
		if err == nil {
			c.lastTransport = TransportDaemon
			return resp, nil
		}
		// Stale socket or hung daemon: degrade to file access, but make
		// the degradation observable rather than silent.
		c.degraded = true
	}

	resp, err := c.execLocal(cmd, params)
	if err != nil {
		return nil, err
	}
	c.lastTransport = TransportFile
	return resp, nil
}

func (c *Coordinator) execLocal(cmd string, params any) (*ipc.Response, error) {
	protocols := model.MustDefaultProtocols()
	if c.cfg.ProtocolsFile != "" {
		raw, err := os.ReadFile(c.cfg.ProtocolsFile)
		if err != nil {
			return nil, fmt.Errorf("read protocols file: %w", err)
		}
		protocols, err = model.ParseProtocols(raw)
		if err != nil {
			return nil, err
		}
	}

	st, err := store.Open(c.workspace, model.MustDefaultPhaseTable(), protocols)
	if err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if params != nil {
		raw, err = json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
	}
	return store.Dispatch(st, cmd, raw), nil
}

// DaemonRunning reports whether a daemon answers on the socket.
func (c *Coordinator) DaemonRunning() bool {
	if _, err := os.Stat(config.SocketPath(c.workspace)); err != nil {
		return false
	}
	return c.ipc.Ping()
}

// StartDaemon spawns a detached daemon process for the workspace and waits
// briefly for its socket to answer. Idempotent when one is already running.
func (c *Coordinator) StartDaemon() error {
	if c.DaemonRunning() {
		return nil
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	cmd := exec.Command(exe, "daemon", "run", "--workspace", c.workspace)
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = detachedProcAttr()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn daemon: %w", err)
	}
	// Detach: the daemon outlives this invocation.
	if err := cmd.Process.Release(); err != nil {
		return fmt.Errorf("release daemon process: %w", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if c.DaemonRunning() {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("daemon did not come up within 3s: %w", ErrDaemonUnreachable)
}

// StopDaemon asks a running daemon to shut down.
func (c *Coordinator) StopDaemon() error {
	if !c.DaemonRunning() {
		return nil
	}
	resp, err := c.ipc.SendCommand("shutdown", nil)
	if err != nil {
		return fmt.Errorf("stop daemon: %w", err)
	}
	if resp.Status != ipc.StatusOK {
		return fmt.Errorf("stop daemon: %s", resp.Message)
	}
	return nil
}
