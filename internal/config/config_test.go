package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.IdleTimeout != 5*time.Minute {
		t.Errorf("IdleTimeout = %v, want 5m", cfg.IdleTimeout)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.ProtocolsFile != "" {
		t.Errorf("ProtocolsFile = %q, want empty", cfg.ProtocolsFile)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	workspace := t.TempDir()
	stateDir := StateDir(workspace)
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	yaml := "idle_timeout: 90s\nlog_level: debug\n"
	if err := os.WriteFile(filepath.Join(stateDir, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(workspace)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.IdleTimeout != 90*time.Second {
		t.Errorf("IdleTimeout = %v, want 90s", cfg.IdleTimeout)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.ConnTimeout != 3*time.Second {
		t.Errorf("ConnTimeout = %v, want default 3s", cfg.ConnTimeout)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	workspace := t.TempDir()
	stateDir := StateDir(workspace)
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(stateDir, "config.yaml"), []byte("log_level: debug\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("FORGED_LOG_LEVEL", "warn")
	t.Setenv("FORGED_IDLE_TIMEOUT", "10m")

	cfg, err := Load(workspace)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
	if cfg.IdleTimeout != 10*time.Minute {
		t.Errorf("IdleTimeout = %v, want 10m", cfg.IdleTimeout)
	}
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("FORGED_IDLE_TIMEOUT", "not-a-duration")
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("Load with bad duration = nil error, want error")
	}
}

func TestWorkspaceRoot(t *testing.T) {
	t.Setenv("FORGED_WORKSPACE", "/explicit/path")
	if got := WorkspaceRoot(); got != "/explicit/path" {
		t.Errorf("WorkspaceRoot = %q, want /explicit/path", got)
	}

	t.Setenv("FORGED_WORKSPACE", "")
	wd, _ := os.Getwd()
	if got := WorkspaceRoot(); got != wd {
		t.Errorf("WorkspaceRoot = %q, want cwd %q", got, wd)
	}
}

func TestPaths(t *testing.T) {
	ws := "/w"
	if got := StateFile(ws); got != "/w/.forged/state.json" {
		t.Errorf("StateFile = %q", got)
	}
	if got := SocketPath(ws); got != "/w/.forged/forged.sock" {
		t.Errorf("SocketPath = %q", got)
	}
	if got := LockPath(ws); got != "/w/.forged/forged.lock" {
		t.Errorf("LockPath = %q", got)
	}
}
