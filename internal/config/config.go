// Package config loads forged runtime configuration: compiled-in defaults,
// overridden by <workspace>/.forged/config.yaml, overridden by FORGED_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// StateDirName is the per-workspace directory holding socket, lock, log and
// state document.
const StateDirName = ".forged"

type Config struct {
	// IdleTimeout is how long the daemon may sit idle with no active
	// workflow before shutting itself down.
	IdleTimeout time.Duration `koanf:"idle_timeout"`
	// IdleCheckInterval is how often the idle condition is evaluated.
	IdleCheckInterval time.Duration `koanf:"idle_check_interval"`
	// ConnTimeout bounds a single client read/connect.
	ConnTimeout time.Duration `koanf:"conn_timeout"`
	// ShutdownTimeout bounds the in-flight drain on graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	LogLevel        string        `koanf:"log_level"`
	// ProtocolsFile optionally overrides the embedded workflow protocols.
	ProtocolsFile string `koanf:"protocols_file"`
}

func Default() Config {
	return Config{
		IdleTimeout:       5 * time.Minute,
		IdleCheckInterval: 30 * time.Second,
		ConnTimeout:       3 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		LogLevel:          "info",
	}
}

// Load resolves the config for a workspace.
func Load(workspaceRoot string) (Config, error) {
	k := koanf.New(".")

	def := Default()
	defaults := map[string]any{
		"idle_timeout":        def.IdleTimeout.String(),
		"idle_check_interval": def.IdleCheckInterval.String(),
		"conn_timeout":        def.ConnTimeout.String(),
		"shutdown_timeout":    def.ShutdownTimeout.String(),
		"log_level":           def.LogLevel,
		"protocols_file":      "",
	}
	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return Config{}, fmt.Errorf("set default %s: %w", key, err)
		}
	}

	cfgPath := filepath.Join(StateDir(workspaceRoot), "config.yaml")
	if raw, err := os.ReadFile(cfgPath); err == nil {
		if err := k.Load(rawbytes.Provider(raw), koanfyaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", cfgPath, err)
		}
	}

	if err := k.Load(env.Provider("FORGED_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "FORGED_"))
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load env config: %w", err)
	}

	cfg := Config{
		LogLevel:      k.String("log_level"),
		ProtocolsFile: k.String("protocols_file"),
	}
	for _, d := range []struct {
		key string
		dst *time.Duration
	}{
		{"idle_timeout", &cfg.IdleTimeout},
		{"idle_check_interval", &cfg.IdleCheckInterval},
		{"conn_timeout", &cfg.ConnTimeout},
		{"shutdown_timeout", &cfg.ShutdownTimeout},
	} {
		dur, err := time.ParseDuration(k.String(d.key))
		if err != nil {
			return Config{}, fmt.Errorf("config %s: %w", d.key, err)
		}
		*d.dst = dur
	}

	return cfg, nil
}

// WorkspaceRoot resolves the workspace root: FORGED_WORKSPACE, else cwd.
func WorkspaceRoot() string {
	if ws := os.Getenv("FORGED_WORKSPACE"); ws != "" {
		return ws
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

func StateDir(workspaceRoot string) string {
	return filepath.Join(workspaceRoot, StateDirName)
}

func StateFile(workspaceRoot string) string {
	return filepath.Join(StateDir(workspaceRoot), "state.json")
}

func SocketPath(workspaceRoot string) string {
	return filepath.Join(StateDir(workspaceRoot), "forged.sock")
}

func LockPath(workspaceRoot string) string {
	return filepath.Join(StateDir(workspaceRoot), "forged.lock")
}

func LogPath(workspaceRoot string) string {
	return filepath.Join(StateDir(workspaceRoot), "forged.log")
}
