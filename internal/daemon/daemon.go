// Package daemon runs the long-lived coordination process: it holds the
// state store in memory, serves it to short-lived clients over a Unix
// socket, persists after every mutation and shuts itself down when idle.
package daemon

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/forgelabs/forged/internal/config"
	"github.com/forgelabs/forged/internal/ipc"
	"github.com/forgelabs/forged/internal/lock"
	"github.com/forgelabs/forged/internal/model"
	"github.com/forgelabs/forged/internal/store"
)

type Daemon struct {
	workspace string
	cfg       config.Config
	logger    *zap.Logger

	fileLock *lock.FileLock
	server   *ipc.Server
	watcher  *fsnotify.Watcher
	st       *store.Store

	lastActivity atomic.Int64
	stop         chan struct{}
	wg           sync.WaitGroup
	shutdown     sync.Once
	done         chan struct{}
}

// New builds a daemon for a workspace. The phase table and protocol set are
// loaded once here and never mutated afterwards.
func New(workspace string, cfg config.Config, logger *zap.Logger) (*Daemon, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	protocols := model.MustDefaultProtocols()
	if cfg.ProtocolsFile != "" {
		raw, err := os.ReadFile(cfg.ProtocolsFile)
		if err != nil {
			return nil, fmt.Errorf("read protocols file: %w", err)
		}
		protocols, err = model.ParseProtocols(raw)
		if err != nil {
			return nil, err
		}
	}

	st, err := store.Open(workspace, model.MustDefaultPhaseTable(), protocols)
	if err != nil {
		return nil, err
	}

	server := ipc.NewServer(config.SocketPath(workspace), logger)
	server.SetConnTimeout(cfg.ConnTimeout)

	d := &Daemon{
		workspace: workspace,
		cfg:       cfg,
		logger:    logger,
		fileLock:  lock.New(config.LockPath(workspace)),
		server:    server,
		st:        st,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	d.touch()
	return d, nil
}

// Run starts the daemon and blocks until shutdown completes.
func (d *Daemon) Run() error {
	if err := d.fileLock.TryLock(); err != nil {
		return fmt.Errorf("daemon lock: %w", err)
	}
	d.logger.Info("daemon starting", zap.Int("pid", os.Getpid()), zap.String("workspace", d.workspace))

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		_ = d.fileLock.Unlock()
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	d.watcher = watcher
	if err := watcher.Add(config.StateDir(d.workspace)); err != nil {
		d.cleanup()
		return fmt.Errorf("watch state dir: %w", err)
	}

	d.registerHandlers()
	d.server.OnRequest(d.touch)

	if err := d.server.Start(); err != nil {
		d.cleanup()
		return fmt.Errorf("start socket server: %w", err)
	}
	d.logger.Info("listening", zap.String("socket", config.SocketPath(d.workspace)))

	d.wg.Add(2)
	go d.watchLoop()
	go d.idleLoop()

	d.waitSignals()
	<-d.done
	return nil
}

func (d *Daemon) touch() {
	d.lastActivity.Store(time.Now().UnixNano())
}

func (d *Daemon) idleSince() time.Duration {
	return time.Since(time.Unix(0, d.lastActivity.Load()))
}

// watchLoop reloads the state document when something other than this
// process replaces it, e.g. a fallback client that wrote while a command
// raced daemon startup. Reloading after our own atomic rename is a no-op.
func (d *Daemon) watchLoop() {
	defer d.wg.Done()

	statePath := d.st.Path()
	for {
		select {
		case <-d.stop:
			return
		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if event.Name != statePath {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				if err := d.st.Reload(); err != nil {
					d.logger.Warn("state reload failed", zap.Error(err))
				}
			}
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// idleLoop shuts the daemon down once the workflow is inactive and no
// command has arrived for the configured idle timeout. The next client
// either falls back to file access or spawns a fresh daemon.
func (d *Daemon) idleLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.cfg.IdleCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			if d.st.IsActive() {
				continue
			}
			if idle := d.idleSince(); idle > d.cfg.IdleTimeout {
				d.logger.Info("idle timeout, shutting down", zap.Duration("idle", idle))
				go d.Shutdown()
				return
			}
		}
	}
}

func (d *Daemon) waitSignals() {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		select {
		case sig := <-sigCh:
			d.logger.Info("received signal", zap.String("signal", sig.String()))
			// Second signal forces exit.
			go func() {
				<-sigCh
				d.logger.Warn("second signal, forcing exit")
				os.Exit(1)
			}()
			d.Shutdown()
		case <-d.stop:
		}
		signal.Stop(sigCh)
	}()
}

// Shutdown performs graceful shutdown, idempotently: stop accepting, drain
// in-flight handlers with a bounded wait, release resources.
func (d *Daemon) Shutdown() {
	d.shutdown.Do(func() {
		d.logger.Info("shutdown started")
		close(d.stop)

		if d.watcher != nil {
			_ = d.watcher.Close()
		}
		_ = d.server.Stop()

		drained := make(chan struct{})
		go func() {
			d.wg.Wait()
			close(drained)
		}()
		select {
		case <-drained:
		case <-time.After(d.cfg.ShutdownTimeout):
			d.logger.Warn("shutdown drain timeout", zap.Duration("timeout", d.cfg.ShutdownTimeout))
		}

		d.cleanup()
		d.logger.Info("daemon stopped")
		close(d.done)
	})
}

func (d *Daemon) cleanup() {
	_ = os.Remove(config.SocketPath(d.workspace))
	_ = d.fileLock.Unlock()
}

// NewLogger builds the daemon's file-backed logger.
func NewLogger(workspace, level string) (*zap.Logger, error) {
	logPath := config.LogPath(workspace)
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		lvl = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.OutputPaths = []string{logPath}
	cfg.ErrorOutputPaths = []string{logPath}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
