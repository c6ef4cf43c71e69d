package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forgelabs/forged/internal/config"
	"github.com/forgelabs/forged/internal/daemon"
	"github.com/forgelabs/forged/internal/lock"
)

// newDaemonCmd builds the daemon lifecycle subtree.
func newDaemonCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "daemon",
		Short: "manage the coordination daemon",
	}

	run := &cobra.Command{
		Use:   "run",
		Short: "run the daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(config.StateDir(a.workspace), 0o755); err != nil {
				return fmt.Errorf("create state dir: %w", err)
			}
			logger, err := daemon.NewLogger(a.workspace, a.cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			d, err := daemon.New(a.workspace, a.cfg, logger)
			if err != nil {
				return err
			}
			return d.Run()
		},
	}

	start := &cobra.Command{
		Use:   "start",
		Short: "spawn a background daemon for the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.coor.StartDaemon(); err != nil {
				return err
			}
			fmt.Println("daemon running")
			return nil
		},
	}

	stop := &cobra.Command{
		Use:   "stop",
		Short: "stop the workspace daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.coor.StopDaemon(); err != nil {
				return err
			}
			fmt.Println("daemon stopped")
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "report whether a daemon answers for the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.coor.DaemonRunning() {
				if pid, err := lock.New(config.LockPath(a.workspace)).HolderPID(); err == nil {
					fmt.Printf("daemon running (pid %d)\n", pid)
				} else {
					fmt.Println("daemon running")
				}
				return nil
			}
			fmt.Println("daemon not running")
			return &exitError{code: exitFailure}
		},
	}

	ping := &cobra.Command{
		Use:   "ping",
		Short: "one round trip over the socket",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.coor.DaemonRunning() {
				fmt.Println("daemon not running")
				return &exitError{code: exitFailure}
			}
			resp, err := a.coor.Exec("ping", nil)
			if err != nil {
				return err
			}
			fmt.Printf("pong (pid %d)\n", resp.Int("pid"))
			return nil
		},
	}

	root.AddCommand(run, start, stop, status, ping)
	return root
}
