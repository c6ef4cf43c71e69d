package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// newWorkflowCmds builds the phase machine command surface.
func newWorkflowCmds(a *app) []*cobra.Command {
	get := &cobra.Command{
		Use:   "get",
		Short: "dump the full coordination state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exec("get", nil, exitOK)
		},
	}

	getPhase := &cobra.Command{
		Use:   "get-phase",
		Short: "print the current phase index",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exec("get-phase", nil, exitOK)
		},
	}

	isActive := &cobra.Command{
		Use:   "is-active",
		Short: "report whether a workflow is active",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exec("is-active", nil, exitOK)
		},
	}

	phases := &cobra.Command{
		Use:   "phases",
		Short: "list the phase table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exec("phases", nil, exitOK)
		},
	}

	activate := &cobra.Command{
		Use:   "activate",
		Short: "activate the workflow at its first phase",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Best effort: an activated workflow should have a daemon
			// enforcing it, but activation itself works over the fallback.
			if err := a.coor.StartDaemon(); err != nil {
				fmt.Fprintf(os.Stderr, "forged: could not start daemon: %v\n", err)
			}
			return a.exec("activate", nil, exitOK)
		},
	}

	deactivate := &cobra.Command{
		Use:   "deactivate",
		Short: "deactivate the workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exec("deactivate", nil, exitOK)
		},
	}

	confirm := &cobra.Command{
		Use:   "confirm",
		Short: "record user confirmation for the confirmation phase",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exec("confirm", nil, exitBlocking)
		},
	}

	var agent string
	checkpoint := &cobra.Command{
		Use:   "checkpoint",
		Short: "complete the current phase as the named agent and advance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exec("checkpoint", map[string]any{"agent": agent}, exitBlocking)
		},
	}
	checkpoint.Flags().StringVar(&agent, "agent", "", "agent identity completing the phase")
	_ = checkpoint.MarkFlagRequired("agent")

	setPhase := &cobra.Command{
		Use:   "set-phase <index>",
		Short: "jump the workflow to a phase index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("phase index: %w", err)
			}
			return a.exec("set-phase", map[string]any{"phase": n}, exitOK)
		},
	}

	var designFile string
	setDesignHash := &cobra.Command{
		Use:   "set-design-hash [content]",
		Short: "record the design fingerprint, invalidating stale confirmation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := contentArg(args, designFile)
			if err != nil {
				return err
			}
			return a.exec("set-design-hash", map[string]any{"content": content}, exitOK)
		},
	}
	setDesignHash.Flags().StringVar(&designFile, "file", "", "read design content from a file ('-' for stdin)")

	var revisionID string
	addRollback := &cobra.Command{
		Use:   "add-rollback <description>",
		Short: "record a rollback point before a destructive step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exec("add-rollback", map[string]any{
				"description": args[0],
				"revision_id": revisionID,
			}, exitOK)
		},
	}
	addRollback.Flags().StringVar(&revisionID, "revision", "", "VCS revision identifier for the rollback point")

	getRollbacks := &cobra.Command{
		Use:   "get-rollbacks",
		Short: "list recorded rollback points",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exec("get-rollbacks", nil, exitOK)
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "discard all coordination state for the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exec("reset", nil, exitOK)
		},
	}

	return []*cobra.Command{
		get, getPhase, isActive, phases,
		activate, deactivate, confirm, checkpoint,
		setPhase, setDesignHash, addRollback, getRollbacks, reset,
	}
}

// contentArg resolves content from a positional arg, a file flag, or stdin.
func contentArg(args []string, file string) (string, error) {
	switch {
	case file == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		return string(data), nil
	case len(args) == 1:
		return args[0], nil
	}
	return "", fmt.Errorf("content required: pass an argument or --file")
}
