package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// newStackCmds builds the workflow stack and command step surface.
func newStackCmds(a *app) []*cobra.Command {
	push := &cobra.Command{
		Use:   "push-workflow <type>",
		Short: "push a nested workflow, suspending the current one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exec("push-workflow", map[string]any{
				"session":       a.session,
				"workflow_type": args[0],
			}, exitOK)
		},
	}

	pop := &cobra.Command{
		Use:   "pop-workflow",
		Short: "pop the active workflow, resuming its parent",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exec("pop-workflow", map[string]any{"session": a.session}, exitOK)
		},
	}

	active := &cobra.Command{
		Use:   "get-active-workflow",
		Short: "print the workflow on top of the session stack",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exec("get-active-workflow", map[string]any{"session": a.session}, exitOK)
		},
	}

	stack := &cobra.Command{
		Use:   "get-workflow-stack",
		Short: "print the whole session workflow stack",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exec("get-workflow-stack", map[string]any{"session": a.session}, exitOK)
		},
	}

	clear := &cobra.Command{
		Use:   "clear-workflow-stack",
		Short: "drop the session workflow stack",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exec("clear-workflow-stack", map[string]any{"session": a.session}, exitOK)
		},
	}

	setWorkflowPhase := &cobra.Command{
		Use:   "set-workflow-phase <phase>",
		Short: "set the phase label on the active stacked workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exec("set-workflow-phase", map[string]any{
				"session": a.session,
				"phase":   args[0],
			}, exitOK)
		},
	}

	getStep := &cobra.Command{
		Use:   "get-command-step",
		Short: "print the session's current command step",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exec("get-command-step", map[string]any{"session": a.session}, exitOK)
		},
	}

	setStep := &cobra.Command{
		Use:   "set-command-step <step>",
		Short: "set the session's command step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("step: %w", err)
			}
			return a.exec("set-command-step", map[string]any{
				"session": a.session,
				"step":    n,
			}, exitOK)
		},
	}

	advanceStep := &cobra.Command{
		Use:   "advance-command-step",
		Short: "advance the session's command step by one",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exec("advance-command-step", map[string]any{"session": a.session}, exitOK)
		},
	}

	checkSequence := &cobra.Command{
		Use:   "check-sequence <key> <required-step>",
		Short: "enforce linear progression on a keyed step counter",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("required step: %w", err)
			}
			return a.exec("check-sequence", map[string]any{
				"key":           args[0],
				"required_step": n,
			}, exitBlocking)
		},
	}

	return []*cobra.Command{
		push, pop, active, stack, clear, setWorkflowPhase,
		getStep, setStep, advanceStep, checkSequence,
	}
}
