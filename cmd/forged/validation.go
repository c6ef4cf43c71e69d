package main

import (
	"github.com/spf13/cobra"
)

// newValidationCmds builds the validation graph command surface. These are
// the commands hooks call on tool use, so their exit codes carry the
// enforcement decision.
func newValidationCmds(a *app) []*cobra.Command {
	var workflow string
	withWorkflow := func(cmd *cobra.Command) *cobra.Command {
		cmd.Flags().StringVar(&workflow, "workflow", "", "workflow type the validation belongs to")
		_ = cmd.MarkFlagRequired("workflow")
		return cmd
	}

	initProtocol := withWorkflow(&cobra.Command{
		Use:   "init-protocol",
		Short: "instantiate the validation graph for a workflow type",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exec("init-protocol", map[string]any{
				"session":  a.session,
				"workflow": workflow,
			}, exitOK)
		},
	})

	var status, verifiedBy string
	var fromHook bool
	markValidation := withWorkflow(&cobra.Command{
		Use:   "mark-validation <name>",
		Short: "record a validation node outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			by := verifiedBy
			if fromHook {
				by = "hook"
			}
			return a.exec("mark-validation", map[string]any{
				"session":           a.session,
				"workflow":          workflow,
				"name":              args[0],
				"validation_status": status,
				"verified_by":       by,
			}, exitBlocking)
		},
	})
	markValidation.Flags().StringVar(&status, "status", "", "new node status (pending|executed|passed|failed)")
	markValidation.Flags().StringVar(&verifiedBy, "verified-by", "", "verification path (hook|script|manual)")
	markValidation.Flags().BoolVar(&fromHook, "from-hook", false, "shorthand for --verified-by hook")
	_ = markValidation.MarkFlagRequired("status")

	getValidation := withWorkflow(&cobra.Command{
		Use:   "get-validation <name>",
		Short: "print one validation node record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exec("get-validation", map[string]any{
				"session":  a.session,
				"workflow": workflow,
				"name":     args[0],
			}, exitOK)
		},
	})

	var deps []string
	checkDeps := withWorkflow(&cobra.Command{
		Use:   "check-validation-deps <name>",
		Short: "check whether a node's dependencies are satisfied",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exec("check-validation-deps", map[string]any{
				"session":  a.session,
				"workflow": workflow,
				"name":     args[0],
				"deps":     deps,
			}, exitBlocking)
		},
	})
	checkDeps.Flags().StringSliceVar(&deps, "deps", nil, "extra dependency names beyond the declared ones")

	verifyProtocol := withWorkflow(&cobra.Command{
		Use:   "verify-protocol",
		Short: "check that every required validation has genuinely passed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exec("verify-protocol", map[string]any{
				"session":  a.session,
				"workflow": workflow,
			}, exitBlocking)
		},
	})

	suggestParallel := withWorkflow(&cobra.Command{
		Use:   "suggest-parallel",
		Short: "list pending validations whose dependencies have all passed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exec("suggest-parallel", map[string]any{
				"session":  a.session,
				"workflow": workflow,
			}, exitOK)
		},
	})

	var passed bool
	setGate := &cobra.Command{
		Use:   "set-gate <name>",
		Short: "record a named gate outcome for the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exec("set-gate", map[string]any{
				"session": a.session,
				"name":    args[0],
				"passed":  passed,
			}, exitOK)
		},
	}
	setGate.Flags().BoolVar(&passed, "passed", false, "whether the gate passed")

	getGate := &cobra.Command{
		Use:   "get-gate <name>",
		Short: "print a gate record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exec("get-gate", map[string]any{
				"session": a.session,
				"name":    args[0],
			}, exitOK)
		},
	}

	requireGate := &cobra.Command{
		Use:   "require-gate <name>",
		Short: "block unless the named gate has passed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exec("require-gate", map[string]any{
				"session": a.session,
				"name":    args[0],
			}, exitBlocking)
		},
	}

	return []*cobra.Command{
		initProtocol, markValidation, getValidation, checkDeps,
		verifyProtocol, suggestParallel,
		setGate, getGate, requireGate,
	}
}
