package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forgelabs/forged/internal/client"
	"github.com/forgelabs/forged/internal/config"
	"github.com/forgelabs/forged/internal/ipc"
)

// Exit codes follow the hook contract: 0 lets the action proceed, 1 is a
// local or transport failure, 2 is an enforcement decision that must block
// the calling agent.
const (
	exitOK       = 0
	exitFailure  = 1
	exitBlocking = 2
)

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

// app carries the flag-resolved context shared by every subcommand.
type app struct {
	workspace string
	session   string

	cfg  config.Config
	coor *client.Coordinator
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "forged",
		Short:         "workflow coordination daemon and client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.workspace == "" {
				a.workspace = config.WorkspaceRoot()
			}
			if a.session == "" {
				a.session = os.Getenv("FORGED_SESSION")
			}
			if a.session == "" {
				a.session = "default"
			}
			cfg, err := config.Load(a.workspace)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.coor = client.New(a.workspace, cfg)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.workspace, "workspace", "", "workspace root (default $FORGED_WORKSPACE or cwd)")
	root.PersistentFlags().StringVar(&a.session, "session", "", "session identifier (default $FORGED_SESSION)")

	root.AddCommand(newDaemonCmd(a), newStatusCmd(a))
	root.AddCommand(newWorkflowCmds(a)...)
	root.AddCommand(newValidationCmds(a)...)
	root.AddCommand(newStackCmds(a)...)
	root.AddCommand(newStateCmds(a)...)
	return root
}

// exec runs one wire command and prints the reply as a JSON line. Transport
// failure exits 1; a status:error reply exits 1; a refused enforcement
// outcome exits per blockCode.
func (a *app) exec(cmd string, params any, blockCode int) error {
	resp, err := a.coor.Exec(cmd, params)
	if err != nil {
		return err
	}

	if a.coor.Degraded() {
		fmt.Fprintln(os.Stderr, "forged: daemon socket present but unreachable, used direct file access")
	}

	out, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	fmt.Println(string(out))

	if resp.Status != ipc.StatusOK {
		fmt.Fprintf(os.Stderr, "forged: %s\n", resp.Message)
		return &exitError{code: exitFailure}
	}
	if !a.outcomeAllowed(resp) {
		if blockCode != exitOK {
			printBlockReason(resp)
			return &exitError{code: blockCode}
		}
		return &exitError{code: exitFailure}
	}
	return nil
}

// outcomeAllowed interprets the reply payload: an explicit allowed or
// satisfied field wins, otherwise the success flag decides.
func (a *app) outcomeAllowed(resp *ipc.Response) bool {
	if v, ok := resp.Fields["allowed"].(bool); ok {
		return v
	}
	if v, ok := resp.Fields["satisfied"].(bool); ok {
		return v
	}
	return resp.Success()
}

// printBlockReason writes the human-readable enforcement diagnostics that
// agents surface verbatim.
func printBlockReason(resp *ipc.Response) {
	if msg := resp.String("error"); msg != "" {
		fmt.Fprintf(os.Stderr, "BLOCKED: %s\n", msg)
	} else {
		fmt.Fprintln(os.Stderr, "BLOCKED")
	}
	if agent := resp.String("expected_agent"); agent != "" {
		fmt.Fprintf(os.Stderr, "  expected agent: %s\n", agent)
	}
	if deps, ok := resp.Fields["failed_deps"].([]any); ok && len(deps) > 0 {
		fmt.Fprintf(os.Stderr, "  unmet dependencies: %v\n", deps)
	}
	if missing, ok := resp.Fields["missing"].([]any); ok && len(missing) > 0 {
		fmt.Fprintf(os.Stderr, "  missing validations: %v\n", missing)
	}
	if failed, ok := resp.Fields["failed"].([]any); ok && len(failed) > 0 {
		fmt.Fprintf(os.Stderr, "  failed validations: %v\n", failed)
	}
	if st := resp.String("validation_status"); st != "" {
		fmt.Fprintf(os.Stderr, "  recorded status: %s\n", st)
	}
}
