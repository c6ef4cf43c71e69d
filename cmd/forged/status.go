package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newStatusCmd builds the human-readable status report.
func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "print a human-readable coordination status report",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.coor.Exec("get", nil)
			if err != nil {
				return err
			}

			if a.coor.DaemonRunning() {
				fmt.Println("daemon:   running")
			} else {
				fmt.Println("daemon:   not running (direct file access)")
			}

			wf, _ := resp.Fields["workflow"].(map[string]any)
			active, _ := wf["active"].(bool)
			phase := intField(wf, "phase")
			if active {
				fmt.Printf("workflow: active, phase %d\n", phase)
			} else {
				fmt.Println("workflow: inactive")
			}
			if confirmed, _ := wf["confirmed"].(bool); confirmed {
				fmt.Println("confirm:  granted")
			} else if reconfirm, _ := wf["requires_reconfirmation"].(bool); reconfirm {
				fmt.Println("confirm:  stale, design changed since approval")
			}
			if hash, _ := wf["design_hash"].(string); hash != "" {
				fmt.Printf("design:   %s\n", hash)
			}

			sessions, _ := resp.Fields["sessions"].(map[string]any)
			if ss, ok := sessions[a.session].(map[string]any); ok {
				if stack, ok := ss["stack"].([]any); ok && len(stack) > 0 {
					top, _ := stack[len(stack)-1].(map[string]any)
					typ, _ := top["workflow_type"].(string)
					label, _ := top["current_phase"].(string)
					fmt.Printf("stack:    depth %d, active %s (%s)\n", len(stack), typ, label)
				}
			}
			return nil
		},
	}
}

func intField(m map[string]any, key string) int {
	if v, ok := m[key].(float64); ok {
		return int(v)
	}
	return 0
}
