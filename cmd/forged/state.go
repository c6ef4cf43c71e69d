package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// newStateCmds builds the general key/value state surface.
func newStateCmds(a *app) []*cobra.Command {
	kvGet := &cobra.Command{
		Use:   "kv-get <key>",
		Short: "print a stored value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exec("kv-get", map[string]any{"key": args[0]}, exitOK)
		},
	}

	kvSet := &cobra.Command{
		Use:   "kv-set <key> <value>",
		Short: "store a value under a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			// JSON values pass through typed; anything else is a string.
			var value any
			if err := json.Unmarshal([]byte(args[1]), &value); err != nil {
				value = args[1]
			}
			return a.exec("kv-set", map[string]any{"key": args[0], "value": value}, exitOK)
		},
	}

	kvInc := &cobra.Command{
		Use:   "kv-inc <key>",
		Short: "increment an integer counter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exec("kv-inc", map[string]any{"key": args[0]}, exitOK)
		},
	}

	kvDec := &cobra.Command{
		Use:   "kv-dec <key>",
		Short: "decrement an integer counter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exec("kv-dec", map[string]any{"key": args[0]}, exitOK)
		},
	}

	kvList := &cobra.Command{
		Use:   "kv-list",
		Short: "print the whole key/value map",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exec("kv-list", nil, exitOK)
		},
	}

	kvClear := &cobra.Command{
		Use:   "kv-clear",
		Short: "drop the whole key/value map",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exec("kv-clear", nil, exitOK)
		},
	}

	clearSession := &cobra.Command{
		Use:   "clear-session",
		Short: "drop all state scoped to the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exec("clear-session", map[string]any{"session": a.session}, exitOK)
		},
	}

	return []*cobra.Command{kvGet, kvSet, kvInc, kvDec, kvList, kvClear, clearSession}
}
