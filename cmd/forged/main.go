// forged coordinates multi-agent workflows for a workspace: a phase state
// machine, a validation dependency graph and a per-session workflow stack,
// served by a socket daemon with transparent file fallback.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		fmt.Fprintf(os.Stderr, "forged: %v\n", err)
		os.Exit(1)
	}
}
