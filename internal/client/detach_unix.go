//go:build unix

package client

import "syscall"

// detachedProcAttr puts the spawned daemon in its own session so it
// survives the parent hook process and its terminal.
func detachedProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
