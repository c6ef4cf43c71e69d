//go:build !unix

package client

import "syscall"

func detachedProcAttr() *syscall.SysProcAttr {
	return nil
}
