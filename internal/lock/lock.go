// Package lock provides the flock-based singleton lock that keeps at most
// one forged daemon running per workspace.
package lock

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

type FileLock struct {
	path string
	file *os.File
}

func New(path string) *FileLock {
	return &FileLock{path: path}
}

func (fl *FileLock) Path() string {
	return fl.path
}

// TryLock acquires the lock without blocking and records the holder PID.
// Fails when another daemon already holds the lock.
func (fl *FileLock) TryLock() error {
	f, err := os.OpenFile(fl.path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		return fmt.Errorf("acquire lock (another daemon may be running): %w", err)
	}

	if err := writePID(f); err != nil {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		_ = f.Close()
		return err
	}

	fl.file = f
	return nil
}

func writePID(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return fmt.Errorf("seek lock file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		return fmt.Errorf("write PID to lock file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync lock file: %w", err)
	}
	return nil
}

// HolderPID reads the PID recorded in the lock file, if any.
func (fl *FileLock) HolderPID() (int, error) {
	content, err := os.ReadFile(fl.path)
	if err != nil {
		return 0, fmt.Errorf("read lock file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(content)))
	if err != nil {
		return 0, fmt.Errorf("parse lock file PID: %w", err)
	}
	return pid, nil
}

// Unlock releases the lock and removes the lock file. Safe to call when
// the lock was never acquired.
func (fl *FileLock) Unlock() error {
	if fl.file == nil {
		return nil
	}

	if err := syscall.Flock(int(fl.file.Fd()), syscall.LOCK_UN); err != nil {
		_ = fl.file.Close()
		return fmt.Errorf("release lock: %w", err)
	}
	if err := fl.file.Close(); err != nil {
		return fmt.Errorf("close lock file: %w", err)
	}

	_ = os.Remove(fl.path)
	fl.file = nil
	return nil
}
