package jsonfile

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Quarantine moves an unparseable file into stateDir/quarantine under a
// timestamped name so a fresh document can take its place. The corrupted
// content is preserved for inspection, never silently discarded.
func Quarantine(stateDir, filePath string) (string, error) {
	quarantineDir := filepath.Join(stateDir, "quarantine")
	if err := os.MkdirAll(quarantineDir, 0o755); err != nil {
		return "", fmt.Errorf("create quarantine dir: %w", err)
	}

	baseName := filepath.Base(filePath)
	timestamp := time.Now().Format("20060102T150405")
	quarantinePath := filepath.Join(quarantineDir, fmt.Sprintf("%s.%s.corrupt", baseName, timestamp))

	if err := os.Rename(filePath, quarantinePath); err != nil {
		return "", fmt.Errorf("move to quarantine: %w", err)
	}
	return quarantinePath, nil
}

// RestoreFromBackup replaces filePath with its .bak copy if the backup
// still parses.
func RestoreFromBackup(filePath string) error {
	bakPath := filePath + ".bak"
	content, err := os.ReadFile(bakPath)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	if err := validateJSON(content); err != nil {
		return fmt.Errorf("backup is also corrupted: %w", err)
	}
	if err := os.WriteFile(filePath, content, 0o644); err != nil {
		return fmt.Errorf("restore from backup: %w", err)
	}
	return nil
}
