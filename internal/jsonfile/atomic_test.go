package jsonfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAtomicWrite_Success(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	if err := AtomicWrite(path, map[string]any{"key": "value", "count": 42}); err != nil {
		t.Fatalf("AtomicWrite failed: %v", err)
	}

	var result map[string]any
	if err := Load(path, &result); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if result["key"] != "value" {
		t.Errorf("key: got %v, want %q", result["key"], "value")
	}
	if result["count"] != float64(42) {
		t.Errorf("count: got %v, want 42", result["count"])
	}
}

func TestAtomicWrite_CreatesBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	if err := AtomicWrite(path, map[string]string{"version": "1"}); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if err := AtomicWrite(path, map[string]string{"version": "2"}); err != nil {
		t.Fatalf("second write failed: %v", err)
	}

	var bak map[string]string
	if err := Load(path+".bak", &bak); err != nil {
		t.Fatalf("load backup: %v", err)
	}
	if bak["version"] != "1" {
		t.Errorf("backup version = %q, want 1", bak["version"])
	}

	var cur map[string]string
	if err := Load(path, &cur); err != nil {
		t.Fatalf("load current: %v", err)
	}
	if cur["version"] != "2" {
		t.Errorf("current version = %q, want 2", cur["version"])
	}
}

func TestAtomicWrite_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	if err := AtomicWrite(path, map[string]int{"n": 1}); err != nil {
		t.Fatalf("AtomicWrite failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".forged-tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	var v map[string]any
	if err := Load(filepath.Join(t.TempDir(), "absent.json"), &v); err == nil {
		t.Error("Load of missing file = nil error, want error")
	}
}

func TestQuarantine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	moved, err := Quarantine(dir, path)
	if err != nil {
		t.Fatalf("Quarantine failed: %v", err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("original file still present after quarantine")
	}
	content, err := os.ReadFile(moved)
	if err != nil {
		t.Fatalf("read quarantined file: %v", err)
	}
	if string(content) != "{not json" {
		t.Errorf("quarantined content = %q, want original", content)
	}
	if !strings.HasSuffix(moved, ".corrupt") {
		t.Errorf("quarantine name = %q, want .corrupt suffix", moved)
	}
	if filepath.Dir(moved) != filepath.Join(dir, "quarantine") {
		t.Errorf("quarantine dir = %q", filepath.Dir(moved))
	}
}

func TestRestoreFromBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	if err := AtomicWrite(path, map[string]string{"v": "good"}); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if err := AtomicWrite(path, map[string]string{"v": "newer"}); err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	// Corrupt the live file; the backup still holds the previous version.
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatalf("corrupt file: %v", err)
	}

	if err := RestoreFromBackup(path); err != nil {
		t.Fatalf("RestoreFromBackup failed: %v", err)
	}

	var v map[string]string
	if err := Load(path, &v); err != nil {
		t.Fatalf("load restored: %v", err)
	}
	if v["v"] != "good" {
		t.Errorf("restored v = %q, want good", v["v"])
	}
}

func TestRestoreFromBackup_CorruptBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	if err := os.WriteFile(path+".bak", []byte("also bad"), 0o644); err != nil {
		t.Fatalf("write backup: %v", err)
	}
	if err := RestoreFromBackup(path); err == nil {
		t.Error("RestoreFromBackup with corrupt backup = nil error, want error")
	}
}
