package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewRejectsBadOptions(t *testing.T) {
	if _, err := New(Options{Level: "verbose"}); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New(Options{Level: "info", Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestNewStderrOnly(t *testing.T) {
	log, err := New(Options{Level: "debug", Format: "text"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Debug("hello")
	_ = log.Sync()
}

func TestNewWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sensorsim.log")
	log, err := New(Options{Level: "info", Format: "json", File: path, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	log.Info("file sink check")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "file sink check") {
		t.Errorf("log file missing entry: %q", data)
	}
}
