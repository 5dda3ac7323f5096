package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestNewLoggerCreatesLogFile(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelDebug)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer func() { _ = logger.Close() }()

	logger.Info("slot claimed", "slot", "slot-1")

	logPath := filepath.Join(dir, LogFileName)
	if _, err := os.Stat(logPath); err != nil {
		t.Fatalf("expected log file at %s: %v", logPath, err)
	}
}

func TestLoggerWritesStructuredEntries(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelDebug)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	logger.WithSlot("slot-3").WithSession("abc").Info("dispatched", "response", "messages/x_res.md")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	file, err := os.Open(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		t.Fatal("expected at least one log line")
	}

	var entry map[string]any
	if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "dispatched" {
		t.Errorf("msg = %v, want %q", entry["msg"], "dispatched")
	}
	if entry["slot"] != "slot-3" {
		t.Errorf("slot = %v, want %q", entry["slot"], "slot-3")
	}
	if entry["session_id"] != "abc" {
		t.Errorf("session_id = %v, want %q", entry["session_id"], "abc")
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelError)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	logger.Debug("should be dropped")
	logger.Info("should be dropped too")
	logger.Error("kept")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}

	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	if lines != 1 {
		t.Errorf("expected 1 entry at ERROR level, got %d", lines)
	}
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	logger.Info("goes nowhere")
	if err := logger.Close(); err != nil {
		t.Errorf("Close on nop logger: %v", err)
	}
}
