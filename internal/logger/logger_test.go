package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readLog(t *testing.T, dir string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "daybook.log"))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	return string(data)
}

func TestInit(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "logs")

	if err := Init(Config{Dir: logDir}); err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}
	t.Cleanup(func() { Close() })

	if _, err := os.Stat(logDir); os.IsNotExist(err) {
		t.Errorf("Log directory was not created: %s", logDir)
	}

	Debug("Test debug message")
	Info("Test info message")
	Warn("Test warning message", "key", "value")
	Error("Test error message")

	content := readLog(t, logDir)
	if !strings.Contains(content, "Test warning message") || !strings.Contains(content, "key=value") {
		t.Errorf("expected warning with its field in log file, got %q", content)
	}
	if strings.Contains(content, "Test debug message") || strings.Contains(content, "Test info message") {
		t.Error("debug and info messages should be filtered at the default level")
	}
}

func TestInitLevel(t *testing.T) {
	logDir := t.TempDir()

	if err := Init(Config{Dir: logDir, Level: "info"}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { Close() })

	Debug("hidden")
	Info("shown")

	content := readLog(t, logDir)
	if strings.Contains(content, "hidden") || !strings.Contains(content, "shown") {
		t.Errorf("info level filtered wrongly, got %q", content)
	}

	if err := Init(Config{Dir: logDir, Level: "chatty"}); err == nil {
		t.Error("expected an error for an unknown level")
	}
}

func TestInitDebugMirrorsToStderr(t *testing.T) {
	logDir := t.TempDir()
	var stderr bytes.Buffer

	if err := Init(Config{Dir: logDir, Level: "error", Debug: true, Stderr: &stderr}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { Close() })

	Debug("Test debug message in debug mode")

	if !strings.Contains(readLog(t, logDir), "Test debug message in debug mode") {
		t.Error("expected debug message in log file; Debug overrides Level")
	}
	if !strings.Contains(stderr.String(), "Test debug message in debug mode") {
		t.Error("expected debug message mirrored to stderr")
	}
}

func TestInitJSON(t *testing.T) {
	logDir := t.TempDir()

	if err := Init(Config{Dir: logDir, JSON: true}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { Close() })

	Warn("structured", "table", "notes")

	line := strings.TrimSpace(readLog(t, logDir))
	var rec map[string]any
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		t.Fatalf("log line is not JSON: %q: %v", line, err)
	}
	if rec["msg"] != "structured" || rec["table"] != "notes" {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestCloseStopsLogging(t *testing.T) {
	logDir := t.TempDir()

	if err := Init(Config{Dir: logDir}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	Warn("before close")
	if err := Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	Warn("after close")

	content := readLog(t, logDir)
	if !strings.Contains(content, "before close") || strings.Contains(content, "after close") {
		t.Errorf("unexpected log content after Close: %q", content)
	}
	if err := Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
}

func TestLogFunctionsWithoutInit(t *testing.T) {
	Close()

	// These should not panic before Init
	Debug("Test debug message")
	Info("Test info message")
	Warn("Test warning message")
	Error("Test error message")
}
