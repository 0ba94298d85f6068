package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"salespipe/internal/config"
)

func TestInitializeLogger(t *testing.T) {
	// Reset logger state before test
	ResetLoggerForTesting()
	defer ResetLoggerForTesting() // Cleanup after test

	tempDir := t.TempDir()
	logFile := filepath.Join(tempDir, "logs", "test.log")

	cfg := config.LoggingConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: logFile,
	}

	logger, err := InitializeLogger(cfg)
	if err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}
	if logger == nil {
		t.Fatal("Logger is nil")
	}

	// Test that log file was created along with its directory
	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		t.Error("Log file was not created")
	}

	logger.Info("test message", "key", "value")

	// Close log file to allow reading on Windows
	CloseLogFile()

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	var logEntry map[string]interface{}
	if err := json.Unmarshal(content, &logEntry); err != nil {
		t.Fatalf("Log output is not valid JSON: %v", err)
	}

	if logEntry["msg"] != "test message" {
		t.Errorf("Expected msg='test message', got %v", logEntry["msg"])
	}
	if logEntry["key"] != "value" {
		t.Errorf("Expected key='value', got %v", logEntry["key"])
	}
	if logEntry["level"] != "INFO" {
		t.Errorf("Expected level='INFO', got %v", logEntry["level"])
	}
}

func TestRunIDInjection(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(config.LoggingConfig{Level: "debug", Format: "json", Output: "console"}, &buf)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	ctx := WithRunID(context.Background(), "run-123")
	logger.InfoContext(ctx, "stage finished")

	var logEntry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("Failed to parse log JSON: %v", err)
	}
	if logEntry["run_id"] != "run-123" {
		t.Errorf("Expected run_id='run-123', got %v", logEntry["run_id"])
	}

	// Child loggers keep the injection
	buf.Reset()
	WithComponent(logger, "loader").InfoContext(ctx, "loaded")
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("Failed to parse log JSON: %v", err)
	}
	if logEntry["run_id"] != "run-123" || logEntry["component"] != "loader" {
		t.Errorf("Expected run_id and component, got %v", logEntry)
	}
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level     string
		debugSeen bool
		warnSeen  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"warn", false, true},
		{"error", false, false},
		{"bogus", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := NewLogger(config.LoggingConfig{Level: tt.level, Format: "json"}, &buf)
			if err != nil {
				t.Fatalf("Failed to create logger: %v", err)
			}

			logger.Debug("debug line")
			logger.Warn("warn line")

			out := buf.String()
			if strings.Contains(out, "debug line") != tt.debugSeen {
				t.Errorf("debug visibility = %v, want %v", !tt.debugSeen, tt.debugSeen)
			}
			if strings.Contains(out, "warn line") != tt.warnSeen {
				t.Errorf("warn visibility = %v, want %v", !tt.warnSeen, tt.warnSeen)
			}
		})
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(config.LoggingConfig{Level: "info", Format: "text"}, &buf)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	logger.Info("hello", "rows", 3)

	out := buf.String()
	if !strings.Contains(out, "msg=hello") || !strings.Contains(out, "rows=3") {
		t.Errorf("Unexpected text output: %q", out)
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := ContextWithRunID(context.Background())
	runID := GetRunID(ctx)
	if runID == "" {
		t.Error("Expected run ID to be generated")
	}

	// Ensure should not change an existing ID
	if GetRunID(EnsureRunID(ctx)) != runID {
		t.Error("EnsureRunID changed existing run ID")
	}

	// Ensure should add one when missing
	if GetRunID(EnsureRunID(context.Background())) == "" {
		t.Error("EnsureRunID did not add run ID")
	}

	if GetRunID(nil) != "" { //nolint:staticcheck
		t.Error("Expected empty run ID for nil context")
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := NewLogger(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	WithError(logger, os.ErrNotExist).Info("error test")

	var logEntry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("Failed to parse log JSON: %v", err)
	}
	if !strings.Contains(logEntry["error"].(string), "file does not exist") {
		t.Errorf("Expected error to contain 'file does not exist', got %v", logEntry["error"])
	}

	if WithError(logger, nil) != logger {
		t.Error("WithError(nil) should return the same logger")
	}
}
