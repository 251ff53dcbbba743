package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		level   zapcore.Level
		enabled bool
	}{
		{"debug", zapcore.DebugLevel, true},
		{"DEBUG", zapcore.DebugLevel, true},
		{"info", zapcore.InfoLevel, true},
		{"", zapcore.InfoLevel, true},
		{"warn", zapcore.WarnLevel, true},
		{"warning", zapcore.WarnLevel, true},
		{"error", zapcore.ErrorLevel, true},
		{"none", zapcore.InfoLevel, false},
		{"invalid", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, enabled := ParseLevel(tt.input)
			if level != tt.level || enabled != tt.enabled {
				t.Errorf("ParseLevel(%q) = (%v, %v), want (%v, %v)",
					tt.input, level, enabled, tt.level, tt.enabled)
			}
		})
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "test.log")

	logger, err := New("info", path)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	logger.Info("visible message")
	logger.Debug("hidden message")
	if err := logger.Sync(); err != nil {
		t.Fatalf("Sync() failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "visible message") {
		t.Errorf("log file missing info message:\n%s", content)
	}
	if strings.Contains(string(content), "hidden message") {
		t.Errorf("log file contains debug message at info level")
	}
}

func TestNewDebugLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")

	logger, err := New("debug", path)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	logger.Debug("debug detail")
	if err := logger.Sync(); err != nil {
		t.Fatal(err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "debug detail") {
		t.Errorf("log file missing debug message at debug level")
	}
}

func TestNewDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")

	logger, err := New("none", path)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	logger.Info("should go nowhere")

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("log file created despite level none")
	}
}

func TestNewEmptyPath(t *testing.T) {
	logger, err := New("info", "")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	// Must not panic.
	logger.Info("discarded")
}

func TestNewConsole(t *testing.T) {
	logger := NewConsole("info")
	if logger == nil {
		t.Fatal("NewConsole() returned nil")
	}
	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Errorf("debug enabled at info level")
	}

	disabled := NewConsole("none")
	if disabled.Core().Enabled(zapcore.ErrorLevel) {
		t.Errorf("disabled console logger still enabled")
	}
}
