// Package logging builds the process-wide zap logger. Interactive modes own
// the terminal, so their logs go to a file; serve mode logs to stderr.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseLevel maps a config level string to a zap level. Unknown strings fall
// back to info. The second return is false when logging is disabled entirely.
func ParseLevel(s string) (zapcore.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel, true
	case "", "info":
		return zapcore.InfoLevel, true
	case "warn", "warning":
		return zapcore.WarnLevel, true
	case "error":
		return zapcore.ErrorLevel, true
	case "none":
		return zapcore.InfoLevel, false
	default:
		return zapcore.InfoLevel, true
	}
}

// New builds a logger appending JSON lines to the file at path. Level "none"
// or an empty path yields a no-op logger. Callers should defer Sync.
func New(level, path string) (*zap.Logger, error) {
	lvl, enabled := ParseLevel(level)
	if !enabled || path == "" {
		return zap.NewNop(), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(file),
		zap.NewAtomicLevelAt(lvl),
	)
	return zap.New(core), nil
}

// NewConsole builds a logger writing human-readable lines to stderr.
func NewConsole(level string) *zap.Logger {
	lvl, enabled := ParseLevel(level)
	if !enabled {
		return zap.NewNop()
	}

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(os.Stderr),
		zap.NewAtomicLevelAt(lvl),
	)
	return zap.New(core)
}
