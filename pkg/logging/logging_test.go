package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestNewFileLogger_CreatesDirectory(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "dir", "vrt.log")

	logger, err := NewFileLogger(FileLoggerConfig{
		Path:   logPath,
		Format: FormatText,
		Level:  InfoLevel,
	})
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	defer logger.Close()

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		t.Error("Log file was not created")
	}
}

func TestFileLogger_LogLevels(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "vrt.log")
	logger, err := NewFileLogger(FileLoggerConfig{
		Path:   logPath,
		Format: FormatText,
		Level:  InfoLevel,
	})
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}

	ctx := context.Background()
	logger.Debug(ctx, "debug message", nil)
	logger.Info(ctx, "info message", nil)
	logger.Warn(ctx, "warn message", nil)
	logger.Error(ctx, "error message", errors.New("boom"), nil)
	logger.Close()

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	logContent := string(content)

	if strings.Contains(logContent, "debug message") {
		t.Error("Debug message should be filtered at INFO level")
	}
	for _, want := range []string{"[INFO] info message", "[WARN] warn message", `[ERROR] error message error="boom"`} {
		if !strings.Contains(logContent, want) {
			t.Errorf("log should contain %q, got:\n%s", want, logContent)
		}
	}
}

func TestFileLogger_JSONFormat(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "vrt.log")
	logger, err := NewFileLogger(FileLoggerConfig{
		Path:   logPath,
		Format: FormatJSON,
		Level:  DebugLevel,
	})
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}

	child := logger.WithFields(Fields{"run_id": "abc"})
	child.Info(context.Background(), "Downloaded baseline", Fields{"files": 3})
	logger.Close()

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(content), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["message"] != "Downloaded baseline" || entry["level"] != "INFO" {
		t.Errorf("entry = %v", entry)
	}
	if entry["run_id"] != "abc" || entry["files"] != float64(3) {
		t.Errorf("fields not merged: %v", entry)
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("timestamp missing")
	}
}

func TestFileLogger_Rotation(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "vrt.log")
	logger, err := NewFileLogger(FileLoggerConfig{
		Path:       logPath,
		Format:     FormatText,
		Level:      InfoLevel,
		MaxSize:    100,
		MaxBackups: 2,
	})
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}

	child := logger.WithFields(Fields{"component": "transfer"})
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		logger.Info(ctx, "This is a message long enough to trigger rotation eventually", nil)
		child.Info(ctx, "Child loggers share the rotating file", nil)
	}
	logger.Close()

	for _, p := range []string{logPath, logPath + ".1", logPath + ".2"} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s should exist after rotation: %v", filepath.Base(p), err)
		}
	}
	if _, err := os.Stat(logPath + ".3"); !os.IsNotExist(err) {
		t.Error("no more than MaxBackups backups should be kept")
	}
}

func TestFileLogger_ConcurrentWrites(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "vrt.log")
	logger, err := NewFileLogger(FileLoggerConfig{
		Path:   logPath,
		Format: FormatText,
		Level:  InfoLevel,
	})
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			l := logger.WithFields(Fields{"worker": id})
			for j := 0; j < 100; j++ {
				l.Info(ctx, "concurrent message", Fields{"iteration": j})
			}
		}(i)
	}
	wg.Wait()
	logger.Close()

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 1000 {
		t.Errorf("Expected 1000 log lines, got %d", len(lines))
	}
}

func TestStreamLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStreamLogger(&buf, FormatText, InfoLevel)
	logger.sink.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	logger.Info(context.Background(), "Comparing screenshots", Fields{"total": 2, "alias": "main"})
	logger.Debug(context.Background(), "hidden", nil)

	want := "03:04:05 [INFO] Comparing screenshots alias=main total=2\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}

	if err := logger.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestStreamLogger_GitHubFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStreamLogger(&buf, FormatGitHub, DebugLevel)
	ctx := context.Background()

	logger.Debug(ctx, "details", nil)
	logger.Info(ctx, "plain", nil)
	logger.Warn(ctx, "2 files failed", nil)
	logger.Error(ctx, "upload failed", errors.New("timeout"), nil)

	want := "::debug::details\nplain\n::warning::2 files failed\n::error::upload failed: timeout\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestTee(t *testing.T) {
	var a, b bytes.Buffer
	logger := Tee(
		NewStreamLogger(&a, FormatGitHub, InfoLevel),
		nil,
		NewStreamLogger(&b, FormatGitHub, WarnLevel),
	)

	ctx := context.Background()
	logger.WithFields(Fields{"k": "v"}).Info(ctx, "info", nil)
	logger.Warn(ctx, "warn", nil)

	if a.String() != "info k=v\n::warning::warn\n" {
		t.Errorf("first logger = %q", a.String())
	}
	if b.String() != "::warning::warn\n" {
		t.Errorf("second logger = %q", b.String())
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	if _, ok := Tee().(*NullLogger); !ok {
		t.Error("Tee() without loggers should return a NullLogger")
	}
	single := NewNullLogger()
	if Tee(single) != Logger(single) {
		t.Error("Tee() with one logger should return it unchanged")
	}
}

func TestNullLogger(t *testing.T) {
	logger := NewNullLogger()
	ctx := context.Background()

	logger.Debug(ctx, "debug", nil)
	logger.Info(ctx, "info", nil)
	logger.Warn(ctx, "warn", nil)
	logger.Error(ctx, "error", nil, nil)

	if logger.WithFields(Fields{"key": "value"}) == nil {
		t.Error("WithFields should return a logger")
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", DebugLevel},
		{"DEBUG", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"WARNING", WarnLevel},
		{"error", ErrorLevel},
		{"unknown", InfoLevel},
		{"", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := ParseLevel(tt.input); result != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{Level(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if result := tt.level.String(); result != tt.expected {
				t.Errorf("String() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	if ParseFormat("JSON") != FormatJSON || ParseFormat("github") != FormatGitHub || ParseFormat("other") != FormatText {
		t.Error("ParseFormat() mapping is wrong")
	}
}
