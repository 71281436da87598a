package slogutil

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	logger.Info("Test message", "key", "value", "count", 42, "reason", "two words", "empty", "")

	output := buf.String()
	for _, want := range []string{
		"INFO  Test message",
		" key=value",
		" count=42",
		` reason="two words"`,
		` empty=""`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
	if !strings.HasSuffix(output, "\n") || strings.Count(output, "\n") != 1 {
		t.Errorf("expected exactly one line, got: %q", output)
	}
}

func TestHandler_Scope(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo).With("component", "runner")

	logger.Warn("Could not record session", "session", "s1", "error", errors.New("disk full"))

	output := buf.String()
	if !strings.Contains(output, `WARN  runner: Could not record session session=s1 error="disk full"`) {
		t.Errorf("unexpected scoped output: %s", output)
	}
	if strings.Contains(output, "component=") {
		t.Errorf("scope should not repeat as a pair: %s", output)
	}

	buf.Reset()
	NewLogger(&buf, slog.LevelInfo).With("backend", "git").Info("Git adapter initialized", "timeout", 2*time.Second)
	if !strings.Contains(buf.String(), "INFO  git: Git adapter initialized timeout=2s") {
		t.Errorf("unexpected backend output: %s", buf.String())
	}

	buf.Reset()
	NewLogger(&buf, slog.LevelInfo).WithGroup("g").With("component", "x").Info("grouped")
	if !strings.Contains(buf.String(), "INFO  grouped g.component=x") {
		t.Errorf("grouped component should stay a pair: %s", buf.String())
	}
}

func TestHandler_Levels(t *testing.T) {
	tests := []struct {
		level    slog.Level
		logFunc  func(*slog.Logger)
		expected string
	}{
		{slog.LevelDebug, func(l *slog.Logger) { l.Debug("debug") }, "DEBUG debug"},
		{slog.LevelInfo, func(l *slog.Logger) { l.Info("info") }, "INFO  info"},
		{slog.LevelWarn, func(l *slog.Logger) { l.Warn("warn") }, "WARN  warn"},
		{slog.LevelError, func(l *slog.Logger) { l.Error("error") }, "ERROR error"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(&buf, slog.LevelDebug) // Enable all levels
			tt.logFunc(logger)

			output := buf.String()
			if !strings.Contains(output, tt.expected) {
				t.Errorf("expected %s in output, got: %s", tt.expected, output)
			}
		})
	}
}

func TestHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := buf.String()

	if strings.Contains(output, "debug message") {
		t.Error("debug message should be filtered")
	}
	if strings.Contains(output, "info message") {
		t.Error("info message should be filtered")
	}
	if !strings.Contains(output, "warn message") {
		t.Error("warn message should be included")
	}
	if !strings.Contains(output, "error message") {
		t.Error("error message should be included")
	}
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo}, // default
		{"", slog.LevelInfo},        // default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := LevelFromString(tt.input)
			if got != tt.expected {
				t.Errorf("LevelFromString(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLevelFromVerbosity(t *testing.T) {
	tests := []struct {
		verbosity int
		quiet     bool
		expected  slog.Level
	}{
		{0, false, slog.LevelWarn},
		{1, false, slog.LevelInfo},
		{2, false, slog.LevelDebug},
		{3, false, slog.LevelDebug},
		{0, true, slog.Level(100)}, // silent
		{5, true, slog.Level(100)}, // quiet overrides verbosity
	}

	for _, tt := range tests {
		got := LevelFromVerbosity(tt.verbosity, tt.quiet)
		if got != tt.expected {
			t.Errorf("LevelFromVerbosity(%d, %v) = %v, want %v",
				tt.verbosity, tt.quiet, got, tt.expected)
		}
	}
}

func TestNewDiscardLogger(t *testing.T) {
	logger := NewDiscardLogger()

	// Should not panic
	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")
}

func TestNewFormatLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewFormatLogger(&buf, "json", slog.LevelInfo)
	logger.Info("session planned", "tests", 3)

	output := buf.String()
	if !strings.Contains(output, `"msg":"session planned"`) {
		t.Errorf("expected JSON msg field, got: %s", output)
	}
	if !strings.Contains(output, `"tests":3`) {
		t.Errorf("expected JSON tests field, got: %s", output)
	}
}

func TestNewFormatLogger_Human(t *testing.T) {
	var buf bytes.Buffer
	logger := NewFormatLogger(&buf, "human", slog.LevelInfo)
	logger.Info("session planned", "tests", 3)

	if !strings.Contains(buf.String(), "INFO  session planned tests=3") {
		t.Errorf("unexpected human output: %s", buf.String())
	}
}

func TestHandler_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo).WithGroup("engine").With("root", "tests.test_a")
	logger.Info("evaluated")

	if !strings.Contains(buf.String(), "engine.root=tests.test_a") {
		t.Errorf("expected grouped key, got: %s", buf.String())
	}

	buf.Reset()
	NewLogger(&buf, slog.LevelInfo).Info("stats", slog.Group("graph", "nodes", 9, "hits", 1))
	if !strings.Contains(buf.String(), "stats graph.nodes=9 graph.hits=1") {
		t.Errorf("expected flattened group, got: %s", buf.String())
	}
}

func TestOrDiscard(t *testing.T) {
	if OrDiscard(nil) == nil {
		t.Fatal("OrDiscard(nil) returned nil")
	}
	logger := NewDiscardLogger()
	if OrDiscard(logger) != logger {
		t.Error("OrDiscard should return a non-nil logger unchanged")
	}
}
