package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != "info" {
		t.Errorf("expected default level 'info', got %s", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("expected default format 'json', got %s", cfg.Format)
	}
	if cfg.TimeFormat != time.RFC3339 {
		t.Errorf("expected RFC3339 time format, got %s", cfg.TimeFormat)
	}
}

func TestInit_SetsGlobalLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	tests := []struct {
		level    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"not-a-level", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			Init(Config{Level: tt.level, Format: "json"})
			if got := zerolog.GlobalLevel(); got != tt.expected {
				t.Errorf("Init(%q): global level = %v, want %v", tt.level, got, tt.expected)
			}
		})
	}
}

func TestContextLoggers_AddFields(t *testing.T) {
	prev := log.Logger
	defer func() { log.Logger = prev }()

	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)

	sessionLogger := WithSession("coordinator", "sess-1")
	sessionLogger.Info().Msg("a")
	entryLogger := WithEntry("sess-1", "user:A")
	entryLogger.Info().Msg("b")
	componentLogger := WithComponent("transport")
	componentLogger.Info().Msg("c")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 log lines, got %d", len(lines))
	}

	expected := []map[string]string{
		{"component": "coordinator", "sessionId": "sess-1"},
		{"sessionId": "sess-1", "entryId": "user:A"},
		{"component": "transport"},
	}
	for i, line := range lines {
		var fields map[string]any
		if err := json.Unmarshal([]byte(line), &fields); err != nil {
			t.Fatalf("line %d: invalid json: %v", i, err)
		}
		for k, v := range expected[i] {
			if fields[k] != v {
				t.Errorf("line %d: expected %s=%s, got %v", i, k, v, fields[k])
			}
		}
	}
}
