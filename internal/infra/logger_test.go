package infra

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLoggerTagsService(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogOptions{Env: "production", Service: "worker", Out: &buf})
	logger.Debug().Msg("hidden")
	logger.Info().Msg("visible")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines = %q, want only the info line", lines)
	}
	var line map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &line); err != nil {
		t.Fatalf("decode %q: %v", lines[0], err)
	}
	if line["service"] != "worker" || line["message"] != "visible" || line["time"] == nil {
		t.Fatalf("line = %v", line)
	}
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		env, override string
		want          zerolog.Level
	}{
		{"development", "", zerolog.DebugLevel},
		{"production", "", zerolog.InfoLevel},
		{"production", "DEBUG", zerolog.DebugLevel},
		{"development", "warn", zerolog.WarnLevel},
		{"production", "loud", zerolog.InfoLevel},
	}
	for _, tc := range tests {
		if got := logLevel(tc.env, tc.override); got != tc.want {
			t.Fatalf("logLevel(%q, %q) = %s, want %s", tc.env, tc.override, got, tc.want)
		}
	}
}

func TestConfigLogOptions(t *testing.T) {
	cfg := &Config{AppEnv: "staging", LogLevel: "error"}
	opts := cfg.LogOptions("api")
	if opts.Env != "staging" || opts.Level != "error" || opts.Service != "api" || opts.Out != nil {
		t.Fatalf("LogOptions = %+v", opts)
	}
}
