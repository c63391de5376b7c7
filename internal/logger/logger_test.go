package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"DEBUG": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"bogus": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInitWritesToDataDir(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	dir := t.TempDir()
	t.Setenv("LOG_FILE", "")
	t.Setenv("LOG_LEVEL", "info")

	Init(Config{DataDir: dir})
	slog.Info("hello from test")

	data, err := os.ReadFile(filepath.Join(dir, "cfchat.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Errorf("log file missing entry: %q", data)
	}
}

func TestNewRequestID(t *testing.T) {
	id := NewRequestID()
	parsed, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("expected valid UUID, got %q: %v", id, err)
	}
	if parsed.Version() != 7 {
		t.Errorf("expected UUIDv7, got v%d", parsed.Version())
	}
	if NewRequestID() == id {
		t.Error("request ids should be unique")
	}
}
