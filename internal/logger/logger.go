package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type Config struct {
	// DataDir receives cfchat.log unless LOG_FILE says otherwise.
	DataDir string
	// Stderr logs to stderr instead of a file. The TUI owns the terminal, so
	// only non-interactive commands should set it.
	Stderr bool
}

// Init initializes the global slog logger.
// LOG_LEVEL, LOG_FORMAT=json and LOG_FILE tune the output.
func Init(cfg Config) {
	level := parseLevel(os.Getenv("LOG_LEVEL"))
	opts := &slog.HandlerOptions{Level: level}

	var w io.Writer = io.Discard
	if cfg.Stderr {
		w = os.Stderr
	}

	logFile := os.Getenv("LOG_FILE")
	if logFile == "" && !cfg.Stderr && cfg.DataDir != "" {
		logFile = filepath.Join(cfg.DataDir, "cfchat.log")
	}

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0755); err == nil {
			if f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
				w = f
			}
		}
	}

	var handler slog.Handler
	if os.Getenv("LOG_FORMAT") == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewRequestID returns a time-ordered id for correlating one gateway call.
func NewRequestID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewRequestLogger creates a logger tagged with requestId.
func NewRequestLogger(requestID string) *slog.Logger {
	return slog.With("requestId", requestID)
}
