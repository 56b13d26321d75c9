// Package logging wires slog according to configuration. Level and format
// come from LOG_LVL / LOG_FORMAT; when file logging is enabled the handler
// also writes to a rotating file in the configured log directory.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/onnwee/yt-observatory/config"
)

// Setup installs the process-wide slog default and returns a closer for the
// file sink (no-op when file logging is disabled).
func Setup(cfg *config.Config) (func() error, error) {
	var level slog.Level
	switch cfg.LogLvl {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stdout
	closer := func() error { return nil }
	if cfg.LogToFile {
		if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
			return nil, err
		}
		rotator := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.LogDir, "observatory.log"),
			MaxSize:    100, // MB
			MaxAge:     30,  // days
			MaxBackups: 30,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, rotator)
		closer = rotator.Close
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if os.Getenv("LOG_FORMAT") == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	slog.SetDefault(slog.New(handler))
	return closer, nil
}
