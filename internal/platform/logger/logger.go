package logger

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lexigo/wordbook-worker/internal/config"
	"github.com/lmittmann/tint"
)

// Setup initializes and configures the application's logging system based on
// the provided configuration, sets the result as the process-wide default
// logger, and returns it.
//
// The "json" format produces machine-readable structured output for
// production; the "text" format uses a colorized tint handler for local
// development.
func Setup(cfg config.ServerConfig) (*slog.Logger, error) {
	level := parseLevel(cfg.LogLevel)

	var handler slog.Handler
	switch strings.ToLower(cfg.LogFormat) {
	case "text":
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	default:
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger, nil
}

// parseLevel maps the configured level string to a slog.Level,
// falling back to info with a warning for unknown values.
func parseLevel(levelName string) slog.Level {
	switch strings.ToLower(levelName) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		tmpLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		tmpLogger.Warn("invalid log level configured, using default level",
			"configured_level", levelName,
			"default_level", "info")
		return slog.LevelInfo
	}
}
