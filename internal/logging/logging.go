package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup configures slog to emit structured JSON lines tagged with the
// component name and installs it as the process default. The level is taken
// from COGNISHARE_LOG_LEVEL when set (debug, info, warn, error).
func Setup(component string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(os.Getenv("COGNISHARE_LOG_LEVEL"))) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler)
	if component = strings.TrimSpace(component); component != "" {
		logger = logger.With(slog.String("component", component))
	}
	slog.SetDefault(logger)
	return logger
}
