// Package obs holds the logger and Prometheus metrics shared across the service.
package obs

import (
	"log/slog"
	"os"
)

// InitLogger installs a JSON logger as the slog default. Production logs at
// info; everything else logs at debug.
func InitLogger(production bool) *slog.Logger {
	level := slog.LevelDebug
	if production {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}
