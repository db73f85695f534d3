package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/oddsly-wagering-ledger/internal/config"
)

// NewLogger builds the JSON logger both binaries share. Every record carries
// the service name and environment so the two processes can be told apart in
// one log stream.
func NewLogger(cfg *config.Config) *slog.Logger {
	return newLogger(os.Stdout, cfg)
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.Logging.Level)

	opts := &slog.HandlerOptions{
		Level: level,
		// Add source code location to log output
		AddSource: level <= slog.LevelDebug,
	}

	logger := slog.New(slog.NewJSONHandler(w, opts)).With(
		"service", cfg.Application.Name,
		"env", cfg.Application.Env,
	)
	logger.Info("logger initialized", "level", level.String())

	return logger
}

// parseLevel accepts slog level names in any case. Unknown or empty values
// fall back to info.
func parseLevel(raw string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return slog.LevelInfo
	}
	return level
}
