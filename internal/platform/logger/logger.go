package logger

import (
	"log/slog"
	"os"
)

// New returns a structured JSON logger using slog.
func New() *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return slog.New(handler)
}
