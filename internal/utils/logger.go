package utils

import (
	"io"

	"golang.org/x/exp/slog"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// LoggerOrDiscard returns logger, or a logger that drops everything if logger is nil
func LoggerOrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return discardLogger
	}

	return logger
}
