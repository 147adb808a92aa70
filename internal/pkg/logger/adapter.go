package logger

import (
	"io"
	"log/slog"

	"chain_reader/internal/app/port"
)

// slogAdapter implements port.Logger on top of the package-level logger.
type slogAdapter struct{}

// NewSlogAdapter returns a port.Logger backed by the global logger.
func NewSlogAdapter() port.Logger {
	return &slogAdapter{}
}

func (a *slogAdapter) Info(msg string, args ...any) {
	Info(msg, args...)
}

func (a *slogAdapter) Debug(msg string, args ...any) {
	Debug(msg, args...)
}

func (a *slogAdapter) Warn(msg string, args ...any) {
	Warn(msg, args...)
}

func (a *slogAdapter) Error(msg string, args ...any) {
	Error(msg, args...)
}

// NewNop returns a port.Logger that discards everything.
func NewNop() port.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
