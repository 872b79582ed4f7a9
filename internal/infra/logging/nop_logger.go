package logging

import (
	"log/slog"
)

// NewNopLogger creates a logger that discards all output.
// Tests and unconfigured binaries get it from GetLogger.
func NewNopLogger() Logger {
	return slog.New(slog.DiscardHandler)
}
