package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger. Text output to stdout; the ops stack scrapes
// structured key/value pairs from it.
func New() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
