// Package log wires the process-wide default slog handler, at the verbosity
// the CLI's --verbose flag selects.
package log

import (
	"log/slog"
	"os"
)

// Init installs a text handler at the requested verbosity as the default
// slog logger. Call once from main before any other package logs.
func Init(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(h))
}
