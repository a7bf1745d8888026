// Package logging wires the app logger: human-readable warnings on
// stderr, plus a JSON debug stream into the state directory when verbose
// mode is on.
package logging

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// New builds the app logger. The returned closer flushes the debug file,
// if any, and is safe to call unconditionally.
func New(verbose bool, logFile string) (*slog.Logger, func()) {
	stderrLevel := slog.LevelWarn
	if verbose {
		stderrLevel = slog.LevelInfo
	}
	stderr := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: stderrLevel})

	if !verbose || logFile == "" {
		return slog.New(stderr), func() {}
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log := slog.New(stderr)
		log.Warn("debug log unavailable", "path", logFile, "err", err)
		return log, func() {}
	}

	fileHandler := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})
	log := slog.New(slogmulti.Fanout(stderr, fileHandler))
	return log, func() { closeQuiet(f) }
}

func closeQuiet(c io.Closer) { _ = c.Close() }
