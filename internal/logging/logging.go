// Package logging builds the process-wide logger: warnings and errors go
// to stderr for the user, everything (tool dispatches, ceiling breaches,
// iteration boundaries, command executions) goes to the session log file.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	slogmulti "github.com/samber/slog-multi"
)

// DefaultLogFile is the session log location under the user's home.
const DefaultLogFile = ".lolo/lolo.log"

// New constructs the logger. The returned closer releases the log file;
// it is safe to call even when opening the file failed, in which case the
// logger writes to stderr only.
func New(verbose bool) (*slog.Logger, io.Closer) {
	consoleLevel := slog.LevelWarn
	if verbose {
		consoleLevel = slog.LevelDebug
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: consoleLevel}),
	}

	var closer io.Closer = nopCloser{}
	if file, err := openLogFile(); err == nil {
		handlers = append(handlers, slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug}))
		closer = file
	}

	return slog.New(slogmulti.Fanout(handlers...)), closer
}

func openLogFile() (*os.File, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(home, DefaultLogFile)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
