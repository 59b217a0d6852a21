package common

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// SetupFileLogging sends slog output to dir/speechplay.log only, so that a
// full screen UI is not overwritten by log lines. The returned closer closes
// the log file; it is a no-op if the file could not be opened.
func SetupFileLogging(dir string, level slog.Level) io.Closer {
	if dir == "" {
		dir = CacheDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nopCloser{}
	}

	logFile, err := os.OpenFile(filepath.Join(dir, "speechplay.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nopCloser{}
	}

	handler := slog.NewTextHandler(logFile, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
	return logFile
}

// SetupStderrLogging writes slog output to stderr at the given level.
func SetupStderrLogging(level slog.Level) {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// LogLevel maps the --verbose flag to a slog level.
func LogLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
