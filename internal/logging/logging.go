// Package logging builds the updater's logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger construction.
type Options struct {
	Level      string    // debug, info, warn, error; empty means info
	Verbose    bool      // Forces debug
	Quiet      bool      // Forces error
	File       string    // Rotating log file; empty logs to Stderr
	MaxSizeMB  int       // Rotate after this many megabytes
	MaxBackups int       // Rotated files to keep
	Stderr     io.Writer // Console destination; defaults to os.Stderr
}

// Logger is a configured logger plus whatever it writes to.
type Logger struct {
	*log.Logger
	closer io.Closer
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// New creates a logger from opts. With a log file set, records go only to
// the file, with timestamps; the console is left to the progress output.
func New(opts Options) (*Logger, error) {
	level, err := resolveLevel(opts)
	if err != nil {
		return nil, err
	}

	var w io.Writer = opts.Stderr
	if w == nil {
		w = os.Stderr
	}

	l := &Logger{}
	timestamps := false
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		rotator := &lumberjack.Logger{
			// Log file absolute path, os agnostic
			Filename:   filepath.ToSlash(opts.File),
			MaxSize:    opts.MaxSizeMB, // MB
			MaxBackups: opts.MaxBackups,
			MaxAge:     30, // days
			Compress:   true,
		}
		w = rotator
		l.closer = rotator
		timestamps = true
	}

	l.Logger = log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: timestamps,
		TimeFormat:      time.RFC3339,
	})
	return l, nil
}

// resolveLevel applies --verbose and --quiet over the configured level.
func resolveLevel(opts Options) (log.Level, error) {
	switch {
	case opts.Verbose:
		return log.DebugLevel, nil
	case opts.Quiet:
		return log.ErrorLevel, nil
	case opts.Level == "":
		return log.InfoLevel, nil
	}
	level, err := log.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}
	return level, nil
}

// Component returns a child logger tagged with the component name.
func Component(l *log.Logger, name string) *log.Logger {
	return l.With("component", name)
}
