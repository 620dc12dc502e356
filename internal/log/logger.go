package log

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ErrEmptyPath is returned by NewFileWriter for an empty path.
var ErrEmptyPath = errors.New("log file path is empty")

// Options configures New.
type Options struct {
	// Level is the minimum level written. Nil means slog.LevelInfo.
	Level slog.Leveler

	// JSON selects the JSON handler instead of the text handler.
	JSON bool
}

// New returns a redacting logger writing to w.
func New(w io.Writer, opts Options) *slog.Logger {
	level := opts.Level
	if level == nil {
		level = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(NewRedactingHandler(handler))
}

// LevelFor returns slog.LevelDebug when verbose and slog.LevelInfo otherwise.
func LevelFor(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// Rotation controls when a log file is rotated and how many old files are kept.
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultRotation keeps five compressed 50 MB files for a month.
var DefaultRotation = Rotation{
	MaxSizeMB:  50,
	MaxBackups: 5,
	MaxAgeDays: 30,
	Compress:   true,
}

// NewFileWriter opens a rotating log file at path, creating its directory.
func NewFileWriter(path string, r Rotation) (io.WriteCloser, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    r.MaxSizeMB,
		MaxBackups: r.MaxBackups,
		MaxAge:     r.MaxAgeDays,
		Compress:   r.Compress,
	}, nil
}
