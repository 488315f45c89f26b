// Package logging builds the per-component loggers.
//
// Each component gets a stdlib *log.Logger with a bracketed prefix, e.g.
// "[sync] ". All of them share one writer: stderr, plus a rotating log file
// when one is configured.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the shared log output.
type Options struct {
	// File is the log file path. Empty disables file logging.
	File string

	// MaxSizeMB is the size at which the file is rotated (default: 10).
	MaxSizeMB int

	// MaxBackups is how many rotated files are kept (default: 5).
	MaxBackups int

	// MaxAgeDays is how long rotated files are kept (default: 30).
	MaxAgeDays int

	// Quiet drops stderr output.
	Quiet bool
}

// Factory hands out prefixed loggers writing to the shared output.
type Factory struct {
	out    io.Writer
	closer io.Closer

	mu      sync.Mutex
	loggers map[string]*log.Logger
}

// New creates a factory. The caller MUST call Close() when done.
func New(opts Options) (*Factory, error) {
	var writers []io.Writer
	if !opts.Quiet {
		writers = append(writers, os.Stderr)
	}

	f := &Factory{loggers: make(map[string]*log.Logger)}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 10),
			MaxBackups: orDefault(opts.MaxBackups, 5),
			MaxAge:     orDefault(opts.MaxAgeDays, 30),
		}
		writers = append(writers, rotator)
		f.closer = rotator
	}

	switch len(writers) {
	case 0:
		f.out = io.Discard
	case 1:
		f.out = writers[0]
	default:
		f.out = io.MultiWriter(writers...)
	}
	return f, nil
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// Logger returns the logger for component, e.g. "sync" gives a logger
// prefixed "[sync] ". Loggers are cached per component.
func (f *Factory) Logger(component string) *log.Logger {
	f.mu.Lock()
	defer f.mu.Unlock()

	if l, ok := f.loggers[component]; ok {
		return l
	}
	l := log.New(f.out, "["+component+"] ", log.LstdFlags)
	f.loggers[component] = l
	return l
}

// Writer returns the shared output.
func (f *Factory) Writer() io.Writer {
	return f.out
}

// Close closes the log file, if any.
func (f *Factory) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}
