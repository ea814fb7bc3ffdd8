// Package logger builds the slog loggers used across flowstream.
package logger

import (
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

type config struct {
	format    Format
	level     slog.Level
	source    bool
	component string
	w         io.Writer
}

// New builds a *slog.Logger. Without options it writes slog text at Info level
// to stdout.
func New(opts ...Option) *slog.Logger {
	c := &config{
		level: slog.LevelInfo,
		w:     os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.w == nil {
		c.w = os.Stdout
	}

	if c.format == FormatPretty {
		return slog.New(charmlog.NewWithOptions(c.w, charmlog.Options{
			Level:           charmlog.Level(c.level),
			ReportTimestamp: true,
			ReportCaller:    c.source,
			Prefix:          c.component,
		}))
	}

	hopts := &slog.HandlerOptions{Level: c.level, AddSource: c.source}
	var h slog.Handler
	if c.format == FormatJSON {
		h = slog.NewJSONHandler(c.w, hopts)
	} else {
		h = slog.NewTextHandler(c.w, hopts)
	}

	l := slog.New(h)
	if c.component != "" {
		l = l.With("component", c.component)
	}
	return l
}

// OpenFile opens path for appending and returns a JSON logger writing to it.
// The caller closes the returned file when done logging.
func OpenFile(path string, opts ...Option) (*slog.Logger, io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}

	opts = append(opts, WithFormat(FormatJSON), WithWriter(f))
	return New(opts...), f, nil
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
