package logger

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Format selects the handler a logger writes with.
type Format int

const (
	// FormatText is slog's key=value text.
	FormatText Format = iota
	// FormatJSON is one JSON object per record, for log shippers and files.
	FormatJSON
	// FormatPretty is colorized charmbracelet/log output for terminals.
	FormatPretty
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatPretty:
		return "pretty"
	default:
		return "text"
	}
}

// ParseFormat reads a format name as printed by String.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "pretty":
		return FormatPretty, nil
	default:
		return FormatText, fmt.Errorf("unknown log format %q (want text, json or pretty)", s)
	}
}

// ConsoleFormat is the stdout format for a process: pretty on an interactive
// terminal, JSON otherwise or when JSON is forced.
func ConsoleFormat(interactive, forceJSON bool) Format {
	if interactive && !forceJSON {
		return FormatPretty
	}
	return FormatJSON
}

// Option configures a logger built by New or OpenFile.
type Option func(*config)

// WithFormat picks the output format.
func WithFormat(f Format) Option {
	return func(c *config) {
		c.format = f
	}
}

// WithDebug lowers the level to Debug.
func WithDebug(debug bool) Option {
	return func(c *config) {
		if debug {
			c.level = slog.LevelDebug
		} else {
			c.level = slog.LevelInfo
		}
	}
}

// WithWriter sets the destination. Defaults to os.Stdout.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		c.w = w
	}
}

// WithSource adds the calling file:line to each record.
func WithSource(source bool) Option {
	return func(c *config) {
		c.source = source
	}
}

// WithComponent tags every record with component=name. Pretty output shows
// it as the line prefix instead.
func WithComponent(name string) Option {
	return func(c *config) {
		c.component = name
	}
}
