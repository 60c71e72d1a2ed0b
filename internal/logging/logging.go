// Package logging builds the zerolog logger shared by every component.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Options select where and how log lines are written.
type Options struct {
	// Format is console (human readable) or json.
	Format  string
	Verbose bool
	// Out receives formatted lines; nil means stderr, io.Discard silences it.
	Out io.Writer
	// FilePath, when set, additionally appends JSON lines to that file.
	FilePath string
}

// ParseFormat validates a --log-format value.
func ParseFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case "", FormatConsole:
		return FormatConsole, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("invalid --log-format: %q (valid: console|json)", s)
	}
}

// New returns the logger and a closer for the log file, if any.
func New(opts Options) (zerolog.Logger, func() error, error) {
	format, err := ParseFormat(opts.Format)
	if err != nil {
		return zerolog.Nop(), noop, err
	}
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	if format == FormatConsole && out != io.Discard {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}

	closer := noop
	if opts.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0o755); err != nil {
			return zerolog.Nop(), noop, fmt.Errorf("log dir: %w", err)
		}
		f, err := os.OpenFile(opts.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), noop, fmt.Errorf("open log file: %w", err)
		}
		out = zerolog.MultiLevelWriter(out, f)
		closer = f.Close
	}

	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), closer, nil
}

func noop() error { return nil }
