package encoder

import (
	"fmt"
	"strings"

	"github.com/mattn/go-shellwords"
)

// Template is the encoder command line every job starts with, such as
// "ffmpeg" or "/opt/ffmpeg/bin/ffmpeg -hide_banner -loglevel warning".
type Template struct {
	Program string
	Prefix  []string
}

// DefaultTemplate invokes ffmpeg from PATH.
func DefaultTemplate() Template {
	return Template{Program: "ffmpeg"}
}

// ParseTemplate splits a command line into program and leading arguments.
// Quotes group words and a backslash escapes the next character, so Windows
// paths belong in single quotes.
func ParseTemplate(cmdline string) (Template, error) {
	words, err := shellwords.Parse(cmdline)
	if err != nil {
		return Template{}, fmt.Errorf("invalid --encoder %q: %w", cmdline, err)
	}
	if len(words) == 0 {
		return DefaultTemplate(), nil
	}
	return Template{Program: words[0], Prefix: words[1:]}, nil
}

// Args prepends the template's leading arguments to args.
func (t Template) Args(args []string) []string {
	out := make([]string, 0, len(t.Prefix)+len(args))
	out = append(out, t.Prefix...)
	return append(out, args...)
}

// String renders the template back to a command line.
func (t Template) String() string {
	return strings.Join(append([]string{t.Program}, t.Prefix...), " ")
}
