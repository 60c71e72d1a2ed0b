package script

import (
	"errors"
	"fmt"
	"strings"

	"parmint/internal/jobgraph"
	"parmint/internal/util"
)

type posixEmitter struct{}

func (posixEmitter) Dialect() Dialect { return DialectPOSIX }
func (posixEmitter) Filename() string { return "run.sh" }

// Emit backgrounds every interpolate job, captures its pid and waits on each
// one before concat. With set -e a failed segment stops the script there.
func (posixEmitter) Emit(g jobgraph.Graph, opts Options) (string, error) {
	if err := g.Validate(); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("#!/bin/bash\n")
	b.WriteString(header(g, "#") + "\n")
	b.WriteString("set -ex\n")
	b.WriteString("cd \"$(dirname \"$0\")\"\n\n")

	split, err := render(g.Split().Command, posixQuote)
	if err != nil {
		return "", err
	}
	b.WriteString(split + "\n\n")

	tier := g.Interpolate()
	for i, j := range tier {
		line, err := render(j.Command, posixQuote)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%s & pid_%d=$!\n", line, i)
	}
	b.WriteString("\n")
	for i := range tier {
		fmt.Fprintf(&b, "wait \"$pid_%d\"\n", i)
	}
	b.WriteString("\n")

	concat, err := render(g.Concat().Command, posixQuote)
	if err != nil {
		return "", err
	}
	b.WriteString(concat + "\n")

	if opts.Shutdown {
		b.WriteString("# shutdown was requested but is only supported by batch scripts\n")
	}
	return b.String(), nil
}

var errPOSIXQuote = errors.New("argument cannot be passed through a shell script")

// posixQuote single-quotes for bash. A NUL byte cannot appear in an argv
// entry at all.
func posixQuote(s string) (string, error) {
	if strings.ContainsRune(s, 0) {
		return "", fmt.Errorf("%w: %q contains a NUL byte", errPOSIXQuote, s)
	}
	return util.Quote(s), nil
}
