package script

import (
	"errors"
	"fmt"
	"strings"

	"parmint/internal/jobgraph"
)

// Grace period after the join before concat touches the segment files.
const batchSettleSeconds = 3

type batchEmitter struct{}

func (batchEmitter) Dialect() Dialect { return DialectBatch }
func (batchEmitter) Filename() string { return "run.bat" }

// Emit starts every interpolate job in its own console inside a block piped
// into pause. pause returns once every started child has released the pipe,
// which approximates a join; a fixed delay follows before concat. Exit
// codes of the children are not observed.
func (batchEmitter) Emit(g jobgraph.Graph, opts Options) (string, error) {
	if err := g.Validate(); err != nil {
		return "", err
	}

	split, err := render(g.Split().Command, batchQuote)
	if err != nil {
		return "", err
	}
	concat, err := render(g.Concat().Command, batchQuote)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("@echo off\r\n")
	b.WriteString(header(g, "rem") + "\r\n")
	b.WriteString("cd /d \"%~dp0\"\r\n\r\n")
	b.WriteString(split + "\r\n")
	b.WriteString("if errorlevel 1 exit /b 1\r\n\r\n")

	b.WriteString("(\r\n")
	for i, j := range g.Interpolate() {
		line, err := render(j.Command, batchQuote)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "  start \"TASK %d\" %s\r\n", i+1, line)
	}
	b.WriteString(") | pause\r\n")
	fmt.Fprintf(&b, "timeout /t %d /nobreak > nul\r\n\r\n", batchSettleSeconds)

	b.WriteString(concat + "\r\n")

	if opts.Shutdown {
		fmt.Fprintf(&b, "timeout /t %d /nobreak > nul\r\n", batchSettleSeconds)
		b.WriteString("shutdown /s /f /t 0\r\n")
	}
	return b.String(), nil
}

var errBatchQuote = errors.New("argument cannot be passed through a batch script")

// batchQuote double-quotes words cmd.exe would split or interpret. Percent
// signs are doubled everywhere since batch expands them even inside quotes.
// A line break would end the command early, and a double quote cannot be
// escaped inside a quoted word.
func batchQuote(s string) (string, error) {
	if strings.Contains(s, `"`) {
		return "", fmt.Errorf("%w: %q contains a double quote", errBatchQuote, s)
	}
	if strings.ContainsAny(s, "\r\n\x00") {
		return "", fmt.Errorf("%w: %q contains a line break", errBatchQuote, s)
	}
	s = strings.ReplaceAll(s, "%", "%%")
	if s == "" || strings.ContainsAny(s, " \t&|<>^(),;=!") {
		return `"` + s + `"`, nil
	}
	return s, nil
}
