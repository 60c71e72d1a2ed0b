package util

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// CmdSpec describes a subprocess to run.
type CmdSpec struct {
	Path string   // Binary path
	Args []string // Arguments
	Env  []string // Optional environment variables (KEY=VALUE). If nil, inherit.
	Dir  string   // Working directory; empty = inherit.

	// Called for each output line when non-nil.
	StdoutLine func(string)
	StderrLine func(string)
	// When false and StdoutLine is set, stdout is not buffered into CmdResult.
	CaptureStdout bool
}

// CmdResult contains captured output and exit status.
type CmdResult struct {
	Stdout []byte
	Stderr []byte
	Code   int
	Err    error
}

// CmdRunner runs subprocesses. Tests substitute fakes.
type CmdRunner interface {
	Run(ctx context.Context, spec CmdSpec) (CmdResult, error)
}

type defaultRunner struct {
	log zerolog.Logger
}

// NewDefaultRunner returns a CmdRunner backed by os/exec. The command line is
// logged at debug level before each start.
func NewDefaultRunner(log zerolog.Logger) CmdRunner {
	return defaultRunner{log: log}
}

func (r defaultRunner) Run(ctx context.Context, spec CmdSpec) (CmdResult, error) {
	r.log.Debug().Str("cmd", ShellQuote(spec.Path, spec.Args)).Str("dir", spec.Dir).Msg("exec")
	return Run(ctx, spec)
}

// Run executes the command and waits for it. Stderr is always captured.
// On non-zero exit, returns an error describing the exit code, while also
// populating CmdResult.Code and captured buffers.
func Run(ctx context.Context, spec CmdSpec) (CmdResult, error) {
	var stdoutBuf, stderrBuf bytes.Buffer

	cmd := exec.CommandContext(ctx, spec.Path, spec.Args...)
	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}
	if spec.Env != nil {
		cmd.Env = append(os.Environ(), spec.Env...)
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return CmdResult{Code: -1, Err: err}, err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return CmdResult{Code: -1, Err: err}, err
	}

	if err := cmd.Start(); err != nil {
		return CmdResult{Code: -1, Err: err}, err
	}

	captureOut := spec.CaptureStdout || spec.StdoutLine == nil

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		scanLines(stdoutPipe, spec.StdoutLine, &stdoutBuf, captureOut)
	}()
	go func() {
		defer wg.Done()
		scanLines(stderrPipe, spec.StderrLine, &stderrBuf, true)
	}()

	// Pipes must be drained before Wait closes them.
	wg.Wait()
	waitErr := cmd.Wait()

	code := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			code = exitErr.ExitCode()
		} else {
			code = -1
		}
	}

	res := CmdResult{
		Stdout: stdoutBuf.Bytes(),
		Stderr: stderrBuf.Bytes(),
		Code:   code,
		Err:    waitErr,
	}
	if waitErr != nil {
		return res, fmt.Errorf("command failed (exit %d): %w", code, waitErr)
	}
	return res, nil
}

func scanLines(r io.Reader, onLine func(string), buf *bytes.Buffer, capture bool) {
	sc := bufio.NewScanner(r)
	// ffprobe JSON for files with many streams can exceed the 64KB default.
	const maxCapacity = 1024 * 1024
	sc.Buffer(make([]byte, 0, 64*1024), maxCapacity)
	for sc.Scan() {
		line := sc.Text()
		if onLine != nil {
			onLine(line)
		}
		if capture {
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
	}
	// Drain whatever the scanner refused so the child never blocks on a full pipe.
	_, _ = io.Copy(io.Discard, r)
}

// ShellQuote returns a printable POSIX-shell command string.
func ShellQuote(path string, args []string) string {
	b := &strings.Builder{}
	b.WriteString(Quote(path))
	for _, a := range args {
		b.WriteByte(' ')
		b.WriteString(Quote(a))
	}
	return b.String()
}

// Quote single-quotes s for a POSIX shell when it contains anything the shell
// would interpret.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.ContainsAny(s, " \t\n\"'\\$`(){}[]*&;|<>?!~#%") {
		return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
	}
	return s
}
