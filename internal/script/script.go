// Package script renders a job graph as a shell script that launches the
// interpolate tier in parallel and joins it before concat.
package script

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"parmint/internal/jobgraph"
	"parmint/internal/util"
)

// Dialect is the scripting language a script is emitted in.
type Dialect string

const (
	DialectAuto  Dialect = "auto"
	DialectPOSIX Dialect = "posix"
	DialectBatch Dialect = "batch"
)

// Options tweak emission without changing the graph.
type Options struct {
	// Shutdown powers the machine off after concat. Only the batch dialect
	// supports it.
	Shutdown bool
}

// Emitter renders a graph for one dialect. Emit is a pure function of its
// arguments: the same graph always yields the same text.
type Emitter interface {
	Dialect() Dialect
	Filename() string
	Emit(g jobgraph.Graph, opts Options) (string, error)
}

var emitters = map[Dialect]Emitter{
	DialectPOSIX: posixEmitter{},
	DialectBatch: batchEmitter{},
}

// ForDialect returns the emitter for d.
func ForDialect(d Dialect) (Emitter, error) {
	e, ok := emitters[d]
	if !ok {
		return nil, fmt.Errorf("unsupported script dialect %q (valid: %s)", d, strings.Join(dialectNames(), "|"))
	}
	return e, nil
}

func dialectNames() []string {
	names := make([]string, 0, len(emitters))
	for d := range emitters {
		names = append(names, string(d))
	}
	sort.Strings(names)
	return names
}

// ParseDialect maps a flag value to a Dialect. The empty string means auto.
func ParseDialect(s string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(s))); d {
	case "", DialectAuto:
		return DialectAuto, nil
	case DialectPOSIX, DialectBatch:
		return d, nil
	default:
		return "", fmt.Errorf("invalid --dialect: %q (valid: auto|posix|batch)", s)
	}
}

// Detect picks posix when a GNU bash answers on PATH, batch otherwise.
func Detect(ctx context.Context, runner util.CmdRunner) Dialect {
	res, err := runner.Run(ctx, util.CmdSpec{Path: "bash", Args: []string{"--version"}})
	if err != nil {
		return DialectBatch
	}
	if strings.Contains(string(res.Stdout), "GNU bash, ") {
		return DialectPOSIX
	}
	return DialectBatch
}

// Resolve returns d unchanged unless it is DialectAuto, in which case the
// host is probed with Detect.
func Resolve(ctx context.Context, runner util.CmdRunner, d Dialect) Dialect {
	if d == DialectAuto || d == "" {
		return Detect(ctx, runner)
	}
	return d
}

// render joins a command with per-dialect quoting.
func render(c jobgraph.Command, quote func(string) (string, error)) (string, error) {
	words := make([]string, 0, len(c.Args)+1)
	for _, w := range append([]string{c.Program}, c.Args...) {
		q, err := quote(w)
		if err != nil {
			return "", err
		}
		words = append(words, q)
	}
	return strings.Join(words, " "), nil
}

func header(g jobgraph.Graph, comment string) string {
	return fmt.Sprintf("%s generated by parmint: %d segments into %s", comment, len(g.Interpolate()), g.Output)
}
