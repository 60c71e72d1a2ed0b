// Package pipeline wires probe, stream selection, segment planning, graph
// building and script emission into one service, and hands the result to
// either the detached launcher or the in-process supervisor.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog"

	"parmint/internal/encoder"
	"parmint/internal/jobgraph"
	"parmint/internal/launch"
	"parmint/internal/model"
	"parmint/internal/probe"
	"parmint/internal/progress"
	"parmint/internal/script"
	"parmint/internal/segment"
	"parmint/internal/streams"
	"parmint/internal/supervise"
	"parmint/internal/util"
	"parmint/internal/util/media"
)

// ErrInvalidOptions is returned for option values that fail validation
// before any probing happens.
var ErrInvalidOptions = errors.New("invalid options")

type spawnFunc func(ctx context.Context, log zerolog.Logger, d script.Dialect, scriptPath string) (int, error)

// Service orchestrates probe → plan → emit → launch or supervise.
type Service struct {
	ffprobePath string
	opts        model.Options
	parallelism int
	runner      util.CmdRunner
	reporter    progress.Reporter
	log         zerolog.Logger
	spawn       spawnFunc
}

// Option configures a Service.
type Option func(*Service)

// WithFFprobePath sets the ffprobe binary path.
func WithFFprobePath(p string) Option {
	return func(s *Service) {
		s.ffprobePath = p
	}
}

// WithOptions sets the run options used for planning and execution.
func WithOptions(o model.Options) Option {
	return func(s *Service) {
		s.opts = o
	}
}

// WithParallelism overrides the host parallelism used to bound the split count.
func WithParallelism(n int) Option {
	return func(s *Service) {
		s.parallelism = n
	}
}

// WithRunner injects a custom command runner (useful for testing).
func WithRunner(r util.CmdRunner) Option {
	return func(s *Service) {
		s.runner = r
	}
}

// WithReporter attaches a progress reporter for supervised runs.
func WithReporter(rp progress.Reporter) Option {
	return func(s *Service) {
		s.reporter = rp
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

// NewService constructs a new Service with the provided options.
// It applies sensible defaults for missing components.
func NewService(opts ...Option) *Service {
	s := &Service{log: zerolog.Nop()}
	for _, o := range opts {
		o(s)
	}
	if s.runner == nil {
		s.runner = util.NewDefaultRunner(s.log)
	}
	if s.reporter == nil {
		s.reporter = progress.Discard{}
	}
	if s.parallelism <= 0 {
		s.parallelism = runtime.NumCPU()
	}
	if s.spawn == nil {
		s.spawn = launch.Spawn
	}
	return s
}

// Plan is everything decided before a single file is written.
type Plan struct {
	Media     model.MediaDescriptor
	Selection model.StreamSelection
	Segments  segment.Plan
	Graph     jobgraph.Graph

	Dialect    script.Dialect
	ScriptName string
	Script     string
	Manifest   string

	// OutDir is absolute.
	OutDir string
}

// OutputPath is the absolute path of the joined output.
func (p *Plan) OutputPath() string {
	return filepath.Join(p.OutDir, p.Graph.Output)
}

// Plan probes the input and builds the graph and script. Nothing is written;
// every planning error surfaces here.
func (s *Service) Plan(ctx context.Context) (*Plan, error) {
	o := s.opts
	if o.InputPath == "" {
		return nil, fmt.Errorf("%w: input path is required", ErrInvalidOptions)
	}
	mode, err := streams.ParseMode(string(o.MapMode))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	dialect, err := script.ParseDialect(o.Dialect)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	tpl, err := encoder.ParseTemplate(o.Encoder)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	inputAbs, err := filepath.Abs(o.InputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: input path: %v", ErrInvalidOptions, err)
	}
	outDir := o.OutDir
	if outDir == "" {
		outDir = "output"
	}
	outAbs, err := filepath.Abs(outDir)
	if err != nil {
		return nil, fmt.Errorf("%w: output dir: %v", ErrInvalidOptions, err)
	}

	md, err := probe.Probe(ctx, s.runner, s.ffprobePath, inputAbs)
	if err != nil {
		return nil, err
	}
	sel := streams.Select(md.Streams, mode)
	s.log.Debug().
		Float64("duration_sec", md.DurationSec).
		Int("streams", len(md.Streams)).
		Int("video", md.CountOf(model.CodecVideo)).
		Int("audio", md.CountOf(model.CodecAudio)).
		Int("subtitle", md.CountOf(model.CodecSubtitle)).
		Str("selected", streams.Describe(sel)).
		Msg("probed input")

	segs, err := segment.New(md.DurationSec, o.Split, o.FPS, segment.MaxSplit(s.parallelism))
	if err != nil {
		return nil, err
	}
	if drift := segs.Drift(); drift > 0 {
		s.log.Debug().Dur("segment", segs.Duration).Dur("last_segment", segs.LastDuration()).Msg("last segment absorbs rounding")
	}

	f := encoder.DefaultFilter(o.FPS)
	f.CRF = o.CRF
	g, err := jobgraph.Build(jobgraph.Input{
		Plan:       segs,
		Selection:  sel,
		InputPath:  inputAbs,
		WorkDir:    outAbs,
		OutputName: media.FinalName(inputAbs, o.FPS, o.AutoName),
		Encoder:    tpl,
		Filter:     f,
	})
	if err != nil {
		return nil, err
	}

	dialect = script.Resolve(ctx, s.runner, dialect)
	em, err := script.ForDialect(dialect)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	body, err := em.Emit(g, script.Options{Shutdown: o.Shutdown})
	if err != nil {
		return nil, fmt.Errorf("%w: emit %s script: %w", jobgraph.ErrPlanning, dialect, err)
	}
	if o.Shutdown && dialect != script.DialectBatch {
		s.log.Warn().Str("dialect", string(dialect)).Msg("--shutdown is only honored by batch scripts; ignoring")
	}

	return &Plan{
		Media:      md,
		Selection:  sel,
		Segments:   segs,
		Graph:      g,
		Dialect:    dialect,
		ScriptName: em.Filename(),
		Script:     body,
		Manifest:   g.Manifest.Render(),
		OutDir:     outAbs,
	}, nil
}

// LaunchResult describes a detached launch.
type LaunchResult struct {
	Artifacts launch.Artifacts
	PID       int
}

// Launch writes the manifest and script and starts the script detached.
// The script's outcome is not observed.
func (s *Service) Launch(ctx context.Context, p *Plan) (LaunchResult, error) {
	a, err := launch.WriteArtifacts(p.OutDir, p.Manifest, p.ScriptName, p.Script)
	if err != nil {
		return LaunchResult{}, err
	}
	pid, err := s.spawn(ctx, s.log, p.Dialect, a.ScriptPath)
	if err != nil {
		return LaunchResult{Artifacts: a}, err
	}
	s.log.Info().Int("pid", pid).Str("script", a.ScriptPath).Int("segments", p.Segments.Count).Msg("launched")
	return LaunchResult{Artifacts: a, PID: pid}, nil
}

// Supervise writes the same artifacts as Launch, then runs the graph
// in-process and reports every job's outcome. A reporter set in so takes
// precedence over the service's.
func (s *Service) Supervise(ctx context.Context, p *Plan, so supervise.Options) (supervise.Report, error) {
	if _, err := launch.WriteArtifacts(p.OutDir, p.Manifest, p.ScriptName, p.Script); err != nil {
		return supervise.Report{}, err
	}
	so.Runner = s.runner
	so.Logger = s.log
	if so.Reporter == nil {
		so.Reporter = s.reporter
	}
	return supervise.Run(ctx, p.Graph, so)
}
