// Package supervise runs a job graph in-process instead of through a script,
// so that every job's outcome is observed and a failed segment stops the
// concat from running.
package supervise

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"parmint/internal/encoder"
	"parmint/internal/jobgraph"
	"parmint/internal/progress"
	"parmint/internal/segment"
	"parmint/internal/util"
)

// ErrJobsFailed is returned when any job failed or never ran.
var ErrJobsFailed = errors.New("jobs failed")

// Options configure a supervised run.
type Options struct {
	// Parallel bounds concurrent interpolate jobs. Zero runs the whole tier at once.
	Parallel int
	// FailFast cancels the remaining interpolate jobs after the first failure.
	FailFast bool
	// Progress asks ffmpeg for -progress output on interpolate jobs.
	Progress bool

	Runner   util.CmdRunner
	Reporter progress.Reporter
	Logger   zerolog.Logger
	// RunID tags log lines; generated when empty.
	RunID string
}

// JobResult is the outcome of one job.
type JobResult struct {
	JobID   string
	Kind    jobgraph.Kind
	Stage   progress.Stage
	Elapsed time.Duration
	Err     error
	// Last lines of the job's stderr when it failed.
	StderrTail string
}

// Report aggregates a supervised run. Results follow the graph's job order.
type Report struct {
	RunID   string
	Output  string
	Elapsed time.Duration
	Results []JobResult
}

// Failed returns the ids of jobs that ran and failed.
func (r Report) Failed() []string {
	var ids []string
	for _, res := range r.Results {
		if res.Stage == progress.StageError {
			ids = append(ids, res.JobID)
		}
	}
	return ids
}

// Succeeded reports whether every job completed.
func (r Report) Succeeded() bool {
	for _, res := range r.Results {
		if res.Stage != progress.StageCompleted {
			return false
		}
	}
	return len(r.Results) > 0
}

type supervisor struct {
	workDir  string
	runner   util.CmdRunner
	reporter progress.Reporter
	log      zerolog.Logger
	progress bool
}

// Run executes split, then the interpolate tier concurrently, then concat
// once every interpolate job has completed. Artifacts (the manifest) must
// already exist in the graph's WorkDir; segment files and the output left by
// an earlier run are removed first.
func Run(ctx context.Context, g jobgraph.Graph, opts Options) (Report, error) {
	if err := g.Validate(); err != nil {
		return Report{}, err
	}
	if opts.Runner == nil {
		return Report{}, errors.New("supervise: runner is required")
	}
	if opts.Reporter == nil {
		opts.Reporter = progress.Discard{}
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	tier := g.Interpolate()
	if opts.Parallel <= 0 || opts.Parallel > len(tier) {
		opts.Parallel = len(tier)
	}

	s := &supervisor{
		workDir:  g.WorkDir,
		runner:   opts.Runner,
		reporter: opts.Reporter,
		log:      opts.Logger.With().Str("run_id", opts.RunID).Logger(),
		progress: opts.Progress,
	}
	rep := Report{
		RunID:   opts.RunID,
		Output:  filepath.Join(g.WorkDir, g.Output),
		Results: make([]JobResult, len(g.Jobs)),
	}
	for i, j := range g.Jobs {
		rep.Results[i] = JobResult{JobID: j.ID, Kind: j.Kind, Stage: progress.StageQueued}
		s.reporter.Update(progress.Update{JobID: j.ID, Stage: progress.StageQueued, Percent: -1})
	}

	s.clearStale(g)

	start := time.Now()
	s.log.Info().Int("segments", len(tier)).Int("parallel", opts.Parallel).Str("dir", g.WorkDir).Msg("supervised run started")

	rep.Results[0] = s.runJob(ctx, g.Split())
	if rep.Results[0].Err != nil {
		s.skip(&rep, 1, len(g.Jobs))
		rep.Elapsed = time.Since(start)
		return rep, fmt.Errorf("%w: %v", ErrJobsFailed, rep.Results[0].Err)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(opts.Parallel)
	for i, j := range tier {
		i, j := i, j
		eg.Go(func() error {
			// Each goroutine owns its own slot in Results.
			if egCtx.Err() != nil {
				rep.Results[i+1] = s.skipped(j)
				return nil
			}
			r := s.runJob(egCtx, j)
			rep.Results[i+1] = r
			if r.Err != nil && opts.FailFast {
				return r.Err
			}
			return nil
		})
	}
	_ = eg.Wait()

	last := len(g.Jobs) - 1
	for _, r := range rep.Results[1:last] {
		if r.Stage != progress.StageCompleted {
			rep.Results[last] = s.skipped(g.Concat())
			rep.Elapsed = time.Since(start)
			return rep, s.failure(ctx, rep)
		}
	}

	if err := checkManifest(g); err != nil {
		rep.Results[last] = s.failed(g.Concat(), err)
		rep.Elapsed = time.Since(start)
		return rep, s.failure(ctx, rep)
	}
	rep.Results[last] = s.runJob(ctx, g.Concat())
	rep.Elapsed = time.Since(start)
	if rep.Results[last].Err != nil {
		return rep, s.failure(ctx, rep)
	}
	s.log.Info().Str("output", rep.Output).Dur("elapsed", rep.Elapsed).Msg("supervised run finished")
	return rep, nil
}

func (s *supervisor) failure(ctx context.Context, rep Report) error {
	failed := rep.Failed()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: interrupted: %v", ErrJobsFailed, err)
	}
	return fmt.Errorf("%w: %s", ErrJobsFailed, strings.Join(failed, ", "))
}

func (s *supervisor) runJob(ctx context.Context, j jobgraph.Job) JobResult {
	log := s.log.With().Str("job", j.ID).Logger()
	s.reporter.Update(progress.Update{JobID: j.ID, Stage: progress.StageRunning, Percent: 0, Message: string(j.Kind)})

	spec := util.CmdSpec{Path: j.Command.Program, Args: j.Command.Args, Dir: s.workDir}
	if j.Kind == jobgraph.KindInterpolate && s.progress {
		var ps encoder.ProgressState
		spec.Args = encoder.WithProgress(j.Command.Args)
		spec.StdoutLine = func(line string) {
			if u, ok := ps.UpdateFromLine(line, j.ID, j.DurationSec); ok {
				s.reporter.Update(u)
			}
		}
	}

	start := time.Now()
	res, err := s.runner.Run(ctx, spec)
	r := JobResult{JobID: j.ID, Kind: j.Kind, Elapsed: time.Since(start)}
	if err != nil {
		r.Stage = progress.StageError
		r.Err = fmt.Errorf("%s: %w", j.ID, err)
		r.StderrTail = tail(string(res.Stderr), 5)
		log.Error().Err(err).Str("stderr", r.StderrTail).Msg("job failed")
		s.reporter.Update(progress.Update{JobID: j.ID, Stage: progress.StageError, Percent: -1, Message: err.Error()})
	} else {
		r.Stage = progress.StageCompleted
		log.Debug().Dur("elapsed", r.Elapsed).Msg("job completed")
		s.reporter.Update(progress.Update{JobID: j.ID, Stage: progress.StageCompleted, Percent: 100})
	}
	s.reporter.Result(progress.Result{JobID: j.ID, Stage: r.Stage, Elapsed: r.Elapsed, Err: r.Err})
	return r
}

// clearStale removes the files every job is about to write, so a segment that
// silently produced nothing cannot be joined from a previous run's leftovers.
func (s *supervisor) clearStale(g jobgraph.Graph) {
	var names []string
	for _, j := range g.Interpolate() {
		names = append(names, segment.SourceName(j.Segment), j.Output)
	}
	names = append(names, g.Output)
	for _, name := range names {
		if err := util.RemoveIfExists(filepath.Join(g.WorkDir, name)); err != nil {
			s.log.Warn().Err(err).Str("file", name).Msg("could not remove stale output")
		}
	}
}

// checkManifest re-reads the manifest concat will consume and compares it
// with the segments this run produced.
func checkManifest(g jobgraph.Graph) error {
	body, err := os.ReadFile(g.ManifestPath())
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	m, err := segment.ParseManifest(string(body))
	if err != nil {
		return err
	}
	if len(m) != len(g.Manifest) {
		return fmt.Errorf("manifest %s lists %d segments, want %d", g.ManifestPath(), len(m), len(g.Manifest))
	}
	for i := range m {
		if m[i] != g.Manifest[i] {
			return fmt.Errorf("manifest %s entry %d is %q, want %q", g.ManifestPath(), i, m[i], g.Manifest[i])
		}
	}
	return nil
}

func (s *supervisor) failed(j jobgraph.Job, err error) JobResult {
	r := JobResult{JobID: j.ID, Kind: j.Kind, Stage: progress.StageError, Err: fmt.Errorf("%s: %w", j.ID, err)}
	s.log.Error().Err(err).Str("job", j.ID).Msg("job not started")
	s.reporter.Update(progress.Update{JobID: j.ID, Stage: progress.StageError, Percent: -1, Message: err.Error()})
	s.reporter.Result(progress.Result{JobID: j.ID, Stage: r.Stage, Err: r.Err})
	return r
}

func (s *supervisor) skipped(j jobgraph.Job) JobResult {
	s.reporter.Update(progress.Update{JobID: j.ID, Stage: progress.StageSkipped, Percent: -1})
	s.reporter.Result(progress.Result{JobID: j.ID, Stage: progress.StageSkipped})
	return JobResult{JobID: j.ID, Kind: j.Kind, Stage: progress.StageSkipped}
}

func (s *supervisor) skip(rep *Report, from, to int) {
	for i := from; i < to; i++ {
		rep.Results[i] = s.skipped(jobgraph.Job{ID: rep.Results[i].JobID, Kind: rep.Results[i].Kind})
	}
}

func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
