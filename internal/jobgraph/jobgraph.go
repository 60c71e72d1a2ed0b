// Package jobgraph assembles the split, interpolate and concat jobs of one
// run into an ordered three-tier graph.
package jobgraph

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"parmint/internal/encoder"
	"parmint/internal/model"
	"parmint/internal/segment"
)

var (
	// ErrPlanning is returned when the selection leaves nothing to interpolate.
	ErrPlanning = errors.New("planning error")
	// ErrInvalidGraph is returned by Validate for any broken tier contract.
	ErrInvalidGraph = errors.New("invalid job graph")
)

// Kind is the tier a job belongs to.
type Kind string

const (
	KindSplit       Kind = "split"
	KindInterpolate Kind = "interpolate"
	KindConcat      Kind = "concat"
)

const (
	SplitID  = "split"
	ConcatID = "concat"
)

// InterpolateID names the interpolate job for segment i.
func InterpolateID(i int) string {
	return fmt.Sprintf("interpolate-%03d", i)
}

// Command is one external process invocation. Paths in Args are relative to
// the graph's WorkDir.
type Command struct {
	Program string
	Args    []string
}

// Job is a node in the graph.
type Job struct {
	ID        string
	Kind      Kind
	Command   Command
	DependsOn []string

	// Segment index for interpolate jobs, -1 otherwise.
	Segment int
	// Output file this job produces, relative to WorkDir. Empty for split.
	Output string
	// Source duration the job processes, used for progress percentages.
	DurationSec float64
}

// Graph is the ordered pipeline: Jobs[0] is split, then one interpolate job
// per segment in index order, then concat.
type Graph struct {
	Jobs     []Job
	Manifest segment.Manifest
	// WorkDir is the directory every command runs in.
	WorkDir string
	// Output is the final joined file name, relative to WorkDir.
	Output string
}

// Input collects everything Build needs.
type Input struct {
	Plan      segment.Plan
	Selection model.StreamSelection
	// InputPath should be absolute: commands run inside WorkDir.
	InputPath  string
	WorkDir    string
	OutputName string
	Encoder    encoder.Template
	Filter     encoder.Filter
}

// Build produces the graph for in. It fails with ErrPlanning when no video
// stream is selected.
func Build(in Input) (Graph, error) {
	if !in.Selection.HasVideo() {
		return Graph{}, fmt.Errorf("%w: no video stream selected, nothing to interpolate", ErrPlanning)
	}
	if in.Plan.Count < 1 || len(in.Plan.Filenames) != in.Plan.Count {
		return Graph{}, fmt.Errorf("%w: segment plan has %d filenames for %d segments",
			ErrPlanning, len(in.Plan.Filenames), in.Plan.Count)
	}
	if in.OutputName == "" {
		return Graph{}, fmt.Errorf("%w: output name is required", ErrPlanning)
	}
	tpl := in.Encoder
	if tpl.Program == "" {
		tpl = encoder.DefaultTemplate()
	}
	f := in.Filter
	if f == (encoder.Filter{}) {
		f = encoder.DefaultFilter(in.Plan.FPS)
	} else if f.FPS == 0 {
		f.FPS = in.Plan.FPS
	}

	g := Graph{
		Jobs:     make([]Job, 0, in.Plan.Count+2),
		Manifest: in.Plan.Manifest(),
		WorkDir:  in.WorkDir,
		Output:   in.OutputName,
	}

	g.Jobs = append(g.Jobs, Job{
		ID:          SplitID,
		Kind:        KindSplit,
		Command:     command(tpl, encoder.BuildSplitArgs(in.InputPath, in.Selection, in.Plan)),
		Segment:     -1,
		DurationSec: in.Plan.TotalSec,
	})

	interpolateIDs := make([]string, in.Plan.Count)
	for i, dst := range in.Plan.Filenames {
		id := InterpolateID(i)
		interpolateIDs[i] = id
		dur := in.Plan.Duration.Seconds()
		if i == in.Plan.Count-1 {
			dur = in.Plan.LastDuration().Seconds()
		}
		g.Jobs = append(g.Jobs, Job{
			ID:          id,
			Kind:        KindInterpolate,
			Command:     command(tpl, encoder.BuildInterpolateArgs(in.Plan.SourceName(i), dst, f)),
			DependsOn:   []string{SplitID},
			Segment:     i,
			Output:      dst,
			DurationSec: dur,
		})
	}

	g.Jobs = append(g.Jobs, Job{
		ID:          ConcatID,
		Kind:        KindConcat,
		Command:     command(tpl, encoder.BuildConcatArgs(segment.ManifestName, in.InputPath, in.Selection.Subtitle, in.OutputName)),
		DependsOn:   interpolateIDs,
		Segment:     -1,
		Output:      in.OutputName,
		DurationSec: in.Plan.TotalSec,
	})

	if err := g.Validate(); err != nil {
		return Graph{}, err
	}
	return g, nil
}

func command(tpl encoder.Template, args []string) Command {
	return Command{Program: tpl.Program, Args: tpl.Args(args)}
}

// Split returns the split job.
func (g Graph) Split() Job { return g.Jobs[0] }

// Concat returns the concat job.
func (g Graph) Concat() Job { return g.Jobs[len(g.Jobs)-1] }

// Interpolate returns the fan-out tier in segment order.
func (g Graph) Interpolate() []Job {
	if len(g.Jobs) < 2 {
		return nil
	}
	return g.Jobs[1 : len(g.Jobs)-1]
}

// ManifestPath is where the concat job expects the manifest.
func (g Graph) ManifestPath() string {
	return filepath.Join(g.WorkDir, segment.ManifestName)
}

// Validate checks the three-tier contract: one split first, every interpolate
// job depending exactly on split, one concat last depending exactly on the
// whole interpolate tier, and interpolate outputs matching the manifest.
func (g Graph) Validate() error {
	if len(g.Jobs) < 3 {
		return fmt.Errorf("%w: need split, at least one interpolate and concat; have %d jobs", ErrInvalidGraph, len(g.Jobs))
	}
	ids := make(map[string]bool, len(g.Jobs))
	for _, j := range g.Jobs {
		if ids[j.ID] {
			return fmt.Errorf("%w: duplicate job id %q", ErrInvalidGraph, j.ID)
		}
		ids[j.ID] = true
	}

	split := g.Jobs[0]
	if split.Kind != KindSplit {
		return fmt.Errorf("%w: first job %q is %s, want split", ErrInvalidGraph, split.ID, split.Kind)
	}
	if len(split.DependsOn) != 0 {
		return fmt.Errorf("%w: split job depends on %v", ErrInvalidGraph, split.DependsOn)
	}

	concat := g.Jobs[len(g.Jobs)-1]
	if concat.Kind != KindConcat {
		return fmt.Errorf("%w: last job %q is %s, want concat", ErrInvalidGraph, concat.ID, concat.Kind)
	}

	tier := g.Interpolate()
	want := make([]string, 0, len(tier))
	for i, j := range tier {
		if j.Kind != KindInterpolate {
			return fmt.Errorf("%w: job %d (%q) is %s inside the interpolate tier", ErrInvalidGraph, i+1, j.ID, j.Kind)
		}
		if len(j.DependsOn) != 1 || j.DependsOn[0] != split.ID {
			return fmt.Errorf("%w: %s depends on %v, want [%s]", ErrInvalidGraph, j.ID, j.DependsOn, split.ID)
		}
		want = append(want, j.ID)
	}

	if !sameSet(concat.DependsOn, want) {
		return fmt.Errorf("%w: concat depends on %v, want every interpolate job %v", ErrInvalidGraph, concat.DependsOn, want)
	}

	if len(g.Manifest) != len(tier) {
		return fmt.Errorf("%w: manifest lists %d files for %d interpolate jobs", ErrInvalidGraph, len(g.Manifest), len(tier))
	}
	for i, j := range tier {
		if j.Output != g.Manifest[i] {
			return fmt.Errorf("%w: %s writes %q but manifest entry %d is %q", ErrInvalidGraph, j.ID, j.Output, i, g.Manifest[i])
		}
	}
	return nil
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
