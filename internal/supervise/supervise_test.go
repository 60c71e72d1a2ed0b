package supervise

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"parmint/internal/encoder"
	"parmint/internal/jobgraph"
	"parmint/internal/model"
	"parmint/internal/progress"
	"parmint/internal/segment"
	"parmint/internal/util"
)

func testGraph(t *testing.T, n int) jobgraph.Graph {
	t.Helper()
	plan, err := segment.New(120, n, 60, 64)
	if err != nil {
		t.Fatalf("segment.New: %v", err)
	}
	g, err := jobgraph.Build(jobgraph.Input{
		Plan:       plan,
		Selection:  model.StreamSelection{Video: []int{0}},
		InputPath:  "/in.mkv",
		WorkDir:    t.TempDir(),
		OutputName: "final.mkv",
		Encoder:    encoder.DefaultTemplate(),
		Filter:     encoder.DefaultFilter(60),
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := os.WriteFile(g.ManifestPath(), []byte(g.Manifest.Render()), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return g
}

// fakeRunner fails any command whose last argument is in fail and records
// every call. It is safe for concurrent use.
type fakeRunner struct {
	mu    sync.Mutex
	calls []util.CmdSpec
	fail  map[string]bool
	delay time.Duration
	// block makes failing-free jobs wait for cancellation.
	block bool

	running    atomic.Int32
	maxRunning atomic.Int32
}

func (f *fakeRunner) Run(ctx context.Context, spec util.CmdSpec) (util.CmdResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, spec)
	f.mu.Unlock()

	n := f.running.Add(1)
	defer f.running.Add(-1)
	for {
		m := f.maxRunning.Load()
		if n <= m || f.maxRunning.CompareAndSwap(m, n) {
			break
		}
	}

	out := spec.Args[len(spec.Args)-1]
	if f.fail[out] {
		return util.CmdResult{Code: 1, Stderr: []byte("Conversion failed!\n")}, errors.New("command failed (exit 1)")
	}
	if f.block && strings.HasPrefix(out, "output") && strings.Contains(out, "fps") {
		<-ctx.Done()
		return util.CmdResult{Code: -1}, ctx.Err()
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if spec.StdoutLine != nil {
		spec.StdoutLine("out_time_us=15000000")
		spec.StdoutLine("speed=2.5x")
		spec.StdoutLine("progress=continue")
	}
	return util.CmdResult{}, nil
}

func (f *fakeRunner) ran(substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if strings.Contains(strings.Join(c.Args, " "), substr) {
			return true
		}
	}
	return false
}

type recorder struct {
	mu      sync.Mutex
	updates []progress.Update
	results []progress.Result
}

func (r *recorder) Update(u progress.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recorder) Result(res progress.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func TestRun_AllSucceed(t *testing.T) {
	g := testGraph(t, 4)
	fr := &fakeRunner{}
	rec := &recorder{}

	rep, err := Run(context.Background(), g, Options{Runner: fr, Reporter: rec, Logger: zerolog.Nop(), Progress: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !rep.Succeeded() {
		t.Errorf("report not successful: %+v", rep.Results)
	}
	if rep.RunID == "" {
		t.Error("RunID should be generated")
	}
	if len(fr.calls) != 6 {
		t.Errorf("runner called %d times, want 6", len(fr.calls))
	}
	if !fr.ran("-f concat") {
		t.Error("concat never ran")
	}
	for _, c := range fr.calls {
		if c.Dir != g.WorkDir {
			t.Errorf("command ran in %q, want %q", c.Dir, g.WorkDir)
		}
	}
	if len(rec.results) != 6 {
		t.Errorf("got %d results, want 6", len(rec.results))
	}

	var sawHalf bool
	for _, u := range rec.updates {
		if u.JobID == jobgraph.InterpolateID(0) && u.Stage == progress.StageRunning && u.Percent == 50 {
			sawHalf = true
			if u.Speed == nil || *u.Speed != "2.5x" {
				t.Errorf("speed = %v", u.Speed)
			}
		}
	}
	if !sawHalf {
		t.Error("no 50% progress update for the first segment")
	}
}

func TestRun_InterpolateFailureSkipsConcat(t *testing.T) {
	g := testGraph(t, 4)
	fr := &fakeRunner{fail: map[string]bool{"output002.60fps.mkv": true}}

	rep, err := Run(context.Background(), g, Options{Runner: fr, Logger: zerolog.Nop()})
	if !errors.Is(err, ErrJobsFailed) {
		t.Fatalf("err = %v, want ErrJobsFailed", err)
	}
	if !strings.Contains(err.Error(), "interpolate-002") {
		t.Errorf("error should name the failed job: %v", err)
	}
	if fr.ran("-f concat") {
		t.Error("concat must not run after a failed segment")
	}
	failed := rep.Failed()
	if len(failed) != 1 || failed[0] != "interpolate-002" {
		t.Errorf("Failed() = %v", failed)
	}
	res := rep.Results[3]
	if res.StderrTail != "Conversion failed!" {
		t.Errorf("stderr tail = %q", res.StderrTail)
	}
	if c := rep.Results[len(rep.Results)-1]; c.Stage != progress.StageSkipped {
		t.Errorf("concat stage = %s", c.Stage)
	}
	// Without fail-fast the other segments still finish.
	for _, i := range []int{1, 2, 4} {
		if rep.Results[i].Stage != progress.StageCompleted {
			t.Errorf("%s stage = %s", rep.Results[i].JobID, rep.Results[i].Stage)
		}
	}
}

func TestRun_SplitFailure(t *testing.T) {
	g := testGraph(t, 3)
	fr := &fakeRunner{fail: map[string]bool{segment.SourcePattern: true}}

	rep, err := Run(context.Background(), g, Options{Runner: fr, Logger: zerolog.Nop()})
	if !errors.Is(err, ErrJobsFailed) {
		t.Fatalf("err = %v", err)
	}
	if len(fr.calls) != 1 {
		t.Errorf("runner called %d times after split failed", len(fr.calls))
	}
	for _, r := range rep.Results[1:] {
		if r.Stage != progress.StageSkipped {
			t.Errorf("%s stage = %s, want skipped", r.JobID, r.Stage)
		}
	}
}

func TestRun_FailFast(t *testing.T) {
	g := testGraph(t, 3)
	fr := &fakeRunner{fail: map[string]bool{"output000.60fps.mkv": true}, block: true}

	done := make(chan struct{})
	var err error
	go func() {
		_, err = Run(context.Background(), g, Options{Runner: fr, Logger: zerolog.Nop(), FailFast: true})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("fail-fast did not cancel the remaining jobs")
	}
	if !errors.Is(err, ErrJobsFailed) {
		t.Fatalf("err = %v", err)
	}
	if fr.ran("-f concat") {
		t.Error("concat must not run")
	}
}

func TestRun_ParallelLimit(t *testing.T) {
	g := testGraph(t, 6)
	fr := &fakeRunner{delay: 20 * time.Millisecond}

	if _, err := Run(context.Background(), g, Options{Runner: fr, Logger: zerolog.Nop(), Parallel: 2}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := fr.maxRunning.Load(); got > 2 {
		t.Errorf("max concurrent jobs = %d, want <= 2", got)
	}
}

func TestRun_Cancelled(t *testing.T) {
	g := testGraph(t, 2)
	ctx, cancel := context.WithCancel(context.Background())
	fr := &fakeRunner{block: true}
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := Run(ctx, g, Options{Runner: fr, Logger: zerolog.Nop()})
	if !errors.Is(err, ErrJobsFailed) || !strings.Contains(err.Error(), "interrupted") {
		t.Fatalf("err = %v", err)
	}
}

func TestRun_InvalidGraph(t *testing.T) {
	g := testGraph(t, 2)
	g.Jobs[len(g.Jobs)-1].DependsOn = nil
	if _, err := Run(context.Background(), g, Options{Runner: &fakeRunner{}}); !errors.Is(err, jobgraph.ErrInvalidGraph) {
		t.Fatalf("err = %v", err)
	}
}

func TestRun_ManifestMismatchSkipsConcat(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing entry", "file 'output000.60fps.mkv'\nfile 'output001.60fps.mkv'\n"},
		{"reordered", "file 'output000.60fps.mkv'\nfile 'output002.60fps.mkv'\nfile 'output001.60fps.mkv'\n"},
		{"not a manifest", "output000.60fps.mkv\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := testGraph(t, 3)
			if err := os.WriteFile(g.ManifestPath(), []byte(tt.body), 0o644); err != nil {
				t.Fatal(err)
			}
			fr := &fakeRunner{}
			rep, err := Run(context.Background(), g, Options{Runner: fr, Logger: zerolog.Nop()})
			if !errors.Is(err, ErrJobsFailed) {
				t.Fatalf("err = %v, want ErrJobsFailed", err)
			}
			if fr.ran("-f concat") {
				t.Error("concat must not run against a mismatched manifest")
			}
			if c := rep.Results[len(rep.Results)-1]; c.Stage != progress.StageError || c.Err == nil {
				t.Errorf("concat result = %+v", c)
			}
		})
	}
}

func TestRun_MissingManifest(t *testing.T) {
	g := testGraph(t, 2)
	if err := os.Remove(g.ManifestPath()); err != nil {
		t.Fatal(err)
	}
	fr := &fakeRunner{}
	if _, err := Run(context.Background(), g, Options{Runner: fr, Logger: zerolog.Nop()}); !errors.Is(err, ErrJobsFailed) {
		t.Fatalf("err = %v", err)
	}
	if fr.ran("-f concat") {
		t.Error("concat must not run without a manifest")
	}
}

func TestRun_ClearsStaleOutputs(t *testing.T) {
	g := testGraph(t, 2)
	stale := []string{"output000.mkv", "output001.60fps.mkv", "final.mkv"}
	for _, name := range stale {
		if err := os.WriteFile(filepath.Join(g.WorkDir, name), []byte("old"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := Run(context.Background(), g, Options{Runner: &fakeRunner{}, Logger: zerolog.Nop()}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, name := range stale {
		if _, err := os.Stat(filepath.Join(g.WorkDir, name)); !os.IsNotExist(err) {
			t.Errorf("%s survived the run: %v", name, err)
		}
	}
	if _, err := os.Stat(g.ManifestPath()); err != nil {
		t.Errorf("manifest must be kept: %v", err)
	}
}
