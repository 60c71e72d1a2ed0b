// Package progress carries job events from the supervisor to whoever is watching.
package progress

import "time"

// Stage identifies where a job is in its lifecycle.
type Stage string

const (
	StageQueued    Stage = "queued"
	StageRunning   Stage = "running"
	StageCompleted Stage = "completed"
	StageSkipped   Stage = "skipped"
	StageError     Stage = "error"
)

// Update conveys progress or stage changes for a job.
// Percent is 0..100 when known; set to a negative value (e.g., -1) to mean unknown.
type Update struct {
	JobID   string
	Stage   Stage
	Percent float64

	Speed   *string // optional, e.g. "1.2x"
	Bytes   *int64  // optional cumulative output bytes
	Message string
}

// Result is emitted once per job when it completes, fails or is skipped.
type Result struct {
	JobID   string
	Stage   Stage // StageCompleted, StageError or StageSkipped
	Elapsed time.Duration
	Err     error
}

// Reporter is implemented by the TUI, the progress bar, or anything else
// interested in job events. Implementations must be safe for concurrent use:
// interpolate jobs report from their own goroutines.
type Reporter interface {
	Update(u Update)
	Result(r Result)
}

// Discard is a Reporter that drops everything.
type Discard struct{}

func (Discard) Update(Update) {}
func (Discard) Result(Result) {}
