package ui

import (
	"fmt"
	"time"

	bubblesprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"

	"parmint/internal/jobgraph"
	"parmint/internal/progress"
)

type jobState struct {
	id     string
	label  string
	stage  progress.Stage
	status string
	err    error
	done   bool

	percent float64 // -1 means unknown
	speed   string
	elapsed time.Duration

	spinner spinner.Model
	bar     bubblesprogress.Model
}

func newJobState(j jobgraph.Job, styles Styles) jobState {
	sp := spinner.New()
	sp.Style = styles.Spinner
	bar := bubblesprogress.New(
		bubblesprogress.WithDefaultGradient(),
		bubblesprogress.WithWidth(30),
	)
	return jobState{
		id:      j.ID,
		label:   jobLabel(j),
		stage:   progress.StageQueued,
		percent: -1,
		spinner: sp,
		bar:     bar,
	}
}

func jobLabel(j jobgraph.Job) string {
	switch j.Kind {
	case jobgraph.KindInterpolate:
		return fmt.Sprintf("segment %03d → %s", j.Segment, j.Output)
	case jobgraph.KindConcat:
		return "concat → " + j.Output
	default:
		return string(j.Kind)
	}
}
