package ui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"parmint/internal/jobgraph"
	"parmint/internal/progress"
	"parmint/internal/supervise"
)

// RunFunc executes the supervised run, reporting to rep.
type RunFunc func(ctx context.Context, rep progress.Reporter) (supervise.Report, error)

// Run shows one row per job of g while run executes. Quitting cancels the
// run; Run returns only after run has returned, so no encoder outlives it.
func Run(ctx context.Context, title string, g jobgraph.Graph, run RunFunc) (supervise.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prog := tea.NewProgram(NewModel(title, g, cancel), tea.WithContext(ctx))

	type outcome struct {
		report supervise.Report
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		rep, err := run(ctx, teaReporter{prog: prog})
		done <- outcome{rep, err}
		prog.Send(runDoneMsg{Report: rep, Err: err})
	}()

	_, perr := prog.Run()
	// The program exits on quit or cancellation; make sure the run stops too.
	cancel()
	out := <-done
	if out.err != nil {
		return out.report, out.err
	}
	if perr != nil && !errors.Is(perr, tea.ErrProgramKilled) {
		return out.report, perr
	}
	return out.report, nil
}
