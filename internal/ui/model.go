package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"parmint/internal/jobgraph"
	"parmint/internal/progress"
	"parmint/internal/supervise"
)

type Model struct {
	cancel context.CancelFunc

	title    string
	jobOrder []string
	jobs     map[string]*jobState
	started  time.Time

	finished bool
	report   supervise.Report
	err      error

	width, height int
	styles        Styles
}

// NewModel builds the view state for every job of g. cancel is invoked
// when the user quits.
func NewModel(title string, g jobgraph.Graph, cancel context.CancelFunc) Model {
	sty := DefaultStyles()
	jobs := make(map[string]*jobState, len(g.Jobs))
	order := make([]string, 0, len(g.Jobs))
	for _, j := range g.Jobs {
		js := newJobState(j, sty)
		jobs[j.ID] = &js
		order = append(order, j.ID)
	}
	return Model{
		cancel:   cancel,
		title:    title,
		jobOrder: order,
		jobs:     jobs,
		started:  time.Now(),
		styles:   sty,
	}
}

func (m Model) Init() tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(m.jobOrder))
	for _, id := range m.jobOrder {
		cmds = append(cmds, m.jobs[id].spinner.Tick)
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case jobUpdateMsg:
		u := msg.U
		if js, ok := m.jobs[u.JobID]; ok {
			js.stage = u.Stage
			js.percent = u.Percent
			if u.Message != "" {
				js.status = u.Message
			}
			if u.Speed != nil {
				js.speed = *u.Speed
			}
		}
	case jobResultMsg:
		r := msg.R
		if js, ok := m.jobs[r.JobID]; ok {
			js.done = true
			js.stage = r.Stage
			js.elapsed = r.Elapsed
			js.err = r.Err
			switch r.Stage {
			case progress.StageCompleted:
				js.percent = 100
				js.status = "done in " + r.Elapsed.Round(time.Second).String()
			case progress.StageError:
				js.percent = -1
				if r.Err != nil {
					js.status = r.Err.Error()
				}
			default:
				js.percent = -1
				js.status = "skipped"
			}
		}
	case runDoneMsg:
		m.finished = true
		m.report = msg.Report
		m.err = msg.Err
		return m, tea.Quit
	}

	var cmds []tea.Cmd
	for _, id := range m.jobOrder {
		js := m.jobs[id]
		if js.done {
			continue
		}
		var c tea.Cmd
		js.spinner, c = js.spinner.Update(msg)
		if c != nil {
			cmds = append(cmds, c)
		}
	}
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	summary := m.viewSummary()
	if summary != "" {
		return m.viewHeader() + "\n\n" + m.viewJobs() + "\n" + summary
	}
	return m.viewHeader() + "\n\n" + m.viewJobs()
}

// teaReporter forwards supervisor events into the program. Send returns
// without delivering once the program has exited.
type teaReporter struct {
	prog *tea.Program
}

func (r teaReporter) Update(u progress.Update) { r.prog.Send(jobUpdateMsg{U: u}) }
func (r teaReporter) Result(res progress.Result) { r.prog.Send(jobResultMsg{R: res}) }
