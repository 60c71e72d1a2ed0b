package ui

import (
	"fmt"
	"strings"
	"time"

	"parmint/internal/progress"
)

func (m Model) viewHeader() string {
	done, failed, total := 0, 0, len(m.jobOrder)
	for _, id := range m.jobOrder {
		js := m.jobs[id]
		if js.done {
			done++
		}
		if js.err != nil {
			failed++
		}
	}
	title := m.styles.Title.Render("parmint · " + m.title)
	status := fmt.Sprintf("Jobs: %d/%d done • elapsed %s • q: quit", done, total, time.Since(m.started).Round(time.Second))
	if failed > 0 {
		status += " • " + m.styles.Error.Render(fmt.Sprintf("%d failed", failed))
	}
	return title + "\n" + m.styles.Subtitle.Render(status)
}

func (m Model) viewJobs() string {
	var b strings.Builder
	for _, id := range m.jobOrder {
		b.WriteString(m.viewJob(m.jobs[id]))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewJob(js *jobState) string {
	stageStyle := m.styles.JobInfo
	switch js.stage {
	case progress.StageQueued, progress.StageSkipped:
		stageStyle = m.styles.Faint
	case progress.StageRunning:
		stageStyle = m.styles.StageRun
	case progress.StageCompleted:
		stageStyle = m.styles.Success
	case progress.StageError:
		stageStyle = m.styles.Error
	}

	left := m.styles.JobTitle.Render(fmt.Sprintf("%-36s", truncate(js.label, 36)))
	stage := stageStyle.Render(fmt.Sprintf("%-9s", js.stage))

	var right string
	switch {
	case js.done && js.err == nil && js.stage == progress.StageCompleted:
		right = m.styles.Success.Render("✓ " + js.status)
	case js.err != nil:
		right = m.styles.Error.Render("✗ " + truncate(js.status, 60))
	case js.stage == progress.StageSkipped:
		right = m.styles.Faint.Render("skipped")
	case js.percent >= 0 && js.percent <= 100:
		right = fmt.Sprintf("%s %5.1f%%", js.bar.ViewAs(js.percent/100.0), js.percent)
		if js.speed != "" {
			right += " " + m.styles.Faint.Render(js.speed)
		}
	default:
		right = m.styles.Spinner.Render(js.spinner.View()) + " " + m.styles.Faint.Render("waiting")
	}
	return m.styles.Box.Render(left + "  " + stage + "  " + right)
}

func (m Model) viewSummary() string {
	if !m.finished {
		return ""
	}
	var b strings.Builder
	if m.err == nil {
		b.WriteString(m.styles.Success.Render("✓ Output: " + m.report.Output))
		b.WriteString("\n")
		return b.String()
	}
	b.WriteString(m.styles.Error.Render("✗ " + m.err.Error()))
	b.WriteString("\n")
	for _, id := range m.report.Failed() {
		b.WriteString(m.styles.Error.Render("  • " + id))
		b.WriteString("\n")
	}
	return b.String()
}

func truncate(s string, n int) string {
	rs := []rune(s)
	if n <= 0 || len(rs) <= n {
		return s
	}
	return string(rs[:n-1]) + "…"
}
