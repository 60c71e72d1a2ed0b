package ui

import (
	"parmint/internal/progress"
	"parmint/internal/supervise"
)

type jobUpdateMsg struct {
	U progress.Update
}

type jobResultMsg struct {
	R progress.Result
}

type runDoneMsg struct {
	Report supervise.Report
	Err    error
}
