package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Bar counts finished jobs on a single progress bar, for terminals (or logs)
// that cannot host the full TUI. Per-frame updates are ignored.
type Bar struct {
	mu          sync.Mutex
	bar         *progressbar.ProgressBar
	description string
	done        int
	failed      int
}

// NewBar renders a bar of total jobs to w.
func NewBar(w io.Writer, total int, description string) *Bar {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "▐",
			BarEnd:        "▌",
		}),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &Bar{bar: bar, description: description}
}

func (b *Bar) Update(Update) {}

func (b *Bar) Result(r Result) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.done++
	if r.Stage == StageError {
		b.failed++
		b.bar.Describe(fmt.Sprintf("%s (%d failed)", b.description, b.failed))
	}
	_ = b.bar.Add(1)
}

// Done returns how many jobs finished and how many of those failed.
func (b *Bar) Done() (done, failed int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done, b.failed
}

// Finish completes the bar and moves past it.
func (b *Bar) Finish() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bar.Finish()
}
