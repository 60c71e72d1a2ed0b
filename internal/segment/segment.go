// Package segment computes how the input is cut and names every segment file.
package segment

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	ErrInvalidSplitCount = errors.New("invalid split count")
	ErrInvalidDuration   = errors.New("invalid input duration")
	ErrInvalidFPS        = errors.New("invalid target fps")
)

const (
	// ManifestName is the concat list file, relative to the output directory.
	ManifestName = "list.txt"
	// SourcePattern is the ffmpeg segment muxer pattern for split output.
	SourcePattern = "output%03d.mkv"

	splitPerCore = 4
	minMaxSplit  = 64
)

// MaxSplit is the upper bound on the split count for a host with the given
// parallelism.
func MaxSplit(parallelism int) int {
	if n := parallelism * splitPerCore; n > minMaxSplit {
		return n
	}
	return minMaxSplit
}

// Plan describes the cut of the input into Count segments.
type Plan struct {
	Count    int
	Duration time.Duration // Whole seconds.
	FPS      int
	TotalSec float64

	// Filenames holds the interpolated segment names in index order. The
	// interpolate jobs write exactly these and the manifest lists exactly these.
	Filenames []string
}

// New plans splitCount segments of round(durationSec/splitCount) seconds,
// rounding halves to even.
// The cuts are placed at multiples of that duration, so the last segment
// absorbs the rounding remainder.
func New(durationSec float64, splitCount, fps, maxSplit int) (Plan, error) {
	if math.IsNaN(durationSec) || durationSec <= 0 {
		return Plan{}, fmt.Errorf("%w: %v seconds", ErrInvalidDuration, durationSec)
	}
	if fps < 1 {
		return Plan{}, fmt.Errorf("%w: %d", ErrInvalidFPS, fps)
	}
	if splitCount < 1 {
		return Plan{}, fmt.Errorf("%w: %d (must be at least 1)", ErrInvalidSplitCount, splitCount)
	}
	if maxSplit > 0 && splitCount > maxSplit {
		return Plan{}, fmt.Errorf("%w: %d exceeds the limit of %d", ErrInvalidSplitCount, splitCount, maxSplit)
	}

	secs := math.RoundToEven(durationSec / float64(splitCount))
	if splitCount > 1 && secs < 1 {
		return Plan{}, fmt.Errorf("%w: %d segments of a %.2fs input would be shorter than one second",
			ErrInvalidSplitCount, splitCount, durationSec)
	}
	// The last cut must fall strictly inside the input or ffmpeg produces
	// fewer files than the manifest lists.
	if lastCut := secs * float64(splitCount-1); splitCount > 1 && lastCut >= durationSec {
		return Plan{}, fmt.Errorf("%w: %d segments of %.0fs leave nothing for the last segment of a %.2fs input",
			ErrInvalidSplitCount, splitCount, secs, durationSec)
	}

	p := Plan{
		Count:     splitCount,
		Duration:  time.Duration(secs) * time.Second,
		FPS:       fps,
		TotalSec:  durationSec,
		Filenames: make([]string, splitCount),
	}
	for i := range p.Filenames {
		p.Filenames[i] = InterpolatedName(i, fps)
	}
	return p, nil
}

// SourceName is the split output for segment i.
func SourceName(i int) string {
	return fmt.Sprintf(SourcePattern, i)
}

// InterpolatedName is the interpolate output for segment i.
func InterpolatedName(i, fps int) string {
	return fmt.Sprintf("output%03d.%dfps.mkv", i, fps)
}

// SourceName is the split output for segment i of this plan.
func (p Plan) SourceName(i int) string { return SourceName(i) }

// CutPoints returns the Count-1 split timestamps.
func (p Plan) CutPoints() []time.Duration {
	if p.Count <= 1 {
		return nil
	}
	cuts := make([]time.Duration, p.Count-1)
	for i := range cuts {
		cuts[i] = time.Duration(i+1) * p.Duration
	}
	return cuts
}

// LastDuration is the length of the final segment, which differs from
// Duration whenever the input is not an exact multiple of it.
func (p Plan) LastDuration() time.Duration {
	rest := p.TotalSec - float64(p.Count-1)*p.Duration.Seconds()
	if rest < 0 {
		return 0
	}
	return time.Duration(rest * float64(time.Second))
}

// Drift is how far the last segment is from an equal share.
func (p Plan) Drift() time.Duration {
	d := p.LastDuration() - p.Duration
	if d < 0 {
		return -d
	}
	return d
}

// Manifest returns the concat manifest for this plan.
func (p Plan) Manifest() Manifest {
	m := make(Manifest, len(p.Filenames))
	copy(m, p.Filenames)
	return m
}

// Manifest is the ordered list of interpolated segment files fed to the
// concat demuxer.
type Manifest []string

// Render produces the list.txt body, one `file '<name>'` line per entry.
func (m Manifest) Render() string {
	var b strings.Builder
	for _, name := range m {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(name, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}

// ParseManifest reads a rendered manifest back into entries.
func ParseManifest(body string) (Manifest, error) {
	var m Manifest
	for n, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rest, ok := strings.CutPrefix(line, "file ")
		if !ok || len(rest) < 2 || rest[0] != '\'' || rest[len(rest)-1] != '\'' {
			return nil, fmt.Errorf("manifest line %d: unexpected %q", n+1, line)
		}
		m = append(m, strings.ReplaceAll(rest[1:len(rest)-1], `'\''`, "'"))
	}
	return m, nil
}
