package encoder

import (
	"strconv"
	"strings"

	"parmint/internal/progress"
)

// ProgressState tracks ffmpeg -progress key=value output across lines.
type ProgressState struct {
	OutTimeUs int64
	Speed     string
	TotalSize int64
}

// UpdateFromLine folds one -progress line into the state. When the line is a
// "progress=" block terminator it returns an Update for jobID with the percent
// of durationSec encoded so far (-1 when durationSec is unknown).
func (ps *ProgressState) UpdateFromLine(line, jobID string, durationSec float64) (progress.Update, bool) {
	key, val, ok := strings.Cut(line, "=")
	if !ok {
		return progress.Update{}, false
	}
	key = strings.TrimSpace(key)
	val = strings.TrimSpace(val)

	switch key {
	// out_time_ms is microseconds despite its name; newer ffmpeg adds out_time_us.
	case "out_time_us", "out_time_ms":
		if v, err := strconv.ParseInt(val, 10, 64); err == nil && v >= 0 {
			ps.OutTimeUs = v
		}
	case "speed":
		if val != "N/A" {
			ps.Speed = val
		}
	case "total_size":
		if v, err := strconv.ParseInt(val, 10, 64); err == nil {
			ps.TotalSize = v
		}
	case "progress":
		percent := -1.0
		if durationSec > 0 {
			percent = float64(ps.OutTimeUs) / (durationSec * 1e6) * 100
			if percent > 100 || val == "end" {
				percent = 100
			}
		}
		u := progress.Update{
			JobID:   jobID,
			Stage:   progress.StageRunning,
			Percent: percent,
			Message: "interpolating",
		}
		if ps.Speed != "" {
			s := ps.Speed
			u.Speed = &s
		}
		if ps.TotalSize > 0 {
			b := ps.TotalSize
			u.Bytes = &b
		}
		return u, true
	}
	return progress.Update{}, false
}
