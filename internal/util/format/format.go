// Package format renders sizes and durations for logs, plans and ffmpeg arguments.
package format

import (
	"strconv"
	"time"
)

var byteUnits = []string{"KB", "MB", "GB", "TB", "PB"}

// HumanizeBytes converts a byte count into a human-readable string (e.g., "1.5 MB").
func HumanizeBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit && exp < len(byteUnits)-1; n /= unit {
		div *= unit
		exp++
	}
	var buf [24]byte
	s := strconv.AppendFloat(buf[:0], float64(b)/float64(div), 'f', 1, 64)
	return string(s) + " " + byteUnits[exp]
}

// Clock renders d as HH:MM:SS, truncating sub-second precision. Negative
// durations render as 00:00:00. Hours are not wrapped at 24.
func Clock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return pad2(h) + ":" + pad2(m) + ":" + pad2(s)
}

// Seconds renders a float second count as a short string like "1m30.5s".
func Seconds(sec float64) string {
	if sec <= 0 {
		return "0s"
	}
	return time.Duration(sec * float64(time.Second)).Round(100 * time.Millisecond).String()
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
