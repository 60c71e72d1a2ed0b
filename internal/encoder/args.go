package encoder

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"parmint/internal/model"
	"parmint/internal/segment"
	"parmint/internal/util/format"
)

// Filter holds the minterpolate settings applied to every segment.
type Filter struct {
	FPS    int
	MIMode string // motion interpolation: mci, blend, dup
	MCMode string // motion compensation: obmc, aobmc
	MEMode string // motion estimation: bidir, bilat
	VSBMC  bool   // variable-size block motion compensation
	CRF    int
}

// DefaultFilter returns the motion-compensated settings used for every run.
func DefaultFilter(fps int) Filter {
	return Filter{
		FPS:    fps,
		MIMode: "mci",
		MCMode: "aobmc",
		MEMode: "bidir",
		VSBMC:  true,
		CRF:    10,
	}
}

// String renders the -vf value.
func (f Filter) String() string {
	vsbmc := 0
	if f.VSBMC {
		vsbmc = 1
	}
	return fmt.Sprintf("minterpolate=fps=%d:mi_mode=%s:mc_mode=%s:me_mode=%s:vsbmc=%d",
		f.FPS, valueOr(f.MIMode, "mci"), valueOr(f.MCMode, "aobmc"), valueOr(f.MEMode, "bidir"), vsbmc)
}

// BuildSplitArgs cuts the input into plan.Count stream-copied segments named
// by segment.SourcePattern. Only the selected video and audio streams are
// copied; subtitles cannot survive the filter and are re-attached at concat.
func BuildSplitArgs(inputPath string, sel model.StreamSelection, plan segment.Plan) []string {
	args := []string{"-y", "-i", inputPath}
	for _, idx := range sel.AVIndices() {
		args = append(args, "-map", "0:"+strconv.Itoa(idx))
	}
	args = append(args, "-c", "copy", "-f", "segment")

	if cuts := plan.CutPoints(); len(cuts) > 0 {
		args = append(args, "-segment_times", joinSeconds(cuts))
	} else {
		// One segment: an interval past the end keeps the muxer from cutting.
		whole := time.Duration(math.Ceil(plan.TotalSec)+1) * time.Second
		args = append(args, "-segment_time", format.Clock(whole))
	}
	return append(args, "-reset_timestamps", "1", segment.SourcePattern)
}

// BuildInterpolateArgs transcodes one split segment through the filter.
func BuildInterpolateArgs(src, dst string, f Filter) []string {
	return []string{
		"-y",
		"-i", src,
		"-map", "0",
		"-c:a", "copy",
		"-crf", strconv.Itoa(f.CRF),
		"-vf", f.String(),
		dst,
	}
}

// WithProgress returns a copy of args with machine-readable progress on
// stdout, inserted before the output file which ffmpeg expects last.
func WithProgress(args []string) []string {
	if len(args) == 0 {
		return args
	}
	out := make([]string, 0, len(args)+3)
	out = append(out, args[:len(args)-1]...)
	out = append(out, "-progress", "pipe:1", "-nostats")
	return append(out, args[len(args)-1])
}

// BuildConcatArgs joins the manifest entries by stream copy. Selected
// subtitle streams are mapped from the original input as a second input.
func BuildConcatArgs(manifestPath, inputPath string, subtitles []int, outputPath string) []string {
	args := []string{"-y", "-f", "concat", "-safe", "0", "-i", manifestPath}
	if len(subtitles) > 0 {
		args = append(args, "-i", inputPath)
	}
	args = append(args, "-map", "0")
	for _, idx := range subtitles {
		args = append(args, "-map", "1:"+strconv.Itoa(idx))
	}
	return append(args, "-c", "copy", outputPath)
}

func joinSeconds(ds []time.Duration) string {
	parts := make([]string, len(ds))
	for i, d := range ds {
		parts[i] = strconv.FormatInt(int64(d/time.Second), 10)
	}
	return strings.Join(parts, ",")
}

func valueOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
