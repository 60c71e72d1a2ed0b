// Package probe asks ffprobe for container and stream metadata.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"parmint/internal/model"
	"parmint/internal/util"
)

// ErrProbeFailure is wrapped by every error Probe and ParseJSON return.
var ErrProbeFailure = errors.New("probe failed")

// Probe runs a single ffprobe JSON query against input and returns the
// parsed descriptor.
func Probe(ctx context.Context, runner util.CmdRunner, ffprobePath, input string) (model.MediaDescriptor, error) {
	if ffprobePath == "" {
		return model.MediaDescriptor{}, fmt.Errorf("%w: ffprobe path is required", ErrProbeFailure)
	}
	if err := util.IsReadableFile(input); err != nil {
		return model.MediaDescriptor{}, fmt.Errorf("%w: input %q: %v", ErrProbeFailure, input, err)
	}

	res, err := runner.Run(ctx, util.CmdSpec{
		Path: ffprobePath,
		Args: []string{
			"-v", "quiet",
			"-print_format", "json",
			"-show_format", "-show_streams",
			input,
		},
	})
	if err != nil {
		msg := strings.TrimSpace(string(res.Stderr))
		if msg != "" {
			return model.MediaDescriptor{}, fmt.Errorf("%w: ffprobe %q: %v: %s", ErrProbeFailure, input, err, msg)
		}
		return model.MediaDescriptor{}, fmt.Errorf("%w: ffprobe %q: %v", ErrProbeFailure, input, err)
	}

	md, err := ParseJSON(res.Stdout)
	if err != nil {
		return model.MediaDescriptor{}, err
	}
	md.Path = input
	return md, nil
}

// ParseJSON converts raw ffprobe JSON output into a MediaDescriptor.
// Exported for testing without a real ffprobe binary.
func ParseJSON(data []byte) (model.MediaDescriptor, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return model.MediaDescriptor{}, fmt.Errorf("%w: parse ffprobe JSON: %v", ErrProbeFailure, err)
	}
	if raw.Format == nil {
		return model.MediaDescriptor{}, fmt.Errorf("%w: ffprobe output has no format section", ErrProbeFailure)
	}
	if raw.Streams == nil {
		return model.MediaDescriptor{}, fmt.Errorf("%w: ffprobe output has no stream list", ErrProbeFailure)
	}

	md := model.MediaDescriptor{
		FormatName: raw.Format.FormatName,
		Streams:    make([]model.StreamInfo, 0, len(*raw.Streams)),
	}
	for _, s := range *raw.Streams {
		md.Streams = append(md.Streams, model.StreamInfo{
			Index:       s.Index,
			CodecType:   model.ParseCodecType(s.CodecType),
			CodecName:   s.CodecName,
			Language:    s.Tags["language"],
			AttachedPic: s.Disposition["attached_pic"] == 1,
		})
	}

	dur, ok := parseDuration(raw.Format.Duration)
	if !ok {
		// Some containers (raw streams, a few AVIs) report no format duration;
		// fall back to frames / fps from the first video stream.
		dur, ok = durationFromFrames(*raw.Streams)
	}
	if !ok {
		return model.MediaDescriptor{}, fmt.Errorf("%w: missing or invalid format.duration %q", ErrProbeFailure, raw.Format.Duration)
	}
	md.DurationSec = dur
	return md, nil
}

// --- ffprobe JSON wire types ---

// Pointers distinguish an absent section from an empty one.
type ffprobeOutput struct {
	Format  *ffprobeFormat   `json:"format"`
	Streams *[]ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
}

type ffprobeStream struct {
	Index        int               `json:"index"`
	CodecName    string            `json:"codec_name"`
	CodecType    string            `json:"codec_type"`
	NbFrames     string            `json:"nb_frames"`
	AvgFrameRate string            `json:"avg_frame_rate"`
	Disposition  map[string]int    `json:"disposition"`
	Tags         map[string]string `json:"tags"`
}

func parseDuration(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "N/A" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func durationFromFrames(streams []ffprobeStream) (float64, bool) {
	for _, s := range streams {
		if s.CodecType != string(model.CodecVideo) || s.Disposition["attached_pic"] == 1 {
			continue
		}
		frames, err := strconv.ParseFloat(strings.TrimSpace(s.NbFrames), 64)
		if err != nil || frames <= 0 {
			return 0, false
		}
		fps := parseFrameRate(s.AvgFrameRate)
		if fps <= 0 {
			return 0, false
		}
		return math.RoundToEven(frames / fps), true
	}
	return 0, false
}

func parseFrameRate(s string) float64 {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f
	}
	num, _ := strconv.ParseFloat(parts[0], 64)
	den, _ := strconv.ParseFloat(parts[1], 64)
	if den == 0 {
		return 0
	}
	return num / den
}
