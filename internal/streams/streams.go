// Package streams decides which input streams are carried through split,
// interpolate and concat.
package streams

import (
	"fmt"
	"strings"

	"parmint/internal/model"
)

// ParseMode maps a flag value to a MapMode. The empty string selects the default.
func ParseMode(s string) (model.MapMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(model.MapFirstOfEachType):
		return model.MapFirstOfEachType, nil
	case string(model.MapAllAudioVideo):
		return model.MapAllAudioVideo, nil
	default:
		return "", fmt.Errorf("invalid --map: %q (valid: first|all-av)", s)
	}
}

// Select scans streams in container order. Cover-art video streams are never
// selected since there is no motion to interpolate.
func Select(streams []model.StreamInfo, mode model.MapMode) model.StreamSelection {
	var sel model.StreamSelection
	if mode == model.MapAllAudioVideo {
		for _, s := range streams {
			switch {
			case s.CodecType == model.CodecVideo && !s.AttachedPic:
				sel.Video = append(sel.Video, s.Index)
			case s.CodecType == model.CodecAudio:
				sel.Audio = append(sel.Audio, s.Index)
			}
		}
		return sel
	}

	for _, s := range streams {
		switch s.CodecType {
		case model.CodecVideo:
			if len(sel.Video) == 0 && !s.AttachedPic {
				sel.Video = []int{s.Index}
			}
		case model.CodecAudio:
			if len(sel.Audio) == 0 {
				sel.Audio = []int{s.Index}
			}
		case model.CodecSubtitle:
			if len(sel.Subtitle) == 0 {
				sel.Subtitle = []int{s.Index}
			}
		}
	}
	return sel
}

// Describe renders a selection for plan output, e.g. "v:0 a:1 s:3".
func Describe(sel model.StreamSelection) string {
	var parts []string
	for _, i := range sel.Video {
		parts = append(parts, fmt.Sprintf("v:%d", i))
	}
	for _, i := range sel.Audio {
		parts = append(parts, fmt.Sprintf("a:%d", i))
	}
	for _, i := range sel.Subtitle {
		parts = append(parts, fmt.Sprintf("s:%d", i))
	}
	if len(parts) == 0 {
		return "(none)"
	}
	return strings.Join(parts, " ")
}
