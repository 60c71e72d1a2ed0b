package model

// CodecType classifies a container stream.
type CodecType string

const (
	CodecVideo    CodecType = "video"
	CodecAudio    CodecType = "audio"
	CodecSubtitle CodecType = "subtitle"
	CodecOther    CodecType = "other"
)

// ParseCodecType maps an ffprobe codec_type to a CodecType. Data, attachment
// and unknown types collapse to CodecOther.
func ParseCodecType(s string) CodecType {
	switch CodecType(s) {
	case CodecVideo, CodecAudio, CodecSubtitle:
		return CodecType(s)
	default:
		return CodecOther
	}
}

// StreamInfo is one stream of the probed container, in container order.
type StreamInfo struct {
	Index     int
	CodecType CodecType
	CodecName string
	Language  string
	// AttachedPic marks cover-art "video" streams, which carry no motion.
	AttachedPic bool
}

// MediaDescriptor is the probed shape of the input. It is not mutated after probing.
type MediaDescriptor struct {
	Path        string
	DurationSec float64
	FormatName  string
	Streams     []StreamInfo
}

// CountOf returns how many streams of type t the descriptor holds.
func (d MediaDescriptor) CountOf(t CodecType) int {
	n := 0
	for _, s := range d.Streams {
		if s.CodecType == t {
			n++
		}
	}
	return n
}

// MapMode selects which streams survive the pipeline.
type MapMode string

const (
	// MapFirstOfEachType keeps the first video, first audio and first subtitle stream.
	MapFirstOfEachType MapMode = "first"
	// MapAllAudioVideo keeps every video and audio stream and drops subtitles.
	MapAllAudioVideo MapMode = "all-av"
)

// StreamSelection holds absolute input stream indices per type, in container order.
type StreamSelection struct {
	Video    []int
	Audio    []int
	Subtitle []int
}

// HasVideo reports whether at least one video stream is selected.
func (s StreamSelection) HasVideo() bool { return len(s.Video) > 0 }

// Empty reports whether nothing at all is selected.
func (s StreamSelection) Empty() bool {
	return len(s.Video) == 0 && len(s.Audio) == 0 && len(s.Subtitle) == 0
}

// AVIndices returns the selected video indices followed by the audio indices.
// This is the order streams appear in split segments.
func (s StreamSelection) AVIndices() []int {
	out := make([]int, 0, len(s.Video)+len(s.Audio))
	out = append(out, s.Video...)
	return append(out, s.Audio...)
}
