package streams

import (
	"reflect"
	"testing"

	"parmint/internal/model"
)

func st(idx int, t model.CodecType) model.StreamInfo {
	return model.StreamInfo{Index: idx, CodecType: t}
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name    string
		streams []model.StreamInfo
		mode    model.MapMode
		want    model.StreamSelection
	}{
		{
			name:    "first of each type ignores later audio",
			streams: []model.StreamInfo{st(0, model.CodecVideo), st(1, model.CodecAudio), st(2, model.CodecAudio), st(3, model.CodecSubtitle)},
			mode:    model.MapFirstOfEachType,
			want:    model.StreamSelection{Video: []int{0}, Audio: []int{1}, Subtitle: []int{3}},
		},
		{
			name:    "container order decides, not type order",
			streams: []model.StreamInfo{st(0, model.CodecAudio), st(1, model.CodecSubtitle), st(2, model.CodecVideo), st(3, model.CodecVideo)},
			mode:    model.MapFirstOfEachType,
			want:    model.StreamSelection{Video: []int{2}, Audio: []int{0}, Subtitle: []int{1}},
		},
		{
			name:    "all audio and video drops subtitles",
			streams: []model.StreamInfo{st(0, model.CodecVideo), st(1, model.CodecAudio), st(2, model.CodecAudio), st(3, model.CodecSubtitle), st(4, model.CodecOther)},
			mode:    model.MapAllAudioVideo,
			want:    model.StreamSelection{Video: []int{0}, Audio: []int{1, 2}},
		},
		{
			name: "cover art is not a video stream",
			streams: []model.StreamInfo{
				{Index: 0, CodecType: model.CodecVideo, AttachedPic: true},
				st(1, model.CodecVideo),
				st(2, model.CodecAudio),
			},
			mode: model.MapFirstOfEachType,
			want: model.StreamSelection{Video: []int{1}, Audio: []int{2}},
		},
		{
			name:    "audio only input yields no video",
			streams: []model.StreamInfo{st(0, model.CodecAudio)},
			mode:    model.MapFirstOfEachType,
			want:    model.StreamSelection{Audio: []int{0}},
		},
		{
			name: "empty input",
			mode: model.MapAllAudioVideo,
			want: model.StreamSelection{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Select(tt.streams, tt.mode)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Select() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSelect_EmptyIsEmpty(t *testing.T) {
	sel := Select(nil, model.MapFirstOfEachType)
	if !sel.Empty() || sel.HasVideo() {
		t.Errorf("Select(nil) = %+v, want empty", sel)
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]model.MapMode{
		"":       model.MapFirstOfEachType,
		"first":  model.MapFirstOfEachType,
		"ALL-AV": model.MapAllAudioVideo,
	} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseMode("everything"); err == nil {
		t.Error("ParseMode(everything) should fail")
	}
}

func TestDescribe(t *testing.T) {
	got := Describe(model.StreamSelection{Video: []int{0}, Audio: []int{1, 2}, Subtitle: []int{4}})
	if got != "v:0 a:1 a:2 s:4" {
		t.Errorf("Describe() = %q", got)
	}
	if Describe(model.StreamSelection{}) != "(none)" {
		t.Error("empty selection should describe as (none)")
	}
}
