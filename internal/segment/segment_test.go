package segment

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"
	"time"
)

func TestNew_Example(t *testing.T) {
	p, err := New(120, 4, 60, 64)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Count != 4 {
		t.Errorf("Count = %d", p.Count)
	}
	if p.Duration != 30*time.Second {
		t.Errorf("Duration = %v, want 30s", p.Duration)
	}
	want := []string{"output000.60fps.mkv", "output001.60fps.mkv", "output002.60fps.mkv", "output003.60fps.mkv"}
	if !reflect.DeepEqual(p.Filenames, want) {
		t.Errorf("Filenames = %v", p.Filenames)
	}
	wantManifest := "file 'output000.60fps.mkv'\nfile 'output001.60fps.mkv'\nfile 'output002.60fps.mkv'\nfile 'output003.60fps.mkv'\n"
	if got := p.Manifest().Render(); got != wantManifest {
		t.Errorf("manifest =\n%s\nwant\n%s", got, wantManifest)
	}
	wantCuts := []time.Duration{30 * time.Second, 60 * time.Second, 90 * time.Second}
	if !reflect.DeepEqual(p.CutPoints(), wantCuts) {
		t.Errorf("CutPoints = %v", p.CutPoints())
	}
	if p.Drift() != 0 {
		t.Errorf("Drift = %v, want 0", p.Drift())
	}
}

func TestNew_Properties(t *testing.T) {
	durations := []float64{3600.7, 2017.25, 7322.2, 86399.9}
	for _, d := range durations {
		for n := 1; n <= 64; n++ {
			p, err := New(d, n, 60, 64)
			if err != nil {
				t.Fatalf("New(%v, %d): %v", d, n, err)
			}
			if len(p.Filenames) != n {
				t.Fatalf("New(%v, %d): %d filenames", d, n, len(p.Filenames))
			}
			seen := map[string]bool{}
			for _, f := range p.Filenames {
				if seen[f] {
					t.Fatalf("New(%v, %d): duplicate filename %q", d, n, f)
				}
				seen[f] = true
			}
			if diff := math.Abs(p.Duration.Seconds() - d/float64(n)); diff > 0.5 {
				t.Errorf("New(%v, %d): segment %v is %.3fs from an equal share", d, n, p.Duration, diff)
			}
			if p.Duration%time.Second != 0 {
				t.Errorf("New(%v, %d): duration %v is not whole seconds", d, n, p.Duration)
			}
			if len(p.CutPoints()) != n-1 {
				t.Errorf("New(%v, %d): %d cut points", d, n, len(p.CutPoints()))
			}
			if p.LastDuration() <= 0 {
				t.Errorf("New(%v, %d): empty last segment", d, n)
			}
		}
	}
}

func TestNew_ManifestOrderMatchesFilenames(t *testing.T) {
	for n := 1; n <= 64; n++ {
		p, err := New(4000, n, 48, 64)
		if err != nil {
			t.Fatalf("New(%d): %v", n, err)
		}
		parsed, err := ParseManifest(p.Manifest().Render())
		if err != nil {
			t.Fatalf("ParseManifest: %v", err)
		}
		if !reflect.DeepEqual([]string(parsed), p.Filenames) {
			t.Fatalf("split %d: manifest order %v != filenames %v", n, parsed, p.Filenames)
		}
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
		split    int
		fps      int
		max      int
		want     error
	}{
		{"zero split", 120, 0, 60, 64, ErrInvalidSplitCount},
		{"negative split", 120, -2, 60, 64, ErrInvalidSplitCount},
		{"over limit", 10000, 65, 60, 64, ErrInvalidSplitCount},
		{"sub-second segments", 3, 8, 60, 64, ErrInvalidSplitCount},
		{"last segment would be empty", 9, 6, 60, 64, ErrInvalidSplitCount},
		{"zero duration", 0, 4, 60, 64, ErrInvalidDuration},
		{"NaN duration", math.NaN(), 4, 60, 64, ErrInvalidDuration},
		{"zero fps", 120, 4, 0, 64, ErrInvalidFPS},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.duration, tt.split, tt.fps, tt.max)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNew_RoundingDrift(t *testing.T) {
	// 125s over 4 rounds to 31s; the last segment takes the remaining 32s.
	p, err := New(125, 4, 60, 64)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Duration != 31*time.Second {
		t.Errorf("Duration = %v", p.Duration)
	}
	if p.LastDuration() != 32*time.Second {
		t.Errorf("LastDuration = %v", p.LastDuration())
	}
	if p.Drift() != time.Second {
		t.Errorf("Drift = %v", p.Drift())
	}
}

func TestNew_HalvesRoundToEven(t *testing.T) {
	tests := []struct {
		duration float64
		split    int
		want     time.Duration
		last     time.Duration
	}{
		{10, 4, 2 * time.Second, 4 * time.Second},
		{5, 2, 2 * time.Second, 3 * time.Second},
		{125, 50, 2 * time.Second, 27 * time.Second},
		{7, 2, 4 * time.Second, 3 * time.Second},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v over %d", tt.duration, tt.split), func(t *testing.T) {
			p, err := New(tt.duration, tt.split, 60, 64)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if p.Duration != tt.want {
				t.Errorf("Duration = %v, want %v", p.Duration, tt.want)
			}
			if p.LastDuration() != tt.last {
				t.Errorf("LastDuration = %v, want %v", p.LastDuration(), tt.last)
			}
			if len(p.Filenames) != tt.split {
				t.Errorf("%d filenames, want %d", len(p.Filenames), tt.split)
			}
		})
	}
}

func TestNew_SingleShortSegment(t *testing.T) {
	for _, d := range []float64{0.3, 0.49, 0.5} {
		p, err := New(d, 1, 60, 64)
		if err != nil {
			t.Fatalf("New(%v, 1): %v", d, err)
		}
		if len(p.Filenames) != 1 || len(p.CutPoints()) != 0 {
			t.Errorf("New(%v, 1): %d filenames, %d cuts", d, len(p.Filenames), len(p.CutPoints()))
		}
		if p.LastDuration() <= 0 {
			t.Errorf("New(%v, 1): empty segment", d)
		}
	}
}

func TestMaxSplit(t *testing.T) {
	for _, tt := range []struct{ cores, want int }{{1, 64}, {16, 64}, {32, 128}} {
		if got := MaxSplit(tt.cores); got != tt.want {
			t.Errorf("MaxSplit(%d) = %d, want %d", tt.cores, got, tt.want)
		}
	}
}

func TestNames(t *testing.T) {
	if SourceName(7) != "output007.mkv" {
		t.Errorf("SourceName(7) = %q", SourceName(7))
	}
	if got := InterpolatedName(1000, 120); got != "output1000.120fps.mkv" {
		t.Errorf("InterpolatedName = %q", got)
	}
}

func TestParseManifest(t *testing.T) {
	m := Manifest{"a.mkv", "it's.mkv"}
	got, err := ParseManifest("# generated\n" + m.Render())
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if !reflect.DeepEqual(got, m) {
		t.Errorf("got %v", got)
	}
	if _, err := ParseManifest("output000.mkv\n"); err == nil {
		t.Error("expected error for a line without the file directive")
	}
}

func ExampleManifest_Render() {
	fmt.Print(Manifest{"output000.60fps.mkv", "output001.60fps.mkv"}.Render())
	// Output:
	// file 'output000.60fps.mkv'
	// file 'output001.60fps.mkv'
}
