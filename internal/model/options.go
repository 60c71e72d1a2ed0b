package model

// Options holds user-configurable runtime options as resolved from flags,
// environment and config file.
type Options struct {
	InputPath string
	OutDir    string
	Split     int // Number of segments; also the number of concurrent encoders.
	FPS       int // Target frame rate.
	CRF       int
	AutoName  bool // Name the final file <stem>.<fps>fps<ext> instead of final.mkv.
	Shutdown  bool // Power off after the batch script completes.
	MapMode   MapMode

	Encoder     string // Encoder command line, e.g. "ffmpeg -hide_banner".
	FFprobePath string
	Dialect     string // auto | posix | batch

	// Supervised runs only.
	Jobs     int // Concurrent interpolate jobs; 0 runs every segment at once.
	FailFast bool

	Yes     bool // Skip confirmation prompts.
	Verbose bool
}
