package cmd

import (
	"context"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	ExitOK          = 0
	ExitCLIError    = 1
	ExitMissingDep  = 2
	ExitProbeError  = 3
	ExitPlanError   = 4
	ExitLaunchError = 5
	ExitJobsFailed  = 6
)

// ExitError wraps an error with a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "parmint <input>",
		Short: "Run ffmpeg's minterpolate on every core at once",
		Long: "parmint splits a video into segments, interpolates every segment to a higher frame rate in parallel " +
			"with ffmpeg's minterpolate filter, and joins the results. By default it writes a shell script " +
			"into the output directory and starts it detached; 'run --wait' and 'watch' run the jobs in-process " +
			"and report every failure.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, args, modeLaunch)
		},
	}

	// Persistent flags available to all subcommands
	root.PersistentFlags().StringP("out-dir", "o", "output", "Output directory for segments, scripts and the final file")
	root.PersistentFlags().BoolP("verbose", "v", false, "Log every subprocess command")
	root.PersistentFlags().String("log-format", "console", "Log format: console, json")
	root.PersistentFlags().String("ffprobe", "", "Path to ffprobe (default: PATH lookup)")

	// Also bind run flags on root, so `parmint <input>` works without a subcommand.
	bindRunFlags(root.Flags())
	bindSuperviseFlags(root.Flags())
	root.Flags().Bool("wait", false, "Run the jobs in-process and wait for them instead of launching a script")

	root.AddCommand(newRunCmd())
	root.AddCommand(newPlanCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newCompletionCmd())

	return root
}

func bindRunFlags(fs *pflag.FlagSet) {
	fs.Int("split", runtime.NumCPU(), "Number of segments, and of encoders running at once")
	fs.Int("fps", 60, "Target frame rate")
	fs.Int("crf", 10, "CRF for the interpolated segments (0-63, 0 is lossless)")
	fs.Bool("auto-name", false, "Name the output <input-stem>.<fps>fps<ext> instead of final.mkv")
	fs.Bool("shutdown", false, "Power off when the script finishes (batch scripts only)")
	fs.String("encoder", "ffmpeg", "Encoder command line, e.g. \"ffmpeg -hide_banner -loglevel warning\"")
	fs.String("map", "first", "Streams to keep: first (first video, audio and subtitle), all-av (every video and audio)")
	fs.String("dialect", "auto", "Script dialect: auto, posix, batch")
	fs.BoolP("yes", "y", false, "Do not ask before oversubscribing the CPU")
}

func bindSuperviseFlags(fs *pflag.FlagSet) {
	fs.Int("jobs", 0, "Max concurrent interpolate jobs in supervised runs (0 = one per segment)")
	fs.Bool("fail-fast", false, "Cancel the remaining segments after the first failure")
}

// Execute runs the CLI with the provided context.
func Execute(ctx context.Context) error {
	root := newRootCmd()
	return root.ExecuteContext(ctx)
}
