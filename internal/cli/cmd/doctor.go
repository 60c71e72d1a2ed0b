package cmd

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"parmint/internal/config"
	"parmint/internal/dirs"
	"parmint/internal/script"
	"parmint/internal/util"
	"parmint/internal/util/deps"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "doctor",
		Short:         "Diagnose external dependencies (ffmpeg, ffprobe, bash)",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			v := viper.New()
			if err := config.Init(v, cmd); err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			fp, perr := deps.FindFFprobe(v.GetString(config.KeyFFprobe))
			if perr != nil {
				return &ExitError{Code: ExitMissingDep, Err: perr}
			}
			ff, ferr := deps.FindFFmpeg("")
			if ferr != nil {
				return &ExitError{Code: ExitMissingDep, Err: ferr}
			}
			fmt.Fprintf(out, "FFmpeg:   %s\n", ff)
			fmt.Fprintf(out, "FFprobe:  %s\n", fp)
			if bash, err := deps.FindBash(); err == nil {
				fmt.Fprintf(out, "Bash:     %s\n", bash)
			} else {
				fmt.Fprintln(out, "Bash:     not found")
			}
			d := script.Detect(cmd.Context(), util.NewDefaultRunner(zerolog.Nop()))
			fmt.Fprintf(out, "Dialect:  %s\n", d)
			if p, err := dirs.ConfigDir(); err == nil {
				fmt.Fprintf(out, "Config:   %s\n", p)
			}
			if p, err := dirs.RunLogPath(); err == nil {
				fmt.Fprintf(out, "Run log:  %s\n", p)
			}
			return nil
		},
	}
}
