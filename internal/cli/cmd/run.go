package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"parmint/internal/config"
	"parmint/internal/dirs"
	"parmint/internal/encoder"
	"parmint/internal/jobgraph"
	"parmint/internal/launch"
	"parmint/internal/logging"
	"parmint/internal/model"
	"parmint/internal/pipeline"
	"parmint/internal/probe"
	"parmint/internal/progress"
	"parmint/internal/segment"
	"parmint/internal/supervise"
	"parmint/internal/ui"
	"parmint/internal/util"
	"parmint/internal/util/deps"
	"parmint/internal/util/format"
)

type runMode int

const (
	modeLaunch runMode = iota // write the script and start it detached
	modeWait                  // supervise in-process with a progress bar
	modeWatch                 // supervise in-process with the TUI
	modePlan                  // print the plan and script only
)

func (m runMode) supervised() bool { return m == modeWait || m == modeWatch }

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "run <input>",
		Short:         "Write the script and start it detached (or supervise with --wait)",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, args, modeLaunch)
		},
	}
	bindRunFlags(cmd.Flags())
	bindSuperviseFlags(cmd.Flags())
	cmd.Flags().Bool("wait", false, "Run the jobs in-process and wait for them instead of launching a script")
	return cmd
}

func execute(cmd *cobra.Command, args []string, mode runMode) error {
	v := viper.New()
	if err := config.Init(v, cmd); err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	if mode == modeLaunch && v.GetBool("wait") {
		mode = modeWait
	}
	opts, err := config.Options(v, args[0])
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}

	log, closeLog, err := newLogger(v, mode)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	defer closeLog()

	ffprobePath, err := deps.FindFFprobe(opts.FFprobePath)
	if err != nil {
		return &ExitError{Code: ExitMissingDep, Err: err}
	}
	if mode != modePlan {
		if err := checkEncoder(opts.Encoder); err != nil {
			return &ExitError{Code: ExitMissingDep, Err: err}
		}
		if err := confirmConcurrency(opts, mode); err != nil {
			return &ExitError{Code: ExitCLIError, Err: err}
		}
	}

	svc := pipeline.NewService(
		pipeline.WithFFprobePath(ffprobePath),
		pipeline.WithOptions(opts),
		pipeline.WithLogger(log),
		pipeline.WithRunner(util.NewDefaultRunner(log)),
	)
	ctx := cmd.Context()
	p, err := svc.Plan(ctx)
	if err != nil {
		return exitFor(err)
	}

	out := cmd.OutOrStdout()
	switch mode {
	case modePlan:
		printPlan(cmd.ErrOrStderr(), p)
		fmt.Fprint(out, p.Script)
		return nil

	case modeLaunch:
		res, err := svc.Launch(ctx, p)
		if err != nil {
			return exitFor(err)
		}
		fmt.Fprintf(out, "Launched %s (pid %d) in %s\n", filepath.Base(res.Artifacts.ScriptPath), res.PID, res.Artifacts.Dir)
		fmt.Fprintf(out, "Output will be written to %s\n", p.OutputPath())
		return nil

	case modeWait:
		bar := progress.NewBar(os.Stderr, len(p.Graph.Jobs), "jobs")
		rep, err := svc.Supervise(ctx, p, superviseOptions(opts, bar))
		_ = bar.Finish()
		done, failed := bar.Done()
		fmt.Fprintf(os.Stderr, "\n%d of %d jobs finished, %d failed\n", done, len(p.Graph.Jobs), failed)
		return finishSupervised(out, rep, err)

	case modeWatch:
		if !isTerminal() {
			return &ExitError{Code: ExitCLIError, Err: errors.New("watch needs a terminal; use 'run --wait' instead")}
		}
		rep, err := ui.Run(ctx, filepath.Base(opts.InputPath), p.Graph,
			func(ctx context.Context, rp progress.Reporter) (supervise.Report, error) {
				return svc.Supervise(ctx, p, superviseOptions(opts, rp))
			})
		return finishSupervised(out, rep, err)
	}
	return nil
}

func superviseOptions(opts model.Options, rp progress.Reporter) supervise.Options {
	return supervise.Options{
		Parallel: opts.Jobs,
		FailFast: opts.FailFast,
		Progress: true,
		Reporter: rp,
	}
}

func finishSupervised(out io.Writer, rep supervise.Report, err error) error {
	if err != nil {
		for _, r := range rep.Results {
			if r.Err != nil && r.StderrTail != "" {
				fmt.Fprintf(os.Stderr, "%s:\n%s\n", r.JobID, r.StderrTail)
			}
		}
		return exitFor(err)
	}
	if fi, err := os.Stat(rep.Output); err == nil {
		fmt.Fprintf(out, "Saved: %s (%s, %s)\n", rep.Output, format.HumanizeBytes(fi.Size()), rep.Elapsed.Round(time.Second))
		return nil
	}
	fmt.Fprintf(out, "Saved: %s (%s)\n", rep.Output, rep.Elapsed.Round(time.Second))
	return nil
}

// newLogger writes to stderr, except under the TUI where console lines would
// tear the screen. Supervised runs also append JSON to the run log.
func newLogger(v *viper.Viper, mode runMode) (zerolog.Logger, func() error, error) {
	lo := logging.Options{
		Format:  v.GetString(config.KeyLogFormat),
		Verbose: v.GetBool(config.KeyVerbose),
	}
	if mode == modeWatch {
		lo.Out = io.Discard
	}
	if mode.supervised() {
		if p, err := dirs.RunLogPath(); err == nil {
			lo.FilePath = p
		}
	}
	return logging.New(lo)
}

func checkEncoder(cmdline string) error {
	tpl, err := encoder.ParseTemplate(cmdline)
	if err != nil {
		return err
	}
	if _, err := exec.LookPath(tpl.Program); err != nil {
		return fmt.Errorf("could not find encoder %q: %v. Please install ffmpeg or set --encoder.", tpl.Program, err)
	}
	return nil
}

// exitFor maps pipeline errors to exit codes.
func exitFor(err error) error {
	code := ExitCLIError
	switch {
	case errors.Is(err, pipeline.ErrInvalidOptions):
		code = ExitCLIError
	case errors.Is(err, probe.ErrProbeFailure):
		code = ExitProbeError
	case errors.Is(err, segment.ErrInvalidSplitCount),
		errors.Is(err, segment.ErrInvalidDuration),
		errors.Is(err, segment.ErrInvalidFPS),
		errors.Is(err, jobgraph.ErrPlanning),
		errors.Is(err, jobgraph.ErrInvalidGraph):
		code = ExitPlanError
	case errors.Is(err, launch.ErrLaunch):
		code = ExitLaunchError
	case errors.Is(err, supervise.ErrJobsFailed):
		code = ExitJobsFailed
	}
	return &ExitError{Code: code, Err: err}
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func effectiveConcurrency(opts model.Options, mode runMode) int {
	if mode.supervised() && opts.Jobs > 0 && opts.Jobs < opts.Split {
		return opts.Jobs
	}
	return opts.Split
}

func oversubscribed(n int) bool {
	return n > 2*runtime.NumCPU()
}
