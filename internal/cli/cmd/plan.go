package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"parmint/internal/pipeline"
	"parmint/internal/streams"
	"parmint/internal/ui"
	"parmint/internal/util/format"
)

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "plan <input>",
		Short:         "Probe the input and print the script without writing or running anything",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, args, modePlan)
		},
	}
	// Same flags as run; plan only stops before writing.
	bindRunFlags(cmd.Flags())
	return cmd
}

// printPlan writes a short summary to w; the script itself goes to stdout
// so it can be redirected on its own.
func printPlan(w io.Writer, p *pipeline.Plan) {
	st := ui.DefaultStyles()
	segs := p.Segments
	fmt.Fprintln(w, st.Title.Render("parmint plan"))
	fmt.Fprintf(w, "%s %s (%s)\n", st.Header.Render("Input:   "), p.Media.Path, format.Seconds(p.Media.DurationSec))
	fmt.Fprintf(w, "%s %s\n", st.Header.Render("Streams: "), streams.Describe(p.Selection))
	fmt.Fprintf(w, "%s %d x %s at %d fps\n", st.Header.Render("Segments:"), segs.Count, format.Clock(segs.Duration), segs.FPS)
	if segs.Drift() != 0 {
		fmt.Fprintln(w, st.Faint.Render(fmt.Sprintf("          last segment runs %s", format.Clock(segs.LastDuration()))))
	}
	fmt.Fprintf(w, "%s %s\n", st.Header.Render("Script:  "), p.ScriptName)
	fmt.Fprintf(w, "%s %s\n", st.Header.Render("Output:  "), p.OutputPath())
	fmt.Fprintln(w)
}
