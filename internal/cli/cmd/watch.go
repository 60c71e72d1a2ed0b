package cmd

import (
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "watch <input>",
		Short:         "Run the jobs in-process with a live per-segment view",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, args, modeWatch)
		},
	}
	bindRunFlags(cmd.Flags())
	bindSuperviseFlags(cmd.Flags())
	return cmd
}
