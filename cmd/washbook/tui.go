package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/washbook/internal/app"
)

func tuiCmd(flags *globalFlags) *cobra.Command {
	var poll time.Duration

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Browse stations in the terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := flags.options()
			opts.PollEvery = poll
			return app.Run(cmd.Context(), opts)
		},
	}

	cmd.Flags().DurationVar(&poll, "poll", 0, "station refresh interval (default 30s)")
	return cmd
}

func versionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			if short {
				fprintln(out, version)
				return
			}
			fprintf(out, "washbook %s\n", version)
			fprintf(out, "  Commit: %s\n", commit)
			fprintf(out, "  Built:  %s\n", date)
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only version number")
	return cmd
}
