package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/five82/washbook/internal/config"
	"github.com/five82/washbook/internal/logtail"
)

func logsCmd(flags *globalFlags) *cobra.Command {
	var (
		lines  int
		level  string
		follow bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the end of the washbook log file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var threshold slog.Level
			if err := threshold.UnmarshalText([]byte(level)); err != nil {
				return fmt.Errorf("invalid --level %q", level)
			}
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			path := cfg.LogPath()
			out := cmd.OutOrStdout()
			emit := func(line string) {
				if logtail.AtLeast(line, threshold) {
					fprintln(out, line)
				}
			}

			if follow {
				return logtail.Follow(cmd.Context(), path, lines, emit)
			}
			tail, err := logtail.Read(path, lines)
			if err != nil {
				return err
			}
			if len(tail) == 0 {
				fprintf(cmd.ErrOrStderr(), "no log lines in %s\n", path)
			}
			for _, l := range tail {
				emit(l)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVarP(&lines, "lines", "n", 50, "number of lines to show")
	f.StringVar(&level, "level", "debug", "minimum level: debug, info, warn, error")
	f.BoolVarP(&follow, "follow", "f", false, "keep printing appended lines")
	return cmd
}
