package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/five82/washbook/internal/app"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	prefsPath  string
	logLevel   string
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "washbook: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	tui := tuiCmd(flags)
	rootCmd := &cobra.Command{
		Use:   "washbook",
		Short: "Find and book car wash stations from the terminal",
		Long: `washbook is a terminal client for a car wash booking marketplace.

Without a subcommand it opens the station browser. The subcommands below
script the same flows: searching, booking, reviews and account handling.`,
		Args:          cobra.NoArgs,
		RunE:          tui.RunE,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.Flags().AddFlagSet(tui.Flags())

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file path (default ~/.config/washbook/config.toml)")
	pf.StringVar(&flags.prefsPath, "prefs", "", "preferences file path (default ~/.config/washbook/prefs.toml)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(
		tui,
		carwashesCmd(flags),
		searchCmd(flags),
		showCmd(flags),
		loginCmd(flags),
		logoutCmd(flags),
		registerCmd(flags),
		resetPasswordCmd(flags),
		locationCmd(flags),
		bookCmd(flags),
		feedbackCmd(flags),
		couponsCmd(flags),
		profileCmd(flags),
		ownerCmd(flags),
		logsCmd(flags),
		versionCmd(),
	)
	return rootCmd
}

// options converts the persistent flags into app options.
func (g *globalFlags) options() app.Options {
	return app.Options{
		ConfigPath: g.configPath,
		PrefsPath:  g.prefsPath,
		LogLevel:   g.logLevel,
	}
}

// withEnv builds the application for a one-shot command. Logs go to stderr
// since no UI owns the terminal.
func withEnv(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, env *app.Env) error) error {
	opts := flags.options()
	opts.LogOutput = cmd.ErrOrStderr()

	ctx := cmd.Context()
	env, err := app.NewEnv(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()
	return fn(ctx, env)
}
