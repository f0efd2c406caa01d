// Package cli implements the dashexport command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/dashexport/internal/config"
	"github.com/randalmurphal/dashexport/internal/export"
	"github.com/randalmurphal/dashexport/internal/restart"
)

// app holds the state shared by all commands of one invocation.
type app struct {
	cfgFile   string
	verbosity int
}

// load sets up logging for the requested verbosity and reads the configuration.
func (a *app) load(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	logger := newLogger(cmd.ErrOrStderr(), a.verbosity)
	slog.SetDefault(logger)

	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// newLogger maps the -v count to a text handler level. Zero discards.
func newLogger(w io.Writer, verbosity int) *slog.Logger {
	var level slog.Level
	switch {
	case verbosity <= 0:
		return slog.New(slog.DiscardHandler)
	case verbosity == 1:
		level = slog.LevelWarn
	case verbosity == 2:
		level = slog.LevelInfo
	default:
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// newRootCmd builds the command tree. The root command runs the export.
func newRootCmd() *cobra.Command {
	a := &app{}
	var (
		opts          export.Options
		restartApache bool
	)

	rootCmd := &cobra.Command{
		Use:   "dashexport",
		Short: "Export customized dashboards as built-in dashboard plugins",
		Long: `dashexport reads the dashboards a user customized in the web GUI and writes
each one as a built-in dashboard plugin into the site's local plugin directory.

Dashboards that share a name with a shipped dashboard are skipped unless
--include_builtin is given. A single dashboard (-d) is exported only together
with --include_builtin; otherwise all dashboards are exported.

Examples:
  dashexport -u alice                     Export all of alice's dashboards
  dashexport -u alice -i -d main          Export alice's copy of "main"
  dashexport -u alice -l -a               Legacy directory, then restart apache
  dashexport -u alice --match 'ops_*' -n  Show what would be written`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := a.load(cmd)
			if err != nil {
				return err
			}

			e, err := export.New(cfg, opts, export.WithLogger(logger))
			if err != nil {
				return err
			}
			res, err := e.Run(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, w := range res.Written {
				fmt.Fprintln(out, w.Path)
			}
			if len(res.Written) == 0 {
				logger.Warn("no dashboards selected", "skipped", len(res.Skipped))
			}

			if restartApache {
				if opts.DryRun {
					logger.Info("dry run, not restarting")
					return nil
				}
				restart.New(cfg.RestartCommand,
					restart.WithTimeout(cfg.RestartTimeout),
					restart.WithLogger(logger),
				).Run(cmd.Context())
			}
			return nil
		},
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&opts.User, "user", "u", "", "user whose dashboards are exported (required)")
	flags.StringVarP(&opts.Dashboard, "dashboard", "d", "", "export only this dashboard (requires --include_builtin)")
	flags.BoolVarP(&opts.Legacy, "legacy", "l", false, "write into the legacy dashboard plugin directory")
	flags.BoolVarP(&opts.IncludeBuiltin, "include_builtin", "i", false, "also export dashboards named like shipped ones")
	flags.BoolVarP(&restartApache, "restart_apache", "a", false, "restart the site's apache after exporting")
	flags.StringVar(&opts.Match, "match", "", "only export dashboards whose name matches this glob")
	flags.BoolVarP(&opts.DryRun, "dry-run", "n", false, "show what would be written without writing")

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is $OMD_ROOT/etc/dashexport/dashexport.yaml)")
	rootCmd.PersistentFlags().CountVarP(&a.verbosity, "verbose", "v", "increase log output (-v warnings, -vv info, -vvv debug)")

	rootCmd.AddCommand(newListCmd(a))
	rootCmd.AddCommand(newShowCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// Execute runs the command line and reports any error on stderr.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		verbose, _ := rootCmd.PersistentFlags().GetCount("verbose")
		PrintError(rootCmd.ErrOrStderr(), err, verbose > 0)
	}
	return err
}
