// Package cli implements the jobsscanner command line.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"JobsScanner/internal/config"
	"JobsScanner/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
}

// NewRootCommand creates the root command with every subcommand attached.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "jobsscanner",
		Short: "Watch UN job listings and notify about new matching vacancies",
		Long: `jobsscanner crawls the configured organizations and duty stations,
keeps the jobs matching the keywords and sends one notification per new job.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to the YAML config (default $JOBS_SCANNER_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override the configured log level (debug|info|warn|error)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewOnceCommand(opts))
	cmd.AddCommand(NewCatalogCommand(opts))
	cmd.AddCommand(NewCountCommand(opts))

	return cmd
}

// load resolves the configuration and the logger shared by the commands.
func (o *RootOptions) load() (config.Config, *slog.Logger) {
	cfg := config.Load(o.ConfigPath)
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
	return cfg, logging.New(cfg.Logging.Level, cfg.Logging.Format)
}
