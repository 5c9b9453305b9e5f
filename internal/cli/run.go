package cli

import (
	"github.com/spf13/cobra"

	"JobsScanner/internal/app"
)

// NewRunCommand creates the long-running daemon command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Crawl on the configured schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := rootOpts.load()

			application, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := application.Close(); err != nil {
					logger.Warn("close store", "error", err)
				}
			}()

			return application.Run(cmd.Context())
		},
	}
}
