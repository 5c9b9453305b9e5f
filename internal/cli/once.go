package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"JobsScanner/internal/app"
)

// NewOnceCommand runs a single crawl, retrying until it succeeds.
func NewOnceCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run one crawl cycle now and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := rootOpts.load()

			application, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = application.Close() }()

			report, err := application.RunOnce(cmd.Context())
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "cycle %s: %d pages, %d matched, %d new, %d known (%s)\n",
				report.ID, report.Pages, report.Matched, report.Inserted, report.Known, report.Took.Round(time.Millisecond))
			return err
		},
	}
}
