package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"JobsScanner/internal/app"
)

// NewCountCommand prints the number of stored jobs.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print how many jobs are stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _ := rootOpts.load()

			store, err := app.OpenStore(cmd.Context(), cfg.Storage)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			count, err := store.Count(cmd.Context())
			if err != nil {
				return fmt.Errorf("count jobs: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), count)
			return err
		},
	}
}
