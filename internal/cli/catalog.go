package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"JobsScanner/internal/app"
	"JobsScanner/internal/infrastructure/parser"
	"JobsScanner/internal/ports"
)

// catalog mirrors the config keys so the output can be pasted as is.
type catalog struct {
	Organizations []parser.DirectoryEntry `yaml:"organizations,omitempty"`
	DutyStations  []parser.DirectoryEntry `yaml:"dutyStations,omitempty"`
}

// NewCatalogCommand lists the organizations and duty stations known to the site.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	var section string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List organizations and duty stations as config YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _ := rootOpts.load()
			fetcher := app.NewFetcher(cfg.Site)

			out, err := fetchCatalog(cmd, fetcher, cfg.Site.BaseURL, section)
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("encode catalog: %w", err)
			}
			return enc.Close()
		},
	}

	cmd.Flags().StringVar(&section, "section", "all", "which list to fetch (all|organizations|duty_stations)")
	return cmd
}

func fetchCatalog(cmd *cobra.Command, fetcher ports.PageFetcher, baseURL, section string) (catalog, error) {
	var out catalog

	switch section {
	case "all", parser.SectionOrganizations, parser.SectionDutyStations:
	default:
		return out, fmt.Errorf("unknown section %q", section)
	}

	if section == "all" || section == parser.SectionOrganizations {
		entries, err := fetchSection(cmd, fetcher, baseURL, parser.SectionOrganizations)
		if err != nil {
			return out, err
		}
		out.Organizations = entries
	}
	if section == "all" || section == parser.SectionDutyStations {
		entries, err := fetchSection(cmd, fetcher, baseURL, parser.SectionDutyStations)
		if err != nil {
			return out, err
		}
		out.DutyStations = entries
	}
	return out, nil
}

func fetchSection(cmd *cobra.Command, fetcher ports.PageFetcher, baseURL, section string) ([]parser.DirectoryEntry, error) {
	markup, err := fetcher.Get(cmd.Context(), "/:section", map[string]string{"section": section}, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", section, err)
	}

	entries, err := parser.ParseDirectory(markup, baseURL, section)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", section, err)
	}
	for i := range entries {
		entries[i].URL = ""
	}
	return entries, nil
}
