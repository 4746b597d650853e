package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/typhoon/internal/scraper"
)

type inspectOptions struct {
	file   string
	format string
	url    string
}

func newInspectCmd(a *app) *cobra.Command {
	opts := &inspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Diagnose how the announcement page parses",
		Long: `Fetch the page (or read a saved copy) and report the detected encoding,
the page title and declared charset, whether the table body markers were
found, and how many rows the marker scan and an HTML parser each see.

Use it to tell "no announcements" apart from "the page layout changed".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := parseFormat(opts.format)
			if err != nil {
				return err
			}

			var report *scraper.Report
			if opts.file != "" {
				data, err := os.ReadFile(opts.file) //nolint:gosec // user-provided file is intentional
				if err != nil {
					return fmt.Errorf("reading page: %w", err)
				}
				report, err = scraper.DefaultMarkers.Inspect(data)
				if err != nil {
					return fmt.Errorf("inspecting page: %w", err)
				}
				report.Source = opts.file
			} else {
				report, err = a.newScraper(a.pageURL(opts.url), nil).Inspect(cmd.Context())
				if err != nil {
					return fmt.Errorf("inspecting page: %w", err)
				}
			}

			a.logger.Debug("inspected page", "source", report.Source, "diagnosis", report.Diagnosis())

			if err := WriteInspect(cmd.OutOrStdout(), report, format); err != nil {
				return fmt.Errorf("writing output: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.file, "file", "", "Inspect a saved copy of the page instead of fetching")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text, json or markdown")
	cmd.Flags().StringVar(&opts.url, "url", "", "Announcement page URL (overrides config)")

	return cmd
}
