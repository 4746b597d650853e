package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/typhoon/internal/history"
)

type historyOptions struct {
	city   string
	format string
	limit  int
	prune  time.Duration
}

func newHistoryCmd(a *app) *cobra.Command {
	opts := &historyOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded fetches or one city's announcements over time",
		Example: `  typhoon history --limit 5
  typhoon history --city 台北市
  typhoon history --prune 720h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			format, err := parseFormat(opts.format)
			if err != nil {
				return err
			}

			db, err := history.Open(a.cfg.DataDir, history.Options{EnableWAL: true})
			if err != nil {
				return fmt.Errorf("opening history: %w", err)
			}
			defer db.Close()

			w := cmd.OutOrStdout()

			if opts.prune > 0 {
				before := time.Now().UTC().Add(-opts.prune)
				n, err := db.Prune(ctx, before)
				if err != nil {
					return fmt.Errorf("pruning history: %w", err)
				}
				fmt.Fprintf(w, "Pruned %d %s older than %s.\n", n, plural(int(n), "fetch", "fetches"), before.Local().Format(timeLayout))
				return nil
			}

			if opts.city != "" {
				entries, err := db.CityTimeline(ctx, opts.city, opts.limit)
				if err != nil {
					return fmt.Errorf("reading timeline: %w", err)
				}
				return WriteTimeline(w, opts.city, entries, format)
			}

			records, err := db.Recent(ctx, opts.limit)
			if err != nil {
				return fmt.Errorf("reading history: %w", err)
			}
			return WriteHistory(w, records, format)
		},
	}

	cmd.Flags().StringVar(&opts.city, "city", "", "Show this city's announcements over time")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text, json or markdown")
	cmd.Flags().IntVar(&opts.limit, "limit", 20, "Maximum number of entries")
	cmd.Flags().DurationVar(&opts.prune, "prune", 0, "Delete fetches older than this duration instead of listing")

	return cmd
}
