package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/typhoon/internal/filter"
	"github.com/pfrederiksen/typhoon/internal/status"
	"github.com/pfrederiksen/typhoon/internal/storage"
)

type checkOptions struct {
	city   string
	filter string
	format string
	sort   string
	url    string
	cached bool
}

func newCheckCmd(a *app) *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Fetch the announcement page once and print every city",
		Long: `Fetch the announcement page once and print each city's status.

Exits 1 when the fetch failed (the encoding line then shows the failure
label), 0 otherwise. An empty table prints 暫無資料.`,
		Example: `  typhoon check
  typhoon check --city 台北市
  typhoon check --filter "suspended" --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runCheck(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.city, "city", "", "Only print this city's status")
	cmd.Flags().StringVar(&opts.filter, "filter", "", `Filter expression, e.g. "city:台北市,新北市 suspended"`)
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text, json or markdown")
	cmd.Flags().StringVar(&opts.sort, "sort", "page", "Sort order: page, city or suspended")
	cmd.Flags().StringVar(&opts.url, "url", "", "Announcement page URL (overrides config)")
	cmd.Flags().BoolVar(&opts.cached, "cached", false, "Print the last saved snapshot instead of fetching")

	return cmd
}

func (a *app) runCheck(cmd *cobra.Command, opts *checkOptions) error {
	format, err := parseFormat(opts.format)
	if err != nil {
		return err
	}
	order, err := parseSortOrder(opts.sort)
	if err != nil {
		return err
	}

	expr := opts.filter
	if expr == "" {
		expr = a.cfg.Filter
	}
	f, err := filter.Parse(expr)
	if err != nil {
		return fmt.Errorf("parsing filter: %w", err)
	}

	pageURL := a.pageURL(opts.url)

	result, checkedAt, err := a.loadResult(cmd.Context(), pageURL, opts.cached)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()

	if opts.city != "" {
		return writeCity(cmd, result, opts.city)
	}

	out := &CheckOutput{
		CheckedAt:   checkedAt,
		Source:      pageURL,
		Cached:      opts.cached,
		Outcome:     result.Outcome(),
		FetchResult: result,
	}
	out.CityStatuses = sortStatuses(f.Apply(result.CityStatuses), order)
	if !f.IsEmpty() {
		out.Filter = f.String()
	}

	if err := WriteCheck(w, out, format, a.verbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if result.Failed() {
		return &exitError{code: ExitError}
	}
	return nil
}

// loadResult fetches the page, or reads the saved snapshot when cached is set.
func (a *app) loadResult(ctx context.Context, pageURL string, cached bool) (status.FetchResult, time.Time, error) {
	if cached {
		store, err := storage.New(a.cfg.DataDir)
		if err != nil {
			return status.FetchResult{}, time.Time{}, fmt.Errorf("initializing storage: %w", err)
		}
		snapshot, err := store.LoadSnapshot(storage.SourceKey(pageURL))
		if err != nil {
			return status.FetchResult{}, time.Time{}, fmt.Errorf("loading snapshot: %w", err)
		}
		if snapshot.UpdatedAt.IsZero() {
			return status.FetchResult{}, time.Time{}, fmt.Errorf("no saved snapshot in %s, run 'typhoon watch' first", store.Dir())
		}
		return snapshot.Result(), snapshot.UpdatedAt, nil
	}

	a.logger.Debug("fetching announcements", "url", pageURL)
	result := a.newScraper(pageURL, nil).Fetch(ctx)
	checkedAt := time.Now().UTC()
	a.record(ctx, pageURL, result, checkedAt)

	return result, checkedAt, nil
}

// writeCity prints one city's display text followed by the encoding line.
func writeCity(cmd *cobra.Command, result status.FetchResult, city string) error {
	w := cmd.OutOrStdout()

	if result.Failed() || len(result.CityStatuses) == 0 {
		fmt.Fprintln(w, status.NoDataText)
		fmt.Fprintln(w, result.EncodingLabel())
		if result.Failed() {
			return &exitError{code: ExitError}
		}
		return nil
	}

	cs, ok := result.Lookup(city)
	if !ok {
		return fmt.Errorf("%w: %s", errCityNotListed, city)
	}

	fmt.Fprintln(w, cs.Display())
	fmt.Fprintln(w, result.EncodingLabel())
	return nil
}

var errCityNotListed = errors.New("city is not in the announcement table")
