package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/typhoon/internal/filter"
	"github.com/pfrederiksen/typhoon/internal/notifier"
	"github.com/pfrederiksen/typhoon/internal/status"
	"github.com/pfrederiksen/typhoon/internal/storage"
)

type watchOptions struct {
	filter  string
	format  string
	url     string
	refresh bool
	dryRun  bool
}

func newWatchCmd(a *app) *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Report announcements that changed since the last run",
		Long: `Fetch the announcement page, compare it with the snapshot saved by the
previous run, report what changed, and save the new snapshot.

Changes are sent through every configured notifier (Telegram, Twitter).
If sending fails the snapshot is kept, so the same changes are sent again
on the next run. The first run only saves a baseline and notifies nobody.

Exit codes: 0 no changes, 1 error or failed fetch, 2 changes found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runWatch(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.filter, "filter", "", "Only report changes matching this filter expression")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text, json or markdown")
	cmd.Flags().StringVar(&opts.url, "url", "", "Announcement page URL (overrides config)")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "Refresh snapshot without reporting changes")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print notifications instead of sending them")

	return cmd
}

func (a *app) runWatch(cmd *cobra.Command, opts *watchOptions) error {
	ctx := cmd.Context()

	format, err := parseFormat(opts.format)
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

	store, err := storage.New(a.cfg.DataDir)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	pageURL := a.pageURL(opts.url)
	source := storage.SourceKey(pageURL)

	previous, err := store.LoadSnapshot(source)
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}
	a.logger.Debug("loaded previous snapshot", "cities", len(previous.Order), "updated_at", previous.UpdatedAt)

	result := a.newScraper(pageURL, nil).Fetch(ctx)
	checkedAt := time.Now().UTC()
	a.record(ctx, pageURL, result, checkedAt)

	changes := f.ApplyChanges(status.Diff(previous, result))

	out := &WatchOutput{
		CheckedAt:    checkedAt,
		Source:       pageURL,
		Outcome:      result.Outcome(),
		UsedEncoding: result.UsedEncoding,
		Changes:      changes,
		ChangeCount:  len(changes),
	}

	if opts.refresh {
		out.Changes = []*status.Change{}
		out.ChangeCount = 0
		out.Refreshed = true
		if err := a.saveSnapshot(store, source, previous, result); err != nil {
			return err
		}
		if err := WriteWatch(cmd.OutOrStdout(), out, format); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		if result.Failed() {
			return &exitError{code: ExitError}
		}
		return nil
	}

	if err := WriteWatch(cmd.OutOrStdout(), out, format); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if len(changes) > 0 {
		firstRun := previous.UpdatedAt.IsZero()
		if err := a.notify(cmd, changes, opts.dryRun, firstRun); err != nil {
			a.logger.Warn("keeping previous snapshot so the changes are sent again", "changes", len(changes))
			return err
		}
	}

	// Saved only after delivery: a failed send is retried on the next run.
	if err := a.saveSnapshot(store, source, previous, result); err != nil {
		return err
	}

	switch {
	case result.Failed():
		return &exitError{code: ExitError}
	case len(changes) > 0:
		return &exitError{code: ExitChanges}
	default:
		return nil
	}
}

// saveSnapshot stores result unless it would overwrite the last good snapshot
// with a failed or empty fetch.
func (a *app) saveSnapshot(store *storage.Storage, source string, previous *status.Snapshot, result status.FetchResult) error {
	switch {
	case result.Failed():
		a.logger.Warn("fetch failed, keeping previous snapshot", "label", result.UsedEncoding)
	case len(result.CityStatuses) == 0 && !previous.UpdatedAt.IsZero():
		a.logger.Info("page has no rows, keeping previous snapshot")
	default:
		if err := store.SaveResult(result, source); err != nil {
			return fmt.Errorf("saving snapshot: %w", err)
		}
		a.logger.Debug("saved snapshot", "dir", store.Dir())
	}
	return nil
}

// buildNotifiers is replaced in tests.
var buildNotifiers = (*app).notifiers

// notify sends changes through the configured channels.
func (a *app) notify(cmd *cobra.Command, changes []*status.Change, dryRun, firstRun bool) error {
	if dryRun {
		return notifier.NewDryRunNotifier(cmd.ErrOrStderr()).Notify(cmd.Context(), changes)
	}

	if firstRun {
		a.logger.Info("first run, saving baseline without notifications", "changes", len(changes))
		return nil
	}

	channels, err := buildNotifiers(a)
	if err != nil {
		return err
	}
	if len(channels) == 0 {
		a.logger.Debug("no notifiers configured")
		return nil
	}

	multi := notifier.NewMulti(a.logger, nil, channels...)
	if err := multi.Notify(cmd.Context(), changes); err != nil {
		return fmt.Errorf("sending notifications: %w", err)
	}
	return nil
}

// notifiers builds a notifier for every channel with complete credentials.
func (a *app) notifiers() ([]notifier.Notifier, error) {
	var channels []notifier.Notifier

	if a.cfg.Telegram.Enabled() {
		n, err := notifier.NewTelegramNotifier(a.cfg.Telegram)
		if err != nil {
			return nil, err
		}
		channels = append(channels, n)
	}

	if a.cfg.Twitter.Enabled() {
		n, err := notifier.NewTwitterNotifier(a.cfg.Twitter)
		if err != nil {
			return nil, fmt.Errorf("initializing Twitter client: %w", err)
		}
		channels = append(channels, n)
	}

	return channels, nil
}
