package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/typhoon/internal/history"
	"github.com/pfrederiksen/typhoon/internal/metrics"
	"github.com/pfrederiksen/typhoon/internal/server"
	"github.com/pfrederiksen/typhoon/internal/storage"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	addr     string
	interval time.Duration
	url      string
}

func newServeCmd(a *app) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Poll the page on an interval and serve the latest statuses over HTTP",
		Long: `Run an HTTP server with the latest statuses, refreshed on an interval.

Routes:
  GET /healthz            liveness
  GET /readyz             503 until the first successful fetch
  GET /metrics            Prometheus metrics
  GET /api/status         latest result (?filter= narrows it)
  GET /api/cities         city names
  GET /api/cities/{city}  one city`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.HTTPAddr = opts.addr
			}
			if cmd.Flags().Changed("interval") {
				if opts.interval <= 0 {
					return fmt.Errorf("--interval must be positive")
				}
				a.cfg.PollInterval = opts.interval
			}
			return a.runServe(cmd.Context(), a.pageURL(opts.url))
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", ":8080", "Listen address")
	cmd.Flags().DurationVar(&opts.interval, "interval", 10*time.Minute, "Poll interval")
	cmd.Flags().StringVar(&opts.url, "url", "", "Announcement page URL (overrides config)")

	return cmd
}

func (a *app) runServe(ctx context.Context, pageURL string) error {
	m := metrics.NewMetrics()
	sc := a.newScraper(pageURL, m)
	source := storage.SourceKey(pageURL)

	var pollerOpts []server.PollerOption

	if a.cfg.History {
		db, err := history.Open(a.cfg.DataDir, history.DefaultOptions())
		if err != nil {
			return fmt.Errorf("opening history: %w", err)
		}
		defer db.Close()

		pollerOpts = append(pollerOpts, server.WithRecorder(db, source))

		last, err := db.LastSuccess(ctx)
		if err != nil {
			a.logger.Warn("reading last fetch failed", "error", err)
		} else if last != nil && last.Source == source {
			a.logger.Info("serving last recorded result until the first fetch", "fetched_at", last.FetchedAt)
			pollerOpts = append(pollerOpts, server.WithSeed(last.Result, last.FetchedAt))
		}
	}

	poller := server.NewPoller(sc, a.cfg.PollInterval, a.logger, pollerOpts...)
	srv := server.NewServer(a.cfg.HTTPAddr, poller, a.logger)

	errCh := make(chan error, 1)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Start poller.
	pollCtx, stopPolling := context.WithCancel(ctx)
	defer stopPolling()
	go func() {
		_ = poller.Run(pollCtx)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutting down")
	case serveErr = <-errCh:
		a.logger.Error("http server error", "error", serveErr)
	}

	stopPolling()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", "error", err)
	}

	if serveErr != nil {
		return fmt.Errorf("serving http: %w", serveErr)
	}
	return nil
}
