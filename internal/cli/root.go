package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/typhoon/internal/config"
	"github.com/pfrederiksen/typhoon/internal/history"
	"github.com/pfrederiksen/typhoon/internal/logger"
	"github.com/pfrederiksen/typhoon/internal/metrics"
	"github.com/pfrederiksen/typhoon/internal/scraper"
	"github.com/pfrederiksen/typhoon/internal/status"
	"github.com/pfrederiksen/typhoon/internal/storage"
)

const (
	ExitSuccess = 0
	ExitError   = 1
	ExitChanges = 2
)

// Version is set at build time with -ldflags "-X ...cli.Version=v1.2.3".
var Version = "dev"

// exitError ends the command with a status code and no further message.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// app carries the global flags and what PersistentPreRunE builds from them.
type app struct {
	configPath string
	dataDir    string
	logFormat  string
	verbose    bool
	noHistory  bool

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "typhoon",
		Short: "Check Taiwan's typhoon day-off announcements",
		Long: `A CLI tool for the DGPA typhoon day-off page (停班停課公告).
Fetches the announcement table, tracks changes across runs, and can serve
the latest statuses over HTTP.`,
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Config file (default: ./.typhoon or ~/.typhoon)")
	flags.StringVar(&a.dataDir, "data-dir", "", "Data directory for snapshots and history (default: XDG data dir)")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format: text or json")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")
	flags.BoolVar(&a.noHistory, "no-history", false, "Do not record fetches in the history database")

	cmd.AddCommand(
		newCheckCmd(a),
		newWatchCmd(a),
		newInspectCmd(a),
		newHistoryCmd(a),
		newServeCmd(a),
		newCitiesCmd(),
		newVersionCmd(),
	)

	return cmd
}

// setup loads configuration and builds the logger for every subcommand.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if a.dataDir != "" {
		cfg.DataDir = a.dataDir
	}
	if a.logFormat != "" {
		cfg.LogFormat = a.logFormat
	}
	if a.verbose {
		cfg.LogLevel = "debug"
	}
	if a.noHistory {
		cfg.History = false
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	logger.SetDefault(log)

	a.cfg = cfg
	a.logger = log

	if cfg.ConfigFilePath != "" {
		log.Debug("loaded config file", "path", cfg.ConfigFilePath)
	}

	return nil
}

// pageURL returns override when set, otherwise the configured URL.
func (a *app) pageURL(override string) string {
	if override != "" {
		return override
	}
	return a.cfg.URL
}

// newScraper builds a scraper for pageURL. m may be nil.
func (a *app) newScraper(pageURL string, m *metrics.Metrics) *scraper.Scraper {
	cfg := *a.cfg
	cfg.URL = pageURL
	return scraper.New(&cfg, a.logger, m)
}

// record stores a fetch in the history database. Failures are logged only;
// history must never break a check.
func (a *app) record(ctx context.Context, pageURL string, result status.FetchResult, fetchedAt time.Time) {
	if !a.cfg.History {
		return
	}

	db, err := history.Open(a.cfg.DataDir, history.DefaultOptions())
	if err != nil {
		a.logger.Warn("opening history failed", "error", err)
		return
	}
	defer db.Close()

	id, err := db.Record(ctx, storage.SourceKey(pageURL), result, fetchedAt)
	if err != nil {
		a.logger.Warn("recording fetch failed", "error", err)
		return
	}
	a.logger.Debug("recorded fetch", "id", id, "path", db.Path())
}

// Run executes the command line and returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitError
}

// Execute runs the CLI
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
