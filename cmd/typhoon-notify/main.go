package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pfrederiksen/typhoon/internal/config"
	"github.com/pfrederiksen/typhoon/internal/filter"
	"github.com/pfrederiksen/typhoon/internal/logger"
	"github.com/pfrederiksen/typhoon/internal/notifier"
	"github.com/pfrederiksen/typhoon/internal/status"
)

var (
	changesFile  = flag.String("changes-file", "", "Path to the JSON output of typhoon watch (or read from stdin)")
	dryRun       = flag.Bool("dry-run", false, "Print messages without sending")
	maxMessages  = flag.Int("max-messages", 10, "Maximum number of changes to send")
	filterExpr   = flag.String("filter", "", `Only send changes matching this filter, e.g. "suspended"`)
	logLevel     = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	botToken     = flag.String("bot-token", os.Getenv(config.EnvTelegramBotToken), "Telegram bot token (or env: TELEGRAM_BOT_TOKEN)")
	chatID       = flag.String("chat-id", os.Getenv(config.EnvTelegramChatID), "Telegram chat ID (or env: TELEGRAM_CHAT_ID)")
	apiKey       = flag.String("api-key", os.Getenv(config.EnvTwitterAPIKey), "Twitter API key (or env: TWITTER_API_KEY)")
	apiSecret    = flag.String("api-secret", os.Getenv(config.EnvTwitterAPISecret), "Twitter API secret (or env: TWITTER_API_SECRET)")
	accessToken  = flag.String("access-token", os.Getenv(config.EnvTwitterAccessToken), "Twitter access token (or env: TWITTER_ACCESS_TOKEN)")
	accessSecret = flag.String("access-secret", os.Getenv(config.EnvTwitterAccessSecret), "Twitter access secret (or env: TWITTER_ACCESS_SECRET)")
)

func main() {
	flag.Parse()

	log, err := logger.New(os.Stderr, *logLevel, "text")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Read changes from file or stdin
	var reader io.Reader
	if *changesFile != "" {
		f, err := os.Open(*changesFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening changes file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		reader = f
	} else {
		reader = os.Stdin
	}

	all, err := readChanges(reader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing JSON: %v\n", err)
		os.Exit(1)
	}

	f, err := filter.Parse(*filterExpr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing filter: %v\n", err)
		os.Exit(1)
	}

	changes, dropped := notifier.Cap(f.ApplyChanges(all), *maxMessages)
	if dropped > 0 {
		log.Warn("too many changes, sending the first ones only", "sent", len(changes), "dropped", dropped)
	}

	if len(changes) == 0 {
		fmt.Println("No changes to send")
		return
	}

	var n notifier.Notifier
	if *dryRun {
		fmt.Printf("DRY RUN MODE - Would send %d changes:\n\n", len(changes))
		n = notifier.NewDryRunNotifier(os.Stdout)
	} else {
		multi, err := buildNotifier(log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing notifiers: %v\n", err)
			os.Exit(1)
		}
		n = multi
	}

	if err := n.Notify(ctx, changes); err != nil {
		fmt.Fprintf(os.Stderr, "Error sending notifications: %v\n", err)
		os.Exit(1)
	}

	if !*dryRun {
		fmt.Printf("Successfully sent %d changes\n", len(changes))
	}
}

// readChanges decodes the changes list of a watch report.
func readChanges(r io.Reader) ([]*status.Change, error) {
	var input struct {
		Changes []*status.Change `json:"changes"`
	}
	if err := json.NewDecoder(r).Decode(&input); err != nil {
		return nil, err
	}
	return input.Changes, nil
}

// buildNotifier fans out to every channel whose credentials are complete.
func buildNotifier(log *slog.Logger) (*notifier.Multi, error) {
	var channels []notifier.Notifier

	tg := config.TelegramConfig{BotToken: *botToken, ChatID: *chatID}
	if tg.Enabled() {
		n, err := notifier.NewTelegramNotifier(tg)
		if err != nil {
			return nil, err
		}
		channels = append(channels, n)
	}

	tw := config.TwitterConfig{
		APIKey:       *apiKey,
		APISecret:    *apiSecret,
		AccessToken:  *accessToken,
		AccessSecret: *accessSecret,
	}
	if tw.Enabled() {
		n, err := notifier.NewTwitterNotifier(tw)
		if err != nil {
			return nil, err
		}
		channels = append(channels, n)
	}

	if len(channels) == 0 {
		return nil, fmt.Errorf("no notifier configured, set Telegram or Twitter credentials")
	}

	return notifier.NewMulti(log, nil, channels...), nil
}
