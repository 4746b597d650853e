package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pfrederiksen/typhoon/internal/config"
	"github.com/pfrederiksen/typhoon/internal/status"
	"github.com/pfrederiksen/typhoon/internal/telegram"
)

// maxRetryAfter bounds how long a rate-limited message waits before its one retry.
const maxRetryAfter = 30 * time.Second

// messageSender is the part of telegram.Client the notifier needs.
type messageSender interface {
	SendMessage(ctx context.Context, text string) error
}

// TelegramNotifier sends changes to a Telegram chat
type TelegramNotifier struct {
	client   messageSender
	maxRetry time.Duration
}

// NewTelegramNotifier creates a Telegram notifier from bot credentials
func NewTelegramNotifier(cfg config.TelegramConfig) (*TelegramNotifier, error) {
	client, err := telegram.NewClient(cfg.BotToken, cfg.ChatID)
	if err != nil {
		return nil, fmt.Errorf("initializing Telegram client: %w", err)
	}
	return &TelegramNotifier{client: client, maxRetry: maxRetryAfter}, nil
}

// Name implements Notifier.
func (n *TelegramNotifier) Name() string { return "telegram" }

// Notify sends one message per change, stopping at the first failure.
// A rate-limited message is retried once after the wait the API asks for.
func (n *TelegramNotifier) Notify(ctx context.Context, changes []*status.Change) error {
	for _, c := range changes {
		if err := n.send(ctx, telegram.FormatChange(c)); err != nil {
			return fmt.Errorf("sending message for %s: %w", c.City, err)
		}
	}
	return nil
}

func (n *TelegramNotifier) send(ctx context.Context, text string) error {
	err := n.client.SendMessage(ctx, text)

	var apiErr *telegram.APIError
	if !errors.As(err, &apiErr) || apiErr.RetryAfter <= 0 || apiErr.RetryAfter > n.maxRetry {
		return err
	}

	timer := time.NewTimer(apiErr.RetryAfter)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	return n.client.SendMessage(ctx, text)
}
