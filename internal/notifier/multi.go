package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/pfrederiksen/typhoon/internal/logger"
	"github.com/pfrederiksen/typhoon/internal/metrics"
	"github.com/pfrederiksen/typhoon/internal/status"
)

// defaultConcurrency bounds how many channels are notified at once.
const defaultConcurrency = 4

// Multi fans a batch of changes out to several notifiers concurrently.
// A failing channel does not stop the others; all errors are joined.
type Multi struct {
	notifiers []Notifier
	limit     int
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewMulti creates a fan-out notifier. log and m may be nil.
func NewMulti(log *slog.Logger, m *metrics.Metrics, notifiers ...Notifier) *Multi {
	return &Multi{
		notifiers: notifiers,
		limit:     defaultConcurrency,
		logger:    logger.OrDefault(log),
		metrics:   m,
	}
}

// Name implements Notifier.
func (m *Multi) Name() string { return "multi" }

// Len returns the number of channels.
func (m *Multi) Len() int { return len(m.notifiers) }

// Notify sends changes through every notifier and waits for all of them.
func (m *Multi) Notify(ctx context.Context, changes []*status.Change) error {
	if len(changes) == 0 || len(m.notifiers) == 0 {
		return nil
	}

	errs := make([]error, len(m.notifiers))

	var g errgroup.Group
	g.SetLimit(m.limit)

	for i, n := range m.notifiers {
		g.Go(func() error {
			err := n.Notify(ctx, changes)
			m.metrics.ObserveNotification(n.Name(), err)
			if err != nil {
				m.logger.Warn("notification failed", "channel", n.Name(), "changes", len(changes), "error", err)
				errs[i] = fmt.Errorf("%s: %w", n.Name(), err)
				return nil
			}
			m.logger.Info("notification sent", "channel", n.Name(), "changes", len(changes))
			return nil
		})
	}

	_ = g.Wait()

	return errors.Join(errs...)
}
