package notifier

import (
	"context"

	"github.com/pfrederiksen/typhoon/internal/status"
)

// Notifier defines the interface for posting change notifications
type Notifier interface {
	// Name identifies the channel in logs and metrics
	Name() string

	// Notify posts notifications for the given changes
	Notify(ctx context.Context, changes []*status.Change) error
}

// Cap keeps at most max changes. A non-positive max keeps everything.
// It returns the kept changes and how many were dropped.
func Cap(changes []*status.Change, max int) ([]*status.Change, int) {
	if max <= 0 || len(changes) <= max {
		return changes, 0
	}
	return changes[:max], len(changes) - max
}
