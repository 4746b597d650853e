package notifier

import (
	"context"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/pfrederiksen/typhoon/internal/status"
	"github.com/pfrederiksen/typhoon/internal/telegram"
)

// DryRunNotifier prints what would be sent without actually posting
type DryRunNotifier struct {
	w io.Writer
}

// NewDryRunNotifier creates a new dry-run notifier writing to w
func NewDryRunNotifier(w io.Writer) *DryRunNotifier {
	return &DryRunNotifier{w: w}
}

// Name implements Notifier.
func (n *DryRunNotifier) Name() string { return "dry-run" }

// Notify prints the tweet and the Telegram message for each change
func (n *DryRunNotifier) Notify(_ context.Context, changes []*status.Change) error {
	for i, c := range changes {
		tweet := formatTweet(c)
		msg := telegram.FormatChange(c)

		fmt.Fprintf(n.w, "--- Change %d/%d: %s (%s) ---\n", i+1, len(changes), c.City, c.Kind)
		fmt.Fprintln(n.w, "[tweet]")
		fmt.Fprintln(n.w, tweet)
		fmt.Fprintf(n.w, "(Weight: %d/%d)\n\n", tweetWeight(tweet), maxTweetWeight)
		fmt.Fprintln(n.w, "[telegram]")
		fmt.Fprintln(n.w, msg)
		fmt.Fprintf(n.w, "(Length: %d characters)\n\n", utf8.RuneCountInString(msg))
	}
	return nil
}
