package notifier

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dghubble/go-twitter/twitter" //nolint:staticcheck // Using stable v1.1 API
	"github.com/dghubble/oauth1"

	"github.com/pfrederiksen/typhoon/internal/config"
	"github.com/pfrederiksen/typhoon/internal/status"
)

const (
	// maxTweetWeight is the weighted length limit. CJK characters weigh 2.
	maxTweetWeight = 280

	// tweetDelay spaces out consecutive tweets.
	tweetDelay = 2 * time.Second
)

// TwitterNotifier posts changes to Twitter
type TwitterNotifier struct {
	client *twitter.Client
	delay  time.Duration
}

// NewTwitterNotifier creates a new Twitter notifier from OAuth1 credentials.
// All four credentials are required; see config.EnvTwitterAPIKey and friends.
func NewTwitterNotifier(cfg config.TwitterConfig) (*TwitterNotifier, error) {
	return newTwitterNotifier(cfg, nil)
}

// newTwitterNotifier uses base as the transport under the OAuth1 signer when set.
func newTwitterNotifier(cfg config.TwitterConfig, base http.RoundTripper) (*TwitterNotifier, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("missing required Twitter credentials")
	}

	ctx := oauth1.NoContext
	if base != nil {
		ctx = context.WithValue(ctx, oauth1.HTTPClient, &http.Client{Transport: base})
	}

	oauthConfig := oauth1.NewConfig(cfg.APIKey, cfg.APISecret)
	token := oauth1.NewToken(cfg.AccessToken, cfg.AccessSecret)
	httpClient := oauthConfig.Client(ctx, token)

	return &TwitterNotifier{
		client: twitter.NewClient(httpClient),
		delay:  tweetDelay,
	}, nil
}

// Name implements Notifier.
func (n *TwitterNotifier) Name() string { return "twitter" }

// Notify posts one tweet per change, stopping at the first failure
func (n *TwitterNotifier) Notify(ctx context.Context, changes []*status.Change) error {
	for i, c := range changes {
		if err := ctx.Err(); err != nil {
			return err
		}

		if _, _, err := n.client.Statuses.Update(formatTweet(c), nil); err != nil {
			return fmt.Errorf("posting tweet for %s: %w", c.City, err)
		}

		// Rate limiting: wait between tweets
		if i < len(changes)-1 && n.delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(n.delay):
			}
		}
	}

	return nil
}

// formatTweet formats a change as a tweet within the weighted length limit
func formatTweet(c *status.Change) string {
	var tweet strings.Builder

	switch c.Kind {
	case status.ChangeRemoved:
		tweet.WriteString(fmt.Sprintf("🌀 %s 停班停課公告已移除\n", c.City))
		tweet.WriteString(fmt.Sprintf("原公告: %s\n", oneLine(c.OldStatus)))
	default:
		tweet.WriteString(fmt.Sprintf("🌀 %s 停班停課公告\n", c.City))
		tweet.WriteString(fmt.Sprintf("%s\n", oneLine(c.NewStatus)))
	}

	tweet.WriteString("\n#颱風假 #停班停課")

	return truncateTweet(tweet.String())
}

func oneLine(text string) string {
	if text == "" {
		return status.NoInfoText
	}
	return strings.Join(strings.Fields(text), " ")
}

// tweetWeight approximates Twitter's weighted length: Latin-range runes
// count 1, everything else 2.
func tweetWeight(s string) int {
	weight := 0
	for _, r := range s {
		weight += runeWeight(r)
	}
	return weight
}

func runeWeight(r rune) int {
	if r <= 0x10FF || (r >= 0x2000 && r <= 0x200D) || (r >= 0x2010 && r <= 0x201F) || (r >= 0x2032 && r <= 0x2037) {
		return 1
	}
	return 2
}

func truncateTweet(tweet string) string {
	if tweetWeight(tweet) <= maxTweetWeight {
		return tweet
	}

	const ellipsis = "…"
	limit := maxTweetWeight - runeWeight('…')

	var out strings.Builder
	weight := 0
	for _, r := range tweet {
		w := runeWeight(r)
		if weight+w > limit {
			break
		}
		out.WriteRune(r)
		weight += w
	}
	return out.String() + ellipsis
}
