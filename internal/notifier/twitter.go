package notifier

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dghubble/go-twitter/twitter" //nolint:staticcheck // Using stable v1.1 API
	"github.com/dghubble/oauth1"
	"github.com/pfrederiksen/high-lakes/internal/lake"
)

// TwitterNotifier posts plants to Twitter
type TwitterNotifier struct {
	client *twitter.Client
	delay  time.Duration
}

// NewTwitterNotifier creates a new Twitter notifier using environment variables
// Required environment variables:
// - TWITTER_API_KEY
// - TWITTER_API_SECRET
// - TWITTER_ACCESS_TOKEN
// - TWITTER_ACCESS_SECRET
func NewTwitterNotifier() (*TwitterNotifier, error) {
	apiKey := os.Getenv("TWITTER_API_KEY")
	apiSecret := os.Getenv("TWITTER_API_SECRET")
	accessToken := os.Getenv("TWITTER_ACCESS_TOKEN")
	accessSecret := os.Getenv("TWITTER_ACCESS_SECRET")

	if apiKey == "" || apiSecret == "" || accessToken == "" || accessSecret == "" {
		return nil, fmt.Errorf("missing required Twitter credentials in environment variables")
	}

	config := oauth1.NewConfig(apiKey, apiSecret)
	token := oauth1.NewToken(accessToken, accessSecret)
	httpClient := config.Client(oauth1.NoContext, token)

	return &TwitterNotifier{
		client: twitter.NewClient(httpClient),
		delay:  2 * time.Second,
	}, nil
}

// Notify posts one tweet per plant
func (n *TwitterNotifier) Notify(plants []*lake.NewPlant) error {
	return n.NotifyContext(context.Background(), plants)
}

// NotifyContext posts one tweet per plant, stopping between tweets when ctx is canceled
func (n *TwitterNotifier) NotifyContext(ctx context.Context, plants []*lake.NewPlant) error {
	for i, np := range plants {
		if _, _, err := n.client.Statuses.Update(formatTweet(np), nil); err != nil {
			return fmt.Errorf("failed to post tweet for plant %s: %w", np.Plant.ID, err)
		}

		// Rate limiting: wait between tweets
		if i < len(plants)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(n.delay):
			}
		}
	}

	return nil
}

// formatTweet formats a newly seen plant as a tweet
func formatTweet(np *lake.NewPlant) string {
	var b strings.Builder

	b.WriteString("🎣 New high lake fish plant!\n\n")
	fmt.Fprintf(&b, "🏔️ %s (%s County)\n", np.Lake.Name, np.Lake.County)

	if np.Plant.Species != "" {
		if np.Plant.Number != "" {
			fmt.Fprintf(&b, "🐟 %s %s\n", np.Plant.Number, np.Plant.Species)
		} else {
			fmt.Fprintf(&b, "🐟 %s\n", np.Plant.Species)
		}
	}

	if np.Plant.Date != "" {
		fmt.Fprintf(&b, "📅 %s\n", np.Plant.Date)
	}

	if np.Lake.Elevation != "" {
		fmt.Fprintf(&b, "⛰️ %s\n", np.Lake.Elevation)
	}

	if np.Lake.URL != "" {
		fmt.Fprintf(&b, "\n🔗 %s\n", np.Lake.URL)
	}
	b.WriteString("\n#WAFishing #HighLakes")

	tweet := b.String()

	// Twitter limit is 280 characters
	if len(tweet) > 280 {
		tweet = truncate(tweet, 277) + "..."
	}

	return tweet
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func utf8RuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
