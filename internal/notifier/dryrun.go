package notifier

import (
	"fmt"
	"io"
	"os"

	"github.com/pfrederiksen/high-lakes/internal/lake"
)

// DryRunNotifier prints what would be tweeted without actually posting
type DryRunNotifier struct {
	out io.Writer
}

// NewDryRunNotifier creates a new dry-run notifier writing to stdout
func NewDryRunNotifier() *DryRunNotifier {
	return &DryRunNotifier{out: os.Stdout}
}

// NewDryRunNotifierTo creates a dry-run notifier writing to w
func NewDryRunNotifierTo(w io.Writer) *DryRunNotifier {
	return &DryRunNotifier{out: w}
}

// Notify prints the tweets that would be posted
func (n *DryRunNotifier) Notify(plants []*lake.NewPlant) error {
	for i, np := range plants {
		tweet := formatTweet(np)
		fmt.Fprintf(n.out, "--- Tweet %d/%d ---\n", i+1, len(plants))
		fmt.Fprintln(n.out, tweet)
		fmt.Fprintf(n.out, "\n(Length: %d characters)\n\n", len(tweet))
	}
	return nil
}
