package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pfrederiksen/high-lakes/internal/lake"
	"github.com/pfrederiksen/high-lakes/internal/notifier"
	"github.com/spf13/cobra"
)

func newNotifyCmd(root *rootOptions) *cobra.Command {
	var (
		input     string
		dryRun    bool
		maxTweets int
		sortOrder string
		filters   filterFlags
	)

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Tweet the new plants reported by scrape --format json",
		Long: `Reads the JSON written by "high-lakes scrape --format json" from --input or stdin
and posts one tweet per new plant. A baseline result (the first snapshot) posts nothing.
Requires TWITTER_API_KEY, TWITTER_API_SECRET,
TWITTER_ACCESS_TOKEN and TWITTER_ACCESS_SECRET unless --dry-run is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("max-tweets") {
				maxTweets = root.cfg.NotifyConf.Max
			}
			order, err := parseSortOrder(sortOrder)
			if err != nil {
				return err
			}
			flt, err := filters.build()
			if err != nil {
				return err
			}

			var reader io.Reader = cmd.InOrStdin()
			if input != "" && input != "-" {
				f, err := os.Open(input)
				if err != nil {
					return fmt.Errorf("opening input: %w", err)
				}
				defer f.Close()
				reader = f
			}

			plants, baseline, err := readNewPlants(reader)
			if err != nil {
				return err
			}
			if baseline {
				fmt.Fprintln(cmd.OutOrStdout(), "Baseline snapshot, nothing to notify")
				return nil
			}
			plants = flt.Apply(plants)
			sortPlants(plants, order)

			if len(plants) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No new plants to tweet")
				return nil
			}
			if maxTweets > 0 && len(plants) > maxTweets {
				plants = plants[:maxTweets]
			}

			mode := "twitter"
			if dryRun {
				mode = "dry-run"
			}
			n, err := newNotifier(mode, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := notifier.Send(cmd.Context(), n, plants); err != nil {
				return fmt.Errorf("posting tweets: %w", err)
			}

			if !dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "Posted %d tweets\n", len(plants))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Scrape JSON output file (default stdin)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print tweets without posting")
	cmd.Flags().IntVar(&maxTweets, "max-tweets", 10, "Maximum number of tweets to post")
	cmd.Flags().StringVar(&sortOrder, "sort", "", "Sort plants by: date, county or lake")
	filters.register(cmd)

	return cmd
}

// readNewPlants decodes the new_plants of a scrape JSON result and whether it was a baseline run
func readNewPlants(r io.Reader) ([]*lake.NewPlant, bool, error) {
	var result OutputResult
	if err := json.NewDecoder(r).Decode(&result); err != nil {
		return nil, false, fmt.Errorf("parsing JSON: %w", err)
	}

	plants := make([]*lake.NewPlant, 0, len(result.NewPlants))
	for _, row := range result.NewPlants {
		if np := row.NewPlant(); np != nil {
			plants = append(plants, np)
		}
	}
	return plants, result.Baseline, nil
}
