package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pfrederiksen/high-lakes/internal/history"
	"github.com/spf13/cobra"
)

// nowUTC is replaced in tests
var nowUTC = func() time.Time { return time.Now().UTC() }

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var (
		dbPath string
		county string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "history <lake name>",
		Short: "Show every archived plant of a lake",
		Long: `Lists the plants of a lake recorded in the history archive, newest first. The archive
is written by scrape --history-db and keeps plants that have dropped out of the 10 most
recent shown on the lake page.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("db") {
				dbPath = root.cfg.DBPath
			}
			if dbPath == "" {
				return fmt.Errorf("no history database: set --db, [history] db_path or HIGH_LAKES_HISTORY_DB")
			}

			store, err := history.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			name := strings.Join(args, " ")
			entries, err := store.ForLake(cmd.Context(), name, county, limit)
			if err != nil {
				return err
			}

			if root.outputFormat() == FormatJSON {
				if entries == nil {
					entries = []history.Entry{}
				}
				return writeJSON(cmd.OutOrStdout(), entries)
			}

			if len(entries) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No plants recorded for %s.\n", name)
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tSPECIES\tNUMBER\tHATCHERY\tFIRST SEEN")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Date, e.Species, e.Number, e.Hatchery, e.FirstSeen.Format("2006-01-02"))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "History database path")
	cmd.Flags().StringVar(&county, "county", "", "Only the lake in this county (several lakes share a name)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum plants to show (0 for all)")

	return cmd
}
