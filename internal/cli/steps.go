package cli

import (
	"fmt"

	"github.com/pfrederiksen/high-lakes/internal/flatten"
	"github.com/pfrederiksen/high-lakes/internal/lake"
	"github.com/pfrederiksen/high-lakes/internal/opendata"
	"github.com/pfrederiksen/high-lakes/internal/scraper"
	"github.com/pfrederiksen/high-lakes/internal/storage"
	"github.com/spf13/cobra"
)

func newCountiesCmd(root *rootOptions) *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "counties",
		Short: "List the county IDs offered by the high lakes search form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := scraper.NewFromConfig(root.cfg.ScrapeConf).FetchCountyIDs(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetching county IDs: %w", err)
			}

			if save {
				store, err := storage.New(root.cfg.DataDir)
				if err != nil {
					return err
				}
				if err := store.SaveCountyIDs(ids); err != nil {
					return err
				}
			}

			if root.outputFormat() == FormatJSON {
				return writeJSON(cmd.OutOrStdout(), ids)
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "Also write "+storage.CountiesFile)

	return cmd
}

func newLakesCmd(root *rootOptions) *cobra.Command {
	var (
		countyIDs []string
		plants    bool
		save      bool
		filters   filterFlags
	)

	cmd := &cobra.Command{
		Use:   "lakes",
		Short: "Scrape the high lakes tables",
		Long: `Scrapes the lake tables of every county (or only --county-id) and prints them.
With --plants each lake page is visited as well for its most recent plants.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			flt, err := filters.build()
			if err != nil {
				return err
			}

			s := scraper.NewFromConfig(cfg.ScrapeConf)
			var lakes []*lake.Lake
			if len(countyIDs) > 0 {
				lakes, err = s.FetchLakesFor(cmd.Context(), countyIDs)
			} else {
				lakes, err = s.FetchAllLakes(cmd.Context())
			}
			if err != nil {
				return fmt.Errorf("fetching lakes: %w", err)
			}

			if plants {
				if _, err := s.FetchAllPlants(cmd.Context(), lakes); err != nil {
					return fmt.Errorf("fetching lake plants: %w", err)
				}
				for _, l := range lakes {
					l.KeepRecent(cfg.MaxPlants)
				}
			}

			if save {
				store, err := storage.New(cfg.DataDir)
				if err != nil {
					return err
				}
				if err := store.SaveLakes(lakes); err != nil {
					return err
				}
			}

			return writeLakes(cmd.OutOrStdout(), flt.ApplyLakes(lakes), root.outputFormat(), root.verbose)
		},
	}
	cmd.Flags().StringSliceVar(&countyIDs, "county-id", nil, "County IDs to scrape (default all)")
	cmd.Flags().BoolVar(&plants, "plants", false, "Also fetch each lake's recent plants")
	cmd.Flags().BoolVar(&save, "save", false, "Write "+storage.LakesFile+" (unfiltered)")
	filters.register(cmd)

	return cmd
}

func newOpenDataCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open-data",
		Short: "Download the data.wa.gov fish plants dataset",
		Long: `Downloads every record of the WDFW fish plants dataset on data.wa.gov and saves
it to ` + storage.OpenDataFile + `. A failed download is saved with status "error".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			store, err := storage.New(cfg.DataDir)
			if err != nil {
				return err
			}

			records, fetchErr := opendata.NewClientFromConfig(cfg.ScrapeConf).FetchAll(cmd.Context())
			env := opendata.NewEnvelope(records, nowUTC())
			if fetchErr != nil {
				env = opendata.NewErrorEnvelope(fetchErr, nowUTC())
			}
			if err := store.SaveOpenData(env); err != nil {
				return err
			}
			if fetchErr != nil {
				return fmt.Errorf("fetching open data: %w", fetchErr)
			}

			summary := map[string]interface{}{
				"records": len(records),
				"file":    store.Path(storage.OpenDataFile),
			}
			if root.outputFormat() == FormatJSON {
				return writeJSON(cmd.OutOrStdout(), summary)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d records to %s\n", len(records), summary["file"])
			return nil
		},
	}

	return cmd
}

func newEnrichCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Attach saved open data plants to the saved lakes",
		Long: `Matches the records in ` + storage.OpenDataFile + ` to the lakes in ` + storage.LakesFile + `
by county and elevation, keeps the most recent plants per lake, and rewrites the lakes and
flattened files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			store, err := storage.New(cfg.DataDir)
			if err != nil {
				return err
			}

			lakes, err := store.LoadLakes()
			if err != nil {
				return err
			}
			env, err := store.LoadOpenData()
			if err != nil {
				return err
			}

			matched := opendata.Enrich(lakes, env.Data)
			for _, l := range lakes {
				l.KeepRecent(cfg.MaxPlants)
			}

			if err := store.SaveLakes(lakes); err != nil {
				return err
			}
			if err := store.SaveFlat(flatten.Rows(lakes)); err != nil {
				return err
			}

			if root.outputFormat() == FormatJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]int{
					"lakes":   len(lakes),
					"records": len(env.Data),
					"matched": matched,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Matched %d of %d lakes with %d open data records\n", matched, len(lakes), len(env.Data))
			return nil
		},
	}

	return cmd
}

func newFlattenCmd(root *rootOptions) *cobra.Command {
	var stdout bool

	cmd := &cobra.Command{
		Use:   "flatten",
		Short: "Rewrite the flattened plant files from the saved lakes",
		Long: `Denormalizes ` + storage.LakesFile + ` into one row per plant and writes
` + storage.FlatFile + ` and ` + storage.CSVFile + `. With --stdout the rows are printed
instead: JSON for --format json, CSV otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.New(root.cfg.DataDir)
			if err != nil {
				return err
			}
			lakes, err := store.LoadLakes()
			if err != nil {
				return err
			}
			rows := flatten.Rows(lakes)

			if stdout {
				if root.outputFormat() == FormatJSON {
					return flatten.WriteJSON(cmd.OutOrStdout(), rows)
				}
				return flatten.WriteCSV(cmd.OutOrStdout(), rows)
			}

			if err := store.SaveFlat(rows); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows for %d lakes\n", len(rows), len(lakes))
			return nil
		},
	}
	cmd.Flags().BoolVar(&stdout, "stdout", false, "Print rows instead of writing files")

	return cmd
}
