package cli

import (
	"github.com/pfrederiksen/high-lakes/internal/filter"
	"github.com/spf13/cobra"
)

// filterFlags are the plant filter flags shared by several commands
type filterFlags struct {
	dates    string
	since    string
	until    string
	species  []string
	counties []string
	lakes    []string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dates, "dates", "", "Date range, e.g. 'Aug 1-15', 'August' or '2025-07-01..2025-08-15'")
	cmd.Flags().StringVar(&f.since, "since", "", "Only plants on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.until, "until", "", "Only plants on or before this date (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&f.species, "species", nil, "Species substrings to match (repeatable)")
	cmd.Flags().StringSliceVar(&f.counties, "county", nil, "County names to match (repeatable)")
	cmd.Flags().StringSliceVar(&f.lakes, "lake", nil, "Lake name substrings to match (repeatable)")
}

// build turns the flags into a filter. --since and --until override the bounds of --dates.
func (f *filterFlags) build() (*filter.Filter, error) {
	flt := filter.NewFilter()

	if f.dates != "" {
		from, to, err := filter.ParseDateRange(f.dates)
		if err != nil {
			return nil, err
		}
		flt.DateFrom, flt.DateTo = from, to
	}
	if f.since != "" {
		from, err := filter.ParseDate(f.since, false)
		if err != nil {
			return nil, err
		}
		flt.DateFrom = from
	}
	if f.until != "" {
		to, err := filter.ParseDate(f.until, true)
		if err != nil {
			return nil, err
		}
		flt.DateTo = to
	}

	flt.Species = append(flt.Species, f.species...)
	flt.Counties = append(flt.Counties, f.counties...)
	flt.Lakes = append(flt.Lakes, f.lakes...)
	return flt, nil
}
