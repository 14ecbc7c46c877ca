package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/pfrederiksen/high-lakes/internal/flatten"
	"github.com/pfrederiksen/high-lakes/internal/lake"
	"github.com/pfrederiksen/high-lakes/internal/pipeline"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// OutputResult contains data to be output after a scrape
type OutputResult struct {
	RunID      string        `json:"run_id,omitempty"`
	CheckedAt  time.Time     `json:"checked_at"`
	Lakes      int           `json:"lakes"`
	Plants     int           `json:"plants"`
	Baseline   bool          `json:"baseline,omitempty"`
	NewPlants  []flatten.Row `json:"new_plants"`
	PlantCount int           `json:"plant_count"`
	Commit     string        `json:"commit,omitempty"`
	Filter     string        `json:"filter,omitempty"`
}

// newOutputResult builds the output of a pipeline run for the given (filtered) new plants
func newOutputResult(result *pipeline.Result, plants []*lake.NewPlant, filterDesc string) *OutputResult {
	rows := make([]flatten.Row, 0, len(plants))
	for _, np := range plants {
		rows = append(rows, flatten.RowOf(np.Lake, np.Plant))
	}
	return &OutputResult{
		RunID:      result.RunID,
		CheckedAt:  result.StartedAt,
		Lakes:      result.Lakes,
		Plants:     result.Plants,
		Baseline:   result.Baseline,
		NewPlants:  rows,
		PlantCount: len(rows),
		Commit:     result.Commit,
		Filter:     filterDesc,
	}
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs any value as indented JSON
func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// writeText outputs results as human-readable text, grouped by lake
func writeText(w io.Writer, result *OutputResult, verbose bool) error {
	if verbose {
		fmt.Fprintf(w, "Scraped %d lakes with %d plants\n", result.Lakes, result.Plants)
		if result.Filter != "" {
			fmt.Fprintf(w, "Filter: %s\n", result.Filter)
		}
		if result.Commit != "" {
			fmt.Fprintf(w, "Committed %s\n", result.Commit)
		}
	}

	if result.PlantCount == 0 {
		fmt.Fprintln(w, "No new plants found.")
		return nil
	}

	// Group by lake, keeping the order of first appearance within each group
	groups := make(map[string][]flatten.Row)
	keys := make([]string, 0)
	for _, row := range result.NewPlants {
		key := fmt.Sprintf("%s (%s)", row.Name, row.County)
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], row)
	}
	sort.Strings(keys)

	for _, key := range keys {
		rows := groups[key]
		fmt.Fprintf(w, "\n%s (%d new):\n", key, len(rows))
		for _, row := range rows {
			fmt.Fprintf(w, "  NEW: %s\n", describePlant(row))
			if verbose {
				if row.FishPerPound != "" {
					fmt.Fprintf(w, "       Fish/lb: %s\n", row.FishPerPound)
				}
				if row.Source != "" {
					fmt.Fprintf(w, "       Source: %s\n", row.Source)
				}
				if row.URL != "" {
					fmt.Fprintf(w, "       URL: %s\n", row.URL)
				}
			}
		}
	}

	label := "lakes"
	if len(keys) == 1 {
		label = "lake"
	}
	fmt.Fprintf(w, "\nTotal: %d new plants across %d %s\n", result.PlantCount, len(keys), label)
	if result.Baseline {
		fmt.Fprintln(w, "(first snapshot: every plant is new)")
	}
	return nil
}

// describePlant renders "08/12/2025  1,200 Westslope Cutthroat from TWISP HATCHERY"
func describePlant(row flatten.Row) string {
	date := row.Date
	if date == "" {
		date = "(no date)"
	}

	var parts []string
	if row.Number != "" {
		parts = append(parts, row.Number)
	}
	if row.Species != "" {
		parts = append(parts, row.Species)
	}
	if row.Hatchery != "" {
		parts = append(parts, "from "+row.Hatchery)
	}
	if len(parts) == 0 {
		return date
	}
	return date + "  " + strings.Join(parts, " ")
}

// writeLakes outputs lakes as JSON or one line per lake
func writeLakes(w io.Writer, lakes []*lake.Lake, format OutputFormat, verbose bool) error {
	if format == FormatJSON {
		if lakes == nil {
			lakes = []*lake.Lake{}
		}
		return writeJSON(w, lakes)
	}

	if len(lakes) == 0 {
		fmt.Fprintln(w, "No lakes found.")
		return nil
	}

	plants := 0
	for _, l := range lakes {
		fmt.Fprintf(w, "%s (%s)", l.Name, l.County)
		if l.Elevation != "" {
			fmt.Fprintf(w, ", %s", l.Elevation)
		}
		if l.Acres != "" {
			fmt.Fprintf(w, ", %s acres", l.Acres)
		}
		fmt.Fprintf(w, ": %d plants\n", len(l.Plants))
		plants += len(l.Plants)

		if verbose {
			for _, p := range l.Plants {
				fmt.Fprintf(w, "    %s\n", describePlant(flatten.RowOf(l, p)))
			}
		}
	}
	fmt.Fprintf(w, "\nTotal: %d lakes, %d plants\n", len(lakes), plants)
	return nil
}
