package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pfrederiksen/high-lakes/internal/lake"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByDate   SortOrder = "date"
	SortByCounty SortOrder = "county"
	SortByLake   SortOrder = "lake"
)

// parseSortOrder validates a --sort value; empty keeps the pipeline's order
func parseSortOrder(s string) (SortOrder, error) {
	order := SortOrder(strings.ToLower(strings.TrimSpace(s)))
	switch order {
	case "", SortByDate, SortByCounty, SortByLake:
		return order, nil
	default:
		return "", fmt.Errorf("invalid sort: %s (must be 'date', 'county' or 'lake')", s)
	}
}

// sortPlants sorts new plants based on the specified sort order
func sortPlants(plants []*lake.NewPlant, sortOrder SortOrder) {
	switch sortOrder {
	case SortByDate:
		sort.SliceStable(plants, func(i, j int) bool {
			return compareByDate(plants[i], plants[j])
		})
	case SortByCounty:
		sort.SliceStable(plants, func(i, j int) bool {
			if plants[i].Lake.County != plants[j].Lake.County {
				return plants[i].Lake.County < plants[j].Lake.County
			}
			// If counties are equal, sort by date
			return compareByDate(plants[i], plants[j])
		})
	case SortByLake:
		sort.SliceStable(plants, func(i, j int) bool {
			a, b := strings.ToLower(plants[i].Lake.Name), strings.ToLower(plants[j].Lake.Name)
			if a != b {
				return a < b
			}
			return compareByDate(plants[i], plants[j])
		})
	}
}

// compareByDate returns true if plant i should come before plant j: newest first,
// undated plants last, then by lake name
func compareByDate(i, j *lake.NewPlant) bool {
	dateI := i.Plant.Time()
	dateJ := j.Plant.Time()

	if !dateI.IsZero() && !dateJ.IsZero() && !dateI.Equal(dateJ) {
		return dateI.After(dateJ)
	}

	// If only one date is valid, put the valid one first
	if !dateI.IsZero() && dateJ.IsZero() {
		return true
	}
	if dateI.IsZero() && !dateJ.IsZero() {
		return false
	}

	return strings.ToLower(i.Lake.Name) < strings.ToLower(j.Lake.Name)
}
