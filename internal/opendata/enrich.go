package opendata

import (
	"strconv"
	"strings"

	"github.com/pfrederiksen/high-lakes/internal/lake"
)

// recordKey returns the county/elevation key of a record, or "" when the record has no
// county or its elevation is not an integer
func recordKey(r Record) string {
	county := r.String("county")
	if county == "" {
		return ""
	}
	elevation, err := strconv.Atoi(strings.TrimSpace(r.String("elevation")))
	if err != nil {
		return ""
	}
	return lake.MatchKey(county, strconv.Itoa(elevation))
}

// Enrich attaches records to the lakes whose county and elevation they match.
// Returns the number of lakes that received at least one plant.
func Enrich(lakes []*lake.Lake, records []Record) int {
	lookup := make(map[string][]Record)
	for _, r := range records {
		key := recordKey(r)
		if key == "" {
			continue
		}
		lookup[key] = append(lookup[key], r)
	}

	matched := 0
	for _, l := range lakes {
		if lake.ElevationFeet(l.Elevation) == "" {
			continue
		}
		matches, ok := lookup[lake.MatchKey(l.County, l.Elevation)]
		if !ok {
			continue
		}
		for _, r := range matches {
			l.AddPlant(r.Plant())
		}
		matched++
	}
	return matched
}
