// Package filter narrows plant reports and notifications.
//
// Criteria combine with AND; within a list (species, counties, lakes) any entry may match:
//   - Date range (from/to dates, inclusive)
//   - Species (substring matching, case-insensitive)
//   - Counties (exact name, case-insensitive)
//   - Lakes (substring matching, case-insensitive)
//
// Example usage:
//
//	// Only cutthroat plants in Chelan County since August
//	f := filter.NewFilter()
//	f.Species = []string{"cutthroat"}
//	f.Counties = []string{"Chelan"}
//	f.DateFrom, _, _ = filter.ParseDateRange("Aug")
//
//	filtered := f.Apply(result.NewPlants)
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/high-lakes/internal/lake"
)

// Filter represents plant filtering criteria
type Filter struct {
	// Date range filtering
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`

	// Species filtering (case-insensitive substring match)
	Species []string `json:"species,omitempty"`

	// County filtering (case-insensitive exact match)
	Counties []string `json:"counties,omitempty"`

	// Lake name filtering (case-insensitive substring match)
	Lakes []string `json:"lakes,omitempty"`
}

// NewFilter creates a new empty filter with no active criteria.
// The filter will match all plants until criteria are added.
func NewFilter() *Filter {
	return &Filter{
		Species:  []string{},
		Counties: []string{},
		Lakes:    []string{},
	}
}

// IsEmpty checks if the filter has any active criteria.
func (f *Filter) IsEmpty() bool {
	return f.DateFrom == nil &&
		f.DateTo == nil &&
		len(f.Species) == 0 &&
		len(f.Counties) == 0 &&
		len(f.Lakes) == 0
}

// hasPlantCriteria reports whether any criterion looks at the plant rather than the lake.
func (f *Filter) hasPlantCriteria() bool {
	return f.DateFrom != nil || f.DateTo != nil || len(f.Species) > 0
}

// MatchesLake checks the lake-level criteria (county and lake name).
func (f *Filter) MatchesLake(l *lake.Lake) bool {
	if len(f.Counties) > 0 {
		matched := false
		for _, county := range f.Counties {
			if strings.EqualFold(strings.TrimSpace(l.County), strings.TrimSpace(county)) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	return len(f.Lakes) == 0 || containsAny(l.Name, f.Lakes)
}

// Matches checks if a plant at the given lake matches all active filter criteria.
// An empty filter matches all plants.
//
// Plants whose date cannot be parsed never match a date range.
func (f *Filter) Matches(l *lake.Lake, p *lake.Plant) bool {
	if f.IsEmpty() {
		return true
	}

	if !f.MatchesLake(l) {
		return false
	}

	if f.DateFrom != nil || f.DateTo != nil {
		date := p.Time()
		if date.IsZero() {
			return false
		}
		if f.DateFrom != nil && date.Before(*f.DateFrom) {
			return false
		}
		if f.DateTo != nil && date.After(*f.DateTo) {
			return false
		}
	}

	if len(f.Species) > 0 && !containsAny(p.Species, f.Species) {
		return false
	}

	return true
}

// Apply applies the filter to a list of new plants and returns only matching ones.
// If the filter is empty, returns the original list unchanged.
func (f *Filter) Apply(plants []*lake.NewPlant) []*lake.NewPlant {
	if f.IsEmpty() {
		return plants
	}

	var filtered []*lake.NewPlant
	for _, np := range plants {
		if f.Matches(np.Lake, np.Plant) {
			filtered = append(filtered, np)
		}
	}

	return filtered
}

// ApplyLakes returns copies of the lakes that match, each carrying only its matching plants.
// When only lake-level criteria are set, lakes without plants are kept; otherwise a lake
// with no matching plants is dropped. The input lakes are not modified.
func (f *Filter) ApplyLakes(lakes []*lake.Lake) []*lake.Lake {
	if f.IsEmpty() {
		return lakes
	}

	var filtered []*lake.Lake
	for _, l := range lakes {
		if !f.MatchesLake(l) {
			continue
		}

		cp := *l
		cp.Plants = nil
		for _, p := range l.Plants {
			if f.Matches(l, p) {
				cp.Plants = append(cp.Plants, p)
			}
		}

		if len(cp.Plants) == 0 && f.hasPlantCriteria() {
			continue
		}
		filtered = append(filtered, &cp)
	}

	return filtered
}

// String returns a human-readable description of the active filter criteria.
// Format: "From: Aug 1, 2025 | To: Aug 31, 2025 | Species: cutthroat | Counties: Chelan"
func (f *Filter) String() string {
	if f.IsEmpty() {
		return "No active filters"
	}

	var parts []string

	if f.DateFrom != nil {
		parts = append(parts, fmt.Sprintf("From: %s", f.DateFrom.Format("Jan 2, 2006")))
	}

	if f.DateTo != nil {
		parts = append(parts, fmt.Sprintf("To: %s", f.DateTo.Format("Jan 2, 2006")))
	}

	if len(f.Species) > 0 {
		parts = append(parts, fmt.Sprintf("Species: %s", strings.Join(f.Species, ", ")))
	}

	if len(f.Counties) > 0 {
		parts = append(parts, fmt.Sprintf("Counties: %s", strings.Join(f.Counties, ", ")))
	}

	if len(f.Lakes) > 0 {
		parts = append(parts, fmt.Sprintf("Lakes: %s", strings.Join(f.Lakes, ", ")))
	}

	return strings.Join(parts, " | ")
}

// Clone creates a deep copy of the filter.
func (f *Filter) Clone() *Filter {
	clone := &Filter{
		Species:  append([]string{}, f.Species...),
		Counties: append([]string{}, f.Counties...),
		Lakes:    append([]string{}, f.Lakes...),
	}

	if f.DateFrom != nil {
		df := *f.DateFrom
		clone.DateFrom = &df
	}

	if f.DateTo != nil {
		dt := *f.DateTo
		clone.DateTo = &dt
	}

	return clone
}

func containsAny(s string, needles []string) bool {
	lower := strings.ToLower(s)
	for _, n := range needles {
		if strings.Contains(lower, strings.ToLower(strings.TrimSpace(n))) {
			return true
		}
	}
	return false
}
