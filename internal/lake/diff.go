package lake

import (
	"sort"
)

// NewPlant pairs a newly seen plant with the lake it was stocked in
type NewPlant struct {
	Lake  *Lake  `json:"lake"`
	Plant *Plant `json:"plant"`
}

// DiffResult contains the results of comparing two snapshots
type DiffResult struct {
	NewPlants []*NewPlant
	ByLake    map[string][]*Plant // new plants grouped by lake ID
}

// Index maps plant IDs to plants across a set of lakes
func Index(lakes []*Lake) map[string]*Plant {
	idx := make(map[string]*Plant)
	for _, l := range lakes {
		for _, p := range l.Plants {
			idx[p.ID] = p
		}
	}
	return idx
}

// Diff compares current lakes against a previous snapshot and returns plants not seen before.
// Plants already known keep their original FirstSeen time.
func Diff(previous, current []*Lake) *DiffResult {
	result := &DiffResult{
		NewPlants: make([]*NewPlant, 0),
		ByLake:    make(map[string][]*Plant),
	}

	known := Index(previous)

	for _, l := range current {
		for _, p := range l.Plants {
			if old, exists := known[p.ID]; exists {
				if !old.FirstSeen.IsZero() {
					p.FirstSeen = old.FirstSeen
				}
				continue
			}
			result.NewPlants = append(result.NewPlants, &NewPlant{Lake: l, Plant: p})
			result.ByLake[l.ID] = append(result.ByLake[l.ID], p)
		}
	}

	sort.SliceStable(result.NewPlants, func(i, j int) bool {
		a, b := result.NewPlants[i], result.NewPlants[j]
		if a.Lake.County != b.Lake.County {
			return a.Lake.County < b.Lake.County
		}
		if a.Lake.Name != b.Lake.Name {
			return a.Lake.Name < b.Lake.Name
		}
		return a.Plant.Time().After(b.Plant.Time())
	})

	return result
}

// CarryForward gives each of the lakes the plants it had in the previous snapshot, matched by
// lake ID. Used for lakes whose page could not be fetched. Returns the number of plants restored.
func CarryForward(previous, lakes []*Lake) int {
	byID := make(map[string]*Lake, len(previous))
	for _, l := range previous {
		byID[l.ID] = l
	}

	restored := 0
	for _, l := range lakes {
		old, ok := byID[l.ID]
		if !ok {
			continue
		}
		l.Plants = append(l.Plants, old.Plants...)
		restored += len(old.Plants)
	}
	return restored
}
