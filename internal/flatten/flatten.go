// Package flatten denormalizes lakes and their plants into one row per plant.
//
// The rows back the tabular outputs: a JSON array suited to flat-file viewers and a CSV file.
// A lake without plants still yields a single row so every lake appears in the table.
package flatten

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pfrederiksen/high-lakes/internal/lake"
)

// Columns lists the row fields in output order
var Columns = []string{
	"name", "url", "acres", "elevation", "county", "location_lat", "location_lon",
	"date", "species", "number", "fish_per_pound", "hatchery", "source",
}

// Row is one lake joined with one of its plants
type Row struct {
	Name         string `json:"name"`
	URL          string `json:"url"`
	Acres        string `json:"acres"`
	Elevation    string `json:"elevation"`
	County       string `json:"county"`
	LocationLat  string `json:"location_lat"`
	LocationLon  string `json:"location_lon"`
	Date         string `json:"date"`
	Species      string `json:"species"`
	Number       string `json:"number"`
	FishPerPound string `json:"fish_per_pound"`
	Hatchery     string `json:"hatchery"`
	Source       string `json:"source"`
}

// Values returns the row's fields in Columns order
func (r Row) Values() []string {
	return []string{
		r.Name, r.URL, r.Acres, r.Elevation, r.County, r.LocationLat, r.LocationLon,
		r.Date, r.Species, r.Number, r.FishPerPound, r.Hatchery, r.Source,
	}
}

// Rows flattens lakes into rows, following lake order and then plant order
func Rows(lakes []*lake.Lake) []Row {
	rows := make([]Row, 0, len(lakes))

	for _, l := range lakes {
		if len(l.Plants) == 0 {
			rows = append(rows, RowOf(l, nil))
			continue
		}
		for _, p := range l.Plants {
			rows = append(rows, RowOf(l, p))
		}
	}

	return rows
}

// RowOf joins a lake with one plant. A nil plant leaves the plant columns empty.
func RowOf(l *lake.Lake, p *lake.Plant) Row {
	row := Row{
		Name:        l.Name,
		URL:         l.URL,
		Acres:       l.Acres,
		Elevation:   l.Elevation,
		County:      l.County,
		LocationLat: l.LocationLat,
		LocationLon: l.LocationLon,
	}
	if p != nil {
		row.Date = p.Date
		row.Species = p.Species
		row.Number = p.Number
		row.FishPerPound = p.FishPerPound
		row.Hatchery = p.Hatchery
		row.Source = p.Source
	}
	return row
}

// NewPlant rebuilds the lake and plant a row was made from, IDs included.
// Rows without a plant return nil.
func (r Row) NewPlant() *lake.NewPlant {
	if r.Date == "" && r.Species == "" && r.Number == "" && r.Hatchery == "" {
		return nil
	}
	l := lake.NewLake(r.Name, r.URL, r.Acres, r.Elevation, r.County, r.LocationLat, r.LocationLon)
	p := &lake.Plant{
		Date:         r.Date,
		Species:      r.Species,
		Number:       r.Number,
		FishPerPound: r.FishPerPound,
		Hatchery:     r.Hatchery,
		Source:       r.Source,
	}
	l.AddPlant(p)
	return &lake.NewPlant{Lake: l, Plant: p}
}

// WriteJSON writes rows as an indented JSON array
func WriteJSON(w io.Writer, rows []Row) error {
	if rows == nil {
		rows = []Row{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(rows); err != nil {
		return fmt.Errorf("encoding rows: %w", err)
	}
	return nil
}

// WriteCSV writes a header line followed by one line per row
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.Values()); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
