package lake

import (
	"crypto/sha1"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// MaxRecentPlants is the number of plants retained per lake
const MaxRecentPlants = 10

// Plant sources
const (
	SourceLakePage = "lake-page"
	SourceOpenData = "open-data"
)

// Lake represents a WDFW high lake
type Lake struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	URL         string   `json:"url"`
	Acres       string   `json:"acres"`
	Elevation   string   `json:"elevation"`
	County      string   `json:"county"`
	LocationLat string   `json:"location_lat"`
	LocationLon string   `json:"location_lon"`
	Plants      []*Plant `json:"plants"`
}

// Plant represents a single fish stocking event in a lake
type Plant struct {
	ID           string    `json:"id"`
	Date         string    `json:"date"`
	Species      string    `json:"species"`
	Number       string    `json:"number"`
	FishPerPound string    `json:"fish_per_pound"`
	Hatchery     string    `json:"hatchery"`
	Location     string    `json:"location,omitempty"`
	Source       string    `json:"source"`
	FirstSeen    time.Time `json:"first_seen"`
}

// GenerateLakeID creates a deterministic ID for a lake based on county and name
func GenerateLakeID(county, name string) string {
	h := sha1.New()
	h.Write([]byte(strings.ToUpper(strings.TrimSpace(county)) + "|" + strings.TrimSpace(name)))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// GeneratePlantID creates a deterministic ID for a plant within a lake
func GeneratePlantID(lakeID string, p *Plant) string {
	h := sha1.New()
	h.Write([]byte(strings.Join([]string{lakeID, p.Date, p.Species, p.Number, p.Hatchery}, "|")))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// NewLake creates a Lake with its ID populated
func NewLake(name, url, acres, elevation, county, lat, lon string) *Lake {
	return &Lake{
		ID:          GenerateLakeID(county, name),
		Name:        name,
		URL:         url,
		Acres:       acres,
		Elevation:   elevation,
		County:      county,
		LocationLat: lat,
		LocationLon: lon,
		Plants:      make([]*Plant, 0),
	}
}

// AddPlant assigns the plant its ID and FirstSeen time and appends it to the lake
func (l *Lake) AddPlant(p *Plant) {
	p.ID = GeneratePlantID(l.ID, p)
	if p.FirstSeen.IsZero() {
		p.FirstSeen = time.Now().UTC()
	}
	l.Plants = append(l.Plants, p)
}

// KeepRecent orders plants newest first and keeps at most n of them.
// Plants with unparseable dates sort after dated plants; equal dates keep source order.
// Duplicate plant IDs are collapsed to their first occurrence.
func (l *Lake) KeepRecent(n int) {
	seen := make(map[string]bool, len(l.Plants))
	unique := make([]*Plant, 0, len(l.Plants))
	for _, p := range l.Plants {
		if p.ID != "" && seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		unique = append(unique, p)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		di := ParseDate(unique[i].Date)
		dj := ParseDate(unique[j].Date)
		if di.IsZero() || dj.IsZero() {
			return !di.IsZero() && dj.IsZero()
		}
		return di.After(dj)
	})

	if n >= 0 && len(unique) > n {
		unique = unique[:n]
	}
	l.Plants = unique
}

var digitsPattern = regexp.MustCompile(`\d+`)

// ElevationFeet extracts the numeric elevation from text such as "5305 feet".
// Leading zeros are dropped; returns "" when no number is present.
func ElevationFeet(text string) string {
	match := digitsPattern.FindString(text)
	if match == "" {
		return ""
	}
	trimmed := strings.TrimLeft(match, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}

// MatchKey builds the county/elevation key used to match lakes to open-data plants
func MatchKey(county, elevation string) string {
	return strings.ToUpper(strings.TrimSpace(county)) + "-" + ElevationFeet(elevation)
}
