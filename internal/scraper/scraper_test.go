package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/pfrederiksen/high-lakes/internal/lake"
	"golang.org/x/time/rate"
)

const lakesPath = "/fishing/locations/high-lakes"

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("../../testdata/fixtures/" + name)
	if err != nil {
		t.Fatalf("failed to load test fixture: %v", err)
	}
	return data
}

// newTestSite serves the fixtures the way the WDFW site lays out its pages
func newTestSite(t *testing.T) (*httptest.Server, *int32) {
	t.Helper()

	search := loadFixture(t, "high_lakes_search.html")
	page0 := loadFixture(t, "high_lakes_chelan_page0.html")
	page1 := loadFixture(t, "high_lakes_chelan_page1.html")
	empty := loadFixture(t, "high_lakes_empty.html")
	colchuck := loadFixture(t, "lake_colchuck.html")
	loading := loadFixture(t, "lake_loading.html")

	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)

		if userAgent := r.Header.Get("User-Agent"); !strings.Contains(userAgent, "high-lakes") {
			t.Errorf("User-Agent = %q, should contain 'high-lakes'", userAgent)
		}

		switch r.URL.Path {
		case lakesPath:
			county := r.URL.Query().Get("county[]")
			page := r.URL.Query().Get("page")
			switch {
			case county == "":
				w.Write(search)
			case county == "24" && page == "0":
				w.Write(page0)
			case county == "24" && page == "1":
				w.Write(page1)
			default:
				w.Write(empty)
			}
		case lakesPath + "/colchuck-lake":
			w.Write(colchuck)
		case lakesPath + "/lake-augusta":
			w.Write(loading)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	t.Cleanup(server.Close)

	return server, &requests
}

func newTestScraper(server *httptest.Server) *Scraper {
	s := New()
	s.url = server.URL + lakesPath
	s.limiter = rate.NewLimiter(rate.Inf, 1)
	return s
}

func TestFetchCountyIDs(t *testing.T) {
	server, _ := newTestSite(t)
	s := newTestScraper(server)

	ids, err := s.FetchCountyIDs(context.Background())
	if err != nil {
		t.Fatalf("FetchCountyIDs() error = %v", err)
	}

	want := []string{"24", "41"}
	if len(ids) != len(want) {
		t.Fatalf("FetchCountyIDs() = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestFetchCountyIDs_Errors(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantIs     error
	}{
		{
			name:       "HTTP error",
			statusCode: http.StatusServiceUnavailable,
		},
		{
			name:       "no county select",
			statusCode: http.StatusOK,
			body:       "<html><body><p>Maintenance</p></body></html>",
			wantIs:     ErrNoCountySelect,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			s := newTestScraper(server)
			_, err := s.FetchCountyIDs(context.Background())
			if err == nil {
				t.Fatal("FetchCountyIDs() expected error, got nil")
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("FetchCountyIDs() error = %v, want %v", err, tt.wantIs)
			}
		})
	}
}

func TestFetchLakes_Pagination(t *testing.T) {
	server, requests := newTestSite(t)
	s := newTestScraper(server)

	lakes, err := s.FetchLakes(context.Background(), "24")
	if err != nil {
		t.Fatalf("FetchLakes() error = %v", err)
	}

	if len(lakes) != 3 {
		t.Fatalf("FetchLakes() returned %d lakes, want 3", len(lakes))
	}
	if got := atomic.LoadInt32(requests); got != 2 {
		t.Errorf("expected 2 page requests, got %d", got)
	}

	augusta := lakes[0]
	if augusta.Name != "Lake Augusta" {
		t.Errorf("Name = %q, want Lake Augusta", augusta.Name)
	}
	if augusta.URL != server.URL+lakesPath+"/lake-augusta" {
		t.Errorf("URL = %q, want absolute lake URL", augusta.URL)
	}
	if augusta.Acres != "41.2" || augusta.Elevation != "6854 feet" || augusta.County != "Chelan" {
		t.Errorf("unexpected lake fields: %+v", augusta)
	}
	if augusta.LocationLat != "47.4912" || augusta.LocationLon != "-120.8201" {
		t.Errorf("location = %s,%s, want 47.4912,-120.8201", augusta.LocationLat, augusta.LocationLon)
	}
	if augusta.ID == "" {
		t.Error("lake ID should be set")
	}

	// Row without a location cell
	eightmile := lakes[2]
	if eightmile.LocationLat != "" || eightmile.LocationLon != "" {
		t.Errorf("expected empty location, got %s,%s", eightmile.LocationLat, eightmile.LocationLon)
	}
}

func TestFetchLakes_EmptyCounty(t *testing.T) {
	server, _ := newTestSite(t)
	s := newTestScraper(server)

	lakes, err := s.FetchLakes(context.Background(), "41")
	if err != nil {
		t.Fatalf("FetchLakes() error = %v", err)
	}
	if len(lakes) != 0 {
		t.Errorf("FetchLakes() returned %d lakes, want 0", len(lakes))
	}
}

func TestFetchAll(t *testing.T) {
	server, _ := newTestSite(t)
	s := newTestScraper(server)

	lakes, err := s.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	if len(lakes) != 3 {
		t.Fatalf("FetchAll() returned %d lakes, want 3", len(lakes))
	}

	plantsByLake := make(map[string]int)
	for _, l := range lakes {
		plantsByLake[l.Name] = len(l.Plants)
	}

	want := map[string]int{
		"Lake Augusta":   0, // table still loading
		"Colchuck Lake":  3,
		"Eightmile Lake": 0, // page returns 500
	}
	for name, count := range want {
		if plantsByLake[name] != count {
			t.Errorf("%s has %d plants, want %d", name, plantsByLake[name], count)
		}
	}
}

func TestFetchAllPlants_Report(t *testing.T) {
	server, _ := newTestSite(t)
	s := newTestScraper(server)
	ctx := context.Background()

	lakes, err := s.FetchLakesFor(ctx, []string{"24"})
	if err != nil {
		t.Fatalf("FetchLakesFor() error = %v", err)
	}

	report, err := s.FetchAllPlants(ctx, lakes)
	if err != nil {
		t.Fatalf("FetchAllPlants() error = %v", err)
	}
	if report.Unrendered != 1 {
		t.Errorf("Unrendered = %d, want 1", report.Unrendered)
	}
	if len(report.Failed) != 1 || report.Failed[0].Name != "Eightmile Lake" {
		t.Errorf("Failed = %v, want only Eightmile Lake", report.Failed)
	}
}

func TestFetchPlants_NotRendered(t *testing.T) {
	server, _ := newTestSite(t)
	s := newTestScraper(server)

	l := lake.NewLake("Lake Augusta", server.URL+lakesPath+"/lake-augusta", "", "", "Chelan", "", "")
	err := s.FetchPlants(context.Background(), l)
	if !errors.Is(err, ErrPlantsNotRendered) {
		t.Errorf("FetchPlants() error = %v, want ErrPlantsNotRendered", err)
	}

	l = lake.NewLake("Colchuck Lake", server.URL+lakesPath+"/colchuck-lake", "", "", "Chelan", "", "")
	if err := s.FetchPlants(context.Background(), l); err != nil {
		t.Errorf("FetchPlants() error = %v", err)
	}
}

func TestFetchAll_Canceled(t *testing.T) {
	server, _ := newTestSite(t)
	s := newTestScraper(server)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.FetchAll(ctx); err == nil {
		t.Error("FetchAll() expected error for canceled context")
	}
}

func TestCountyPageURL(t *testing.T) {
	s := New()
	got := s.countyPageURL("24", 3)
	want := HighLakesURL + "?name=&county%5B%5D=24&page=3"
	if got != want {
		t.Errorf("countyPageURL() = %q, want %q", got, want)
	}
}
