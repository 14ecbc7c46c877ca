package opendata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pfrederiksen/high-lakes/internal/lake"
	"golang.org/x/time/rate"
)

func newTestClient(url string, pageSize int) *Client {
	c := NewClient()
	c.url = url
	c.pageSize = pageSize
	c.limiter = rate.NewLimiter(rate.Inf, 1)
	return c
}

func TestFetchAll_Paging(t *testing.T) {
	const total = 5
	var mu sync.Mutex
	var offsets []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("$limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("$offset"))
		mu.Lock()
		offsets = append(offsets, r.URL.Query().Get("$offset"))
		mu.Unlock()

		page := make([]Record, 0)
		for i := offset; i < offset+limit && i < total; i++ {
			page = append(page, Record{"species": fmt.Sprintf("species-%d", i)})
		}
		json.NewEncoder(w).Encode(page)
	}))
	defer server.Close()

	c := newTestClient(server.URL, 2)
	records, err := c.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	if len(records) != total {
		t.Errorf("FetchAll() returned %d records, want %d", len(records), total)
	}
	mu.Lock()
	defer mu.Unlock()
	if got := strings.Join(offsets, ","); got != "0,2,4" {
		t.Errorf("requested offsets %s, want 0,2,4", got)
	}
}

func TestFetchAll_ExactMultiple(t *testing.T) {
	var mu sync.Mutex
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests++
		mu.Unlock()
		if r.URL.Query().Get("$offset") == "0" {
			w.Write([]byte(`[{"species":"a"},{"species":"b"}]`))
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	records, err := newTestClient(server.URL, 2).FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(records) != 2 || requests != 2 {
		t.Errorf("got %d records in %d requests, want 2 in 2", len(records), requests)
	}
}

func TestFetchAll_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"HTTP error", http.StatusTooManyRequests, "", "unexpected status code: 429"},
		{"bad JSON", http.StatusOK, "{not json", "decoding page"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL, 10).FetchAll(context.Background())
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("FetchAll() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestRecordPlant(t *testing.T) {
	r := Record{
		"release_start_date":       "2025-07-14T00:00:00.000",
		"species":                  " Rainbow ",
		"number_released":          "500",
		"number_of_fish_per_pound": 2.5,
		"hatchery":                 "TWISP HATCHERY",
		"release_location":         "COLCHUCK LK (CHEL)",
	}

	p := r.Plant()

	if p.Date != "2025-07-14T00:00:00.000" || p.Species != "Rainbow" || p.Number != "500" ||
		p.FishPerPound != "2.5" || p.Hatchery != "TWISP HATCHERY" || p.Location != "COLCHUCK LK (CHEL)" {
		t.Errorf("Plant() = %+v", *p)
	}
	if p.Source != lake.SourceOpenData {
		t.Errorf("Source = %q, want %q", p.Source, lake.SourceOpenData)
	}
}

func TestNewEnvelope(t *testing.T) {
	at := time.Date(2025, 7, 14, 12, 0, 0, 0, time.UTC)
	env := NewEnvelope([]Record{{}, {}}, at)

	if env.Source != SourceName || env.Status != "success" {
		t.Errorf("unexpected envelope header: %+v", env)
	}
	if env.LastUpdated != "2025-07-14T12:00:00Z" {
		t.Errorf("LastUpdated = %q", env.LastUpdated)
	}
	if !strings.HasSuffix(env.Message, "Total records: 2") {
		t.Errorf("Message = %q", env.Message)
	}
}

func TestNewErrorEnvelope(t *testing.T) {
	at := time.Date(2025, 7, 14, 12, 0, 0, 0, time.UTC)
	env := NewErrorEnvelope(errors.New("unexpected status code: 503"), at)

	if env.Status != "error" || env.Message != "unexpected status code: 503" {
		t.Errorf("unexpected envelope: %+v", env)
	}
	if env.Data == nil || len(env.Data) != 0 {
		t.Errorf("Data = %v, want empty slice", env.Data)
	}
}
