package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pfrederiksen/high-lakes/internal/flatten"
	"github.com/pfrederiksen/high-lakes/internal/lake"
	"github.com/pfrederiksen/high-lakes/internal/opendata"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "data"))
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	return store
}

func TestLoadLakes_NoSnapshot(t *testing.T) {
	store := newTestStorage(t)

	lakes, err := store.LoadLakes()
	if err != nil {
		t.Fatalf("LoadLakes() error = %v", err)
	}
	if lakes == nil || len(lakes) != 0 {
		t.Errorf("LoadLakes() = %v, want empty slice", lakes)
	}
}

func TestSaveAndLoadLakes(t *testing.T) {
	store := newTestStorage(t)

	firstSeen := time.Date(2025, 8, 13, 6, 0, 0, 0, time.UTC)
	l := lake.NewLake("Colchuck Lake", "https://wdfw.wa.gov/x", "94.6", "5570 feet", "Chelan", "47.4957", "-120.8339")
	l.AddPlant(&lake.Plant{Date: "08/12/2025", Species: "Rainbow", Number: "900", FirstSeen: firstSeen})

	if err := store.SaveLakes([]*lake.Lake{l}); err != nil {
		t.Fatalf("SaveLakes() error = %v", err)
	}

	loaded, err := store.LoadLakes()
	if err != nil {
		t.Fatalf("LoadLakes() error = %v", err)
	}
	if len(loaded) != 1 || len(loaded[0].Plants) != 1 {
		t.Fatalf("LoadLakes() = %+v, want 1 lake with 1 plant", loaded)
	}
	got := loaded[0].Plants[0]
	if got.ID != l.Plants[0].ID {
		t.Errorf("plant ID = %q, want %q", got.ID, l.Plants[0].ID)
	}
	if !got.FirstSeen.Equal(firstSeen) {
		t.Errorf("FirstSeen = %v, want %v", got.FirstSeen, firstSeen)
	}

	data, err := os.ReadFile(store.Path(LakesFile))
	if err != nil {
		t.Fatalf("reading snapshot: %v", err)
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Error("snapshot should end with a newline")
	}
}

func TestLoadLakes_Corrupt(t *testing.T) {
	store := newTestStorage(t)
	if err := os.WriteFile(store.Path(LakesFile), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := store.LoadLakes(); err == nil {
		t.Error("LoadLakes() expected error for corrupt snapshot")
	}
}

func TestSaveFlat(t *testing.T) {
	store := newTestStorage(t)

	l := lake.NewLake("Lake Augusta", "", "41.2", "6854 feet", "Chelan", "", "")
	if err := store.SaveFlat(flatten.Rows([]*lake.Lake{l})); err != nil {
		t.Fatalf("SaveFlat() error = %v", err)
	}

	for _, name := range []string{FlatFile, CSVFile} {
		info, err := os.Stat(store.Path(name))
		if err != nil {
			t.Errorf("%s not written: %v", name, err)
			continue
		}
		if info.Mode().Perm() != 0644 {
			t.Errorf("%s mode = %v, want 0644", name, info.Mode().Perm())
		}
	}

	// No temp files left behind
	entries, err := os.ReadDir(store.Dir())
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestSaveCountyIDs(t *testing.T) {
	store := newTestStorage(t)

	if err := store.SaveCountyIDs([]string{"24", "41"}); err != nil {
		t.Fatalf("SaveCountyIDs() error = %v", err)
	}

	data, err := os.ReadFile(store.Path(CountiesFile))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"24"`) || !strings.Contains(string(data), `"41"`) {
		t.Errorf("county file = %s", data)
	}
}

func TestSaveAndLoadOpenData(t *testing.T) {
	store := newTestStorage(t)

	env := opendata.NewEnvelope([]opendata.Record{{"county": "CHELAN", "elevation": "5570"}}, time.Now())
	if err := store.SaveOpenData(env); err != nil {
		t.Fatalf("SaveOpenData() error = %v", err)
	}

	loaded, err := store.LoadOpenData()
	if err != nil {
		t.Fatalf("LoadOpenData() error = %v", err)
	}
	if len(loaded.Data) != 1 || loaded.Data[0].String("county") != "CHELAN" {
		t.Errorf("LoadOpenData() = %+v", loaded)
	}
}

func TestNew_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := New("~/lakes-data")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if store.Dir() != filepath.Join(home, "lakes-data") {
		t.Errorf("Dir() = %q, want %q", store.Dir(), filepath.Join(home, "lakes-data"))
	}
}
