package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pfrederiksen/high-lakes/internal/flatten"
	"github.com/pfrederiksen/high-lakes/internal/lake"
	"github.com/pfrederiksen/high-lakes/internal/opendata"
)

// Snapshot file names
const (
	LakesFile    = "high_lakes.json"
	FlatFile     = "high_lakes_plants.json"
	CSVFile      = "high_lakes_plants.csv"
	CountiesFile = "county_ids.json"
	OpenDataFile = "wdfw_fish_plants.json"
)

// Storage handles persistence of snapshot files
type Storage struct {
	dataDir string
}

// New creates a new Storage instance
func New(dataDir string) (*Storage, error) {
	// Expand ~ to home directory
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &Storage{
		dataDir: dataDir,
	}, nil
}

// Dir returns the data directory
func (s *Storage) Dir() string {
	return s.dataDir
}

// Path returns the path of a file in the data directory
func (s *Storage) Path(name string) string {
	return filepath.Join(s.dataDir, name)
}

// LoadLakes loads the nested lakes snapshot. A missing file yields no lakes.
func (s *Storage) LoadLakes() ([]*lake.Lake, error) {
	data, err := os.ReadFile(s.Path(LakesFile))
	if err != nil {
		if os.IsNotExist(err) {
			// No previous snapshot
			return []*lake.Lake{}, nil
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var lakes []*lake.Lake
	if err := json.Unmarshal(data, &lakes); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	if lakes == nil {
		lakes = []*lake.Lake{}
	}
	return lakes, nil
}

// SaveLakes saves the nested lakes snapshot
func (s *Storage) SaveLakes(lakes []*lake.Lake) error {
	if lakes == nil {
		lakes = []*lake.Lake{}
	}
	return s.writeJSON(LakesFile, lakes)
}

// SaveFlat saves the flattened rows as JSON and CSV
func (s *Storage) SaveFlat(rows []flatten.Row) error {
	if err := s.writeFile(FlatFile, func(w io.Writer) error {
		return flatten.WriteJSON(w, rows)
	}); err != nil {
		return err
	}
	return s.writeFile(CSVFile, func(w io.Writer) error {
		return flatten.WriteCSV(w, rows)
	})
}

// SaveCountyIDs saves the county IDs offered by the search form
func (s *Storage) SaveCountyIDs(ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	return s.writeJSON(CountiesFile, ids)
}

// SaveOpenData saves a full open data download
func (s *Storage) SaveOpenData(env *opendata.Envelope) error {
	return s.writeJSON(OpenDataFile, env)
}

// LoadOpenData loads a previously saved open data download
func (s *Storage) LoadOpenData() (*opendata.Envelope, error) {
	data, err := os.ReadFile(s.Path(OpenDataFile))
	if err != nil {
		return nil, fmt.Errorf("reading open data: %w", err)
	}

	var env opendata.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parsing open data: %w", err)
	}
	return &env, nil
}

// writeJSON writes v as indented JSON
func (s *Storage) writeJSON(name string, v interface{}) error {
	return s.writeFile(name, func(w io.Writer) error {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(v); err != nil {
			return fmt.Errorf("encoding %s: %w", name, err)
		}
		return nil
	})
}

// writeFile writes through a temporary file that is renamed into place on success
func (s *Storage) writeFile(name string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(s.dataDir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // nolint:errcheck

	if err := write(tmp); err != nil {
		tmp.Close() // nolint:errcheck
		return err
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close() // nolint:errcheck
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.Path(name)); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}
