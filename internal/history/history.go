// Package history keeps a SQLite archive of every fish plant ever scraped.
//
// Lake pages only list the 10 most recent plants, so older plants drop out of the committed
// snapshot. The archive keeps them, with the first and last time each one was seen.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pfrederiksen/high-lakes/internal/lake"
	_ "modernc.org/sqlite"
)

// Entry is one archived plant
type Entry struct {
	PlantID      string    `json:"plant_id"`
	LakeID       string    `json:"lake_id"`
	LakeName     string    `json:"lake_name"`
	County       string    `json:"county"`
	Date         string    `json:"date"`
	Species      string    `json:"species"`
	Number       string    `json:"number"`
	FishPerPound string    `json:"fish_per_pound"`
	Hatchery     string    `json:"hatchery"`
	Source       string    `json:"source"`
	FirstSeen    time.Time `json:"first_seen"`
	LastSeen     time.Time `json:"last_seen"`
}

// Store is the SQLite-backed archive
type Store struct {
	db         *sql.DB
	existsStmt *sql.Stmt
	upsertStmt *sql.Stmt
	lakeStmt   *sql.Stmt
}

// Open opens or creates the archive at dbPath
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating history db path: %w", err)
	}

	// busy_timeout waits on locks; WAL with synchronous(NORMAL) keeps writes cheap
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", filepath.Clean(dbPath))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.prepare(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS plants (
			plant_id       TEXT    PRIMARY KEY,
			lake_id        TEXT    NOT NULL,
			lake_name      TEXT    NOT NULL,
			county         TEXT    NOT NULL,
			plant_date     TEXT    NOT NULL,
			plant_day      INTEGER NOT NULL,
			species        TEXT    NOT NULL,
			number         TEXT    NOT NULL,
			fish_per_pound TEXT    NOT NULL,
			hatchery       TEXT    NOT NULL,
			source         TEXT    NOT NULL,
			first_seen     INTEGER NOT NULL,
			last_seen      INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_plants_lake
			ON plants (lake_name, plant_day DESC);
	`)
	if err != nil {
		return fmt.Errorf("creating history schema: %w", err)
	}
	return nil
}

func (s *Store) prepare() error {
	var err error

	s.existsStmt, err = s.db.Prepare(`SELECT 1 FROM plants WHERE plant_id = ?`)
	if err != nil {
		return fmt.Errorf("preparing exists statement: %w", err)
	}

	s.upsertStmt, err = s.db.Prepare(`
		INSERT INTO plants (plant_id, lake_id, lake_name, county, plant_date, plant_day,
			species, number, fish_per_pound, hatchery, source, first_seen, last_seen)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(plant_id) DO UPDATE SET last_seen = excluded.last_seen
	`)
	if err != nil {
		return fmt.Errorf("preparing upsert statement: %w", err)
	}

	s.lakeStmt, err = s.db.Prepare(`
		SELECT plant_id, lake_id, lake_name, county, plant_date, species, number,
			fish_per_pound, hatchery, source, first_seen, last_seen
		FROM plants
		WHERE lake_name = ? COLLATE NOCASE
			AND (? = '' OR county = ? COLLATE NOCASE)
		ORDER BY plant_day DESC, first_seen DESC
		LIMIT ?
	`)
	if err != nil {
		return fmt.Errorf("preparing lake statement: %w", err)
	}

	return nil
}

// Close releases the prepared statements and the database
func (s *Store) Close() error {
	for _, stmt := range []*sql.Stmt{s.existsStmt, s.upsertStmt, s.lakeStmt} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
	return s.db.Close()
}

// Record archives every plant of lakes as seen at seenAt.
// Returns the number of plants that were not archived before.
func (s *Store) Record(ctx context.Context, lakes []*lake.Lake, seenAt time.Time) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	exists := tx.StmtContext(ctx, s.existsStmt)
	upsert := tx.StmtContext(ctx, s.upsertStmt)

	seen := seenAt.UTC().Unix()
	added := 0

	for _, l := range lakes {
		for _, p := range l.Plants {
			var one int
			err := exists.QueryRowContext(ctx, p.ID).Scan(&one)
			switch {
			case err == sql.ErrNoRows:
				added++
			case err != nil:
				return 0, fmt.Errorf("checking plant %s: %w", p.ID, err)
			}

			var day int64
			if t := p.Time(); !t.IsZero() {
				day = t.Unix()
			}

			if _, err := upsert.ExecContext(ctx,
				p.ID, l.ID, l.Name, l.County, p.Date, day,
				p.Species, p.Number, p.FishPerPound, p.Hatchery, p.Source,
				seen, seen,
			); err != nil {
				return 0, fmt.Errorf("archiving plant %s: %w", p.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing history: %w", err)
	}
	return added, nil
}

// ForLake returns up to limit archived plants for the named lake, newest plant first.
// An empty county matches the lake in every county. A limit of zero or less returns them all.
func (s *Store) ForLake(ctx context.Context, lakeName, county string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.lakeStmt.QueryContext(ctx, lakeName, county, county, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		var firstSeen, lastSeen int64
		if err := rows.Scan(&e.PlantID, &e.LakeID, &e.LakeName, &e.County, &e.Date,
			&e.Species, &e.Number, &e.FishPerPound, &e.Hatchery, &e.Source,
			&firstSeen, &lastSeen); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}
		e.FirstSeen = time.Unix(firstSeen, 0).UTC()
		e.LastSeen = time.Unix(lastSeen, 0).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	return entries, nil
}

// Count returns the number of archived plants
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM plants`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting history: %w", err)
	}
	return n, nil
}
