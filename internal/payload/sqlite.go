package payload

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pix-go/internal/index"
	"pix-go/internal/model"
	"pix-go/internal/payload/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLitePayloadStore persists the payload in a SQLite database, one row per
// entry. More compact than JSON at scale and still a single file. Saves run
// in one transaction, which gives the same all-or-nothing visibility as the
// filesystem store's rename.
type SQLitePayloadStore struct {
	db   *sql.DB
	path string
}

var _ index.PayloadStore = (*SQLitePayloadStore)(nil)

// NewSQLitePayloadStore opens (creating if needed) the database at path and
// brings the schema up to date. path can be ":memory:" for tests.
func NewSQLitePayloadStore(path string) (*SQLitePayloadStore, error) {
	db, err := openConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating payload database: %w", err)
	}

	return &SQLitePayloadStore{db: db, path: path}, nil
}

// openConnection opens and configures a SQLite connection with appropriate PRAGMAs.
func openConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (s *SQLitePayloadStore) Close() error {
	return s.db.Close()
}

// Save replaces the stored payload in a single transaction.
func (s *SQLitePayloadStore) Save(p *model.IndexPayload) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM entries"); err != nil {
		return fmt.Errorf("clearing entries: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO entries (
			asset_id, kind, hidden, screenshot, depth_effect, adjustments,
			burst, burst_user_pick, burst_auto_pick,
			pixel_width, pixel_height, latitude, longitude,
			creation_year, places, people, score
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range p.Entries {
		places, err := json.Marshal(e.Places)
		if err != nil {
			return fmt.Errorf("encoding places for %s: %w", e.AssetID, err)
		}
		people, err := json.Marshal(e.People)
		if err != nil {
			return fmt.Errorf("encoding people for %s: %w", e.AssetID, err)
		}

		var lat, long any
		if e.HasLocation {
			lat, long = e.Latitude, e.Longitude
		}

		_, err = stmt.Exec(
			e.AssetID, e.Kind, e.Hidden, e.Screenshot, e.DepthEffect, e.Adjustments,
			e.Burst, e.BurstUserPick, e.BurstAutoPick,
			e.PixelWidth, e.PixelHeight, lat, long,
			e.CreationYear, string(places), string(people), e.Score,
		)
		if err != nil {
			return fmt.Errorf("inserting entry %s: %w", e.AssetID, err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO index_meta (id, schema_version, last_full_build_at)
		VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			schema_version = excluded.schema_version,
			last_full_build_at = excluded.last_full_build_at`,
		p.SchemaVersion, p.LastFullBuildAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("updating index meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing payload: %w", err)
	}
	return nil
}

// Load reads the stored payload. Returns (nil, nil) when nothing has been
// saved yet.
func (s *SQLitePayloadStore) Load() (*model.IndexPayload, error) {
	var version int
	var builtAt string
	err := s.db.QueryRow(
		"SELECT schema_version, last_full_build_at FROM index_meta WHERE id = 1",
	).Scan(&version, &builtAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading index meta: %w", err)
	}
	if version != model.SchemaVersion {
		return nil, fmt.Errorf("payload schema version %d, want %d", version, model.SchemaVersion)
	}

	lastBuild, err := time.Parse(time.RFC3339Nano, builtAt)
	if err != nil {
		return nil, fmt.Errorf("parsing last build time: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT asset_id, kind, hidden, screenshot, depth_effect, adjustments,
			burst, burst_user_pick, burst_auto_pick,
			pixel_width, pixel_height, latitude, longitude,
			creation_year, places, people, score
		FROM entries ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("reading entries: %w", err)
	}
	defer rows.Close()

	p := &model.IndexPayload{
		SchemaVersion:   version,
		LastFullBuildAt: lastBuild,
	}
	for rows.Next() {
		var e model.IndexEntry
		var lat, long sql.NullFloat64
		var places, people string

		err := rows.Scan(
			&e.AssetID, &e.Kind, &e.Hidden, &e.Screenshot, &e.DepthEffect, &e.Adjustments,
			&e.Burst, &e.BurstUserPick, &e.BurstAutoPick,
			&e.PixelWidth, &e.PixelHeight, &lat, &long,
			&e.CreationYear, &places, &people, &e.Score,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}

		if lat.Valid && long.Valid {
			e.HasLocation = true
			e.Latitude = float32(lat.Float64)
			e.Longitude = float32(long.Float64)
		}
		if err := json.Unmarshal([]byte(places), &e.Places); err != nil {
			return nil, fmt.Errorf("decoding places for %s: %w", e.AssetID, err)
		}
		if err := json.Unmarshal([]byte(people), &e.People); err != nil {
			return nil, fmt.Errorf("decoding people for %s: %w", e.AssetID, err)
		}

		p.Entries = append(p.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entries: %w", err)
	}

	return p, nil
}
