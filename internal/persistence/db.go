// Package persistence provides SQLite-based world state storage.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/hexcity/internal/agents"
	"github.com/talgya/hexcity/internal/engine"
	"github.com/talgya/hexcity/internal/world"
)

// Meta keys.
const (
	MetaLastTick    = "last_tick"
	MetaStateDigest = "state_digest"
)

// DB wraps a SQLite connection for world state persistence.
type DB struct {
	conn *sqlx.DB
	path string
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn, path: path}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS people (
		id TEXT PRIMARY KEY,
		q INTEGER NOT NULL,
		r INTEGER NOT NULL,
		role TEXT NOT NULL,
		is_dead INTEGER NOT NULL,
		lifespan INTEGER NOT NULL,
		seq INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS buildings (
		id TEXT PRIMARY KEY,
		q INTEGER NOT NULL,
		r INTEGER NOT NULL,
		seq INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS locations (
		id TEXT PRIMARY KEY,
		q INTEGER NOT NULL,
		r INTEGER NOT NULL,
		seq INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_people_cell ON people(q, r);
	CREATE INDEX IF NOT EXISTS idx_people_dead ON people(is_dead);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type personRow struct {
	ID       string `db:"id"`
	Q        int    `db:"q"`
	R        int    `db:"r"`
	Role     string `db:"role"`
	IsDead   bool   `db:"is_dead"`
	Lifespan int    `db:"lifespan"`
	Seq      int    `db:"seq"`
}

type cellRow struct {
	ID  string `db:"id"`
	Q   int    `db:"q"`
	R   int    `db:"r"`
	Seq int    `db:"seq"`
}

// SaveWorldState writes the snapshot as a full replace inside one
// transaction, so a crash leaves either the old or the new state.
func (db *DB) SaveWorldState(ctx context.Context, snap engine.Snapshot) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"people", "buildings", "locations"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := insertPeople(ctx, tx, snap.People); err != nil {
		return err
	}
	if err := insertCells(ctx, tx, "buildings", buildingRows(snap.Buildings)); err != nil {
		return err
	}
	if err := insertCells(ctx, tx, "locations", locationRows(snap.Locations)); err != nil {
		return err
	}

	meta := map[string]string{
		MetaLastTick:    strconv.FormatUint(snap.Tick, 10),
		MetaStateDigest: strconv.FormatUint(StateDigest(snap), 16),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("save meta %s: %w", k, err)
		}
	}

	return tx.Commit()
}

func insertPeople(ctx context.Context, tx *sqlx.Tx, people []agents.Person) error {
	stmt, err := tx.PreparexContext(ctx, `INSERT INTO people
		(id, q, r, role, is_dead, lifespan, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, p := range people {
		dead := 0
		if p.IsDead {
			dead = 1
		}
		if _, err := stmt.ExecContext(ctx,
			p.ID, p.Position.Q, p.Position.R, string(p.Role), dead, p.Lifespan, i,
		); err != nil {
			return fmt.Errorf("insert person %s: %w", p.ID, err)
		}
	}
	return nil
}

func insertCells(ctx context.Context, tx *sqlx.Tx, table string, rows []cellRow) error {
	stmt, err := tx.PreparexContext(ctx,
		"INSERT INTO "+table+" (id, q, r, seq) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.ID, row.Q, row.R, row.Seq); err != nil {
			return fmt.Errorf("insert %s %s: %w", table, row.ID, err)
		}
	}
	return nil
}

func buildingRows(bs []world.Building) []cellRow {
	rows := make([]cellRow, len(bs))
	for i, b := range bs {
		rows[i] = cellRow{ID: b.ID, Q: b.Position.Q, R: b.Position.R, Seq: i}
	}
	return rows
}

func locationRows(ls []world.Location) []cellRow {
	rows := make([]cellRow, len(ls))
	for i, l := range ls {
		rows[i] = cellRow{ID: l.ID, Q: l.Coord.Q, R: l.Coord.R, Seq: i}
	}
	return rows
}

// LoadWorldState reads the last saved snapshot. Entities come back in the
// order they were saved.
func (db *DB) LoadWorldState(ctx context.Context) (engine.Snapshot, error) {
	var snap engine.Snapshot

	var people []personRow
	if err := db.conn.SelectContext(ctx, &people,
		"SELECT id, q, r, role, is_dead, lifespan, seq FROM people ORDER BY seq"); err != nil {
		return snap, fmt.Errorf("load people: %w", err)
	}
	snap.People = make([]agents.Person, len(people))
	for i, row := range people {
		snap.People[i] = agents.Person{
			ID:       row.ID,
			Position: world.HexCoord{Q: row.Q, R: row.R},
			Role:     agents.Role(row.Role),
			IsDead:   row.IsDead,
			Lifespan: row.Lifespan,
		}
	}

	var buildings []cellRow
	if err := db.conn.SelectContext(ctx, &buildings,
		"SELECT id, q, r, seq FROM buildings ORDER BY seq"); err != nil {
		return snap, fmt.Errorf("load buildings: %w", err)
	}
	snap.Buildings = make([]world.Building, len(buildings))
	for i, row := range buildings {
		snap.Buildings[i] = world.Building{ID: row.ID, Position: world.HexCoord{Q: row.Q, R: row.R}}
	}

	var locations []cellRow
	if err := db.conn.SelectContext(ctx, &locations,
		"SELECT id, q, r, seq FROM locations ORDER BY seq"); err != nil {
		return snap, fmt.Errorf("load locations: %w", err)
	}
	snap.Locations = make([]world.Location, len(locations))
	for i, row := range locations {
		snap.Locations[i] = world.Location{ID: row.ID, Coord: world.HexCoord{Q: row.Q, R: row.R}}
	}

	tick, err := db.GetMeta(MetaLastTick)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return snap, fmt.Errorf("load tick: %w", err)
	default:
		if snap.Tick, err = strconv.ParseUint(tick, 10, 64); err != nil {
			return snap, fmt.Errorf("parse tick %q: %w", tick, err)
		}
	}

	return snap, nil
}

// HasWorldState reports whether a world has been saved.
func (db *DB) HasWorldState(ctx context.Context) (bool, error) {
	var n int
	if err := db.conn.GetContext(ctx, &n, "SELECT COUNT(*) FROM locations"); err != nil {
		return false, err
	}
	return n > 0, nil
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value. Returns sql.ErrNoRows if unset.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// Checkpoint saves snap unless the world is unchanged since the last save,
// in which case only the tick is advanced.
func (db *DB) Checkpoint(ctx context.Context, snap engine.Snapshot) error {
	digest := strconv.FormatUint(StateDigest(snap), 16)
	if prev, err := db.GetMeta(MetaStateDigest); err == nil && prev == digest {
		slog.Debug("world unchanged, skipping checkpoint", "tick", snap.Tick)
		return db.SaveMeta(MetaLastTick, strconv.FormatUint(snap.Tick, 10))
	}

	if err := db.SaveWorldState(ctx, snap); err != nil {
		return fmt.Errorf("checkpoint tick %d: %w", snap.Tick, err)
	}

	attrs := []any{"tick", snap.Tick, "people", len(snap.People)}
	if fi, err := os.Stat(db.path); err == nil {
		attrs = append(attrs, "size", humanize.Bytes(uint64(fi.Size())))
	}
	slog.Info("world state saved", attrs...)
	return nil
}

// StateDigest hashes every entity in snap, ignoring the tick and the order
// entities are listed in.
func StateDigest(snap engine.Snapshot) uint64 {
	lines := make([]string, 0, len(snap.People)+len(snap.Buildings)+len(snap.Locations))
	for _, p := range snap.People {
		lines = append(lines, fmt.Sprintf("p|%s|%d|%d|%s|%t|%d",
			p.ID, p.Position.Q, p.Position.R, p.Role, p.IsDead, p.Lifespan))
	}
	for _, b := range snap.Buildings {
		lines = append(lines, fmt.Sprintf("b|%s|%d|%d", b.ID, b.Position.Q, b.Position.R))
	}
	for _, l := range snap.Locations {
		lines = append(lines, fmt.Sprintf("l|%s|%d|%d", l.ID, l.Coord.Q, l.Coord.R))
	}
	sort.Strings(lines)

	d := xxhash.New()
	for _, l := range lines {
		d.WriteString(l)
		d.WriteString("\n")
	}
	return d.Sum64()
}
