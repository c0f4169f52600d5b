// Package journal records finished chunks in SQLite so an interrupted run can
// resume where it stopped.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/OCharnyshevich/oregen/pkg/world/block"
	"github.com/OCharnyshevich/oregen/pkg/world/chunk"
)

// Key identifies the work a journal entry belongs to. Runs placing a different
// block or touching another world or dimension never see each other's chunks.
func Key(world string, dim int, id block.ID) string {
	if abs, err := filepath.Abs(world); err == nil {
		world = abs
	}
	return fmt.Sprintf("%s|%d|%d", world, dim, int(id))
}

// Journal is one run's view of the journal database.
type Journal struct {
	db    *sql.DB
	key   string
	runID uuid.UUID
}

// Open opens or creates the journal at path and starts a new run under key.
func Open(path, key string, seed uint64) (*Journal, error) {
	if path == "" {
		return nil, fmt.Errorf("empty journal path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	j := &Journal{db: db, key: key, runID: uuid.New()}
	_, err = db.Exec(`INSERT INTO runs(id, key, seed, started_at) VALUES(?, ?, ?, ?)`,
		j.runID.String(), key, int64(seed), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("start run: %w", err)
	}
	return j, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			key TEXT NOT NULL,
			seed INTEGER NOT NULL,
			started_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS chunks (
			key TEXT NOT NULL,
			x INTEGER NOT NULL,
			z INTEGER NOT NULL,
			run_id TEXT NOT NULL REFERENCES runs(id),
			placed INTEGER NOT NULL,
			done_at TEXT NOT NULL,
			PRIMARY KEY (key, x, z)
		);`,
		`CREATE INDEX IF NOT EXISTS chunks_run ON chunks(run_id);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// RunID returns the id assigned to this run.
func (j *Journal) RunID() uuid.UUID {
	return j.runID
}

// Processed reports whether any run under the same key finished pos.
func (j *Journal) Processed(pos chunk.Pos) (bool, error) {
	var n int
	err := j.db.QueryRow(`SELECT COUNT(*) FROM chunks WHERE key = ? AND x = ? AND z = ?`, j.key, pos.X, pos.Z).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RecordChunk marks pos finished by this run.
func (j *Journal) RecordChunk(pos chunk.Pos, placed int) error {
	_, err := j.db.Exec(`INSERT INTO chunks(key, x, z, run_id, placed, done_at) VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(key, x, z) DO UPDATE SET run_id = excluded.run_id, placed = excluded.placed, done_at = excluded.done_at`,
		j.key, pos.X, pos.Z, j.runID.String(), placed, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// RunTotals returns the chunks and cells this run recorded.
func (j *Journal) RunTotals() (chunks, placed int, err error) {
	err = j.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(placed), 0) FROM chunks WHERE run_id = ?`, j.runID.String()).Scan(&chunks, &placed)
	return chunks, placed, err
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}
