// Package catalog records snapshot builds and patch applications in a
// local SQLite database. The catalog is advisory history: it never affects
// engine results.
package catalog

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fsnap/internal/catalog/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Clock abstracts time retrieval so catalog rows are deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator abstracts unique ID generation so tests are deterministic.
type IDGenerator interface {
	New() string
}

// UUIDGenerator produces random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }

// SnapshotRun is one recorded snapshot build.
type SnapshotRun struct {
	ID         string
	Root       string
	EntryCount int64
	FileBytes  int64
	CreatedAt  time.Time
}

// PatchRun is one recorded patch application.
type PatchRun struct {
	ID            string
	Destination   string
	ChangeCount   int64
	ConflictCount int64
	CreatedAt     time.Time
}

// Catalog wraps the run-history database.
type Catalog struct {
	db    *sql.DB
	clock Clock
	idgen IDGenerator
}

// Open opens (creating if needed) the catalog database at path and brings
// its schema up to date. path can be ":memory:" for tests.
func Open(path string, clock Clock, idgen IDGenerator) (*Catalog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := migrations.Up(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating catalog schema: %w", err)
	}

	return &Catalog{db: db, clock: clock, idgen: idgen}, nil
}

// Close releases the underlying database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// RecordSnapshot inserts a row for a completed snapshot build.
func (c *Catalog) RecordSnapshot(root string, entryCount int, fileBytes int64) (*SnapshotRun, error) {
	run := &SnapshotRun{
		ID:         c.idgen.New(),
		Root:       root,
		EntryCount: int64(entryCount),
		FileBytes:  fileBytes,
		CreatedAt:  c.clock.Now(),
	}
	_, err := c.db.Exec(
		`INSERT INTO snapshot_runs (id, root, entry_count, file_bytes, created_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Root, run.EntryCount, run.FileBytes, run.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("recording snapshot run: %w", err)
	}
	return run, nil
}

// RecordPatch inserts a row for a completed patch application.
func (c *Catalog) RecordPatch(destination string, changeCount, conflictCount int) (*PatchRun, error) {
	run := &PatchRun{
		ID:            c.idgen.New(),
		Destination:   destination,
		ChangeCount:   int64(changeCount),
		ConflictCount: int64(conflictCount),
		CreatedAt:     c.clock.Now(),
	}
	_, err := c.db.Exec(
		`INSERT INTO patch_runs (id, destination, change_count, conflict_count, created_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Destination, run.ChangeCount, run.ConflictCount, run.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("recording patch run: %w", err)
	}
	return run, nil
}

// ListSnapshots returns recorded snapshot builds, newest first.
func (c *Catalog) ListSnapshots() ([]*SnapshotRun, error) {
	rows, err := c.db.Query(
		`SELECT id, root, entry_count, file_bytes, created_at FROM snapshot_runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("listing snapshot runs: %w", err)
	}
	defer rows.Close()

	var runs []*SnapshotRun
	for rows.Next() {
		run := &SnapshotRun{}
		if err := rows.Scan(&run.ID, &run.Root, &run.EntryCount, &run.FileBytes, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning snapshot run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshot runs: %w", err)
	}
	return runs, nil
}

// ListPatches returns recorded patch applications, newest first.
func (c *Catalog) ListPatches() ([]*PatchRun, error) {
	rows, err := c.db.Query(
		`SELECT id, destination, change_count, conflict_count, created_at FROM patch_runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("listing patch runs: %w", err)
	}
	defer rows.Close()

	var runs []*PatchRun
	for rows.Next() {
		run := &PatchRun{}
		if err := rows.Scan(&run.ID, &run.Destination, &run.ChangeCount, &run.ConflictCount, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning patch run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating patch runs: %w", err)
	}
	return runs, nil
}
