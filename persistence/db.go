// Package persistence archives finished runs in SQLite.
package persistence

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/pthm-cable/gridcomp/components"
	"github.com/pthm-cable/gridcomp/systems"
	"github.com/pthm-cable/gridcomp/telemetry"
)

// DB wraps a SQLite connection holding the run archive.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
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
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		steps INTEGER NOT NULL,
		grid_size INTEGER NOT NULL,
		started TEXT NOT NULL,
		elapsed_ms INTEGER NOT NULL,
		final_a INTEGER NOT NULL,
		final_b INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		validation_ok INTEGER NOT NULL,
		repaired INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		run_id TEXT NOT NULL,
		step INTEGER NOT NULL,
		count_a INTEGER NOT NULL,
		count_b INTEGER NOT NULL,
		PRIMARY KEY (run_id, step)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		step INTEGER NOT NULL,
		type TEXT NOT NULL,
		species TEXT NOT NULL,
		pair INTEGER NOT NULL,
		parent INTEGER NOT NULL,
		cells TEXT NOT NULL,
		count INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS violations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		species TEXT NOT NULL,
		pair INTEGER,
		cell TEXT NOT NULL,
		detail TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_run_step ON events(run_id, step);
	CREATE INDEX IF NOT EXISTS idx_violations_run ON violations(run_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Report stores a finished run. Runs without an ID are keyed by start time.
func (db *DB) Report(res *telemetry.RunResult) error {
	id := res.RunID
	if id == "" {
		id = res.Started.UTC().Format(time.RFC3339Nano)
	}

	slog.Info("archiving run", "id", id, "events", len(res.Events), "snapshots", len(res.Population))

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	size := 0
	if res.Config != nil {
		size = res.Config.Grid.Size
	}
	_, err = tx.Exec(`INSERT OR REPLACE INTO runs
		(id, seed, steps, grid_size, started, elapsed_ms, final_a, final_b, outcome, validation_ok, repaired)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, res.Seed, res.Steps, size, res.Started.UTC().Format(time.RFC3339Nano), res.Elapsed.Milliseconds(),
		res.FinalCount(components.SpeciesA), res.FinalCount(components.SpeciesB), res.Outcome(), boolInt(res.Validation.OK), boolInt(res.Repair != nil),
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	for _, table := range []string{"snapshots", "events", "violations"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE run_id = ?", id); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	snapStmt, err := tx.Preparex("INSERT INTO snapshots (run_id, step, count_a, count_b) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer snapStmt.Close()
	for _, s := range res.Population {
		if _, err := snapStmt.Exec(id, s.Step, s.CountA, s.CountB); err != nil {
			return fmt.Errorf("save snapshot %d: %w", s.Step, err)
		}
	}

	eventStmt, err := tx.Preparex(`INSERT INTO events (run_id, step, type, species, pair, parent, cells, count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer eventStmt.Close()
	for _, e := range res.Events {
		cells := ""
		if e.Type == telemetry.EventBirth || e.Type == telemetry.EventDeath {
			cells = e.Cells[0].String() + e.Cells[1].String()
		}
		if _, err := eventStmt.Exec(id, e.Step, e.Type.String(), e.Species.String(), uint32(e.Pair), uint32(e.Parent), cells, e.Count); err != nil {
			return fmt.Errorf("save event: %w", err)
		}
	}

	for _, v := range res.Validation.Violations {
		// Unclaimed cells name no pair and store NULL.
		var pair any
		if v.Pair != systems.NoPair {
			pair = uint32(v.Pair)
		}
		_, err := tx.Exec("INSERT INTO violations (run_id, kind, species, pair, cell, detail) VALUES (?, ?, ?, ?, ?, ?)",
			id, string(v.Kind), v.Species.String(), pair, v.Cell.String(), v.Detail)
		if err != nil {
			return fmt.Errorf("save violation: %w", err)
		}
	}

	return tx.Commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// RunRow is one archived run.
type RunRow struct {
	ID           string `db:"id"`
	Seed         int64  `db:"seed"`
	Steps        int    `db:"steps"`
	GridSize     int    `db:"grid_size"`
	Started      string `db:"started"`
	ElapsedMS    int64  `db:"elapsed_ms"`
	FinalA       int    `db:"final_a"`
	FinalB       int    `db:"final_b"`
	Outcome      string `db:"outcome"`
	ValidationOK bool   `db:"validation_ok"`
	Repaired     bool   `db:"repaired"`
}

// Runs returns the most recent runs, newest first.
func (db *DB) Runs(limit int) ([]RunRow, error) {
	var runs []RunRow
	err := db.conn.Select(&runs, "SELECT * FROM runs ORDER BY started DESC LIMIT ?", limit)
	return runs, err
}

// Population returns the archived snapshot series of a run.
func (db *DB) Population(runID string) ([]telemetry.PopulationSnapshot, error) {
	var rows []struct {
		Step   int `db:"step"`
		CountA int `db:"count_a"`
		CountB int `db:"count_b"`
	}
	err := db.conn.Select(&rows, "SELECT step, count_a, count_b FROM snapshots WHERE run_id = ? ORDER BY step", runID)
	if err != nil {
		return nil, err
	}
	out := make([]telemetry.PopulationSnapshot, len(rows))
	for i, r := range rows {
		out[i] = telemetry.PopulationSnapshot{Step: r.Step, CountA: r.CountA, CountB: r.CountB}
	}
	return out, nil
}

// EventCounts returns the number of archived events of each type for a run.
func (db *DB) EventCounts(runID string) (map[string]int, error) {
	var rows []struct {
		Type  string `db:"type"`
		Count int    `db:"n"`
	}
	err := db.conn.Select(&rows, "SELECT type, COUNT(*) AS n FROM events WHERE run_id = ? GROUP BY type", runID)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Type] = r.Count
	}
	return counts, nil
}
