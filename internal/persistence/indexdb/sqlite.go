package indexdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"playerworld.gg/internal/sim/game"
)

// SQLiteIndex is a read-model audit index. Writes are queued to a single
// writer goroutine so the tick loop never waits on disk.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan game.AuditEntry
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

func OpenSQLite(path, worldID, runID string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
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

	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			world_id TEXT NOT NULL,
			started_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS audit (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			client_id INTEGER NOT NULL,
			action TEXT NOT NULL,
			x REAL, y REAL, z REAL,
			radius REAL,
			material INTEGER,
			detail TEXT,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audit_tick ON audit(run_id, tick);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init schema: %w", err)
		}
	}
	if _, err := db.Exec(
		`INSERT OR IGNORE INTO runs(run_id, world_id, started_at) VALUES(?,?,?)`,
		runID, worldID, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		_ = db.Close()
		return nil, err
	}

	idx := &SQLiteIndex{
		db: db,
		ch: make(chan game.AuditEntry, 1024),
	}
	idx.wg.Add(1)
	go idx.writer(runID)
	return idx, nil
}

// WriteAudit implements game.AuditLogger. It never blocks: entries are
// dropped when the queue is full or the index is closed.
func (x *SQLiteIndex) WriteAudit(entry game.AuditEntry) error {
	if x.closed.Load() {
		return nil
	}
	select {
	case x.ch <- entry:
	default:
	}
	return nil
}

func (x *SQLiteIndex) writer(runID string) {
	defer x.wg.Done()
	for entry := range x.ch {
		_, _ = x.db.Exec(
			`INSERT INTO audit(run_id, tick, client_id, action, x, y, z, radius, material, detail, recorded_at)
			 VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
			runID, entry.Tick, entry.ClientID, entry.Action,
			entry.Pos[0], entry.Pos[1], entry.Pos[2],
			entry.Radius, entry.Material, entry.Detail,
			time.Now().UTC().Format(time.RFC3339),
		)
	}
}

// CountAudit reports rows for one action type ("" counts all).
func (x *SQLiteIndex) CountAudit(action string) (int, error) {
	var n int
	var err error
	if action == "" {
		err = x.db.QueryRow(`SELECT COUNT(*) FROM audit`).Scan(&n)
	} else {
		err = x.db.QueryRow(`SELECT COUNT(*) FROM audit WHERE action = ?`, action).Scan(&n)
	}
	return n, err
}

func (x *SQLiteIndex) Close() error {
	var err error
	x.once.Do(func() {
		x.closed.Store(true)
		close(x.ch)
		x.wg.Wait()
		err = x.db.Close()
	})
	return err
}
