package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// PlacementRecord is one successful block placement.
type PlacementRecord struct {
	Tick       uint64
	ActorID    string
	AnchorX    int
	AnchorZ    int
	Size       string
	Rotation   int
	Cells      int
	Version    uint64
	RecordedAt time.Time
}

// ResetRecord is one world reset.
type ResetRecord struct {
	Tick       uint64
	ActorID    string
	Version    uint64
	RecordedAt time.Time
}

type recKind int

const (
	recPlacement recKind = iota + 1
	recReset
)

type rec struct {
	kind      recKind
	placement PlacementRecord
	reset     ResetRecord
}

// Journal persists topology mutations to SQLite from a dedicated writer
// goroutine so the tick loop never blocks on disk.
type Journal struct {
	db *sql.DB

	ch     chan rec
	wg     sync.WaitGroup
	once   sync.Once
	closed atomic.Bool

	droppedTotal atomic.Uint64
}

// Open creates or opens the journal database at path.
func Open(path string) (*Journal, error) {
	if path == "" {
		return nil, fmt.Errorf("empty journal path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
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

	j := &Journal{
		db: db,
		ch: make(chan rec, 4096),
	}
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		j.loop()
	}()
	return j, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the append-only write pattern.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
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
		`CREATE TABLE IF NOT EXISTS placements (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tick INTEGER NOT NULL,
			actor TEXT NOT NULL,
			anchor_x INTEGER NOT NULL,
			anchor_z INTEGER NOT NULL,
			size TEXT NOT NULL,
			rotation INTEGER NOT NULL,
			cells INTEGER NOT NULL,
			version INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_placements_actor_tick ON placements(actor, tick);`,
		`CREATE TABLE IF NOT EXISTS resets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tick INTEGER NOT NULL,
			actor TEXT NOT NULL,
			version INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// RecordPlacement enqueues a placement row. Rows are dropped rather than
// stalling the caller when the writer falls behind.
func (j *Journal) RecordPlacement(p PlacementRecord) {
	if j == nil || j.closed.Load() {
		return
	}
	if p.RecordedAt.IsZero() {
		p.RecordedAt = time.Now().UTC()
	}
	select {
	case j.ch <- rec{kind: recPlacement, placement: p}:
	default:
		j.droppedTotal.Add(1)
	}
}

// RecordReset enqueues a reset row.
func (j *Journal) RecordReset(r ResetRecord) {
	if j == nil || j.closed.Load() {
		return
	}
	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now().UTC()
	}
	select {
	case j.ch <- rec{kind: recReset, reset: r}:
	default:
		j.droppedTotal.Add(1)
	}
}

// Depth reports pending writes, for the diagnostics endpoint.
func (j *Journal) Depth() int {
	if j == nil {
		return 0
	}
	return len(j.ch)
}

// Dropped reports how many records were discarded under backpressure.
func (j *Journal) Dropped() uint64 {
	if j == nil {
		return 0
	}
	return j.droppedTotal.Load()
}

// RecentPlacements returns up to limit placements, newest first.
func (j *Journal) RecentPlacements(ctx context.Context, limit int) ([]PlacementRecord, error) {
	if j == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT tick, actor, anchor_x, anchor_z, size, rotation, cells, version, recorded_at
		 FROM placements ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []PlacementRecord
	for rows.Next() {
		var p PlacementRecord
		var stamp string
		if err := rows.Scan(&p.Tick, &p.ActorID, &p.AnchorX, &p.AnchorZ, &p.Size, &p.Rotation, &p.Cells, &p.Version, &stamp); err != nil {
			return nil, err
		}
		if parsed, perr := time.Parse(time.RFC3339Nano, stamp); perr == nil {
			p.RecordedAt = parsed
		}
		records = append(records, p)
	}
	return records, rows.Err()
}

// Close flushes pending records and closes the database.
func (j *Journal) Close() error {
	var err error
	j.once.Do(func() {
		j.closed.Store(true)
		close(j.ch)
		j.wg.Wait()
		err = j.db.Close()
	})
	return err
}

func (j *Journal) loop() {
	for r := range j.ch {
		switch r.kind {
		case recPlacement:
			p := r.placement
			_, _ = j.db.Exec(
				`INSERT INTO placements (tick, actor, anchor_x, anchor_z, size, rotation, cells, version, recorded_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				p.Tick, p.ActorID, p.AnchorX, p.AnchorZ, p.Size, p.Rotation, p.Cells, p.Version,
				p.RecordedAt.Format(time.RFC3339Nano))
		case recReset:
			rr := r.reset
			_, _ = j.db.Exec(
				`INSERT INTO resets (tick, actor, version, recorded_at) VALUES (?, ?, ?, ?)`,
				rr.Tick, rr.ActorID, rr.Version, rr.RecordedAt.Format(time.RFC3339Nano))
		}
	}
}
