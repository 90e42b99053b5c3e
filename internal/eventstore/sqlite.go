package eventstore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a Store backed by a single SQLite database file.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (and creates if needed) the build history database.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseOpenFailed, err)
	}
	// One connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrInitializeSchemaFailed, err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS build_events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		at_ms INTEGER NOT NULL,
		payload BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_build_events_build_id ON build_events(build_id);
	CREATE INDEX IF NOT EXISTS idx_build_events_at ON build_events(at_ms);
	`
	_, err := s.db.Exec(schema)
	return err
}

const selectRecords = "SELECT seq, build_id, event_type, at_ms, payload FROM build_events"

// Append stores rec. Timestamps are kept at millisecond precision.
func (s *SQLiteStore) Append(ctx context.Context, rec *Record) error {
	if rec == nil || rec.BuildID == "" || rec.Type == "" {
		return fmt.Errorf("%w: build id and type are required", ErrEventAppendFailed)
	}
	if rec.At.IsZero() {
		rec.At = time.Now()
	}
	payload := []byte(rec.Payload)
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO build_events (build_id, event_type, at_ms, payload) VALUES (?, ?, ?, ?)",
		rec.BuildID, rec.Type, rec.At.UnixMilli(), payload,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEventAppendFailed, err)
	}
	if rec.Seq, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("%w: %w", ErrEventAppendFailed, err)
	}
	return nil
}

func (s *SQLiteStore) ByBuild(ctx context.Context, buildID string) ([]*Record, error) {
	return s.query(ctx, selectRecords+" WHERE build_id = ? ORDER BY seq", buildID)
}

func (s *SQLiteStore) Since(ctx context.Context, from time.Time) ([]*Record, error) {
	var fromMS int64
	if !from.IsZero() {
		fromMS = from.UnixMilli()
	}
	return s.query(ctx, selectRecords+" WHERE at_ms >= ? ORDER BY seq", fromMS)
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEventQueryFailed, err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Record
	for rows.Next() {
		var (
			rec     Record
			atMS    int64
			payload []byte
		)
		if err := rows.Scan(&rec.Seq, &rec.BuildID, &rec.Type, &atMS, &payload); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", ErrEventQueryFailed, err)
		}
		rec.At = time.UnixMilli(atMS)
		rec.Payload = payload
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEventQueryFailed, err)
	}
	return out, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
