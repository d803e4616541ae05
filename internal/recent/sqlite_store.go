package recent

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/occva/X-Bookmarks/internal/domain"
)

// SQLiteStore keeps the list in a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	max int
}

// OpenSQLite opens (and migrates) the database at path.
func OpenSQLite(path string, max int) (*SQLiteStore, error) {
	if max <= 0 {
		max = DefaultMax
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create recent db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open recent db: %w", err)
	}
	// One connection keeps :memory: databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, max: max}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate recent db: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS recent_sources (
	  key TEXT PRIMARY KEY,
	  name TEXT NOT NULL,
	  kind TEXT NOT NULL,
	  locations TEXT NOT NULL,
	  ts INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_recent_ts ON recent_sources(ts);
	`)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// List returns entries newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, name, kind, locations, ts FROM recent_sources ORDER BY ts DESC, rowid DESC LIMIT ?`, s.max)
	if err != nil {
		return nil, fmt.Errorf("query recent sources: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e    Entry
			kind string
			locs string
			ts   int64
		)
		if err := rows.Scan(&e.Key, &e.Name, &kind, &locs, &ts); err != nil {
			return nil, fmt.Errorf("scan recent source: %w", err)
		}
		e.Kind = domain.SourceKind(kind)
		if err := json.Unmarshal([]byte(locs), &e.Locations); err != nil {
			return nil, fmt.Errorf("decode locations for %s: %w", e.Key, err)
		}
		e.Timestamp = time.Unix(0, ts).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// Add stores e at the front of the list and trims the table to capacity.
func (s *SQLiteStore) Add(ctx context.Context, e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	locs, err := json.Marshal(e.Locations)
	if err != nil {
		return fmt.Errorf("encode locations: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO recent_sources(key, name, kind, locations, ts) VALUES(?,?,?,?,?)`,
		e.Key, e.Name, string(e.Kind), string(locs), e.Timestamp.UnixNano()); err != nil {
		return fmt.Errorf("insert recent source: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM recent_sources WHERE key NOT IN (
		   SELECT key FROM recent_sources ORDER BY ts DESC, rowid DESC LIMIT ?
		 )`, s.max); err != nil {
		return fmt.Errorf("trim recent sources: %w", err)
	}
	return tx.Commit()
}

// Remove deletes one entry.
func (s *SQLiteStore) Remove(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM recent_sources WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete recent source: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrRecentNotFound
	}
	return nil
}

// Clear deletes every entry.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM recent_sources`); err != nil {
		return fmt.Errorf("clear recent sources: %w", err)
	}
	return nil
}
