// Package store handles SQLite persistence of typing sessions.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"deskcat/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for session history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			keystrokes INTEGER NOT NULL,
			peak_wpm REAL NOT NULL,
			avg_wpm REAL NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertSession stores one finished typing session.
func (s *Store) InsertSession(ctx context.Context, rec model.SessionRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (started_at, ended_at, keystrokes, peak_wpm, avg_wpm)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.StartedAt.Format(time.RFC3339Nano),
		rec.EndedAt.Format(time.RFC3339Nano),
		rec.Keystrokes,
		rec.PeakWPM,
		rec.AvgWPM,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// SaveSession satisfies the host monitor's session sink.
func (s *Store) SaveSession(rec model.SessionRecord) error {
	_, err := s.InsertSession(context.Background(), rec)
	return err
}

// ListSessions returns up to limit sessions, most recent first. A zero
// or negative limit returns everything.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]model.SessionRecord, error) {
	query := `SELECT started_at, ended_at, keystrokes, peak_wpm, avg_wpm
		FROM sessions ORDER BY ended_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.SessionRecord
	for rows.Next() {
		var rec model.SessionRecord
		var started, ended string
		if err := rows.Scan(&started, &ended, &rec.Keystrokes, &rec.PeakWPM, &rec.AvgWPM); err != nil {
			return nil, err
		}
		if rec.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, err
		}
		if rec.EndedAt, err = time.Parse(time.RFC3339Nano, ended); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
