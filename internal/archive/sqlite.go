package archive

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

// SQLiteStore is a single-file archive.
type SQLiteStore struct {
	db     *sql.DB
	closed atomic.Bool
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("archive: mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("archive: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if err := initSQLiteSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func initSQLiteSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS summaries (
		id                TEXT PRIMARY KEY,
		video_id          TEXT NOT NULL,
		title             TEXT,
		mode              TEXT NOT NULL,
		method            TEXT NOT NULL,
		detected_language TEXT NOT NULL,
		summary_language  TEXT NOT NULL,
		transcript_source TEXT NOT NULL,
		summary           TEXT NOT NULL,
		transcript_chars  INTEGER NOT NULL,
		summary_chars     INTEGER NOT NULL,
		created_at        TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS summaries_video_idx ON summaries (video_id, created_at)`)
	return err
}

func (s *SQLiteStore) Save(ctx context.Context, r Record) (Record, error) {
	if s.closed.Load() {
		return Record{}, ErrClosed
	}
	r = prepare(r)
	_, err := s.db.ExecContext(ctx, `INSERT INTO summaries
		(id, video_id, title, mode, method, detected_language, summary_language,
		 transcript_source, summary, transcript_chars, summary_chars, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID.String(), r.VideoID, r.Title, r.Mode, r.Method, r.DetectedLanguage, r.SummaryLanguage,
		r.TranscriptSource, r.Summary, r.TranscriptChars, r.SummaryChars, r.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return Record{}, fmt.Errorf("archive: insert: %w", err)
	}
	engine.IncrArchiveWrites()
	return r, nil
}

func (s *SQLiteStore) List(ctx context.Context, videoID string, limit int) ([]Record, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	q := `SELECT id, video_id, COALESCE(title, ''), mode, method, detected_language, summary_language,
		transcript_source, summary, transcript_chars, summary_chars, created_at FROM summaries`
	args := []any{}
	if videoID != "" {
		q += ` WHERE video_id = ?`
		args = append(args, videoID)
	}
	q += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, clampLimit(limit))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("archive: query: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var id, created string
		if err := rows.Scan(&id, &r.VideoID, &r.Title, &r.Mode, &r.Method, &r.DetectedLanguage, &r.SummaryLanguage,
			&r.TranscriptSource, &r.Summary, &r.TranscriptChars, &r.SummaryChars, &created); err != nil {
			return nil, fmt.Errorf("archive: scan: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("archive: bad id %q: %w", id, err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}
