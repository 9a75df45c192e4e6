package archive

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// PostgresStore is a pgx-pooled archive.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres creates a pool and applies the embedded migrations.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, errors.New("archive: database url is required")
	}
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("archive: parse database url: %w", err)
	}
	config.MaxConns = 4
	config.MinConns = 1
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, "SET search_path TO public")
		return err
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("archive: create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("archive: ping postgres: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("archive: run migrations: %w", err)
	}
	slog.Info("archive postgres connected", slog.String("addr", config.ConnConfig.Host))
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	entries, err := schemaFS.ReadDir("schema")
	if err != nil {
		return fmt.Errorf("read schema dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := schemaFS.ReadFile("schema/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		if _, err := s.pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("execute %s: %w", entry.Name(), err)
		}
		slog.Debug("migration applied", slog.String("file", entry.Name()))
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, r Record) (Record, error) {
	r = prepare(r)
	_, err := s.pool.Exec(ctx, `INSERT INTO summaries
		(id, video_id, title, mode, method, detected_language, summary_language,
		 transcript_source, summary, transcript_chars, summary_chars, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		r.ID.String(), r.VideoID, r.Title, r.Mode, r.Method, r.DetectedLanguage, r.SummaryLanguage,
		r.TranscriptSource, r.Summary, r.TranscriptChars, r.SummaryChars, r.CreatedAt)
	if err != nil {
		return Record{}, fmt.Errorf("archive: insert: %w", err)
	}
	engine.IncrArchiveWrites()
	return r, nil
}

func (s *PostgresStore) List(ctx context.Context, videoID string, limit int) ([]Record, error) {
	rows, err := s.pool.Query(ctx, `SELECT id::text, video_id, title, mode, method, detected_language,
		summary_language, transcript_source, summary, transcript_chars, summary_chars, created_at
		FROM summaries WHERE ($1 = '' OR video_id = $1) ORDER BY created_at DESC LIMIT $2`,
		videoID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("archive: query: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		var r Record
		var id string
		err := row.Scan(&id, &r.VideoID, &r.Title, &r.Mode, &r.Method, &r.DetectedLanguage,
			&r.SummaryLanguage, &r.TranscriptSource, &r.Summary, &r.TranscriptChars, &r.SummaryChars,
			&r.CreatedAt)
		if err != nil {
			return Record{}, err
		}
		r.ID, err = uuid.Parse(id)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("archive: scan: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
