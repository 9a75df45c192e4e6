// Package archive keeps a history of produced summaries in SQLite or Postgres.
package archive

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("archive: closed")

// DefaultListLimit is used when List is called with limit <= 0.
const DefaultListLimit = 20

// Record is one archived summary.
type Record struct {
	ID               uuid.UUID `json:"id"`
	VideoID          string    `json:"video_id"`
	Title            string    `json:"title,omitempty"`
	Mode             string    `json:"mode"` // standard | hybrid
	Method           string    `json:"method"`
	DetectedLanguage string    `json:"detected_language"`
	SummaryLanguage  string    `json:"summary_language"`
	TranscriptSource string    `json:"transcript_source"`
	Summary          string    `json:"summary"`
	TranscriptChars  int       `json:"transcript_chars"`
	SummaryChars     int       `json:"summary_chars"`
	CreatedAt        time.Time `json:"created_at"`
}

// Store persists summary records.
type Store interface {
	// Save assigns ID and CreatedAt when unset and returns the stored record.
	Save(ctx context.Context, r Record) (Record, error)
	// List returns the newest records first, optionally for one video.
	List(ctx context.Context, videoID string, limit int) ([]Record, error)
	Close() error
}

// Open picks the backend from the DSN scheme: postgres:// and postgresql://
// use Postgres, anything else is a SQLite file path (optionally sqlite://).
func Open(ctx context.Context, dsn string) (Store, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		s, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	s, err := OpenSQLite(strings.TrimPrefix(dsn, "sqlite://"))
	if err != nil {
		return nil, err
	}
	return s, nil
}

func prepare(r Record) Record {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	return r
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > 100 {
		return 100
	}
	return limit
}
