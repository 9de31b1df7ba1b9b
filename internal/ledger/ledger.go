// Package ledger keeps a local record of every card finalized from this
// machine.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lehigh-university-libraries/cardscan/internal/models"
	"github.com/lehigh-university-libraries/cardscan/internal/session"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS finalized_cards (
	card_id         TEXT PRIMARY KEY,
	session_id      TEXT NOT NULL,
	name            TEXT NOT NULL DEFAULT '',
	card_number     TEXT NOT NULL DEFAULT '',
	card_series     TEXT NOT NULL DEFAULT '',
	card_type       TEXT NOT NULL DEFAULT '',
	team_name       TEXT NOT NULL DEFAULT '',
	front_image_key TEXT NOT NULL,
	back_image_key  TEXT NOT NULL,
	finalized_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_finalized_cards_at ON finalized_cards (finalized_at DESC);
`

// Entry is one finalized card
type Entry struct {
	CardID        string            `json:"card_id" yaml:"card_id"`
	SessionID     string            `json:"session_id" yaml:"session_id"`
	Fields        models.CardFields `json:"fields" yaml:"fields"`
	FrontImageKey string            `json:"front_image_key" yaml:"front_image_key"`
	BackImageKey  string            `json:"back_image_key" yaml:"back_image_key"`
	FinalizedAt   time.Time         `json:"finalized_at" yaml:"finalized_at"`
}

type Store struct {
	db *sql.DB
}

// DefaultPath returns the ledger location under the user config directory
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "cardscan", "ledger.sqlite")
}

// Open opens or creates the ledger database at path
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping ledger: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a finalized card. Recording the same card twice keeps the
// latest values.
func (s *Store) Record(ctx context.Context, card session.Finalized) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO finalized_cards (card_id, session_id, name, card_number, card_series, card_type, team_name,
			front_image_key, back_image_key, finalized_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(card_id) DO UPDATE SET
			session_id = excluded.session_id,
			name = excluded.name,
			card_number = excluded.card_number,
			card_series = excluded.card_series,
			card_type = excluded.card_type,
			team_name = excluded.team_name,
			front_image_key = excluded.front_image_key,
			back_image_key = excluded.back_image_key,
			finalized_at = excluded.finalized_at
	`, card.CardID, card.SessionID, card.Fields.Name, card.Fields.CardNumber, card.Fields.CardSeries,
		card.Fields.CardType, card.Fields.TeamName, card.FrontImageKey, card.BackImageKey,
		card.FinalizedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("record card %s: %w", card.CardID, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT card_id, session_id, name, card_number, card_series, card_type, team_name,
			front_image_key, back_image_key, finalized_at
		FROM finalized_cards
		ORDER BY finalized_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent cards: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var finalizedAt int64
		if err := rows.Scan(&e.CardID, &e.SessionID, &e.Fields.Name, &e.Fields.CardNumber, &e.Fields.CardSeries,
			&e.Fields.CardType, &e.Fields.TeamName, &e.FrontImageKey, &e.BackImageKey, &finalizedAt); err != nil {
			return nil, fmt.Errorf("scan recent card: %w", err)
		}
		e.FinalizedAt = time.UnixMilli(finalizedAt).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
