package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"nowplaying-bot/internal/botcore"
)

const shareColumns = `chat_id, messenger, user_id, user_name, service, track_id, name, artists, url, shared_at`

// Shares keeps the history of shared songs.
type Shares struct {
	db *sqlx.DB
}

var _ botcore.History = (*Shares)(nil)

// NewShares returns the share history backed by db.
func NewShares(db *sqlx.DB) *Shares {
	return &Shares{db: db}
}

// Record appends a share to the history.
func (s *Shares) Record(ctx context.Context, entry botcore.HistoryEntry) error {
	entry.SharedAt = entry.SharedAt.UTC()
	_, err := s.db.NamedExecContext(ctx, `insert into shares (`+shareColumns+`)
		values(:chat_id, :messenger, :user_id, :user_name, :service, :track_id, :name, :artists, :url, :shared_at)`, entry)
	if err != nil {
		return fmt.Errorf("inserting share: %w", err)
	}
	return nil
}

// Recent returns the latest shares of a chat, newest first.
func (s *Shares) Recent(ctx context.Context, chatID string, limit int) ([]botcore.HistoryEntry, error) {
	entries := []botcore.HistoryEntry{}
	err := s.db.SelectContext(ctx, &entries, `select `+shareColumns+` from shares
		where chat_id = ? order by shared_at desc, id desc limit ?`, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching shares of chat %s: %w", chatID, err)
	}
	return entries, nil
}

// Latest returns the latest shares across every chat, newest first.
func (s *Shares) Latest(ctx context.Context, limit int) ([]botcore.HistoryEntry, error) {
	entries := []botcore.HistoryEntry{}
	err := s.db.SelectContext(ctx, &entries, `select `+shareColumns+` from shares
		order by shared_at desc, id desc limit ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching shares: %w", err)
	}
	return entries, nil
}
