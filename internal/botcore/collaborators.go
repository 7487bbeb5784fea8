package botcore

import "context"

// Users creates and unlinks linkage records for one messenger.
type Users interface {
	// CreateUser returns ErrUserExists when the user already linked a service.
	CreateUser(ctx context.Context, m *Message) error
	UnlinkService(ctx context.Context, m *Message) error
}

// History records shared songs per chat.
type History interface {
	Record(ctx context.Context, entry HistoryEntry) error
	Recent(ctx context.Context, chatID string, limit int) ([]HistoryEntry, error)
}

// Enricher looks up cross-platform links. A nil result with a nil error
// means nothing was found.
type Enricher interface {
	Lookup(ctx context.Context, track Track) (*SongWhip, error)
}
