package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"nowplaying-bot/internal/botcore"
)

// Accounts stores linkage records keyed by (platform, user id).
type Accounts struct {
	db *sqlx.DB
}

// NewAccounts returns the token store backed by db.
func NewAccounts(db *sqlx.DB) *Accounts {
	return &Accounts{db: db}
}

type accountRow struct {
	Platform     string       `db:"platform"`
	UserID       string       `db:"user_id"`
	Name         string       `db:"name"`
	Service      string       `db:"service"`
	AccessToken  string       `db:"access_token"`
	RefreshToken string       `db:"refresh_token"`
	Expiry       sql.NullTime `db:"expiry"`
	CreatedAt    time.Time    `db:"created_at"`
}

// Create registers the account. It fails with botcore.ErrUserExists when the
// account already has a linked music service; an unlinked record only gets
// its display name refreshed.
func (a *Accounts) Create(ctx context.Context, account botcore.Account, name string) error {
	res, err := a.db.NamedExecContext(ctx, `insert into accounts
		(platform, user_id, name, created_at)
		values(:platform, :user_id, :name, :created_at)
		on conflict(platform, user_id) do update set name = excluded.name
		where accounts.service = ''`, accountRow{
		Platform:  account.Platform,
		UserID:    account.UserID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("inserting account: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rows == 0 {
		return botcore.ErrUserExists
	}
	return nil
}

// Tokens returns the credentials of a linked account or
// botcore.ErrNoMusicService.
func (a *Accounts) Tokens(ctx context.Context, account botcore.Account) (botcore.Tokens, error) {
	var row accountRow
	err := a.db.GetContext(ctx, &row, `select * from accounts where platform = ? and user_id = ?`,
		account.Platform, account.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return botcore.Tokens{}, botcore.ErrNoMusicService
	}
	if err != nil {
		return botcore.Tokens{}, fmt.Errorf("fetching account %s: %w", account, err)
	}
	if row.Service == "" {
		return botcore.Tokens{}, botcore.ErrNoMusicService
	}

	tokens := botcore.Tokens{
		Account:      account,
		Service:      botcore.MusicServiceType(row.Service),
		AccessToken:  row.AccessToken,
		RefreshToken: row.RefreshToken,
	}
	if row.Expiry.Valid {
		tokens.Expiry = row.Expiry.Time
	}
	return tokens, nil
}

// SaveTokens links the account to tokens.Service, creating the record when
// the user never ran the sign-up command.
func (a *Accounts) SaveTokens(ctx context.Context, tokens botcore.Tokens) error {
	row := accountRow{
		Platform:     tokens.Account.Platform,
		UserID:       tokens.Account.UserID,
		Service:      string(tokens.Service),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		Expiry:       sql.NullTime{Time: tokens.Expiry.UTC(), Valid: !tokens.Expiry.IsZero()},
		CreatedAt:    time.Now().UTC(),
	}
	_, err := a.db.NamedExecContext(ctx, `insert into accounts
		(platform, user_id, service, access_token, refresh_token, expiry, created_at)
		values(:platform, :user_id, :service, :access_token, :refresh_token, :expiry, :created_at)
		on conflict(platform, user_id) do update set
			service = excluded.service,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expiry = excluded.expiry`, row)
	if err != nil {
		return fmt.Errorf("saving tokens for %s: %w", tokens.Account, err)
	}
	return nil
}

// Unlink forgets the linked service and its tokens. It fails with
// botcore.ErrNoMusicService when nothing was linked.
func (a *Accounts) Unlink(ctx context.Context, account botcore.Account) error {
	res, err := a.db.ExecContext(ctx, `update accounts
		set service = '', access_token = '', refresh_token = '', expiry = null
		where platform = ? and user_id = ? and service != ''`,
		account.Platform, account.UserID)
	if err != nil {
		return fmt.Errorf("unlinking %s: %w", account, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rows == 0 {
		return botcore.ErrNoMusicService
	}
	return nil
}

var _ botcore.Users = (*Accounts)(nil)

// CreateUser registers the author of m under the messenger's platform.
func (a *Accounts) CreateUser(ctx context.Context, m *botcore.Message) error {
	return a.Create(ctx, m.Account(), m.From.Name)
}

// UnlinkService forgets the music service linked by the author of m.
func (a *Accounts) UnlinkService(ctx context.Context, m *botcore.Message) error {
	return a.Unlink(ctx, m.Account())
}
