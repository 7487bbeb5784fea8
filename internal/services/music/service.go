package music

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"nowplaying-bot/internal/botcore"
)

// Backend is one streaming service the bot can act on. Tokens come from the
// linkage record of the user.
type Backend interface {
	Type() botcore.MusicServiceType
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	// Refresh returns tok itself while it is valid.
	Refresh(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error)

	CurrentTrack(ctx context.Context, tok *oauth2.Token) (botcore.Track, error)
	Track(ctx context.Context, tok *oauth2.Token, id string) (botcore.Track, error)
	Previous(ctx context.Context, tok *oauth2.Token) error
	Next(ctx context.Context, tok *oauth2.Token) error
	Play(ctx context.Context, tok *oauth2.Token, uri string) error
	Queue(ctx context.Context, tok *oauth2.Token, uri string) error
	ToggleFavorite(ctx context.Context, tok *oauth2.Token, ids []string) (botcore.FavoriteAction, error)
	TogglePlay(ctx context.Context, tok *oauth2.Token) (botcore.PlayAction, error)
	Profile(ctx context.Context, tok *oauth2.Token) (botcore.Profile, error)
	Search(ctx context.Context, tok *oauth2.Token, query string, page botcore.Pagination) (botcore.SearchPage, error)
}

// TokenStore persists linkage records.
type TokenStore interface {
	// Tokens fails with botcore.ErrNoMusicService for unlinked accounts.
	Tokens(ctx context.Context, account botcore.Account) (botcore.Tokens, error)
	SaveTokens(ctx context.Context, tokens botcore.Tokens) error
	Unlink(ctx context.Context, account botcore.Account) error
}

// ErrUnknownService is returned for services without a configured backend.
var ErrUnknownService = errors.New("music service is not configured")

// Service routes music operations to the backend linked by each user.
type Service struct {
	backends map[botcore.MusicServiceType]Backend
	order    []botcore.MusicServiceType
	store    TokenStore
	secret   []byte
	logger   *zap.Logger
}

var _ botcore.MusicService = (*Service)(nil)

// NewService constructs a music service. secret signs the OAuth state.
func NewService(store TokenStore, secret string, logger *zap.Logger, backends ...Backend) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		backends: make(map[botcore.MusicServiceType]Backend, len(backends)),
		store:    store,
		secret:   []byte(secret),
		logger:   logger,
	}
	for _, b := range backends {
		if _, dup := s.backends[b.Type()]; !dup {
			s.order = append(s.order, b.Type())
		}
		s.backends[b.Type()] = b
	}
	return s
}

// Services lists configured backends in registration order.
func (s *Service) Services() []botcore.MusicServiceType {
	return append([]botcore.MusicServiceType(nil), s.order...)
}

// CreateLoginURL signs a state for account and returns the provider login page.
func (s *Service) CreateLoginURL(_ context.Context, service botcore.MusicServiceType, account botcore.Account) (string, error) {
	b, err := s.backend(service)
	if err != nil {
		return "", err
	}
	state, err := s.signState(service, account)
	if err != nil {
		return "", fmt.Errorf("sign state: %w", err)
	}
	return b.AuthURL(state), nil
}

// CreateAndSaveTokens completes the OAuth flow started by CreateLoginURL and
// links the account named in state.
func (s *Service) CreateAndSaveTokens(ctx context.Context, service botcore.MusicServiceType, code, state string) (botcore.Account, error) {
	b, err := s.backend(service)
	if err != nil {
		return botcore.Account{}, err
	}
	account, err := s.parseState(state, service)
	if err != nil {
		return botcore.Account{}, err
	}

	tok, err := b.Exchange(ctx, code)
	if err != nil {
		return botcore.Account{}, fmt.Errorf("%s: %w", service, err)
	}
	if err := s.store.SaveTokens(ctx, tokensFor(account, service, tok)); err != nil {
		return botcore.Account{}, fmt.Errorf("save tokens: %w", err)
	}

	s.logger.Info("music service linked", zap.String("account", account.String()), zap.String("service", string(service)))
	return account, nil
}

// GetTokens returns the stored tokens of account.
func (s *Service) GetTokens(ctx context.Context, account botcore.Account) (botcore.Tokens, error) {
	return s.store.Tokens(ctx, account)
}

// SaveTokens stores tokens, replacing older ones.
func (s *Service) SaveTokens(ctx context.Context, tokens botcore.Tokens) error {
	return s.store.SaveTokens(ctx, tokens)
}

// Remove unlinks every music service of account.
func (s *Service) Remove(ctx context.Context, account botcore.Account) error {
	return s.store.Unlink(ctx, account)
}

// GetCurrentTrack returns what the account is listening to.
func (s *Service) GetCurrentTrack(ctx context.Context, account botcore.Account) (botcore.Result[botcore.Track], error) {
	return run(ctx, s, account, "current track", func(b Backend, tok *oauth2.Token) (botcore.Track, error) {
		return b.CurrentTrack(ctx, tok)
	})
}

// GetTrack loads one track by id.
func (s *Service) GetTrack(ctx context.Context, id string, account botcore.Account) (botcore.Result[botcore.Track], error) {
	return run(ctx, s, account, "get track", func(b Backend, tok *oauth2.Token) (botcore.Track, error) {
		return b.Track(ctx, tok, id)
	})
}

// PreviousTrack skips back on the active device.
func (s *Service) PreviousTrack(ctx context.Context, account botcore.Account) (botcore.MusicServiceType, error) {
	return s.command(ctx, account, "previous track", func(b Backend, tok *oauth2.Token) error {
		return b.Previous(ctx, tok)
	})
}

// NextTrack skips forward on the active device.
func (s *Service) NextTrack(ctx context.Context, account botcore.Account) (botcore.MusicServiceType, error) {
	return s.command(ctx, account, "next track", func(b Backend, tok *oauth2.Token) error {
		return b.Next(ctx, tok)
	})
}

// PlaySong starts uri on the active device.
func (s *Service) PlaySong(ctx context.Context, uri string, account botcore.Account) (botcore.MusicServiceType, error) {
	return s.command(ctx, account, "play", func(b Backend, tok *oauth2.Token) error {
		return b.Play(ctx, tok, uri)
	})
}

// AddToQueue queues uri after the current track.
func (s *Service) AddToQueue(ctx context.Context, uri string, account botcore.Account) (botcore.MusicServiceType, error) {
	return s.command(ctx, account, "add to queue", func(b Backend, tok *oauth2.Token) error {
		return b.Queue(ctx, tok, uri)
	})
}

// ToggleFavorite flips the saved state of the tracks.
func (s *Service) ToggleFavorite(ctx context.Context, trackIDs []string, account botcore.Account) (botcore.Result[botcore.FavoriteAction], error) {
	return run(ctx, s, account, "toggle favorite", func(b Backend, tok *oauth2.Token) (botcore.FavoriteAction, error) {
		return b.ToggleFavorite(ctx, tok, trackIDs)
	})
}

// TogglePlay pauses or resumes playback.
func (s *Service) TogglePlay(ctx context.Context, account botcore.Account) (botcore.Result[botcore.PlayAction], error) {
	return run(ctx, s, account, "toggle play", func(b Backend, tok *oauth2.Token) (botcore.PlayAction, error) {
		return b.TogglePlay(ctx, tok)
	})
}

// GetProfile loads the linked account profile.
func (s *Service) GetProfile(ctx context.Context, account botcore.Account) (botcore.Result[botcore.Profile], error) {
	return run(ctx, s, account, "get profile", func(b Backend, tok *oauth2.Token) (botcore.Profile, error) {
		return b.Profile(ctx, tok)
	})
}

// SearchTracks runs a text search on the account's service.
func (s *Service) SearchTracks(ctx context.Context, query string, page botcore.Pagination, account botcore.Account) (botcore.Result[botcore.SearchPage], error) {
	return run(ctx, s, account, "search", func(b Backend, tok *oauth2.Token) (botcore.SearchPage, error) {
		return b.Search(ctx, tok, query, page)
	})
}

func (s *Service) command(ctx context.Context, account botcore.Account, op string, fn func(Backend, *oauth2.Token) error) (botcore.MusicServiceType, error) {
	res, err := run(ctx, s, account, op, func(b Backend, tok *oauth2.Token) (struct{}, error) {
		return struct{}{}, fn(b, tok)
	})
	return res.Type, err
}

// run resolves the user's backend and a valid token, then calls fn. The
// result is tagged with the backend type even when fn fails.
func run[T any](ctx context.Context, s *Service, account botcore.Account, op string, fn func(Backend, *oauth2.Token) (T, error)) (botcore.Result[T], error) {
	b, tok, err := s.session(ctx, account)
	if err != nil {
		return botcore.Result[T]{}, err
	}
	data, err := fn(b, tok)
	if err != nil {
		return botcore.Result[T]{Type: b.Type()}, fmt.Errorf("%s %s: %w", b.Type(), op, err)
	}
	return botcore.Result[T]{Type: b.Type(), Data: data}, nil
}

// session loads the linkage record and refreshes its token, persisting a
// renewed one.
func (s *Service) session(ctx context.Context, account botcore.Account) (Backend, *oauth2.Token, error) {
	tokens, err := s.store.Tokens(ctx, account)
	if err != nil {
		return nil, nil, err
	}
	b, ok := s.backends[tokens.Service]
	if !ok {
		return nil, nil, fmt.Errorf("%s is not configured: %w", tokens.Service, botcore.ErrNoMusicService)
	}

	tok := &oauth2.Token{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       tokens.Expiry,
	}
	fresh, err := b.Refresh(ctx, tok)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", tokens.Service, err)
	}

	if fresh.AccessToken != tok.AccessToken {
		if fresh.RefreshToken == "" {
			fresh.RefreshToken = tok.RefreshToken
		}
		if err := s.store.SaveTokens(ctx, tokensFor(account, tokens.Service, fresh)); err != nil {
			s.logger.Warn("save refreshed token", zap.String("account", account.String()), zap.Error(err))
		} else {
			s.logger.Debug("token refreshed", zap.String("account", account.String()), zap.String("service", string(tokens.Service)))
		}
	}
	return b, fresh, nil
}

func (s *Service) backend(service botcore.MusicServiceType) (Backend, error) {
	b, ok := s.backends[service]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownService, service)
	}
	return b, nil
}

func tokensFor(account botcore.Account, service botcore.MusicServiceType, tok *oauth2.Token) botcore.Tokens {
	return botcore.Tokens{
		Account:      account,
		Service:      service,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
}
