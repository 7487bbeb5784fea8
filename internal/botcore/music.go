package botcore

import (
	"context"
	"time"
)

// Thumbnail is a track cover image.
type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Track is a playable item as reported by a music service. For Spotify the
// ID is the track URI.
type Track struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Artists   string     `json:"artists"`
	URL       string     `json:"url"`
	Thumbnail *Thumbnail `json:"thumbnail,omitempty"`
}

// Title renders "Name - Artists".
func (t Track) Title() string {
	if t.Artists == "" {
		return t.Name
	}
	return t.Name + " - " + t.Artists
}

// Profile is the linked music service account.
type Profile struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
	Product string `json:"product,omitempty"`
	Avatar  string `json:"avatar,omitempty"`
}

// Pagination is the position of a search page.
type Pagination struct {
	Offset int  `json:"offset"`
	Limit  int  `json:"limit"`
	Next   bool `json:"next"`
}

// SearchPage is one page of search results.
type SearchPage struct {
	Items      []Track    `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// FavoriteAction is the outcome of a favorite toggle.
type FavoriteAction string

const (
	FavoriteSaved   FavoriteAction = "saved"
	FavoriteRemoved FavoriteAction = "removed"
)

// PlayAction is the outcome of a play/pause toggle.
type PlayAction string

const (
	PlayResumed PlayAction = "play"
	PlayPaused  PlayAction = "pause"
)

// Result tags a music service answer with the backend that produced it.
type Result[T any] struct {
	Type MusicServiceType
	Data T
}

// Tokens is the credential part of a linkage record.
type Tokens struct {
	Account      Account          `json:"account"`
	Service      MusicServiceType `json:"service"`
	AccessToken  string           `json:"accessToken"`
	RefreshToken string           `json:"refreshToken,omitempty"`
	Expiry       time.Time        `json:"expiry,omitempty"`
}

// MusicService is the uniform surface over streaming backends. Read and
// playback methods fail with ErrNoMusicService, ErrExpiredMusicServiceToken
// or ErrNoServiceSubscription where applicable.
type MusicService interface {
	Services() []MusicServiceType
	CreateLoginURL(ctx context.Context, service MusicServiceType, account Account) (string, error)
	CreateAndSaveTokens(ctx context.Context, service MusicServiceType, code, state string) (Account, error)
	GetTokens(ctx context.Context, account Account) (Tokens, error)
	SaveTokens(ctx context.Context, tokens Tokens) error
	Remove(ctx context.Context, account Account) error

	GetCurrentTrack(ctx context.Context, account Account) (Result[Track], error)
	GetTrack(ctx context.Context, id string, account Account) (Result[Track], error)
	PreviousTrack(ctx context.Context, account Account) (MusicServiceType, error)
	NextTrack(ctx context.Context, account Account) (MusicServiceType, error)
	PlaySong(ctx context.Context, uri string, account Account) (MusicServiceType, error)
	AddToQueue(ctx context.Context, uri string, account Account) (MusicServiceType, error)
	ToggleFavorite(ctx context.Context, trackIDs []string, account Account) (Result[FavoriteAction], error)
	TogglePlay(ctx context.Context, account Account) (Result[PlayAction], error)
	GetProfile(ctx context.Context, account Account) (Result[Profile], error)
	SearchTracks(ctx context.Context, query string, page Pagination, account Account) (Result[SearchPage], error)
}
