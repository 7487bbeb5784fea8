package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"nowplaying-bot/internal/botcore"
)

const (
	apiBase   = "https://api.spotify.com/v1"
	authURL   = "https://accounts.spotify.com/authorize"
	tokenURL  = "https://accounts.spotify.com/api/token"
	userAgent = "nowplaying-bot/1.0"
)

var scopes = []string{
	"user-read-private",
	"user-read-currently-playing",
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-library-read",
	"user-library-modify",
}

// HTTPClient wraps the stdlib client for easier testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIClient talks to the Spotify Web API on behalf of linked users.
type APIClient struct {
	httpClient HTTPClient
	oauth      *oauth2.Config
	apiBase    string
	logger     *zap.Logger
}

// Option configures an APIClient.
type Option func(*APIClient)

// WithAPIBase points the client at another Web API root.
func WithAPIBase(base string) Option {
	return func(c *APIClient) { c.apiBase = strings.TrimRight(base, "/") }
}

// WithTokenURL points token exchange and refresh at another endpoint.
func WithTokenURL(u string) Option {
	return func(c *APIClient) { c.oauth.Endpoint.TokenURL = u }
}

// NewClient builds a Spotify client. redirectURL must match the one
// registered for the application.
func NewClient(httpClient HTTPClient, clientID, clientSecret, redirectURL string, logger *zap.Logger, opts ...Option) *APIClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	c := &APIClient{
		httpClient: httpClient,
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		apiBase: apiBase,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Type identifies the service.
func (c *APIClient) Type() botcore.MusicServiceType { return botcore.Spotify }

// AuthURL returns the consent page carrying state.
func (c *APIClient) AuthURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for tokens.
func (c *APIClient) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := c.oauth.Exchange(c.oauthContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	return tok, nil
}

// Refresh returns tok unchanged while it is valid and a refreshed token
// otherwise. A rejected refresh token maps to
// botcore.ErrExpiredMusicServiceToken.
func (c *APIClient) Refresh(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error) {
	fresh, err := c.oauth.TokenSource(c.oauthContext(ctx), tok).Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return nil, fmt.Errorf("refresh token: %w", botcore.ErrExpiredMusicServiceToken)
		}
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	return fresh, nil
}

// CurrentTrack returns the track playing on the user's active device.
func (c *APIClient) CurrentTrack(ctx context.Context, tok *oauth2.Token) (botcore.Track, error) {
	var payload currentlyPlayingResponse
	status, err := c.call(ctx, tok, http.MethodGet, "/me/player/currently-playing", url.Values{"additional_types": {"track"}}, nil, &payload)
	if err != nil {
		return botcore.Track{}, fmt.Errorf("currently playing: %w", err)
	}
	if status == http.StatusNoContent || payload.Item == nil || payload.Type != "track" {
		return botcore.Track{}, botcore.ErrNoTrack
	}
	return mapTrack(*payload.Item), nil
}

// Track fetches track metadata. id may be a track id or a spotify:track URI.
func (c *APIClient) Track(ctx context.Context, tok *oauth2.Token, id string) (botcore.Track, error) {
	trackID := trackIDFrom(id)
	if trackID == "" {
		return botcore.Track{}, fmt.Errorf("track id is empty")
	}

	var payload trackDTO
	if _, err := c.call(ctx, tok, http.MethodGet, "/tracks/"+url.PathEscape(trackID), nil, nil, &payload); err != nil {
		return botcore.Track{}, fmt.Errorf("get track: %w", err)
	}
	return mapTrack(payload), nil
}

// Previous skips to the previous track on the active device.
func (c *APIClient) Previous(ctx context.Context, tok *oauth2.Token) error {
	if _, err := c.call(ctx, tok, http.MethodPost, "/me/player/previous", nil, nil, nil); err != nil {
		return fmt.Errorf("previous track: %w", err)
	}
	return nil
}

// Next skips to the next track on the active device.
func (c *APIClient) Next(ctx context.Context, tok *oauth2.Token) error {
	if _, err := c.call(ctx, tok, http.MethodPost, "/me/player/next", nil, nil, nil); err != nil {
		return fmt.Errorf("next track: %w", err)
	}
	return nil
}

// Play starts uri on the active device.
func (c *APIClient) Play(ctx context.Context, tok *oauth2.Token, uri string) error {
	body := map[string][]string{"uris": {trackURI(uri)}}
	if _, err := c.call(ctx, tok, http.MethodPut, "/me/player/play", nil, body, nil); err != nil {
		return fmt.Errorf("play: %w", err)
	}
	return nil
}

// Queue appends uri to the playback queue.
func (c *APIClient) Queue(ctx context.Context, tok *oauth2.Token, uri string) error {
	if _, err := c.call(ctx, tok, http.MethodPost, "/me/player/queue", url.Values{"uri": {trackURI(uri)}}, nil, nil); err != nil {
		return fmt.Errorf("add to queue: %w", err)
	}
	return nil
}

// ToggleFavorite removes the tracks from the library when the first one is
// saved and saves them otherwise.
func (c *APIClient) ToggleFavorite(ctx context.Context, tok *oauth2.Token, ids []string) (botcore.FavoriteAction, error) {
	trackIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		if t := trackIDFrom(id); t != "" {
			trackIDs = append(trackIDs, t)
		}
	}
	if len(trackIDs) == 0 {
		return "", fmt.Errorf("track ids are empty")
	}
	q := url.Values{"ids": {strings.Join(trackIDs, ",")}}

	var contains []bool
	if _, err := c.call(ctx, tok, http.MethodGet, "/me/tracks/contains", q, nil, &contains); err != nil {
		return "", fmt.Errorf("check saved tracks: %w", err)
	}

	if len(contains) > 0 && contains[0] {
		if _, err := c.call(ctx, tok, http.MethodDelete, "/me/tracks", q, nil, nil); err != nil {
			return "", fmt.Errorf("remove saved tracks: %w", err)
		}
		return botcore.FavoriteRemoved, nil
	}
	if _, err := c.call(ctx, tok, http.MethodPut, "/me/tracks", q, nil, nil); err != nil {
		return "", fmt.Errorf("save tracks: %w", err)
	}
	return botcore.FavoriteSaved, nil
}

// TogglePlay pauses a playing device and resumes a paused one.
func (c *APIClient) TogglePlay(ctx context.Context, tok *oauth2.Token) (botcore.PlayAction, error) {
	var state playbackStateResponse
	status, err := c.call(ctx, tok, http.MethodGet, "/me/player", nil, nil, &state)
	if err != nil {
		return "", fmt.Errorf("playback state: %w", err)
	}
	if status == http.StatusNoContent {
		return "", fmt.Errorf("playback state: no active device")
	}

	if state.IsPlaying {
		if _, err := c.call(ctx, tok, http.MethodPut, "/me/player/pause", nil, nil, nil); err != nil {
			return "", fmt.Errorf("pause: %w", err)
		}
		return botcore.PlayPaused, nil
	}
	if _, err := c.call(ctx, tok, http.MethodPut, "/me/player/play", nil, nil, nil); err != nil {
		return "", fmt.Errorf("resume: %w", err)
	}
	return botcore.PlayResumed, nil
}

// Profile loads the current user.
func (c *APIClient) Profile(ctx context.Context, tok *oauth2.Token) (botcore.Profile, error) {
	var payload profileDTO
	if _, err := c.call(ctx, tok, http.MethodGet, "/me", nil, nil, &payload); err != nil {
		return botcore.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return mapProfile(payload), nil
}

// Search queries the catalog for tracks.
func (c *APIClient) Search(ctx context.Context, tok *oauth2.Token, query string, page botcore.Pagination) (botcore.SearchPage, error) {
	if strings.TrimSpace(query) == "" {
		return botcore.SearchPage{}, fmt.Errorf("query is empty")
	}
	if page.Limit <= 0 || page.Limit > 50 {
		page.Limit = 20
	}
	if page.Offset < 0 {
		page.Offset = 0
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("type", "track")
	q.Set("limit", fmt.Sprintf("%d", page.Limit))
	q.Set("offset", fmt.Sprintf("%d", page.Offset))

	var payload searchResponse
	if _, err := c.call(ctx, tok, http.MethodGet, "/search", q, nil, &payload); err != nil {
		return botcore.SearchPage{}, fmt.Errorf("search: %w", err)
	}

	items := make([]botcore.Track, 0, len(payload.Tracks.Items))
	for _, t := range payload.Tracks.Items {
		items = append(items, mapTrack(t))
	}
	return botcore.SearchPage{
		Items: items,
		Pagination: botcore.Pagination{
			Offset: payload.Tracks.Offset,
			Limit:  payload.Tracks.Limit,
			Next:   payload.Tracks.Next != nil && *payload.Tracks.Next != "",
		},
	}, nil
}

// call performs an authorized Web API request, decoding a JSON response into
// out when both are present. It returns the response status.
func (c *APIClient) call(ctx context.Context, tok *oauth2.Token, method, path string, query url.Values, body, out any) (int, error) {
	u := c.apiBase + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return 0, err
	}
	c.attachHeaders(req, tok)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return resp.StatusCode, statusError(resp.StatusCode, raw)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return http.StatusNoContent, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}

func (c *APIClient) attachHeaders(req *http.Request, tok *oauth2.Token) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if tok != nil && tok.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	}
}

// oauthContext makes the oauth2 package use the client's transport.
func (c *APIClient) oauthContext(ctx context.Context) context.Context {
	if hc, ok := c.httpClient.(*http.Client); ok {
		return context.WithValue(ctx, oauth2.HTTPClient, hc)
	}
	return ctx
}

// statusError maps Web API failures onto domain errors where one applies.
func statusError(status int, body []byte) error {
	var payload errorResponse
	_ = json.Unmarshal(body, &payload)
	apiErr := &APIError{Status: status, Message: payload.Error.Message, Reason: payload.Error.Reason}
	if apiErr.Message == "" {
		apiErr.Message = string(body)
	}

	switch {
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", botcore.ErrExpiredMusicServiceToken, apiErr)
	case status == http.StatusForbidden && apiErr.Reason == "PREMIUM_REQUIRED":
		return fmt.Errorf("%w: %w", botcore.ErrNoServiceSubscription, apiErr)
	default:
		return apiErr
	}
}

// APIError is a non-2xx Web API answer.
type APIError struct {
	Status  int
	Message string
	Reason  string
}

// Error implements error.
func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("spotify: status=%d reason=%s message=%s", e.Status, e.Reason, e.Message)
	}
	return fmt.Sprintf("spotify: status=%d message=%s", e.Status, e.Message)
}
