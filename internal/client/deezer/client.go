package deezer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"nowplaying-bot/internal/botcore"
)

const (
	apiBase     = "https://api.deezer.com"
	connectBase = "https://connect.deezer.com"
	userAgent   = "nowplaying-bot/1.0"
	perms       = "basic_access,offline_access,manage_library,listening_history"

	codeAlreadyExists = 801
)

// HTTPClient wraps the stdlib client for easier testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIClient talks to the Deezer API. Deezer has no playback control, so the
// player methods report *botcore.NotSupportedError.
type APIClient struct {
	httpClient  HTTPClient
	appID       string
	secret      string
	redirectURL string
	apiBase     string
	connectBase string
	logger      *zap.Logger
}

// Option configures an APIClient.
type Option func(*APIClient)

// WithAPIBase overrides the REST endpoint, mostly for tests.
func WithAPIBase(base string) Option {
	return func(c *APIClient) { c.apiBase = strings.TrimRight(base, "/") }
}

// WithConnectBase overrides the OAuth endpoint.
func WithConnectBase(base string) Option {
	return func(c *APIClient) { c.connectBase = strings.TrimRight(base, "/") }
}

// NewClient builds a Deezer client for one registered app.
func NewClient(httpClient HTTPClient, appID, secret, redirectURL string, logger *zap.Logger, opts ...Option) *APIClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	c := &APIClient{
		httpClient:  httpClient,
		appID:       appID,
		secret:      secret,
		redirectURL: redirectURL,
		apiBase:     apiBase,
		connectBase: connectBase,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Type identifies the service.
func (c *APIClient) Type() botcore.MusicServiceType { return botcore.Deezer }

// AuthURL is the Deezer login page for state.
func (c *APIClient) AuthURL(state string) string {
	q := url.Values{}
	q.Set("app_id", c.appID)
	q.Set("redirect_uri", c.redirectURL)
	q.Set("perms", perms)
	q.Set("state", state)
	return c.connectBase + "/oauth/auth.php?" + q.Encode()
}

// Exchange trades an authorization code for an access token. Tokens issued
// with offline_access never expire.
func (c *APIClient) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	q := url.Values{}
	q.Set("app_id", c.appID)
	q.Set("secret", c.secret)
	q.Set("code", code)
	q.Set("output", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.connectBase+"/oauth/access_token.php?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	c.attachHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("exchange code failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var payload tokenResponse
	if err := json.Unmarshal(body, &payload); err != nil || payload.AccessToken == "" {
		return nil, fmt.Errorf("exchange code failed: body=%s", string(body))
	}

	tok := &oauth2.Token{AccessToken: payload.AccessToken, TokenType: "Bearer"}
	if payload.Expires > 0 {
		tok.Expiry = time.Now().Add(time.Duration(payload.Expires) * time.Second)
	}
	return tok, nil
}

// Refresh cannot renew Deezer tokens; an expired one has to be linked again.
func (c *APIClient) Refresh(_ context.Context, tok *oauth2.Token) (*oauth2.Token, error) {
	if !tok.Valid() {
		return nil, botcore.ErrExpiredMusicServiceToken
	}
	return tok, nil
}

// CurrentTrack returns the last entry of the listening history.
func (c *APIClient) CurrentTrack(ctx context.Context, tok *oauth2.Token) (botcore.Track, error) {
	var payload trackList
	if err := c.call(ctx, tok, http.MethodGet, "/user/me/history", url.Values{"limit": {"1"}}, &payload); err != nil {
		return botcore.Track{}, fmt.Errorf("listening history: %w", err)
	}
	if len(payload.Data) == 0 {
		return botcore.Track{}, botcore.ErrNoTrack
	}
	return mapTrack(payload.Data[0]), nil
}

// Track loads one track by id.
func (c *APIClient) Track(ctx context.Context, tok *oauth2.Token, id string) (botcore.Track, error) {
	if id == "" {
		return botcore.Track{}, fmt.Errorf("track id is empty")
	}

	var payload trackDTO
	if err := c.call(ctx, tok, http.MethodGet, "/track/"+url.PathEscape(id), nil, &payload); err != nil {
		return botcore.Track{}, fmt.Errorf("get track: %w", err)
	}
	return mapTrack(payload), nil
}

// Previous is not available through the Deezer API.
func (c *APIClient) Previous(context.Context, *oauth2.Token) error {
	return &botcore.NotSupportedError{Service: botcore.Deezer, Op: "previous track"}
}

// Next is not supported either.
func (c *APIClient) Next(context.Context, *oauth2.Token) error {
	return &botcore.NotSupportedError{Service: botcore.Deezer, Op: "next track"}
}

// Play is not supported either.
func (c *APIClient) Play(context.Context, *oauth2.Token, string) error {
	return &botcore.NotSupportedError{Service: botcore.Deezer, Op: "play"}
}

// Queue is not supported either.
func (c *APIClient) Queue(context.Context, *oauth2.Token, string) error {
	return &botcore.NotSupportedError{Service: botcore.Deezer, Op: "add to queue"}
}

// TogglePlay is not supported either.
func (c *APIClient) TogglePlay(context.Context, *oauth2.Token) (botcore.PlayAction, error) {
	return "", &botcore.NotSupportedError{Service: botcore.Deezer, Op: "toggle play"}
}

// ToggleFavorite adds the first track to the loved tracks, removing it
// instead when it is already there.
func (c *APIClient) ToggleFavorite(ctx context.Context, tok *oauth2.Token, ids []string) (botcore.FavoriteAction, error) {
	if len(ids) == 0 || ids[0] == "" {
		return "", fmt.Errorf("track ids are empty")
	}
	q := url.Values{"track_id": {ids[0]}}

	err := c.call(ctx, tok, http.MethodPost, "/user/me/tracks", q, nil)
	if err == nil {
		return botcore.FavoriteSaved, nil
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != codeAlreadyExists {
		return "", fmt.Errorf("add favorite: %w", err)
	}

	if err := c.call(ctx, tok, http.MethodDelete, "/user/me/tracks", q, nil); err != nil {
		return "", fmt.Errorf("remove favorite: %w", err)
	}
	return botcore.FavoriteRemoved, nil
}

// Profile loads the current user.
func (c *APIClient) Profile(ctx context.Context, tok *oauth2.Token) (botcore.Profile, error) {
	var payload userDTO
	if err := c.call(ctx, tok, http.MethodGet, "/user/me", nil, &payload); err != nil {
		return botcore.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return botcore.Profile{
		ID:      strconv.FormatInt(payload.ID, 10),
		Name:    payload.Name,
		URL:     payload.Link,
		Product: payload.product(),
		Avatar:  payload.Picture,
	}, nil
}

// Search looks tracks up by free text.
func (c *APIClient) Search(ctx context.Context, tok *oauth2.Token, query string, page botcore.Pagination) (botcore.SearchPage, error) {
	if strings.TrimSpace(query) == "" {
		return botcore.SearchPage{}, fmt.Errorf("query is empty")
	}
	if page.Limit <= 0 {
		page.Limit = 20
	}
	if page.Offset < 0 {
		page.Offset = 0
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("index", strconv.Itoa(page.Offset))
	q.Set("limit", strconv.Itoa(page.Limit))

	var payload trackList
	if err := c.call(ctx, tok, http.MethodGet, "/search/track", q, &payload); err != nil {
		return botcore.SearchPage{}, fmt.Errorf("search: %w", err)
	}

	items := make([]botcore.Track, 0, len(payload.Data))
	for _, t := range payload.Data {
		items = append(items, mapTrack(t))
	}
	return botcore.SearchPage{
		Items: items,
		Pagination: botcore.Pagination{
			Offset: page.Offset,
			Limit:  page.Limit,
			Next:   payload.Next != "",
		},
	}, nil
}

// call performs an API request. Deezer reports most failures as an error
// object in a 200 response, so the body is always checked for one.
func (c *APIClient) call(ctx context.Context, tok *oauth2.Token, method, path string, query url.Values, out any) error {
	if query == nil {
		query = url.Values{}
	}
	if tok != nil && tok.AccessToken != "" {
		query.Set("access_token", tok.AccessToken)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	c.attachHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if len(body) > 4<<10 {
			body = body[:4<<10]
		}
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, string(body))
	}

	var envelope errorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		apiErr := envelope.Error
		if apiErr.Type == "OAuthException" {
			return fmt.Errorf("%w: %w", botcore.ErrExpiredMusicServiceToken, apiErr)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *APIClient) attachHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
}
