package songwhip

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"nowplaying-bot/internal/botcore"
)

const (
	apiBase   = "https://songwhip.com"
	userAgent = "nowplaying-bot/1.0"
)

// HTTPClient wraps the stdlib client for easier testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIClient resolves streaming links into a Songwhip page with links to the
// same track on other services.
type APIClient struct {
	httpClient HTTPClient
	baseURL    string
	logger     *zap.Logger
}

var _ botcore.Enricher = (*APIClient)(nil)

// NewClient builds a client; an empty baseURL uses the public API.
func NewClient(httpClient HTTPClient, baseURL string, logger *zap.Logger) *APIClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	if baseURL == "" {
		baseURL = apiBase
	}

	return &APIClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

type lookupRequest struct {
	URL string `json:"url"`
}

type lookupResponse struct {
	Type  string                `json:"type"`
	Name  string                `json:"name"`
	URL   string                `json:"url"`
	Links map[string][]linkInfo `json:"links"`
}

type linkInfo struct {
	Link      string   `json:"link"`
	Countries []string `json:"countries"`
}

// Lookup returns nil without an error when Songwhip does not know the track.
func (c *APIClient) Lookup(ctx context.Context, track botcore.Track) (*botcore.SongWhip, error) {
	if track.URL == "" {
		return nil, nil
	}

	raw, err := json.Marshal(lookupRequest{URL: track.URL})
	if err != nil {
		return nil, fmt.Errorf("encode lookup: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.logger.Debug("songwhip has no match", zap.String("url", track.URL))
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("songwhip lookup failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var payload lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode songwhip response: %w", err)
	}
	if payload.URL == "" {
		return nil, nil
	}

	return mapSongWhip(c.baseURL, payload), nil
}

func mapSongWhip(baseURL string, p lookupResponse) *botcore.SongWhip {
	page := p.URL
	if strings.HasPrefix(page, "/") {
		page = baseURL + page
	}

	services := make([]string, 0, len(p.Links))
	for service := range p.Links {
		services = append(services, service)
	}
	sort.Strings(services)

	links := make([]botcore.Link, 0, len(services))
	for _, service := range services {
		for _, l := range p.Links[service] {
			if l.Link != "" {
				links = append(links, botcore.Link{Service: service, URL: l.Link})
				break
			}
		}
	}

	return &botcore.SongWhip{URL: page, Links: links}
}
