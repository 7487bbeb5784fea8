package songwhip

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nowplaying-bot/internal/botcore"
)

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req lookupRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		switch req.URL {
		case "https://open.spotify.com/track/known":
			_, _ = io.WriteString(w, `{
				"type": "track",
				"name": "Get Lucky",
				"url": "https://songwhip.com/daft-punk/get-lucky",
				"links": {
					"tidal": [{"link": "https://tidal.com/track/1", "countries": ["US"]}],
					"deezer": [{"link": "", "countries": []}, {"link": "https://www.deezer.com/track/2", "countries": ["FR"]}],
					"youtube": []
				}
			}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, nil)
	ctx := context.Background()

	sw, err := c.Lookup(ctx, botcore.Track{URL: "https://open.spotify.com/track/known"})
	require.NoError(t, err)
	require.NotNil(t, sw)
	assert.Equal(t, "https://songwhip.com/daft-punk/get-lucky", sw.URL)
	assert.Equal(t, []botcore.Link{
		{Service: "deezer", URL: "https://www.deezer.com/track/2"},
		{Service: "tidal", URL: "https://tidal.com/track/1"},
	}, sw.Links)

	sw, err = c.Lookup(ctx, botcore.Track{URL: "https://open.spotify.com/track/unknown"})
	require.NoError(t, err)
	assert.Nil(t, sw)

	sw, err = c.Lookup(ctx, botcore.Track{})
	require.NoError(t, err)
	assert.Nil(t, sw)
}

func TestLookupFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, "slow down")
	}))
	defer srv.Close()

	_, err := NewClient(srv.Client(), srv.URL, nil).Lookup(context.Background(), botcore.Track{URL: "https://x"})
	assert.ErrorContains(t, err, "status=429")
}

func TestRelativePageURL(t *testing.T) {
	sw := mapSongWhip("https://songwhip.com", lookupResponse{URL: "/daft-punk/get-lucky"})
	assert.Equal(t, "https://songwhip.com/daft-punk/get-lucky", sw.URL)
	assert.Empty(t, sw.Links)
}
