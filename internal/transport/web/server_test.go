package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nowplaying-bot/internal/botcore"
	"nowplaying-bot/internal/services/music"
)

type fakeTokens struct {
	service botcore.MusicServiceType
	code    string
	state   string
	err     error
}

func (f *fakeTokens) CreateAndSaveTokens(_ context.Context, service botcore.MusicServiceType, code, state string) (botcore.Account, error) {
	f.service, f.code, f.state = service, code, state
	if f.err != nil {
		return botcore.Account{}, f.err
	}
	return botcore.Account{Platform: "telegram", UserID: "42"}, nil
}

type fakeShares struct {
	chat  string
	limit int
}

func (f *fakeShares) Recent(_ context.Context, chatID string, limit int) ([]botcore.HistoryEntry, error) {
	f.chat, f.limit = chatID, limit
	return []botcore.HistoryEntry{{ChatID: chatID, Name: "One More Time", SharedAt: time.Unix(0, 0).UTC()}}, nil
}

func (f *fakeShares) Latest(_ context.Context, limit int) ([]botcore.HistoryEntry, error) {
	f.limit = limit
	return nil, nil
}

func newTestServer(t *testing.T, tokens *fakeTokens, shares *fakeShares, cs ...prometheus.Collector) *Server {
	t.Helper()
	s, err := NewServer(Options{Addr: "127.0.0.1:0", Tokens: tokens, Shares: shares, Collectors: cs})
	require.NoError(t, err)
	return s
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &fakeTokens{}, &fakeShares{})
	rec := get(t, s, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestOAuthCallback(t *testing.T) {
	tokens := &fakeTokens{}
	s := newTestServer(t, tokens, &fakeShares{})

	rec := get(t, s, "/callback/spotify?code=abc&state=signed")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "linked")
	assert.Equal(t, botcore.Spotify, tokens.service)
	assert.Equal(t, "abc", tokens.code)
	assert.Equal(t, "signed", tokens.state)
}

func TestOAuthCallbackErrors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		status int
	}{
		{"missing code", "/callback/spotify?state=x", nil, http.StatusBadRequest},
		{"cancelled", "/callback/deezer?error_reason=user_denied&error=access_denied", nil, http.StatusOK},
		{"bad state", "/callback/spotify?code=a&state=b", fmt.Errorf("%w: expired", music.ErrInvalidState), http.StatusBadRequest},
		{"unknown service", "/callback/tidal?code=a&state=b", fmt.Errorf("%w: %q", music.ErrUnknownService, "tidal"), http.StatusNotFound},
		{"exchange failed", "/callback/spotify?code=a&state=b", errors.New("invalid_grant"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &fakeTokens{err: tt.err}, &fakeShares{})
			assert.Equal(t, tt.status, get(t, s, tt.target).Code)
		})
	}
}

func TestListShares(t *testing.T) {
	shares := &fakeShares{}
	s := newTestServer(t, &fakeTokens{}, shares)

	rec := get(t, s, "/api/shares?chat=-100&limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "-100", shares.chat)
	assert.Equal(t, 5, shares.limit)

	var body sharesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Shares, 1)
	assert.Equal(t, "One More Time", body.Shares[0].Name)

	rec = get(t, s, "/api/shares?limit=1000")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxSharesLimit, shares.limit)
	assert.JSONEq(t, `{"shares":[]}`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/shares?limit=abc").Code)
}

func TestMetricsIncludeCollectors(t *testing.T) {
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "nowplaying_test_total", Help: "test"})
	counter.Inc()
	s := newTestServer(t, &fakeTokens{}, &fakeShares{}, counter)

	get(t, s, "/health")
	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "nowplaying_test_total 1")
	assert.Contains(t, rec.Body.String(), "nowplaying_requests_total")
}

func TestNewServerValidates(t *testing.T) {
	_, err := NewServer(Options{Shares: &fakeShares{}})
	assert.Error(t, err)
	_, err = NewServer(Options{Tokens: &fakeTokens{}})
	assert.Error(t, err)
}

func TestStartStopsWithContext(t *testing.T) {
	s := newTestServer(t, &fakeTokens{}, &fakeShares{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
