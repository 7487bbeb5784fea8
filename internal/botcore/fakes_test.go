package botcore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type sentCall struct {
	Method  string
	Content Content
	Target  ID
	Items   []SearchItem
	Opts    SearchOptions
}

type fakeSender struct {
	mu      sync.Mutex
	calls   []sentCall
	shareID ID
	err     error
}

func (f *fakeSender) record(c sentCall) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return f.err
}

func (f *fakeSender) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.Method)
	}
	return out
}

func (f *fakeSender) last() sentCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func (f *fakeSender) SendMessage(_ context.Context, _ *Message, c Content) error {
	return f.record(sentCall{Method: "SendMessage", Content: c})
}

func (f *fakeSender) SendShare(_ context.Context, _ *Message, c Content) (ID, error) {
	if err := f.record(sentCall{Method: "SendShare", Content: c}); err != nil {
		return ID{}, err
	}
	return f.shareID, nil
}

func (f *fakeSender) UpdateShare(_ context.Context, _ *Message, target ID, c Content) error {
	return f.record(sentCall{Method: "UpdateShare", Content: c, Target: target})
}

func (f *fakeSender) SendSearch(_ context.Context, _ *Message, items []SearchItem, opts SearchOptions) error {
	return f.record(sentCall{Method: "SendSearch", Items: items, Opts: opts})
}

func (f *fakeSender) AnswerToAction(_ context.Context, _ *Message, c Content) error {
	return f.record(sentCall{Method: "AnswerToAction", Content: c})
}

func (f *fakeSender) EnableKeyboard(_ context.Context, _ *Message, c Content) error {
	return f.record(sentCall{Method: "EnableKeyboard", Content: c})
}

func (f *fakeSender) DisableKeyboard(_ context.Context, _ *Message, c Content) error {
	return f.record(sentCall{Method: "DisableKeyboard", Content: c})
}

func (f *fakeSender) SendUnlinkService(_ context.Context, _ *Message, c Content) error {
	return f.record(sentCall{Method: "SendUnlinkService", Content: c})
}

func (f *fakeSender) PostToChat(_ context.Context, _ *Message, c Content) error {
	return f.record(sentCall{Method: "PostToChat", Content: c})
}

// textMessages renders every answer as a short tag so tests can match it.
type textMessages struct{}

func (textMessages) SignUp(_ *Message, links []LoginLink) Content {
	c := Content{Text: "sign-up"}
	for _, l := range links {
		c.Buttons = append(c.Buttons, []Button{{Text: string(l.Service), URL: l.URL}})
	}
	return c
}
func (textMessages) AlreadyConnected(*Message) Content { return Content{Text: "already-connected"} }
func (textMessages) Failure(_ *Message, kind ErrorKind) Content {
	return Content{Text: "failure:" + kind.String()}
}
func (textMessages) NoActiveDevices(*Message) Content { return Content{Text: "no-active-devices"} }
func (textMessages) Share(_ *Message, data ShareSongData, cfg ShareSongConfig) Content {
	text := data.Track.Title()
	if cfg.IsLoading() {
		text += " [loading]"
	}
	if data.SongWhip != nil {
		text += " " + data.SongWhip.URL
	}
	if cfg.IsAnonymous() {
		text += " [anonymous]"
	}
	c := Content{Text: text}
	if cfg.ShowControl() {
		c.Buttons = [][]Button{{{Text: "next", Action: Action{Kind: ActionNext}.Encode()}}}
	}
	return c
}
func (textMessages) SearchItem(_ *Message, t Track) SearchItem {
	return SearchItem{ID: t.ID, Title: t.Title()}
}
func (textMessages) SearchDonate(*Message) SearchItem {
	return SearchItem{ID: "donate", Title: "donate"}
}
func (textMessages) SearchFailure(_ *Message, kind ErrorKind) SearchItem {
	return SearchItem{ID: "failure:" + kind.String()}
}
func (textMessages) Played(*Message) Content   { return Content{Text: "played"} }
func (textMessages) Queued(*Message) Content   { return Content{Text: "queued"} }
func (textMessages) Switched(*Message) Content { return Content{Text: "switched"} }
func (textMessages) Favorite(_ *Message, a FavoriteAction) Content {
	return Content{Text: "favorite:" + string(a)}
}
func (textMessages) Toggled(_ *Message, a PlayAction) Content {
	return Content{Text: "toggled:" + string(a)}
}
func (textMessages) Profile(_ *Message, p Profile) Content { return Content{Text: "profile:" + p.Name} }
func (textMessages) Donate(*Message) Content               { return Content{Text: "donate"} }
func (textMessages) History(_ *Message, e []HistoryEntry) Content {
	return Content{Text: fmt.Sprintf("history:%d", len(e))}
}
func (textMessages) EnableKeyboard(*Message) Content  { return Content{Text: "keyboard-on"} }
func (textMessages) DisableKeyboard(*Message) Content { return Content{Text: "keyboard-off"} }
func (textMessages) Unlinked(*Message) Content        { return Content{Text: "unlinked"} }

type fakeMusic struct {
	mu    sync.Mutex
	calls []string

	current  func() (Result[Track], error)
	track    func(id string) (Result[Track], error)
	favorite func(ids []string) (Result[FavoriteAction], error)
	search   func(q string, p Pagination) (Result[SearchPage], error)
	action   error
}

func (f *fakeMusic) called(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeMusic) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeMusic) Services() []MusicServiceType {
	f.called("Services")
	return []MusicServiceType{Spotify, Deezer}
}

func (f *fakeMusic) CreateLoginURL(_ context.Context, service MusicServiceType, account Account) (string, error) {
	f.called("CreateLoginURL")
	return "https://login/" + string(service) + "/" + account.UserID, nil
}

func (f *fakeMusic) CreateAndSaveTokens(context.Context, MusicServiceType, string, string) (Account, error) {
	f.called("CreateAndSaveTokens")
	return Account{}, nil
}

func (f *fakeMusic) GetTokens(context.Context, Account) (Tokens, error) {
	f.called("GetTokens")
	return Tokens{}, nil
}

func (f *fakeMusic) SaveTokens(context.Context, Tokens) error {
	f.called("SaveTokens")
	return nil
}

func (f *fakeMusic) Remove(context.Context, Account) error {
	f.called("Remove")
	return nil
}

func (f *fakeMusic) GetCurrentTrack(context.Context, Account) (Result[Track], error) {
	f.called("GetCurrentTrack")
	if f.current == nil {
		return Result[Track]{}, ErrNoTrack
	}
	return f.current()
}

func (f *fakeMusic) GetTrack(_ context.Context, id string, _ Account) (Result[Track], error) {
	f.called("GetTrack")
	if f.track == nil {
		return Result[Track]{}, ErrNoTrack
	}
	return f.track(id)
}

func (f *fakeMusic) PreviousTrack(context.Context, Account) (MusicServiceType, error) {
	f.called("PreviousTrack")
	return Spotify, f.action
}

func (f *fakeMusic) NextTrack(context.Context, Account) (MusicServiceType, error) {
	f.called("NextTrack")
	return Spotify, f.action
}

func (f *fakeMusic) PlaySong(_ context.Context, uri string, _ Account) (MusicServiceType, error) {
	f.called("PlaySong:" + uri)
	return Spotify, f.action
}

func (f *fakeMusic) AddToQueue(_ context.Context, uri string, _ Account) (MusicServiceType, error) {
	f.called("AddToQueue:" + uri)
	return Spotify, f.action
}

func (f *fakeMusic) ToggleFavorite(_ context.Context, ids []string, _ Account) (Result[FavoriteAction], error) {
	f.called("ToggleFavorite")
	return f.favorite(ids)
}

func (f *fakeMusic) TogglePlay(context.Context, Account) (Result[PlayAction], error) {
	f.called("TogglePlay")
	return Result[PlayAction]{Type: Spotify, Data: PlayPaused}, f.action
}

func (f *fakeMusic) GetProfile(context.Context, Account) (Result[Profile], error) {
	f.called("GetProfile")
	return Result[Profile]{Type: Spotify, Data: Profile{Name: "Ann"}}, f.action
}

func (f *fakeMusic) SearchTracks(_ context.Context, q string, p Pagination, _ Account) (Result[SearchPage], error) {
	f.called("SearchTracks")
	return f.search(q, p)
}

type enqueued struct {
	Name    string
	Payload any
	Opts    JobOptions
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []enqueued
	err  error
}

func (f *fakeQueue) Enqueue(_ context.Context, name string, payload any, opts JobOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, enqueued{Name: name, Payload: payload, Opts: opts})
	return nil
}

func (f *fakeQueue) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.jobs))
	for _, j := range f.jobs {
		out = append(out, j.Name)
	}
	return out
}

// replay round-trips a job payload through JSON like the real queue does.
func replay[T any](t *testing.T, payload any) T {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	return out
}

type fakeUsers struct {
	mu       sync.Mutex
	created  map[string]bool
	unlinked int
}

func (f *fakeUsers) CreateUser(_ context.Context, m *Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.created == nil {
		f.created = map[string]bool{}
	}
	key := m.Account().String()
	if f.created[key] {
		return ErrUserExists
	}
	f.created[key] = true
	return nil
}

func (f *fakeUsers) UnlinkService(context.Context, *Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unlinked++
	return nil
}

type fakeHistory struct {
	mu      sync.Mutex
	entries []HistoryEntry
}

func (f *fakeHistory) Record(_ context.Context, e HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeHistory) Recent(_ context.Context, chatID string, limit int) ([]HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []HistoryEntry
	for _, e := range f.entries {
		if e.ChatID == chatID && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeEnricher struct {
	result *SongWhip
	err    error
}

func (f fakeEnricher) Lookup(context.Context, Track) (*SongWhip, error) {
	return f.result, f.err
}

type fixture struct {
	svc      *Service
	sender   *fakeSender
	music    *fakeMusic
	queue    *fakeQueue
	users    *fakeUsers
	history  *fakeHistory
	enricher *fakeEnricher
	logs     *observer.ObservedLogs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	f := &fixture{
		sender:   &fakeSender{shareID: NumericID(1001)},
		music:    &fakeMusic{},
		queue:    &fakeQueue{},
		users:    &fakeUsers{},
		history:  &fakeHistory{},
		enricher: &fakeEnricher{},
		logs:     logs,
	}
	svc, err := NewService(Options{
		Messenger: MessengerTelegram1,
		Sender:    f.sender,
		Messages:  textMessages{},
		Music:     f.music,
		Queue:     f.queue,
		Users:     f.users,
		History:   f.history,
		Enricher:  f.enricher,
		ShareDefaults: ShareSongConfig{
			Control:   Flag(true),
			Anonymous: Flag(false),
			Loading:   Flag(true),
			Donate:    Flag(false),
		},
		PostToChat: true,
		Logger:     zap.New(core),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc
	return f
}

func (f *fixture) errorLogs() int {
	return f.logs.FilterLevelExact(zapcore.ErrorLevel).Len()
}

func privateMessage(text string) *Message {
	m := NewMessage(MessengerTelegram1, TypeMessage)
	m.ID = NumericID(1)
	m.Chat = &Chat{ID: NumericID(7), Type: ChatPrivate}
	m.From = User{ID: NumericID(7), Name: "Ann"}
	m.Text = text
	return m
}

func groupMessage(text string) *Message {
	m := NewMessage(MessengerTelegram1, TypeMessage)
	m.ID = NumericID(2)
	m.Chat = &Chat{ID: NumericID(42), Type: ChatGroup}
	m.From = User{ID: NumericID(7), Name: "Ann"}
	m.Text = text
	return m
}

func actionMessage(data string) *Message {
	m := NewMessage(MessengerTelegram1, TypeAction)
	m.ID = StringID("cb-1")
	m.Chat = &Chat{ID: NumericID(42), Type: ChatGroup}
	m.From = User{ID: NumericID(7), Name: "Ann"}
	m.Text = data
	return m
}

func searchMessage(text, offset string) *Message {
	m := NewMessage(MessengerTelegram1, TypeSearch)
	m.ID = StringID("iq-1")
	m.From = User{ID: NumericID(7), Name: "Ann"}
	m.Text = text
	m.Offset = offset
	return m
}

func spotifyTrack() Result[Track] {
	return Result[Track]{Type: Spotify, Data: Track{
		ID:      "spotify:track:abc",
		Name:    "X",
		Artists: "Y",
		URL:     "u",
	}}
}
