package telegram

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"nowplaying-bot/internal/botcore"
)

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	updates  chan tgbotapi.Update
	sendErr  error
	reqErr   error
	nextID   int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update, 8), nextID: 100}
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	f.sent = append(f.sent, c)
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reqErr != nil {
		return nil, f.reqErr
	}
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) sentAll() []tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), f.sent...)
}

func (f *fakeAPI) requestsAll() []tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), f.requests...)
}

// call is one BotService invocation seen by fakeService.
type call struct {
	Method  string
	Message *botcore.Message
	Config  botcore.ShareSongConfig
}

type fakeService struct {
	botcore.BotService

	mu    sync.Mutex
	calls []call
	seen  chan struct{}
}

func newFakeService() *fakeService {
	return &fakeService{seen: make(chan struct{}, 16)}
}

func (f *fakeService) record(method string, m *botcore.Message, cfg botcore.ShareSongConfig) {
	f.mu.Lock()
	f.calls = append(f.calls, call{Method: method, Message: m, Config: cfg})
	f.mu.Unlock()
	f.seen <- struct{}{}
}

func (f *fakeService) all() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeService) Messenger() botcore.MessengerType { return botcore.MessengerTelegram1 }

func (f *fakeService) SignUp(_ context.Context, m *botcore.Message) {
	f.record("SignUp", m, botcore.ShareSongConfig{})
}

func (f *fakeService) ShareSong(_ context.Context, m *botcore.Message, cfg botcore.ShareSongConfig) error {
	f.record("ShareSong", m, cfg)
	return nil
}

func (f *fakeService) ShareSongWithoutControls(_ context.Context, m *botcore.Message) error {
	f.record("ShareSongWithoutControls", m, botcore.ShareSongConfig{})
	return nil
}

func (f *fakeService) Search(_ context.Context, m *botcore.Message) error {
	f.record("Search", m, botcore.ShareSongConfig{})
	return nil
}

func (f *fakeService) GetProfile(_ context.Context, m *botcore.Message) {
	f.record("GetProfile", m, botcore.ShareSongConfig{})
}

func (f *fakeService) History(_ context.Context, m *botcore.Message) {
	f.record("History", m, botcore.ShareSongConfig{})
}

func (f *fakeService) UnlinkService(_ context.Context, m *botcore.Message) {
	f.record("UnlinkService", m, botcore.ShareSongConfig{})
}

func (f *fakeService) PlaySong(_ context.Context, m *botcore.Message) {
	f.record("PlaySong", m, botcore.ShareSongConfig{})
}

func (f *fakeService) ToggleFavorite(_ context.Context, m *botcore.Message) {
	f.record("ToggleFavorite", m, botcore.ShareSongConfig{})
}

func (f *fakeService) NextSong(_ context.Context, m *botcore.Message) {
	f.record("NextSong", m, botcore.ShareSongConfig{})
}
