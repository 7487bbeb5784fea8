package discord

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/bwmarrin/discordgo"

	"nowplaying-bot/internal/botcore"
)

// sent is one call made against fakeGateway.
type sent struct {
	Method    string
	Target    string
	Response  *discordgo.InteractionResponse
	Edit      *discordgo.WebhookEdit
	Params    *discordgo.WebhookParams
	Message   *discordgo.MessageSend
	EditOfMsg *discordgo.MessageEdit
	Ctx       context.Context
}

// requestContext applies request options to a blank request and returns the
// context the REST call would run with.
func requestContext(options []discordgo.RequestOption) context.Context {
	cfg := &discordgo.RequestConfig{Request: httptest.NewRequest(http.MethodPost, "/", nil)}
	for _, o := range options {
		o(cfg)
	}
	return cfg.Request.Context()
}

type fakeGateway struct {
	mu      sync.Mutex
	calls   []sent
	nextID  int
	handler interface{}
	opened  bool
}

func (f *fakeGateway) record(c sent) *discordgo.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	f.nextID++
	return &discordgo.Message{ID: fmt.Sprintf("%d", 9000+f.nextID)}
}

func (f *fakeGateway) all() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.calls...)
}

func (f *fakeGateway) methods() []string {
	var out []string
	for _, c := range f.all() {
		out = append(out, c.Method)
	}
	return out
}

func (f *fakeGateway) InteractionRespond(i *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	f.record(sent{Method: "InteractionRespond", Target: i.ID, Response: resp, Ctx: requestContext(options)})
	return nil
}

func (f *fakeGateway) InteractionResponseEdit(i *discordgo.Interaction, edit *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return f.record(sent{Method: "InteractionResponseEdit", Target: i.ID, Edit: edit, Ctx: requestContext(options)}), nil
}

func (f *fakeGateway) FollowupMessageCreate(i *discordgo.Interaction, _ bool, params *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return f.record(sent{Method: "FollowupMessageCreate", Target: i.ID, Params: params, Ctx: requestContext(options)}), nil
}

func (f *fakeGateway) FollowupMessageEdit(i *discordgo.Interaction, messageID string, edit *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return f.record(sent{Method: "FollowupMessageEdit", Target: messageID, Edit: edit, Ctx: requestContext(options)}), nil
}

func (f *fakeGateway) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return f.record(sent{Method: "ChannelMessageSendComplex", Target: channelID, Message: data, Ctx: requestContext(options)}), nil
}

func (f *fakeGateway) ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return f.record(sent{Method: "ChannelMessageEditComplex", Target: m.ID, EditOfMsg: m, Ctx: requestContext(options)}), nil
}

func (f *fakeGateway) AddHandler(handler interface{}) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
	return func() {}
}

func (f *fakeGateway) Open() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = true
	return nil
}

func (f *fakeGateway) Close() error { return nil }

func (f *fakeGateway) User(string, ...discordgo.RequestOption) (*discordgo.User, error) {
	return &discordgo.User{ID: "555", Username: "nowplaying"}, nil
}

func (f *fakeGateway) ApplicationCommandBulkOverwrite(_ string, _ string, cmds []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	f.record(sent{Method: "ApplicationCommandBulkOverwrite", Ctx: requestContext(options)})
	return cmds, nil
}

type call struct {
	Method  string
	Message *botcore.Message
}

type fakeService struct {
	botcore.BotService

	mu    sync.Mutex
	calls []call
	err   error
}

func (f *fakeService) record(method string, m *botcore.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Method: method, Message: m})
}

func (f *fakeService) last() call {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return call{}
	}
	return f.calls[len(f.calls)-1]
}

func (f *fakeService) Messenger() botcore.MessengerType { return botcore.MessengerDiscord }

func (f *fakeService) ShareSong(_ context.Context, m *botcore.Message, _ botcore.ShareSongConfig) error {
	f.record("ShareSong", m)
	return f.err
}

func (f *fakeService) Search(_ context.Context, m *botcore.Message) error {
	f.record("Search", m)
	return nil
}

func (f *fakeService) GetProfile(_ context.Context, m *botcore.Message) { f.record("GetProfile", m) }
func (f *fakeService) PlaySong(_ context.Context, m *botcore.Message)   { f.record("PlaySong", m) }
func (f *fakeService) NextSong(_ context.Context, m *botcore.Message)   { f.record("NextSong", m) }
