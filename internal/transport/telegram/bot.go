package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"nowplaying-bot/internal/botcore"
)

const handlerTimeout = 30 * time.Second

// botAPI is the part of *tgbotapi.BotAPI the adapter uses.
type botAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

var commands = []tgbotapi.BotCommand{
	{Command: "share", Description: "Share the song you are listening to"},
	{Command: "sharenocontrols", Description: "Share without playback buttons"},
	{Command: "me", Description: "Show your music profile"},
	{Command: "history", Description: "Songs recently shared in this chat"},
	{Command: "keyboard", Description: "Show the playback keyboard"},
	{Command: "hidekeyboard", Description: "Hide the playback keyboard"},
	{Command: "donate", Description: "Support the bot"},
	{Command: "unlink", Description: "Unlink your music service"},
	{Command: "start", Description: "Link a music service"},
}

// Bot turns Telegram updates into BotService calls.
type Bot struct {
	api      botAPI
	username string
	service  botcore.BotService
	logger   *zap.Logger
}

// NewAPI connects to the Bot API with the given token.
func NewAPI(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	api.Debug = false
	return api, nil
}

// NewBot constructs a bot over an API client and the messenger's service.
// username is the bot's own @handle; commands mentioning another bot are
// ignored.
func NewBot(api botAPI, username string, service botcore.BotService, logger *zap.Logger) (*Bot, error) {
	if api == nil {
		return nil, fmt.Errorf("telegram api is nil")
	}
	if service == nil {
		return nil, fmt.Errorf("bot service is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Bot{
		api:      api,
		username: username,
		service:  service,
		logger:   logger.With(zap.String("messenger", string(service.Messenger()))),
	}, nil
}

// Start begins long polling and handles incoming updates until ctx is done.
func (b *Bot) Start(ctx context.Context) error {
	if _, err := b.api.Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		b.logger.Warn("set bot commands failed", zap.Error(err))
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 10

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	b.logger.Info("telegram bot started", zap.String("username", b.username))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return fmt.Errorf("telegram updates channel closed")
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.InlineQuery != nil:
		go b.handleInlineQuery(ctx, update.InlineQuery)
	case update.CallbackQuery != nil:
		go b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		go b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	name, ok := b.command(msg)
	if !ok {
		b.logger.Debug("command addressed to another bot", zap.String("text", msg.Text))
		return
	}

	m := b.fromMessage(msg)
	var err error
	switch name {
	case "start":
		b.service.SignUp(ctx, m)
	case "share", keyShare:
		err = b.service.ShareSong(ctx, m, botcore.ShareSongConfig{})
	case "sharenocontrols", "silent":
		err = b.service.ShareSongWithoutControls(ctx, m)
	case "me":
		b.service.GetProfile(ctx, m)
	case "donate":
		b.service.Donate(ctx, m)
	case "history":
		b.service.History(ctx, m)
	case "keyboard":
		b.service.EnableKeyboard(ctx, m)
	case "hidekeyboard":
		b.service.DisableKeyboard(ctx, m)
	case "unlink":
		b.service.UnlinkService(ctx, m)
	case keyPrevious:
		b.service.PreviousSong(ctx, m)
	case keyToggle:
		b.service.TogglePlay(ctx, m)
	case keyNext:
		b.service.NextSong(ctx, m)
	default:
		return
	}
	if err != nil {
		b.logger.Error("handle command failed", zap.String("text", msg.Text), zap.Error(err))
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	m := b.fromCallback(cb)
	action, err := botcore.ParseAction(cb.Data)
	if err != nil {
		b.logger.Warn("unknown callback data", zap.String("data", cb.Data), zap.Error(err))
		if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
			b.logger.Warn("callback ack failed", zap.Error(err))
		}
		return
	}

	switch action.Kind {
	case botcore.ActionPlay:
		b.service.PlaySong(ctx, m)
	case botcore.ActionQueue:
		b.service.AddSongToQueue(ctx, m)
	case botcore.ActionFavorite:
		b.service.ToggleFavorite(ctx, m)
	case botcore.ActionPrevious:
		b.service.PreviousSong(ctx, m)
	case botcore.ActionNext:
		b.service.NextSong(ctx, m)
	case botcore.ActionTogglePlay:
		b.service.TogglePlay(ctx, m)
	}
}

func (b *Bot) handleInlineQuery(ctx context.Context, q *tgbotapi.InlineQuery) {
	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	if err := b.service.Search(ctx, b.fromInlineQuery(q)); err != nil {
		b.logger.Warn("inline search failed", zap.String("query", q.Query), zap.Error(err))
	}
}

// command returns the command name without slash and bot mention, or the
// raw text for reply keyboard labels. It reports false for commands that
// mention another bot, e.g. /share@other_bot in a group both bots are in.
func (b *Bot) command(msg *tgbotapi.Message) (string, bool) {
	if !msg.IsCommand() {
		return strings.TrimSpace(msg.Text), true
	}
	name, mention, found := strings.Cut(msg.CommandWithAt(), "@")
	if found && b.username != "" && !strings.EqualFold(mention, b.username) {
		return "", false
	}
	return strings.ToLower(name), true
}

func (b *Bot) fromMessage(msg *tgbotapi.Message) *botcore.Message {
	m := botcore.NewMessage(b.service.Messenger(), botcore.TypeMessage)
	m.ID = botcore.NumericID(int64(msg.MessageID))
	m.Text = msg.Text
	m.Chat = chatOf(msg.Chat)
	m.From = userOf(msg.From)
	return m
}

func (b *Bot) fromCallback(cb *tgbotapi.CallbackQuery) *botcore.Message {
	m := botcore.NewMessage(b.service.Messenger(), botcore.TypeAction)
	m.ID = botcore.StringID(cb.ID)
	m.Text = cb.Data
	m.From = userOf(cb.From)
	if cb.Message != nil {
		m.Chat = chatOf(cb.Message.Chat)
	}
	return m
}

func (b *Bot) fromInlineQuery(q *tgbotapi.InlineQuery) *botcore.Message {
	m := botcore.NewMessage(b.service.Messenger(), botcore.TypeSearch)
	m.ID = botcore.StringID(q.ID)
	m.Text = strings.TrimSpace(q.Query)
	m.Offset = q.Offset
	m.From = userOf(q.From)
	return m
}

func chatOf(c *tgbotapi.Chat) *botcore.Chat {
	if c == nil {
		return nil
	}
	kind := botcore.ChatGroup
	if c.IsPrivate() {
		kind = botcore.ChatPrivate
	}
	return &botcore.Chat{ID: botcore.NumericID(c.ID), Type: kind}
}

func userOf(u *tgbotapi.User) botcore.User {
	if u == nil {
		return botcore.User{}
	}
	return botcore.User{ID: botcore.NumericID(u.ID), Name: u.String()}
}
