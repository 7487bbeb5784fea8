package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"nowplaying-bot/internal/botcore"
)

const handlerTimeout = 30 * time.Second

// gateway is the part of *discordgo.Session the bot uses besides sending.
type gateway interface {
	session
	AddHandler(handler interface{}) func()
	Open() error
	Close() error
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// Commands answered ephemerally are only visible to the caller.
var commands = []*discordgo.ApplicationCommand{
	{Name: "share", Description: "Share the song you are listening to"},
	{Name: "sharenocontrols", Description: "Share without playback buttons"},
	{
		Name:        "play",
		Description: "Find a song and play it",
		Options: []*discordgo.ApplicationCommandOption{{
			Type:         discordgo.ApplicationCommandOptionString,
			Name:         "song",
			Description:  "Song to search for",
			Required:     true,
			Autocomplete: true,
		}},
	},
	{Name: "me", Description: "Show your music profile"},
	{Name: "history", Description: "Songs recently shared in this channel"},
	{Name: "keyboard", Description: "Show playback controls"},
	{Name: "hidekeyboard", Description: "Hide playback controls"},
	{Name: "donate", Description: "Support the bot"},
	{Name: "unlink", Description: "Unlink your music service"},
	{Name: "start", Description: "Link a music service"},
}

var publicCommands = map[string]bool{
	"share":           true,
	"sharenocontrols": true,
	"history":         true,
}

// Bot turns Discord interactions into BotService calls.
type Bot struct {
	gateway gateway
	sender  *Sender
	service botcore.BotService
	logger  *zap.Logger
}

// NewSession creates a Discord session for a bot token.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuilds
	return s, nil
}

// NewBot wires a Discord session to the service. Answers go through sender.
func NewBot(gw gateway, sender *Sender, service botcore.BotService, logger *zap.Logger) (*Bot, error) {
	switch {
	case gw == nil:
		return nil, fmt.Errorf("discord session is nil")
	case sender == nil:
		return nil, fmt.Errorf("sender is nil")
	case service == nil:
		return nil, fmt.Errorf("bot service is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		gateway: gw,
		sender:  sender,
		service: service,
		logger:  logger.With(zap.String("messenger", string(service.Messenger()))),
	}, nil
}

// Start opens the gateway, registers slash commands and handles
// interactions until ctx is done.
func (b *Bot) Start(ctx context.Context) error {
	remove := b.gateway.AddHandler(func(_ *discordgo.Session, ic *discordgo.InteractionCreate) {
		go b.handleInteraction(ctx, ic.Interaction)
	})
	defer remove()

	if err := b.gateway.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	defer b.gateway.Close()

	me, err := b.gateway.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("load bot user: %w", err)
	}
	if _, err := b.gateway.ApplicationCommandBulkOverwrite(me.ID, "", commands, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}

	b.logger.Info("discord bot started", zap.String("user", me.Username))
	<-ctx.Done()
	return ctx.Err()
}

func (b *Bot) handleInteraction(ctx context.Context, i *discordgo.Interaction) {
	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(ctx, i)
	case discordgo.InteractionMessageComponent:
		b.handleComponent(ctx, i)
	case discordgo.InteractionApplicationCommandAutocomplete:
		b.handleAutocomplete(ctx, i)
	}
}

func (b *Bot) handleCommand(ctx context.Context, i *discordgo.Interaction) {
	data := i.ApplicationCommandData()
	if !b.deferResponse(ctx, i, !publicCommands[data.Name]) {
		return
	}

	var err error
	switch data.Name {
	case "start":
		b.service.SignUp(ctx, b.fromInteraction(i, botcore.TypeMessage, ""))
	case "share":
		err = b.service.ShareSong(ctx, b.fromInteraction(i, botcore.TypeMessage, ""), botcore.ShareSongConfig{})
	case "sharenocontrols":
		err = b.service.ShareSongWithoutControls(ctx, b.fromInteraction(i, botcore.TypeMessage, ""))
	case "play":
		b.play(ctx, i, optionValue(data.Options, "song"))
	case "me":
		b.service.GetProfile(ctx, b.fromInteraction(i, botcore.TypeMessage, ""))
	case "history":
		b.service.History(ctx, b.fromInteraction(i, botcore.TypeMessage, ""))
	case "keyboard":
		b.service.EnableKeyboard(ctx, b.fromInteraction(i, botcore.TypeMessage, ""))
	case "hidekeyboard":
		b.service.DisableKeyboard(ctx, b.fromInteraction(i, botcore.TypeMessage, ""))
	case "donate":
		b.service.Donate(ctx, b.fromInteraction(i, botcore.TypeMessage, ""))
	case "unlink":
		b.service.UnlinkService(ctx, b.fromInteraction(i, botcore.TypeMessage, ""))
	default:
		b.logger.Warn("unknown command", zap.String("command", data.Name))
		b.notice(ctx, i, "Unknown command.")
	}
	if err != nil {
		b.logger.Error("handle command failed", zap.String("command", data.Name), zap.Error(err))
		b.notice(ctx, i, "Something went wrong. Please try again later.")
	}
}

// play starts the song picked from the autocomplete suggestions. The
// suggestion value is an encoded play action.
func (b *Bot) play(ctx context.Context, i *discordgo.Interaction, value string) {
	action, err := botcore.ParseAction(value)
	if err != nil || action.Kind != botcore.ActionPlay {
		b.notice(ctx, i, "Pick a song from the suggestions.")
		return
	}
	b.service.PlaySong(ctx, b.fromInteraction(i, botcore.TypeAction, value))
}

func (b *Bot) handleComponent(ctx context.Context, i *discordgo.Interaction) {
	customID := i.MessageComponentData().CustomID
	if !b.deferResponse(ctx, i, true) {
		return
	}

	action, err := botcore.ParseAction(customID)
	if err != nil {
		b.logger.Warn("unknown component", zap.String("custom_id", customID), zap.Error(err))
		b.notice(ctx, i, "This button is no longer supported.")
		return
	}

	m := b.fromInteraction(i, botcore.TypeAction, customID)
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

// handleAutocomplete cannot be deferred; the queued search answers it.
func (b *Bot) handleAutocomplete(ctx context.Context, i *discordgo.Interaction) {
	query := focusedValue(i.ApplicationCommandData().Options)
	if err := b.service.Search(ctx, b.fromInteraction(i, botcore.TypeSearch, query)); err != nil {
		b.logger.Warn("autocomplete search failed", zap.String("query", query), zap.Error(err))
	}
}

// deferResponse acknowledges the interaction within Discord's three second
// window; the answer follows from the queue or the service.
func (b *Bot) deferResponse(ctx context.Context, i *discordgo.Interaction, ephemeral bool) bool {
	resp := &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource}
	if ephemeral {
		resp.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	if err := b.gateway.InteractionRespond(i, resp, discordgo.WithContext(ctx)); err != nil {
		b.logger.Warn("defer interaction failed", zap.String("interaction_id", i.ID), zap.Error(err))
		return false
	}
	return true
}

// notice fills the deferred response with a plain text.
func (b *Bot) notice(ctx context.Context, i *discordgo.Interaction, text string) {
	if _, err := b.gateway.InteractionResponseEdit(i, &discordgo.WebhookEdit{Content: &text}, discordgo.WithContext(ctx)); err != nil {
		b.logger.Warn("interaction notice failed", zap.String("interaction_id", i.ID), zap.Error(err))
	}
}

// fromInteraction builds a message and registers the interaction with the
// sender so answers reach the caller.
func (b *Bot) fromInteraction(i *discordgo.Interaction, kind botcore.MessageType, text string) *botcore.Message {
	m := botcore.NewMessage(b.service.Messenger(), kind)
	m.ID = botcore.StringID(i.ID)
	m.Text = text
	if kind != botcore.TypeSearch {
		chat := botcore.ChatGroup
		if i.GuildID == "" {
			chat = botcore.ChatPrivate
		}
		m.Chat = &botcore.Chat{ID: botcore.StringID(i.ChannelID), Type: chat}
	}
	if u := userOf(i); u != nil {
		name := u.GlobalName
		if name == "" {
			name = u.Username
		}
		m.From = botcore.User{ID: botcore.StringID(u.ID), Name: name}
	}
	b.sender.Track(m, i)
	return m
}

func userOf(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

func optionValue(options []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, o := range options {
		if o.Name == name && o.Type == discordgo.ApplicationCommandOptionString {
			return o.StringValue()
		}
	}
	return ""
}

func focusedValue(options []*discordgo.ApplicationCommandInteractionDataOption) string {
	for _, o := range options {
		if o.Focused && o.Type == discordgo.ApplicationCommandOptionString {
			return o.StringValue()
		}
	}
	return ""
}
