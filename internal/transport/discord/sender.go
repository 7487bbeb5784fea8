package discord

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"nowplaying-bot/internal/botcore"
)

// Discord limits.
const (
	maxChoices       = 25
	maxChoiceLength  = 100
	maxButtonsPerRow = 5
	maxRows          = 5
)

// session is the part of *discordgo.Session the sender uses.
type session interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	FollowupMessageEdit(interaction *discordgo.Interaction, messageID string, data *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Sender answers through the interaction that produced a message while its
// token is valid and through plain channel messages afterwards.
type Sender struct {
	session      session
	interactions *interactions
	feedChannel  string
	logger       *zap.Logger
}

var _ botcore.Sender = (*Sender)(nil)

// NewSender builds a sender. feedChannel receives PostToChat shares; an
// empty id disables the feed.
func NewSender(s session, feedChannel string, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{
		session:      s,
		interactions: newInteractions(interactionTTL),
		feedChannel:  feedChannel,
		logger:       logger,
	}
}

// Track registers the interaction that a message was built from.
func (s *Sender) Track(m *botcore.Message, i *discordgo.Interaction) {
	s.interactions.put(m.ID.String(), i)
}

// SendMessage answers the interaction or posts to the channel.
func (s *Sender) SendMessage(ctx context.Context, m *botcore.Message, content botcore.Content) error {
	_, err := s.reply(ctx, m, content)
	return err
}

// SendShare posts a card and returns its message id for later edits.
func (s *Sender) SendShare(ctx context.Context, m *botcore.Message, content botcore.Content) (botcore.ID, error) {
	msg, err := s.reply(ctx, m, content)
	if err != nil {
		return botcore.ID{}, err
	}
	return botcore.StringID(msg.ID), nil
}

// UpdateShare edits a posted card through the interaction when it is
// still valid and through the channel otherwise.
func (s *Sender) UpdateShare(ctx context.Context, m *botcore.Message, target botcore.ID, content botcore.Content) error {
	out := render(content)
	id := m.ID.String()

	if i, original, ok := s.interactions.lookup(id, target.String()); ok {
		edit := &discordgo.WebhookEdit{
			Content:    &out.Content,
			Embeds:     &out.Embeds,
			Components: &out.Components,
		}
		var err error
		if original {
			_, err = s.session.InteractionResponseEdit(i, edit, discordgo.WithContext(ctx))
		} else {
			_, err = s.session.FollowupMessageEdit(i, target.String(), edit, discordgo.WithContext(ctx))
		}
		if err != nil {
			return fmt.Errorf("discord edit response: %w", err)
		}
		return nil
	}

	edit := discordgo.NewMessageEdit(m.ChatID().String(), target.String())
	edit.Content = &out.Content
	edit.Embeds = &out.Embeds
	edit.Components = &out.Components
	if _, err := s.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord edit message: %w", err)
	}
	return nil
}

// SendSearch answers an autocomplete interaction with up to 25 choices.
func (s *Sender) SendSearch(ctx context.Context, m *botcore.Message, items []botcore.SearchItem, _ botcore.SearchOptions) error {
	i, ok := s.interactions.get(m.ID.String())
	if !ok {
		return fmt.Errorf("autocomplete interaction %s expired", m.ID)
	}

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, min(len(items), maxChoices))
	for _, item := range items {
		if len(choices) == maxChoices {
			break
		}
		if len(item.ID) > maxChoiceLength {
			s.logger.Debug("skip search item with long id", zap.String("id", item.ID))
			continue
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncate(item.Title, maxChoiceLength),
			Value: item.ID,
		})
	}

	err := s.session.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord autocomplete: %w", err)
	}
	return nil
}

// AnswerToAction fills the ephemeral response deferred for the button press.
func (s *Sender) AnswerToAction(ctx context.Context, m *botcore.Message, content botcore.Content) error {
	_, err := s.reply(ctx, m, content)
	return err
}

// EnableKeyboard posts a message with playback buttons; Discord has no
// reply keyboards.
func (s *Sender) EnableKeyboard(ctx context.Context, m *botcore.Message, content botcore.Content) error {
	_, err := s.reply(ctx, m, content)
	return err
}

// DisableKeyboard only confirms; there is no keyboard to remove.
func (s *Sender) DisableKeyboard(ctx context.Context, m *botcore.Message, content botcore.Content) error {
	_, err := s.reply(ctx, m, content)
	return err
}

// SendUnlinkService confirms an unlink.
func (s *Sender) SendUnlinkService(ctx context.Context, m *botcore.Message, content botcore.Content) error {
	_, err := s.reply(ctx, m, content)
	return err
}

// PostToChat copies a share into the feed channel.
func (s *Sender) PostToChat(ctx context.Context, m *botcore.Message, content botcore.Content) error {
	if s.feedChannel == "" {
		s.logger.Debug("feed channel is not configured, skip post", zap.String("user_id", m.From.ID.String()))
		return nil
	}
	if _, err := s.session.ChannelMessageSendComplex(s.feedChannel, render(content), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord post to feed: %w", err)
	}
	return nil
}

// reply edits the deferred response on the first answer, adds followups
// after that and falls back to the channel once the interaction expired.
func (s *Sender) reply(ctx context.Context, m *botcore.Message, content botcore.Content) (*discordgo.Message, error) {
	out := render(content)
	id := m.ID.String()

	i, first, ok := s.interactions.claim(id)
	if !ok {
		msg, err := s.session.ChannelMessageSendComplex(m.ChatID().String(), out, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("discord send: %w", err)
		}
		return msg, nil
	}

	if first {
		msg, err := s.session.InteractionResponseEdit(i, &discordgo.WebhookEdit{
			Content:    &out.Content,
			Embeds:     &out.Embeds,
			Components: &out.Components,
		}, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("discord edit response: %w", err)
		}
		s.interactions.setOriginal(id, msg.ID)
		return msg, nil
	}

	msg, err := s.session.FollowupMessageCreate(i, true, &discordgo.WebhookParams{
		Content:    out.Content,
		Embeds:     out.Embeds,
		Components: out.Components,
		Flags:      flagsOf(i),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("discord followup: %w", err)
	}
	return msg, nil
}

// flagsOf keeps followups ephemeral when the interaction was answered
// ephemerally.
func flagsOf(i *discordgo.Interaction) discordgo.MessageFlags {
	if i.Type == discordgo.InteractionMessageComponent {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}

// render converts content to a Discord message. Cards with an image become
// an embed with a thumbnail.
func render(content botcore.Content) *discordgo.MessageSend {
	out := &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{},
		Components: components(content.Buttons),
	}
	if content.Image == nil {
		out.Content = content.Text
		return out
	}
	out.Embeds = append(out.Embeds, &discordgo.MessageEmbed{
		Description: content.Text,
		Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: content.Image.URL},
	})
	return out
}

// components lays buttons out in action rows of at most five.
func components(rows [][]botcore.Button) []discordgo.MessageComponent {
	out := []discordgo.MessageComponent{}
	var row []discordgo.MessageComponent
	flush := func() {
		if len(row) > 0 && len(out) < maxRows {
			out = append(out, discordgo.ActionsRow{Components: row})
		}
		row = nil
	}

	for _, buttons := range rows {
		for _, b := range buttons {
			switch {
			case b.URL != "":
				row = append(row, discordgo.Button{Label: b.Text, Style: discordgo.LinkButton, URL: b.URL})
			case b.Action != "":
				row = append(row, discordgo.Button{Label: b.Text, Style: discordgo.SecondaryButton, CustomID: b.Action})
			default:
				continue
			}
			if len(row) == maxButtonsPerRow {
				flush()
			}
		}
		flush()
	}
	return out
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
