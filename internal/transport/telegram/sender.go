package telegram

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"nowplaying-bot/internal/botcore"
)

// Telegram allows about 30 messages per second per bot.
const sendsPerSecond = 30

// Sender delivers rendered content through the Bot API.
type Sender struct {
	api         botAPI
	feedChatID  int64
	rateLimiter *rate.Limiter
	logger      *zap.Logger
}

var _ botcore.Sender = (*Sender)(nil)

// NewSender builds a sender. feedChatID is the chat that receives
// PostToChat shares; zero disables the feed.
func NewSender(api botAPI, feedChatID int64, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{
		api:         api,
		feedChatID:  feedChatID,
		rateLimiter: rate.NewLimiter(rate.Every(time.Second/sendsPerSecond), sendsPerSecond),
		logger:      logger,
	}
}

// SendMessage sends content to the message's chat.
func (s *Sender) SendMessage(ctx context.Context, m *botcore.Message, content botcore.Content) error {
	_, err := s.send(ctx, compose(int64ID(m.ChatID()), content))
	return err
}

// SendShare sends a card and returns its message id.
func (s *Sender) SendShare(ctx context.Context, m *botcore.Message, content botcore.Content) (botcore.ID, error) {
	sent, err := s.send(ctx, compose(int64ID(m.ChatID()), content))
	if err != nil {
		return botcore.ID{}, err
	}
	return botcore.NumericID(int64(sent.MessageID)), nil
}

// UpdateShare edits a posted card in place. Photo cards get a new caption.
func (s *Sender) UpdateShare(ctx context.Context, m *botcore.Message, target botcore.ID, content botcore.Content) error {
	chatID, messageID := int64ID(m.ChatID()), int(int64ID(target))
	markup := inlineKeyboard(content.Buttons)

	var edit tgbotapi.Chattable
	if content.Image != nil {
		caption := tgbotapi.NewEditMessageCaption(chatID, messageID, content.Text)
		caption.ParseMode = content.ParseMode
		caption.ReplyMarkup = markup
		edit = caption
	} else {
		msg := tgbotapi.NewEditMessageText(chatID, messageID, content.Text)
		msg.ParseMode = content.ParseMode
		msg.DisableWebPagePreview = content.DisablePreview
		msg.ReplyMarkup = markup
		edit = msg
	}

	err := s.request(ctx, edit)
	if err != nil && strings.Contains(err.Error(), "message is not modified") {
		return nil
	}
	return err
}

// SendSearch answers an inline query.
func (s *Sender) SendSearch(ctx context.Context, m *botcore.Message, items []botcore.SearchItem, opts botcore.SearchOptions) error {
	results := make([]interface{}, 0, len(items))
	for _, item := range items {
		results = append(results, searchResult(item))
	}

	return s.request(ctx, tgbotapi.InlineConfig{
		InlineQueryID: m.ID.String(),
		IsPersonal:    true,
		CacheTime:     0,
		Results:       results,
		NextOffset:    opts.NextOffset,
	})
}

// AnswerToAction acknowledges a button press with a plain-text toast. Messages that
// did not come from a button (reply keyboard) get a chat message instead.
func (s *Sender) AnswerToAction(ctx context.Context, m *botcore.Message, content botcore.Content) error {
	if m.Type() != botcore.TypeAction {
		return s.SendMessage(ctx, m, content)
	}
	return s.request(ctx, tgbotapi.NewCallback(m.ID.String(), html.UnescapeString(content.Text)))
}

// EnableKeyboard shows the playback reply keyboard.
func (s *Sender) EnableKeyboard(ctx context.Context, m *botcore.Message, content botcore.Content) error {
	msg := tgbotapi.NewMessage(int64ID(m.ChatID()), content.Text)
	msg.ParseMode = content.ParseMode
	msg.ReplyMarkup = replyKeyboard(content.Buttons)
	_, err := s.send(ctx, msg)
	return err
}

// DisableKeyboard removes the reply keyboard.
func (s *Sender) DisableKeyboard(ctx context.Context, m *botcore.Message, content botcore.Content) error {
	msg := tgbotapi.NewMessage(int64ID(m.ChatID()), content.Text)
	msg.ParseMode = content.ParseMode
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	_, err := s.send(ctx, msg)
	return err
}

// SendUnlinkService confirms the unlink and drops the reply keyboard, whose
// buttons need a linked service.
func (s *Sender) SendUnlinkService(ctx context.Context, m *botcore.Message, content botcore.Content) error {
	return s.DisableKeyboard(ctx, m, content)
}

// PostToChat copies a share into the feed chat.
func (s *Sender) PostToChat(ctx context.Context, m *botcore.Message, content botcore.Content) error {
	if s.feedChatID == 0 {
		s.logger.Debug("feed chat is not configured, skip post", zap.String("user_id", m.From.ID.String()))
		return nil
	}
	_, err := s.send(ctx, compose(s.feedChatID, content))
	return err
}

func (s *Sender) send(ctx context.Context, c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if err := s.rateLimiter.Wait(ctx); err != nil {
		return tgbotapi.Message{}, fmt.Errorf("rate limit: %w", err)
	}
	msg, err := s.api.Send(c)
	if err != nil {
		return tgbotapi.Message{}, fmt.Errorf("telegram send: %w", err)
	}
	return msg, nil
}

func (s *Sender) request(ctx context.Context, c tgbotapi.Chattable) error {
	if err := s.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	if _, err := s.api.Request(c); err != nil {
		return fmt.Errorf("telegram request: %w", err)
	}
	return nil
}

// compose builds a photo message when content has an image and a text
// message otherwise.
func compose(chatID int64, content botcore.Content) tgbotapi.Chattable {
	markup := inlineKeyboard(content.Buttons)

	if content.Image != nil {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(content.Image.URL))
		photo.Caption = content.Text
		photo.ParseMode = content.ParseMode
		if markup != nil {
			photo.ReplyMarkup = markup
		}
		return photo
	}

	msg := tgbotapi.NewMessage(chatID, content.Text)
	msg.ParseMode = content.ParseMode
	msg.DisableWebPagePreview = content.DisablePreview
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	return msg
}

func searchResult(item botcore.SearchItem) tgbotapi.InlineQueryResultArticle {
	article := tgbotapi.NewInlineQueryResultArticleHTML(item.ID, item.Title, item.Content.Text)
	article.Description = item.Description
	article.InputMessageContent = tgbotapi.InputTextMessageContent{
		Text:                  item.Content.Text,
		ParseMode:             item.Content.ParseMode,
		DisableWebPagePreview: item.Content.DisablePreview,
	}
	if item.Thumbnail != nil {
		article.ThumbURL = item.Thumbnail.URL
		article.ThumbWidth = item.Thumbnail.Width
		article.ThumbHeight = item.Thumbnail.Height
	}
	article.ReplyMarkup = inlineKeyboard(item.Content.Buttons)
	return article
}

// inlineKeyboard converts link and action buttons; it returns nil when
// there are none.
func inlineKeyboard(rows [][]botcore.Button) *tgbotapi.InlineKeyboardMarkup {
	var out [][]tgbotapi.InlineKeyboardButton
	for _, row := range rows {
		var buttons []tgbotapi.InlineKeyboardButton
		for _, b := range row {
			switch {
			case b.URL != "":
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
			case b.Action != "":
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Action))
			}
		}
		if len(buttons) > 0 {
			out = append(out, buttons)
		}
	}
	if len(out) == 0 {
		return nil
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(out...)
	return &markup
}

func replyKeyboard(rows [][]botcore.Button) tgbotapi.ReplyKeyboardMarkup {
	out := make([][]tgbotapi.KeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(b.Text))
		}
		out = append(out, buttons)
	}
	kb := tgbotapi.NewReplyKeyboard(out...)
	kb.ResizeKeyboard = true
	return kb
}

// int64ID returns the numeric value of a Telegram id. Telegram chat and
// message ids are always numeric.
func int64ID(id botcore.ID) int64 {
	v, _ := id.Int64()
	return v
}
