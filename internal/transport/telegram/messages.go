package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"nowplaying-bot/internal/botcore"
)

// Keyboard labels double as commands when the reply keyboard is enabled.
const (
	keyShare    = "🎧 Share"
	keyPrevious = "⏮ Previous"
	keyToggle   = "⏯ Play/Pause"
	keyNext     = "⏭ Next"
)

var failureTexts = map[botcore.ErrorKind]string{
	botcore.KindPrivateOnly:    "This command works in a private chat with the bot only.",
	botcore.KindNoMusicService: "You have not linked a music service yet. Send /start to me in a private chat.",
	botcore.KindExpiredToken:   "Your music service session has expired. Send /unlink and then /start to link it again.",
	botcore.KindNoTrack:        "Nothing is playing right now.",
	botcore.KindNoSubscription: "Your music service plan does not allow this. A premium subscription is required.",
	botcore.KindUnknown:        "Something went wrong. Please try again later.",
}

var serviceNames = map[botcore.MusicServiceType]string{
	botcore.Spotify: "Spotify",
	botcore.Deezer:  "Deezer",
}

// Messages renders content as Telegram HTML.
type Messages struct {
	donateURL string
}

var _ botcore.Messages = (*Messages)(nil)

// NewMessages builds the HTML renderer. An empty donateURL hides donation
// buttons.
func NewMessages(donateURL string) *Messages {
	return &Messages{donateURL: donateURL}
}

// SignUp lists one login button per music service.
func (r *Messages) SignUp(_ *botcore.Message, links []botcore.LoginLink) botcore.Content {
	rows := make([][]botcore.Button, 0, len(links))
	for _, l := range links {
		rows = append(rows, []botcore.Button{{Text: "Connect " + serviceName(l.Service), URL: l.URL}})
	}
	return botcore.Content{
		Text:      "Pick the music service you listen to. After linking, send /share in any chat to show what is playing.",
		ParseMode: tgbotapi.ModeHTML,
		Buttons:   rows,
	}
}

// AlreadyConnected answers /start from a linked user.
func (r *Messages) AlreadyConnected(*botcore.Message) botcore.Content {
	return text("You have already linked a music service. Send /unlink to switch to another one.")
}

// Failure renders the fixed text for a failure kind.
func (r *Messages) Failure(_ *botcore.Message, kind botcore.ErrorKind) botcore.Content {
	return text(failureText(kind))
}

// NoActiveDevices answers playback actions without a device.
func (r *Messages) NoActiveDevices(*botcore.Message) botcore.Content {
	return text("No active device found. Start playback on one of your devices first.")
}

// Share renders the share card: "Name - Artists", links and controls.
func (r *Messages) Share(m *botcore.Message, data botcore.ShareSongData, cfg botcore.ShareSongConfig) botcore.Content {
	track := data.Track

	var b strings.Builder
	if !cfg.IsAnonymous() && m.From.Name != "" {
		fmt.Fprintf(&b, "%s is listening to\n", escape(m.From.Name))
	}
	fmt.Fprintf(&b, "<b>%s</b>", escape(track.Title()))
	if cfg.IsLoading() {
		b.WriteString("\n\n<i>Looking for links…</i>")
	}

	return botcore.Content{
		Text:           b.String(),
		ParseMode:      tgbotapi.ModeHTML,
		Image:          track.Thumbnail,
		Buttons:        r.shareButtons(m, data, cfg),
		DisablePreview: true,
	}
}

func (r *Messages) shareButtons(m *botcore.Message, data botcore.ShareSongData, cfg botcore.ShareSongConfig) [][]botcore.Button {
	var rows [][]botcore.Button

	links := linkButtons(m, data)
	for len(links) > 0 {
		n := min(3, len(links))
		rows = append(rows, links[:n])
		links = links[n:]
	}

	if cfg.ShowControl() {
		rows = append(rows, controlButtons(m.MusicServiceType, data.Track.ID)...)
	}
	if cfg.ShowDonate() && r.donateURL != "" {
		rows = append(rows, []botcore.Button{{Text: "☕ Support the bot", URL: r.donateURL}})
	}
	return rows
}

func linkButtons(m *botcore.Message, data botcore.ShareSongData) []botcore.Button {
	var out []botcore.Button
	if data.Track.URL != "" {
		out = append(out, botcore.Button{Text: serviceName(m.MusicServiceType), URL: data.Track.URL})
	}
	if data.SongWhip == nil {
		return out
	}
	if data.SongWhip.URL != "" {
		out = append(out, botcore.Button{Text: "Songwhip", URL: data.SongWhip.URL})
	}
	for _, l := range data.SongWhip.Links {
		if botcore.MusicServiceType(l.Service) == m.MusicServiceType {
			continue
		}
		out = append(out, botcore.Button{Text: linkName(l.Service), URL: l.URL})
	}
	return out
}

// controlButtons renders playback controls for services that support them.
func controlButtons(service botcore.MusicServiceType, trackID string) [][]botcore.Button {
	action := func(kind botcore.ActionKind) string {
		return botcore.Action{Kind: kind, Service: service, ID: trackID}.Encode()
	}
	favorite := botcore.Button{Text: "❤️", Action: action(botcore.ActionFavorite)}
	if service != botcore.Spotify {
		return [][]botcore.Button{{favorite}}
	}
	return [][]botcore.Button{
		{
			{Text: "▶️ Play", Action: action(botcore.ActionPlay)},
			{Text: "➕ Queue", Action: action(botcore.ActionQueue)},
			favorite,
		},
		{
			{Text: "⏮", Action: action(botcore.ActionPrevious)},
			{Text: "⏯", Action: action(botcore.ActionTogglePlay)},
			{Text: "⏭", Action: action(botcore.ActionNext)},
		},
	}
}

// SearchItem renders one inline search result.
func (r *Messages) SearchItem(m *botcore.Message, track botcore.Track) botcore.SearchItem {
	content := r.Share(m, botcore.ShareSongData{Track: track}, botcore.ShareSongConfig{Control: botcore.Flag(true)})
	content.Image = nil
	return botcore.SearchItem{
		ID:          track.ID,
		Title:       track.Name,
		Description: track.Artists,
		Thumbnail:   track.Thumbnail,
		Content:     content,
	}
}

// SearchDonate is the donation entry appended to search results.
func (r *Messages) SearchDonate(m *botcore.Message) botcore.SearchItem {
	return botcore.SearchItem{
		ID:          "donate",
		Title:       "☕ Support the bot",
		Description: "Help keep the bot running",
		Content:     r.Donate(m),
	}
}

// SearchFailure renders a failure as a single search result.
func (r *Messages) SearchFailure(_ *botcore.Message, kind botcore.ErrorKind) botcore.SearchItem {
	msg := failureText(kind)
	return botcore.SearchItem{
		ID:      "failure:" + kind.String(),
		Title:   msg,
		Content: text(msg),
	}
}

// Played confirms a play action.
func (r *Messages) Played(*botcore.Message) botcore.Content { return text("▶️ Playing") }

// Queued confirms a queue action.
func (r *Messages) Queued(*botcore.Message) botcore.Content { return text("➕ Added to queue") }

// Switched confirms a previous/next action.
func (r *Messages) Switched(*botcore.Message) botcore.Content { return text("Switched") }

// Favorite confirms a favorite toggle.
func (r *Messages) Favorite(_ *botcore.Message, action botcore.FavoriteAction) botcore.Content {
	if action == botcore.FavoriteRemoved {
		return text("💔 Removed from your library")
	}
	return text("❤️ Saved to your library")
}

// Toggled confirms play or pause.
func (r *Messages) Toggled(_ *botcore.Message, action botcore.PlayAction) botcore.Content {
	if action == botcore.PlayPaused {
		return text("⏸ Paused")
	}
	return text("▶️ Resumed")
}

// Profile renders the linked account.
func (r *Messages) Profile(m *botcore.Message, p botcore.Profile) botcore.Content {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n%s", escape(p.Name), serviceName(m.MusicServiceType))
	if p.Product != "" {
		fmt.Fprintf(&b, " (%s)", escape(p.Product))
	}
	content := botcore.Content{Text: b.String(), ParseMode: tgbotapi.ModeHTML}
	if p.URL != "" {
		content.Buttons = [][]botcore.Button{{{Text: "Open profile", URL: p.URL}}}
	}
	return content
}

// Donate renders the donation link.
func (r *Messages) Donate(*botcore.Message) botcore.Content {
	content := text("The bot is free and ad-free. If you like it, you can buy the authors a coffee.")
	if r.donateURL != "" {
		content.Buttons = [][]botcore.Button{{{Text: "☕ Donate", URL: r.donateURL}}}
	}
	return content
}

// History renders recent shares as a numbered list.
func (r *Messages) History(_ *botcore.Message, entries []botcore.HistoryEntry) botcore.Content {
	if len(entries) == 0 {
		return text("No songs have been shared in this chat yet.")
	}

	var b strings.Builder
	b.WriteString("<b>Recently shared</b>")
	for i, e := range entries {
		title := escape(botcore.Track{Name: e.Name, Artists: e.Artists}.Title())
		if e.URL != "" {
			title = fmt.Sprintf(`<a href="%s">%s</a>`, escape(e.URL), title)
		}
		fmt.Fprintf(&b, "\n%d. %s", i+1, title)
		if e.UserName != "" {
			fmt.Fprintf(&b, " (%s)", escape(e.UserName))
		}
	}
	return botcore.Content{Text: b.String(), ParseMode: tgbotapi.ModeHTML, DisablePreview: true}
}

// EnableKeyboard renders the playback keyboard.
func (r *Messages) EnableKeyboard(*botcore.Message) botcore.Content {
	content := text("Keyboard enabled.")
	content.Buttons = [][]botcore.Button{
		{{Text: keyShare}},
		{{Text: keyPrevious}, {Text: keyToggle}, {Text: keyNext}},
	}
	return content
}

// DisableKeyboard confirms the keyboard was removed.
func (r *Messages) DisableKeyboard(*botcore.Message) botcore.Content {
	return text("Keyboard hidden. Send /keyboard to bring it back.")
}

// Unlinked confirms the music service was unlinked.
func (r *Messages) Unlinked(*botcore.Message) botcore.Content {
	return text("Your music service has been unlinked. Send /start to link one again.")
}

func text(s string) botcore.Content {
	return botcore.Content{Text: escape(s), ParseMode: tgbotapi.ModeHTML}
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeHTML, s)
}

func failureText(kind botcore.ErrorKind) string {
	if t, ok := failureTexts[kind]; ok {
		return t
	}
	return failureTexts[botcore.KindUnknown]
}

func serviceName(s botcore.MusicServiceType) string {
	if name, ok := serviceNames[s]; ok {
		return name
	}
	return string(s)
}

func linkName(service string) string {
	if name, ok := serviceNames[botcore.MusicServiceType(service)]; ok {
		return name
	}
	switch service {
	case "appleMusic", "itunes":
		return "Apple Music"
	case "youtubeMusic":
		return "YouTube Music"
	case "youtube":
		return "YouTube"
	case "tidal":
		return "Tidal"
	}
	if service == "" {
		return "Link"
	}
	return strings.ToUpper(service[:1]) + service[1:]
}
