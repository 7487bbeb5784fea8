package discord

import (
	"fmt"
	"strings"

	"nowplaying-bot/internal/botcore"
)

var failureTexts = map[botcore.ErrorKind]string{
	botcore.KindPrivateOnly:    "This command works in direct messages with the bot only.",
	botcore.KindNoMusicService: "You have not linked a music service yet. Send `/start` to the bot in direct messages.",
	botcore.KindExpiredToken:   "Your music service session has expired. Use `/unlink` and then `/start` to link it again.",
	botcore.KindNoTrack:        "Nothing is playing right now.",
	botcore.KindNoSubscription: "Your music service plan does not allow this. A premium subscription is required.",
	botcore.KindUnknown:        "Something went wrong. Please try again later.",
}

var markdown = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"~", `\~`,
	"`", "\\`",
	"|", `\|`,
	">", `\>`,
)

// Messages renders content as Discord Markdown.
type Messages struct {
	donateURL string
}

var _ botcore.Messages = (*Messages)(nil)

// NewMessages builds the Markdown renderer. An empty donateURL hides donation
// buttons.
func NewMessages(donateURL string) *Messages {
	return &Messages{donateURL: donateURL}
}

// SignUp lists one login button per music service.
func (r *Messages) SignUp(_ *botcore.Message, links []botcore.LoginLink) botcore.Content {
	buttons := make([]botcore.Button, 0, len(links))
	for _, l := range links {
		buttons = append(buttons, botcore.Button{Text: "Connect " + serviceName(l.Service), URL: l.URL})
	}
	return botcore.Content{
		Text:    "Pick the music service you listen to. After linking, use `/share` in any channel to show what is playing.",
		Buttons: [][]botcore.Button{buttons},
	}
}

// AlreadyConnected answers /start from a linked user.
func (r *Messages) AlreadyConnected(*botcore.Message) botcore.Content {
	return botcore.Content{Text: "You have already linked a music service. Use `/unlink` to switch to another one."}
}

// Failure renders the fixed text for a failure kind.
func (r *Messages) Failure(_ *botcore.Message, kind botcore.ErrorKind) botcore.Content {
	return botcore.Content{Text: failureText(kind)}
}

// NoActiveDevices answers playback actions without a device.
func (r *Messages) NoActiveDevices(*botcore.Message) botcore.Content {
	return botcore.Content{Text: "No active device found. Start playback on one of your devices first."}
}

// Share renders the share card: "Name - Artists", links and controls.
func (r *Messages) Share(m *botcore.Message, data botcore.ShareSongData, cfg botcore.ShareSongConfig) botcore.Content {
	track := data.Track

	var b strings.Builder
	if !cfg.IsAnonymous() && m.From.Name != "" {
		fmt.Fprintf(&b, "%s is listening to\n", escape(m.From.Name))
	}
	fmt.Fprintf(&b, "**%s**", escape(track.Title()))
	if cfg.IsLoading() {
		b.WriteString("\n\n*Looking for links…*")
	}

	var rows [][]botcore.Button
	if links := linkButtons(m.MusicServiceType, data); len(links) > 0 {
		rows = append(rows, links)
	}
	if cfg.ShowControl() {
		rows = append(rows, controlButtons(m.MusicServiceType, track.ID))
	}
	if cfg.ShowDonate() && r.donateURL != "" {
		rows = append(rows, []botcore.Button{{Text: "Support the bot", URL: r.donateURL}})
	}

	return botcore.Content{Text: b.String(), Image: track.Thumbnail, Buttons: rows}
}

func linkButtons(service botcore.MusicServiceType, data botcore.ShareSongData) []botcore.Button {
	var out []botcore.Button
	if data.Track.URL != "" {
		out = append(out, botcore.Button{Text: serviceName(service), URL: data.Track.URL})
	}
	if data.SongWhip == nil {
		return out
	}
	if data.SongWhip.URL != "" {
		out = append(out, botcore.Button{Text: "Songwhip", URL: data.SongWhip.URL})
	}
	for _, l := range data.SongWhip.Links {
		if botcore.MusicServiceType(l.Service) == service {
			continue
		}
		out = append(out, botcore.Button{Text: serviceName(botcore.MusicServiceType(l.Service)), URL: l.URL})
	}
	return out
}

// controlButtons fits one action row. Only Spotify exposes playback.
func controlButtons(service botcore.MusicServiceType, trackID string) []botcore.Button {
	action := func(kind botcore.ActionKind) string {
		return botcore.Action{Kind: kind, Service: service, ID: trackID}.Encode()
	}
	favorite := botcore.Button{Text: "❤️", Action: action(botcore.ActionFavorite)}
	if service != botcore.Spotify {
		return []botcore.Button{favorite}
	}
	return []botcore.Button{
		{Text: "▶️", Action: action(botcore.ActionPlay)},
		{Text: "➕", Action: action(botcore.ActionQueue)},
		favorite,
		{Text: "⏯", Action: action(botcore.ActionTogglePlay)},
		{Text: "⏭", Action: action(botcore.ActionNext)},
	}
}

// SearchItem uses an encoded play action as the id so that picking a
// suggestion in /play starts that track.
func (r *Messages) SearchItem(m *botcore.Message, track botcore.Track) botcore.SearchItem {
	return botcore.SearchItem{
		ID:          botcore.Action{Kind: botcore.ActionPlay, Service: m.MusicServiceType, ID: track.ID}.Encode(),
		Title:       track.Title(),
		Description: track.Artists,
		Thumbnail:   track.Thumbnail,
		Content:     botcore.Content{Text: track.Title()},
	}
}

// SearchDonate is the donation entry appended to search results.
func (r *Messages) SearchDonate(m *botcore.Message) botcore.SearchItem {
	return botcore.SearchItem{ID: "donate", Title: "Support the bot", Content: r.Donate(m)}
}

// SearchFailure renders a failure as a single search result.
func (r *Messages) SearchFailure(_ *botcore.Message, kind botcore.ErrorKind) botcore.SearchItem {
	msg := failureText(kind)
	return botcore.SearchItem{
		ID:      "failure:" + kind.String(),
		Title:   strings.ReplaceAll(msg, "`", ""),
		Content: botcore.Content{Text: msg},
	}
}

// Played confirms a play action.
func (r *Messages) Played(*botcore.Message) botcore.Content {
	return botcore.Content{Text: "▶️ Playing"}
}

// Queued confirms a queue action.
func (r *Messages) Queued(*botcore.Message) botcore.Content {
	return botcore.Content{Text: "➕ Added to queue"}
}

// Switched confirms a previous/next action.
func (r *Messages) Switched(*botcore.Message) botcore.Content {
	return botcore.Content{Text: "Switched"}
}

// Favorite confirms a favorite toggle.
func (r *Messages) Favorite(_ *botcore.Message, action botcore.FavoriteAction) botcore.Content {
	if action == botcore.FavoriteRemoved {
		return botcore.Content{Text: "💔 Removed from your library"}
	}
	return botcore.Content{Text: "❤️ Saved to your library"}
}

// Toggled confirms play or pause.
func (r *Messages) Toggled(_ *botcore.Message, action botcore.PlayAction) botcore.Content {
	if action == botcore.PlayPaused {
		return botcore.Content{Text: "⏸ Paused"}
	}
	return botcore.Content{Text: "▶️ Resumed"}
}

// Profile renders the linked account.
func (r *Messages) Profile(m *botcore.Message, p botcore.Profile) botcore.Content {
	text := fmt.Sprintf("**%s**\n%s", escape(p.Name), serviceName(m.MusicServiceType))
	if p.Product != "" {
		text += " (" + escape(p.Product) + ")"
	}
	content := botcore.Content{Text: text}
	if p.Avatar != "" {
		content.Image = &botcore.Thumbnail{URL: p.Avatar}
	}
	if p.URL != "" {
		content.Buttons = [][]botcore.Button{{{Text: "Open profile", URL: p.URL}}}
	}
	return content
}

// Donate renders the donation link.
func (r *Messages) Donate(*botcore.Message) botcore.Content {
	content := botcore.Content{Text: "The bot is free and ad-free. If you like it, you can buy the authors a coffee."}
	if r.donateURL != "" {
		content.Buttons = [][]botcore.Button{{{Text: "Donate", URL: r.donateURL}}}
	}
	return content
}

// History renders recent shares as a numbered list.
func (r *Messages) History(_ *botcore.Message, entries []botcore.HistoryEntry) botcore.Content {
	if len(entries) == 0 {
		return botcore.Content{Text: "No songs have been shared in this channel yet."}
	}

	var b strings.Builder
	b.WriteString("**Recently shared**")
	for i, e := range entries {
		title := escape(botcore.Track{Name: e.Name, Artists: e.Artists}.Title())
		if e.URL != "" {
			title = fmt.Sprintf("[%s](<%s>)", title, e.URL)
		}
		fmt.Fprintf(&b, "\n%d. %s", i+1, title)
		if e.UserName != "" {
			fmt.Fprintf(&b, " (%s)", escape(e.UserName))
		}
	}
	return botcore.Content{Text: b.String()}
}

// EnableKeyboard sends a standalone control panel. The action ids carry no
// track since these controls act on the current playback.
func (r *Messages) EnableKeyboard(*botcore.Message) botcore.Content {
	action := func(kind botcore.ActionKind) string {
		return botcore.Action{Kind: kind, Service: botcore.Spotify}.Encode()
	}
	return botcore.Content{
		Text: "Playback controls",
		Buttons: [][]botcore.Button{{
			{Text: "⏮", Action: action(botcore.ActionPrevious)},
			{Text: "⏯", Action: action(botcore.ActionTogglePlay)},
			{Text: "⏭", Action: action(botcore.ActionNext)},
		}},
	}
}

// DisableKeyboard confirms the keyboard was removed.
func (r *Messages) DisableKeyboard(*botcore.Message) botcore.Content {
	return botcore.Content{Text: "Discord has no reply keyboard to hide. Use `/keyboard` to get playback controls."}
}

// Unlinked confirms the music service was unlinked.
func (r *Messages) Unlinked(*botcore.Message) botcore.Content {
	return botcore.Content{Text: "Your music service has been unlinked. Use `/start` to link one again."}
}

func escape(s string) string {
	return markdown.Replace(s)
}

func failureText(kind botcore.ErrorKind) string {
	if t, ok := failureTexts[kind]; ok {
		return t
	}
	return failureTexts[botcore.KindUnknown]
}

func serviceName(s botcore.MusicServiceType) string {
	switch s {
	case botcore.Spotify:
		return "Spotify"
	case botcore.Deezer:
		return "Deezer"
	case "appleMusic", "itunes":
		return "Apple Music"
	case "youtubeMusic":
		return "YouTube Music"
	case "youtube":
		return "YouTube"
	case "tidal":
		return "Tidal"
	case "":
		return "Link"
	}
	name := string(s)
	return strings.ToUpper(name[:1]) + name[1:]
}
