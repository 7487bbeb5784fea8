package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nowplaying-bot/internal/botcore"
)

func spotifyShare() (*botcore.Message, botcore.ShareSongData) {
	m := groupMessage()
	m.MusicServiceType = botcore.Spotify
	return m, botcore.ShareSongData{Track: botcore.Track{
		ID:        "spotify:track:1",
		Name:      "One More Time",
		Artists:   "Daft Punk",
		URL:       "https://open.spotify.com/track/1",
		Thumbnail: &botcore.Thumbnail{URL: "https://i.scdn.co/image/abc", Width: 300, Height: 300},
	}}
}

func TestShareRendersCard(t *testing.T) {
	r := NewMessages("https://example.org/donate")
	m, data := spotifyShare()

	content := r.Share(m, data, botcore.ShareSongConfig{
		Control: botcore.Flag(true),
		Loading: botcore.Flag(true),
		Donate:  botcore.Flag(true),
	})

	assert.Contains(t, content.Text, "alice is listening to")
	assert.Contains(t, content.Text, "<b>One More Time - Daft Punk</b>")
	assert.Contains(t, content.Text, "Looking for links")
	assert.Equal(t, data.Track.Thumbnail, content.Image)

	require.Len(t, content.Buttons, 4)
	assert.Equal(t, "https://open.spotify.com/track/1", content.Buttons[0][0].URL)
	assert.Equal(t, "PLAY|spotify|spotify:track:1", content.Buttons[1][0].Action)
	assert.Equal(t, "TOGGLE_PLAY|spotify|spotify:track:1", content.Buttons[2][1].Action)
	assert.Equal(t, "https://example.org/donate", content.Buttons[3][0].URL)
}

func TestShareAnonymousWithLinks(t *testing.T) {
	r := NewMessages("")
	m, data := spotifyShare()
	data.SongWhip = &botcore.SongWhip{
		URL: "https://songwhip.com/daft-punk/one-more-time",
		Links: []botcore.Link{
			{Service: "spotify", URL: "https://open.spotify.com/track/1"},
			{Service: "deezer", URL: "https://www.deezer.com/track/3135556"},
			{Service: "tidal", URL: "https://tidal.com/track/1"},
			{Service: "youtubeMusic", URL: "https://music.youtube.com/watch?v=1"},
		},
	}

	content := r.Share(m, data, botcore.ShareSongConfig{Anonymous: botcore.Flag(true)})

	assert.NotContains(t, content.Text, "listening to")
	assert.NotContains(t, content.Text, "Looking for links")
	require.Len(t, content.Buttons, 2)
	var names []string
	for _, row := range content.Buttons {
		for _, b := range row {
			names = append(names, b.Text)
		}
	}
	assert.Equal(t, []string{"Spotify", "Songwhip", "Deezer", "Tidal", "YouTube Music"}, names)
}

func TestDeezerControlsOnlyFavorite(t *testing.T) {
	rows := controlButtons(botcore.Deezer, "3135556")
	require.Len(t, rows, 1)
	require.Len(t, rows[0], 1)

	a, err := botcore.ParseAction(rows[0][0].Action)
	require.NoError(t, err)
	assert.Equal(t, botcore.Action{Kind: botcore.ActionFavorite, Service: botcore.Deezer, ID: "3135556"}, a)
}

func TestShareEscapesHTML(t *testing.T) {
	r := NewMessages("")
	m, data := spotifyShare()
	m.From.Name = "<script>"
	data.Track.Name = "Rock & Roll"

	content := r.Share(m, data, botcore.ShareSongConfig{})
	assert.Contains(t, content.Text, "&lt;script&gt; is listening to")
	assert.Contains(t, content.Text, "<b>Rock &amp; Roll - Daft Punk</b>")
}

func TestSearchItems(t *testing.T) {
	r := NewMessages("https://example.org/donate")
	m, data := spotifyShare()

	item := r.SearchItem(m, data.Track)
	assert.Equal(t, "spotify:track:1", item.ID)
	assert.Equal(t, "One More Time", item.Title)
	assert.Equal(t, "Daft Punk", item.Description)
	assert.Nil(t, item.Content.Image)
	assert.NotEmpty(t, item.Content.Buttons)

	assert.Equal(t, "donate", r.SearchDonate(m).ID)

	failure := r.SearchFailure(m, botcore.KindNoMusicService)
	assert.Equal(t, "failure:"+botcore.KindNoMusicService.String(), failure.ID)
	assert.Contains(t, failure.Title, "/start")
}

func TestFailureFallsBackToUnknown(t *testing.T) {
	r := NewMessages("")
	assert.Equal(t, r.Failure(nil, botcore.KindUnknown), r.Failure(nil, botcore.ErrorKind(99)))
}

func TestHistory(t *testing.T) {
	r := NewMessages("")
	assert.Contains(t, r.History(nil, nil).Text, "No songs")

	content := r.History(nil, []botcore.HistoryEntry{
		{Name: "One More Time", Artists: "Daft Punk", URL: "https://open.spotify.com/track/1", UserName: "alice"},
		{Name: "Around the World", Artists: "Daft Punk"},
	})
	assert.Contains(t, content.Text, `1. <a href="https://open.spotify.com/track/1">`)
	assert.Contains(t, content.Text, "(alice)")
	assert.Contains(t, content.Text, "2. ")
}

func TestSignUpLinks(t *testing.T) {
	r := NewMessages("")
	content := r.SignUp(nil, []botcore.LoginLink{
		{Service: botcore.Spotify, URL: "https://accounts.spotify.com/authorize?state=x"},
		{Service: botcore.Deezer, URL: "https://connect.deezer.com/oauth/auth.php?state=x"},
	})
	require.Len(t, content.Buttons, 2)
	assert.Equal(t, "Connect Spotify", content.Buttons[0][0].Text)
	assert.Equal(t, "Connect Deezer", content.Buttons[1][0].Text)
}

func TestShareTitleWithoutArtists(t *testing.T) {
	r := NewMessages("")
	m, data := spotifyShare()
	data.Track.Artists = ""

	content := r.Share(m, data, botcore.ShareSongConfig{Anonymous: botcore.Flag(true)})
	assert.Equal(t, "<b>One More Time</b>", content.Text)
}
