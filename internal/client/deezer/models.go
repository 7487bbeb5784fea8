package deezer

import (
	"fmt"
	"strconv"

	"nowplaying-bot/internal/botcore"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	Expires     int64  `json:"expires"`
}

type trackList struct {
	Data  []trackDTO `json:"data"`
	Total int        `json:"total"`
	Next  string     `json:"next"`
}

type trackDTO struct {
	ID     int64     `json:"id"`
	Title  string    `json:"title"`
	Link   string    `json:"link"`
	Artist artistDTO `json:"artist"`
	Album  albumDTO  `json:"album"`
}

type artistDTO struct {
	Name string `json:"name"`
}

type albumDTO struct {
	Title       string `json:"title"`
	CoverMedium string `json:"cover_medium"`
}

type userDTO struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Link    string `json:"link"`
	Picture string `json:"picture_medium"`
	Status  int    `json:"status"`
}

// product names the subscription tier behind the numeric status.
func (u userDTO) product() string {
	switch u.Status {
	case 0:
		return "free"
	case 1:
		return "premium"
	case 2:
		return "family"
	default:
		return ""
	}
}

type errorResponse struct {
	Error *APIError `json:"error"`
}

// APIError is the error object Deezer embeds in responses.
type APIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Error implements error.
func (e *APIError) Error() string {
	return fmt.Sprintf("deezer: %s (%d): %s", e.Type, e.Code, e.Message)
}

func mapTrack(t trackDTO) botcore.Track {
	track := botcore.Track{
		ID:      strconv.FormatInt(t.ID, 10),
		Name:    t.Title,
		Artists: t.Artist.Name,
		URL:     t.Link,
	}
	if t.Album.CoverMedium != "" {
		track.Thumbnail = &botcore.Thumbnail{URL: t.Album.CoverMedium, Width: 250, Height: 250}
	}
	return track
}
