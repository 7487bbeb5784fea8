package spotify

type currentlyPlayingResponse struct {
	IsPlaying bool      `json:"is_playing"`
	Type      string    `json:"currently_playing_type"`
	Item      *trackDTO `json:"item"`
}

type playbackStateResponse struct {
	IsPlaying bool `json:"is_playing"`
	Device    struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"device"`
}

type searchResponse struct {
	Tracks trackPage `json:"tracks"`
}

type trackPage struct {
	Items  []trackDTO `json:"items"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
	Next   *string    `json:"next"`
	Total  int        `json:"total"`
}

type trackDTO struct {
	ID           string       `json:"id"`
	URI          string       `json:"uri"`
	Name         string       `json:"name"`
	Artists      []artistDTO  `json:"artists"`
	Album        albumDTO     `json:"album"`
	ExternalURLs externalURLs `json:"external_urls"`
}

type artistDTO struct {
	Name string `json:"name"`
}

type albumDTO struct {
	Name   string     `json:"name"`
	Images []imageDTO `json:"images"`
}

type imageDTO struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

type profileDTO struct {
	ID           string       `json:"id"`
	DisplayName  string       `json:"display_name"`
	Product      string       `json:"product"`
	Images       []imageDTO   `json:"images"`
	ExternalURLs externalURLs `json:"external_urls"`
}

type errorResponse struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
		Reason  string `json:"reason"`
	} `json:"error"`
}
