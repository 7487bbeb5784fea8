package spotify

import (
	"strings"

	"nowplaying-bot/internal/botcore"
)

const (
	trackURIPrefix = "spotify:track:"
	thumbnailWidth = 300
)

// mapTrack converts API model to botcore.Track. The track id is the URI.
func mapTrack(t trackDTO) botcore.Track {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		if a.Name != "" {
			artists = append(artists, a.Name)
		}
	}

	id := t.URI
	if id == "" && t.ID != "" {
		id = trackURIPrefix + t.ID
	}

	return botcore.Track{
		ID:        id,
		Name:      t.Name,
		Artists:   strings.Join(artists, ", "),
		URL:       t.ExternalURLs.Spotify,
		Thumbnail: pickImage(t.Album.Images),
	}
}

func mapProfile(p profileDTO) botcore.Profile {
	profile := botcore.Profile{
		ID:      p.ID,
		Name:    p.DisplayName,
		URL:     p.ExternalURLs.Spotify,
		Product: p.Product,
	}
	if img := pickImage(p.Images); img != nil {
		profile.Avatar = img.URL
	}
	if profile.Name == "" {
		profile.Name = p.ID
	}
	return profile
}

// pickImage chooses the smallest image at least thumbnailWidth wide, falling
// back to the largest one.
func pickImage(images []imageDTO) *botcore.Thumbnail {
	if len(images) == 0 {
		return nil
	}
	best := images[0]
	for _, img := range images[1:] {
		switch {
		case img.Width >= thumbnailWidth && (best.Width < thumbnailWidth || img.Width < best.Width):
			best = img
		case best.Width < thumbnailWidth && img.Width > best.Width:
			best = img
		}
	}
	return &botcore.Thumbnail{URL: best.URL, Width: best.Width, Height: best.Height}
}

// trackIDFrom accepts a bare id, a spotify:track URI or an open.spotify.com
// track link.
func trackIDFrom(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, trackURIPrefix):
		return strings.TrimPrefix(s, trackURIPrefix)
	case strings.Contains(s, "open.spotify.com/track/"):
		s = s[strings.Index(s, "/track/")+len("/track/"):]
		if i := strings.IndexAny(s, "?#/"); i >= 0 {
			s = s[:i]
		}
		return s
	default:
		return s
	}
}

// trackURI normalizes a track reference to a spotify:track URI.
func trackURI(s string) string {
	id := trackIDFrom(s)
	if id == "" {
		return ""
	}
	return trackURIPrefix + id
}
