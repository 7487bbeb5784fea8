package botcore

import "time"

// SongWhip holds cross-platform links for a track.
type SongWhip struct {
	URL   string `json:"url"`
	Links []Link `json:"links,omitempty"`
}

// Link is a track page on one streaming service.
type Link struct {
	Service string `json:"service"`
	URL     string `json:"url"`
}

// ShareSongData is what a share card is rendered from.
type ShareSongData struct {
	Track    Track     `json:"track"`
	SongWhip *SongWhip `json:"songWhip,omitempty"`
}

// ShareSongConfig controls how a share card is rendered. Unset flags fall
// back to the baseline given to the service.
type ShareSongConfig struct {
	Control   *bool `json:"control,omitempty"`
	Anonymous *bool `json:"anonymous,omitempty"`
	Loading   *bool `json:"loading,omitempty"`
	Donate    *bool `json:"donate,omitempty"`
}

// Flag returns a pointer for use in ShareSongConfig literals.
func Flag(v bool) *bool { return &v }

// Over fills every unset flag of c from base.
func (c ShareSongConfig) Over(base ShareSongConfig) ShareSongConfig {
	pick := func(v, b *bool) *bool {
		if v != nil {
			return Flag(*v)
		}
		if b != nil {
			return Flag(*b)
		}
		return nil
	}
	return ShareSongConfig{
		Control:   pick(c.Control, base.Control),
		Anonymous: pick(c.Anonymous, base.Anonymous),
		Loading:   pick(c.Loading, base.Loading),
		Donate:    pick(c.Donate, base.Donate),
	}
}

// ShowControl reports whether playback buttons are attached.
func (c ShareSongConfig) ShowControl() bool { return c.Control != nil && *c.Control }

// IsAnonymous hides the sharer's name.
func (c ShareSongConfig) IsAnonymous() bool { return c.Anonymous != nil && *c.Anonymous }

// IsLoading marks a card whose links are still being looked up.
func (c ShareSongConfig) IsLoading() bool { return c.Loading != nil && *c.Loading }

// ShowDonate adds the donation button.
func (c ShareSongConfig) ShowDonate() bool { return c.Donate != nil && *c.Donate }

// HistoryEntry is one recorded share.
type HistoryEntry struct {
	ChatID    string           `json:"chatId" db:"chat_id"`
	Messenger MessengerType    `json:"messenger" db:"messenger"`
	UserID    string           `json:"userId" db:"user_id"`
	UserName  string           `json:"userName" db:"user_name"`
	Service   MusicServiceType `json:"service" db:"service"`
	TrackID   string           `json:"trackId" db:"track_id"`
	Name      string           `json:"name" db:"name"`
	Artists   string           `json:"artists" db:"artists"`
	URL       string           `json:"url" db:"url"`
	SharedAt  time.Time        `json:"sharedAt" db:"shared_at"`
}
