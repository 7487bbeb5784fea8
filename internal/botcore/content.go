package botcore

// Content is sender-ready output produced by a Messages renderer.
type Content struct {
	Text           string
	ParseMode      string
	Image          *Thumbnail
	Buttons        [][]Button
	DisablePreview bool
}

// Button is either a link (URL set) or a callback carrying an encoded Action.
type Button struct {
	Text   string
	URL    string
	Action string
}

// SearchItem is one inline search result.
type SearchItem struct {
	ID          string
	Title       string
	Description string
	Thumbnail   *Thumbnail
	Content     Content
}

// SearchOptions control how search results are answered.
type SearchOptions struct {
	// NextOffset is empty when there are no more results.
	NextOffset string
}

// LoginLink is a connect button target for one music service.
type LoginLink struct {
	Service MusicServiceType
	URL     string
}

// Messages renders domain state into content for one messenger. Methods
// are pure.
type Messages interface {
	SignUp(m *Message, links []LoginLink) Content
	AlreadyConnected(m *Message) Content
	Failure(m *Message, kind ErrorKind) Content
	NoActiveDevices(m *Message) Content

	Share(m *Message, data ShareSongData, cfg ShareSongConfig) Content

	SearchItem(m *Message, track Track) SearchItem
	SearchDonate(m *Message) SearchItem
	SearchFailure(m *Message, kind ErrorKind) SearchItem

	Played(m *Message) Content
	Queued(m *Message) Content
	Switched(m *Message) Content
	Favorite(m *Message, action FavoriteAction) Content
	Toggled(m *Message, action PlayAction) Content

	Profile(m *Message, profile Profile) Content
	Donate(m *Message) Content
	History(m *Message, entries []HistoryEntry) Content
	EnableKeyboard(m *Message) Content
	DisableKeyboard(m *Message) Content
	Unlinked(m *Message) Content
}
