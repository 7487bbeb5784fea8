package botcore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// MessengerType selects the adapter that produced and answers a message.
type MessengerType string

const (
	MessengerTelegram1 MessengerType = "telegram-1"
	MessengerTelegram2 MessengerType = "telegram-2"
	MessengerDiscord   MessengerType = "discord"
)

// Platform returns the account namespace for the messenger. Both Telegram
// bots share one user base.
func (m MessengerType) Platform() string {
	switch m {
	case MessengerTelegram1, MessengerTelegram2:
		return "telegram"
	default:
		return string(m)
	}
}

// MessageType is the interaction style of an inbound event.
type MessageType string

const (
	TypeMessage MessageType = "message"
	TypeAction  MessageType = "action"
	TypeSearch  MessageType = "search"
)

// ChatType distinguishes one-to-one chats from groups and channels.
type ChatType string

const (
	ChatPrivate ChatType = "private"
	ChatGroup   ChatType = "group"
)

// MusicServiceType names a streaming backend.
type MusicServiceType string

const (
	Spotify MusicServiceType = "spotify"
	Deezer  MusicServiceType = "deezer"
)

// ID is a platform identifier that is either numeric or a string.
type ID struct {
	num   int64
	str   string
	isNum bool
}

// NumericID wraps a numeric platform id such as a Telegram chat id.
func NumericID(v int64) ID { return ID{num: v, isNum: true} }

// StringID wraps an opaque id such as a Discord snowflake.
func StringID(v string) ID { return ID{str: v} }

// IsNumeric reports whether the id was built with NumericID.
func (id ID) IsNumeric() bool { return id.isNum }

// Int64 returns the numeric value and whether the id is numeric.
func (id ID) Int64() (int64, bool) { return id.num, id.isNum }

// IsZero reports whether the id is unset.
func (id ID) IsZero() bool { return id == ID{} }

// String returns the id as text.
func (id ID) String() string {
	if id.isNum {
		return strconv.FormatInt(id.num, 10)
	}
	return id.str
}

// MarshalJSON writes numeric ids as numbers and the rest as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.isNum {
		return []byte(strconv.FormatInt(id.num, 10)), nil
	}
	return json.Marshal(id.str)
}

// UnmarshalJSON accepts both encodings written by MarshalJSON.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = StringID(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*id = ID{}
		return nil
	}
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("decode id %s: %w", data, err)
	}
	*id = NumericID(v)
	return nil
}

// Chat is where a message was posted.
type Chat struct {
	ID   ID       `json:"id"`
	Type ChatType `json:"type"`
}

// User is the author of a message.
type User struct {
	ID   ID     `json:"id"`
	Name string `json:"name,omitempty"`
}

// Message is the messenger-agnostic form of an inbound event. It holds data
// only and must stay JSON-serializable so it can travel in job payloads.
type Message struct {
	ID               ID
	Chat             *Chat
	From             User
	Text             string
	Offset           string
	MusicServiceType MusicServiceType

	messengerType MessengerType
	kind          MessageType
}

// NewMessage fixes the two discriminants; they cannot change afterwards.
func NewMessage(messenger MessengerType, kind MessageType) *Message {
	return &Message{messengerType: messenger, kind: kind}
}

// MessengerType is the messenger the message came from.
func (m *Message) MessengerType() MessengerType { return m.messengerType }

// Type is the kind of event.
func (m *Message) Type() MessageType { return m.kind }

// IsPrivate reports whether the message came from a one-to-one chat.
// Messages without a chat (inline search) are not private.
func (m *Message) IsPrivate() bool {
	return m.Chat != nil && m.Chat.Type == ChatPrivate
}

// Account identifies the linkage record of the message author.
func (m *Message) Account() Account {
	return Account{Platform: m.messengerType.Platform(), UserID: m.From.ID.String()}
}

// ChatID returns the chat to answer into, falling back to the author for
// events without a chat.
func (m *Message) ChatID() ID {
	if m.Chat != nil {
		return m.Chat.ID
	}
	return m.From.ID
}

type messageJSON struct {
	ID               ID               `json:"id"`
	Chat             *Chat            `json:"chat,omitempty"`
	From             User             `json:"from"`
	Text             string           `json:"text,omitempty"`
	Offset           string           `json:"offset,omitempty"`
	MusicServiceType MusicServiceType `json:"musicServiceType,omitempty"`
	MessengerType    MessengerType    `json:"messengerType"`
	Type             MessageType      `json:"type"`
}

// MarshalJSON includes the unexported messenger and type.
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(messageJSON{
		ID:               m.ID,
		Chat:             m.Chat,
		From:             m.From,
		Text:             m.Text,
		Offset:           m.Offset,
		MusicServiceType: m.MusicServiceType,
		MessengerType:    m.messengerType,
		Type:             m.kind,
	})
}

// UnmarshalJSON restores the unexported fields.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw messageJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Message{
		ID:               raw.ID,
		Chat:             raw.Chat,
		From:             raw.From,
		Text:             raw.Text,
		Offset:           raw.Offset,
		MusicServiceType: raw.MusicServiceType,
		messengerType:    raw.MessengerType,
		kind:             raw.Type,
	}
	return nil
}

// Account is the key of a linkage record.
type Account struct {
	Platform string `json:"platform"`
	UserID   string `json:"userId"`
}

// String is the "platform:user" key.
func (a Account) String() string { return a.Platform + ":" + a.UserID }
