package botcore

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageSurvivesTheQueue(t *testing.T) {
	m := NewMessage(MessengerDiscord, TypeAction)
	m.ID = StringID("1122334455")
	m.Chat = &Chat{ID: StringID("998877"), Type: ChatGroup}
	m.From = User{ID: StringID("42"), Name: "ann"}
	m.Text = "NEXT|spotify|"

	raw, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "1122334455",
		"chat": {"id": "998877", "type": "group"},
		"from": {"id": "42", "name": "ann"},
		"text": "NEXT|spotify|",
		"messengerType": "discord",
		"type": "action"
	}`, string(raw))

	var back Message
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, *m, back)
	assert.Equal(t, MessengerDiscord, back.MessengerType())
	assert.Equal(t, TypeAction, back.Type())
}

func TestIDKeepsItsKind(t *testing.T) {
	var ids []ID
	require.NoError(t, json.Unmarshal([]byte(`[42, "42", -100123]`), &ids))

	assert.True(t, ids[0].IsNumeric())
	assert.False(t, ids[1].IsNumeric())
	assert.NotEqual(t, ids[0], ids[1])
	assert.Equal(t, ids[0].String(), ids[1].String())

	v, ok := ids[2].Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(-100123), v)
}

func TestMessageAccount(t *testing.T) {
	one := NewMessage(MessengerTelegram1, TypeMessage)
	one.From = User{ID: NumericID(7)}
	two := NewMessage(MessengerTelegram2, TypeMessage)
	two.From = User{ID: NumericID(7)}

	assert.Equal(t, one.Account(), two.Account())
	assert.Equal(t, "telegram:7", one.Account().String())
	assert.False(t, one.IsPrivate())
	assert.Equal(t, NumericID(7), one.ChatID())
}
