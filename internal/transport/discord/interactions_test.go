package discord

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestInteractionsClaimOnce(t *testing.T) {
	c := newInteractions(time.Minute)
	c.put("1", &discordgo.Interaction{ID: "1"})

	i, first, ok := c.claim("1")
	assert.True(t, ok)
	assert.True(t, first)
	assert.Equal(t, "1", i.ID)

	_, first, ok = c.claim("1")
	assert.True(t, ok)
	assert.False(t, first)

	_, _, ok = c.claim("2")
	assert.False(t, ok)
}

func TestInteractionsOriginal(t *testing.T) {
	c := newInteractions(time.Minute)
	c.put("1", &discordgo.Interaction{ID: "1"})

	_, original, _ := c.lookup("1", "9001")
	assert.False(t, original)

	c.setOriginal("1", "9001")
	_, original, ok := c.lookup("1", "9001")
	assert.True(t, ok)
	assert.True(t, original)

	_, original, _ = c.lookup("1", "9002")
	assert.False(t, original)
}

func TestInteractionsExpire(t *testing.T) {
	now := time.Now()
	c := newInteractions(time.Minute)
	c.now = func() time.Time { return now }
	c.put("1", &discordgo.Interaction{ID: "1"})

	now = now.Add(2 * time.Minute)
	_, ok := c.get("1")
	assert.False(t, ok)

	c.put("2", &discordgo.Interaction{ID: "2"})
	assert.Len(t, c.entries, 1)
}
