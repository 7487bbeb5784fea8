package discord

import (
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Interaction tokens stay valid for 15 minutes.
const interactionTTL = 14 * time.Minute

// interactionEntry holds a cached interaction. original is the id of the
// deferred response once it was filled.
type interactionEntry struct {
	interaction *discordgo.Interaction
	original    string
	answered    bool
	expires     time.Time
}

// interactions maps message ids to the interactions that can still answer
// them.
type interactions struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]*interactionEntry
}

func newInteractions(ttl time.Duration) *interactions {
	return &interactions{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*interactionEntry),
	}
}

func (c *interactions) put(id string, i *discordgo.Interaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, k)
		}
	}
	c.entries[id] = &interactionEntry{interaction: i, expires: now.Add(c.ttl)}
}

func (c *interactions) get(id string) (*discordgo.Interaction, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.live(id)
	if !ok {
		return nil, false
	}
	return e.interaction, true
}

// claim returns the interaction and whether the caller is the first to
// answer it, in which case the deferred response must be edited.
func (c *interactions) claim(id string) (i *discordgo.Interaction, first bool, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.live(id)
	if !ok {
		return nil, false, false
	}
	first = !e.answered
	e.answered = true
	return e.interaction, first, true
}

func (c *interactions) setOriginal(id, messageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[id]; ok {
		e.original = messageID
	}
}

// lookup reports whether target is the original response of the interaction.
func (c *interactions) lookup(id, target string) (i *discordgo.Interaction, original bool, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.live(id)
	if !ok {
		return nil, false, false
	}
	return e.interaction, e.original != "" && e.original == target, true
}

func (c *interactions) live(id string) (*interactionEntry, bool) {
	e, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expires) {
		delete(c.entries, id)
		return nil, false
	}
	return e, true
}
