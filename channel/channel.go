package channel

import (
	"context"
	"regexp"

	"gitlab.com/zephyrtronium/pick"
	"golang.org/x/time/rate"

	"github.com/vpqxl1/selfbot/message"
)

// Channel is the runtime state for one channel the bot sees messages in.
// Channels are created lazily as messages arrive; configured channels get
// their settings from the config file, the rest get defaults.
type Channel struct {
	// ID is the channel's identifier on the chat service.
	ID string
	// Name is a human-readable label for the channel, if configured.
	Name string
	// Message sends a message to the channel with an optional reply ID.
	Message func(ctx context.Context, reply, text string)
	// Block is a regex matching messages the bot should pretend not to
	// have seen. May be nil.
	Block *regexp.Regexp
	// Rate limits messages the bot sends to the channel. Sends in excess
	// of the limit are dropped.
	Rate *rate.Limiter
	// Ignore is the set of user IDs whose messages are skipped entirely.
	Ignore map[string]bool
	// Mod is the set of user IDs granted moderator commands here.
	Mod map[string]bool
	// Emotes is the weighted distribution of emotes appended to replies.
	Emotes *pick.Dist[string]
	// History is a ring of recent messages, used by analytics commands and
	// as conversation context for the AI responder.
	History *History
}

// Record adds a message to the channel history.
func (ch *Channel) Record(ev *message.Event) {
	ch.History.Add(ev.ID, ev.Sender, ev.Text, ev.Timestamp)
}
