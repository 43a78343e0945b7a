// Package gateway abstracts the chat transport the bot speaks through.
package gateway

import (
	"context"

	"github.com/vpqxl1/selfbot/message"
)

// Gateway is the transport contract the dispatcher and commands need:
// receive normalized events, send replies, react, and delete.
type Gateway interface {
	// Me returns the bot's own user ID. Valid after Connect.
	Me() string
	// OnMessage registers the handler invoked for every inbound message.
	// It must be called before Connect.
	OnMessage(fn func(ev *message.Event))
	// Connect opens the transport and blocks until ctx is done.
	Connect(ctx context.Context) error
	// Reply sends text to a channel, optionally as a reply to a message,
	// and returns the sent message's ID.
	Reply(ctx context.Context, channelID, replyTo, text string) (string, error)
	// React adds an emoji reaction to a message.
	React(ctx context.Context, channelID, messageID, emoji string) error
	// Delete removes a message.
	Delete(ctx context.Context, channelID, messageID string) error
}
