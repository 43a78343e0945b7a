package message

import "time"

// Event is a message received from a chat service, normalized for dispatch.
type Event struct {
	// ID is the unique ID of the message.
	ID string
	// Channel is the identifier of the channel in which the message was
	// sent. For direct messages this is the DM channel identifier.
	Channel string
	// Sender is the unique identifier of the message author.
	Sender string
	// Name is the display name of the message author.
	Name string
	// Text is the text of the message.
	Text string
	// Timestamp is the timestamp of the message as milliseconds since the
	// Unix epoch.
	Timestamp int64
	// IsDM indicates that the message was sent directly to the bot rather
	// than to a guild channel.
	IsDM bool
	// IsModerator indicates whether the sender can moderate the channel to
	// which the message was sent.
	IsModerator bool
}

func (ev *Event) Time() time.Time {
	return time.UnixMilli(ev.Timestamp)
}
