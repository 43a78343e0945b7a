package message

import (
	"github.com/bwmarrin/discordgo"
)

// FromDiscord normalizes a Discord message create event.
func FromDiscord(m *discordgo.MessageCreate) *Event {
	ev := &Event{
		ID:        m.ID,
		Channel:   m.ChannelID,
		Text:      m.Content,
		Timestamp: m.Timestamp.UnixMilli(),
		IsDM:      m.GuildID == "",
	}
	if m.Author != nil {
		ev.Sender = m.Author.ID
		ev.Name = m.Author.Username
	}
	return ev
}
