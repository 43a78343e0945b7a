package gateway

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/vpqxl1/selfbot/message"
)

// Discord is a Gateway over a Discord user session.
type Discord struct {
	session *discordgo.Session
	me      string
}

var _ Gateway = (*Discord)(nil)

// NewDiscord creates a Discord gateway authenticating with a user token.
func NewDiscord(token string) (*Discord, error) {
	session, err := discordgo.New(token)
	if err != nil {
		return nil, fmt.Errorf("couldn't create Discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsGuildMessageReactions
	return &Discord{session: session}, nil
}

// Me returns the authenticated user's ID.
func (d *Discord) Me() string { return d.me }

// OnMessage registers the inbound message handler.
func (d *Discord) OnMessage(fn func(ev *message.Event)) {
	d.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		fn(message.FromDiscord(m))
	})
}

// Connect opens the session and blocks until ctx is done.
// Authentication failure is fatal to the caller; everything after a
// successful open is handled by the session's own reconnect logic.
func (d *Discord) Connect(ctx context.Context) error {
	if err := d.session.Open(); err != nil {
		return fmt.Errorf("couldn't connect to Discord: %w", err)
	}
	if u := d.session.State.User; u != nil {
		d.me = u.ID
		slog.InfoContext(ctx, "connected to Discord",
			slog.String("id", u.ID),
			slog.String("username", u.Username),
		)
	}
	<-ctx.Done()
	return d.session.Close()
}

// Reply sends text to a channel, optionally as a reply.
func (d *Discord) Reply(ctx context.Context, channelID, replyTo, text string) (string, error) {
	var m *discordgo.Message
	var err error
	if replyTo != "" {
		ref := &discordgo.MessageReference{MessageID: replyTo, ChannelID: channelID}
		m, err = d.session.ChannelMessageSendReply(channelID, text, ref, discordgo.WithContext(ctx))
	} else {
		m, err = d.session.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx))
	}
	if err != nil {
		return "", fmt.Errorf("couldn't send message: %w", err)
	}
	return m.ID, nil
}

// React adds an emoji reaction to a message.
func (d *Discord) React(ctx context.Context, channelID, messageID, emoji string) error {
	if err := d.session.MessageReactionAdd(channelID, messageID, emoji, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("couldn't react: %w", err)
	}
	return nil
}

// Delete removes a message.
func (d *Discord) Delete(ctx context.Context, channelID, messageID string) error {
	if err := d.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("couldn't delete message: %w", err)
	}
	return nil
}
