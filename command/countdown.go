package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vpqxl1/selfbot/session"
)

// countdownState is the state of a running countdown in a channel.
type countdownState struct {
	text string
	ends time.Time
}

// Countdown starts a channel countdown that announces when it elapses.
// "countdown 10m pizza's ready" or "countdown cancel".
func Countdown(ctx context.Context, robo *Robot, call *Invocation) {
	if len(call.Args) == 0 {
		reply(ctx, call, fmt.Sprintf("usage: %scountdown <duration> [announcement] | %scountdown cancel", robo.Prefix, robo.Prefix))
		return
	}
	if call.Args[0] == "cancel" {
		s := robo.Sessions.Get(KindCountdown, call.Channel.ID)
		if s == nil {
			reply(ctx, call, "no countdown is running here")
			return
		}
		if s.Owner != call.Message.Sender {
			reply(ctx, call, "only the person who started the countdown can cancel it")
			return
		}
		robo.Sessions.Destroy(KindCountdown, call.Channel.ID)
		reply(ctx, call, "countdown cancelled")
		return
	}
	d, err := time.ParseDuration(call.Args[0])
	if err != nil || d <= 0 || d > 24*time.Hour {
		reply(ctx, call, "give a duration like 30s or 10m")
		return
	}
	text := strings.TrimSpace(strings.TrimPrefix(call.Rest, call.Args[0]))
	if text == "" {
		text = "time's up!"
	}
	st := &countdownState{text: text, ends: robo.Timers.Now().Add(d)}
	ttl := session.WithTTL(d, func(s *session.Session) {
		st := s.State.(*countdownState)
		call.Channel.Message(ctx, "", "⏰ "+st.text)
	})
	_, err = robo.Sessions.Create(KindCountdown, call.Channel.ID, st, session.WithOwner(call.Message.Sender), ttl)
	switch {
	case err == nil:
		reply(ctx, call, fmt.Sprintf("countdown set for %v", d))
	case errors.Is(err, session.ErrConflict):
		reply(ctx, call, "a countdown is already running in this channel")
	default:
		robo.Log.ErrorContext(ctx, "couldn't start countdown", slog.Any("err", err))
	}
}

// Remind sets a personal reminder delivered as a reply in the channel where
// it was set. One pending reminder per user.
func Remind(ctx context.Context, robo *Robot, call *Invocation) {
	if len(call.Args) == 0 {
		reply(ctx, call, fmt.Sprintf("usage: %sremind <duration> <text> | %sremind cancel", robo.Prefix, robo.Prefix))
		return
	}
	if call.Args[0] == "cancel" {
		if robo.Sessions.Destroy(KindRemind, call.Message.Sender) {
			reply(ctx, call, "reminder cancelled")
		} else {
			reply(ctx, call, "you have no pending reminder")
		}
		return
	}
	d, err := time.ParseDuration(call.Args[0])
	if err != nil || d <= 0 || d > 7*24*time.Hour {
		reply(ctx, call, "give a duration like 45m or 2h")
		return
	}
	text := strings.TrimSpace(strings.TrimPrefix(call.Rest, call.Args[0]))
	if text == "" {
		reply(ctx, call, "remind you of what?")
		return
	}
	// Key by sender, not channel: reminders are personal.
	msgID := call.Message.ID
	ttl := session.WithTTL(d, func(s *session.Session) {
		call.Channel.Message(ctx, msgID, "⏰ reminder: "+s.State.(string))
	})
	_, err = robo.Sessions.Create(KindRemind, call.Message.Sender, text, session.WithOwner(call.Message.Sender), ttl)
	switch {
	case err == nil:
		reply(ctx, call, fmt.Sprintf("I'll remind you in %v", d))
	case errors.Is(err, session.ErrConflict):
		reply(ctx, call, fmt.Sprintf("you already have a pending reminder; %sremind cancel it first", robo.Prefix))
	default:
		robo.Log.ErrorContext(ctx, "couldn't set reminder", slog.Any("err", err))
	}
}
