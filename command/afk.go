package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vpqxl1/selfbot/message"
	"github.com/vpqxl1/selfbot/rule"
	"github.com/vpqxl1/selfbot/session"
)

// afkState is the state of a user's AFK marker.
type afkState struct {
	reason string
	ruleID string
}

// AFK marks the caller away. A keyword autoreply rule on the caller's name
// answers mentions until they speak again or run "back".
func AFK(ctx context.Context, robo *Robot, call *Invocation) {
	reason := strings.TrimSpace(call.Rest)
	if reason == "" {
		reason = "AFK"
	}
	text := fmt.Sprintf("%s is away: %s", call.Message.Name, reason)
	r, err := robo.Replies.Add(ctx, rule.Keyword, call.Message.Name, text)
	switch {
	case err == nil: // do nothing
	case errors.Is(err, rule.ErrDuplicate):
		reply(ctx, call, "you're already marked away")
		return
	default:
		robo.Log.ErrorContext(ctx, "couldn't add AFK rule", slog.Any("err", err))
		reply(ctx, call, "something went wrong saving your away status")
		return
	}
	st := &afkState{reason: reason, ruleID: r.ID}
	_, err = robo.Sessions.Create(KindAFK, call.Message.Sender, st, session.WithOwner(call.Message.Sender))
	switch {
	case err == nil:
		reply(ctx, call, "marked you away: "+reason)
	case errors.Is(err, session.ErrConflict):
		// The rule added above is new, so drop it again.
		robo.Replies.Remove(ctx, r.ID)
		reply(ctx, call, "you're already marked away")
	default:
		robo.Log.ErrorContext(ctx, "couldn't create AFK session", slog.Any("err", err))
	}
}

// Back clears the caller's AFK marker.
func Back(ctx context.Context, robo *Robot, call *Invocation) {
	if ClearAFK(ctx, robo, call.Message) {
		reply(ctx, call, "welcome back")
	} else {
		reply(ctx, call, "you weren't marked away")
	}
}

// ClearAFK tears down the sender's AFK session and its autoreply rule, if
// any. The dispatcher calls this for every message so that speaking clears
// the marker without an explicit command.
func ClearAFK(ctx context.Context, robo *Robot, ev *message.Event) bool {
	s := robo.Sessions.Get(KindAFK, ev.Sender)
	if s == nil {
		return false
	}
	id := s.State.(*afkState).ruleID
	if !robo.Sessions.Destroy(KindAFK, ev.Sender) {
		return false
	}
	if _, err := robo.Replies.Remove(ctx, id); err != nil {
		robo.Log.ErrorContext(ctx, "couldn't remove AFK rule",
			slog.String("id", id),
			slog.Any("err", err),
		)
	}
	return true
}
