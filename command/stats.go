package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vpqxl1/selfbot/privacy"
)

// statsWindow is the default analytics window.
const statsWindow = 24 * time.Hour

// Stats reports message volume in the channel: "stats [window]".
func Stats(ctx context.Context, robo *Robot, call *Invocation) {
	d := statsWindow
	if len(call.Args) > 0 {
		v, err := time.ParseDuration(call.Args[0])
		if err != nil || v <= 0 {
			reply(ctx, call, "give a window like 1h or 24h")
			return
		}
		d = v
	}
	since := robo.Timers.Now().Add(-d)
	n, err := robo.Activity.Count(ctx, call.Channel.ID, since)
	if err != nil {
		robo.Log.ErrorContext(ctx, "couldn't count activity", slog.Any("err", err))
		reply(ctx, call, "something went wrong reading activity")
		return
	}
	reply(ctx, call, fmt.Sprintf("%d messages here in the last %v", n, d))
}

// Top reports the most active senders in the channel by userhash:
// "top [window]".
func Top(ctx context.Context, robo *Robot, call *Invocation) {
	d := statsWindow
	if len(call.Args) > 0 {
		v, err := time.ParseDuration(call.Args[0])
		if err != nil || v <= 0 {
			reply(ctx, call, "give a window like 1h or 24h")
			return
		}
		d = v
	}
	since := robo.Timers.Now().Add(-d)
	l, err := robo.Activity.Top(ctx, call.Channel.ID, since, 5)
	if err != nil {
		robo.Log.ErrorContext(ctx, "couldn't query top activity", slog.Any("err", err))
		reply(ctx, call, "something went wrong reading activity")
		return
	}
	if len(l) == 0 {
		reply(ctx, call, "no activity recorded in that window")
		return
	}
	var b strings.Builder
	b.WriteString("most active (hashed):")
	for i, u := range l {
		fmt.Fprintf(&b, " %d. %s (%d)", i+1, u.User[:8], u.Count)
	}
	reply(ctx, call, b.String())
}

// Privacy opts the caller in or out of activity tracking:
// "privacy on" stops recording their messages, "privacy off" resumes.
func Privacy(ctx context.Context, robo *Robot, call *Invocation) {
	if len(call.Args) == 0 {
		err := robo.Privacy.Check(ctx, call.Message.Sender)
		switch {
		case errors.Is(err, privacy.ErrOptedOut):
			reply(ctx, call, "your activity is not recorded")
		case err == nil:
			reply(ctx, call, fmt.Sprintf("your activity is recorded as a userhash; %sprivacy on to opt out", robo.Prefix))
		default:
			robo.Log.ErrorContext(ctx, "couldn't check opt-out", slog.Any("err", err))
		}
		return
	}
	var err error
	switch call.Args[0] {
	case "on":
		err = robo.Privacy.Add(ctx, call.Message.Sender)
		if err == nil {
			reply(ctx, call, "okay, I won't record your activity")
		}
	case "off":
		err = robo.Privacy.Remove(ctx, call.Message.Sender)
		if err == nil {
			reply(ctx, call, "okay, recording your activity as a userhash again")
		}
	default:
		reply(ctx, call, fmt.Sprintf("usage: %sprivacy on|off", robo.Prefix))
	}
	if err != nil {
		robo.Log.ErrorContext(ctx, "couldn't update opt-out", slog.Any("err", err))
		reply(ctx, call, "something went wrong updating your privacy setting")
	}
}
