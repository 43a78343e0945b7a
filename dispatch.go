package main

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"runtime/debug"
	"strings"
	"time"

	"github.com/vpqxl1/selfbot/channel"
	"github.com/vpqxl1/selfbot/command"
	"github.com/vpqxl1/selfbot/message"
	"github.com/vpqxl1/selfbot/privacy"
	"github.com/vpqxl1/selfbot/rule"
	"github.com/vpqxl1/selfbot/userhash"
)

// onMessage dispatches a single inbound chat event. It runs on the gateway
// goroutine and must not block; the real work happens on the worker pool.
func (robo *Selfbot) onMessage(ctx context.Context, ev *message.Event) {
	robo.metrics.EventsCount.Observe(1)
	if ev.Sender == robo.gw.Me() {
		// Own messages never trigger anything.
		return
	}
	ch := robo.channel(ev)
	if ch.Ignore[ev.Sender] {
		slog.DebugContext(ctx, "ignoring",
			slog.String("channel", ev.Channel),
			slog.String("sender", ev.Sender),
		)
		return
	}
	if ch.Block != nil && ch.Block.MatchString(ev.Text) {
		slog.DebugContext(ctx, "blocked message",
			slog.String("channel", ev.Channel),
			slog.String("id", ev.ID),
		)
		return
	}
	robo.enqueue(ctx, func(ctx context.Context) {
		if name, rest, ok := parseCommand(robo.prefix, ev.Text); ok {
			robo.command(ctx, ch, ev, name, rest)
			return
		}
		robo.passive(ctx, ch, ev)
	})
}

// command runs a single command invocation.
func (robo *Selfbot) command(ctx context.Context, ch *channel.Channel, ev *message.Event, name, rest string) {
	c := findCommand(name)
	if c == nil {
		return
	}
	if !robo.allowed[ev.Sender] {
		slog.WarnContext(ctx, "denied command",
			slog.String("command", c.name),
			slog.String("sender", ev.Sender),
			slog.String("channel", ev.Channel),
		)
		ch.Message(ctx, ev.ID, "you aren't allowed to use commands")
		return
	}
	if c.moderator && !ev.IsModerator && !ch.Mod[ev.Sender] {
		ch.Message(ctx, ev.ID, "that command needs moderator access")
		return
	}
	slog.InfoContext(ctx, "dispatch",
		slog.String("command", c.name),
		slog.String("channel", ev.Channel),
		slog.String("args", rest),
	)
	robo.metrics.CommandCount.Observe(1, c.name)
	r := robo.view()
	inv := command.Invocation{
		Channel: ch,
		Message: ev,
		Args:    strings.Fields(rest),
		Rest:    rest,
		Hasher:  userhash.New(robo.secrets.userhash),
	}
	defer func() {
		if p := recover(); p != nil {
			slog.ErrorContext(ctx, "panic in command",
				slog.Any("panic", p),
				slog.String("command", c.name),
				slog.String("stack", string(debug.Stack())),
			)
			ch.Message(ctx, ev.ID, "oops, that broke something")
		}
	}()
	start := time.Now()
	c.fn(ctx, r, &inv)
	robo.metrics.CommandLatency.Observe(time.Since(start).Seconds(), c.name)
}

// passive handles a non-command message: AFK clearing, activity recording,
// and the automatic rules.
func (robo *Selfbot) passive(ctx context.Context, ch *channel.Channel, ev *message.Event) {
	r := robo.view()
	if command.ClearAFK(ctx, r, ev) {
		ch.Message(ctx, ev.ID, ev.Name+" is back")
	}
	robo.record(ctx, ch, ev)

	matcher := rule.Matcher{Self: robo.gw.Me()}
	for _, hit := range matcher.Match(ev, robo.reacts.Rules(), rule.All) {
		robo.metrics.RuleMatchCount.Observe(1, "react")
		emoji := hit.Action
		go func() {
			if err := robo.gw.React(ctx, ev.Channel, ev.ID, emoji); err != nil {
				slog.ErrorContext(ctx, "couldn't react",
					slog.Any("err", err),
					slog.String("id", ev.ID),
					slog.String("emoji", emoji),
				)
				return
			}
			robo.metrics.ReactCount.Observe(1)
		}()
	}
	if hits := matcher.Match(ev, robo.replies.Rules(), rule.First); len(hits) != 0 {
		robo.metrics.RuleMatchCount.Observe(1, "reply")
		text := hits[0].Action
		if e := ch.Emotes.Pick(rand.Uint32()); e != "" {
			text += " " + e
		}
		ch.Message(ctx, ev.ID, text)
		return
	}
	if !robo.ai.Enabled() {
		return
	}
	if hits := matcher.Match(ev, robo.airules.Rules(), rule.First); len(hits) != 0 {
		robo.metrics.RuleMatchCount.Observe(1, "ai")
		system := hits[0].Action
		go robo.aiReply(ctx, ch, ev, system)
	}
}

// aiReply asks the responder for a reply using recent channel history as
// conversation context.
func (robo *Selfbot) aiReply(ctx context.Context, ch *channel.Channel, ev *message.Event, system string) {
	var history []string
	for _, m := range ch.History.Latest(8) {
		if m.ID == ev.ID {
			continue
		}
		history = append(history, m.Text)
	}
	text, err := robo.ai.Reply(ctx, system, history, ev.Text)
	if err != nil {
		slog.ErrorContext(ctx, "AI reply failed", slog.Any("err", err), slog.String("channel", ev.Channel))
		return
	}
	if text == "" {
		return
	}
	robo.metrics.AIReplyCount.Observe(1)
	ch.Message(ctx, ev.ID, text)
}

// record stores the message in channel history and counts it toward
// activity, unless the sender has opted out.
func (robo *Selfbot) record(ctx context.Context, ch *channel.Channel, ev *message.Event) {
	ch.Record(ev)
	switch err := robo.privacy.Check(ctx, ev.Sender); err {
	case nil: // do nothing
	case privacy.ErrOptedOut:
		return
	default:
		slog.ErrorContext(ctx, "couldn't check opt-out", slog.Any("err", err), slog.String("sender", ev.Sender))
		return
	}
	hasher := userhash.New(robo.secrets.userhash)
	var h userhash.Hash
	hasher.Hash(&h, ev.Sender, ev.Channel, ev.Time())
	if err := robo.activity.Record(ctx, ev.Channel, h, ev.Time()); err != nil {
		slog.ErrorContext(ctx, "couldn't record activity", slog.Any("err", err), slog.String("channel", ev.Channel))
	}
}

// view is the bot state as commands see it.
func (robo *Selfbot) view() *command.Robot {
	return &command.Robot{
		Log:      slog.Default(),
		Prefix:   robo.prefix,
		Owner:    robo.owner,
		Contact:  robo.ownerContact,
		Reacts:   robo.reacts,
		Replies:  robo.replies,
		AIRules:  robo.airules,
		Sessions: robo.sessions,
		Timers:   robo.timers,
		Activity: robo.activity,
		Privacy:  robo.privacy,
		AI:       robo.ai,
		Fetch:    robo.fetch,
		Gateway:  robo.gw,
		Started:  robo.start,
	}
}

// parseCommand splits a message into a command name and the remaining
// text. The reported ok is false if the message is not a command, i.e.
// does not start with the prefix followed by a name.
func parseCommand(prefix, text string) (name, rest string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, prefix) {
		return "", "", false
	}
	text = text[len(prefix):]
	if text == "" || text[0] == ' ' {
		return "", "", false
	}
	name, rest, _ = strings.Cut(text, " ")
	return strings.ToLower(name), strings.TrimSpace(rest), true
}
