// Selfbot is a personal chat assistant that rides along on the owner's own
// account, reacting to messages, answering commands, and running timed
// sessions like polls and reminders.
package main

import (
	"context"
	"log/slog"
	"regexp"
	"time"

	"golang.org/x/sync/errgroup"

	"gitlab.com/zephyrtronium/pick"

	"github.com/vpqxl1/selfbot/activity"
	"github.com/vpqxl1/selfbot/ai"
	"github.com/vpqxl1/selfbot/channel"
	"github.com/vpqxl1/selfbot/fetch"
	"github.com/vpqxl1/selfbot/gateway"
	"github.com/vpqxl1/selfbot/message"
	"github.com/vpqxl1/selfbot/metrics"
	"github.com/vpqxl1/selfbot/privacy"
	"github.com/vpqxl1/selfbot/rule"
	"github.com/vpqxl1/selfbot/session"
	"github.com/vpqxl1/selfbot/syncmap"
	"github.com/vpqxl1/selfbot/timer"
)

// Selfbot is the bot.
type Selfbot struct {
	// prefix is the command prefix.
	prefix string
	// owner is the name of the owner.
	owner string
	// ownerContact describes contact information for the owner.
	ownerContact string
	// allowed is the set of user IDs permitted to invoke commands.
	allowed map[string]bool
	// secrets are the bot's keys.
	secrets *keys
	// channels are the channels the bot has seen messages in.
	channels *syncmap.Map[string, *channel.Channel]
	// defaults are the settings for channels the config doesn't mention.
	defaults channelDefaults
	// reacts, replies, and airules are the rule stores for the three
	// automatic behaviors.
	reacts, replies, airules *rule.Store
	// sessions is the live session registry.
	sessions *session.Registry
	// timers schedules timed callbacks.
	timers *timer.Service
	// activity records per-channel message activity.
	activity *activity.Recorder
	// privacy is the list of users who have opted out of activity
	// recording.
	privacy *privacy.List
	// ai is the AI auto-responder.
	ai *ai.Responder
	// fetch performs outbound HTTP requests for commands.
	fetch *fetch.Fetcher
	// gw is the chat gateway.
	gw gateway.Gateway
	// metrics are a collection of custom metrics.
	metrics *metrics.Metrics
	// works is the worker queue.
	works chan chan func(context.Context)
	// start is when the bot came up, for the uptime command.
	start time.Time
}

// channelDefaults are settings applied to channels created lazily when a
// message arrives from a channel the config doesn't name.
type channelDefaults struct {
	block  *regexp.Regexp
	rate   Rate
	emotes *pick.Dist[string]
}

// New creates a new robot with the given metrics and number of workers.
// The robot must be configured with the Set and Init methods before it
// runs.
func New(mets *metrics.Metrics, poolSize int) *Selfbot {
	ts := timer.New(slog.Default())
	ts.Fired = func() { mets.TimerFiredCount.Observe(1) }
	return &Selfbot{
		channels: syncmap.New[string, *channel.Channel](),
		timers:   ts,
		sessions: session.NewRegistry(ts),
		fetch:    fetch.New(),
		metrics:  mets,
		works:    make(chan chan func(context.Context), poolSize),
		start:    time.Now(),
	}
}

// Run runs the bot: the HTTP API, if configured, and the chat gateway
// until the context is cancelled or either fails.
func (robo *Selfbot) Run(ctx context.Context, listen string) error {
	group, ctx := errgroup.WithContext(ctx)
	if listen != "" {
		group.Go(func() error { return robo.api(ctx, listen, robo.metrics.Collectors()) })
	}
	group.Go(func() error { return robo.gw.Connect(ctx) })
	err := group.Wait()
	slog.InfoContext(ctx, "robo.Run done", slog.Any("reason", err))
	return err
}

// channel gets the channel for an event, creating it with default settings
// on first sight.
func (robo *Selfbot) channel(ev *message.Event) *channel.Channel {
	if ch, ok := robo.channels.Load(ev.Channel); ok {
		return ch
	}
	v := &channel.Channel{
		ID:      ev.Channel,
		Block:   robo.defaults.block,
		Rate:    limiter(robo.defaults.rate, robo.defaults.rate),
		Emotes:  robo.defaults.emotes,
		History: channel.NewHistory(),
	}
	v.Message = robo.sender(v)
	ch, _ := robo.channels.LoadOrStore(ev.Channel, v)
	return ch
}

// sender creates the send closure for a channel. Sends in excess of the
// channel rate limit are dropped.
func (robo *Selfbot) sender(ch *channel.Channel) func(ctx context.Context, reply, text string) {
	return func(ctx context.Context, reply, text string) {
		if !ch.Rate.Allow() {
			slog.WarnContext(ctx, "rate limited", slog.String("channel", ch.ID), slog.String("text", text))
			return
		}
		id, err := robo.gw.Reply(ctx, ch.ID, reply, text)
		if err != nil {
			slog.ErrorContext(ctx, "couldn't send message",
				slog.Any("err", err),
				slog.String("channel", ch.ID),
				slog.String("text", text),
			)
			return
		}
		robo.metrics.SentCount.Observe(1)
		ch.History.Add(id, robo.gw.Me(), text, time.Now().UnixMilli())
	}
}

// enqueue concurrently executes a work item.
func (robo *Selfbot) enqueue(ctx context.Context, work func(context.Context)) {
	var w chan func(context.Context)
	select {
	case w = <-robo.works:
		// Got a worker.
	default:
		// No worker available. Start a new one.
		w = make(chan func(context.Context), 1)
		go robo.worker(ctx, w)
	}
	w <- work
}

// worker runs works for a while. The provided context is passed to each
// work invocation.
func (robo *Selfbot) worker(ctx context.Context, work chan func(context.Context)) {
	for {
		select {
		case f := <-work:
			f(ctx)
			// Replace ourselves in the pool if it needs additional
			// workers.
			select {
			case robo.works <- work:
			default:
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
