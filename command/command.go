// Package command implements the bot's built-in commands.
package command

import (
	"context"
	"log/slog"
	"time"

	"github.com/vpqxl1/selfbot/activity"
	"github.com/vpqxl1/selfbot/ai"
	"github.com/vpqxl1/selfbot/channel"
	"github.com/vpqxl1/selfbot/fetch"
	"github.com/vpqxl1/selfbot/gateway"
	"github.com/vpqxl1/selfbot/message"
	"github.com/vpqxl1/selfbot/privacy"
	"github.com/vpqxl1/selfbot/rule"
	"github.com/vpqxl1/selfbot/session"
	"github.com/vpqxl1/selfbot/timer"
	"github.com/vpqxl1/selfbot/userhash"
)

// Session kinds used by the built-in commands.
const (
	KindGuess     = "guess"
	KindPoll      = "poll"
	KindCountdown = "countdown"
	KindRemind    = "remind"
	KindAFK       = "afk"
)

// Robot is the bot state as is visible to commands.
type Robot struct {
	Log      *slog.Logger
	Prefix   string
	Owner    string
	Contact  string
	Reacts   *rule.Store
	Replies  *rule.Store
	AIRules  *rule.Store
	Sessions *session.Registry
	Timers   *timer.Service
	Activity *activity.Recorder
	Privacy  *privacy.List
	AI       *ai.Responder
	Fetch    *fetch.Fetcher
	Gateway  gateway.Gateway
	Started  time.Time
}

// Invocation is a command invocation. An Invocation and its fields must not
// be modified or retained by any command.
type Invocation struct {
	// Channel is the channel where the invocation occurred.
	Channel *channel.Channel
	// Message is the message which triggered the invocation.
	Message *message.Event
	// Args is the whitespace-split arguments following the command name.
	Args []string
	// Rest is the raw text following the command name.
	Rest string
	// Hasher is a user hasher for the command's use.
	Hasher userhash.Hasher
}

// Func executes a command.
type Func func(ctx context.Context, robo *Robot, call *Invocation)

// reply sends text to the invoking channel as a reply to the triggering
// message, honoring the channel rate limit.
func reply(ctx context.Context, call *Invocation, text string) {
	call.Channel.Message(ctx, call.Message.ID, text)
}
