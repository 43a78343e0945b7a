package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/vpqxl1/selfbot/session"
)

// pollState is the state of a running poll in a channel.
type pollState struct {
	question string
	options  []string
	votes    []int
	voted    map[string]bool
}

// Poll runs channel polls. "poll 60s question? opt; opt; opt" opens a poll
// that announces its tally when the duration elapses. "poll stop" ends it
// early.
func Poll(ctx context.Context, robo *Robot, call *Invocation) {
	if len(call.Args) == 0 {
		reply(ctx, call, fmt.Sprintf("usage: %spoll <duration> <question?> <option; option; ...>", robo.Prefix))
		return
	}
	if call.Args[0] == "stop" {
		// Read the tally under the registry lock so concurrent votes
		// can't interleave with it.
		var tally, denial string
		err := robo.Sessions.Mutate(KindPoll, call.Channel.ID, func(s *session.Session) {
			if s.Owner != call.Message.Sender {
				denial = "only the poll's owner can stop it"
				return
			}
			tally = tallyText(s.State.(*pollState))
		})
		if errors.Is(err, session.ErrNotFound) {
			reply(ctx, call, "no poll is open here")
			return
		}
		if denial != "" {
			reply(ctx, call, denial)
			return
		}
		robo.Sessions.Destroy(KindPoll, call.Channel.ID)
		reply(ctx, call, "poll closed early. "+tally)
		return
	}
	d, err := time.ParseDuration(call.Args[0])
	if err != nil || d <= 0 || d > 24*time.Hour {
		reply(ctx, call, "the first argument is the poll duration, like 90s or 10m")
		return
	}
	rest := strings.TrimSpace(strings.TrimPrefix(call.Rest, call.Args[0]))
	question, opts, ok := strings.Cut(rest, "?")
	if !ok {
		reply(ctx, call, "phrase the question with a ? before the options")
		return
	}
	var options []string
	for _, o := range strings.Split(opts, ";") {
		if o = strings.TrimSpace(o); o != "" {
			options = append(options, o)
		}
	}
	if len(options) < 2 {
		reply(ctx, call, "a poll needs at least two options separated by ;")
		return
	}
	st := &pollState{
		question: strings.TrimSpace(question) + "?",
		options:  options,
		votes:    make([]int, len(options)),
		voted:    make(map[string]bool),
	}
	ttl := session.WithTTL(d, func(s *session.Session) {
		st := s.State.(*pollState)
		call.Channel.Message(ctx, "", "poll closed! "+st.question+" "+tallyText(st))
	})
	_, err = robo.Sessions.Create(KindPoll, call.Channel.ID, st, session.WithOwner(call.Message.Sender), ttl)
	switch {
	case err == nil:
		var b strings.Builder
		fmt.Fprintf(&b, "📊 %s Vote with %svote <n>:", st.question, robo.Prefix)
		for i, o := range options {
			fmt.Fprintf(&b, " [%d] %s", i+1, o)
		}
		reply(ctx, call, b.String())
	case errors.Is(err, session.ErrConflict):
		reply(ctx, call, "a poll is already open in this channel")
	default:
		robo.Log.ErrorContext(ctx, "couldn't open poll", slog.Any("err", err))
	}
}

// Vote records a vote in the channel's open poll.
func Vote(ctx context.Context, robo *Robot, call *Invocation) {
	if len(call.Args) == 0 {
		reply(ctx, call, fmt.Sprintf("usage: %svote <option number>", robo.Prefix))
		return
	}
	n, err := strconv.Atoi(call.Args[0])
	if err != nil {
		reply(ctx, call, "votes are option numbers")
		return
	}
	var msg string
	err = robo.Sessions.Mutate(KindPoll, call.Channel.ID, func(s *session.Session) {
		st := s.State.(*pollState)
		switch {
		case n < 1 || n > len(st.options):
			msg = fmt.Sprintf("pick an option between 1 and %d", len(st.options))
		case st.voted[call.Message.Sender]:
			msg = "you already voted in this poll"
		default:
			st.voted[call.Message.Sender] = true
			st.votes[n-1]++
			msg = fmt.Sprintf("counted your vote for %s", st.options[n-1])
		}
	})
	if errors.Is(err, session.ErrNotFound) {
		reply(ctx, call, "no poll is open here")
		return
	}
	reply(ctx, call, msg)
}

func tallyText(st *pollState) string {
	var b strings.Builder
	b.WriteString("Results:")
	for i, o := range st.options {
		fmt.Fprintf(&b, " %s: %d;", o, st.votes[i])
	}
	return strings.TrimSuffix(b.String(), ";")
}
