package command

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vpqxl1/selfbot/channel"
	"github.com/vpqxl1/selfbot/kv"
	"github.com/vpqxl1/selfbot/message"
	"github.com/vpqxl1/selfbot/rule"
	"github.com/vpqxl1/selfbot/session"
	"github.com/vpqxl1/selfbot/timer"
)

// testbot is a Robot wired to in-memory stores, a manual clock, and a
// channel that collects everything sent to it.
type testbot struct {
	robo  *Robot
	clock *timer.Manual
	ch    *channel.Channel

	mu   sync.Mutex
	sent []string
}

func newTestbot(t *testing.T) *testbot {
	t.Helper()
	ctx := context.Background()
	b := &testbot{clock: timer.NewManual(time.Unix(0, 0))}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ts := timer.NewOnClock(log, b.clock)
	b.ch = &channel.Channel{
		ID:      "general",
		Name:    "general",
		History: channel.NewHistory(),
	}
	b.ch.Message = func(ctx context.Context, reply, text string) {
		b.mu.Lock()
		b.sent = append(b.sent, text)
		b.mu.Unlock()
	}
	db := kv.InMemory()
	open := func(key string) *rule.Store {
		s, err := rule.Open(ctx, db, key)
		if err != nil {
			t.Fatalf("couldn't open %s: %v", key, err)
		}
		return s
	}
	b.robo = &Robot{
		Log:      log,
		Prefix:   "!",
		Reacts:   open("rules/react"),
		Replies:  open("rules/reply"),
		AIRules:  open("rules/ai"),
		Sessions: session.NewRegistry(ts),
		Timers:   ts,
		Started:  b.clock.Now(),
	}
	return b
}

// run invokes a command as the given sender with the given argument text.
func (b *testbot) run(fn Func, sender, rest string) {
	ev := message.Event{
		ID:      "m1",
		Channel: b.ch.ID,
		Sender:  sender,
		Name:    sender,
		Text:    rest,
	}
	call := Invocation{
		Channel: b.ch,
		Message: &ev,
		Args:    strings.Fields(rest),
		Rest:    rest,
	}
	fn(context.Background(), b.robo, &call)
}

// last returns the most recent message sent to the test channel.
func (b *testbot) last(t *testing.T) string {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.sent) == 0 {
		t.Fatalf("nothing was sent")
	}
	return b.sent[len(b.sent)-1]
}

func TestGuess(t *testing.T) {
	b := newTestbot(t)
	b.run(Guess, "bocchi", "start 50")
	if !strings.Contains(b.last(t), "between 1 and 50") {
		t.Errorf("wrong start message: %q", b.last(t))
	}
	t.Run("conflict", func(t *testing.T) {
		b.run(Guess, "ryou", "start")
		if !strings.Contains(b.last(t), "already running") {
			t.Errorf("second start not rejected: %q", b.last(t))
		}
	})
	s := b.robo.Sessions.Get(KindGuess, "general")
	if s == nil {
		t.Fatalf("no game session")
	}
	st := s.State.(*guessState)
	t.Run("wrong guess", func(t *testing.T) {
		wrong := st.secret%50 + 1
		if wrong == st.secret {
			wrong = st.secret - 1
		}
		b.run(Guess, "ryou", strconv.Itoa(wrong))
		if !strings.Contains(b.last(t), "guesses left") {
			t.Errorf("wrong verdict: %q", b.last(t))
		}
	})
	t.Run("win", func(t *testing.T) {
		b.run(Guess, "kita", strconv.Itoa(st.secret))
		if !strings.Contains(b.last(t), "got it") {
			t.Errorf("winning guess not recognized: %q", b.last(t))
		}
		if b.robo.Sessions.Get(KindGuess, "general") != nil {
			t.Errorf("game session live after win")
		}
	})
	t.Run("after", func(t *testing.T) {
		b.run(Guess, "kita", "17")
		if !strings.Contains(b.last(t), "no game") {
			t.Errorf("guess without game: %q", b.last(t))
		}
	})
}

func TestGuessExpiry(t *testing.T) {
	b := newTestbot(t)
	b.run(Guess, "bocchi", "start")
	b.clock.Advance(guessTTL + time.Second)
	if !strings.Contains(b.last(t), "nobody guessed") {
		t.Errorf("no expiry announcement: %q", b.last(t))
	}
	if b.robo.Sessions.Get(KindGuess, "general") != nil {
		t.Errorf("game session live after expiry")
	}
}

func TestGuessStop(t *testing.T) {
	b := newTestbot(t)
	b.run(Guess, "bocchi", "start")
	b.run(Guess, "bocchi", "stop")
	if !strings.Contains(b.last(t), "game over") {
		t.Errorf("stop didn't end the game: %q", b.last(t))
	}
	n := len(b.sent)
	b.clock.Advance(time.Hour)
	if len(b.sent) != n {
		t.Errorf("expiry announced after stop: %q", b.last(t))
	}
}

func TestPoll(t *testing.T) {
	b := newTestbot(t)
	b.run(Poll, "bocchi", "10m pizza or pasta? pizza; pasta")
	if !strings.Contains(b.last(t), "📊") {
		t.Errorf("poll didn't open: %q", b.last(t))
	}
	b.run(Vote, "ryou", "1")
	if !strings.Contains(b.last(t), "counted your vote for pizza") {
		t.Errorf("vote not counted: %q", b.last(t))
	}
	t.Run("double vote", func(t *testing.T) {
		b.run(Vote, "ryou", "2")
		if !strings.Contains(b.last(t), "already voted") {
			t.Errorf("double vote not rejected: %q", b.last(t))
		}
	})
	t.Run("out of range", func(t *testing.T) {
		b.run(Vote, "kita", "3")
		if !strings.Contains(b.last(t), "between 1 and 2") {
			t.Errorf("out-of-range vote not rejected: %q", b.last(t))
		}
	})
	t.Run("stop by non-owner", func(t *testing.T) {
		b.run(Poll, "ryou", "stop")
		if !strings.Contains(b.last(t), "owner") {
			t.Errorf("non-owner stopped the poll: %q", b.last(t))
		}
	})
	b.clock.Advance(10*time.Minute + time.Second)
	if !strings.Contains(b.last(t), "poll closed! pizza or pasta? Results: pizza: 1; pasta: 0") {
		t.Errorf("wrong tally: %q", b.last(t))
	}
}

func TestPollStop(t *testing.T) {
	b := newTestbot(t)
	b.run(Poll, "bocchi", "10m tea? yes; no")
	b.run(Vote, "kita", "2")
	b.run(Poll, "bocchi", "stop")
	if !strings.Contains(b.last(t), "closed early") || !strings.Contains(b.last(t), "no: 1") {
		t.Errorf("wrong early tally: %q", b.last(t))
	}
	n := len(b.sent)
	b.clock.Advance(time.Hour)
	if len(b.sent) != n {
		t.Errorf("tally announced after early stop: %q", b.last(t))
	}
}

// TestPollStopDuringVotes stops polls while votes arrive on another
// goroutine, the way two dispatcher workers can. Run with -race.
func TestPollStopDuringVotes(t *testing.T) {
	b := newTestbot(t)
	for round := 0; round < 100; round++ {
		b.run(Poll, "bocchi", "10m tea? yes; no")
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				b.run(Vote, "voter"+strconv.Itoa(i), "1")
			}
		}()
		go func() {
			defer wg.Done()
			b.run(Poll, "bocchi", "stop")
		}()
		wg.Wait()
		if s := b.robo.Sessions.Get(KindPoll, b.ch.ID); s != nil {
			t.Fatalf("round %d: poll still live after stop", round)
		}
		b.mu.Lock()
		b.sent = nil
		b.mu.Unlock()
	}
}

func TestCountdown(t *testing.T) {
	b := newTestbot(t)
	b.run(Countdown, "bocchi", "10m pizza's ready")
	if !strings.Contains(b.last(t), "countdown set") {
		t.Errorf("countdown didn't start: %q", b.last(t))
	}
	b.clock.Advance(10*time.Minute + time.Second)
	if b.last(t) != "⏰ pizza's ready" {
		t.Errorf("wrong announcement: %q", b.last(t))
	}
	t.Run("cancel", func(t *testing.T) {
		b.run(Countdown, "bocchi", "5m")
		b.run(Countdown, "ryou", "cancel")
		if !strings.Contains(b.last(t), "only the person who started") {
			t.Errorf("non-owner cancelled: %q", b.last(t))
		}
		b.run(Countdown, "bocchi", "cancel")
		if !strings.Contains(b.last(t), "cancelled") {
			t.Errorf("owner couldn't cancel: %q", b.last(t))
		}
		n := len(b.sent)
		b.clock.Advance(time.Hour)
		if len(b.sent) != n {
			t.Errorf("cancelled countdown announced: %q", b.last(t))
		}
	})
}

func TestRemind(t *testing.T) {
	b := newTestbot(t)
	b.run(Remind, "bocchi", "45m stretch")
	if !strings.Contains(b.last(t), "remind you") {
		t.Errorf("reminder not set: %q", b.last(t))
	}
	t.Run("one per user", func(t *testing.T) {
		b.run(Remind, "bocchi", "1h other thing")
		if !strings.Contains(b.last(t), "already have") {
			t.Errorf("second reminder not rejected: %q", b.last(t))
		}
		b.run(Remind, "ryou", "1h water")
		if !strings.Contains(b.last(t), "remind you") {
			t.Errorf("other user's reminder rejected: %q", b.last(t))
		}
	})
	b.clock.Advance(45*time.Minute + time.Second)
	if b.last(t) != "⏰ reminder: stretch" {
		t.Errorf("wrong reminder: %q", b.last(t))
	}
}

func TestAFK(t *testing.T) {
	b := newTestbot(t)
	b.run(AFK, "bocchi", "touching grass")
	if !strings.Contains(b.last(t), "marked you away") {
		t.Errorf("AFK not set: %q", b.last(t))
	}
	rules := b.robo.Replies.Rules()
	if len(rules) != 1 {
		t.Fatalf("want 1 autoreply rule, got %d", len(rules))
	}
	if rules[0].Category != rule.Keyword || rules[0].Target != "bocchi" {
		t.Errorf("wrong AFK rule: %+v", rules[0])
	}
	if !strings.Contains(rules[0].Action, "touching grass") {
		t.Errorf("reason missing from autoreply: %q", rules[0].Action)
	}
	t.Run("twice", func(t *testing.T) {
		b.run(AFK, "bocchi", "still gone")
		if !strings.Contains(b.last(t), "already marked away") {
			t.Errorf("second AFK not rejected: %q", b.last(t))
		}
		if b.robo.Replies.Len() != 1 {
			t.Errorf("rejected AFK left %d rules", b.robo.Replies.Len())
		}
	})
	t.Run("speaking clears", func(t *testing.T) {
		ev := message.Event{ID: "m2", Channel: "general", Sender: "bocchi", Name: "bocchi", Text: "im here"}
		if !ClearAFK(context.Background(), b.robo, &ev) {
			t.Errorf("speaking didn't clear AFK")
		}
		if b.robo.Replies.Len() != 0 {
			t.Errorf("autoreply rule left after clear")
		}
		if ClearAFK(context.Background(), b.robo, &ev) {
			t.Errorf("second clear reported AFK")
		}
	})
}

func TestBack(t *testing.T) {
	b := newTestbot(t)
	b.run(Back, "bocchi", "")
	if !strings.Contains(b.last(t), "weren't marked away") {
		t.Errorf("back without AFK: %q", b.last(t))
	}
	b.run(AFK, "bocchi", "")
	b.run(Back, "bocchi", "")
	if !strings.Contains(b.last(t), "welcome back") {
		t.Errorf("back didn't clear AFK: %q", b.last(t))
	}
	if b.robo.Replies.Len() != 0 {
		t.Errorf("autoreply rule left after back")
	}
}

func TestRuleAdmin(t *testing.T) {
	b := newTestbot(t)
	b.run(React, "bocchi", "add keyword hello 👋")
	if !strings.Contains(b.last(t), "added rule") {
		t.Errorf("rule not added: %q", b.last(t))
	}
	if b.robo.Reacts.Len() != 1 {
		t.Fatalf("want 1 rule, got %d", b.robo.Reacts.Len())
	}
	id := b.robo.Reacts.Rules()[0].ID
	t.Run("duplicate", func(t *testing.T) {
		b.run(React, "bocchi", "add keyword hello 👋")
		if !strings.Contains(b.last(t), "already exists") {
			t.Errorf("duplicate not rejected: %q", b.last(t))
		}
	})
	t.Run("dm target", func(t *testing.T) {
		b.run(React, "bocchi", "add dm 👀")
		if !strings.Contains(b.last(t), "added rule") {
			t.Errorf("dm rule not added: %q", b.last(t))
		}
		rules := b.robo.Reacts.Rules(rule.DirectMessage)
		if len(rules) != 1 || rules[0].Target != "" || rules[0].Action != "👀" {
			t.Errorf("wrong dm rule: %+v", rules)
		}
	})
	t.Run("list", func(t *testing.T) {
		b.run(React, "bocchi", "list")
		if !strings.Contains(b.last(t), id) {
			t.Errorf("listing is missing rule %s: %q", id, b.last(t))
		}
	})
	t.Run("del", func(t *testing.T) {
		b.run(React, "bocchi", "del "+id)
		if b.last(t) != "removed" {
			t.Errorf("rule not removed: %q", b.last(t))
		}
		b.run(React, "bocchi", "del "+id)
		if !strings.Contains(b.last(t), "no rule") {
			t.Errorf("removing twice: %q", b.last(t))
		}
	})
	t.Run("clear", func(t *testing.T) {
		b.run(React, "bocchi", "clear")
		if !strings.Contains(b.last(t), "cleared") {
			t.Errorf("rules not cleared: %q", b.last(t))
		}
		if b.robo.Reacts.Len() != 0 {
			t.Errorf("%d rules left after clear", b.robo.Reacts.Len())
		}
	})
	t.Run("bad category", func(t *testing.T) {
		b.run(React, "bocchi", "add vibes hello 👋")
		if !strings.Contains(b.last(t), "category is one of") {
			t.Errorf("bad category accepted: %q", b.last(t))
		}
	})
}
