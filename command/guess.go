package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/vpqxl1/selfbot/session"
)

// guessState is the state of a number-guessing game in a channel.
type guessState struct {
	secret   int
	max      int
	attempts int
	limit    int
}

// guessTTL is how long a game may sit unfinished before it expires.
const guessTTL = 5 * time.Minute

// Guess runs the number-guessing game. "guess start [max]" begins a game in
// the channel; "guess N" makes an attempt; "guess stop" abandons the game.
func Guess(ctx context.Context, robo *Robot, call *Invocation) {
	if len(call.Args) == 0 {
		reply(ctx, call, fmt.Sprintf("usage: %sguess start [max] | %sguess <number> | %sguess stop", robo.Prefix, robo.Prefix, robo.Prefix))
		return
	}
	switch call.Args[0] {
	case "start":
		max := 100
		if len(call.Args) > 1 {
			v, err := strconv.Atoi(call.Args[1])
			if err != nil || v < 2 {
				reply(ctx, call, "the maximum must be a number of at least 2")
				return
			}
			max = v
		}
		st := &guessState{secret: rand.IntN(max) + 1, max: max, limit: attemptsFor(max)}
		ttl := session.WithTTL(guessTTL, func(s *session.Session) {
			st := s.State.(*guessState)
			call.Channel.Message(ctx, "", fmt.Sprintf("nobody guessed my number... it was %d", st.secret))
		})
		_, err := robo.Sessions.Create(KindGuess, call.Channel.ID, st, session.WithOwner(call.Message.Sender), ttl)
		switch {
		case err == nil:
			reply(ctx, call, fmt.Sprintf("I'm thinking of a number between 1 and %d. You have %d guesses.", max, st.limit))
		case errors.Is(err, session.ErrConflict):
			reply(ctx, call, "a game is already running in this channel")
		default:
			robo.Log.ErrorContext(ctx, "couldn't start guessing game", slog.Any("err", err))
		}
	case "stop", "giveup":
		s := robo.Sessions.Get(KindGuess, call.Channel.ID)
		if s == nil {
			reply(ctx, call, "no game is running here")
			return
		}
		secret := s.State.(*guessState).secret
		robo.Sessions.Destroy(KindGuess, call.Channel.ID)
		reply(ctx, call, fmt.Sprintf("game over. The number was %d.", secret))
	default:
		n, err := strconv.Atoi(call.Args[0])
		if err != nil {
			reply(ctx, call, "guesses are numbers")
			return
		}
		var verdict string
		var done bool
		err = robo.Sessions.Mutate(KindGuess, call.Channel.ID, func(s *session.Session) {
			st := s.State.(*guessState)
			st.attempts++
			switch {
			case n == st.secret:
				verdict = fmt.Sprintf("%s got it in %d! The number was %d.", call.Message.Name, st.attempts, st.secret)
				done = true
			case st.attempts >= st.limit:
				verdict = fmt.Sprintf("out of guesses! The number was %d.", st.secret)
				done = true
			case n < st.secret:
				verdict = fmt.Sprintf("%d is too low. %d guesses left.", n, st.limit-st.attempts)
			default:
				verdict = fmt.Sprintf("%d is too high. %d guesses left.", n, st.limit-st.attempts)
			}
		})
		if errors.Is(err, session.ErrNotFound) {
			reply(ctx, call, fmt.Sprintf("no game is running here; start one with %sguess start", robo.Prefix))
			return
		}
		if done {
			robo.Sessions.Destroy(KindGuess, call.Channel.ID)
		}
		reply(ctx, call, verdict)
	}
}

// attemptsFor gives enough guesses to win a binary search with one spare.
func attemptsFor(max int) int {
	n := 1
	for 1<<n < max {
		n++
	}
	return n + 1
}
