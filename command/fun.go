package command

import (
	"context"
	"math/rand/v2"
	"time"

	"gitlab.com/zephyrtronium/pick"
)

var answers = pick.New([]pick.Case[string]{
	{E: "it is certain", W: 4},
	{E: "without a doubt", W: 4},
	{E: "most likely", W: 4},
	{E: "signs point to yes", W: 4},
	{E: "ask again later", W: 3},
	{E: "better not tell you now", W: 3},
	{E: "concentrate and ask again", W: 3},
	{E: "don't count on it", W: 4},
	{E: "my sources say no", W: 4},
	{E: "very doubtful", W: 4},
	{E: "outlook not so good", W: 4},
	{E: "🎱", W: 1},
})

// Eightball answers the important questions.
func Eightball(ctx context.Context, robo *Robot, call *Invocation) {
	reply(ctx, call, answers.Pick(rand.Uint32()))
}

// Ping checks that the bot is alive.
func Ping(ctx context.Context, robo *Robot, call *Invocation) {
	reply(ctx, call, "pong")
}

// Uptime reports how long the bot has been running.
func Uptime(ctx context.Context, robo *Robot, call *Invocation) {
	up := time.Since(robo.Started).Round(time.Second)
	reply(ctx, call, "up "+up.String())
}
