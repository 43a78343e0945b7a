package command

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
)

// Purge deletes the bot's own recent messages in the channel, up to a
// count. Only messages still in the channel history are considered.
func Purge(ctx context.Context, robo *Robot, call *Invocation) {
	n := 5
	if len(call.Args) > 0 {
		v, err := strconv.Atoi(call.Args[0])
		if err != nil || v < 1 || v > 100 {
			reply(ctx, call, "give a count between 1 and 100")
			return
		}
		n = v
	}
	me := robo.Gateway.Me()
	msgs := call.Channel.History.Messages()
	deleted := 0
	for i := len(msgs) - 1; i >= 0 && deleted < n; i-- {
		if msgs[i].Sender != me {
			continue
		}
		if err := robo.Gateway.Delete(ctx, call.Channel.ID, msgs[i].ID); err != nil {
			robo.Log.ErrorContext(ctx, "couldn't delete message",
				slog.String("id", msgs[i].ID),
				slog.Any("err", err),
			)
			continue
		}
		deleted++
	}
	reply(ctx, call, fmt.Sprintf("deleted %d of my messages", deleted))
}
