package command

import (
	"context"
	"fmt"
)

// AIRespond administers AI auto-response rules. The action payload is the
// system prompt fed to the responder when the rule matches.
// "ai on|off" toggles the responder; the rest mirrors react administration.
func AIRespond(ctx context.Context, robo *Robot, call *Invocation) {
	if len(call.Args) > 0 {
		switch call.Args[0] {
		case "on":
			robo.AI.SetEnabled(true)
			reply(ctx, call, "AI responses on")
			return
		case "off":
			robo.AI.SetEnabled(false)
			reply(ctx, call, "AI responses off")
			return
		case "status":
			if robo.AI.Enabled() {
				reply(ctx, call, fmt.Sprintf("AI responses are on with %d rules", robo.AIRules.Len()))
			} else {
				reply(ctx, call, "AI responses are off")
			}
			return
		}
	}
	ruleAdmin(ctx, robo, call, robo.AIRules, "ai", "system prompt")
}

// Autoreply administers plain-text autoreply rules. The action payload is
// the literal reply text.
func Autoreply(ctx context.Context, robo *Robot, call *Invocation) {
	ruleAdmin(ctx, robo, call, robo.Replies, "autoreply", "reply text")
}
