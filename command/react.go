package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vpqxl1/selfbot/rule"
)

// React administers autoreact rules:
// "react add <user|keyword|channel|dm> <target> <emoji>", "react del <id>",
// "react list", "react clear".
func React(ctx context.Context, robo *Robot, call *Invocation) {
	ruleAdmin(ctx, robo, call, robo.Reacts, "react", "emoji")
}

// ruleAdmin is the shared add/del/list/clear surface over a rule store.
// actionName names what the action payload is for usage text.
func ruleAdmin(ctx context.Context, robo *Robot, call *Invocation, store *rule.Store, name, actionName string) {
	if len(call.Args) == 0 {
		reply(ctx, call, fmt.Sprintf("usage: %s%s add <user|keyword|channel|dm> <target> <%s> | del <id> | list | clear", robo.Prefix, name, actionName))
		return
	}
	switch call.Args[0] {
	case "add":
		if len(call.Args) < 3 {
			reply(ctx, call, fmt.Sprintf("usage: %s%s add <user|keyword|channel|dm> <target> <%s>", robo.Prefix, name, actionName))
			return
		}
		cat, err := rule.ParseCategory(call.Args[1])
		if err != nil {
			reply(ctx, call, "the category is one of user, keyword, channel, dm")
			return
		}
		target := call.Args[2]
		action := strings.TrimSpace(strings.Join(call.Args[3:], " "))
		if cat == rule.DirectMessage {
			// DM rules have no target; everything after the category is
			// the action.
			target = ""
			action = strings.TrimSpace(strings.Join(call.Args[2:], " "))
		}
		if action == "" {
			reply(ctx, call, fmt.Sprintf("the rule needs a %s", actionName))
			return
		}
		r, err := store.Add(ctx, cat, target, action)
		switch {
		case err == nil:
			reply(ctx, call, fmt.Sprintf("added rule %s", r.ID))
		case errors.Is(err, rule.ErrDuplicate):
			reply(ctx, call, "that rule already exists")
		default:
			robo.Log.ErrorContext(ctx, "couldn't add rule", slog.String("store", name), slog.Any("err", err))
			reply(ctx, call, "something went wrong saving the rule")
		}
	case "del", "remove":
		if len(call.Args) < 2 {
			reply(ctx, call, fmt.Sprintf("usage: %s%s del <id>", robo.Prefix, name))
			return
		}
		ok, err := store.Remove(ctx, call.Args[1])
		switch {
		case err != nil:
			robo.Log.ErrorContext(ctx, "couldn't remove rule", slog.String("store", name), slog.Any("err", err))
			reply(ctx, call, "something went wrong removing the rule")
		case !ok:
			reply(ctx, call, "no rule has that id")
		default:
			reply(ctx, call, "removed")
		}
	case "list":
		rules := store.Rules()
		if len(rules) == 0 {
			reply(ctx, call, "no rules")
			return
		}
		var b strings.Builder
		for _, r := range rules {
			fmt.Fprintf(&b, "%s: %v %q -> %q\n", r.ID, r.Category, r.Target, r.Action)
		}
		reply(ctx, call, strings.TrimSpace(b.String()))
	case "clear":
		n, err := store.Clear(ctx)
		if err != nil {
			robo.Log.ErrorContext(ctx, "couldn't clear rules", slog.String("store", name), slog.Any("err", err))
			reply(ctx, call, "something went wrong clearing rules")
			return
		}
		reply(ctx, call, fmt.Sprintf("cleared %d rules", n))
	default:
		reply(ctx, call, fmt.Sprintf("%s%s add | del | list | clear", robo.Prefix, name))
	}
}
