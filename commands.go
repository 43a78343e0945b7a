package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/vpqxl1/selfbot/command"
)

// botCommand is a command name bound to a handler.
type botCommand struct {
	// name is the canonical name of the command.
	name string
	// aliases are alternate names for the command.
	aliases []string
	// moderator indicates that the command requires moderator access in
	// the channel where it is invoked.
	moderator bool
	// fn is the handler.
	fn command.Func
	// help is a short usage string.
	help string
}

// commands is the bot's command table.
var commands = []botCommand{
	{
		name: "guess",
		fn:   command.Guess,
		help: "guess start [max] | guess <number> | guess stop - number guessing game",
	},
	{
		name: "poll",
		fn:   command.Poll,
		help: "poll <duration> <question>? <option>; <option>… | poll stop",
	},
	{
		name: "vote",
		fn:   command.Vote,
		help: "vote <option number>",
	},
	{
		name:    "countdown",
		aliases: []string{"timer"},
		fn:      command.Countdown,
		help:    "countdown <duration> [text] | countdown cancel",
	},
	{
		name:    "remind",
		aliases: []string{"remindme"},
		fn:      command.Remind,
		help:    "remind <duration> <text>",
	},
	{
		name: "afk",
		fn:   command.AFK,
		help: "afk [reason] - auto-reply when someone mentions you",
	},
	{
		name: "back",
		fn:   command.Back,
		help: "back - clear AFK status",
	},
	{
		name:      "react",
		moderator: true,
		fn:        command.React,
		help:      "react add <category> [target] <emoji> | react del <id> | react list | react clear",
	},
	{
		name:      "autoreply",
		moderator: true,
		fn:        command.Autoreply,
		help:      "autoreply add <category> [target] <text> | autoreply del <id> | autoreply list | autoreply clear",
	},
	{
		name:      "ai",
		aliases:   []string{"airesponse"},
		moderator: true,
		fn:        command.AIRespond,
		help:      "ai on|off|status | ai add <category> [target] <prompt> | ai del <id> | ai list | ai clear",
	},
	{
		name: "stats",
		fn:   command.Stats,
		help: "stats [duration] - channel message counts",
	},
	{
		name:    "top",
		aliases: []string{"leaderboard"},
		fn:      command.Top,
		help:    "top [duration] - most active users",
	},
	{
		name: "privacy",
		fn:   command.Privacy,
		help: "privacy check|on|off - control activity recording for yourself",
	},
	{
		name:    "8ball",
		aliases: []string{"eightball"},
		fn:      command.Eightball,
		help:    "8ball <question>",
	},
	{
		name: "ping",
		fn:   command.Ping,
		help: "ping",
	},
	{
		name: "uptime",
		fn:   command.Uptime,
		help: "uptime",
	},
	{
		name:      "purge",
		moderator: true,
		fn:        command.Purge,
		help:      "purge [n] - delete the bot's recent messages here",
	},
	{
		name: "price",
		fn:   command.Price,
		help: "price <coin> - crypto spot price",
	},
	{
		name:    "help",
		aliases: []string{"commands"},
		help:    "help [command]",
	},
	{
		name:    "who",
		aliases: []string{"source"},
		fn:      cmdWho,
		help:    "who - about this bot",
	},
}

// The help handler is assigned here rather than in the commands literal
// because cmdHelp itself reads commands, which would otherwise be an
// initialization cycle.
func init() {
	for i := range commands {
		if commands[i].name == "help" {
			commands[i].fn = cmdHelp
		}
	}
}

// findCommand looks up a command by name or alias. Lookup is
// case-insensitive. Returns nil if no command has the name.
func findCommand(name string) *botCommand {
	for i := range commands {
		c := &commands[i]
		if strings.EqualFold(c.name, name) {
			return c
		}
		for _, a := range c.aliases {
			if strings.EqualFold(a, name) {
				return c
			}
		}
	}
	return nil
}

func cmdHelp(ctx context.Context, robo *command.Robot, call *command.Invocation) {
	if len(call.Args) != 0 {
		c := findCommand(call.Args[0])
		if c == nil {
			call.Channel.Message(ctx, call.Message.ID, "no such command")
			return
		}
		call.Channel.Message(ctx, call.Message.ID, robo.Prefix+c.help)
		return
	}
	names := make([]string, len(commands))
	for i, c := range commands {
		names[i] = c.name
	}
	call.Channel.Message(ctx, call.Message.ID, "commands: "+strings.Join(names, ", "))
}

func cmdWho(ctx context.Context, robo *command.Robot, call *command.Invocation) {
	msg := fmt.Sprintf("personal assistant bot run by %s", robo.Owner)
	if robo.Contact != "" {
		msg += fmt.Sprintf("; contact %s", robo.Contact)
	}
	call.Channel.Message(ctx, call.Message.ID, msg)
}
