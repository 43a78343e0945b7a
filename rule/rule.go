// Package rule implements persistent trigger rules and matching over chat events.
//
// A rule pairs a trigger condition with an opaque action payload. The owning
// subsystem decides what the action means: an emoji to react with, a reply
// to send, a system prompt for an AI responder. Rules live in a [Store] and
// are evaluated against incoming events by a [Matcher].
package rule

import (
	"fmt"
	"time"
)

// Category selects which field of an incoming event a rule's target is
// compared against.
type Category int

const (
	// User matches events whose sender ID equals the target exactly.
	User Category = iota
	// Keyword matches events whose text contains the target, compared
	// case-insensitively.
	Keyword
	// Channel matches events whose channel ID equals the target exactly.
	Channel
	// DirectMessage matches events sent directly to the bot. The target is
	// unused.
	DirectMessage
)

func (c Category) String() string {
	switch c {
	case User:
		return "user"
	case Keyword:
		return "keyword"
	case Channel:
		return "channel"
	case DirectMessage:
		return "dm"
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// MarshalText implements encoding.TextMarshaler. The encoded forms match
// the type strings used in stored rule files.
func (c Category) MarshalText() ([]byte, error) {
	switch c {
	case User, Keyword, Channel, DirectMessage:
		return []byte(c.String()), nil
	}
	return nil, fmt.Errorf("unknown rule category %d", int(c))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	r, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = r
	return nil
}

// ParseCategory parses a category name as it appears in stored rules and in
// command arguments.
func ParseCategory(s string) (Category, error) {
	switch s {
	case "user":
		return User, nil
	case "keyword":
		return Keyword, nil
	case "channel":
		return Channel, nil
	case "dm":
		return DirectMessage, nil
	}
	return 0, fmt.Errorf("unknown rule category %q", s)
}

// Rule is a single trigger rule. Rules are immutable once created; they are
// replaced, never edited.
type Rule struct {
	// ID is an opaque unique identifier assigned at creation.
	ID string `json:"id"`
	// Category selects the trigger predicate.
	Category Category `json:"category"`
	// Target is the value the predicate compares against.
	Target string `json:"target"`
	// Action is the payload interpreted by the owning subsystem.
	Action string `json:"action"`
	// Created records when the rule was added. Informational only.
	Created time.Time `json:"created"`
}
