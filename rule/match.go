package rule

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/vpqxl1/selfbot/message"
)

// Policy selects how many matching rules fire for one event.
type Policy int

const (
	// First stops at the first matching rule in insertion order.
	First Policy = iota
	// All fires every matching rule independently.
	All
)

// Matcher evaluates events against rule snapshots.
type Matcher struct {
	// Self is the bot's own user ID. Events it authored never match,
	// preventing the bot from triggering its own rules in a loop.
	Self string
}

// Match returns the rules from the snapshot that apply to ev under the
// given policy. Under [First] the result has at most one element; under
// [All] it holds every match in insertion order.
func (m *Matcher) Match(ev *message.Event, rules []Rule, policy Policy) []Rule {
	if ev.Sender == m.Self {
		return nil
	}
	var hits []Rule
	for _, r := range rules {
		if !applies(&r, ev) {
			continue
		}
		hits = append(hits, r)
		if policy == First {
			break
		}
	}
	return hits
}

// applies evaluates one rule's predicate. Every category must be handled
// here; an unknown one is a programming error, not a silent non-match.
func applies(r *Rule, ev *message.Event) bool {
	switch r.Category {
	case User:
		return ev.Sender == r.Target
	case Keyword:
		fold := cases.Fold()
		return strings.Contains(fold.String(ev.Text), fold.String(r.Target))
	case Channel:
		return ev.Channel == r.Target
	case DirectMessage:
		return ev.IsDM
	default:
		panic(fmt.Sprintf("rule: unhandled category %d", int(r.Category)))
	}
}
