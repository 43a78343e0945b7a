package rule_test

import (
	"testing"

	"github.com/vpqxl1/selfbot/message"
	"github.com/vpqxl1/selfbot/rule"
)

func TestMatch(t *testing.T) {
	rules := []rule.Rule{
		{ID: "1", Category: rule.Keyword, Target: "hello", Action: "👋"},
		{ID: "2", Category: rule.Keyword, Target: "hell", Action: "🔥"},
		{ID: "3", Category: rule.User, Target: "bocchi", Action: "🎸"},
		{ID: "4", Category: rule.Channel, Target: "general", Action: "📌"},
		{ID: "5", Category: rule.DirectMessage, Action: "brb"},
	}
	m := rule.Matcher{Self: "robo"}
	cases := []struct {
		name   string
		ev     message.Event
		policy rule.Policy
		want   []string
	}{
		{
			name:   "keyword first",
			ev:     message.Event{Channel: "offtopic", Sender: "kita", Text: "why HELLO there"},
			policy: rule.First,
			want:   []string{"1"},
		},
		{
			name:   "keyword all",
			ev:     message.Event{Channel: "offtopic", Sender: "kita", Text: "why HELLO there"},
			policy: rule.All,
			want:   []string{"1", "2"},
		},
		{
			name:   "user",
			ev:     message.Event{Channel: "offtopic", Sender: "bocchi", Text: "..."},
			policy: rule.All,
			want:   []string{"3"},
		},
		{
			name:   "channel",
			ev:     message.Event{Channel: "general", Sender: "kita", Text: "morning"},
			policy: rule.All,
			want:   []string{"4"},
		},
		{
			name:   "dm",
			ev:     message.Event{Channel: "dm-kita", Sender: "kita", Text: "you there?", IsDM: true},
			policy: rule.All,
			want:   []string{"5"},
		},
		{
			name:   "several categories",
			ev:     message.Event{Channel: "general", Sender: "bocchi", Text: "hello"},
			policy: rule.All,
			want:   []string{"1", "3", "4"},
		},
		{
			name:   "several categories first",
			ev:     message.Event{Channel: "general", Sender: "bocchi", Text: "hello"},
			policy: rule.First,
			want:   []string{"1"},
		},
		{
			name:   "self never matches",
			ev:     message.Event{Channel: "general", Sender: "robo", Text: "hello"},
			policy: rule.All,
			want:   nil,
		},
		{
			name:   "nothing",
			ev:     message.Event{Channel: "offtopic", Sender: "kita", Text: "zzz"},
			policy: rule.All,
			want:   nil,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			hits := m.Match(&c.ev, rules, c.policy)
			if len(hits) != len(c.want) {
				t.Fatalf("wrong number of hits: want %v, got %v", c.want, hits)
			}
			for i, h := range hits {
				if h.ID != c.want[i] {
					t.Errorf("wrong hit at %d: want %v, got %v", i, c.want, hits)
				}
			}
		})
	}
}

func TestMatchFold(t *testing.T) {
	rules := []rule.Rule{
		{ID: "1", Category: rule.Keyword, Target: "straße", Action: "🛣️"},
	}
	var m rule.Matcher
	ev := message.Event{Channel: "general", Sender: "kita", Text: "die STRASSE ist lang"}
	if hits := m.Match(&ev, rules, rule.All); len(hits) != 1 {
		t.Errorf("case folding didn't match: got %v", hits)
	}
}

func TestMatchUnknownCategory(t *testing.T) {
	rules := []rule.Rule{{ID: "1", Category: rule.Category(99), Target: "x"}}
	var m rule.Matcher
	ev := message.Event{Channel: "general", Sender: "kita", Text: "x"}
	defer func() {
		if recover() == nil {
			t.Errorf("matching an unknown category didn't panic")
		}
	}()
	m.Match(&ev, rules, rule.All)
}
