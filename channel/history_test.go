package channel

import (
	"fmt"
	"testing"
)

func TestHistory(t *testing.T) {
	h := NewHistory()
	if got := h.Messages(); len(got) != 0 {
		t.Errorf("fresh history has %d messages", len(got))
	}
	h.Add("1", "bocchi", "hello", 1)
	h.Add("2", "ryou", "hi", 2)
	h.Add("3", "kita", "yo", 3)
	got := h.Messages()
	if len(got) != 3 {
		t.Fatalf("want 3 messages, got %d", len(got))
	}
	for i, id := range []string{"1", "2", "3"} {
		if got[i].ID != id {
			t.Errorf("wrong order: want id %s at %d, got %s", id, i, got[i].ID)
		}
	}
	t.Run("latest", func(t *testing.T) {
		got := h.Latest(2)
		if len(got) != 2 || got[0].ID != "2" || got[1].ID != "3" {
			t.Errorf("wrong latest: %v", got)
		}
		if got := h.Latest(10); len(got) != 3 {
			t.Errorf("latest with large n: want 3, got %d", len(got))
		}
	})
}

func TestHistoryEviction(t *testing.T) {
	h := NewHistory()
	for i := range ringsize + 10 {
		h.Add(fmt.Sprint(i), "bocchi", "msg", int64(i))
	}
	got := h.Messages()
	if len(got) != ringsize {
		t.Fatalf("want %d messages, got %d", ringsize, len(got))
	}
	if got[0].ID != "10" {
		t.Errorf("wrong oldest after eviction: want 10, got %s", got[0].ID)
	}
	if got[len(got)-1].ID != fmt.Sprint(ringsize+9) {
		t.Errorf("wrong newest after eviction: want %d, got %s", ringsize+9, got[len(got)-1].ID)
	}
}
