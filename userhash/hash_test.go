package userhash_test

import (
	"testing"
	"time"

	"github.com/vpqxl1/selfbot/userhash"
)

func TestHash(t *testing.T) {
	key := []byte("the key")
	when := time.Unix(1000000000, 0)
	var base userhash.Hash
	userhash.New(key).Hash(&base, "bocchi", "general", when)
	cases := []struct {
		name  string
		key   []byte
		uid   string
		where string
		when  time.Time
		same  bool
	}{
		{"same", key, "bocchi", "general", when, true},
		{"same quantum", key, "bocchi", "general", when.Add(time.Minute), true},
		{"different user", key, "ryou", "general", when, false},
		{"different channel", key, "bocchi", "offtopic", when, false},
		{"different quantum", key, "bocchi", "general", when.Add(userhash.TimeQuantum), false},
		{"different key", []byte("other key"), "bocchi", "general", when, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var h userhash.Hash
			userhash.New(c.key).Hash(&h, c.uid, c.where, c.when)
			if (h == base) != c.same {
				t.Errorf("hash equality: want %t, got %t", c.same, h == base)
			}
		})
	}
	t.Run("reuse", func(t *testing.T) {
		// A single hasher must give independent results across calls.
		hs := userhash.New(key)
		var a, b, a2 userhash.Hash
		hs.Hash(&a, "bocchi", "general", when)
		hs.Hash(&b, "ryou", "general", when)
		hs.Hash(&a2, "bocchi", "general", when)
		if a == b {
			t.Errorf("different users hashed equal")
		}
		if a != a2 {
			t.Errorf("same input hashed unequal after reuse")
		}
	})
}
