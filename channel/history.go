package channel

import "sync"

// History is a fixed-size ring of recent channel messages.
type History struct {
	mu   sync.Mutex
	ring []HistoryMessage
	k    int
	n    int
}

// HistoryMessage is the minimal representation of a message recorded in a
// channel's history.
type HistoryMessage struct {
	ID        string
	Sender    string
	Text      string
	Timestamp int64
}

// ringsize is the number of messages a history holds.
const ringsize = 256

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{ring: make([]HistoryMessage, ringsize)}
}

// Add records a message, evicting the oldest once the ring is full.
func (h *History) Add(id, sender, text string, timestamp int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ring[h.k] = HistoryMessage{ID: id, Sender: sender, Text: text, Timestamp: timestamp}
	h.k = (h.k + 1) % ringsize
	if h.n < ringsize {
		h.n++
	}
}

// Messages returns the recorded messages in order from oldest to newest.
func (h *History) Messages() []HistoryMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := make([]HistoryMessage, 0, h.n)
	start := (h.k - h.n + ringsize) % ringsize
	for i := range h.n {
		r = append(r, h.ring[(start+i)%ringsize])
	}
	return r
}

// Latest returns up to n of the most recent messages, oldest first.
func (h *History) Latest(n int) []HistoryMessage {
	m := h.Messages()
	if len(m) > n {
		m = m[len(m)-n:]
	}
	return m
}
