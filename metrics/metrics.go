package metrics

import "github.com/prometheus/client_golang/prometheus"

type Observer interface {
	Observe(val float64, labels ...string)

	// for now we tightly couple to the prometheus collector type; the go
	// otel metrics sdk also has a prometheus adapter implementing this.
	prometheus.Collector
}

// Metrics is the set of observers the bot records into.
type Metrics struct {
	// EventsCount is the number of chat events received.
	EventsCount Observer
	// SentCount is the number of messages the bot sent.
	SentCount Observer
	// CommandCount is the number of command invocations dispatched.
	CommandCount Observer
	// RuleMatchCount is the number of rule matches, labeled by rule set.
	RuleMatchCount Observer
	// ReactCount is the number of reactions sent by autoreact rules.
	ReactCount Observer
	// AIReplyCount is the number of AI auto-responses sent.
	AIReplyCount Observer
	// TimerFiredCount is the number of timer callbacks that ran.
	TimerFiredCount Observer
	// CommandLatency observes how long command handlers run in seconds,
	// labeled by command name.
	CommandLatency Observer
}

// Collectors returns all non-nil collectors for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	all := []Observer{
		m.EventsCount,
		m.SentCount,
		m.CommandCount,
		m.RuleMatchCount,
		m.ReactCount,
		m.AIReplyCount,
		m.TimerFiredCount,
		m.CommandLatency,
	}
	var r []prometheus.Collector
	for _, o := range all {
		if o != nil {
			r = append(r, o)
		}
	}
	return r
}

// Nop is an Observer that records nothing. It keeps call sites unconditional
// in tests and in contexts with no registry.
type Nop struct{ prometheus.Collector }

func (Nop) Observe(val float64, labels ...string) {}

// NewNop returns a Metrics with every observer a no-op.
func NewNop() *Metrics {
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "nop"})
	n := Nop{c}
	return &Metrics{
		EventsCount:     n,
		SentCount:       n,
		CommandCount:    n,
		RuleMatchCount:  n,
		ReactCount:      n,
		AIReplyCount:    n,
		TimerFiredCount: n,
		CommandLatency:  n,
	}
}
