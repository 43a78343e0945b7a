// Package session provides exclusive, keyed session state for stateful chat
// interactions: games, polls, countdowns, AFK markers.
//
// A session is identified by its kind and a scope (typically a channel or
// user ID). At most one session of a kind is live per scope at any time;
// creating over a live session fails rather than overwriting it. Timers
// bound to a session are cancelled when the session is destroyed, so a
// countdown can never announce into a game that already ended.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vpqxl1/selfbot/timer"
)

var (
	// ErrConflict is returned by Create when a session of the same kind is
	// already live in the scope.
	ErrConflict = errors.New("session already active")
	// ErrNotFound is returned by Mutate when no session is live.
	ErrNotFound = errors.New("no active session")
)

// Key is the identity a session is exclusive under.
type Key struct {
	// Kind names the interaction, e.g. "guess" or "poll".
	Kind string
	// Scope is the channel or user the session belongs to.
	Scope string
}

// Session is one live stateful interaction.
// Its exported fields are fixed at creation; State is mutated only through
// [Registry.Mutate].
type Session struct {
	// Kind and Scope form the session's key.
	Kind, Scope string
	// Owner is the user who started the session, where relevant.
	Owner string
	// Started is when the session was created.
	Started time.Time
	// Expires is when the session's TTL elapses, if it has one.
	Expires time.Time
	// State is the kind-specific payload.
	State any

	timers []*timer.Handle
}

// Registry tracks live sessions. All operations are synchronous and
// in-memory; the check-then-act sequences in Create, Mutate, and Destroy
// hold one mutex for their whole duration, so two concurrent creations of
// the same key cannot both succeed no matter how callers interleave.
type Registry struct {
	timers *timer.Service

	mu   sync.Mutex
	live map[Key]*Session
}

// NewRegistry creates a registry scheduling TTL expiries on ts.
func NewRegistry(ts *timer.Service) *Registry {
	return &Registry{
		timers: ts,
		live:   make(map[Key]*Session),
	}
}

// An Option configures a session at creation.
type Option func(*create)

type create struct {
	owner    string
	ttl      time.Duration
	onExpire func(*Session)
}

// WithOwner records the user who started the session.
func WithOwner(id string) Option {
	return func(c *create) { c.owner = id }
}

// WithTTL destroys the session automatically after d, calling onExpire
// exactly once if the session was still live when the TTL elapsed.
// onExpire may be nil.
func WithTTL(d time.Duration, onExpire func(*Session)) Option {
	return func(c *create) { c.ttl = d; c.onExpire = onExpire }
}

// Create starts a session. It fails with [ErrConflict] if a session of the
// same kind is already live in the scope; the existing session is untouched.
func (r *Registry) Create(kind, scope string, state any, opts ...Option) (*Session, error) {
	var c create
	for _, o := range opts {
		o(&c)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	k := Key{Kind: kind, Scope: scope}
	if _, ok := r.live[k]; ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrConflict, kind, scope)
	}
	s := &Session{
		Kind:    kind,
		Scope:   scope,
		Owner:   c.owner,
		Started: r.timers.Now(),
		State:   state,
	}
	r.live[k] = s
	if c.ttl > 0 {
		s.Expires = s.Started.Add(c.ttl)
		onExpire := c.onExpire
		h := r.timers.After(c.ttl, func() bool { return r.Get(kind, scope) == s }, func() {
			if r.evict(s) && onExpire != nil {
				onExpire(s)
			}
		})
		s.timers = append(s.timers, h)
	}
	return s, nil
}

// Get returns the live session for the key, or nil.
func (r *Registry) Get(kind, scope string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live[Key{Kind: kind, Scope: scope}]
}

// Mutate applies fn to the live session under the registry lock. The
// mutation is observed by all subsequent Gets and cannot interleave with a
// concurrent Destroy. fn must not block or call back into the registry.
func (r *Registry) Mutate(kind, scope string, fn func(*Session)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.live[Key{Kind: kind, Scope: scope}]
	if !ok {
		return fmt.Errorf("%w: %s in %s", ErrNotFound, kind, scope)
	}
	fn(s)
	return nil
}

// Attach binds a timer handle to a live session so that destroying the
// session stops the timer. If the session is no longer live, the handle is
// stopped immediately.
func (r *Registry) Attach(s *Session, h *timer.Handle) {
	r.mu.Lock()
	if r.live[Key{Kind: s.Kind, Scope: s.Scope}] == s {
		s.timers = append(s.timers, h)
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	h.Stop()
}

// Destroy removes the session for the key and cancels every timer bound to
// it. It reports whether a session was live. Destroying an absent session
// is not an error.
func (r *Registry) Destroy(kind, scope string) bool {
	r.mu.Lock()
	s := r.live[Key{Kind: kind, Scope: scope}]
	if s == nil {
		r.mu.Unlock()
		return false
	}
	delete(r.live, Key{Kind: kind, Scope: scope})
	hs := s.timers
	s.timers = nil
	r.mu.Unlock()
	for _, h := range hs {
		h.Stop()
	}
	return true
}

// evict removes s only if it is still the live session for its key.
func (r *Registry) evict(s *Session) bool {
	r.mu.Lock()
	k := Key{Kind: s.Kind, Scope: s.Scope}
	if r.live[k] != s {
		r.mu.Unlock()
		return false
	}
	delete(r.live, k)
	hs := s.timers
	s.timers = nil
	r.mu.Unlock()
	for _, h := range hs {
		h.Stop()
	}
	return true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// Info is a read-only view of a live session for listings.
type Info struct {
	Kind    string    `json:"kind"`
	Scope   string    `json:"scope"`
	Owner   string    `json:"owner,omitzero"`
	Started time.Time `json:"started"`
	Expires time.Time `json:"expires,omitzero"`
}

// Sessions returns a snapshot of all live sessions.
func (r *Registry) Sessions() []Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := make([]Info, 0, len(r.live))
	for _, s := range r.live {
		l = append(l, Info{Kind: s.Kind, Scope: s.Scope, Owner: s.Owner, Started: s.Started, Expires: s.Expires})
	}
	return l
}
