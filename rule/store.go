package rule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/google/uuid"

	"github.com/vpqxl1/selfbot/kv"
)

var (
	// ErrDuplicate is returned by Add when an identical rule already exists.
	ErrDuplicate = errors.New("duplicate rule")
	// ErrNotFound is returned when no rule has a requested ID.
	ErrNotFound = errors.New("rule not found")
	// ErrStorage wraps persistence failures. When it is returned, the
	// in-memory rule set is unchanged from the last successful save.
	ErrStorage = errors.New("rule storage failure")
)

// Store is a durable, ordered collection of rules. All rules are held in
// memory; every mutation persists the full set through the backing store
// before it becomes visible, so the store never reports success for a rule
// that wasn't written.
type Store struct {
	key string
	db  kv.Store

	mu    sync.Mutex
	rules []Rule
}

// Open loads the rules stored under key. A missing key yields an empty
// store. A blob that fails to decode also yields an empty store rather than
// an error, so a damaged rules file can't keep the bot from starting.
func Open(ctx context.Context, db kv.Store, key string) (*Store, error) {
	s := &Store{key: key, db: db}
	b, err := db.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("couldn't load rules at %q: %w", key, err)
	}
	if len(b) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(b, &s.rules); err != nil {
		slog.ErrorContext(ctx, "corrupt rules; starting empty",
			slog.String("key", key),
			slog.Any("err", err),
		)
		s.rules = nil
	}
	return s, nil
}

// Len returns the number of rules in the store.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rules)
}

// Add creates a rule with a fresh ID, persists it, and returns it.
// Adding a rule identical to an existing one in category, target, and
// action fails with [ErrDuplicate].
func (s *Store) Add(ctx context.Context, cat Category, target, action string) (Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rules {
		r := &s.rules[i]
		if r.Category == cat && r.Target == target && r.Action == action {
			return Rule{}, fmt.Errorf("%w: %v %q -> %q", ErrDuplicate, cat, target, action)
		}
	}
	r := Rule{
		ID:       uuid.NewString(),
		Category: cat,
		Target:   target,
		Action:   action,
		Created:  time.Now(),
	}
	s.rules = append(s.rules, r)
	if err := s.persistLocked(ctx); err != nil {
		s.rules = s.rules[:len(s.rules)-1]
		return Rule{}, err
	}
	return r, nil
}

// Remove deletes the rule with the given ID and reports whether any rule
// was removed.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := slices.IndexFunc(s.rules, func(r Rule) bool { return r.ID == id })
	if k < 0 {
		return false, nil
	}
	r := s.rules[k]
	s.rules = slices.Delete(s.rules, k, k+1)
	if err := s.persistLocked(ctx); err != nil {
		s.rules = slices.Insert(s.rules, k, r)
		return false, err
	}
	return true, nil
}

// Rules returns a snapshot of the stored rules in insertion order,
// optionally filtered to the given categories.
func (s *Store) Rules(cats ...Category) []Rule {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(cats) == 0 {
		return slices.Clone(s.rules)
	}
	var r []Rule
	for _, v := range s.rules {
		if slices.Contains(cats, v.Category) {
			r = append(r, v)
		}
	}
	return r
}

// Clear removes every rule, or every rule of the given categories, and
// returns the number removed.
func (s *Store) Clear(ctx context.Context, cats ...Category) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.rules
	if len(cats) == 0 {
		s.rules = nil
	} else {
		s.rules = slices.DeleteFunc(slices.Clone(old), func(r Rule) bool {
			return slices.Contains(cats, r.Category)
		})
	}
	n := len(old) - len(s.rules)
	if n == 0 {
		return 0, nil
	}
	if err := s.persistLocked(ctx); err != nil {
		s.rules = old
		return 0, err
	}
	return n, nil
}

// persistLocked writes the full rule set to the backing store.
// The store's mutex must be held during the call.
func (s *Store) persistLocked(ctx context.Context) error {
	b, err := json.Marshal(s.rules)
	if err != nil {
		// Rules are plain strings and times. Explode loudly.
		panic(fmt.Errorf("rule: couldn't marshal rules: %w", err))
	}
	if err := s.db.Save(ctx, s.key, b); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}
