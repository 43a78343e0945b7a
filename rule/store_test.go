package rule_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vpqxl1/selfbot/kv"
	"github.com/vpqxl1/selfbot/rule"
)

func TestStoreAdd(t *testing.T) {
	ctx := context.Background()
	s, err := rule.Open(ctx, kv.InMemory(), "rules/test")
	if err != nil {
		t.Fatalf("couldn't open store: %v", err)
	}
	r, err := s.Add(ctx, rule.Keyword, "hello", "👋")
	if err != nil {
		t.Errorf("couldn't add rule: %v", err)
	}
	if r.ID == "" {
		t.Errorf("added rule has no id")
	}
	if s.Len() != 1 {
		t.Errorf("wrong len after add: want 1, got %d", s.Len())
	}
	t.Run("duplicate", func(t *testing.T) {
		before := s.Rules()
		_, err := s.Add(ctx, rule.Keyword, "hello", "👋")
		if !errors.Is(err, rule.ErrDuplicate) {
			t.Errorf("adding identical rule: want ErrDuplicate, got %v", err)
		}
		if diff := cmp.Diff(before, s.Rules()); diff != "" {
			t.Errorf("store changed by rejected add (-want +got):\n%s", diff)
		}
	})
	t.Run("same target different action", func(t *testing.T) {
		if _, err := s.Add(ctx, rule.Keyword, "hello", "🎉"); err != nil {
			t.Errorf("couldn't add rule differing only in action: %v", err)
		}
	})
}

func TestStoreRemove(t *testing.T) {
	ctx := context.Background()
	s, err := rule.Open(ctx, kv.InMemory(), "rules/test")
	if err != nil {
		t.Fatalf("couldn't open store: %v", err)
	}
	r, err := s.Add(ctx, rule.User, "bocchi", "wave")
	if err != nil {
		t.Fatalf("couldn't add rule: %v", err)
	}
	ok, err := s.Remove(ctx, r.ID)
	if err != nil {
		t.Errorf("couldn't remove rule: %v", err)
	}
	if !ok {
		t.Errorf("remove reported no rule removed")
	}
	if s.Len() != 0 {
		t.Errorf("wrong len after remove: want 0, got %d", s.Len())
	}
	ok, err = s.Remove(ctx, r.ID)
	if err != nil {
		t.Errorf("second remove errored: %v", err)
	}
	if ok {
		t.Errorf("second remove reported a rule removed")
	}
}

func TestStoreClear(t *testing.T) {
	ctx := context.Background()
	s, err := rule.Open(ctx, kv.InMemory(), "rules/test")
	if err != nil {
		t.Fatalf("couldn't open store: %v", err)
	}
	adds := []struct {
		cat            rule.Category
		target, action string
	}{
		{rule.Keyword, "hello", "👋"},
		{rule.Keyword, "bye", "🫡"},
		{rule.User, "bocchi", "guitar"},
	}
	for _, a := range adds {
		if _, err := s.Add(ctx, a.cat, a.target, a.action); err != nil {
			t.Fatalf("couldn't add rule: %v", err)
		}
	}
	n, err := s.Clear(ctx, rule.Keyword)
	if err != nil {
		t.Errorf("couldn't clear keyword rules: %v", err)
	}
	if n != 2 {
		t.Errorf("wrong clear count: want 2, got %d", n)
	}
	left := s.Rules()
	if len(left) != 1 || left[0].Category != rule.User {
		t.Errorf("wrong rules left after clear: %v", left)
	}
	n, err = s.Clear(ctx)
	if err != nil {
		t.Errorf("couldn't clear all rules: %v", err)
	}
	if n != 1 {
		t.Errorf("wrong clear count: want 1, got %d", n)
	}
	if s.Len() != 0 {
		t.Errorf("rules left after clearing all: %d", s.Len())
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := kv.InMemory()
	s, err := rule.Open(ctx, db, "rules/test")
	if err != nil {
		t.Fatalf("couldn't open store: %v", err)
	}
	want := make([]rule.Rule, 0, 3)
	adds := []struct {
		cat            rule.Category
		target, action string
	}{
		{rule.Keyword, "hello", "👋"},
		{rule.Channel, "general", "🥇"},
		{rule.DirectMessage, "", "brb"},
	}
	for _, a := range adds {
		r, err := s.Add(ctx, a.cat, a.target, a.action)
		if err != nil {
			t.Fatalf("couldn't add rule: %v", err)
		}
		want = append(want, r)
	}
	again, err := rule.Open(ctx, db, "rules/test")
	if err != nil {
		t.Fatalf("couldn't reopen store: %v", err)
	}
	if diff := cmp.Diff(want, again.Rules()); diff != "" {
		t.Errorf("rules differ after reload (-want +got):\n%s", diff)
	}
}

func TestStoreOpenCorrupt(t *testing.T) {
	ctx := context.Background()
	db := kv.InMemory()
	if err := db.Save(ctx, "rules/test", []byte("{this is not json")); err != nil {
		t.Fatalf("couldn't save garbage: %v", err)
	}
	s, err := rule.Open(ctx, db, "rules/test")
	if err != nil {
		t.Errorf("corrupt blob errored open: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("corrupt blob produced %d rules", s.Len())
	}
	// The store must still persist new rules.
	if _, err := s.Add(ctx, rule.Keyword, "hello", "👋"); err != nil {
		t.Errorf("couldn't add to recovered store: %v", err)
	}
}

// brokenStore fails every save after the first okAfter of them.
type brokenStore struct {
	kv.Store
	okAfter int
}

func (b *brokenStore) Save(ctx context.Context, key string, value []byte) error {
	if b.okAfter <= 0 {
		return errors.New("disk on fire")
	}
	b.okAfter--
	return b.Store.Save(ctx, key, value)
}

func TestStoreRollback(t *testing.T) {
	ctx := context.Background()
	db := &brokenStore{Store: kv.InMemory(), okAfter: 2}
	s, err := rule.Open(ctx, db, "rules/test")
	if err != nil {
		t.Fatalf("couldn't open store: %v", err)
	}
	first, err := s.Add(ctx, rule.Keyword, "hello", "👋")
	if err != nil {
		t.Fatalf("couldn't add rule: %v", err)
	}
	if _, err := s.Add(ctx, rule.User, "bocchi", "guitar"); err != nil {
		t.Fatalf("couldn't add rule: %v", err)
	}
	before := s.Rules()
	t.Run("add", func(t *testing.T) {
		_, err := s.Add(ctx, rule.Channel, "general", "🥇")
		if !errors.Is(err, rule.ErrStorage) {
			t.Errorf("failed save: want ErrStorage, got %v", err)
		}
		if diff := cmp.Diff(before, s.Rules()); diff != "" {
			t.Errorf("rules changed by failed add (-want +got):\n%s", diff)
		}
	})
	t.Run("remove", func(t *testing.T) {
		_, err := s.Remove(ctx, first.ID)
		if !errors.Is(err, rule.ErrStorage) {
			t.Errorf("failed save: want ErrStorage, got %v", err)
		}
		if diff := cmp.Diff(before, s.Rules()); diff != "" {
			t.Errorf("rules changed by failed remove (-want +got):\n%s", diff)
		}
	})
	t.Run("clear", func(t *testing.T) {
		_, err := s.Clear(ctx)
		if !errors.Is(err, rule.ErrStorage) {
			t.Errorf("failed save: want ErrStorage, got %v", err)
		}
		if diff := cmp.Diff(before, s.Rules()); diff != "" {
			t.Errorf("rules changed by failed clear (-want +got):\n%s", diff)
		}
	})
}

func TestCategoryText(t *testing.T) {
	cases := []struct {
		cat  rule.Category
		name string
	}{
		{rule.User, "user"},
		{rule.Keyword, "keyword"},
		{rule.Channel, "channel"},
		{rule.DirectMessage, "dm"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b, err := c.cat.MarshalText()
			if err != nil {
				t.Errorf("couldn't marshal: %v", err)
			}
			if string(b) != c.name {
				t.Errorf("wrong text: want %q, got %q", c.name, b)
			}
			got, err := rule.ParseCategory(c.name)
			if err != nil {
				t.Errorf("couldn't parse %q: %v", c.name, err)
			}
			if got != c.cat {
				t.Errorf("wrong category for %q: want %v, got %v", c.name, c.cat, got)
			}
		})
	}
	if _, err := rule.ParseCategory("sasuke"); err == nil {
		t.Errorf("parsing bogus category succeeded")
	}
	if _, err := rule.Category(77).MarshalText(); err == nil {
		t.Errorf("marshaling bogus category succeeded")
	}
}
