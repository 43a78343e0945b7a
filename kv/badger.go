package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Badger is a [Store] backed by a Badger database.
type Badger struct {
	db *badger.DB
}

var _ Store = (*Badger)(nil)

// InBadger wraps an open Badger database as a Store.
func InBadger(db *badger.DB) *Badger {
	return &Badger{db: db}
}

// Load returns the value stored under key.
func (b *Badger) Load(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := b.db.View(func(txn *badger.Txn) error {
		it, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		v, err = it.ValueCopy(nil)
		return err
	})
	switch {
	case err == nil:
		return v, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return nil, nil
	default:
		return nil, fmt.Errorf("couldn't load %q: %w", key, err)
	}
}

// Save stores value under key. The write is committed before Save returns.
func (b *Badger) Save(ctx context.Context, key string, value []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("couldn't save %q: %w", key, err)
	}
	return nil
}
