// Package badger provides a BadgerDB implementation of the kv.Store
// interface. It offers persistent local storage for cached responses and
// conversation history using the embedded key-value database BadgerDB.
package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/ragkit-ai/go-ragkit/pkg/kv"
)

// Store implements the kv.Store interface using BadgerDB
type Store struct {
	db *badger.DB
}

// Verify it implements the interface
var _ kv.Store = (*Store)(nil)

// New initializes a new Store at the given path.
//
// Pass an empty path to run fully in memory (useful for tests).
func New(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Get retrieves a value by key. Expired entries are treated as missing;
// badger drops them natively once their TTL passes.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	var result []byte
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			result = append([]byte(nil), val...) // Copy
			return nil
		})
	})
	if err != nil {
		return nil, false, err
	}
	return result, found, nil
}

// Set stores a value by key with TTL. A ttl <= 0 stores without expiry.
func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

// Delete removes a value by key
func (s *Store) Delete(_ context.Context, key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// List returns all keys with the given prefix
func (s *Store) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}
