// Package badger implements llmgateway.DurableStore on an embedded
// BadgerDB so LLM completions survive process restarts (§4.A Cache: "an
// optional durable store").
package badger

import (
	"context"
	"encoding/json"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"

	"github.com/arunmenon/AgentWorld-sub001/core"
	"github.com/arunmenon/AgentWorld-sub001/internal/llmgateway"
)

// Store wraps a badger.DB as a llmgateway.DurableStore. The caller owns
// the DB's lifecycle (Open/Close); Store only reads and writes keys under
// it.
type Store struct {
	db *dgbadger.DB
}

// Open opens (creating if absent) a badger database at path for use as the
// gateway's durable cache tier.
func Open(path string) (*Store, error) {
	opts := dgbadger.DefaultOptions(path).WithLogger(nil)
	db, err := dgbadger.Open(opts)
	if err != nil {
		return nil, core.Wrap(core.ErrStorage, "opening durable LLM cache", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get implements llmgateway.DurableStore.
func (s *Store) Get(ctx context.Context, key string) (llmgateway.CachedResponse, bool, error) {
	var value llmgateway.CachedResponse
	found := false

	err := s.db.View(func(txn *dgbadger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == dgbadger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if unmarshalErr := json.Unmarshal(val, &value); unmarshalErr != nil {
				return unmarshalErr
			}
			found = true
			return nil
		})
	})
	if err != nil {
		return llmgateway.CachedResponse{}, false, core.Wrap(core.ErrStorage, "reading durable LLM cache", err)
	}
	return value, found, nil
}

// Set implements llmgateway.DurableStore.
func (s *Store) Set(ctx context.Context, key string, value llmgateway.CachedResponse, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return core.Wrap(core.ErrStorage, "marshaling durable LLM cache entry", err)
	}

	err = s.db.Update(func(txn *dgbadger.Txn) error {
		entry := dgbadger.NewEntry([]byte(key), data)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return core.Wrap(core.ErrStorage, "writing durable LLM cache entry", err)
	}
	return nil
}
