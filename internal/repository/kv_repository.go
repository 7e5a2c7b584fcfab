package repository

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// KVStore is the durable local key-value store behind the state repository.
type KVStore interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Close() error
}

type badgerKV struct {
	db *badger.DB
}

// NewBadgerKV opens (or creates) a badger database at path. An empty path
// opens an in-memory database.
func NewBadgerKV(path string) (KVStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	return &badgerKV{db: db}, nil
}

func (s *badgerKV) Get(key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return out, nil
}

func (s *badgerKV) Set(key string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *badgerKV) Close() error {
	return s.db.Close()
}
