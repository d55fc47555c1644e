package cache

import (
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"

	"folio/internal/cms"
)

// Badger stores entries in an embedded BadgerDB. Keys carry a prefix so
// the UUID and page caches can share one database directory.
type Badger struct {
	db     *badger.DB
	prefix []byte
	owned  bool
}

// NewBadger opens a database in dir, or in memory if dir is empty.
func NewBadger(dir, prefix string) (*Badger, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("create badger directory %s: %w", dir, err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Badger{db: db, prefix: []byte(prefix), owned: true}, nil
}

// NewBadgerWithDB creates a cache over an open database the caller closes.
func NewBadgerWithDB(db *badger.DB, prefix string) *Badger {
	return &Badger{db: db, prefix: []byte(prefix)}
}

func (b *Badger) key(k string) []byte {
	out := make([]byte, 0, len(b.prefix)+len(k))
	out = append(out, b.prefix...)
	return append(out, k...)
}

func (b *Badger) Get(key string) (string, bool, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.key(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("badger get %q: %w", key, err)
	}
	return string(value), true, nil
}

func (b *Badger) Set(key, value string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(b.key(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("badger set %q: %w", key, err)
	}
	return nil
}

func (b *Badger) Remove(key string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(b.key(key))
	})
	if err != nil {
		return fmt.Errorf("badger delete %q: %w", key, err)
	}
	return nil
}

// Flush drops every key with the cache prefix.
func (b *Badger) Flush() error {
	if len(b.prefix) == 0 {
		if err := b.db.DropAll(); err != nil {
			return fmt.Errorf("badger drop all: %w", err)
		}
		return nil
	}
	if err := b.db.DropPrefix(b.prefix); err != nil {
		return fmt.Errorf("badger drop prefix: %w", err)
	}
	return nil
}

// Close closes the database if this cache opened it.
func (b *Badger) Close() error {
	if !b.owned {
		return nil
	}
	return b.db.Close()
}

// Compile-time check that Badger implements cms.Cache.
var _ cms.Cache = (*Badger)(nil)
