package kvstore

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore persists to an embedded BadgerDB.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return &BadgerStore{db: db}, nil
}

func (b *BadgerStore) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, ErrKeyEmpty
	}
	var valCopy []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return ErrKeyNotFound
			}
			return err
		}
		valCopy, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return valCopy, nil
}

func (b *BadgerStore) Set(key string, value []byte) error {
	if key == "" {
		return ErrKeyEmpty
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// SetBatch writes all pairs in one transaction; either every pair is
// visible afterwards or none is.
func (b *BadgerStore) SetBatch(pairs []KVPair) error {
	if len(pairs) == 0 {
		return nil
	}
	return b.db.Update(func(txn *badger.Txn) error {
		for _, p := range pairs {
			if p.Key == "" {
				return ErrKeyEmpty
			}
			if err := txn.Set([]byte(p.Key), p.Value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *BadgerStore) List(prefix string) ([]KVPair, error) {
	if prefix == "" {
		return nil, fmt.Errorf("prefix is empty")
	}
	result := make([]KVPair, 0)
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			k := item.KeyCopy(nil)
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			result = append(result, KVPair{Key: string(k), Value: v})
		}
		return nil
	})
	return result, err
}

func (b *BadgerStore) Delete(key string) error {
	if key == "" {
		return ErrKeyEmpty
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}
