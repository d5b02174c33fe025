package kvstore

import "errors"

var (
	ErrKeyNotFound = errors.New("key not found")
	ErrKeyEmpty    = errors.New("key is empty")
)

// KVPair is a key with its raw stored value.
type KVPair struct {
	Key   string
	Value []byte
}

// KVStore is the persistence interface for the engine. Implementations
// exist for BadgerDB (production) and in-memory (tests). SetBatch must
// apply all pairs atomically: round resolution writes the payout set
// and the state transition as a single batch.
type KVStore interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	SetBatch(pairs []KVPair) error
	List(prefix string) ([]KVPair, error)
	Delete(key string) error
	Close() error
}
