// Package store layers the engine's entity stores over the KVStore
// interface. Keys are composed as <entity>/<round>/<discriminator> so
// prefix scans return one round's records in index order.
package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wordpot/round-engine/internal/kvstore"
)

const (
	roundPrefix      = "rounds/"
	activeRoundKey   = "rounds/active"
	guessPrefix      = "guesses/"
	purchasePrefix   = "purchases/"
	payoutPrefix     = "payouts/"
	archivePrefix    = "archives/"
	alertPrefix      = "alerts/"
	simulationPrefix = "simulations/"
)

func roundKey(id string) string   { return roundPrefix + id }
func payoutKey(id string) string  { return payoutPrefix + id }
func archiveKey(id string) string { return archivePrefix + id }

// Guess keys zero-pad the index so lexicographic order equals numeric
// order under prefix iteration.
func guessKey(roundID string, index uint64) string {
	return fmt.Sprintf("%s%s/%010d", guessPrefix, roundID, index)
}

func guessSeqKey(roundID string) string {
	return guessPrefix + roundID + "/seq"
}

func purchaseKey(roundID string, seq uint64) string {
	return fmt.Sprintf("%s%s/%010d", purchasePrefix, roundID, seq)
}

func purchaseSeqKey(roundID string) string {
	return purchasePrefix + roundID + "/seq"
}

// Store wraps a KVStore with typed accessors for the engine entities.
type Store struct {
	kv kvstore.KVStore
}

func New(kv kvstore.KVStore) *Store {
	return &Store{kv: kv}
}

func (s *Store) KV() kvstore.KVStore { return s.kv }

func (s *Store) Close() error { return s.kv.Close() }

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

func (s *Store) getJSON(key string, v any) error {
	data, err := s.kv.Get(key)
	if err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *Store) setJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.kv.Set(key, data)
}

func jsonUnmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func pairJSON(key string, v any) (kvstore.KVPair, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return kvstore.KVPair{}, fmt.Errorf("marshal %s: %w", key, err)
	}
	return kvstore.KVPair{Key: key, Value: data}, nil
}
