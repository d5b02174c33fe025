package kvstore

import (
	"errors"
	"os"
	"testing"
)

func newTestBadger(t *testing.T) *BadgerStore {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "badger_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := NewBadgerStore(tempDir)
	if err != nil {
		t.Fatalf("Failed to create BadgerStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBadgerStore_BasicOperations(t *testing.T) {
	store := newTestBadger(t)

	key := "test_key"
	value := []byte("test_value")

	if err := store.Set(key, value); err != nil {
		t.Errorf("Failed to set key: %v", err)
	}

	retrieved, err := store.Get(key)
	if err != nil {
		t.Errorf("Failed to get key: %v", err)
	}
	if string(retrieved) != string(value) {
		t.Errorf("Expected value %s, got %s", string(value), string(retrieved))
	}
}

func TestBadgerStore_GetNonExistentKey(t *testing.T) {
	store := newTestBadger(t)

	_, err := store.Get("non_existent_key")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Expected ErrKeyNotFound, got %v", err)
	}
}

func TestBadgerStore_Delete(t *testing.T) {
	store := newTestBadger(t)

	key := "test_key"
	if err := store.Set(key, []byte("test_value")); err != nil {
		t.Fatalf("Failed to set key: %v", err)
	}
	if err := store.Delete(key); err != nil {
		t.Errorf("Failed to delete key: %v", err)
	}
	if _, err := store.Get(key); err == nil {
		t.Error("Expected error when getting deleted key, got nil")
	}
}

func TestBadgerStore_SetBatch(t *testing.T) {
	store := newTestBadger(t)

	pairs := []KVPair{
		{Key: "rounds/a", Value: []byte("round")},
		{Key: "payouts/a", Value: []byte("payouts")},
		{Key: "rounds/active", Value: []byte("")},
	}
	if err := store.SetBatch(pairs); err != nil {
		t.Fatalf("Failed to set batch: %v", err)
	}
	for _, p := range pairs {
		v, err := store.Get(p.Key)
		if err != nil {
			t.Errorf("Failed to get %s: %v", p.Key, err)
		}
		if string(v) != string(p.Value) {
			t.Errorf("Expected %s=%s, got %s", p.Key, p.Value, v)
		}
	}
}

func TestBadgerStore_SetBatchRejectsEmptyKey(t *testing.T) {
	store := newTestBadger(t)

	err := store.SetBatch([]KVPair{
		{Key: "ok", Value: []byte("v")},
		{Key: "", Value: []byte("bad")},
	})
	if !errors.Is(err, ErrKeyEmpty) {
		t.Fatalf("Expected ErrKeyEmpty, got %v", err)
	}
	// the batch must not have been applied partially
	if _, err := store.Get("ok"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Expected ok to be absent after failed batch, got %v", err)
	}
}

func TestBadgerStore_List(t *testing.T) {
	store := newTestBadger(t)

	data := map[string]string{
		"guesses/r1/0000000001": "g1",
		"guesses/r1/0000000002": "g2",
		"guesses/r2/0000000001": "other",
	}
	for k, v := range data {
		if err := store.Set(k, []byte(v)); err != nil {
			t.Fatalf("Failed to set %s: %v", k, err)
		}
	}

	pairs, err := store.List("guesses/r1/")
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("Expected 2 pairs, got %d", len(pairs))
	}
	if pairs[0].Key != "guesses/r1/0000000001" || pairs[1].Key != "guesses/r1/0000000002" {
		t.Errorf("Expected key order, got %s then %s", pairs[0].Key, pairs[1].Key)
	}
}

func TestMemoryStore_MatchesBadgerSemantics(t *testing.T) {
	store := NewMemoryStore()

	if _, err := store.Get("missing"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Expected ErrKeyNotFound, got %v", err)
	}
	if err := store.Set("a/1", []byte("x")); err != nil {
		t.Fatalf("Failed to set: %v", err)
	}
	if err := store.SetBatch([]KVPair{{Key: "a/2", Value: []byte("y")}, {Key: "a/3", Value: []byte("z")}}); err != nil {
		t.Fatalf("Failed to set batch: %v", err)
	}

	pairs, err := store.List("a/")
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(pairs) != 3 {
		t.Fatalf("Expected 3 pairs, got %d", len(pairs))
	}
	for i, want := range []string{"a/1", "a/2", "a/3"} {
		if pairs[i].Key != want {
			t.Errorf("Expected key %s at %d, got %s", want, i, pairs[i].Key)
		}
	}

	if err := store.Delete("a/2"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if _, err := store.Get("a/2"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Expected ErrKeyNotFound after delete, got %v", err)
	}
}
