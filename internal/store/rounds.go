package store

import (
	"errors"
	"sort"
	"strings"

	"github.com/wordpot/round-engine/internal/kvstore"
	"github.com/wordpot/round-engine/internal/types"
)

func (s *Store) GetRound(id string) (*types.Round, error) {
	var r types.Round
	if err := s.getJSON(roundKey(id), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) SaveRound(r *types.Round) error {
	if r.ID == "" {
		return errors.New("round id is required")
	}
	return s.setJSON(roundKey(r.ID), r)
}

// ActiveRoundID returns the id in the single active-round slot, or ""
// if no round is active.
func (s *Store) ActiveRoundID() (string, error) {
	data, err := s.kv.Get(activeRoundKey)
	if err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return "", nil
		}
		return "", err
	}
	return string(data), nil
}

// CreateRound writes the round and claims the active slot in one
// batch. The caller must hold the engine lifecycle lock so the
// prior ActiveRoundID check and this write are not interleaved.
func (s *Store) CreateRound(r *types.Round) error {
	pair, err := pairJSON(roundKey(r.ID), r)
	if err != nil {
		return err
	}
	return s.kv.SetBatch([]kvstore.KVPair{
		pair,
		{Key: activeRoundKey, Value: []byte(r.ID)},
	})
}

// ResolveRound atomically persists the resolved round, its full payout
// set, the archive, and releases the active slot. Partial payout sets
// are never observable.
func (s *Store) ResolveRound(r *types.Round, payouts []types.Payout, archive *types.RoundArchive) error {
	roundPair, err := pairJSON(roundKey(r.ID), r)
	if err != nil {
		return err
	}
	payoutPair, err := pairJSON(payoutKey(r.ID), payouts)
	if err != nil {
		return err
	}
	archivePair, err := pairJSON(archiveKey(r.ID), archive)
	if err != nil {
		return err
	}
	return s.kv.SetBatch([]kvstore.KVPair{
		roundPair,
		payoutPair,
		archivePair,
		{Key: activeRoundKey, Value: []byte("")},
	})
}

func (s *Store) GetPayouts(roundID string) ([]types.Payout, error) {
	var p []types.Payout
	if err := s.getJSON(payoutKey(roundID), &p); err != nil {
		return nil, err
	}
	return p, nil
}

// SavePayouts overwrites a round's payout set. Only the resolver and
// tests use it; audits read, never write.
func (s *Store) SavePayouts(roundID string, payouts []types.Payout) error {
	return s.setJSON(payoutKey(roundID), payouts)
}

func (s *Store) GetArchive(roundID string) (*types.RoundArchive, error) {
	var a types.RoundArchive
	if err := s.getJSON(archiveKey(roundID), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListRounds returns every stored round, most recently started first.
func (s *Store) ListRounds() ([]types.Round, error) {
	pairs, err := s.kv.List(roundPrefix)
	if err != nil {
		return nil, err
	}
	rounds := make([]types.Round, 0, len(pairs))
	for _, p := range pairs {
		if p.Key == activeRoundKey {
			continue
		}
		var r types.Round
		if err := jsonUnmarshal(p.Value, &r); err != nil {
			return nil, err
		}
		rounds = append(rounds, r)
	}
	sort.Slice(rounds, func(i, j int) bool {
		return rounds[i].StartedAt.After(rounds[j].StartedAt)
	})
	return rounds, nil
}

// ListResolvedRounds returns up to limit resolved rounds, most recent
// resolution first. limit <= 0 means no limit.
func (s *Store) ListResolvedRounds(limit int) ([]types.Round, error) {
	rounds, err := s.ListRounds()
	if err != nil {
		return nil, err
	}
	resolved := rounds[:0:0]
	for _, r := range rounds {
		if r.Status == types.RoundStatusResolved {
			resolved = append(resolved, r)
		}
	}
	sort.Slice(resolved, func(i, j int) bool {
		ti, tj := resolved[i].ResolvedAt, resolved[j].ResolvedAt
		if ti == nil || tj == nil {
			// timestamped rounds sort before legacy nil ones
			return ti != nil
		}
		return ti.After(*tj)
	})
	if limit > 0 && len(resolved) > limit {
		resolved = resolved[:limit]
	}
	return resolved, nil
}

func isSeqKey(key string) bool {
	return strings.HasSuffix(key, "/seq")
}
