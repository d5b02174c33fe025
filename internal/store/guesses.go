package store

import (
	"errors"
	"strconv"

	"github.com/wordpot/round-engine/internal/kvstore"
	"github.com/wordpot/round-engine/internal/types"
)

// GuessCount returns the authoritative number of guesses ingested for
// a round, i.e. the current value of the per-round sequence counter.
func (s *Store) GuessCount(roundID string) (uint64, error) {
	data, err := s.kv.Get(guessSeqKey(roundID))
	if err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return strconv.ParseUint(string(data), 10, 64)
}

// AppendGuess assigns the next contiguous 1-based index to g and
// persists the guess together with the advanced counter and the
// updated round in one batch. The caller must serialize invocations
// per round; concurrent unserialized calls would produce duplicate
// indices.
func (s *Store) AppendGuess(g *types.Guess, round *types.Round) (uint64, error) {
	next, err := s.GuessCount(g.RoundID)
	if err != nil {
		return 0, err
	}
	next++
	g.Index = next

	guessPair, err := pairJSON(guessKey(g.RoundID, next), g)
	if err != nil {
		return 0, err
	}
	pairs := []kvstore.KVPair{
		guessPair,
		{Key: guessSeqKey(g.RoundID), Value: []byte(strconv.FormatUint(next, 10))},
	}
	if round != nil {
		roundPair, err := pairJSON(roundKey(round.ID), round)
		if err != nil {
			return 0, err
		}
		pairs = append(pairs, roundPair)
	}
	if err := s.kv.SetBatch(pairs); err != nil {
		return 0, err
	}
	return next, nil
}

// ListGuesses returns a round's guesses in index order.
func (s *Store) ListGuesses(roundID string) ([]types.Guess, error) {
	pairs, err := s.kv.List(guessPrefix + roundID + "/")
	if err != nil {
		return nil, err
	}
	guesses := make([]types.Guess, 0, len(pairs))
	for _, p := range pairs {
		if isSeqKey(p.Key) {
			continue
		}
		var g types.Guess
		if err := jsonUnmarshal(p.Value, &g); err != nil {
			return nil, err
		}
		guesses = append(guesses, g)
	}
	return guesses, nil
}

// AppendPurchase persists a purchase and the grown round pool in one
// batch. Like AppendGuess, calls must be serialized per round.
func (s *Store) AppendPurchase(p *types.PackPurchase, round *types.Round) error {
	seq, err := s.purchaseSeq(p.RoundID)
	if err != nil {
		return err
	}
	seq++

	purchasePair, err := pairJSON(purchaseKey(p.RoundID, seq), p)
	if err != nil {
		return err
	}
	roundPair, err := pairJSON(roundKey(round.ID), round)
	if err != nil {
		return err
	}
	return s.kv.SetBatch([]kvstore.KVPair{
		purchasePair,
		{Key: purchaseSeqKey(p.RoundID), Value: []byte(strconv.FormatUint(seq, 10))},
		roundPair,
	})
}

func (s *Store) purchaseSeq(roundID string) (uint64, error) {
	data, err := s.kv.Get(purchaseSeqKey(roundID))
	if err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return strconv.ParseUint(string(data), 10, 64)
}

// ListPurchases returns a round's purchases in ingestion order.
func (s *Store) ListPurchases(roundID string) ([]types.PackPurchase, error) {
	pairs, err := s.kv.List(purchasePrefix + roundID + "/")
	if err != nil {
		return nil, err
	}
	purchases := make([]types.PackPurchase, 0, len(pairs))
	for _, p := range pairs {
		if isSeqKey(p.Key) {
			continue
		}
		var pp types.PackPurchase
		if err := jsonUnmarshal(p.Value, &pp); err != nil {
			return nil, err
		}
		purchases = append(purchases, pp)
	}
	return purchases, nil
}
