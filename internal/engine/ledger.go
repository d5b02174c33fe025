package engine

import (
	"sort"
	"strings"

	"github.com/wordpot/round-engine/internal/types"
)

// top10Size is the maximum number of ranked entries a round pays.
const top10Size = 10

// NormalizeWord canonicalizes guess text before comparison against
// the answer.
func NormalizeWord(w string) string {
	return strings.ToLower(strings.TrimSpace(w))
}

// CheckGuessIndices verifies that a round's guesses form a contiguous
// 1-based sequence with no gaps or duplicates. Returns the offending
// positions, empty when the sequence is clean.
func CheckGuessIndices(guesses []types.Guess) []uint64 {
	seen := make(map[uint64]bool, len(guesses))
	var max uint64
	var bad []uint64
	for _, g := range guesses {
		if g.Index == 0 || seen[g.Index] {
			bad = append(bad, g.Index)
			continue
		}
		seen[g.Index] = true
		if g.Index > max {
			max = g.Index
		}
	}
	for i := uint64(1); i <= max; i++ {
		if !seen[i] {
			bad = append(bad, i)
		}
	}
	sort.Slice(bad, func(i, j int) bool { return bad[i] < bad[j] })
	return bad
}

// ComputeTop10 derives the locked top-10 ranking for a round.
//
// Only guesses with index <= lockThreshold are eligible. Eligible
// guesses are grouped by player and ranked by count descending, ties
// broken by earliest eligible guess. The winner is excluded even when
// otherwise qualifying. Once the round crosses the threshold the
// result never changes, because later guesses carry higher indices.
//
// Rounds whose guesses lack indices (legacy imports) fall back to a
// best-effort ranking over all guesses and are marked Degraded.
func ComputeTop10(guesses []types.Guess, winnerID string, lockThreshold uint64) types.Ranking {
	degraded := false
	for _, g := range guesses {
		if g.Index == 0 {
			degraded = true
			break
		}
	}

	type agg struct {
		player string
		count  int
		first  int64 // unix nanos of earliest eligible guess
	}
	byPlayer := make(map[string]*agg)
	for _, g := range guesses {
		if !degraded && g.Index > lockThreshold {
			continue
		}
		if g.PlayerID == winnerID {
			continue
		}
		a, ok := byPlayer[g.PlayerID]
		if !ok {
			a = &agg{player: g.PlayerID, first: g.CreatedAt.UnixNano()}
			byPlayer[g.PlayerID] = a
		}
		a.count++
		if ts := g.CreatedAt.UnixNano(); ts < a.first {
			a.first = ts
		}
	}

	aggs := make([]*agg, 0, len(byPlayer))
	for _, a := range byPlayer {
		aggs = append(aggs, a)
	}
	sort.Slice(aggs, func(i, j int) bool {
		if aggs[i].count != aggs[j].count {
			return aggs[i].count > aggs[j].count
		}
		if aggs[i].first != aggs[j].first {
			return aggs[i].first < aggs[j].first
		}
		return aggs[i].player < aggs[j].player
	})
	if len(aggs) > top10Size {
		aggs = aggs[:top10Size]
	}

	entries := make([]types.RankEntry, len(aggs))
	for i, a := range aggs {
		entries[i] = types.RankEntry{
			PlayerID:        a.player,
			GuessCount:      a.count,
			FirstEligibleAt: unixNanoTime(a.first),
			Rank:            i + 1,
		}
	}
	return types.Ranking{Entries: entries, Degraded: degraded}
}
