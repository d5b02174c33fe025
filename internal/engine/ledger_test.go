package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordpot/round-engine/internal/types"
)

func guessAt(round, player string, index uint64, at time.Time) types.Guess {
	return types.Guess{
		ID:        fmt.Sprintf("g-%d", index),
		RoundID:   round,
		PlayerID:  player,
		Index:     index,
		CreatedAt: at,
	}
}

// buildGuesses assigns contiguous indices to the given player sequence.
func buildGuesses(players []string) []types.Guess {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	guesses := make([]types.Guess, len(players))
	for i, p := range players {
		guesses[i] = guessAt("r1", p, uint64(i+1), base.Add(time.Duration(i)*time.Second))
	}
	return guesses
}

func TestComputeTop10_RanksByCountThenTime(t *testing.T) {
	guesses := buildGuesses([]string{
		"alice", "bob", "alice", "carol", "bob", "alice", "dave",
	})
	ranking := ComputeTop10(guesses, "", 750)

	require.Len(t, ranking.Entries, 4)
	assert.False(t, ranking.Degraded)
	assert.Equal(t, "alice", ranking.Entries[0].PlayerID)
	assert.Equal(t, 3, ranking.Entries[0].GuessCount)
	assert.Equal(t, "bob", ranking.Entries[1].PlayerID)
	// carol and dave both have one guess; carol guessed earlier
	assert.Equal(t, "carol", ranking.Entries[2].PlayerID)
	assert.Equal(t, "dave", ranking.Entries[3].PlayerID)
	for i, e := range ranking.Entries {
		assert.Equal(t, i+1, e.Rank)
	}
}

func TestComputeTop10_ExcludesWinner(t *testing.T) {
	guesses := buildGuesses([]string{"alice", "alice", "alice", "bob"})
	ranking := ComputeTop10(guesses, "alice", 750)

	require.Len(t, ranking.Entries, 1)
	assert.Equal(t, "bob", ranking.Entries[0].PlayerID)
}

func TestComputeTop10_LockThreshold(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var guesses []types.Guess
	// alice owns the eligible window, bob floods after the lock
	for i := uint64(1); i <= 750; i++ {
		guesses = append(guesses, guessAt("r1", "alice", i, base.Add(time.Duration(i)*time.Millisecond)))
	}
	for i := uint64(751); i <= 2000; i++ {
		guesses = append(guesses, guessAt("r1", "bob", i, base.Add(time.Duration(i)*time.Millisecond)))
	}

	ranking := ComputeTop10(guesses, "", 750)
	require.Len(t, ranking.Entries, 1)
	assert.Equal(t, "alice", ranking.Entries[0].PlayerID)
	assert.Equal(t, 750, ranking.Entries[0].GuessCount)
}

func TestComputeTop10_CapsAtTen(t *testing.T) {
	players := make([]string, 0, 15)
	for i := 0; i < 15; i++ {
		players = append(players, fmt.Sprintf("player-%02d", i))
	}
	ranking := ComputeTop10(buildGuesses(players), "", 750)
	assert.Len(t, ranking.Entries, 10)
}

func TestComputeTop10_LegacyGuessesDegraded(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	guesses := []types.Guess{
		guessAt("r1", "alice", 0, base),
		guessAt("r1", "alice", 0, base.Add(time.Second)),
		guessAt("r1", "bob", 0, base.Add(2*time.Second)),
	}
	ranking := ComputeTop10(guesses, "", 750)

	assert.True(t, ranking.Degraded)
	require.Len(t, ranking.Entries, 2)
	assert.Equal(t, "alice", ranking.Entries[0].PlayerID)
}

func TestCheckGuessIndices(t *testing.T) {
	clean := buildGuesses([]string{"a", "b", "c"})
	assert.Empty(t, CheckGuessIndices(clean))

	base := time.Now()
	gap := []types.Guess{
		guessAt("r1", "a", 1, base),
		guessAt("r1", "b", 3, base),
	}
	assert.Equal(t, []uint64{2}, CheckGuessIndices(gap))

	dup := []types.Guess{
		guessAt("r1", "a", 1, base),
		guessAt("r1", "b", 1, base),
	}
	assert.Equal(t, []uint64{1}, CheckGuessIndices(dup))
}

func TestNormalizeWord(t *testing.T) {
	assert.Equal(t, "orchid", NormalizeWord("  Orchid \n"))
	assert.Equal(t, "", NormalizeWord("   "))
}
