package store

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordpot/round-engine/internal/kvstore"
	"github.com/wordpot/round-engine/internal/types"
)

func newTestStore() *Store {
	return New(kvstore.NewMemoryStore())
}

func testRound(id string, startedAt time.Time) *types.Round {
	return &types.Round{
		ID:         id,
		CommitHash: "hash-" + id,
		Salt:       "0123456789abcdef0123456789abcdef",
		PrizePool:  decimal.NewFromInt(1),
		Status:     types.RoundStatusActive,
		StartedAt:  startedAt,
	}
}

func TestCreateRound_ClaimsActiveSlot(t *testing.T) {
	st := newTestStore()

	id, err := st.ActiveRoundID()
	require.NoError(t, err)
	assert.Empty(t, id)

	round := testRound("r1", time.Now().UTC())
	require.NoError(t, st.CreateRound(round))

	id, err = st.ActiveRoundID()
	require.NoError(t, err)
	assert.Equal(t, "r1", id)

	got, err := st.GetRound("r1")
	require.NoError(t, err)
	assert.Equal(t, round.CommitHash, got.CommitHash)
	assert.True(t, got.PrizePool.Equal(round.PrizePool))
}

func TestGetRound_NotFound(t *testing.T) {
	st := newTestStore()
	_, err := st.GetRound("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppendGuess_SequencesFromOne(t *testing.T) {
	st := newTestStore()
	round := testRound("r1", time.Now().UTC())
	require.NoError(t, st.CreateRound(round))

	for i := 1; i <= 12; i++ {
		g := &types.Guess{ID: "g", RoundID: "r1", PlayerID: "alice", CreatedAt: time.Now().UTC()}
		idx, err := st.AppendGuess(g, nil)
		require.NoError(t, err)
		assert.Equal(t, uint64(i), idx)
	}

	count, err := st.GuessCount("r1")
	require.NoError(t, err)
	assert.Equal(t, uint64(12), count)

	guesses, err := st.ListGuesses("r1")
	require.NoError(t, err)
	require.Len(t, guesses, 12)
	for i, g := range guesses {
		assert.Equal(t, uint64(i+1), g.Index, "list must come back in index order")
	}
}

func TestResolveRound_AtomicBatch(t *testing.T) {
	st := newTestStore()
	now := time.Now().UTC()
	round := testRound("r1", now)
	require.NoError(t, st.CreateRound(round))

	round.Status = types.RoundStatusResolved
	round.ResolvedAt = &now
	payouts := []types.Payout{
		{RoundID: "r1", Role: types.RoleWinner, RecipientID: "w", Amount: decimal.RequireFromString("0.8")},
		{RoundID: "r1", Role: types.RoleSeed, Amount: decimal.RequireFromString("0.2")},
	}
	archive := &types.RoundArchive{RoundID: "r1", Answer: "orchid", ResolvedAt: now}
	require.NoError(t, st.ResolveRound(round, payouts, archive))

	got, err := st.GetPayouts("r1")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	arch, err := st.GetArchive("r1")
	require.NoError(t, err)
	assert.Equal(t, "orchid", arch.Answer)

	id, err := st.ActiveRoundID()
	require.NoError(t, err)
	assert.Empty(t, id, "active slot must be released on resolve")
}

func TestListResolvedRounds_OrderAndLimit(t *testing.T) {
	st := newTestStore()
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"r1", "r2", "r3"} {
		r := testRound(id, base.Add(time.Duration(i)*time.Hour))
		r.Status = types.RoundStatusResolved
		at := base.Add(time.Duration(i)*time.Hour + 30*time.Minute)
		r.ResolvedAt = &at
		require.NoError(t, st.SaveRound(r))
	}
	// one still active; must not appear
	require.NoError(t, st.SaveRound(testRound("r4", base.Add(4*time.Hour))))

	resolved, err := st.ListResolvedRounds(2)
	require.NoError(t, err)
	require.Len(t, resolved, 2)
	assert.Equal(t, "r3", resolved[0].ID)
	assert.Equal(t, "r2", resolved[1].ID)
}

func TestListResolvedRounds_LegacyNilResolvedAt(t *testing.T) {
	st := newTestStore()
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	// legacy imports can carry a resolved status with no timestamp
	for _, id := range []string{"legacy-a", "legacy-b"} {
		r := testRound(id, base)
		r.Status = types.RoundStatusResolved
		require.NoError(t, st.SaveRound(r))
	}
	recent := testRound("recent", base.Add(time.Hour))
	recent.Status = types.RoundStatusResolved
	at := base.Add(2 * time.Hour)
	recent.ResolvedAt = &at
	require.NoError(t, st.SaveRound(recent))

	resolved, err := st.ListResolvedRounds(0)
	require.NoError(t, err)
	require.Len(t, resolved, 3)
	assert.Equal(t, "recent", resolved[0].ID, "timestamped rounds sort before legacy ones")
}

func TestAlerts_AppendOnlyChronological(t *testing.T) {
	st := newTestStore()
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		a := &types.FairnessAlert{
			ID:        "a",
			Severity:  types.SeverityLow,
			Kind:      "test",
			RoundID:   "r1",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, st.AppendAlert(a))
	}

	alerts, err := st.ListAlerts()
	require.NoError(t, err)
	require.Len(t, alerts, 3)
	for i := 1; i < len(alerts); i++ {
		assert.False(t, alerts[i].CreatedAt.Before(alerts[i-1].CreatedAt))
	}
}

func TestAppendPurchase_GrowsRoundAtomically(t *testing.T) {
	st := newTestStore()
	round := testRound("r1", time.Now().UTC())
	require.NoError(t, st.CreateRound(round))

	round.PrizePool = round.PrizePool.Add(decimal.RequireFromString("0.003"))
	p := &types.PackPurchase{
		RoundID:    "r1",
		PlayerID:   "alice",
		Quantity:   10,
		UnitPrice:  decimal.RequireFromString("0.0003"),
		TotalPrice: decimal.RequireFromString("0.003"),
		Phase:      types.PhaseBase,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, st.AppendPurchase(p, round))

	got, err := st.GetRound("r1")
	require.NoError(t, err)
	assert.Equal(t, "1.003", got.PrizePool.String())

	purchases, err := st.ListPurchases("r1")
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.Equal(t, 10, purchases[0].Quantity)
}
