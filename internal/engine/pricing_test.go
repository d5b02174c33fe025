package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordpot/round-engine/internal/config"
	"github.com/wordpot/round-engine/internal/types"
)

func newTestCalculator(t *testing.T) *PricingCalculator {
	t.Helper()
	cfg := config.Default()
	calc, err := NewPricingCalculator(cfg)
	require.NoError(t, err)
	return calc
}

func TestPricing_Phases(t *testing.T) {
	calc := newTestCalculator(t)

	tests := []struct {
		cumulative uint64
		phase      types.PricingPhase
		price      string
	}{
		{0, types.PhaseBase, "0.0003"},
		{499, types.PhaseBase, "0.0003"},
		{500, types.PhaseLate1, "0.0003"},
		{600, types.PhaseLate1, "0.0004"},
		{699, types.PhaseLate1, "0.0004"},
		{1100, types.PhaseLate1, "0.0009"},
		{1200, types.PhaseLate2, "0.001"},
		{5000, types.PhaseLate2, "0.001"},
	}
	for _, tt := range tests {
		q := calc.Price(tt.cumulative)
		assert.Equal(t, tt.phase, q.Phase, "cumulative=%d", tt.cumulative)
		assert.Equal(t, tt.price, q.UnitPrice.String(), "cumulative=%d", tt.cumulative)
	}
}

func TestPricing_MonotonicNonDecreasing(t *testing.T) {
	calc := newTestCalculator(t)

	prev := calc.Price(0).UnitPrice
	for i := uint64(1); i <= 2000; i++ {
		cur := calc.Price(i).UnitPrice
		require.False(t, cur.LessThan(prev), "price decreased at %d: %s -> %s", i, prev, cur)
		prev = cur
	}
}

func TestPricing_PinnedAtCap(t *testing.T) {
	calc := newTestCalculator(t)

	max := calc.Price(calc.CapStart()).UnitPrice
	for _, n := range []uint64{0, 100, 1000, 100000} {
		q := calc.Price(calc.CapStart() + n)
		assert.Equal(t, types.PhaseLate2, q.Phase)
		assert.True(t, q.UnitPrice.Equal(max))
	}
}

func TestPricing_Deterministic(t *testing.T) {
	calc := newTestCalculator(t)

	for _, n := range []uint64{0, 500, 750, 1200} {
		a := calc.Price(n)
		b := calc.Price(n)
		assert.Equal(t, a.Phase, b.Phase)
		assert.True(t, a.UnitPrice.Equal(b.UnitPrice))
	}
}
