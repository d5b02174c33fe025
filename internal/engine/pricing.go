package engine

import (
	"github.com/shopspring/decimal"

	"github.com/wordpot/round-engine/internal/config"
	"github.com/wordpot/round-engine/internal/types"
)

// Quote is the server-authoritative price for the next guess pack.
type Quote struct {
	Phase     types.PricingPhase
	UnitPrice decimal.Decimal
}

// PricingCalculator maps cumulative guess counts to a price tier.
// Pure and deterministic; Price is monotonic non-decreasing in the
// guess count.
type PricingCalculator struct {
	base         decimal.Decimal
	stepIncrease decimal.Decimal
	max          decimal.Decimal
	rampStart    uint64
	stepGuesses  uint64
	capStart     uint64
}

func NewPricingCalculator(cfg *config.Config) (*PricingCalculator, error) {
	p, err := cfg.PricingDecimals()
	if err != nil {
		return nil, err
	}
	c := &PricingCalculator{
		base:         p.Base,
		stepIncrease: p.StepIncrease,
		max:          p.Max,
		rampStart:    cfg.Pricing.RampStart,
		stepGuesses:  cfg.Pricing.StepGuesses,
	}
	// capStart is the first count at which the ramp reaches max price.
	steps := c.max.Sub(c.base).Div(c.stepIncrease).Ceil().IntPart()
	c.capStart = c.rampStart + uint64(steps)*c.stepGuesses
	return c, nil
}

// Price returns the phase and unit price at the given cumulative guess
// count.
func (c *PricingCalculator) Price(cumulative uint64) Quote {
	switch {
	case cumulative < c.rampStart:
		return Quote{Phase: types.PhaseBase, UnitPrice: c.base}
	case cumulative >= c.capStart:
		return Quote{Phase: types.PhaseLate2, UnitPrice: c.max}
	default:
		steps := (cumulative - c.rampStart) / c.stepGuesses
		price := c.base.Add(c.stepIncrease.Mul(decimal.NewFromInt(int64(steps))))
		if price.GreaterThanOrEqual(c.max) {
			return Quote{Phase: types.PhaseLate2, UnitPrice: c.max}
		}
		return Quote{Phase: types.PhaseLate1, UnitPrice: price}
	}
}

// CapStart exposes where the LATE_2 pin begins, mainly for tests and
// the runway projection.
func (c *PricingCalculator) CapStart() uint64 { return c.capStart }
