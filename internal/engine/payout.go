package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wordpot/round-engine/internal/types"
)

// Share constants. With a referrer on record the pool splits
// 0.80 / 0.10 / 0.10 (winner / top10 / referrer). Without one the
// referral share is reassigned, never dropped: the top10 pool grows to
// 0.175 of the pool and seed receives 0.025.
var (
	winnerShare     = decimal.RequireFromString("0.80")
	top10Share      = decimal.RequireFromString("0.10")
	referralShare   = decimal.RequireFromString("0.10")
	top10ShareNoRef = decimal.RequireFromString("0.175")
	seedShareNoRef  = decimal.RequireFromString("0.025")
)

// ComputePayouts splits a resolved pool into the payout set.
//
// The top10 pool is distributed pro-rata by eligible guess count over
// the present entries; fewer than ten entries therefore redistribute
// the unused portion automatically, and zero entries route the whole
// top10 pool to seed. The final seed row absorbs any rounding
// residual, so the set always sums to exactly the pool.
func ComputePayouts(round *types.Round, ranking types.Ranking) ([]types.Payout, error) {
	pool := round.PrizePool
	if pool.IsNegative() {
		return nil, types.Validationf("prize pool is negative")
	}
	if round.WinnerID == "" {
		return nil, types.Validationf("round %s has no winner", round.ID)
	}

	hasReferrer := round.ReferrerID != ""

	top10Pool := pool.Mul(top10Share)
	if !hasReferrer {
		top10Pool = pool.Mul(top10ShareNoRef)
	}

	payouts := []types.Payout{{
		RoundID:     round.ID,
		Role:        types.RoleWinner,
		RecipientID: round.WinnerID,
		Amount:      pool.Mul(winnerShare),
	}}

	entries := ranking.Entries
	if len(entries) > 0 {
		totalCount := 0
		for _, e := range entries {
			totalCount += e.GuessCount
		}
		distributed := decimal.Zero
		for i, e := range entries {
			var amount decimal.Decimal
			if i == len(entries)-1 {
				// last rank takes the remainder so the pool splits exactly
				amount = top10Pool.Sub(distributed)
			} else {
				weight := decimal.NewFromInt(int64(e.GuessCount)).
					DivRound(decimal.NewFromInt(int64(totalCount)), 18)
				amount = top10Pool.Mul(weight).Round(18)
				distributed = distributed.Add(amount)
			}
			payouts = append(payouts, types.Payout{
				RoundID:     round.ID,
				Role:        types.RoleTop10,
				RecipientID: e.PlayerID,
				Amount:      amount,
				Rank:        e.Rank,
			})
		}
	}

	if hasReferrer {
		payouts = append(payouts, types.Payout{
			RoundID:     round.ID,
			Role:        types.RoleReferrer,
			RecipientID: round.ReferrerID,
			Amount:      pool.Mul(referralShare),
		})
	}
	// seed takes whatever is left: its fallback share, the whole top10
	// pool when nobody qualified, and any rounding residual.
	seed := pool.Sub(PayoutSum(payouts))
	if seed.IsNegative() {
		return nil, types.Integrityf("round %s: computed shares exceed pool by %s", round.ID, seed.Neg())
	}
	payouts = append(payouts, types.Payout{
		RoundID: round.ID,
		Role:    types.RoleSeed,
		Amount:  seed,
	})

	return payouts, nil
}

// PayoutSum adds up a payout set.
func PayoutSum(payouts []types.Payout) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range payouts {
		sum = sum.Add(p.Amount)
	}
	return sum
}

func unixNanoTime(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}
