package simulation

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/wordpot/round-engine/internal/types"
)

const (
	ScenarioOptimistic  = "optimistic"
	ScenarioBaseline    = "baseline"
	ScenarioPessimistic = "pessimistic"
	ScenarioStress      = "stress"
)

// stressFactor additionally discounts the pessimistic growth curve
// under the stress scenario.
var stressFactor = decimal.RequireFromString("0.5")

// RunwayProjection is the deterministic pool trajectory under one
// scenario.
type RunwayProjection struct {
	Scenario      string   `json:"scenario"`
	PoolPerGuess  string   `json:"pool_per_guess"`
	GuessesPerRnd uint64   `json:"guesses_per_round"`
	Pools         []string `json:"pools"`
	Declining     bool     `json:"declining"`
}

// jackpotRunway projects the pool forward using historical percentile
// growth curves: pool-per-guess p25/median/p75 over the lookback
// window, times the median guess volume, seeded each round by the
// previous round's seed share. Percentile projection, not random
// simulation: the same history always yields the same trajectory.
func (r *Runner) jackpotRunway(ctx context.Context, opts Options) (types.SimulationStatus, string, any, error) {
	switch opts.Scenario {
	case ScenarioOptimistic, ScenarioBaseline, ScenarioPessimistic, ScenarioStress:
	default:
		return types.SimStatusError, "", nil, types.Validationf("unknown runway scenario %q", opts.Scenario)
	}

	rounds, err := r.store.ListResolvedRounds(opts.LookbackRounds)
	if err != nil {
		return types.SimStatusError, "", nil, err
	}

	var perGuess []decimal.Decimal
	var volumes []uint64
	var lastSeed decimal.Decimal
	for i, round := range rounds {
		if ctx.Err() != nil {
			break
		}
		count, err := r.store.GuessCount(round.ID)
		if err != nil {
			return types.SimStatusError, "", nil, err
		}
		if count == 0 {
			continue
		}
		perGuess = append(perGuess, round.PrizePool.DivRound(decimal.NewFromInt(int64(count)), 18))
		volumes = append(volumes, count)
		if i == 0 {
			lastSeed = round.SeedForNext
		}
	}
	if len(perGuess) == 0 {
		return types.SimStatusWarning, "no historical rounds with guesses to project from", nil, nil
	}

	growth := percentileFor(opts.Scenario, perGuess)
	volume := medianUint(volumes)

	pools := make([]string, 0, opts.RunwayRounds)
	pool := lastSeed
	prev := decimal.Zero
	declining := false
	for i := 0; i < opts.RunwayRounds; i++ {
		pool = pool.Add(growth.Mul(decimal.NewFromInt(int64(volume))))
		pools = append(pools, pool.String())
		if i > 0 && pool.LessThan(prev) {
			declining = true
		}
		// next round opens with this round's seed share only
		prev = pool
		pool = pool.Mul(seedCarryShare)
	}

	projection := RunwayProjection{
		Scenario:      opts.Scenario,
		PoolPerGuess:  growth.String(),
		GuessesPerRnd: volume,
		Pools:         pools,
		Declining:     declining,
	}

	status := types.SimStatusSuccess
	summary := fmt.Sprintf("%s runway over %d rounds is stable", opts.Scenario, opts.RunwayRounds)
	if declining {
		status = types.SimStatusWarning
		summary = fmt.Sprintf("%s runway projects a declining pool within %d rounds", opts.Scenario, opts.RunwayRounds)
	}
	return status, summary, projection, nil
}

// seedCarryShare mirrors the distributor's no-referrer seed share: the
// portion of a resolved pool that opens the next round.
var seedCarryShare = decimal.RequireFromString("0.025")

// percentileFor picks the historical pool-per-guess percentile backing
// each scenario.
func percentileFor(scenario string, values []decimal.Decimal) decimal.Decimal {
	sorted := make([]decimal.Decimal, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	switch scenario {
	case ScenarioOptimistic:
		return percentile(sorted, 75)
	case ScenarioPessimistic:
		return percentile(sorted, 25)
	case ScenarioStress:
		return percentile(sorted, 25).Mul(stressFactor)
	default:
		return percentile(sorted, 50)
	}
}

// percentile uses nearest-rank on an ascending slice.
func percentile(sorted []decimal.Decimal, p int) decimal.Decimal {
	if len(sorted) == 0 {
		return decimal.Zero
	}
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}

func medianUint(values []uint64) uint64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]uint64, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted[len(sorted)/2]
}
