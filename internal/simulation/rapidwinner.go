package simulation

import (
	"context"
	"fmt"
	"sort"

	"github.com/wordpot/round-engine/internal/types"
)

// RapidWinnerFlag marks a player whose win count over the lookback
// window is a statistical outlier. It is a signal for human review,
// not proof of misconduct.
type RapidWinnerFlag struct {
	PlayerID string   `json:"player_id"`
	Wins     int      `json:"wins"`
	RoundIDs []string `json:"round_ids"`
}

// rapidWinner counts wins per player across the lookback window and
// flags anyone at or above the threshold.
func (r *Runner) rapidWinner(ctx context.Context, opts Options) (types.SimulationStatus, string, any, error) {
	rounds, err := r.store.ListResolvedRounds(opts.LookbackRounds)
	if err != nil {
		return types.SimStatusError, "", nil, err
	}

	wins := make(map[string][]string)
	truncated := false
	for _, round := range rounds {
		if ctx.Err() != nil {
			truncated = true
			break
		}
		if round.WinnerID == "" {
			continue
		}
		wins[round.WinnerID] = append(wins[round.WinnerID], round.ID)
	}

	var flags []RapidWinnerFlag
	for player, roundIDs := range wins {
		if len(roundIDs) >= opts.MinWinsToFlag {
			flags = append(flags, RapidWinnerFlag{
				PlayerID: player,
				Wins:     len(roundIDs),
				RoundIDs: roundIDs,
			})
		}
	}
	sort.Slice(flags, func(i, j int) bool { return flags[i].Wins > flags[j].Wins })

	status := types.SimStatusSuccess
	summary := fmt.Sprintf("no player won %d+ of the last %d rounds", opts.MinWinsToFlag, len(rounds))
	if len(flags) > 0 {
		status = types.SimStatusWarning
		summary = fmt.Sprintf("%d player(s) with %d+ wins in the last %d rounds",
			len(flags), opts.MinWinsToFlag, len(rounds))
	}
	if truncated {
		summary += " (partial: time budget hit)"
	}
	return status, summary, flags, nil
}
