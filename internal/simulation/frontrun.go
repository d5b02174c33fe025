package simulation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wordpot/round-engine/internal/types"
)

// frontRunWindow is the pending interval after a winning submission in
// which copycat submissions would indicate visibility into the
// unconfirmed result.
const frontRunWindow = 2 * time.Second

// frontRunFlagScore is the per-round plausibility above which a round
// is surfaced.
const frontRunFlagScore = 0.5

// FrontRunScore is the per-round plausibility that a submission
// exploited visibility into the pending winning guess.
type FrontRunScore struct {
	RoundID       string  `json:"round_id"`
	Score         float64 `json:"score"`
	TrailingCount int     `json:"trailing_count"`
}

// frontRunRisk scores each resolved round by how much submission
// activity crowded into the window right after the winning guess was
// submitted but before resolution confirmed it. Tight trailing bursts
// raise the score; an empty window scores zero.
func (r *Runner) frontRunRisk(ctx context.Context, opts Options) (types.SimulationStatus, string, any, error) {
	rounds, err := r.store.ListResolvedRounds(opts.LookbackRounds)
	if err != nil {
		return types.SimStatusError, "", nil, err
	}

	var scores []FrontRunScore
	truncated := false
	for _, round := range rounds {
		if ctx.Err() != nil {
			truncated = true
			break
		}
		if round.WinningGuessIndex == 0 {
			continue
		}
		guesses, err := r.store.ListGuesses(round.ID)
		if err != nil {
			return types.SimStatusError, "", nil, err
		}

		var winAt time.Time
		for _, g := range guesses {
			if g.Index == round.WinningGuessIndex {
				winAt = g.CreatedAt
				break
			}
		}
		if winAt.IsZero() {
			continue
		}
		confirmAt := winAt.Add(frontRunWindow)
		if round.ResolvedAt != nil && round.ResolvedAt.Before(confirmAt) {
			confirmAt = *round.ResolvedAt
		}

		// submissions by other players in the pending window, weighted
		// by how tightly they trail the winning guess
		score := 0.0
		trailing := 0
		for _, g := range guesses {
			if g.PlayerID == round.WinnerID {
				continue
			}
			if g.CreatedAt.Before(winAt) || g.CreatedAt.After(confirmAt) {
				continue
			}
			trailing++
			delta := g.CreatedAt.Sub(winAt)
			score += 1.0 - float64(delta)/float64(frontRunWindow)
		}
		if trailing == 0 {
			continue
		}
		if score > 1 {
			score = 1
		}
		scores = append(scores, FrontRunScore{
			RoundID:       round.ID,
			Score:         score,
			TrailingCount: trailing,
		})
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })

	flagged := 0
	for _, s := range scores {
		if s.Score >= frontRunFlagScore {
			flagged++
		}
	}
	status := types.SimStatusSuccess
	summary := fmt.Sprintf("no elevated front-run risk across %d rounds", len(rounds))
	if flagged > 0 {
		status = types.SimStatusWarning
		summary = fmt.Sprintf("%d round(s) with elevated front-run risk", flagged)
	}
	if truncated {
		summary += " (partial: time budget hit)"
	}
	return status, summary, scores, nil
}
