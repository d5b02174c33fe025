// Package simulation hosts the advisory anti-fraud and sustainability
// heuristics. Every simulation is read-only and time-boxed; results
// are persisted for human review and never trigger punitive action.
package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wordpot/round-engine/internal/config"
	"github.com/wordpot/round-engine/internal/events"
	"github.com/wordpot/round-engine/internal/store"
	"github.com/wordpot/round-engine/internal/types"
)

const (
	TypeWalletClustering = "wallet_clustering"
	TypeRapidWinner      = "rapid_winner"
	TypeFrontRunRisk     = "front_run_risk"
	TypeJackpotRunway    = "jackpot_runway"
	TypeFullSuite        = "full_suite"
)

// Options tune a single run; zero values fall back to config defaults.
type Options struct {
	LookbackRounds int
	MinWinsToFlag  int
	RunwayRounds   int
	Scenario       string // jackpot runway only
}

// Runner executes simulations against the persisted history.
type Runner struct {
	cfg     *config.Config
	store   *store.Store
	emitter events.Emitter
	now     func() time.Time
}

func NewRunner(cfg *config.Config, st *store.Store, emitter events.Emitter, now func() time.Time) *Runner {
	if emitter == nil {
		emitter = events.Noop{}
	}
	if now == nil {
		now = time.Now
	}
	return &Runner{cfg: cfg, store: st, emitter: emitter, now: now}
}

// Run executes one simulation type, persists the result and returns
// it. Unknown types are validation errors.
func (r *Runner) Run(ctx context.Context, simType string, opts Options) (*types.SimulationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Simulation.TimeBudget)
	defer cancel()

	r.applyDefaults(&opts)

	started := r.now()
	var (
		status  types.SimulationStatus
		summary string
		detail  any
		err     error
	)
	switch simType {
	case TypeWalletClustering:
		status, summary, detail, err = r.walletClustering(ctx, opts)
	case TypeRapidWinner:
		status, summary, detail, err = r.rapidWinner(ctx, opts)
	case TypeFrontRunRisk:
		status, summary, detail, err = r.frontRunRisk(ctx, opts)
	case TypeJackpotRunway:
		status, summary, detail, err = r.jackpotRunway(ctx, opts)
	case TypeFullSuite:
		return r.fullSuite(ctx, opts)
	default:
		return nil, types.Validationf("unknown simulation type %q", simType)
	}
	if err != nil {
		status = types.SimStatusError
		summary = err.Error()
	}

	result := &types.SimulationResult{
		ID:         uuid.NewString(),
		Type:       simType,
		Status:     status,
		Summary:    summary,
		Detail:     detail,
		DurationMS: r.now().Sub(started).Milliseconds(),
		CreatedAt:  started.UTC(),
	}
	if serr := r.store.AppendSimulationResult(result); serr != nil {
		slog.Error("persist simulation result failed", "type", simType, "err", serr)
	}
	if eerr := r.emitter.Emit(events.EngineEvent{
		Type: events.TypeSimulationResult,
		Data: result,
	}); eerr != nil {
		slog.Warn("emit simulation result failed", "type", simType, "err", eerr)
	}
	return result, err
}

func (r *Runner) applyDefaults(opts *Options) {
	if opts.LookbackRounds == 0 {
		opts.LookbackRounds = r.cfg.Simulation.LookbackRounds
	}
	if opts.MinWinsToFlag == 0 {
		opts.MinWinsToFlag = r.cfg.Simulation.MinWinsToFlag
	}
	if opts.RunwayRounds == 0 {
		opts.RunwayRounds = r.cfg.Simulation.RunwayRounds
	}
	if opts.Scenario == "" {
		opts.Scenario = ScenarioBaseline
	}
}

// fullSuite runs all four simulations and aggregates their statuses:
// any critical wins, then error, then warning.
func (r *Runner) fullSuite(ctx context.Context, opts Options) (*types.SimulationResult, error) {
	started := r.now()
	suiteTypes := []string{TypeWalletClustering, TypeRapidWinner, TypeFrontRunRisk, TypeJackpotRunway}

	results := make([]*types.SimulationResult, 0, len(suiteTypes))
	agg := types.SimStatusSuccess
	for _, st := range suiteTypes {
		res, err := r.Run(ctx, st, opts)
		if err != nil && res == nil {
			return nil, err
		}
		results = append(results, res)
		agg = worseStatus(agg, res.Status)
	}

	summary := fmt.Sprintf("suite: %d simulations, aggregate %s", len(results), agg)
	result := &types.SimulationResult{
		ID:         uuid.NewString(),
		Type:       TypeFullSuite,
		Status:     agg,
		Summary:    summary,
		Detail:     results,
		DurationMS: r.now().Sub(started).Milliseconds(),
		CreatedAt:  started.UTC(),
	}
	if err := r.store.AppendSimulationResult(result); err != nil {
		slog.Error("persist suite result failed", "err", err)
	}
	return result, nil
}

var statusRank = map[types.SimulationStatus]int{
	types.SimStatusSuccess:  0,
	types.SimStatusWarning:  1,
	types.SimStatusError:    2,
	types.SimStatusCritical: 3,
}

func worseStatus(a, b types.SimulationStatus) types.SimulationStatus {
	if statusRank[b] > statusRank[a] {
		return b
	}
	return a
}
