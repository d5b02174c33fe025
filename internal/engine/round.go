// Package engine implements the round fairness and economics core:
// commit-reveal integrity, progressive guess pricing, the guess ledger
// with its locked top-10 ranking, and payout distribution.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wordpot/round-engine/internal/config"
	"github.com/wordpot/round-engine/internal/events"
	"github.com/wordpot/round-engine/internal/ratelimiter"
	"github.com/wordpot/round-engine/internal/settlement"
	"github.com/wordpot/round-engine/internal/store"
	"github.com/wordpot/round-engine/internal/types"
)

// Engine coordinates the round lifecycle. All round mutations pass
// through it; audits and simulations read the store directly and never
// take its locks.
type Engine struct {
	cfg     *config.Config
	store   *store.Store
	sealer  *Sealer
	pricing *PricingCalculator
	emitter events.Emitter
	settler *settlement.Submitter

	guessLimits    *ratelimiter.Pool
	purchaseLimits *ratelimiter.Pool

	// lifecycle serializes round start/resolve; roundMu serializes
	// guess/purchase ingestion so index assignment never races.
	lifecycle sync.Mutex
	roundMu   sync.Mutex

	now func() time.Time
}

type Options struct {
	Store      *store.Store
	Sealer     *Sealer
	Emitter    events.Emitter
	Settlement settlement.Layer
	Now        func() time.Time
}

func New(cfg *config.Config, opts Options) (*Engine, error) {
	pricing, err := NewPricingCalculator(cfg)
	if err != nil {
		return nil, err
	}
	sealer := opts.Sealer
	if sealer == nil {
		key, err := cfg.SealKeyBytes()
		if err != nil {
			return nil, err
		}
		if key == nil {
			sealer, err = NewRandomSealer()
		} else {
			sealer, err = NewSealer(key)
		}
		if err != nil {
			return nil, err
		}
	}
	emitter := opts.Emitter
	if emitter == nil {
		emitter = events.Noop{}
	}
	layer := opts.Settlement
	if layer == nil {
		layer = settlement.LogLayer{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		cfg:     cfg,
		store:   opts.Store,
		sealer:  sealer,
		pricing: pricing,
		emitter: emitter,
		settler: settlement.NewSubmitter(layer,
			cfg.Settlement.InitialBackoff, cfg.Settlement.MaxElapsedTime),
		guessLimits:    ratelimiter.NewPool(cfg.RateLimit.GuessesPerMinute, cfg.RateLimit.Burst, now),
		purchaseLimits: ratelimiter.NewPool(cfg.RateLimit.PurchasesPerMinute, cfg.RateLimit.Burst, now),
		now:            now,
	}, nil
}

// Store exposes the backing store for read-only collaborators.
func (e *Engine) Store() *store.Store { return e.store }

// Pricing exposes the calculator for quoting.
func (e *Engine) Pricing() *PricingCalculator { return e.pricing }

// StartRoundParams configures a new round.
type StartRoundParams struct {
	Answer     string
	SeedPool   decimal.Decimal // opening pool, usually the prior round's seed share
	ReferrerID string
}

// StartRound commits to the answer, seals it, and opens the round.
// Fails with a conflict while another round is active.
func (e *Engine) StartRound(ctx context.Context, params StartRoundParams) (*types.Round, error) {
	answer := NormalizeWord(params.Answer)
	if answer == "" {
		return nil, types.Validationf("answer is empty")
	}
	if params.SeedPool.IsNegative() {
		return nil, types.Validationf("seed pool is negative")
	}

	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	activeID, err := e.store.ActiveRoundID()
	if err != nil {
		return nil, err
	}
	if activeID != "" {
		return nil, types.Conflictf("round %s is still active", activeID)
	}

	commitment, err := GenerateCommitment(answer)
	if err != nil {
		return nil, err
	}
	sealed, err := e.sealer.Seal(answer)
	if err != nil {
		return nil, err
	}

	round := &types.Round{
		ID:           uuid.NewString(),
		CommitHash:   commitment.Hash,
		Salt:         commitment.Salt.String(),
		SealedAnswer: sealed,
		PrizePool:    params.SeedPool,
		SeedForNext:  decimal.Zero,
		Status:       types.RoundStatusActive,
		StartedAt:    e.now().UTC(),
		ReferrerID:   params.ReferrerID,
	}
	if err := e.store.CreateRound(round); err != nil {
		return nil, err
	}

	slog.Info("round started", "round", round.ID, "commit", round.CommitHash)
	if err := e.emitter.Emit(events.EngineEvent{
		Type:    events.TypeRoundStarted,
		RoundID: round.ID,
		Data:    map[string]string{"commit_hash": round.CommitHash},
	}); err != nil {
		slog.Warn("emit round started failed", "round", round.ID, "err", err)
	}
	return round, nil
}

// GuessResult is returned to the submitting player.
type GuessResult struct {
	IsCorrect  bool
	GuessIndex uint64
}

// SubmitGuess ingests one guess. Index assignment is serialized per
// process and transactional in the store, so indices stay contiguous
// under concurrent submissions. A correct guess closes guessing by
// moving the round to RESOLVING.
func (e *Engine) SubmitGuess(ctx context.Context, roundID, playerID, word string) (*GuessResult, error) {
	normalized := NormalizeWord(word)
	if normalized == "" {
		return nil, types.Validationf("guess word is empty")
	}
	if playerID == "" {
		return nil, types.Validationf("player id is required")
	}
	if !e.guessLimits.Allow(playerID) {
		return nil, types.RateLimitedf("player %s exceeded guess rate", playerID)
	}

	e.roundMu.Lock()
	defer e.roundMu.Unlock()

	round, err := e.store.GetRound(roundID)
	if err != nil {
		return nil, err
	}
	if round.Status != types.RoundStatusActive {
		return nil, types.Conflictf("round %s is %s, not accepting guesses", roundID, round.Status)
	}

	answer, err := e.sealer.Unseal(round.SealedAnswer)
	if err != nil {
		return nil, err
	}

	paid, err := e.isPaidGuess(roundID, playerID)
	if err != nil {
		return nil, err
	}

	guess := &types.Guess{
		ID:        uuid.NewString(),
		RoundID:   roundID,
		PlayerID:  playerID,
		Correct:   normalized == answer,
		Paid:      paid,
		CreatedAt: e.now().UTC(),
	}

	var updatedRound *types.Round
	if guess.Correct {
		count, err := e.store.GuessCount(roundID)
		if err != nil {
			return nil, err
		}
		round.WinnerID = playerID
		round.Status = types.RoundStatusResolving
		// the index AppendGuess will assign; committed in the same
		// batch so a resolving round never lacks its winning index
		round.WinningGuessIndex = count + 1
		updatedRound = round
	}
	index, err := e.store.AppendGuess(guess, updatedRound)
	if err != nil {
		return nil, err
	}
	if guess.Correct {
		slog.Info("winning guess", "round", roundID, "player", playerID, "index", index)
	}

	return &GuessResult{IsCorrect: guess.Correct, GuessIndex: index}, nil
}

// isPaidGuess reports whether the player has used up the configured
// free allowance for this round; every guess after that is paid.
func (e *Engine) isPaidGuess(roundID, playerID string) (bool, error) {
	guesses, err := e.store.ListGuesses(roundID)
	if err != nil {
		return false, err
	}
	used := 0
	for _, g := range guesses {
		if g.PlayerID == playerID {
			used++
		}
	}
	return used >= e.cfg.Engine.FreeGuesses, nil
}

// PurchaseResult is returned to the buying player.
type PurchaseResult struct {
	UnitPrice decimal.Decimal
	Phase     types.PricingPhase
	Total     decimal.Decimal
}

// PurchasePack sells quantity guesses at the current phase price. The
// price is re-derived from the authoritative guess count inside the
// ingestion lock, so a stale quote can never be committed.
func (e *Engine) PurchasePack(ctx context.Context, roundID, playerID string, quantity int) (*PurchaseResult, error) {
	if quantity <= 0 {
		return nil, types.Validationf("quantity must be > 0, got %d", quantity)
	}
	if playerID == "" {
		return nil, types.Validationf("player id is required")
	}
	if !e.purchaseLimits.Allow(playerID) {
		return nil, types.RateLimitedf("player %s exceeded purchase rate", playerID)
	}

	e.roundMu.Lock()
	defer e.roundMu.Unlock()

	round, err := e.store.GetRound(roundID)
	if err != nil {
		return nil, err
	}
	if round.Status != types.RoundStatusActive {
		return nil, types.Conflictf("round %s is %s, not selling packs", roundID, round.Status)
	}

	cumulative, err := e.store.GuessCount(roundID)
	if err != nil {
		return nil, err
	}
	quote := e.pricing.Price(cumulative)
	total := quote.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))

	purchase := &types.PackPurchase{
		RoundID:           roundID,
		PlayerID:          playerID,
		Quantity:          quantity,
		UnitPrice:         quote.UnitPrice,
		TotalPrice:        total,
		Phase:             quote.Phase,
		CumulativeGuesses: cumulative,
		CreatedAt:         e.now().UTC(),
	}
	round.PrizePool = round.PrizePool.Add(total)
	if err := e.store.AppendPurchase(purchase, round); err != nil {
		return nil, err
	}

	return &PurchaseResult{UnitPrice: quote.UnitPrice, Phase: quote.Phase, Total: total}, nil
}

// ResolveResult bundles the persisted payout set and the published
// archive.
type ResolveResult struct {
	Payouts []types.Payout
	Archive *types.RoundArchive
}

// ResolveRound closes a round that has a winner: it re-verifies the
// commitment, computes the locked top-10 ranking and the payout set,
// and persists everything atomically with the RESOLVED transition.
// Settlement delivery happens after the commit; a settlement failure
// leaves the round resolved but pending payout.
func (e *Engine) ResolveRound(ctx context.Context, roundID string) (*ResolveResult, error) {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	round, err := e.store.GetRound(roundID)
	if err != nil {
		return nil, err
	}
	switch round.Status {
	case types.RoundStatusResolved:
		return nil, types.Conflictf("round %s is already resolved", roundID)
	case types.RoundStatusResolving:
		// expected path
	default:
		return nil, types.Conflictf("round %s is %s, cannot resolve without a winner", roundID, round.Status)
	}

	answer, err := e.sealer.Unseal(round.SealedAnswer)
	if err != nil {
		return nil, err
	}
	// the round's own payouts must never be trusted past a broken
	// commitment
	if err := VerifyCommitment(answer, round.Salt, round.CommitHash); err != nil {
		return nil, err
	}

	guesses, err := e.store.ListGuesses(roundID)
	if err != nil {
		return nil, err
	}
	ranking := ComputeTop10(guesses, round.WinnerID, e.cfg.Engine.Top10LockThreshold)
	if ranking.Degraded {
		slog.Warn("ranking degraded, legacy guesses without indices", "round", roundID)
	}

	payouts, err := ComputePayouts(round, ranking)
	if err != nil {
		return nil, err
	}
	for _, p := range payouts {
		if p.Role == types.RoleSeed {
			round.SeedForNext = p.Amount
		}
	}

	resolvedAt := e.now().UTC()
	round.Status = types.RoundStatusResolved
	round.ResolvedAt = &resolvedAt
	round.SettlementPending = true

	archive := &types.RoundArchive{
		RoundID:     round.ID,
		Answer:      answer,
		Salt:        round.Salt,
		CommitHash:  round.CommitHash,
		PrizePool:   round.PrizePool,
		SeedForNext: round.SeedForNext,
		TotalGuess:  uint64(len(guesses)),
		WinnerID:    round.WinnerID,
		Top10:       ranking.Entries,
		ResolvedAt:  resolvedAt,
	}

	if err := e.store.ResolveRound(round, payouts, archive); err != nil {
		return nil, err
	}
	slog.Info("round resolved",
		"round", round.ID, "winner", round.WinnerID,
		"pool", round.PrizePool.String(), "payouts", len(payouts))

	if err := e.emitter.Emit(events.EngineEvent{
		Type:    events.TypeRoundResolved,
		RoundID: round.ID,
		Data:    archive,
	}); err != nil {
		slog.Warn("emit round resolved failed", "round", round.ID, "err", err)
	}

	if err := e.settler.Submit(ctx, round.ID, payouts); err != nil {
		// round stays pending-payout; a later SubmitPendingSettlements
		// pass will retry
		slog.Error("settlement submission failed", "round", round.ID, "err", err)
	} else {
		round.SettlementPending = false
		if err := e.store.SaveRound(round); err != nil {
			return nil, err
		}
	}

	return &ResolveResult{Payouts: payouts, Archive: archive}, nil
}

// SubmitPendingSettlements retries settlement delivery for resolved
// rounds still marked pending.
func (e *Engine) SubmitPendingSettlements(ctx context.Context) error {
	rounds, err := e.store.ListResolvedRounds(0)
	if err != nil {
		return err
	}
	for _, r := range rounds {
		if !r.SettlementPending {
			continue
		}
		payouts, err := e.store.GetPayouts(r.ID)
		if err != nil {
			return err
		}
		if err := e.settler.Submit(ctx, r.ID, payouts); err != nil {
			return err
		}
		r.SettlementPending = false
		if err := e.store.SaveRound(&r); err != nil {
			return err
		}
	}
	return nil
}

// ActiveRound returns the currently active round, or nil.
func (e *Engine) ActiveRound() (*types.Round, error) {
	id, err := e.store.ActiveRoundID()
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, nil
	}
	return e.store.GetRound(id)
}
