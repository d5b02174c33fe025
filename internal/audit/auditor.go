// Package audit re-derives commitment and payout correctness for
// historical rounds. It reads persisted state only, takes no engine
// locks, and records findings as append-only alerts for operators.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wordpot/round-engine/internal/config"
	"github.com/wordpot/round-engine/internal/engine"
	"github.com/wordpot/round-engine/internal/events"
	"github.com/wordpot/round-engine/internal/store"
	"github.com/wordpot/round-engine/internal/types"
)

// Status is the aggregate outcome of an audit run.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

// Report aggregates one audit window.
type Report struct {
	RoundsChecked       int                   `json:"rounds_checked"`
	HashMismatches      int                   `json:"hash_mismatches"`
	PayoutMismatches    int                   `json:"payout_mismatches"`
	SuspiciousSequences int                   `json:"suspicious_sequences"`
	Status              Status                `json:"status"`
	Alerts              []types.FairnessAlert `json:"alerts"`
	Truncated           bool                  `json:"truncated,omitempty"`
}

// Auditor runs fairness checks over resolved rounds.
type Auditor struct {
	cfg     *config.Config
	store   *store.Store
	sealer  *engine.Sealer
	emitter events.Emitter
	now     func() time.Time
}

func New(cfg *config.Config, st *store.Store, sealer *engine.Sealer, emitter events.Emitter, now func() time.Time) *Auditor {
	if emitter == nil {
		emitter = events.Noop{}
	}
	if now == nil {
		now = time.Now
	}
	return &Auditor{cfg: cfg, store: st, sealer: sealer, emitter: emitter, now: now}
}

// ValidateRoundCommitment recomputes the commitment hash from the
// sealed answer and salt. A mismatch is returned as an integrity
// violation.
func (a *Auditor) ValidateRoundCommitment(roundID string) error {
	round, err := a.store.GetRound(roundID)
	if err != nil {
		return err
	}
	answer, err := a.sealer.Unseal(round.SealedAnswer)
	if err != nil {
		return err
	}
	return engine.VerifyCommitment(answer, round.Salt, round.CommitHash)
}

// ValidateRoundPayouts recomputes the expected payout set from the
// round's final recorded state and diffs it against the persisted
// rows. Deviations beyond epsilon are integrity violations.
func (a *Auditor) ValidateRoundPayouts(roundID string) error {
	round, err := a.store.GetRound(roundID)
	if err != nil {
		return err
	}
	if round.Status != types.RoundStatusResolved {
		return types.Validationf("round %s is not resolved", roundID)
	}
	persisted, err := a.store.GetPayouts(roundID)
	if err != nil {
		return err
	}

	guesses, err := a.store.ListGuesses(roundID)
	if err != nil {
		return err
	}
	ranking := engine.ComputeTop10(guesses, round.WinnerID, a.cfg.Engine.Top10LockThreshold)
	expected, err := engine.ComputePayouts(round, ranking)
	if err != nil {
		return err
	}

	eps := a.cfg.EpsilonDecimal()

	// the persisted set must sum to the pool
	if diff := engine.PayoutSum(persisted).Sub(round.PrizePool).Abs(); diff.GreaterThan(eps) {
		return types.Integrityf("round %s: payouts sum differs from pool by %s", roundID, diff)
	}

	type key struct {
		role      types.PayoutRole
		recipient string
		rank      int
	}
	want := make(map[key]types.Payout, len(expected))
	for _, p := range expected {
		want[key{p.Role, p.RecipientID, p.Rank}] = p
	}
	if len(persisted) != len(expected) {
		return types.Integrityf("round %s: %d payout rows persisted, expected %d",
			roundID, len(persisted), len(expected))
	}
	for _, p := range persisted {
		if !p.Role.Valid() {
			return types.Integrityf("round %s: unknown payout role %q", roundID, p.Role)
		}
		exp, ok := want[key{p.Role, p.RecipientID, p.Rank}]
		if !ok {
			return types.Integrityf("round %s: unexpected payout row role=%s recipient=%s",
				roundID, p.Role, p.RecipientID)
		}
		if diff := p.Amount.Sub(exp.Amount).Abs(); diff.GreaterThan(eps) {
			return types.Integrityf("round %s: %s payout for %s off by %s",
				roundID, p.Role, p.RecipientID, diff)
		}
	}
	return nil
}

// RunFairnessAudit batches both checks plus a guess-sequence scan over
// the configured window of resolved rounds. The run is bounded by the
// configured time budget and returns partial results on timeout
// instead of hanging its caller.
func (a *Auditor) RunFairnessAudit(ctx context.Context) (*Report, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Audit.TimeBudget)
	defer cancel()

	rounds, err := a.store.ListResolvedRounds(a.cfg.Audit.WindowRounds)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	mediumOrHigh := 0
	for _, r := range rounds {
		if ctx.Err() != nil {
			report.Truncated = true
			break
		}
		report.RoundsChecked++

		if err := a.ValidateRoundCommitment(r.ID); err != nil {
			if !errors.Is(err, types.ErrIntegrityViolation) {
				return nil, err
			}
			report.HashMismatches++
			a.raise(report, types.SeverityCritical, "commitment_mismatch", r.ID, err.Error())
		}

		if err := a.ValidateRoundPayouts(r.ID); err != nil {
			if !errors.Is(err, types.ErrIntegrityViolation) {
				return nil, err
			}
			report.PayoutMismatches++
			mediumOrHigh++
			a.raise(report, types.SeverityHigh, "payout_mismatch", r.ID, err.Error())
		}

		guesses, err := a.store.ListGuesses(r.ID)
		if err != nil {
			return nil, err
		}
		if bad := engine.CheckGuessIndices(guesses); len(bad) > 0 {
			report.SuspiciousSequences++
			mediumOrHigh++
			a.raise(report, types.SeverityMedium, "suspicious_sequence", r.ID,
				fmt.Sprintf("abnormal guess indices: %v", bad))
		}
	}

	switch {
	case report.HashMismatches > 0:
		report.Status = StatusCritical
	case mediumOrHigh > 2:
		report.Status = StatusWarning
	default:
		report.Status = StatusHealthy
	}

	slog.Info("fairness audit finished",
		"rounds", report.RoundsChecked, "status", report.Status,
		"hash_mismatches", report.HashMismatches,
		"payout_mismatches", report.PayoutMismatches,
		"suspicious_sequences", report.SuspiciousSequences,
		"truncated", report.Truncated)
	return report, nil
}

// raise appends and emits one alert. Persistence failures are logged,
// never swallowed into panics; the report still carries the alert.
func (a *Auditor) raise(report *Report, severity types.AlertSeverity, kind, roundID, detail string) {
	alert := types.FairnessAlert{
		ID:        uuid.NewString(),
		Severity:  severity,
		Kind:      kind,
		RoundID:   roundID,
		Detail:    detail,
		CreatedAt: a.now().UTC(),
	}
	report.Alerts = append(report.Alerts, alert)
	if err := a.store.AppendAlert(&alert); err != nil {
		slog.Error("append fairness alert failed", "round", roundID, "err", err)
	}
	if err := a.emitter.Emit(events.EngineEvent{
		Type:    events.TypeFairnessAlert,
		RoundID: roundID,
		Data:    alert,
	}); err != nil {
		slog.Warn("emit fairness alert failed", "round", roundID, "err", err)
	}
}
