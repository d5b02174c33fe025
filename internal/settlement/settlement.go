// Package settlement plans value transfers for resolved rounds. The
// engine computes what to pay; an external layer moves the funds. This
// package only delivers the payout intents and retries transient
// failures with exponential backoff.
package settlement

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/wordpot/round-engine/internal/types"
)

// Layer is the external settlement collaborator.
type Layer interface {
	// Submit hands over the full payout set of one resolved round.
	// Implementations must treat resubmission of the same round id as
	// idempotent.
	Submit(ctx context.Context, roundID string, payouts []types.Payout) error
}

// Submitter wraps a Layer with retry semantics.
type Submitter struct {
	layer          Layer
	initialBackoff time.Duration
	maxElapsed     time.Duration
}

func NewSubmitter(layer Layer, initialBackoff, maxElapsed time.Duration) *Submitter {
	return &Submitter{
		layer:          layer,
		initialBackoff: initialBackoff,
		maxElapsed:     maxElapsed,
	}
}

// Submit retries the settlement call with exponential backoff. On
// exhaustion it returns an ExternalDependencyError; the caller leaves
// the round in its pending-payout state and retries later.
func (s *Submitter) Submit(ctx context.Context, roundID string, payouts []types.Payout) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.initialBackoff
	bo.MaxElapsedTime = s.maxElapsed

	op := func() error {
		return s.layer.Submit(ctx, roundID, payouts)
	}
	notify := func(err error, next time.Duration) {
		slog.Warn("settlement submit failed, retrying",
			"round", roundID, "next", next, "err", err)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(bo, ctx), notify); err != nil {
		return types.Externalf("settlement layer unreachable for round %s: %v", roundID, err)
	}
	return nil
}

// LogLayer records intents to the log only. Used in demo runs and as
// the default until a real settlement integration is configured.
type LogLayer struct{}

func (LogLayer) Submit(_ context.Context, roundID string, payouts []types.Payout) error {
	for _, p := range payouts {
		slog.Info("settlement intent",
			"round", roundID, "role", p.Role, "recipient", p.RecipientID,
			"amount", p.Amount.String(), "rank", p.Rank)
	}
	return nil
}
