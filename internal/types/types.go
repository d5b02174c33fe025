package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoundStatus is the lifecycle state of a round. Exactly one round may
// be Active system-wide; Resolved rounds are immutable except for
// audit annotations.
type RoundStatus string

const (
	RoundStatusNone      RoundStatus = "NONE"
	RoundStatusActive    RoundStatus = "ACTIVE"
	RoundStatusResolving RoundStatus = "RESOLVING"
	RoundStatusResolved  RoundStatus = "RESOLVED"
)

// Round is one game instance with a sealed secret answer and a prize pool.
type Round struct {
	ID                string          `json:"id"`
	CommitHash        string          `json:"commit_hash"`
	Salt              string          `json:"salt"`
	SealedAnswer      string          `json:"sealed_answer"`
	PrizePool         decimal.Decimal `json:"prize_pool"`
	SeedForNext       decimal.Decimal `json:"seed_for_next"`
	Status            RoundStatus     `json:"status"`
	StartedAt         time.Time       `json:"started_at"`
	ResolvedAt        *time.Time      `json:"resolved_at,omitempty"`
	WinnerID          string          `json:"winner_id,omitempty"`
	WinningGuessIndex uint64          `json:"winning_guess_index,omitempty"`
	ReferrerID        string          `json:"referrer_id,omitempty"`

	// SettlementPending marks a resolved round whose payout intents
	// could not be delivered to the settlement layer yet.
	SettlementPending bool `json:"settlement_pending,omitempty"`
}

// Guess is a single submitted word. Index is 1-based and contiguous
// within its round; never mutated after creation.
type Guess struct {
	ID        string    `json:"id"`
	RoundID   string    `json:"round_id"`
	PlayerID  string    `json:"player_id"`
	Index     uint64    `json:"index"`
	Correct   bool      `json:"correct"`
	Paid      bool      `json:"paid"`
	CreatedAt time.Time `json:"created_at"`
}

// PackPurchase records a guess-pack purchase at a fixed pricing phase.
type PackPurchase struct {
	RoundID           string          `json:"round_id"`
	PlayerID          string          `json:"player_id"`
	Quantity          int             `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	TotalPrice        decimal.Decimal `json:"total_price"`
	Phase             PricingPhase    `json:"phase"`
	CumulativeGuesses uint64          `json:"cumulative_guesses"`
	CreatedAt         time.Time       `json:"created_at"`
}

// PricingPhase is one of the three price tiers for purchasing guesses.
type PricingPhase string

const (
	PhaseBase  PricingPhase = "BASE"
	PhaseLate1 PricingPhase = "LATE_1"
	PhaseLate2 PricingPhase = "LATE_2"
)

// PayoutRole is the closed set of payout categories. Keeping this a
// typed enum means a typo cannot silently drop a category from an audit.
type PayoutRole string

const (
	RoleWinner   PayoutRole = "winner"
	RoleTop10    PayoutRole = "top10"
	RoleReferrer PayoutRole = "referrer"
	RoleSeed     PayoutRole = "seed"
	RoleCreator  PayoutRole = "creator"
)

// Valid reports whether r is a known payout role.
func (r PayoutRole) Valid() bool {
	switch r {
	case RoleWinner, RoleTop10, RoleReferrer, RoleSeed, RoleCreator:
		return true
	}
	return false
}

// Payout is one computed share of a resolved round's pool. The full
// set for a round is written atomically with the RESOLVED transition
// and must sum to the pool within Epsilon.
type Payout struct {
	RoundID     string          `json:"round_id"`
	Role        PayoutRole      `json:"role"`
	RecipientID string          `json:"recipient_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Rank        int             `json:"rank,omitempty"`
}

// AlertSeverity grades fairness alerts.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// FairnessAlert is an append-only operator-facing finding. Alerts are
// never overwritten or suppressed.
type FairnessAlert struct {
	ID        string        `json:"id"`
	Severity  AlertSeverity `json:"severity"`
	Kind      string        `json:"kind"`
	RoundID   string        `json:"round_id"`
	Detail    string        `json:"detail"`
	CreatedAt time.Time     `json:"created_at"`
}

// SimulationStatus is the outcome grade of one simulation run.
type SimulationStatus string

const (
	SimStatusSuccess  SimulationStatus = "success"
	SimStatusWarning  SimulationStatus = "warning"
	SimStatusCritical SimulationStatus = "critical"
	SimStatusError    SimulationStatus = "error"
)

// SimulationResult is an append-only advisory record. Results are for
// human review only and never trigger automatic punitive action.
type SimulationResult struct {
	ID         string           `json:"id"`
	Type       string           `json:"type"`
	Status     SimulationStatus `json:"status"`
	Summary    string           `json:"summary"`
	Detail     any              `json:"detail,omitempty"`
	DurationMS int64            `json:"duration_ms"`
	CreatedAt  time.Time        `json:"created_at"`
}

// RankEntry is one row of a round's top-10 ranking.
type RankEntry struct {
	PlayerID        string    `json:"player_id"`
	GuessCount      int       `json:"guess_count"`
	FirstEligibleAt time.Time `json:"first_eligible_at"`
	Rank            int       `json:"rank"`
}

// Ranking is the locked top-10 list for a round. Degraded marks a
// best-effort ranking over legacy rounds that lack per-guess indices;
// it must never be presented as authoritative.
type Ranking struct {
	Entries  []RankEntry `json:"entries"`
	Degraded bool        `json:"degraded"`
}

// RoundArchive is the published reveal of a resolved round: the answer
// and salt that prove the commitment, plus final totals.
type RoundArchive struct {
	RoundID     string          `json:"round_id"`
	Answer      string          `json:"answer"`
	Salt        string          `json:"salt"`
	CommitHash  string          `json:"commit_hash"`
	PrizePool   decimal.Decimal `json:"prize_pool"`
	SeedForNext decimal.Decimal `json:"seed_for_next"`
	TotalGuess  uint64          `json:"total_guesses"`
	WinnerID    string          `json:"winner_id"`
	Top10       []RankEntry     `json:"top10"`
	ResolvedAt  time.Time       `json:"resolved_at"`
}
