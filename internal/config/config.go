package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Engine     EngineConfig     `yaml:"engine"`
	Pricing    PricingConfig    `yaml:"pricing"`
	Payout     PayoutConfig     `yaml:"payout"`
	Audit      AuditConfig      `yaml:"audit"`
	Simulation SimulationConfig `yaml:"simulation"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Storage    StorageConfig    `yaml:"storage"`
	NATS       NATSConfig       `yaml:"nats"`
	Settlement SettlementConfig `yaml:"settlement"`
}

type EngineConfig struct {
	// SealKey is the hex-encoded 32-byte key answers are sealed under
	// until the round resolves. Can also come from SealKeyEnv.
	SealKey    string `yaml:"seal_key"`
	SealKeyEnv string `yaml:"seal_key_env"`

	// Top10LockThreshold freezes the ranked top-guesser list once the
	// round reaches this many guesses.
	Top10LockThreshold uint64 `yaml:"top10_lock_threshold"`

	// FreeGuesses is how many guesses per player per round are free;
	// the rest are recorded as paid.
	FreeGuesses int `yaml:"free_guesses"`
}

type PricingConfig struct {
	BasePrice    string `yaml:"base_price"`
	RampStart    uint64 `yaml:"ramp_start"`
	StepGuesses  uint64 `yaml:"step_guesses"`
	StepIncrease string `yaml:"step_increase"`
	MaxPrice     string `yaml:"max_price"`
}

type PayoutConfig struct {
	// Epsilon is the rounding tolerance for payout-sum checks, in the
	// round's currency unit.
	Epsilon string `yaml:"epsilon"`
}

type AuditConfig struct {
	WindowRounds int           `yaml:"window_rounds"`
	TimeBudget   time.Duration `yaml:"time_budget"`
}

type SimulationConfig struct {
	TimeBudget     time.Duration `yaml:"time_budget"`
	LookbackRounds int           `yaml:"lookback_rounds"`
	MinWinsToFlag  int           `yaml:"min_wins_to_flag"`
	RunwayRounds   int           `yaml:"runway_rounds"`
}

type RateLimitConfig struct {
	GuessesPerMinute   int `yaml:"guesses_per_minute"`
	PurchasesPerMinute int `yaml:"purchases_per_minute"`
	Burst              int `yaml:"burst"`
}

type StorageConfig struct {
	Type      string `yaml:"type"`      // memory | badger
	Directory string `yaml:"directory"` // for badger
}

type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type SettlementConfig struct {
	MaxElapsedTime time.Duration `yaml:"max_elapsed_time"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
}

// Load reads YAML, applies defaults, and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config with every default applied, suitable for
// tests and the ephemeral run mode.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

func ApplyDefaults(cfg *Config) {
	if cfg.Engine.Top10LockThreshold == 0 {
		cfg.Engine.Top10LockThreshold = 750
	}
	if cfg.Engine.FreeGuesses == 0 {
		cfg.Engine.FreeGuesses = 3
	}
	if cfg.Pricing.BasePrice == "" {
		cfg.Pricing.BasePrice = "0.0003"
	}
	if cfg.Pricing.RampStart == 0 {
		cfg.Pricing.RampStart = 500
	}
	if cfg.Pricing.StepGuesses == 0 {
		cfg.Pricing.StepGuesses = 100
	}
	if cfg.Pricing.StepIncrease == "" {
		cfg.Pricing.StepIncrease = "0.0001"
	}
	if cfg.Pricing.MaxPrice == "" {
		cfg.Pricing.MaxPrice = "0.001"
	}
	if cfg.Payout.Epsilon == "" {
		cfg.Payout.Epsilon = "0.000000001"
	}
	if cfg.Audit.WindowRounds == 0 {
		cfg.Audit.WindowRounds = 50
	}
	if cfg.Audit.TimeBudget == 0 {
		cfg.Audit.TimeBudget = 30 * time.Second
	}
	if cfg.Simulation.TimeBudget == 0 {
		cfg.Simulation.TimeBudget = 30 * time.Second
	}
	if cfg.Simulation.LookbackRounds == 0 {
		cfg.Simulation.LookbackRounds = 20
	}
	if cfg.Simulation.MinWinsToFlag == 0 {
		cfg.Simulation.MinWinsToFlag = 3
	}
	if cfg.Simulation.RunwayRounds == 0 {
		cfg.Simulation.RunwayRounds = 12
	}
	if cfg.RateLimit.GuessesPerMinute == 0 {
		cfg.RateLimit.GuessesPerMinute = 60
	}
	if cfg.RateLimit.PurchasesPerMinute == 0 {
		cfg.RateLimit.PurchasesPerMinute = 10
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 5
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "memory"
	}
	if cfg.Settlement.MaxElapsedTime == 0 {
		cfg.Settlement.MaxElapsedTime = 2 * time.Minute
	}
	if cfg.Settlement.InitialBackoff == 0 {
		cfg.Settlement.InitialBackoff = time.Second
	}
}

func Validate(cfg *Config) error {
	if cfg.Storage.Type != "memory" && cfg.Storage.Type != "badger" {
		return fmt.Errorf("storage.type must be memory or badger, got %q", cfg.Storage.Type)
	}
	if cfg.Storage.Type == "badger" && cfg.Storage.Directory == "" {
		return errors.New("storage.directory is required for badger")
	}
	if _, err := cfg.PricingDecimals(); err != nil {
		return err
	}
	if _, err := decimal.NewFromString(cfg.Payout.Epsilon); err != nil {
		return fmt.Errorf("payout.epsilon: %w", err)
	}
	if _, err := cfg.SealKeyBytes(); err != nil {
		return err
	}
	if cfg.Pricing.RampStart == 0 || cfg.Pricing.StepGuesses == 0 {
		return errors.New("pricing ramp_start and step_guesses must be > 0")
	}
	return nil
}

// SealKeyBytes resolves the answer-sealing key from config or env.
// A missing key is allowed (a random one is generated at startup for
// ephemeral runs); a malformed one is not.
func (c *Config) SealKeyBytes() ([]byte, error) {
	key := c.Engine.SealKey
	if key == "" && c.Engine.SealKeyEnv != "" {
		key = os.Getenv(c.Engine.SealKeyEnv)
	}
	if key == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("engine.seal_key: %w", err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("engine.seal_key must be 32 bytes, got %d", len(b))
	}
	return b, nil
}

// Prices holds the parsed pricing amounts for the calculator.
type Prices struct {
	Base         decimal.Decimal
	StepIncrease decimal.Decimal
	Max          decimal.Decimal
}

func (c *Config) PricingDecimals() (Prices, error) {
	var p Prices
	var err error
	if p.Base, err = decimal.NewFromString(c.Pricing.BasePrice); err != nil {
		return p, fmt.Errorf("pricing.base_price: %w", err)
	}
	if p.StepIncrease, err = decimal.NewFromString(c.Pricing.StepIncrease); err != nil {
		return p, fmt.Errorf("pricing.step_increase: %w", err)
	}
	if p.Max, err = decimal.NewFromString(c.Pricing.MaxPrice); err != nil {
		return p, fmt.Errorf("pricing.max_price: %w", err)
	}
	return p, nil
}

// Epsilon returns the parsed payout tolerance.
func (c *Config) EpsilonDecimal() decimal.Decimal {
	d, err := decimal.NewFromString(c.Payout.Epsilon)
	if err != nil {
		return decimal.New(1, -9)
	}
	return d
}
