package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wordpot/round-engine/internal/audit"
	"github.com/wordpot/round-engine/internal/config"
	"github.com/wordpot/round-engine/internal/engine"
	"github.com/wordpot/round-engine/internal/events"
	"github.com/wordpot/round-engine/internal/kvstore"
	"github.com/wordpot/round-engine/internal/logger"
	"github.com/wordpot/round-engine/internal/simulation"
	"github.com/wordpot/round-engine/internal/store"
)

var (
	configPath string
	debug      bool
)

func main() {
	root := &cobra.Command{
		Use:          "engine",
		Short:        "Round fairness & economics engine for the word-pot game",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (defaults apply when empty)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logs")

	root.AddCommand(runCmd(), auditCmd(), simulateCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup() (*config.Config, *store.Store, events.Emitter, error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger.Init(&logger.Options{Level: level, TimeFormat: time.RFC3339})

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = config.Default()
	}

	var kv kvstore.KVStore
	switch cfg.Storage.Type {
	case "badger":
		kv, err = kvstore.NewBadgerStore(cfg.Storage.Directory)
		if err != nil {
			return nil, nil, nil, err
		}
	default:
		kv = kvstore.NewMemoryStore()
	}

	var emitter events.Emitter = events.Noop{}
	if cfg.NATS.URL != "" {
		emitter, err = events.NewNATSEmitter(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			return nil, nil, nil, err
		}
	}
	return cfg, store.New(kv), emitter, nil
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the engine until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, st, emitter, err := setup()
			if err != nil {
				return err
			}
			defer st.Close()
			defer emitter.Close()

			eng, err := engine.New(cfg, engine.Options{Store: st, Emitter: emitter})
			if err != nil {
				return err
			}
			active, err := eng.ActiveRound()
			if err != nil {
				return err
			}
			if active != nil {
				slog.Info("resuming active round", "round", active.ID, "pool", active.PrizePool.String())
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go retryPendingSettlements(ctx, eng)

			slog.Info("engine is running... Press Ctrl+C to stop")
			waitForShutdown()
			slog.Info("engine stopped")
			return nil
		},
	}
	return cmd
}

// retryPendingSettlements periodically resubmits payout intents for
// rounds stuck in the pending-payout state.
func retryPendingSettlements(ctx context.Context, eng *engine.Engine) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := eng.SubmitPendingSettlements(ctx); err != nil {
				slog.Warn("pending settlement retry failed", "err", err)
			}
		}
	}
}

func auditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Run a fairness audit over recent resolved rounds",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, st, emitter, err := setup()
			if err != nil {
				return err
			}
			defer st.Close()
			defer emitter.Close()

			sealer, err := sealerFromConfig(cfg)
			if err != nil {
				return err
			}
			auditor := audit.New(cfg, st, sealer, emitter, nil)
			report, err := auditor.RunFairnessAudit(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("status=%s rounds=%d hash_mismatches=%d payout_mismatches=%d suspicious=%d\n",
				report.Status, report.RoundsChecked, report.HashMismatches,
				report.PayoutMismatches, report.SuspiciousSequences)
			for _, a := range report.Alerts {
				fmt.Printf("  [%s] %s round=%s %s\n", a.Severity, a.Kind, a.RoundID, a.Detail)
			}
			return nil
		},
	}
}

func simulateCmd() *cobra.Command {
	var simType, scenario string
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run an advisory anti-fraud or sustainability simulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, st, emitter, err := setup()
			if err != nil {
				return err
			}
			defer st.Close()
			defer emitter.Close()

			runner := simulation.NewRunner(cfg, st, emitter, nil)
			result, err := runner.Run(cmd.Context(), simType, simulation.Options{Scenario: scenario})
			if err != nil {
				return err
			}
			fmt.Printf("type=%s status=%s duration=%dms\n%s\n",
				result.Type, result.Status, result.DurationMS, result.Summary)
			return nil
		},
	}
	cmd.Flags().StringVar(&simType, "type", simulation.TypeFullSuite,
		"simulation type: wallet_clustering | rapid_winner | front_run_risk | jackpot_runway | full_suite")
	cmd.Flags().StringVar(&scenario, "scenario", "",
		"jackpot runway scenario: optimistic | baseline | pessimistic | stress")
	return cmd
}

func sealerFromConfig(cfg *config.Config) (*engine.Sealer, error) {
	key, err := cfg.SealKeyBytes()
	if err != nil {
		return nil, err
	}
	if key == nil {
		if cfg.Storage.Type == "badger" {
			// a random sealer cannot open answers sealed under the real
			// key; auditing with one would record a false critical
			// commitment_mismatch alert for every persisted round
			return nil, errors.New("engine.seal_key (or seal_key_env) is required to audit persisted rounds")
		}
		return engine.NewRandomSealer()
	}
	return engine.NewSealer(key)
}

func waitForShutdown() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}
