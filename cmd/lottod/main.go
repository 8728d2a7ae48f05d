package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"poolotto/internal/config"
	"poolotto/internal/contract"
	"poolotto/internal/coordinator"
	"poolotto/internal/replay"
	"poolotto/internal/storage"
	"poolotto/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "lottod",
		Short:        "Staking-pool lottery contract runner",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Replay an inbound message journal through the contract",
		RunE:  runReplay,
	}

	runCmd.Flags().String("journal", "", "inbound message journal (JSONL)")
	runCmd.Flags().String("out", "./data/outbound.jsonl", "outbound message journal path")
	runCmd.Flags().String("snapshot", "./data/state.json", "contract state snapshot path")
	runCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	runCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN for audit records")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().String("owner-pubkey", "", "owner public key (hex, fresh deployments)")
	runCmd.Flags().String("owner-address", "", "owner treasury address (fresh deployments)")
	runCmd.Flags().String("contract-address", "", "contract's own address (fresh deployments)")
	runCmd.Flags().String("coordinator", "", "randomness coordinator address (fresh deployments)")
	runCmd.Flags().Uint32("fee-bps", 0, "protocol fee in basis points (fresh deployments)")
	runCmd.Flags().Uint32("initial-seqno", 0, "initial sequence number (fresh deployments)")
	runCmd.Flags().Bool("with-coordinator", false, "answer subscriptions with a simulated coordinator")
	runCmd.Flags().String("coordinator-secret", "12345", "simulated coordinator secret (decimal)")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)
	root.AddCommand(newKeygenCmd())
	root.AddCommand(newSignCmd())
	root.AddCommand(newQueryCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Journal == "" {
		return fmt.Errorf("journal path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state, ok, err := replay.LoadSnapshot(cfg.Snapshot)
	if err != nil {
		return err
	}
	if !ok {
		state, err = deployState(cfg)
		if err != nil {
			return err
		}
		logger.Info("fresh deployment",
			zap.String("owner_pubkey", cfg.OwnerPubkey),
			zap.String("coordinator", cfg.Coordinator),
			zap.Uint32("initial_seqno", cfg.InitialSeqno),
		)
	}

	instance := contract.New(state, logger)
	sink := storage.NewJsonlSink(cfg.Out)

	var store replay.AuditStore
	if cfg.PgDSN != "" {
		pg, err := postgres.NewStore(ctx, cfg.PgDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pg.Close()
		store = pg
	}

	var coord *coordinator.Unit
	if cfg.WithCoordinator {
		secret, err := uint256.FromDecimal(cfg.CoordinatorSecret)
		if err != nil {
			return fmt.Errorf("parse coordinator secret: %w", err)
		}
		coord = coordinator.NewUnit(state.Coordinator, state.OwnerAddress, secret, logger)
	}

	runner := replay.NewRunner(replay.RunConfig{
		JournalPath:       cfg.Journal,
		SnapshotPath:      cfg.Snapshot,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
	}, instance, sink, store, coord, logger)

	logger.Info("replay start",
		zap.String("journal", cfg.Journal),
		zap.String("out", cfg.Out),
		zap.String("snapshot", cfg.Snapshot),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.Bool("with_coordinator", cfg.WithCoordinator),
	)

	return runner.Run(ctx)
}

func deployState(cfg config.Config) (*contract.State, error) {
	if cfg.OwnerPubkey == "" {
		return nil, fmt.Errorf("owner-pubkey is required for a fresh deployment")
	}
	pubKey, err := hexutil.Decode(cfg.OwnerPubkey)
	if err != nil {
		return nil, fmt.Errorf("parse owner pubkey: %w", err)
	}
	return contract.NewState(contract.DeployConfig{
		Seqno:        cfg.InitialSeqno,
		OwnerPubKey:  pubKey,
		OwnerAddress: common.HexToAddress(cfg.OwnerAddress),
		Self:         common.HexToAddress(cfg.ContractAddress),
		Coordinator:  common.HexToAddress(cfg.Coordinator),
		FeeBps:       cfg.FeeBps,
	})
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
