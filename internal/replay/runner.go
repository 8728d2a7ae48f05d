package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"poolotto/internal/contract"
	"poolotto/internal/coordinator"
	"poolotto/internal/model"
	"poolotto/internal/storage"
	"poolotto/internal/wire"
)

// AuditStore persists resolved-pool audit rows and the replay offset. The
// offset doubles as a resume point when no file checkpoint is available.
type AuditStore interface {
	UpsertPoolResults(ctx context.Context, results []model.PoolResult) error
	UpsertPayouts(ctx context.Context, payouts []model.PayoutRow) error
	LoadOffset(ctx context.Context, name string) (uint64, bool, error)
	SaveOffset(ctx context.Context, name string, line uint64) error
}

// RunConfig holds runtime settings for the replay engine.
type RunConfig struct {
	JournalPath       string
	SnapshotPath      string
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	StateName         string
}

// Runner feeds inbound journal records through the contract, one at a time,
// run-to-completion. Outbound messages go to the sink; state snapshots and a
// line checkpoint make replays resumable. When a coordinator unit is
// attached, subscription requests loop back and the resulting callback is
// delivered as its own invocation immediately after the record that caused
// it.
type Runner struct {
	cfg        RunConfig
	contract   *contract.Contract
	sink       storage.Sink
	store      AuditStore
	coord      *coordinator.Unit
	logger     *zap.Logger
	checkpoint *CheckpointStore
	seq        uint64
}

// NewRunner builds a Runner with its dependencies. store and coord may be nil.
func NewRunner(cfg RunConfig, c *contract.Contract, sink storage.Sink, store AuditStore, coord *coordinator.Unit, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.StateName == "" {
		cfg.StateName = "lottod"
	}
	return &Runner{
		cfg:        cfg,
		contract:   c,
		sink:       sink,
		store:      store,
		coord:      coord,
		logger:     logger,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
	}
}

// Run executes the replay loop over the inbound journal.
func (r *Runner) Run(ctx context.Context) error {
	if r.contract == nil {
		return fmt.Errorf("contract is nil")
	}
	if r.sink == nil {
		return fmt.Errorf("sink is nil")
	}

	var skip uint64
	resumed := false
	if r.checkpoint != nil {
		cp, ok, err := r.checkpoint.Load()
		if err != nil {
			return err
		}
		if ok {
			skip = cp.LastAppliedLine
			r.seq = cp.OutboundSeq
			resumed = true
			r.logger.Info("resume from checkpoint", zap.Uint64("last_applied", skip))
		}
	}
	if !resumed && r.store != nil {
		line, ok, err := r.store.LoadOffset(ctx, r.cfg.StateName)
		if err != nil {
			return fmt.Errorf("load offset: %w", err)
		}
		if ok {
			skip = line
			r.logger.Info("resume from stored offset", zap.Uint64("last_applied", skip))
		}
	}

	file, err := os.Open(r.cfg.JournalPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var line uint64
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line++
		if line <= skip {
			continue
		}

		var record model.InboundRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			return fmt.Errorf("parse journal line %d: %w", line, err)
		}

		outbound, err := r.apply(record)
		if err != nil {
			return fmt.Errorf("apply journal line %d: %w", line, err)
		}

		if err := r.putOutboundWithRetry(ctx, outbound); err != nil {
			return fmt.Errorf("store outbound: %w", err)
		}

		if r.cfg.SnapshotPath != "" {
			if err := SaveSnapshot(r.cfg.SnapshotPath, r.contract.State()); err != nil {
				return err
			}
		}
		if r.checkpoint != nil {
			if err := r.checkpoint.Save(Checkpoint{LastAppliedLine: line, OutboundSeq: r.seq}); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read journal: %w", err)
	}

	if err := r.persistResults(ctx, line); err != nil {
		return err
	}

	r.logger.Info("replay complete", zap.Uint64("lines", line), zap.Uint64("outbound", r.seq))
	return nil
}

// apply runs one inbound record through the contract and converts the emitted
// messages. A rejected owner command is an expected outcome, not a replay
// failure.
func (r *Runner) apply(record model.InboundRecord) ([]model.OutboundRecord, error) {
	var outs []contract.Outbound

	switch record.Kind {
	case model.KindExternal:
		accepted, err := r.contract.HandleExternal(record.Time, record.Envelope)
		if err != nil {
			var violation *contract.Violation
			var authErr *contract.AuthError
			if errors.As(err, &violation) || errors.As(err, &authErr) {
				r.logger.Warn("external command rejected", zap.Uint32("time", record.Time), zap.Error(err))
				return nil, nil
			}
			return nil, err
		}
		outs = accepted
	case model.KindInternal:
		outs = r.contract.HandleInternal(record.Time, contract.Internal{
			Sender: record.Sender,
			Value:  record.Value,
			Body:   record.Body,
		})
	default:
		return nil, fmt.Errorf("unknown record kind %q", record.Kind)
	}

	records := r.convert(record.Time, outs)

	// Loopback coordinator: answer a subscription in the same replay step,
	// delivered as a separate contract invocation.
	if r.coord != nil {
		for _, out := range outs {
			if out.Op != wire.OpSubscribeRandom || out.To != r.coord.Address() {
				continue
			}
			if err := r.coord.HandleSubscribe(out.Body); err != nil {
				return nil, err
			}
			consumer, body, err := r.coord.Fulfill()
			if err != nil {
				return nil, err
			}
			if consumer != r.contract.State().Self {
				continue
			}
			callbackOuts := r.contract.HandleInternal(record.Time, contract.Internal{
				Sender: r.coord.Address(),
				Value:  uint256.NewInt(0),
				Body:   body,
			})
			records = append(records, r.convert(record.Time, callbackOuts)...)
		}
	}

	return records, nil
}

func (r *Runner) convert(now uint32, outs []contract.Outbound) []model.OutboundRecord {
	records := make([]model.OutboundRecord, 0, len(outs))
	for _, out := range outs {
		r.seq++
		value := out.Value
		if value == nil {
			value = uint256.NewInt(0)
		}
		records = append(records, model.OutboundRecord{
			Seq:     r.seq,
			Time:    now,
			To:      out.To,
			Value:   value,
			Op:      out.Op,
			Body:    out.Body,
			Comment: out.Comment,
		})
	}
	return records
}

func (r *Runner) putOutboundWithRetry(ctx context.Context, records []model.OutboundRecord) error {
	if len(records) == 0 {
		return nil
	}
	return withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		err := r.sink.PutOutboundBatch(records)
		if err != nil {
			r.logger.Warn("outbound write failed", zap.Error(err), zap.Int("count", len(records)))
		}
		return err
	})
}

// persistResults writes audit rows for every resolved pool to Postgres.
func (r *Runner) persistResults(ctx context.Context, line uint64) error {
	if r.store == nil {
		return nil
	}

	var results []model.PoolResult
	var payouts []model.PayoutRow
	for _, view := range r.contract.GetPools() {
		if view.Status != contract.StatusClosed.String() {
			continue
		}
		pool, err := r.contract.GetPool(view.PoolID)
		if err != nil {
			return err
		}
		randomValue := ""
		if p, ok := r.contract.State().Pools[view.PoolID]; ok && p.RandomValue != nil {
			randomValue = p.RandomValue.Hex()
		}
		results = append(results, model.PoolResult{
			PoolID:       pool.PoolID,
			StartTime:    pool.StartTime,
			EndTime:      pool.EndTime,
			Participants: pool.CurrentCount,
			StakeAmount:  pool.StakeAmount.Dec(),
			RandomValue:  randomValue,
			Status:       pool.Status,
		})
		for rank, entryIndex := range pool.Ranking {
			payouts = append(payouts, model.PayoutRow{
				PoolID: pool.PoolID,
				Rank:   uint32(rank + 1),
				Staker: pool.Participants[entryIndex].Staker.Hex(),
				Amount: pool.Rewards[rank].Dec(),
			})
		}
	}

	if err := r.store.UpsertPoolResults(ctx, results); err != nil {
		return fmt.Errorf("upsert pool results: %w", err)
	}
	if err := r.store.UpsertPayouts(ctx, payouts); err != nil {
		return fmt.Errorf("upsert payouts: %w", err)
	}
	if err := r.store.SaveOffset(ctx, r.cfg.StateName, line); err != nil {
		return fmt.Errorf("save offset: %w", err)
	}
	return nil
}
