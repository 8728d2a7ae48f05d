package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"poolotto/internal/model"
)

// Store provides Postgres persistence for pool audit records.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertPoolResults inserts or updates resolved pool records.
func (s *Store) UpsertPoolResults(ctx context.Context, results []model.PoolResult) error {
	if len(results) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, result := range results {
		batch.Queue(`
			INSERT INTO pool_results (
				pool_id, start_time, end_time, participants, stake_amount, random_value, status, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
			ON CONFLICT (pool_id)
			DO UPDATE SET
				participants = EXCLUDED.participants,
				random_value = EXCLUDED.random_value,
				status = EXCLUDED.status,
				updated_at = now()
		`,
			int64(result.PoolID),
			int64(result.StartTime),
			int64(result.EndTime),
			int64(result.Participants),
			result.StakeAmount,
			result.RandomValue,
			result.Status,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range results {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertPayouts inserts or updates per-rank payout rows.
func (s *Store) UpsertPayouts(ctx context.Context, payouts []model.PayoutRow) error {
	if len(payouts) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, payout := range payouts {
		batch.Queue(`
			INSERT INTO payouts (
				pool_id, rank, staker, amount, created_at, updated_at
			) VALUES ($1, $2, $3, $4, now(), now())
			ON CONFLICT (pool_id, rank)
			DO UPDATE SET
				staker = EXCLUDED.staker,
				amount = EXCLUDED.amount,
				updated_at = now()
		`,
			int64(payout.PoolID),
			int64(payout.Rank),
			payout.Staker,
			payout.Amount,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range payouts {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadOffset returns the last applied journal line for a name.
func (s *Store) LoadOffset(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var line uint64
	row := s.pool.QueryRow(ctx, `SELECT last_applied_line FROM replay_state WHERE name=$1`, name)
	if err := row.Scan(&line); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return line, true, nil
}

// SaveOffset upserts the last applied journal line for a name.
func (s *Store) SaveOffset(ctx context.Context, name string, line uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO replay_state (name, last_applied_line, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_applied_line = EXCLUDED.last_applied_line, updated_at = now()
	`, name, line)
	return err
}
