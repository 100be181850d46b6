// Package postgres mirrors reconciliation output into Postgres for ad-hoc
// querying. The files on disk stay authoritative; rows here are a copy.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"oracleScope/internal/model"
	"oracleScope/internal/registry"
)

// Store provides Postgres persistence for reconciliation totals.
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

// UpsertEpochTotals inserts or updates one row per epoch per operator.
func (s *Store) UpsertEpochTotals(ctx context.Context, feedPath string, operators registry.Operators, totals model.Totals) error {
	if len(totals.Totals) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	queued := 0
	for epochIndex, epoch := range totals.Totals {
		epochRange := totals.Ranges[epochIndex]
		for _, name := range operators.Names() {
			batch.Queue(`
				INSERT INTO oracle_epoch_totals (
					feed_path, epoch_index, operator, range_from, range_to,
					deviation_mean, deviation_max, fees_usd, payments_usd, profits_usd,
					observations, transmissions, missed, max_consecutive_missed,
					estimated_total_usd, diff_from_calc_usd, created_at, updated_at
				) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,now(),now())
				ON CONFLICT (feed_path, epoch_index, operator)
				DO UPDATE SET
					range_from = EXCLUDED.range_from,
					range_to = EXCLUDED.range_to,
					deviation_mean = EXCLUDED.deviation_mean,
					deviation_max = EXCLUDED.deviation_max,
					fees_usd = EXCLUDED.fees_usd,
					payments_usd = EXCLUDED.payments_usd,
					profits_usd = EXCLUDED.profits_usd,
					observations = EXCLUDED.observations,
					transmissions = EXCLUDED.transmissions,
					missed = EXCLUDED.missed,
					max_consecutive_missed = EXCLUDED.max_consecutive_missed,
					estimated_total_usd = EXCLUDED.estimated_total_usd,
					diff_from_calc_usd = EXCLUDED.diff_from_calc_usd,
					updated_at = now()
			`,
				feedPath,
				epochIndex,
				name,
				int64(epochRange.From),
				int64(epochRange.To),
				epoch.Deviations.Get(name),
				epoch.MaxDeviation.Get(name),
				epoch.Fees.Get(name),
				epoch.Payments.Get(name),
				epoch.Profits.Get(name),
				epoch.ObservationsCounts.Get(name).IntPart(),
				epoch.TransmissionsCounts.Get(name).IntPart(),
				epoch.MissedObservations.Get(name).IntPart(),
				epoch.MaxConsecutiveMissedObservations.Get(name).IntPart(),
				epoch.EstimatedTotalEarnings.Get(name),
				epoch.DiffFromCalc.Get(name),
			)
			queued++
		}
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < queued; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns the last processed block for a feed stage.
func (s *Store) LoadState(ctx context.Context, feedPath, stage string) (uint64, bool, error) {
	if feedPath == "" || stage == "" {
		return 0, false, fmt.Errorf("feed path and stage required")
	}
	var block uint64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_block FROM pipeline_state WHERE feed_path=$1 AND stage=$2`, feedPath, stage)
	if err := row.Scan(&block); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return block, true, nil
}

// SaveState upserts the last processed block for a feed stage.
func (s *Store) SaveState(ctx context.Context, feedPath, stage string, block uint64) error {
	if feedPath == "" || stage == "" {
		return fmt.Errorf("feed path and stage required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pipeline_state (feed_path, stage, last_processed_block, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (feed_path, stage) DO UPDATE
		SET last_processed_block = EXCLUDED.last_processed_block, updated_at = now()
	`, feedPath, stage, block)
	return err
}
