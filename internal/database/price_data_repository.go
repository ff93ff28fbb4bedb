package database

import (
	"context"
	"fmt"
	"time"

	"github.com/irfndi/kmarket-data-go/internal/models"
	"github.com/sirupsen/logrus"
)

// PriceDataRepository handles database operations for OHLCV bars.
type PriceDataRepository struct {
	pool DatabasePool
}

// NewPriceDataRepository creates a new price data repository.
func NewPriceDataRepository(pool DatabasePool) *PriceDataRepository {
	return &PriceDataRepository{pool: pool}
}

// Exists reports whether a bar already exists for
// (symbol_id, timestamp, timeframe).
func (r *PriceDataRepository) Exists(ctx context.Context, symbolID int64, timestamp time.Time, timeframe string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM price_data
			WHERE symbol_id = $1 AND timestamp = $2 AND timeframe = $3
		)
	`

	var exists bool
	err := r.pool.QueryRow(ctx, query, symbolID, timestamp, timeframe).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check price data existence: %w", err)
	}

	return exists, nil
}

// InsertBatch writes one symbol's staged bars inside a single
// transaction, inserting only bars whose (symbol_id, timestamp,
// timeframe) is not yet present. The unique constraint on that triple
// acts as a backstop: a conflicting insert affects zero rows and counts
// as skipped. Any storage error rolls back the whole batch and the
// caller reports the symbol as fully skipped.
func (r *PriceDataRepository) InsertBatch(ctx context.Context, bars []models.PriceData) (created, skipped int, err error) {
	if len(bars) == 0 {
		return 0, 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin price data transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				logrus.WithError(rbErr).Warn("Failed to roll back price data transaction")
			}
		}
	}()

	existsQuery := `
		SELECT EXISTS (
			SELECT 1 FROM price_data
			WHERE symbol_id = $1 AND timestamp = $2 AND timeframe = $3
		)
	`
	insertQuery := `
		INSERT INTO price_data (symbol_id, timestamp, open_price, high_price, low_price,
			close_price, volume, quote_volume, timeframe)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (symbol_id, timestamp, timeframe) DO NOTHING
	`

	for _, bar := range bars {
		var exists bool
		if err = tx.QueryRow(ctx, existsQuery, bar.SymbolID, bar.Timestamp, bar.Timeframe).Scan(&exists); err != nil {
			err = fmt.Errorf("failed to check price data existence: %w", err)
			return 0, len(bars), err
		}
		if exists {
			skipped++
			continue
		}

		tag, execErr := tx.Exec(ctx, insertQuery,
			bar.SymbolID, bar.Timestamp, bar.OpenPrice, bar.HighPrice, bar.LowPrice,
			bar.ClosePrice, bar.Volume, bar.QuoteVolume, bar.Timeframe)
		if execErr != nil {
			err = fmt.Errorf("failed to insert price data: %w", execErr)
			return 0, len(bars), err
		}
		if tag.RowsAffected() == 0 {
			skipped++
			continue
		}
		created++
	}

	if err = tx.Commit(ctx); err != nil {
		err = fmt.Errorf("failed to commit price data transaction: %w", err)
		return 0, len(bars), err
	}

	return created, skipped, nil
}
