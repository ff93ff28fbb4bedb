package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/irfndi/kmarket-data-go/internal/models"
	"github.com/jackc/pgx/v5"
)

// RealtimePriceRepository handles database operations for latest price
// snapshots. The symbol_id column is unique: a symbol has exactly zero
// or one snapshot row.
type RealtimePriceRepository struct {
	pool DatabasePool
}

// NewRealtimePriceRepository creates a new realtime price repository.
func NewRealtimePriceRepository(pool DatabasePool) *RealtimePriceRepository {
	return &RealtimePriceRepository{pool: pool}
}

// Upsert writes the latest snapshot for a symbol. An existing row is
// merged field by field with updated_at bumped; a missing row is
// inserted. Never produces a second row for the same symbol_id.
func (r *RealtimePriceRepository) Upsert(ctx context.Context, price *models.RealtimePrice) error {
	query := `
		INSERT INTO realtime_prices (symbol_id, current_price, bid_price, ask_price, volume_24h, change_rate)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (symbol_id)
		DO UPDATE SET
			current_price = EXCLUDED.current_price,
			bid_price = EXCLUDED.bid_price,
			ask_price = EXCLUDED.ask_price,
			volume_24h = EXCLUDED.volume_24h,
			change_rate = EXCLUDED.change_rate,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		price.SymbolID, price.CurrentPrice, price.BidPrice, price.AskPrice,
		price.Volume24h, price.ChangeRate).Scan(&price.ID, &price.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert realtime price for symbol %d: %w", price.SymbolID, err)
	}

	return nil
}

// BulkUpsert applies Upsert to each snapshot in order and returns the
// resulting rows. It is not atomic across items: a failure partway
// through leaves prior snapshots committed, and the error reports the
// item that failed.
func (r *RealtimePriceRepository) BulkUpsert(ctx context.Context, prices []models.RealtimePrice) ([]models.RealtimePrice, error) {
	result := make([]models.RealtimePrice, 0, len(prices))
	for i := range prices {
		if err := r.Upsert(ctx, &prices[i]); err != nil {
			return result, err
		}
		result = append(result, prices[i])
	}
	return result, nil
}

// GetBySymbol returns the snapshot for a symbol, or (nil, nil) when none
// exists.
func (r *RealtimePriceRepository) GetBySymbol(ctx context.Context, symbolID int64) (*models.RealtimePrice, error) {
	query := `
		SELECT id, symbol_id, current_price, bid_price, ask_price, volume_24h, change_rate, updated_at
		FROM realtime_prices
		WHERE symbol_id = $1
	`

	var price models.RealtimePrice
	err := r.pool.QueryRow(ctx, query, symbolID).Scan(
		&price.ID,
		&price.SymbolID,
		&price.CurrentPrice,
		&price.BidPrice,
		&price.AskPrice,
		&price.Volume24h,
		&price.ChangeRate,
		&price.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get realtime price for symbol %d: %w", symbolID, err)
	}

	return &price, nil
}
