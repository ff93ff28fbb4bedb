package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/irfndi/kmarket-data-go/internal/models"
	"github.com/jackc/pgx/v5"
)

// SymbolRepository handles database operations for tradable instruments.
type SymbolRepository struct {
	pool DatabasePool
}

// NewSymbolRepository creates a new symbol repository.
func NewSymbolRepository(pool DatabasePool) *SymbolRepository {
	return &SymbolRepository{pool: pool}
}

const symbolColumns = `id, exchange_id, symbol, base_asset, quote_asset, symbol_type, market,
		is_active, min_order_size, max_order_size, price_precision, quantity_precision,
		created_at, updated_at`

// GetByExchangeAndCode looks up a symbol by its natural key
// (exchange_id, symbol). Returns (nil, nil) when no row exists.
func (r *SymbolRepository) GetByExchangeAndCode(ctx context.Context, exchangeID int64, code string) (*models.Symbol, error) {
	query := `
		SELECT ` + symbolColumns + `
		FROM symbols
		WHERE exchange_id = $1 AND symbol = $2
	`

	var symbol models.Symbol
	err := r.pool.QueryRow(ctx, query, exchangeID, code).Scan(
		&symbol.ID,
		&symbol.ExchangeID,
		&symbol.Symbol,
		&symbol.BaseAsset,
		&symbol.QuoteAsset,
		&symbol.SymbolType,
		&symbol.Market,
		&symbol.IsActive,
		&symbol.MinOrderSize,
		&symbol.MaxOrderSize,
		&symbol.PricePrecision,
		&symbol.QuantityPrecision,
		&symbol.CreatedAt,
		&symbol.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get symbol %s: %w", code, err)
	}

	return &symbol, nil
}

// Upsert merges a symbol into the table keyed by (exchange_id, symbol).
// An existing row is updated field by field with updated_at bumped; a
// missing row is inserted. Returns true when a new row was created.
func (r *SymbolRepository) Upsert(ctx context.Context, symbol *models.Symbol) (bool, error) {
	existing, err := r.GetByExchangeAndCode(ctx, symbol.ExchangeID, symbol.Symbol)
	if err != nil {
		return false, err
	}

	if existing != nil {
		query := `
			UPDATE symbols
			SET base_asset = $1, quote_asset = $2, symbol_type = $3, market = $4,
				is_active = $5, min_order_size = $6, max_order_size = $7,
				price_precision = $8, quantity_precision = $9, updated_at = CURRENT_TIMESTAMP
			WHERE id = $10
		`
		_, err := r.pool.Exec(ctx, query,
			symbol.BaseAsset, symbol.QuoteAsset, symbol.SymbolType, symbol.Market,
			symbol.IsActive, symbol.MinOrderSize, symbol.MaxOrderSize,
			symbol.PricePrecision, symbol.QuantityPrecision, existing.ID)
		if err != nil {
			return false, fmt.Errorf("failed to update symbol %s: %w", symbol.Symbol, err)
		}
		symbol.ID = existing.ID
		return false, nil
	}

	query := `
		INSERT INTO symbols (exchange_id, symbol, base_asset, quote_asset, symbol_type,
			market, is_active, min_order_size, max_order_size, price_precision, quantity_precision)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	err = r.pool.QueryRow(ctx, query,
		symbol.ExchangeID, symbol.Symbol, symbol.BaseAsset, symbol.QuoteAsset, symbol.SymbolType,
		symbol.Market, symbol.IsActive, symbol.MinOrderSize, symbol.MaxOrderSize,
		symbol.PricePrecision, symbol.QuantityPrecision).Scan(&symbol.ID)
	if err != nil {
		return false, fmt.Errorf("failed to insert symbol %s: %w", symbol.Symbol, err)
	}

	return true, nil
}

// ListActive returns active symbols of one type on an exchange, ordered
// by id. Market narrows to a sub-market when non-empty; limit caps the
// result when positive.
func (r *SymbolRepository) ListActive(ctx context.Context, exchangeID int64, symbolType models.SymbolType, market string, limit int) ([]models.Symbol, error) {
	query := `
		SELECT ` + symbolColumns + `
		FROM symbols
		WHERE exchange_id = $1 AND symbol_type = $2 AND is_active = true
	`
	args := []interface{}{exchangeID, symbolType}

	if market != "" {
		query += ` AND market = $3`
		args = append(args, market)
	}
	query += ` ORDER BY id`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list active symbols: %w", err)
	}
	defer rows.Close()

	var symbols []models.Symbol
	for rows.Next() {
		var symbol models.Symbol
		if err := rows.Scan(
			&symbol.ID,
			&symbol.ExchangeID,
			&symbol.Symbol,
			&symbol.BaseAsset,
			&symbol.QuoteAsset,
			&symbol.SymbolType,
			&symbol.Market,
			&symbol.IsActive,
			&symbol.MinOrderSize,
			&symbol.MaxOrderSize,
			&symbol.PricePrecision,
			&symbol.QuantityPrecision,
			&symbol.CreatedAt,
			&symbol.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan symbol row: %w", err)
		}
		symbols = append(symbols, symbol)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate symbol rows: %w", err)
	}

	return symbols, nil
}
