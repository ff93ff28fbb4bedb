package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/irfndi/kmarket-data-go/internal/models"
	"github.com/jackc/pgx/v5"
)

// ErrExchangeNotFound is returned when no exchange reference row exists
// for a given code. Collectors treat this as fatal for their run.
var ErrExchangeNotFound = errors.New("exchange not found")

// ExchangeRepository handles database operations for exchange reference rows.
type ExchangeRepository struct {
	pool DatabasePool
}

// NewExchangeRepository creates a new exchange repository.
func NewExchangeRepository(pool DatabasePool) *ExchangeRepository {
	return &ExchangeRepository{pool: pool}
}

// GetByCode looks up an exchange by its unique code.
func (r *ExchangeRepository) GetByCode(ctx context.Context, code string) (*models.Exchange, error) {
	query := `
		SELECT id, code, name, country, timezone, is_active, created_at, updated_at
		FROM exchanges
		WHERE code = $1
	`

	var exchange models.Exchange
	err := r.pool.QueryRow(ctx, query, code).Scan(
		&exchange.ID,
		&exchange.Code,
		&exchange.Name,
		&exchange.Country,
		&exchange.Timezone,
		&exchange.IsActive,
		&exchange.CreatedAt,
		&exchange.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrExchangeNotFound, code)
		}
		return nil, fmt.Errorf("failed to get exchange by code: %w", err)
	}

	return &exchange, nil
}

// Seed inserts an exchange reference row if one does not already exist
// for the code. Existing rows are left untouched.
func (r *ExchangeRepository) Seed(ctx context.Context, exchange *models.Exchange) (bool, error) {
	query := `
		INSERT INTO exchanges (code, name, country, timezone, is_active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code) DO NOTHING
	`

	tag, err := r.pool.Exec(ctx, query,
		exchange.Code, exchange.Name, exchange.Country, exchange.Timezone, exchange.IsActive)
	if err != nil {
		return false, fmt.Errorf("failed to seed exchange %s: %w", exchange.Code, err)
	}

	return tag.RowsAffected() > 0, nil
}
