package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/irfndi/kmarket-data-go/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealtimeUpsertReturnsRowIdentity(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRealtimePriceRepository(mock)
	bid := decimal.NewFromInt(99)
	price := &models.RealtimePrice{
		SymbolID:     3,
		CurrentPrice: decimal.NewFromInt(100),
		BidPrice:     &bid,
	}

	updatedAt := time.Now()
	mock.ExpectQuery(`(?s)INSERT INTO realtime_prices.*ON CONFLICT \(symbol_id\)`).
		WillReturnRows(mock.NewRows([]string{"id", "updated_at"}).AddRow(int64(11), updatedAt))

	err = repo.Upsert(context.Background(), price)
	require.NoError(t, err)
	assert.Equal(t, int64(11), price.ID)
	assert.Equal(t, updatedAt, price.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRealtimeBulkUpsertStopsAtFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRealtimePriceRepository(mock)
	prices := []models.RealtimePrice{
		{SymbolID: 1, CurrentPrice: decimal.NewFromInt(10)},
		{SymbolID: 2, CurrentPrice: decimal.NewFromInt(20)},
		{SymbolID: 3, CurrentPrice: decimal.NewFromInt(30)},
	}

	mock.ExpectQuery(`INSERT INTO realtime_prices`).
		WillReturnRows(mock.NewRows([]string{"id", "updated_at"}).AddRow(int64(1), time.Now()))
	mock.ExpectQuery(`INSERT INTO realtime_prices`).
		WillReturnError(errors.New("connection reset"))

	result, err := repo.BulkUpsert(context.Background(), prices)
	require.Error(t, err)
	// The first snapshot stays committed; the error names the failure
	// point.
	assert.Len(t, result, 1)
	assert.Contains(t, err.Error(), "symbol 2")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRealtimeGetBySymbolMissingRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRealtimePriceRepository(mock)

	mock.ExpectQuery(`(?s)SELECT .+ FROM realtime_prices`).
		WithArgs(int64(404)).
		WillReturnError(pgx.ErrNoRows)

	price, err := repo.GetBySymbol(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, price)
	assert.NoError(t, mock.ExpectationsWereMet())
}
