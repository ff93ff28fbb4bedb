package collectors

import (
	"context"
	"testing"
	"time"

	"github.com/irfndi/kmarket-data-go/internal/database"
	"github.com/irfndi/kmarket-data-go/internal/models"
	"github.com/irfndi/kmarket-data-go/pkg/ccxt"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCCXTClient is an in-memory MarketDataClient for collector tests.
type fakeCCXTClient struct {
	markets    *ccxt.MarketsResponse
	ohlcv      *ccxt.OHLCVResponse
	ticker     *ccxt.TickerResponse
	err        error
	closeCalls int
}

func (f *fakeCCXTClient) HealthCheck(ctx context.Context) (*ccxt.HealthResponse, error) {
	return &ccxt.HealthResponse{Status: "ok"}, nil
}

func (f *fakeCCXTClient) GetMarkets(ctx context.Context, exchange string) (*ccxt.MarketsResponse, error) {
	return f.markets, f.err
}

func (f *fakeCCXTClient) GetOHLCV(ctx context.Context, exchange, symbol, timeframe string, since int64, limit int) (*ccxt.OHLCVResponse, error) {
	return f.ohlcv, f.err
}

func (f *fakeCCXTClient) GetTicker(ctx context.Context, exchange, symbol string) (*ccxt.TickerResponse, error) {
	return f.ticker, f.err
}

func (f *fakeCCXTClient) Close() error {
	f.closeCalls++
	return nil
}

var _ ccxt.MarketDataClient = (*fakeCCXTClient)(nil)

func expectExchangeLookup(mock pgxmock.PgxPoolIface, code string, id int64) {
	mock.ExpectQuery(`(?s)SELECT .+ FROM exchanges`).
		WithArgs(code).
		WillReturnRows(mock.NewRows([]string{
			"id", "code", "name", "country", "timezone", "is_active", "created_at", "updated_at",
		}).AddRow(id, code, "Exchange", (*string)(nil), (*string)(nil), true, time.Now(), time.Now()))
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func krwMarket(symbol, base string) ccxt.Market {
	return ccxt.Market{
		Symbol: symbol,
		Base:   base,
		Quote:  "KRW",
		Type:   "spot",
		Spot:   true,
		Active: true,
		Precision: &ccxt.MarketPrecision{
			Amount: dec("0.00000001"),
			Price:  dec("1"),
		},
		Limits: &ccxt.MarketLimits{
			Cost: &ccxt.LimitRange{Min: dec("5000"), Max: dec("1000000000")},
		},
	}
}

func newUpbitCollectorForTest(t *testing.T, fake *fakeCCXTClient) (*UpbitSymbolCollector, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	collector := &UpbitSymbolCollector{
		exchangeRepo:  database.NewExchangeRepository(mock),
		symbolRepo:    database.NewSymbolRepository(mock),
		newClient:     func() ccxt.MarketDataClient { return fake },
		quoteCurrency: "KRW",
	}
	return collector, mock
}

func TestUpbitFetchSymbolsFiltersToQuoteCurrency(t *testing.T) {
	btc := krwMarket("BTC/KRW", "BTC")
	usdt := krwMarket("BTC/USDT", "BTC")
	usdt.Quote = "USDT"

	fake := &fakeCCXTClient{markets: &ccxt.MarketsResponse{
		Exchange: "upbit",
		Markets:  []ccxt.Market{btc, usdt},
		Count:    2,
	}}
	collector, mock := newUpbitCollectorForTest(t, fake)
	expectExchangeLookup(mock, "upbit", 2)

	symbols, err := collector.FetchSymbols(context.Background())
	require.NoError(t, err)
	require.Len(t, symbols, 1)

	symbol := symbols[0]
	assert.Equal(t, "BTC/KRW", symbol.Symbol)
	assert.Equal(t, "BTC", symbol.BaseAsset)
	assert.Equal(t, "KRW", symbol.QuoteAsset)
	assert.Equal(t, "KRW", symbol.Market)
	assert.Equal(t, models.SymbolTypeCrypto, symbol.SymbolType)
	assert.True(t, symbol.IsActive)
	assert.Equal(t, int64(2), symbol.ExchangeID)
	assert.Equal(t, 8, symbol.QuantityPrecision)
	assert.Equal(t, 0, symbol.PricePrecision)
	assert.Equal(t, "5000", symbol.MinOrderSize.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpbitFetchSymbolsKeepsDelistedMarketsInactive(t *testing.T) {
	delisted := krwMarket("LUNA/KRW", "LUNA")
	delisted.Active = false

	fake := &fakeCCXTClient{markets: &ccxt.MarketsResponse{
		Exchange: "upbit",
		Markets:  []ccxt.Market{delisted},
		Count:    1,
	}}
	collector, mock := newUpbitCollectorForTest(t, fake)
	expectExchangeLookup(mock, "upbit", 2)

	// A delisting must flow through as an inactive row so the merge
	// deactivates the stored symbol.
	symbols, err := collector.FetchSymbols(context.Background())
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	assert.Equal(t, "LUNA/KRW", symbols[0].Symbol)
	assert.False(t, symbols[0].IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpbitFetchSymbolsDefaultsMissingLimits(t *testing.T) {
	market := krwMarket("XRP/KRW", "XRP")
	market.Precision = nil
	market.Limits = nil

	fake := &fakeCCXTClient{markets: &ccxt.MarketsResponse{Markets: []ccxt.Market{market}}}
	collector, mock := newUpbitCollectorForTest(t, fake)
	expectExchangeLookup(mock, "upbit", 2)

	symbols, err := collector.FetchSymbols(context.Background())
	require.NoError(t, err)
	require.Len(t, symbols, 1)

	assert.Equal(t, "5000", symbols[0].MinOrderSize.String())
	assert.Equal(t, "1000000000", symbols[0].MaxOrderSize.String())
	assert.Equal(t, 8, symbols[0].QuantityPrecision)
	assert.Equal(t, 0, symbols[0].PricePrecision)
}

func TestUpbitCollectAndSaveReleasesClient(t *testing.T) {
	fake := &fakeCCXTClient{markets: &ccxt.MarketsResponse{}}
	collector, mock := newUpbitCollectorForTest(t, fake)
	expectExchangeLookup(mock, "upbit", 2)

	saved, err := collector.CollectAndSave(context.Background())
	require.NoError(t, err)
	assert.Zero(t, saved)
	assert.Equal(t, 1, fake.closeCalls)
	assert.Nil(t, collector.client)
}

func TestPrecisionFromStepSize(t *testing.T) {
	cases := []struct {
		step string
		want int
	}{
		{"0.00000001", 8},
		{"0.001", 3},
		{"0.5", 1},
		{"1", 0},
		{"10", 0},
		{"1000", 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, precisionFromStepSize(dec(tc.step)), tc.step)
	}
}
