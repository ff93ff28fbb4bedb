package ccxt

import (
	"context"
)

// MarketDataClient defines the CCXT operations the collectors depend on.
type MarketDataClient interface {
	HealthCheck(ctx context.Context) (*HealthResponse, error)
	GetMarkets(ctx context.Context, exchange string) (*MarketsResponse, error)
	GetOHLCV(ctx context.Context, exchange, symbol, timeframe string, since int64, limit int) (*OHLCVResponse, error)
	GetTicker(ctx context.Context, exchange, symbol string) (*TickerResponse, error)
	Close() error
}

var _ MarketDataClient = (*Client)(nil)
