package ccxt

import (
	"time"

	"github.com/shopspring/decimal"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
}

// ErrorResponse represents an error response from the CCXT service
type ErrorResponse struct {
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// UnixMillis is a millisecond epoch timestamp as CCXT emits it.
type UnixMillis int64

// Time converts the millisecond timestamp to UTC.
func (m UnixMillis) Time() time.Time {
	return time.UnixMilli(int64(m)).UTC()
}

// OHLCV represents one candlestick as returned by the CCXT service
type OHLCV struct {
	Timestamp UnixMillis      `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

// OHLCVResponse represents the response from /api/ohlcv/{exchange}/{symbol}
type OHLCVResponse struct {
	Exchange  string    `json:"exchange"`
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	OHLCV     []OHLCV   `json:"ohlcv"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// Market represents a trading pair/market.
// Precision values are minimum step sizes (e.g. 0.00000001), not digit
// counts; upstream precision fields are inconsistent, so callers derive
// decimal places from the step.
type Market struct {
	ID        string           `json:"id"`
	Symbol    string           `json:"symbol"`
	Base      string           `json:"base"`
	Quote     string           `json:"quote"`
	Type      string           `json:"type"` // 'spot', 'future', 'option', etc.
	Spot      bool             `json:"spot"`
	Active    bool             `json:"active"`
	Precision *MarketPrecision `json:"precision,omitempty"`
	Limits    *MarketLimits    `json:"limits,omitempty"`
}

// MarketPrecision represents step sizes for a market
type MarketPrecision struct {
	Amount decimal.Decimal `json:"amount"`
	Price  decimal.Decimal `json:"price"`
}

// MarketLimits represents trading limits for a market
type MarketLimits struct {
	Amount *LimitRange `json:"amount,omitempty"`
	Price  *LimitRange `json:"price,omitempty"`
	Cost   *LimitRange `json:"cost,omitempty"`
}

// LimitRange represents min/max limits
type LimitRange struct {
	Min decimal.Decimal `json:"min,omitempty"`
	Max decimal.Decimal `json:"max,omitempty"`
}

// MarketsResponse represents the response from /api/markets/{exchange}
type MarketsResponse struct {
	Exchange  string    `json:"exchange"`
	Symbols   []string  `json:"symbols"`
	Markets   []Market  `json:"markets,omitempty"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// Ticker represents ticker data from an exchange
type Ticker struct {
	Symbol      string          `json:"symbol"`
	Bid         decimal.Decimal `json:"bid"`
	Ask         decimal.Decimal `json:"ask"`
	Last        decimal.Decimal `json:"last"`
	High        decimal.Decimal `json:"high"`
	Low         decimal.Decimal `json:"low"`
	Open        decimal.Decimal `json:"open"`
	Volume      decimal.Decimal `json:"volume"`
	QuoteVolume decimal.Decimal `json:"quoteVolume"`
	Percentage  decimal.Decimal `json:"percentage"`
	Timestamp   UnixMillis      `json:"timestamp"`
}

// TickerResponse represents the response from /api/ticker/{exchange}/{symbol}
type TickerResponse struct {
	Exchange  string    `json:"exchange"`
	Symbol    string    `json:"symbol"`
	Ticker    Ticker    `json:"ticker"`
	Timestamp time.Time `json:"timestamp"`
}
