package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Timeframe values accepted by the collectors
const (
	TimeframeDaily  = "1d"
	TimeframeHourly = "1h"
)

// PriceData represents one OHLCV bar for a symbol.
// (symbol_id, timestamp, timeframe) is unique: a bar exists at most once,
// enforced by a storage-level constraint and by collector-side existence
// checks before insert.
type PriceData struct {
	ID          int64            `json:"id" db:"id"`
	SymbolID    int64            `json:"symbol_id" db:"symbol_id"`
	Timestamp   time.Time        `json:"timestamp" db:"timestamp"`
	OpenPrice   decimal.Decimal  `json:"open_price" db:"open_price"`
	HighPrice   decimal.Decimal  `json:"high_price" db:"high_price"`
	LowPrice    decimal.Decimal  `json:"low_price" db:"low_price"`
	ClosePrice  decimal.Decimal  `json:"close_price" db:"close_price"`
	Volume      decimal.Decimal  `json:"volume" db:"volume"`
	QuoteVolume *decimal.Decimal `json:"quote_volume,omitempty" db:"quote_volume"`
	Timeframe   string           `json:"timeframe" db:"timeframe"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}

// HasValidOHLC reports whether all four price fields are positive.
// Bars failing this check are dropped during normalization.
func (p *PriceData) HasValidOHLC() bool {
	return p.OpenPrice.IsPositive() && p.HighPrice.IsPositive() &&
		p.LowPrice.IsPositive() && p.ClosePrice.IsPositive()
}
