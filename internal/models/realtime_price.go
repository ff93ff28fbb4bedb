package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RealtimePrice represents the latest price snapshot for a symbol.
// At most one row exists per symbol_id; writes go through the upsert in
// the realtime price repository, never plain inserts.
type RealtimePrice struct {
	ID           int64            `json:"id" db:"id"`
	SymbolID     int64            `json:"symbol_id" db:"symbol_id"`
	CurrentPrice decimal.Decimal  `json:"current_price" db:"current_price"`
	BidPrice     *decimal.Decimal `json:"bid_price,omitempty" db:"bid_price"`
	AskPrice     *decimal.Decimal `json:"ask_price,omitempty" db:"ask_price"`
	Volume24h    *decimal.Decimal `json:"volume_24h,omitempty" db:"volume_24h"`
	ChangeRate   *decimal.Decimal `json:"change_rate,omitempty" db:"change_rate"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`
}
