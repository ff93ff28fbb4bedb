package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SymbolType classifies a tradable instrument
type SymbolType string

const (
	SymbolTypeStock  SymbolType = "STOCK"
	SymbolTypeCrypto SymbolType = "CRYPTO"
)

// Symbol represents a tradable instrument on an exchange.
// (exchange_id, symbol) is logically unique; collectors merge into an
// existing row instead of inserting a duplicate.
type Symbol struct {
	ID                int64           `json:"id" db:"id"`
	ExchangeID        int64           `json:"exchange_id" db:"exchange_id"`
	Symbol            string          `json:"symbol" db:"symbol"`
	BaseAsset         string          `json:"base_asset" db:"base_asset"`
	QuoteAsset        string          `json:"quote_asset" db:"quote_asset"`
	SymbolType        SymbolType      `json:"symbol_type" db:"symbol_type"`
	Market            string          `json:"market" db:"market"`
	IsActive          bool            `json:"is_active" db:"is_active"`
	MinOrderSize      decimal.Decimal `json:"min_order_size" db:"min_order_size"`
	MaxOrderSize      decimal.Decimal `json:"max_order_size" db:"max_order_size"`
	PricePrecision    int             `json:"price_precision" db:"price_precision"`
	QuantityPrecision int             `json:"quantity_precision" db:"quantity_precision"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// String returns a string representation of the symbol
func (s *Symbol) String() string {
	return s.Symbol
}
