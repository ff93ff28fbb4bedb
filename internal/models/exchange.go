package models

import (
	"time"
)

// Exchange represents a reference row for an upstream market data source
type Exchange struct {
	ID        int64     `json:"id" db:"id"`
	Code      string    `json:"code" db:"code"`
	Name      string    `json:"name" db:"name"`
	Country   *string   `json:"country,omitempty" db:"country"`
	Timezone  *string   `json:"timezone,omitempty" db:"timezone"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Well-known exchange codes used by the collectors
const (
	ExchangeCodeKIS   = "kis"
	ExchangeCodeUpbit = "upbit"
)
