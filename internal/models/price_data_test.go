package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestHasValidOHLC(t *testing.T) {
	bar := PriceData{
		OpenPrice:  decimal.NewFromInt(100),
		HighPrice:  decimal.NewFromInt(110),
		LowPrice:   decimal.NewFromInt(95),
		ClosePrice: decimal.NewFromInt(105),
	}
	assert.True(t, bar.HasValidOHLC())

	bar.OpenPrice = decimal.Zero
	assert.False(t, bar.HasValidOHLC())

	bar.OpenPrice = decimal.NewFromInt(-1)
	assert.False(t, bar.HasValidOHLC())
}
