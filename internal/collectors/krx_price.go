package collectors

import (
	"context"
	"fmt"
	"time"

	"github.com/irfndi/kmarket-data-go/internal/database"
	"github.com/irfndi/kmarket-data-go/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DailyBar is one normalized daily OHLCV row from an equities source.
type DailyBar struct {
	Date        time.Time
	Open        decimal.Decimal
	High        decimal.Decimal
	Low         decimal.Decimal
	Close       decimal.Decimal
	Volume      decimal.Decimal
	QuoteVolume *decimal.Decimal
}

// DailyPriceSource fetches daily bars for a single listed instrument.
// Implementations differ only in upstream transport and auth; the
// collector drives them identically.
type DailyPriceSource interface {
	Name() string
	FetchDailyPrices(ctx context.Context, symbolCode string, start, end time.Time) ([]DailyBar, error)
	// RateLimited reports whether the collector must pause between
	// per-symbol requests.
	RateLimited() bool
}

// KRXPriceCollector backfills daily OHLCV history for the active KRX
// listing universe through a pluggable price source.
type KRXPriceCollector struct {
	exchangeRepo *database.ExchangeRepository
	symbolRepo   *database.SymbolRepository
	priceRepo    *database.PriceDataRepository
	source       DailyPriceSource
	requestDelay time.Duration
	exchangeID   int64
}

// NewKRXPriceCollector creates a KRX daily price collector over the
// given source.
func NewKRXPriceCollector(
	exchangeRepo *database.ExchangeRepository,
	symbolRepo *database.SymbolRepository,
	priceRepo *database.PriceDataRepository,
	source DailyPriceSource,
	requestDelay time.Duration,
) *KRXPriceCollector {
	return &KRXPriceCollector{
		exchangeRepo: exchangeRepo,
		symbolRepo:   symbolRepo,
		priceRepo:    priceRepo,
		source:       source,
		requestDelay: requestDelay,
	}
}

func (c *KRXPriceCollector) initExchange(ctx context.Context) error {
	if c.exchangeID != 0 {
		return nil
	}
	exchange, err := c.exchangeRepo.GetByCode(ctx, models.ExchangeCodeKIS)
	if err != nil {
		return fmt.Errorf("failed to resolve krx exchange: %w", err)
	}
	c.exchangeID = exchange.ID
	return nil
}

// CollectSymbol fetches, normalizes, and persists one symbol's daily
// history for the trailing daysBack window.
func (c *KRXPriceCollector) CollectSymbol(ctx context.Context, symbol models.Symbol, daysBack int) (int, int, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -daysBack)

	bars, err := c.source.FetchDailyPrices(ctx, symbol.Symbol, start, end)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to fetch daily prices for %s: %w", symbol.Symbol, err)
	}
	if len(bars) == 0 {
		return 0, 0, nil
	}

	staged := make([]models.PriceData, 0, len(bars))
	for _, bar := range bars {
		pd := models.PriceData{
			SymbolID:    symbol.ID,
			Timestamp:   bar.Date.UTC(),
			OpenPrice:   bar.Open,
			HighPrice:   bar.High,
			LowPrice:    bar.Low,
			ClosePrice:  bar.Close,
			Volume:      bar.Volume,
			QuoteVolume: bar.QuoteVolume,
			Timeframe:   models.TimeframeDaily,
		}
		if !pd.HasValidOHLC() {
			continue
		}
		staged = append(staged, pd)
	}
	if len(staged) == 0 {
		return 0, 0, nil
	}

	return c.priceRepo.InsertBatch(ctx, staged)
}

// CollectAll walks the active listing universe and collects each
// symbol's daily bars. A symbol failure is recorded and the run
// continues; only setup failures abort.
func (c *KRXPriceCollector) CollectAll(ctx context.Context, market string, daysBack, limit int) (PriceStats, error) {
	var stats PriceStats

	if err := c.initExchange(ctx); err != nil {
		return stats, err
	}

	symbols, err := c.symbolRepo.ListActive(ctx, c.exchangeID, models.SymbolTypeStock, market, limit)
	if err != nil {
		return stats, fmt.Errorf("failed to list active symbols: %w", err)
	}

	log := logrus.WithFields(logrus.Fields{
		"exchange": models.ExchangeCodeKIS,
		"source":   c.source.Name(),
		"symbols":  len(symbols),
	})
	log.Info("Starting daily price collection")

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		created, skipped, err := c.CollectSymbol(ctx, symbol, daysBack)
		stats.Created += created
		stats.Skipped += skipped
		if err != nil {
			stats.SymbolsFailed++
			logrus.WithError(err).WithField("symbol", symbol.Symbol).Warn("Daily price collection failed for symbol")
		} else {
			stats.SymbolsProcessed++
		}

		if c.source.RateLimited() && c.requestDelay > 0 {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-time.After(c.requestDelay):
			}
		}
	}

	log.WithFields(logrus.Fields{
		"processed": stats.SymbolsProcessed,
		"failed":    stats.SymbolsFailed,
		"created":   stats.Created,
		"skipped":   stats.Skipped,
	}).Info("Daily price collection finished")

	return stats, nil
}
