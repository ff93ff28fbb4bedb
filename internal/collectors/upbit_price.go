package collectors

import (
	"context"
	"fmt"
	"time"

	"github.com/irfndi/kmarket-data-go/internal/config"
	"github.com/irfndi/kmarket-data-go/internal/database"
	"github.com/irfndi/kmarket-data-go/internal/models"
	"github.com/irfndi/kmarket-data-go/pkg/ccxt"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var two = decimal.NewFromInt(2)

// approximateQuoteVolume estimates KRW turnover for a candle as base
// volume times the high/low midpoint. Upbit candles via the sidecar do
// not carry quote volume.
func approximateQuoteVolume(candle ccxt.OHLCV) decimal.Decimal {
	return candle.Volume.Mul(candle.High.Add(candle.Low).Div(two))
}

// UpbitPriceCollector backfills daily OHLCV history for the stored
// Upbit universe through the CCXT sidecar.
type UpbitPriceCollector struct {
	exchangeRepo *database.ExchangeRepository
	symbolRepo   *database.SymbolRepository
	priceRepo    *database.PriceDataRepository
	newClient    func() ccxt.MarketDataClient
	pageSize     int

	client     ccxt.MarketDataClient
	exchangeID int64
}

// NewUpbitPriceCollector creates an Upbit daily price collector.
func NewUpbitPriceCollector(
	exchangeRepo *database.ExchangeRepository,
	symbolRepo *database.SymbolRepository,
	priceRepo *database.PriceDataRepository,
	ccxtCfg *config.CCXTConfig,
	collectorCfg config.CollectorConfig,
) *UpbitPriceCollector {
	pageSize := collectorCfg.OHLCVPageSize
	if pageSize <= 0 {
		pageSize = 200
	}

	return &UpbitPriceCollector{
		exchangeRepo: exchangeRepo,
		symbolRepo:   symbolRepo,
		priceRepo:    priceRepo,
		newClient:    func() ccxt.MarketDataClient { return ccxt.NewClient(ccxtCfg) },
		pageSize:     pageSize,
	}
}

func (c *UpbitPriceCollector) initExchange(ctx context.Context) error {
	if c.exchangeID != 0 {
		return nil
	}
	exchange, err := c.exchangeRepo.GetByCode(ctx, models.ExchangeCodeUpbit)
	if err != nil {
		return fmt.Errorf("failed to resolve upbit exchange: %w", err)
	}
	c.exchangeID = exchange.ID
	return nil
}

func (c *UpbitPriceCollector) ensureClient() ccxt.MarketDataClient {
	if c.client == nil {
		c.client = c.newClient()
	}
	return c.client
}

func (c *UpbitPriceCollector) releaseClient() {
	if c.client == nil {
		return
	}
	if err := c.client.Close(); err != nil {
		logrus.WithError(err).Warn("Failed to close ccxt client")
	}
	c.client = nil
}

// CollectSymbol fetches one market's daily candles since the window
// start and persists them. Upbit candles carry no quote volume, so it
// is approximated as volume times the high/low midpoint.
func (c *UpbitPriceCollector) CollectSymbol(ctx context.Context, symbol models.Symbol, daysBack int) (int, int, error) {
	since := time.Now().UTC().AddDate(0, 0, -daysBack).UnixMilli()

	resp, err := c.ensureClient().GetOHLCV(ctx, upbitExchange, symbol.Symbol, models.TimeframeDaily, since, c.pageSize)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to fetch ohlcv for %s: %w", symbol.Symbol, err)
	}
	if len(resp.OHLCV) == 0 {
		return 0, 0, nil
	}

	staged := make([]models.PriceData, 0, len(resp.OHLCV))
	for _, candle := range resp.OHLCV {
		quoteVolume := approximateQuoteVolume(candle)
		pd := models.PriceData{
			SymbolID:    symbol.ID,
			Timestamp:   candle.Timestamp.Time(),
			OpenPrice:   candle.Open,
			HighPrice:   candle.High,
			LowPrice:    candle.Low,
			ClosePrice:  candle.Close,
			Volume:      candle.Volume,
			QuoteVolume: &quoteVolume,
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

// CollectAll walks the stored Upbit universe and collects each market's
// daily candles, releasing the CCXT client when the run ends.
func (c *UpbitPriceCollector) CollectAll(ctx context.Context, daysBack, limit int) (PriceStats, error) {
	var stats PriceStats

	if err := c.initExchange(ctx); err != nil {
		return stats, err
	}
	defer c.releaseClient()

	symbols, err := c.symbolRepo.ListActive(ctx, c.exchangeID, models.SymbolTypeCrypto, "", limit)
	if err != nil {
		return stats, fmt.Errorf("failed to list active symbols: %w", err)
	}

	log := logrus.WithFields(logrus.Fields{
		"exchange": models.ExchangeCodeUpbit,
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
			continue
		}
		stats.SymbolsProcessed++
	}

	log.WithFields(logrus.Fields{
		"processed": stats.SymbolsProcessed,
		"failed":    stats.SymbolsFailed,
		"created":   stats.Created,
		"skipped":   stats.Skipped,
	}).Info("Daily price collection finished")

	return stats, nil
}
