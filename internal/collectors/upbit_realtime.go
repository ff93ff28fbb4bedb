package collectors

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/irfndi/kmarket-data-go/internal/config"
	"github.com/irfndi/kmarket-data-go/internal/database"
	"github.com/irfndi/kmarket-data-go/internal/models"
	"github.com/irfndi/kmarket-data-go/pkg/ccxt"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const realtimeCacheTTL = 5 * time.Minute

// UpbitRealtimeCollector refreshes latest price snapshots for the
// stored Upbit universe. Snapshots land in Postgres and are mirrored to
// Redis for cheap reads; a cache failure never fails the run.
type UpbitRealtimeCollector struct {
	exchangeRepo *database.ExchangeRepository
	symbolRepo   *database.SymbolRepository
	realtimeRepo *database.RealtimePriceRepository
	cache        *database.RedisClient
	newClient    func() ccxt.MarketDataClient

	client     ccxt.MarketDataClient
	exchangeID int64
}

// NewUpbitRealtimeCollector creates a realtime snapshot collector.
// cache may be nil to disable the Redis mirror.
func NewUpbitRealtimeCollector(
	exchangeRepo *database.ExchangeRepository,
	symbolRepo *database.SymbolRepository,
	realtimeRepo *database.RealtimePriceRepository,
	cache *database.RedisClient,
	ccxtCfg *config.CCXTConfig,
) *UpbitRealtimeCollector {
	return &UpbitRealtimeCollector{
		exchangeRepo: exchangeRepo,
		symbolRepo:   symbolRepo,
		realtimeRepo: realtimeRepo,
		cache:        cache,
		newClient:    func() ccxt.MarketDataClient { return ccxt.NewClient(ccxtCfg) },
	}
}

func (c *UpbitRealtimeCollector) initExchange(ctx context.Context) error {
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

func (c *UpbitRealtimeCollector) ensureClient() ccxt.MarketDataClient {
	if c.client == nil {
		c.client = c.newClient()
	}
	return c.client
}

func (c *UpbitRealtimeCollector) releaseClient() {
	if c.client == nil {
		return
	}
	if err := c.client.Close(); err != nil {
		logrus.WithError(err).Warn("Failed to close ccxt client")
	}
	c.client = nil
}

// CollectAll refreshes the snapshot for every active market. Per-symbol
// failures are logged and skipped.
func (c *UpbitRealtimeCollector) CollectAll(ctx context.Context, limit int) (PriceStats, error) {
	var stats PriceStats

	if err := c.initExchange(ctx); err != nil {
		return stats, err
	}
	defer c.releaseClient()

	symbols, err := c.symbolRepo.ListActive(ctx, c.exchangeID, models.SymbolTypeCrypto, "", limit)
	if err != nil {
		return stats, fmt.Errorf("failed to list active symbols: %w", err)
	}

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		if err := c.collectSymbol(ctx, symbol); err != nil {
			stats.SymbolsFailed++
			logrus.WithError(err).WithField("symbol", symbol.Symbol).Warn("Realtime price refresh failed for symbol")
			continue
		}
		stats.SymbolsProcessed++
	}

	logrus.WithFields(logrus.Fields{
		"exchange":  models.ExchangeCodeUpbit,
		"processed": stats.SymbolsProcessed,
		"failed":    stats.SymbolsFailed,
	}).Info("Realtime price refresh finished")

	return stats, nil
}

func (c *UpbitRealtimeCollector) collectSymbol(ctx context.Context, symbol models.Symbol) error {
	resp, err := c.ensureClient().GetTicker(ctx, upbitExchange, symbol.Symbol)
	if err != nil {
		return fmt.Errorf("failed to fetch ticker: %w", err)
	}

	price := tickerToSnapshot(symbol.ID, resp.Ticker)
	if err := c.realtimeRepo.Upsert(ctx, price); err != nil {
		return err
	}

	c.cacheSnapshot(ctx, symbol.Symbol, price)
	return nil
}

// tickerToSnapshot maps ticker fields onto a snapshot row. Zero-valued
// optional fields are stored as NULL rather than fake zeros.
func tickerToSnapshot(symbolID int64, ticker ccxt.Ticker) *models.RealtimePrice {
	price := &models.RealtimePrice{
		SymbolID:     symbolID,
		CurrentPrice: ticker.Last,
	}
	if ticker.Bid.IsPositive() {
		bid := ticker.Bid
		price.BidPrice = &bid
	}
	if ticker.Ask.IsPositive() {
		ask := ticker.Ask
		price.AskPrice = &ask
	}
	if ticker.Volume.IsPositive() {
		volume := ticker.Volume
		price.Volume24h = &volume
	}
	if !ticker.Percentage.IsZero() {
		rate := ticker.Percentage.Div(decimal.NewFromInt(100))
		price.ChangeRate = &rate
	}
	return price
}

// cacheSnapshot mirrors the snapshot to Redis with a short TTL.
func (c *UpbitRealtimeCollector) cacheSnapshot(ctx context.Context, symbolCode string, price *models.RealtimePrice) {
	if c.cache == nil {
		return
	}

	payload, err := json.Marshal(price)
	if err != nil {
		logrus.WithError(err).WithField("symbol", symbolCode).Warn("Failed to marshal realtime price for cache")
		return
	}

	key := realtimeCacheKey(models.ExchangeCodeUpbit, symbolCode)
	if err := c.cache.Set(ctx, key, payload, realtimeCacheTTL); err != nil {
		logrus.WithError(err).WithField("symbol", symbolCode).Warn("Failed to cache realtime price")
	}
}

func realtimeCacheKey(exchange, symbolCode string) string {
	return fmt.Sprintf("realtime:%s:%s", exchange, symbolCode)
}
