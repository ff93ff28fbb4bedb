package collectors

import (
	"context"
	"fmt"
	"strings"

	"github.com/irfndi/kmarket-data-go/internal/config"
	"github.com/irfndi/kmarket-data-go/internal/database"
	"github.com/irfndi/kmarket-data-go/internal/models"
	"github.com/irfndi/kmarket-data-go/pkg/ccxt"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const upbitExchange = "upbit"

var (
	upbitDefaultMinCost = decimal.NewFromInt(5000)
	upbitDefaultMaxCost = decimal.NewFromInt(1_000_000_000)

	defaultQuantityPrecision = 8
	defaultPricePrecision    = 0
)

// UpbitSymbolCollector loads the KRW-quoted spot market universe from
// Upbit through the CCXT sidecar.
type UpbitSymbolCollector struct {
	exchangeRepo  *database.ExchangeRepository
	symbolRepo    *database.SymbolRepository
	newClient     func() ccxt.MarketDataClient
	quoteCurrency string

	client     ccxt.MarketDataClient
	exchangeID int64
}

// NewUpbitSymbolCollector creates an Upbit symbol collector. The CCXT
// client is built lazily per run and released when the run ends.
func NewUpbitSymbolCollector(exchangeRepo *database.ExchangeRepository, symbolRepo *database.SymbolRepository, ccxtCfg *config.CCXTConfig, collectorCfg config.CollectorConfig) *UpbitSymbolCollector {
	quote := collectorCfg.QuoteCurrency
	if quote == "" {
		quote = "KRW"
	}

	return &UpbitSymbolCollector{
		exchangeRepo:  exchangeRepo,
		symbolRepo:    symbolRepo,
		newClient:     func() ccxt.MarketDataClient { return ccxt.NewClient(ccxtCfg) },
		quoteCurrency: quote,
	}
}

func (c *UpbitSymbolCollector) initExchange(ctx context.Context) error {
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

func (c *UpbitSymbolCollector) ensureClient() ccxt.MarketDataClient {
	if c.client == nil {
		c.client = c.newClient()
	}
	return c.client
}

func (c *UpbitSymbolCollector) releaseClient() {
	if c.client == nil {
		return
	}
	if err := c.client.Close(); err != nil {
		logrus.WithError(err).Warn("Failed to close ccxt client")
	}
	c.client = nil
}

// FetchSymbols pulls Upbit's market list and keeps markets quoted in
// the configured currency. Delisted markets are kept with is_active
// false so a later merge deactivates the stored row instead of leaving
// it polled forever.
func (c *UpbitSymbolCollector) FetchSymbols(ctx context.Context) ([]models.Symbol, error) {
	if err := c.initExchange(ctx); err != nil {
		return nil, err
	}

	markets, err := c.ensureClient().GetMarkets(ctx, upbitExchange)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch upbit markets: %w", err)
	}

	var symbols []models.Symbol
	for _, market := range markets.Markets {
		if !strings.EqualFold(market.Quote, c.quoteCurrency) {
			continue
		}
		symbols = append(symbols, c.toSymbol(market))
	}

	logrus.WithFields(logrus.Fields{
		"exchange": models.ExchangeCodeUpbit,
		"quote":    c.quoteCurrency,
		"total":    len(markets.Markets),
		"kept":     len(symbols),
	}).Info("Fetched upbit market list")

	return symbols, nil
}

func (c *UpbitSymbolCollector) toSymbol(market ccxt.Market) models.Symbol {
	minCost := upbitDefaultMinCost
	maxCost := upbitDefaultMaxCost
	if market.Limits != nil && market.Limits.Cost != nil {
		if market.Limits.Cost.Min.IsPositive() {
			minCost = market.Limits.Cost.Min
		}
		if market.Limits.Cost.Max.IsPositive() {
			maxCost = market.Limits.Cost.Max
		}
	}

	quantityPrecision := defaultQuantityPrecision
	pricePrecision := defaultPricePrecision
	if market.Precision != nil {
		if market.Precision.Amount.IsPositive() {
			quantityPrecision = precisionFromStepSize(market.Precision.Amount)
		}
		if market.Precision.Price.IsPositive() {
			pricePrecision = precisionFromStepSize(market.Precision.Price)
		}
	}

	return models.Symbol{
		ExchangeID:        c.exchangeID,
		Symbol:            market.Symbol,
		BaseAsset:         market.Base,
		QuoteAsset:        market.Quote,
		SymbolType:        models.SymbolTypeCrypto,
		Market:            market.Quote,
		IsActive:          market.Active,
		MinOrderSize:      minCost,
		MaxOrderSize:      maxCost,
		PricePrecision:    pricePrecision,
		QuantityPrecision: quantityPrecision,
	}
}

// precisionFromStepSize converts a minimum step (0.00000001) into a
// decimal place count (8). Steps of one or more round to whole units.
func precisionFromStepSize(step decimal.Decimal) int {
	if step.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return 0
	}
	s := step.String()
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}

// SaveSymbols upserts the fetched market universe.
func (c *UpbitSymbolCollector) SaveSymbols(ctx context.Context, symbols []models.Symbol) (int, error) {
	return saveSymbols(ctx, c.symbolRepo, models.ExchangeCodeUpbit, symbols)
}

// CollectAndSave runs a full symbol collection cycle, releasing the
// CCXT client on every exit path.
func (c *UpbitSymbolCollector) CollectAndSave(ctx context.Context) (int, error) {
	defer c.releaseClient()

	symbols, err := c.FetchSymbols(ctx)
	if err != nil {
		return 0, err
	}
	return c.SaveSymbols(ctx, symbols)
}

var _ Collector = (*UpbitSymbolCollector)(nil)
