package collectors

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/irfndi/kmarket-data-go/internal/config"
	"github.com/irfndi/kmarket-data-go/internal/database"
	"github.com/irfndi/kmarket-data-go/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	krxMinOrderSize = decimal.NewFromInt(1)
	krxMaxOrderSize = decimal.NewFromInt(1_000_000_000)
)

// KRXSymbolCollector loads the KOSPI and KOSDAQ listing universe from
// the daily KIS master files.
type KRXSymbolCollector struct {
	exchangeRepo *database.ExchangeRepository
	symbolRepo   *database.SymbolRepository
	httpClient   *resty.Client
	masterURL    string
	exchangeID   int64
}

// NewKRXSymbolCollector creates a KRX symbol collector.
func NewKRXSymbolCollector(exchangeRepo *database.ExchangeRepository, symbolRepo *database.SymbolRepository, cfg config.CollectorConfig) *KRXSymbolCollector {
	client := resty.New().
		SetTimeout(60 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second)

	return &KRXSymbolCollector{
		exchangeRepo: exchangeRepo,
		symbolRepo:   symbolRepo,
		httpClient:   client,
		masterURL:    cfg.MasterFileURL,
	}
}

func (c *KRXSymbolCollector) initExchange(ctx context.Context) error {
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

// FetchSymbols downloads and parses both market master files. A market
// that fails to download or parse is logged and skipped so one bad
// board never hides the other.
func (c *KRXSymbolCollector) FetchSymbols(ctx context.Context) ([]models.Symbol, error) {
	if err := c.initExchange(ctx); err != nil {
		return nil, err
	}

	tempDir, err := os.MkdirTemp("", "krx-master-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tempDir); err != nil {
			logrus.WithError(err).Warn("Failed to remove master file temp dir")
		}
	}()

	var symbols []models.Symbol
	failedMarkets := 0
	for _, spec := range krxMarketSpecs {
		records, err := c.fetchMarket(ctx, tempDir, spec)
		if err != nil {
			failedMarkets++
			logrus.WithError(err).WithField("market", spec.Market).Warn("Failed to collect market master file, skipping")
			continue
		}

		skipped := 0
		for _, rec := range records {
			if rec.ShortCode == "" || rec.Name == "" {
				skipped++
				continue
			}
			symbols = append(symbols, c.toSymbol(rec, spec.Market))
		}
		logrus.WithFields(logrus.Fields{
			"market":  spec.Market,
			"parsed":  len(records),
			"skipped": skipped,
		}).Info("Parsed market master file")
	}

	// One bad board is survivable; all boards failing means the
	// upstream is unreachable and the run must not report success.
	if failedMarkets == len(krxMarketSpecs) {
		return nil, fmt.Errorf("failed to collect master files for all %d markets", failedMarkets)
	}

	return symbols, nil
}

// fetchMarket downloads one market's zipped master file, extracts it,
// and parses it into records.
func (c *KRXSymbolCollector) fetchMarket(ctx context.Context, dir string, spec krxMarketSpec) ([]krxMasterRecord, error) {
	url := strings.ReplaceAll(c.masterURL, "{market}", spec.Name)
	zipPath := filepath.Join(dir, spec.Name+"_code.mst.zip")

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetOutput(zipPath).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download master file: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("master file download returned status %d", resp.StatusCode())
	}

	mstPath, err := extractMasterFile(zipPath, dir)
	if err != nil {
		return nil, err
	}
	if err := os.Remove(zipPath); err != nil {
		logrus.WithError(err).WithField("path", zipPath).Warn("Failed to remove master archive")
	}

	return parseMasterFile(mstPath, spec)
}

func (c *KRXSymbolCollector) toSymbol(rec krxMasterRecord, market string) models.Symbol {
	return models.Symbol{
		ExchangeID:        c.exchangeID,
		Symbol:            rec.ShortCode,
		BaseAsset:         rec.Name,
		QuoteAsset:        "KRW",
		SymbolType:        models.SymbolTypeStock,
		Market:            market,
		IsActive:          true,
		MinOrderSize:      krxMinOrderSize,
		MaxOrderSize:      krxMaxOrderSize,
		PricePrecision:    0,
		QuantityPrecision: 0,
	}
}

// SaveSymbols upserts the fetched listing universe.
func (c *KRXSymbolCollector) SaveSymbols(ctx context.Context, symbols []models.Symbol) (int, error) {
	return saveSymbols(ctx, c.symbolRepo, models.ExchangeCodeKIS, symbols)
}

// CollectAndSave runs a full symbol collection cycle.
func (c *KRXSymbolCollector) CollectAndSave(ctx context.Context) (int, error) {
	symbols, err := c.FetchSymbols(ctx)
	if err != nil {
		return 0, err
	}
	return c.SaveSymbols(ctx, symbols)
}

var _ Collector = (*KRXSymbolCollector)(nil)
