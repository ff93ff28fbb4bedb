package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/kmarket-data-go/internal/collectors"
	"github.com/irfndi/kmarket-data-go/internal/config"
	"github.com/irfndi/kmarket-data-go/internal/database"
	"github.com/irfndi/kmarket-data-go/internal/logging"
	"github.com/irfndi/kmarket-data-go/internal/models"
	"github.com/irfndi/kmarket-data-go/internal/scheduler"
	"github.com/irfndi/kmarket-data-go/internal/vault"
)

func main() {
	seed := flag.Bool("seed", false, "seed exchange rows and exit")
	flag.Parse()

	// Local development convenience; the file is optional.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logging.Setup(cfg.LogLevel, cfg.Environment)

	// Fail fast on an unusable master secret before any job needs it.
	if cfg.Security.MasterSecret != "" {
		if _, err := vault.New(cfg.Security.MasterSecret); err != nil {
			logrus.WithError(err).Fatal("Failed to initialize credential vault")
		}
	}

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	exchangeRepo := database.NewExchangeRepository(db.Pool)

	if *seed {
		seedExchanges(exchangeRepo)
		return
	}

	redis, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redis.Close()

	symbolRepo := database.NewSymbolRepository(db.Pool)
	priceRepo := database.NewPriceDataRepository(db.Pool)
	realtimeRepo := database.NewRealtimePriceRepository(db.Pool)

	krxSymbols := collectors.NewKRXSymbolCollector(exchangeRepo, symbolRepo, cfg.Collector)
	upbitSymbols := collectors.NewUpbitSymbolCollector(exchangeRepo, symbolRepo, &cfg.CCXT, cfg.Collector)

	krxPrices := collectors.NewKRXPriceCollector(
		exchangeRepo, symbolRepo, priceRepo,
		newDailyPriceSource(cfg), cfg.Collector.RequestDelayDuration())
	upbitPrices := collectors.NewUpbitPriceCollector(exchangeRepo, symbolRepo, priceRepo, &cfg.CCXT, cfg.Collector)
	upbitRealtime := collectors.NewUpbitRealtimeCollector(exchangeRepo, symbolRepo, realtimeRepo, redis, &cfg.CCXT)

	sched := scheduler.New()

	err = sched.AddDaily("symbol_collection", cfg.Scheduler.SymbolCollectionTime, func(ctx context.Context) error {
		if _, err := krxSymbols.CollectAndSave(ctx); err != nil {
			logrus.WithError(err).Error("KRX symbol collection failed")
		}
		if _, err := upbitSymbols.CollectAndSave(ctx); err != nil {
			logrus.WithError(err).Error("Upbit symbol collection failed")
		}
		return nil
	})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to schedule symbol collection")
	}

	err = sched.AddDaily("price_collection", cfg.Scheduler.PriceCollectionTime, func(ctx context.Context) error {
		if _, err := krxPrices.CollectAll(ctx, "", cfg.Collector.DaysBack, cfg.Collector.SymbolLimit); err != nil {
			logrus.WithError(err).Error("KRX price collection failed")
		}
		if _, err := upbitPrices.CollectAll(ctx, cfg.Collector.DaysBack, cfg.Collector.SymbolLimit); err != nil {
			logrus.WithError(err).Error("Upbit price collection failed")
		}
		return nil
	})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to schedule price collection")
	}

	err = sched.AddPeriodic("realtime_prices", mustDuration(cfg.Scheduler.RealtimeInterval), func(ctx context.Context) error {
		_, err := upbitRealtime.CollectAll(ctx, cfg.Collector.SymbolLimit)
		return err
	})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to schedule realtime price refresh")
	}

	sched.Start()
	logrus.WithFields(logrus.Fields{
		"environment":  cfg.Environment,
		"price_source": cfg.Collector.PriceSource,
	}).Info("Scheduler started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down scheduler...")
	sched.Stop()
	logrus.Info("Scheduler exited")
}

// newDailyPriceSource picks the equities price source. KIS needs app
// credentials; without them the collector falls back to the public
// chart endpoint.
func newDailyPriceSource(cfg *config.Config) collectors.DailyPriceSource {
	if cfg.Collector.PriceSource == "kis" {
		if cfg.KIS.AppKey == "" || cfg.KIS.AppSecret == "" {
			logrus.Warn("KIS price source selected but credentials are missing, falling back to naver")
		} else {
			return collectors.NewKISDailyPriceSource(models.APICredentials{
				APIKey:    cfg.KIS.AppKey,
				APISecret: cfg.KIS.AppSecret,
			}, cfg.KIS.IsDemo)
		}
	}
	return collectors.NewNaverDailyPriceSource(cfg.Collector.NaverChartURL)
}

func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		logrus.WithError(err).Fatalf("Invalid duration %q", s)
	}
	return d
}

// seedExchanges inserts the exchange rows collectors resolve at
// startup. Safe to run repeatedly.
func seedExchanges(repo *database.ExchangeRepository) {
	ctx := context.Background()
	for _, exchange := range []models.Exchange{
		{Code: models.ExchangeCodeKIS, Name: "Korea Exchange", IsActive: true},
		{Code: models.ExchangeCodeUpbit, Name: "Upbit", IsActive: true},
	} {
		created, err := repo.Seed(ctx, &exchange)
		if err != nil {
			logrus.WithError(err).WithField("code", exchange.Code).Fatal("Failed to seed exchange")
		}
		logrus.WithFields(logrus.Fields{
			"code":    exchange.Code,
			"created": created,
		}).Info("Seeded exchange")
	}
}
