package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	CCXT        CCXTConfig      `mapstructure:"ccxt"`
	KIS         KISConfig       `mapstructure:"kis"`
	Collector   CollectorConfig `mapstructure:"collector"`
	Scheduler   SchedulerConfig `mapstructure:"scheduler"`
	Security    SecurityConfig  `mapstructure:"security"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DBName       string `mapstructure:"dbname"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CCXTConfig points at the Node CCXT sidecar used for crypto exchanges.
type CCXTConfig struct {
	ServiceURL string `mapstructure:"service_url"`
	Timeout    int    `mapstructure:"timeout"`
}

// KISConfig configures the authenticated Korea Investment & Securities
// daily price source. AppKey/AppSecret are the system credentials used
// for scheduled runs; per-user credentials live in the user_api_keys
// table and are resolved by the API layer.
type KISConfig struct {
	AppKey    string `mapstructure:"app_key" json:"-" yaml:"-"`
	AppSecret string `mapstructure:"app_secret" json:"-" yaml:"-"`
	IsDemo    bool   `mapstructure:"is_demo"`
}

type CollectorConfig struct {
	DaysBack      int    `mapstructure:"days_back"`
	SymbolLimit   int    `mapstructure:"symbol_limit"`
	OHLCVPageSize int    `mapstructure:"ohlcv_page_size"`
	RequestDelay  string `mapstructure:"request_delay"`
	PriceSource   string `mapstructure:"price_source"`
	QuoteCurrency string `mapstructure:"quote_currency"`
	MasterFileURL string `mapstructure:"master_file_url"`
	NaverChartURL string `mapstructure:"naver_chart_url"`
}

type SchedulerConfig struct {
	SymbolCollectionTime string `mapstructure:"symbol_collection_time"`
	PriceCollectionTime  string `mapstructure:"price_collection_time"`
	RealtimeInterval     string `mapstructure:"realtime_interval"`
}

type SecurityConfig struct {
	MasterSecret string `mapstructure:"master_secret" json:"-" yaml:"-"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Bind secrets to their conventional environment variables
	if err := viper.BindEnv("security.master_secret", "MASTER_SECRET"); err != nil {
		return nil, fmt.Errorf("failed to bind MASTER_SECRET environment variable: %w", err)
	}
	if err := viper.BindEnv("kis.app_key", "KIS_APP_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind KIS_APP_KEY environment variable: %w", err)
	}
	if err := viper.BindEnv("kis.app_secret", "KIS_APP_SECRET"); err != nil {
		return nil, fmt.Errorf("failed to bind KIS_APP_SECRET environment variable: %w", err)
	}

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	environment := strings.ToLower(config.Environment)

	if environment != "development" && config.Security.MasterSecret == "" {
		return nil, errors.New("MASTER_SECRET environment variable is required in non-development environments")
	}

	if config.Collector.RequestDelay != "" {
		if _, err := time.ParseDuration(config.Collector.RequestDelay); err != nil {
			return nil, fmt.Errorf("invalid collector request delay: %w", err)
		}
	}
	if config.Scheduler.RealtimeInterval != "" {
		if _, err := time.ParseDuration(config.Scheduler.RealtimeInterval); err != nil {
			return nil, fmt.Errorf("invalid realtime interval: %w", err)
		}
	}
	for _, at := range []string{config.Scheduler.SymbolCollectionTime, config.Scheduler.PriceCollectionTime} {
		if _, err := time.Parse("15:04", at); err != nil {
			return nil, fmt.Errorf("invalid scheduler time %q: %w", at, err)
		}
	}

	config.Environment = environment

	return &config, nil
}

// RequestDelayDuration returns the parsed inter-request delay for
// rate-limited price sources.
func (c CollectorConfig) RequestDelayDuration() time.Duration {
	d, err := time.ParseDuration(c.RequestDelay)
	if err != nil {
		return 50 * time.Millisecond
	}
	return d
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "kmarket")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.max_open_conns", 25)

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("ccxt.service_url", "http://localhost:3001")
	viper.SetDefault("ccxt.timeout", 30)

	viper.SetDefault("kis.app_key", "")
	viper.SetDefault("kis.app_secret", "")
	viper.SetDefault("kis.is_demo", true)

	viper.SetDefault("collector.days_back", 1)
	viper.SetDefault("collector.symbol_limit", 0)
	viper.SetDefault("collector.ohlcv_page_size", 200)
	viper.SetDefault("collector.request_delay", "50ms")
	viper.SetDefault("collector.price_source", "naver")
	viper.SetDefault("collector.quote_currency", "KRW")
	viper.SetDefault("collector.master_file_url", "https://new.real.download.dws.co.kr/common/master/{market}_code.mst.zip")
	viper.SetDefault("collector.naver_chart_url", "https://api.finance.naver.com/siseJson.naver")

	viper.SetDefault("scheduler.symbol_collection_time", "00:00")
	viper.SetDefault("scheduler.price_collection_time", "00:02")
	viper.SetDefault("scheduler.realtime_interval", "1m")

	viper.SetDefault("security.master_secret", "")
}
