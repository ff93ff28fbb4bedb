package collectors

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/irfndi/kmarket-data-go/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	kisProdBaseURL = "https://openapi.koreainvestment.com:9443"
	kisDemoBaseURL = "https://openapivts.koreainvestment.com:29443"

	kisDailyPriceTrID = "FHKST01010400"
	kisDateLayout     = "20060102"
)

// KISDailyPriceSource pulls daily quotes from the Korea Investment &
// Securities open API. Requires app credentials; demo mode targets the
// paper trading host.
type KISDailyPriceSource struct {
	client    *resty.Client
	appKey    string
	appSecret string

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewKISDailyPriceSource creates a KIS source from decrypted
// credentials. The secret is held in memory only and never logged.
func NewKISDailyPriceSource(creds models.APICredentials, isDemo bool) *KISDailyPriceSource {
	baseURL := kisProdBaseURL
	if isDemo {
		baseURL = kisDemoBaseURL
	}

	return &KISDailyPriceSource{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(15 * time.Second),
		appKey:    creds.APIKey,
		appSecret: creds.APISecret,
	}
}

// Name identifies the source in logs.
func (s *KISDailyPriceSource) Name() string { return "kis" }

// RateLimited is true: the open API caps request throughput per app
// key, so the collector paces per-symbol calls.
func (s *KISDailyPriceSource) RateLimited() bool { return true }

type kisTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// ensureToken issues or reuses an OAuth access token. Tokens are
// refreshed one minute before expiry.
func (s *KISDailyPriceSource) ensureToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accessToken != "" && time.Now().Before(s.tokenExpiry.Add(-time.Minute)) {
		return s.accessToken, nil
	}

	var token kisTokenResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"grant_type": "client_credentials",
			"appkey":     s.appKey,
			"appsecret":  s.appSecret,
		}).
		SetResult(&token).
		Post("/oauth2/tokenP")
	if err != nil {
		return "", fmt.Errorf("failed to request access token: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("access token request returned status %d", resp.StatusCode())
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("access token response was empty")
	}

	s.accessToken = token.AccessToken
	s.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	logrus.WithField("source", s.Name()).Debug("Issued new access token")

	return s.accessToken, nil
}

type kisDailyRow struct {
	Date        string `json:"stck_bsop_date"`
	Open        string `json:"stck_oprc"`
	High        string `json:"stck_hgpr"`
	Low         string `json:"stck_lwpr"`
	Close       string `json:"stck_clpr"`
	Volume      string `json:"acml_vol"`
	QuoteVolume string `json:"acml_tr_pbmn"`
}

type kisDailyPriceResponse struct {
	ReturnCode string        `json:"rt_cd"`
	Message    string        `json:"msg1"`
	Output     []kisDailyRow `json:"output"`
	Output2    []kisDailyRow `json:"output2"`
}

func (r *kisDailyPriceResponse) rows() []kisDailyRow {
	if len(r.Output) > 0 {
		return r.Output
	}
	return r.Output2
}

// FetchDailyPrices requests the recent daily quote series for one
// listed code and keeps rows inside [start, end]. The endpoint returns
// a fixed trailing window, so longer backfills degrade to what the
// upstream serves.
func (s *KISDailyPriceSource) FetchDailyPrices(ctx context.Context, symbolCode string, start, end time.Time) ([]DailyBar, error) {
	token, err := s.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	var result kisDailyPriceResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeaders(map[string]string{
			"authorization": "Bearer " + token,
			"appkey":        s.appKey,
			"appsecret":     s.appSecret,
			"tr_id":         kisDailyPriceTrID,
		}).
		SetQueryParams(map[string]string{
			"FID_COND_MRKT_DIV_CODE": "J",
			"FID_INPUT_ISCD":         symbolCode,
			"FID_PERIOD_DIV_CODE":    "D",
			"FID_ORG_ADJ_PRC":        "0",
		}).
		SetResult(&result).
		Get("/uapi/domestic-stock/v1/quotations/inquire-daily-price")
	if err != nil {
		return nil, fmt.Errorf("failed to request daily prices: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("daily price request returned status %d", resp.StatusCode())
	}
	if result.ReturnCode != "0" {
		return nil, fmt.Errorf("daily price request rejected: %s", result.Message)
	}

	var bars []DailyBar
	for _, row := range result.rows() {
		bar, ok := s.toBar(row)
		if !ok {
			continue
		}
		if bar.Date.Before(start) || bar.Date.After(end) {
			continue
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func (s *KISDailyPriceSource) toBar(row kisDailyRow) (DailyBar, bool) {
	date, err := time.ParseInLocation(kisDateLayout, row.Date, time.UTC)
	if err != nil {
		return DailyBar{}, false
	}

	fields := []string{row.Open, row.High, row.Low, row.Close, row.Volume, row.QuoteVolume}
	values := make([]decimal.Decimal, len(fields))
	for i, field := range fields {
		v, err := decimal.NewFromString(field)
		if err != nil {
			return DailyBar{}, false
		}
		values[i] = v
	}

	return DailyBar{
		Date:        date,
		Open:        values[0],
		High:        values[1],
		Low:         values[2],
		Close:       values[3],
		Volume:      values[4],
		QuoteVolume: &values[5],
	}, true
}

var _ DailyPriceSource = (*KISDailyPriceSource)(nil)
