package collectors

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// NaverDailyPriceSource scrapes daily candles from the Naver Finance
// chart endpoint. No credentials needed, which makes it the default
// source for scheduled backfills.
type NaverDailyPriceSource struct {
	client   *resty.Client
	chartURL string
}

// NewNaverDailyPriceSource creates a Naver chart source.
func NewNaverDailyPriceSource(chartURL string) *NaverDailyPriceSource {
	return &NaverDailyPriceSource{
		client: resty.New().
			SetTimeout(15 * time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(time.Second),
		chartURL: chartURL,
	}
}

// Name identifies the source in logs.
func (s *NaverDailyPriceSource) Name() string { return "naver" }

// RateLimited is false; the chart endpoint tolerates sequential polling
// without explicit pacing.
func (s *NaverDailyPriceSource) RateLimited() bool { return false }

// FetchDailyPrices pulls the [start, end] daily series for one listed
// code. The endpoint answers with a quasi-JSON array of arrays using
// single quotes; it is normalized before decoding.
func (s *NaverDailyPriceSource) FetchDailyPrices(ctx context.Context, symbolCode string, start, end time.Time) ([]DailyBar, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":      symbolCode,
			"requestType": "1",
			"startTime":   start.Format(kisDateLayout),
			"endTime":     end.Format(kisDateLayout),
			"timeframe":   "day",
		}).
		Get(s.chartURL)
	if err != nil {
		return nil, fmt.Errorf("failed to request chart data: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("chart request returned status %d", resp.StatusCode())
	}

	return parseNaverChart(resp.Body())
}

// trailingComma matches the dangling commas the chart endpoint emits
// before closing brackets, which strict JSON rejects.
var trailingComma = regexp.MustCompile(`,\s*\]`)

// parseNaverChart decodes the siseJson payload. The first row is a
// column header; every later row is [date, open, high, low, close,
// volume, foreign ownership]. Rows that do not parse are dropped.
func parseNaverChart(body []byte) ([]DailyBar, error) {
	normalized := strings.ReplaceAll(string(body), "'", `"`)
	normalized = trailingComma.ReplaceAllString(normalized, "]")

	dec := json.NewDecoder(strings.NewReader(normalized))
	dec.UseNumber()

	var rows [][]interface{}
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode chart payload: %w", err)
	}

	var bars []DailyBar
	for _, row := range rows {
		if len(row) < 6 {
			continue
		}
		dateStr, ok := row[0].(string)
		if !ok {
			continue
		}
		date, err := time.ParseInLocation(kisDateLayout, dateStr, time.UTC)
		if err != nil {
			// Header row lands here.
			continue
		}

		values := make([]decimal.Decimal, 5)
		valid := true
		for i := 0; i < 5; i++ {
			num, ok := row[i+1].(json.Number)
			if !ok {
				valid = false
				break
			}
			v, err := decimal.NewFromString(num.String())
			if err != nil {
				valid = false
				break
			}
			values[i] = v
		}
		if !valid {
			continue
		}

		bars = append(bars, DailyBar{
			Date:   date,
			Open:   values[0],
			High:   values[1],
			Low:    values[2],
			Close:  values[3],
			Volume: values[4],
		})
	}
	return bars, nil
}

var _ DailyPriceSource = (*NaverDailyPriceSource)(nil)
