package collectors

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/irfndi/kmarket-data-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKISTestServer(t *testing.T, tokenCalls *atomic.Int32, rows []kisDailyRow) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/oauth2/tokenP":
			tokenCalls.Add(1)
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "client_credentials", body["grant_type"])
			assert.Equal(t, "test-key", body["appkey"])
			_ = json.NewEncoder(w).Encode(kisTokenResponse{
				AccessToken: "test-token",
				TokenType:   "Bearer",
				ExpiresIn:   86400,
			})
		case "/uapi/domestic-stock/v1/quotations/inquire-daily-price":
			assert.Equal(t, "Bearer test-token", r.Header.Get("authorization"))
			assert.Equal(t, kisDailyPriceTrID, r.Header.Get("tr_id"))
			assert.Equal(t, "J", r.URL.Query().Get("FID_COND_MRKT_DIV_CODE"))
			assert.Equal(t, "005930", r.URL.Query().Get("FID_INPUT_ISCD"))
			assert.Equal(t, "D", r.URL.Query().Get("FID_PERIOD_DIV_CODE"))
			assert.Equal(t, "0", r.URL.Query().Get("FID_ORG_ADJ_PRC"))
			_ = json.NewEncoder(w).Encode(kisDailyPriceResponse{
				ReturnCode: "0",
				Output:     rows,
			})
		default:
			http.NotFound(w, r)
		}
	}))
}

func newTestKISSource(serverURL string) *KISDailyPriceSource {
	source := NewKISDailyPriceSource(models.APICredentials{
		APIKey:    "test-key",
		APISecret: "test-secret",
	}, true)
	source.client.SetBaseURL(serverURL)
	return source
}

func TestKISFetchDailyPrices(t *testing.T) {
	rows := []kisDailyRow{
		{Date: "20250826", Open: "71000", High: "71900", Low: "70800", Close: "71500", Volume: "9456123", QuoteVolume: "675000000000"},
		{Date: "20250825", Open: "70500", High: "71200", Low: "70100", Close: "71000", Volume: "8123456", QuoteVolume: "578000000000"},
		// Out of the requested window.
		{Date: "20250101", Open: "60000", High: "60500", Low: "59800", Close: "60200", Volume: "7000000", QuoteVolume: "420000000000"},
		// Unparseable row.
		{Date: "20250824", Open: "-", High: "", Low: "", Close: "", Volume: "", QuoteVolume: ""},
	}

	var tokenCalls atomic.Int32
	server := newKISTestServer(t, &tokenCalls, rows)
	defer server.Close()

	source := newTestKISSource(server.URL)
	assert.True(t, source.RateLimited())

	start := time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 8, 27, 0, 0, 0, 0, time.UTC)
	bars, err := source.FetchDailyPrices(context.Background(), "005930", start, end)
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, time.Date(2025, 8, 26, 0, 0, 0, 0, time.UTC), bars[0].Date)
	assert.Equal(t, "71500", bars[0].Close.String())
	require.NotNil(t, bars[0].QuoteVolume)
	assert.Equal(t, "675000000000", bars[0].QuoteVolume.String())
}

func TestKISTokenIsReusedAcrossRequests(t *testing.T) {
	var tokenCalls atomic.Int32
	server := newKISTestServer(t, &tokenCalls, nil)
	defer server.Close()

	source := newTestKISSource(server.URL)

	start := time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 8, 27, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := source.FetchDailyPrices(context.Background(), "005930", start, end)
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), tokenCalls.Load())
}

func TestKISRejectedRequestSurfacesMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/oauth2/tokenP" {
			_ = json.NewEncoder(w).Encode(kisTokenResponse{AccessToken: "t", ExpiresIn: 86400})
			return
		}
		_ = json.NewEncoder(w).Encode(kisDailyPriceResponse{ReturnCode: "1", Message: "유효하지 않은 종목코드"})
	}))
	defer server.Close()

	source := newTestKISSource(server.URL)

	_, err := source.FetchDailyPrices(context.Background(), "BAD", time.Now().AddDate(0, 0, -1), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")
}

func TestKISFallsBackToOutput2(t *testing.T) {
	resp := kisDailyPriceResponse{
		Output2: []kisDailyRow{{Date: "20250826", Open: "1", High: "2", Low: "1", Close: "2", Volume: "3", QuoteVolume: "4"}},
	}
	rows := resp.rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "20250826", rows[0].Date)
}
