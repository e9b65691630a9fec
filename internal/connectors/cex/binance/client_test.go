package binance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/you/arb-scan/internal/config"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, restURL string) *Client {
	cfg := &config.Config{}
	cfg.Binance.RestURL = restURL
	cfg.Binance.ApiKey = "test-key"
	cfg.Binance.ApiSecret = "test-secret"
	c, err := NewClient(cfg, zap.NewNop())
	assert.NoError(t, err)
	return c
}

func mockExchangeInfo(w http.ResponseWriter) {
	resp := map[string]any{
		"symbols": []map[string]any{
			{
				"symbol": "BTCUSDT", "status": "TRADING",
				"baseAsset": "BTC", "quoteAsset": "USDT",
				"isSpotTradingAllowed": true,
				"filters": []map[string]any{
					{"filterType": "LOT_SIZE", "minQty": "0.00001", "stepSize": "0.00001"},
					{"filterType": "NOTIONAL", "minNotional": "5"},
				},
			},
			{
				"symbol": "EURUSDT", "status": "TRADING",
				"baseAsset": "EUR", "quoteAsset": "USDT",
				"isSpotTradingAllowed": true,
			},
			{
				"symbol": "OLDUSDT", "status": "BREAK",
				"baseAsset": "OLD", "quoteAsset": "USDT",
				"isSpotTradingAllowed": true,
			},
			{
				"symbol": "MARGINUSDT", "status": "TRADING",
				"baseAsset": "MARGIN", "quoteAsset": "USDT",
				"isSpotTradingAllowed": false,
			},
		},
	}
	json.NewEncoder(w).Encode(resp)
}

func TestFetchSymbols_FiltersNonTradable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/exchangeInfo", r.URL.Path)
		mockExchangeInfo(w)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	out, err := c.FetchSymbols(context.Background())
	assert.NoError(t, err)
	assert.Len(t, out, 1)

	m := out["BTCUSDT"]
	assert.Equal(t, "BTC", m.Base)
	assert.Equal(t, "USDT", m.Quote)
	assert.Equal(t, 0.00001, m.MinQty)
	assert.Equal(t, 0.00001, m.StepSize)
	assert.Equal(t, 5.0, m.MinNotional)
}

func TestFetchSymbols_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).FetchSymbols(context.Background())
	assert.Error(t, err)
}

func TestBookTickers_SkipsEmptyBooks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]string{
			{"symbol": "BTCUSDT", "bidPrice": "50000.1", "askPrice": "50000.2"},
			{"symbol": "DEADUSDT", "bidPrice": "0", "askPrice": "0"},
		})
	}))
	defer srv.Close()

	out, err := newTestClient(t, srv.URL).BookTickers(context.Background())
	assert.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, "BTCUSDT", out[0].Symbol)
	assert.Equal(t, 50000.1, out[0].Bid)
	assert.Equal(t, 50000.2, out[0].Ask)
}

func TestPlaceMarketOrder_SignedAndParsed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/v3/order", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-MBX-APIKEY"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "ETHUSDT", r.PostForm.Get("symbol"))
		assert.Equal(t, "BUY", r.PostForm.Get("side"))
		assert.Equal(t, "100", r.PostForm.Get("quoteOrderQty"))
		assert.NotEmpty(t, r.PostForm.Get("signature"))

		json.NewEncoder(w).Encode(map[string]string{
			"status":              "FILLED",
			"executedQty":         "0.05",
			"cummulativeQuoteQty": "100.0",
		})
	}))
	defer srv.Close()

	status, base, quote, err := newTestClient(t, srv.URL).
		PlaceMarketOrder(context.Background(), "ETHUSDT", "BUY", 100, true)
	assert.NoError(t, err)
	assert.Equal(t, "FILLED", status)
	assert.Equal(t, 0.05, base)
	assert.Equal(t, 100.0, quote)
}
