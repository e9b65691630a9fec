package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/you/arb-scan/internal/config"
	"github.com/you/arb-scan/internal/types"
	"go.uber.org/zap"
)

// fiat quote markets are excluded from the graph: they are not freely
// cyclable through crypto legs and pollute the cycle search.
var fiatExclusion = map[string]struct{}{
	"EUR": {}, "GBP": {}, "AUD": {}, "BRL": {}, "TRY": {},
	"UAH": {}, "ZAR": {}, "JPY": {}, "PLN": {}, "ARS": {}, "NGN": {}, "RUB": {},
}

type Client struct {
	cfg  *config.Config
	log  *zap.Logger
	http *http.Client
}

func NewClient(cfg *config.Config, log *zap.Logger) (*Client, error) {
	return &Client{cfg: cfg, log: log, http: &http.Client{Timeout: 10 * time.Second}}, nil
}

type exchangeInfoResp struct {
	Symbols []struct {
		Symbol               string           `json:"symbol"`
		Status               string           `json:"status"`
		BaseAsset            string           `json:"baseAsset"`
		QuoteAsset           string           `json:"quoteAsset"`
		IsSpotTradingAllowed bool             `json:"isSpotTradingAllowed"`
		Filters              []map[string]any `json:"filters"`
	} `json:"symbols"`
}

// FetchSymbols returns metadata for all live spot pairs, fiat markets
// excluded. Lot-size and notional filters are carried so the executor can
// round quantities to exchange rules.
func (c *Client) FetchSymbols(ctx context.Context) (map[string]types.SymbolMeta, error) {
	var info exchangeInfoResp
	if err := c.getJSON(ctx, "/api/v3/exchangeInfo", &info); err != nil {
		return nil, fmt.Errorf("exchangeInfo: %w", err)
	}
	out := make(map[string]types.SymbolMeta, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.Status != "TRADING" || !s.IsSpotTradingAllowed {
			continue
		}
		if _, bad := fiatExclusion[s.BaseAsset]; bad {
			continue
		}
		if _, bad := fiatExclusion[s.QuoteAsset]; bad {
			continue
		}
		m := types.SymbolMeta{
			Symbol: s.Symbol,
			Base:   s.BaseAsset,
			Quote:  s.QuoteAsset,
		}
		for _, f := range s.Filters {
			switch f["filterType"] {
			case "LOT_SIZE":
				m.MinQty = toF(f["minQty"])
				m.StepSize = toF(f["stepSize"])
			case "NOTIONAL":
				m.MinNotional = toF(f["minNotional"])
			}
		}
		out[s.Symbol] = m
	}
	return out, nil
}

type bookTickerResp struct {
	Symbol   string `json:"symbol"`
	BidPrice string `json:"bidPrice"`
	AskPrice string `json:"askPrice"`
}

// BookTicker is the current best bid/ask for one symbol.
type BookTicker struct {
	Symbol string
	Bid    float64
	Ask    float64
}

// BookTickers fetches the best bid/ask for every symbol in one call.
func (c *Client) BookTickers(ctx context.Context) ([]BookTicker, error) {
	var arr []bookTickerResp
	if err := c.getJSON(ctx, "/api/v3/ticker/bookTicker", &arr); err != nil {
		return nil, fmt.Errorf("bookTicker: %w", err)
	}
	out := make([]BookTicker, 0, len(arr))
	for _, r := range arr {
		bid, _ := strconv.ParseFloat(r.BidPrice, 64)
		ask, _ := strconv.ParseFloat(r.AskPrice, 64)
		if bid == 0 && ask == 0 {
			continue
		}
		out = append(out, BookTicker{Symbol: r.Symbol, Bid: bid, Ask: ask})
	}
	return out, nil
}

type t24 struct {
	Symbol      string `json:"symbol"`
	LastPrice   string `json:"lastPrice"`
	Volume      string `json:"volume"`
	QuoteVolume string `json:"quoteVolume"`
}

// Ticker24h is a 24-hour rolling stat used for volume ranking.
type Ticker24h struct {
	Symbol      string
	LastPrice   float64
	Volume      float64
	QuoteVolume float64
}

func (c *Client) Ticker24h(ctx context.Context) ([]Ticker24h, error) {
	var arr []t24
	if err := c.getJSON(ctx, "/api/v3/ticker/24hr", &arr); err != nil {
		return nil, fmt.Errorf("ticker 24h: %w", err)
	}
	out := make([]Ticker24h, 0, len(arr))
	for _, r := range arr {
		out = append(out, Ticker24h{
			Symbol:      strings.ToUpper(strings.TrimSpace(r.Symbol)),
			LastPrice:   toFs(r.LastPrice),
			Volume:      toFs(r.Volume),
			QuoteVolume: toFs(r.QuoteVolume),
		})
	}
	return out, nil
}

// PlaceMarketOrder submits a signed market order. With quoteQty true the
// quantity is denominated in the quote asset (used when buying base with a
// quote-asset budget). Returns the exchange status plus executed base and
// quote amounts.
func (c *Client) PlaceMarketOrder(ctx context.Context, symbol, side string, qty float64, quoteQty bool) (status string, execBase, execQuote float64, err error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", side)
	params.Set("type", "MARKET")
	if quoteQty {
		params.Set("quoteOrderQty", trim(qty))
	} else {
		params.Set("quantity", trim(qty))
	}
	params.Set("timestamp", fmt.Sprintf("%d", time.Now().UnixMilli()))
	params.Set("recvWindow", "5000")
	params.Set("signature", c.sign(params.Encode()))

	endpoint := c.cfg.Binance.RestURL + "/api/v3/order"
	req, _ := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(params.Encode()))
	req.Header.Set("X-MBX-APIKEY", c.cfg.Binance.ApiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", 0, 0, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 {
		return "", 0, 0, fmt.Errorf("order %d: %s", resp.StatusCode, string(body))
	}

	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return "", 0, 0, err
	}
	status, _ = obj["status"].(string)
	if s, ok := obj["executedQty"].(string); ok {
		execBase = toFs(s)
	}
	if s, ok := obj["cummulativeQuoteQty"].(string); ok {
		execQuote = toFs(s)
	}
	c.log.Info("market order placed",
		zap.String("symbol", symbol),
		zap.String("side", side),
		zap.String("status", status),
		zap.Float64("executed_base", execBase),
		zap.Float64("executed_quote", execQuote),
	)
	return status, execBase, execQuote, nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	req, _ := http.NewRequestWithContext(ctx, "GET", c.cfg.Binance.RestURL+path, nil)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %d: %s", path, resp.StatusCode, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func (c *Client) sign(q string) string {
	mac := hmac.New(sha256.New, []byte(c.cfg.Binance.ApiSecret))
	mac.Write([]byte(q))
	return hex.EncodeToString(mac.Sum(nil))
}

func toF(v any) float64 {
	s, _ := v.(string)
	return toFs(s)
}

func toFs(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func trim(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.8f", v), "0"), ".")
}
