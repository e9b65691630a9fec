package binance

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Ticker is one best bid/ask update from the stream.
type Ticker struct {
	Symbol string
	Bid    float64
	Ask    float64
	TS     time.Time
}

type WS struct {
	URL    string
	Dialer *websocket.Dialer
	conn   *websocket.Conn
	mu     sync.Mutex
}

func NewWS(url string) *WS {
	return &WS{
		URL: strings.TrimRight(url, "/"),
		Dialer: &websocket.Dialer{
			HandshakeTimeout:  15 * time.Second,
			EnableCompression: true,
		},
	}
}

func (w *WS) connect(ctx context.Context, streamPath string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		return nil
	}
	c, _, err := w.Dialer.DialContext(ctx, w.URL+streamPath, nil)
	if err != nil {
		return err
	}
	w.conn = c

	// Binance pings every few minutes; the default gorilla ping handler
	// answers with a pong, we just keep pushing the read deadline.
	_ = w.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	w.conn.SetPingHandler(func(data string) error {
		_ = w.conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second))
		return w.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	})
	return nil
}

func (w *WS) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		return w.conn.Close()
	}
	return nil
}

type combinedFrame struct {
	Stream string `json:"stream"`
	Data   struct {
		Symbol string `json:"s"`
		Bid    string `json:"b"`
		Ask    string `json:"a"`
	} `json:"data"`
}

// SubscribeBookTicker opens the combined bookTicker stream for the given
// symbols and returns a channel of parsed updates. The channel closes on
// read error or context cancellation; the caller owns reconnect policy.
func (w *WS) SubscribeBookTicker(ctx context.Context, symbols []string) (<-chan Ticker, error) {
	streams := make([]string, 0, len(symbols))
	for _, s := range symbols {
		streams = append(streams, strings.ToLower(s)+"@bookTicker")
	}
	path := "/stream?streams=" + strings.Join(streams, "/")
	if err := w.connect(ctx, path); err != nil {
		return nil, err
	}

	out := make(chan Ticker, 1024)

	go func() {
		defer close(out)
		defer w.Close()

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			msgType, data, err := w.conn.ReadMessage()
			if err != nil {
				return
			}
			_ = w.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
			if msgType != websocket.TextMessage {
				continue
			}

			var f combinedFrame
			if err := json.Unmarshal(data, &f); err != nil {
				continue
			}
			if f.Data.Symbol == "" {
				continue
			}
			bid, _ := strconv.ParseFloat(f.Data.Bid, 64)
			ask, _ := strconv.ParseFloat(f.Data.Ask, 64)
			if bid == 0 && ask == 0 {
				continue
			}

			out <- Ticker{
				Symbol: strings.ToUpper(f.Data.Symbol),
				Bid:    bid,
				Ask:    ask,
				TS:     time.Now(),
			}
		}
	}()

	return out, nil
}
