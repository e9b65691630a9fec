package redisfeed

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/you/arb-scan/internal/config"
	"github.com/you/arb-scan/internal/types"
)

type Consumer struct {
	rdb        *redis.Client
	activeKey  string
	metaNS     string
	streamName string
}

// NewConsumer initializes the client with the configured key names.
func NewConsumer(cfg *config.Config) *Consumer {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
	})
	return &Consumer{
		rdb:        rdb,
		activeKey:  cfg.Redis.ActiveKey,
		metaNS:     cfg.Redis.MetaNS,
		streamName: cfg.Redis.Stream,
	}
}

// EnsureGroup creates the stream consumer group if it does not exist yet.
func (c *Consumer) EnsureGroup(ctx context.Context, group string) error {
	err := c.rdb.XGroupCreateMkStream(ctx, c.streamName, group, "$").Err()
	if err != nil && strings.Contains(err.Error(), "BUSYGROUP") {
		return nil
	}
	return err
}

// ReadSymbolMeta reads the HASH symbol:meta:<SYMBOL>.
func (c *Consumer) ReadSymbolMeta(ctx context.Context, symbol string) (types.SymbolMeta, error) {
	m, err := c.rdb.HGetAll(ctx, c.metaNS+symbol).Result()
	if err != nil {
		return types.SymbolMeta{}, err
	}
	if len(m) == 0 {
		return types.SymbolMeta{}, redis.Nil
	}
	return types.SymbolMeta{
		Symbol:      m["symbol"],
		Base:        m["base"],
		Quote:       m["quote"],
		MinQty:      toF(m["min_qty"]),
		StepSize:    toF(m["step_size"]),
		MinNotional: toF(m["min_notional"]),
	}, nil
}

// RecentSymbols returns symbols from the active ZSET newer than sinceMs.
func (c *Consumer) RecentSymbols(ctx context.Context, sinceMs int64) ([]string, error) {
	return c.rdb.ZRangeByScore(ctx, c.activeKey, &redis.ZRangeBy{
		Min: strconv.FormatInt(sinceMs, 10),
		Max: "+inf",
	}).Result()
}

// StreamConsumeRates reads rate updates from the stream via a consumer
// group and forwards valid ones. Create the group once:
// XGROUP CREATE rate:stream feed $ MKSTREAM
func (c *Consumer) StreamConsumeRates(ctx context.Context, group, consumer string, out chan<- types.RateUpdate) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: consumer,
			Streams:  []string{c.streamName, ">"},
			Count:    200,
			Block:    time.Second,
		}).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			time.Sleep(200 * time.Millisecond)
			continue
		}
		for _, s := range streams {
			for _, m := range s.Messages {
				u := types.RateUpdate{}
				if v, ok := m.Values["from"].(string); ok {
					u.From = v
				}
				if v, ok := m.Values["to"].(string); ok {
					u.To = v
				}
				if v, ok := m.Values["rate"].(string); ok {
					u.Rate = toF(v)
				}
				if v, ok := m.Values["fee"].(string); ok {
					u.FeeRate = toF(v)
				}
				if v, ok := m.Values["ts_ms"].(string); ok {
					if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
						u.Ts = time.UnixMilli(ms)
					}
				}
				if u.From != "" && u.To != "" {
					select {
					case out <- u:
					case <-ctx.Done():
						return ctx.Err()
					}
				}
				_ = c.rdb.XAck(ctx, c.streamName, group, m.ID).Err()
			}
		}
	}
}

func toF(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
