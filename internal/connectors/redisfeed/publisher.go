package redisfeed

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/you/arb-scan/internal/config"
	"github.com/you/arb-scan/internal/types"
)

// Publisher pushes normalized rate updates and symbol metadata into Redis
// so scanners can run off a shared feed instead of their own WS connection.
type Publisher struct {
	rdb    *redis.Client
	stream string
	active string
	metaNS string
}

func NewPublisher(cfg *config.Config) *Publisher {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
	})
	return &Publisher{
		rdb:    rdb,
		stream: cfg.Redis.Stream,
		active: cfg.Redis.ActiveKey,
		metaNS: cfg.Redis.MetaNS,
	}
}

// UpsertSymbolMeta stores pair metadata and refreshes the active index.
func (p *Publisher) UpsertSymbolMeta(ctx context.Context, m types.SymbolMeta, tsMs int64) error {
	if err := p.rdb.HSet(ctx, p.metaNS+m.Symbol, map[string]interface{}{
		"symbol":       m.Symbol,
		"base":         m.Base,
		"quote":        m.Quote,
		"min_qty":      m.MinQty,
		"step_size":    m.StepSize,
		"min_notional": m.MinNotional,
		"ts_ms":        tsMs,
	}).Err(); err != nil {
		return err
	}
	return p.rdb.ZAdd(ctx, p.active, redis.Z{
		Score: float64(tsMs), Member: m.Symbol,
	}).Err()
}

// PublishRate appends one rate update to the stream.
func (p *Publisher) PublishRate(ctx context.Context, u types.RateUpdate) error {
	return p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: 100_000,
		Approx: true,
		Values: map[string]interface{}{
			"from":  u.From,
			"to":    u.To,
			"rate":  strconv.FormatFloat(u.Rate, 'g', -1, 64),
			"fee":   strconv.FormatFloat(u.FeeRate, 'g', -1, 64),
			"ts_ms": u.Ts.UnixMilli(),
		},
	}).Err()
}
