package redisfeed

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/you/arb-scan/internal/config"
	"github.com/you/arb-scan/internal/types"
)

func newTestConfig(addr string) *config.Config {
	return &config.Config{
		Redis: config.RedisCfg{
			Addr:      addr,
			Stream:    "rate:stream",
			ActiveKey: "symbol:active",
			MetaNS:    "symbol:meta:",
		},
	}
}

func TestSymbolMetaRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := newTestConfig(mr.Addr())
	pub := NewPublisher(cfg)
	cons := NewConsumer(cfg)
	ctx := context.Background()

	meta := types.SymbolMeta{
		Symbol:      "ETHUSDT",
		Base:        "ETH",
		Quote:       "USDT",
		MinQty:      0.0001,
		StepSize:    0.0001,
		MinNotional: 5,
	}
	nowMs := time.Now().UnixMilli()
	assert.NoError(t, pub.UpsertSymbolMeta(ctx, meta, nowMs))

	got, err := cons.ReadSymbolMeta(ctx, "ETHUSDT")
	assert.NoError(t, err)
	assert.Equal(t, meta, got)

	recent, err := cons.RecentSymbols(ctx, nowMs-1000)
	assert.NoError(t, err)
	assert.Contains(t, recent, "ETHUSDT")

	stale, err := cons.RecentSymbols(ctx, nowMs+1000)
	assert.NoError(t, err)
	assert.Empty(t, stale)
}

func TestReadSymbolMeta_Missing(t *testing.T) {
	mr := miniredis.RunT(t)
	cons := NewConsumer(newTestConfig(mr.Addr()))

	_, err := cons.ReadSymbolMeta(context.Background(), "NOPE")
	assert.ErrorIs(t, err, redis.Nil)
}

func TestEnsureGroup_Idempotent(t *testing.T) {
	mr := miniredis.RunT(t)
	cons := NewConsumer(newTestConfig(mr.Addr()))
	ctx := context.Background()

	assert.NoError(t, cons.EnsureGroup(ctx, "feed"))
	assert.NoError(t, cons.EnsureGroup(ctx, "feed"))
}

func TestStreamConsumeRates_StopsOnCancelWithStuckReceiver(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := newTestConfig(mr.Addr())
	pub := NewPublisher(cfg)
	cons := NewConsumer(cfg)
	ctx, cancel := context.WithCancel(context.Background())

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	assert.NoError(t, rdb.XGroupCreateMkStream(ctx, cfg.Redis.Stream, "feed", "0").Err())
	for i := 0; i < 3; i++ {
		assert.NoError(t, pub.PublishRate(ctx, types.RateUpdate{From: "ETH", To: "USDT", Rate: 2000, Ts: time.Now()}))
	}

	// nobody ever reads: the consumer must still unblock on cancellation
	out := make(chan types.RateUpdate)
	done := make(chan error, 1)
	go func() {
		done <- cons.StreamConsumeRates(ctx, "feed", "c1", out)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("consumer did not stop on context cancellation")
	}
}

func TestPublishAndConsumeRates(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := newTestConfig(mr.Addr())
	pub := NewPublisher(cfg)
	cons := NewConsumer(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// group rooted at 0 so pre-published entries are delivered
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	assert.NoError(t, rdb.XGroupCreateMkStream(ctx, cfg.Redis.Stream, "feed", "0").Err())

	ts := time.UnixMilli(time.Now().UnixMilli())
	sent := types.RateUpdate{From: "ETH", To: "USDT", Rate: 2000.5, FeeRate: 0.001, Ts: ts}
	assert.NoError(t, pub.PublishRate(ctx, sent))

	out := make(chan types.RateUpdate, 8)
	go func() {
		_ = cons.StreamConsumeRates(ctx, "feed", "c1", out)
	}()

	select {
	case got := <-out:
		assert.Equal(t, sent.From, got.From)
		assert.Equal(t, sent.To, got.To)
		assert.InDelta(t, sent.Rate, got.Rate, 1e-9)
		assert.InDelta(t, sent.FeeRate, got.FeeRate, 1e-12)
		assert.Equal(t, ts.UnixMilli(), got.Ts.UnixMilli())
	case <-time.After(3 * time.Second):
		t.Fatal("expected a rate update from the stream")
	}
}
