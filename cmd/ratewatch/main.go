package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/you/arb-scan/internal/config"
	"github.com/you/arb-scan/internal/connectors/cex/binance"
	"github.com/you/arb-scan/internal/connectors/redisfeed"
	"github.com/you/arb-scan/internal/feed"
	"go.uber.org/zap"
)

// ratewatch subscribes to the live book-ticker stream for the configured
// symbol window and mirrors the normalized from/to rates into the Redis
// stream, so a detached scanner instance can consume them later.
func main() {
	var cfgPath string
	var symbolsFlag string
	var publish bool

	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config file")
	flag.StringVar(&symbolsFlag, "symbols", "", "comma-separated symbols (default: discovery window)")
	flag.BoolVar(&publish, "publish", true, "publish rates to redis stream")
	flag.Parse()

	_ = godotenv.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		<-ch
		fmt.Println("[sys] shutdown signal, stopping")
		cancel()
	}()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}
	logger := zap.NewNop()

	cex, err := binance.NewClient(cfg, logger)
	if err != nil {
		panic(err)
	}

	fmt.Println("[binance] GET /api/v3/exchangeInfo ...")
	metas, err := cex.FetchSymbols(ctx)
	if err != nil {
		panic(err)
	}
	fmt.Printf("[binance] %d tradable spot symbols\n", len(metas))

	var watch []string
	if symbolsFlag != "" {
		for _, s := range strings.Split(symbolsFlag, ",") {
			s = strings.ToUpper(strings.TrimSpace(s))
			if _, ok := metas[s]; !ok {
				fmt.Printf("[warn] %s is not a tradable spot symbol, skipping\n", s)
				continue
			}
			watch = append(watch, s)
		}
	} else {
		for sym := range metas {
			if strings.HasSuffix(sym, cfg.Discovery.QuoteAsset) {
				watch = append(watch, sym)
			}
			if len(watch) >= cfg.Discovery.MaxSymbols {
				break
			}
		}
	}
	if len(watch) == 0 {
		fmt.Println("[err] nothing to watch")
		return
	}
	fmt.Printf("[watch] %d symbols: %s\n", len(watch), strings.Join(watch, " "))

	var pub *redisfeed.Publisher
	if publish && cfg.Redis.Addr != "" {
		pub = redisfeed.NewPublisher(cfg)
		nowMs := time.Now().UnixMilli()
		for _, sym := range watch {
			if err := pub.UpsertSymbolMeta(ctx, metas[sym], nowMs); err != nil {
				fmt.Printf("[redis] UpsertSymbolMeta %s: %v\n", sym, err)
			}
		}
		fmt.Printf("[redis] %d symbol metas published to %s\n", len(watch), cfg.Redis.Addr)
	} else {
		fmt.Println("[redis] publishing disabled")
	}

	ws := binance.NewWS(cfg.Binance.WsURL)
	ticks, err := ws.SubscribeBookTicker(ctx, watch)
	if err != nil {
		panic(err)
	}
	defer ws.Close()

	fee := cfg.TakerFee()
	var published, printed int64
	lastReport := time.Now()

	for {
		select {
		case <-ctx.Done():
			fmt.Printf("[done] %d updates published\n", published)
			return
		case t, ok := <-ticks:
			if !ok {
				fmt.Println("[ws] stream closed")
				return
			}
			meta := metas[t.Symbol]
			for _, u := range feed.FromBookTicker(meta, t.Bid, t.Ask, fee, t.TS) {
				if pub != nil {
					if err := pub.PublishRate(ctx, u); err != nil {
						fmt.Printf("[redis] PublishRate %s>%s: %v\n", u.From, u.To, err)
						continue
					}
					published++
				}
				if printed < 20 {
					fmt.Printf("[rate] %-6s > %-6s %.10g\n", u.From, u.To, u.Rate)
					printed++
				}
			}
			if time.Since(lastReport) > 10*time.Second {
				fmt.Printf("[stat] published=%d\n", published)
				lastReport = time.Now()
			}
		}
	}
}
