package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/you/arb-scan/internal/config"
	"github.com/you/arb-scan/internal/connectors/cex/binance"
	"github.com/you/arb-scan/internal/connectors/redisfeed"
	"github.com/you/arb-scan/internal/dash"
	"github.com/you/arb-scan/internal/discovery"
	"github.com/you/arb-scan/internal/engine"
	"github.com/you/arb-scan/internal/execution"
	"github.com/you/arb-scan/internal/feed"
	"github.com/you/arb-scan/internal/graph"
	"github.com/you/arb-scan/internal/metrics"
	"github.com/you/arb-scan/internal/risk"
	"github.com/you/arb-scan/internal/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

func newLogger() (*zap.Logger, error) {
	cfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(zap.DebugLevel),
		Development: false,
		Encoding:    "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stack",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.RFC3339TimeEncoder,
			EncodeDuration: zapcore.MillisDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return cfg.Build()
}

func main() {
	cfgPath := flag.String("config", "./config.yaml", "path to config file")
	feedMode := flag.String("feed", "ws", "rate source: ws (exchange stream) or redis (shared stream)")
	flag.Parse()

	_ = godotenv.Load()

	logger, err := newLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		logger.Warn("signal received, shutting down")
		cancel()
	}()

	metrics.Serve(ctx, cfg.Metrics.ListenAddr, nil, logger)

	board := dash.NewStore()
	board.Serve(ctx, cfg.Dash.ListenAddr, logger)

	cex, err := binance.NewClient(cfg, logger)
	if err != nil {
		logger.Fatal("binance init failed", zap.Error(err))
	}

	var pub *redisfeed.Publisher
	if cfg.Redis.Addr != "" {
		pub = redisfeed.NewPublisher(cfg)
	}

	disc := discovery.NewService(cfg, cex, pub, logger)
	metas, err := disc.Discover(ctx)
	if err != nil {
		logger.Fatal("symbol discovery failed", zap.Error(err))
	}
	if len(metas) == 0 {
		logger.Fatal("no tradable symbols discovered")
	}

	symbolMeta := make(map[string]types.SymbolMeta, len(metas))
	streamSymbols := make([]string, 0, len(metas))
	for _, m := range metas {
		symbolMeta[m.Symbol] = m
		streamSymbols = append(streamSymbols, m.Symbol)
	}
	logger.Info("symbols selected", zap.Int("count", len(streamSymbols)))

	g := graph.New(cfg.Engine.MaxPendingQueue)
	norm := feed.NewNormalizer(g, logger)
	eng := engine.New(cfg, g, board, logger)

	oppCh := make(chan types.Opportunity, 1024)
	fee := cfg.TakerFee()

	grp, gctx := errgroup.WithContext(ctx)

	switch *feedMode {
	case "redis":
		if cfg.Redis.Addr == "" {
			logger.Fatal("redis feed requested but redis.addr is empty")
		}
		cons := redisfeed.NewConsumer(cfg)
		if err := cons.EnsureGroup(ctx, "arb-scan"); err != nil {
			logger.Fatal("consumer group init failed", zap.Error(err))
		}
		rates := make(chan types.RateUpdate, 1024)
		grp.Go(func() error {
			return cons.StreamConsumeRates(gctx, "arb-scan", "scanner-1", rates)
		})
		grp.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case u := <-rates:
					if err := norm.Handle(u); err != nil {
						logger.Debug("update rejected", zap.Error(err))
					}
				}
			}
		})
	case "ws":
		ws := binance.NewWS(cfg.Binance.WsURL)
		ticks, err := ws.SubscribeBookTicker(ctx, streamSymbols)
		if err != nil {
			logger.Fatal("book ticker subscribe failed", zap.Error(err))
		}
		grp.Go(func() error {
			defer ws.Close()
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case t, ok := <-ticks:
					if !ok {
						logger.Warn("book ticker stream closed")
						return nil
					}
					meta, ok := symbolMeta[t.Symbol]
					if !ok {
						continue
					}
					for _, u := range feed.FromBookTicker(meta, t.Bid, t.Ask, fee, t.TS) {
						if err := norm.Handle(u); err != nil {
							logger.Debug("update rejected", zap.Error(err))
						}
					}
				}
			}
		})
	default:
		logger.Fatal("unknown feed mode", zap.String("feed", *feedMode))
	}

	grp.Go(func() error {
		eng.Run(gctx, oppCh)
		return nil
	})

	if cfg.DryRun {
		logger.Warn("DRY-RUN: no orders will be sent")
		grp.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case opp := <-oppCh:
					legs := make([]string, 0, len(opp.Cycle.Legs))
					for _, l := range opp.Cycle.Legs {
						legs = append(legs, l.From+">"+l.To)
					}
					logger.Info("opportunity",
						zap.String("cycle", opp.Identity),
						zap.Strings("legs", legs),
						zap.Float64("net_yield", opp.NetYield),
						zap.Float64("z_score", opp.ZScore),
						zap.Float64("confidence", opp.Confidence),
						zap.Int("samples", opp.Samples),
						zap.Time("ts", opp.Ts),
					)
				}
			}
		})
	} else {
		riskEng := risk.NewEngine(cfg)
		exec, err := execution.NewExecutor(cfg, cex, riskEng, symbolMeta, logger)
		if err != nil {
			logger.Fatal("executor init failed", zap.Error(err))
		}
		grp.Go(func() error {
			exec.Run(gctx, oppCh)
			return nil
		})
	}

	logger.Info("scanner started",
		zap.String("base_asset", cfg.Engine.BaseAsset),
		zap.Duration("scan_interval", cfg.ScanInterval()),
		zap.Bool("dry_run", cfg.DryRun),
	)

	if err := grp.Wait(); err != nil && err != context.Canceled {
		logger.Error("scanner stopped", zap.Error(err))
	}

	// drain window so in-flight logs land before Sync
	time.Sleep(100 * time.Millisecond)
}
