package discovery

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/you/arb-scan/internal/config"
	"github.com/you/arb-scan/internal/connectors/cex/binance"
	"github.com/you/arb-scan/internal/connectors/redisfeed"
	"github.com/you/arb-scan/internal/types"
	"go.uber.org/zap"
)

// Service selects the symbol universe to watch: the most liquid bases
// against the configured quote asset, plus every cross pair among them, so
// the graph actually contains multi-leg cycles and not just a star.
type Service struct {
	cfg *config.Config
	log *zap.Logger
	cex *binance.Client
	pub *redisfeed.Publisher // optional
}

func NewService(cfg *config.Config, cex *binance.Client, pub *redisfeed.Publisher, log *zap.Logger) *Service {
	return &Service{cfg: cfg, log: log, cex: cex, pub: pub}
}

// Discover fetches exchange metadata and 24h volumes, picks a ranked
// window of base assets, and returns every tradable pair spanned by the
// selected asset set.
func (s *Service) Discover(ctx context.Context) ([]types.SymbolMeta, error) {
	s.log.Info("starting symbol discovery")

	symbols, err := s.cex.FetchSymbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch symbols: %w", err)
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("empty symbol list from exchange")
	}

	tickers, err := s.cex.Ticker24h(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tickers: %w", err)
	}

	quote := s.cfg.Discovery.QuoteAsset

	type row struct {
		Base string
		QV   float64
	}
	rows := make([]row, 0, len(tickers))
	for _, t := range tickers {
		m, ok := symbols[t.Symbol]
		if !ok || m.Quote != quote {
			continue
		}
		qv := t.QuoteVolume
		if qv <= 0 && t.LastPrice > 0 && t.Volume > 0 {
			qv = t.LastPrice * t.Volume
		}
		if qv <= 0 {
			continue
		}
		rows = append(rows, row{Base: m.Base, QV: qv})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].QV > rows[j].QV })

	start := s.cfg.Discovery.FromRank - 1
	if start > len(rows) {
		start = len(rows)
	}
	end := s.cfg.Discovery.ToRank
	if end > len(rows) {
		end = len(rows)
	}
	if start > end {
		// inverted or out-of-range window selects nothing
		start = end
	}
	window := rows[start:end]
	if len(window) > s.cfg.Discovery.MaxSymbols {
		window = window[:s.cfg.Discovery.MaxSymbols]
	}
	s.log.Info("rank window",
		zap.Int("from", s.cfg.Discovery.FromRank),
		zap.Int("to", s.cfg.Discovery.ToRank),
		zap.Int("bases", len(window)),
	)
	if len(window) == 0 {
		return nil, fmt.Errorf("no bases in rank window for quote %s", quote)
	}

	assetSet := map[string]struct{}{
		quote:                  {},
		s.cfg.Engine.BaseAsset: {},
	}
	for _, r := range window {
		assetSet[r.Base] = struct{}{}
	}

	// every pair fully inside the asset set, cross pairs included
	selected := make([]types.SymbolMeta, 0, len(window)*2)
	for _, m := range symbols {
		if _, ok := assetSet[m.Base]; !ok {
			continue
		}
		if _, ok := assetSet[m.Quote]; !ok {
			continue
		}
		selected = append(selected, m)
	}
	sort.Slice(selected, func(i, j int) bool { return selected[i].Symbol < selected[j].Symbol })

	if s.pub != nil {
		nowMs := time.Now().UnixMilli()
		for _, m := range selected {
			if err := s.pub.UpsertSymbolMeta(ctx, m, nowMs); err != nil {
				s.log.Warn("failed to upsert symbol meta", zap.String("symbol", m.Symbol), zap.Error(err))
			}
		}
	}

	s.log.Info("symbol discovery finished", zap.Int("symbols", len(selected)))
	return selected, nil
}
