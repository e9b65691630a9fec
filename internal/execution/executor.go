package execution

import (
	"context"
	"fmt"
	"math"

	"github.com/you/arb-scan/internal/config"
	"github.com/you/arb-scan/internal/types"
	"go.uber.org/zap"
)

type cexIface interface {
	PlaceMarketOrder(ctx context.Context, symbol, side string, qty float64, quoteQty bool) (status string, execBase, execQuote float64, err error)
}

type Risk interface {
	AllowDispatch(o types.Opportunity) bool
}

// Executor turns an approved opportunity into a sequence of market orders,
// one per cycle leg. Fire-and-forget from the engine's point of view: a
// failed leg aborts the remaining sequence and is logged, the scan loop is
// never blocked on settlement.
type Executor struct {
	cfg     *config.Config
	cex     cexIface
	risk    Risk
	log     *zap.Logger
	symbols map[string]types.SymbolMeta
}

func NewExecutor(cfg *config.Config, cex cexIface, risk Risk, symbols map[string]types.SymbolMeta, log *zap.Logger) (*Executor, error) {
	if cex == nil {
		return nil, fmt.Errorf("executor requires an exchange client")
	}
	return &Executor{cfg: cfg, cex: cex, risk: risk, log: log, symbols: symbols}, nil
}

func (e *Executor) Run(ctx context.Context, in <-chan types.Opportunity) {
	for {
		select {
		case <-ctx.Done():
			return
		case opp := <-in:
			if e.risk != nil && !e.risk.AllowDispatch(opp) {
				continue
			}
			if err := e.executeCycle(ctx, opp); err != nil {
				e.log.Error("cycle execution failed",
					zap.String("cycle", opp.Identity),
					zap.Error(err),
				)
			}
		}
	}
}

// executeCycle walks the legs in trade order, feeding each fill into the
// next leg's budget the way the quoted cycle implies.
func (e *Executor) executeCycle(ctx context.Context, opp types.Opportunity) error {
	amount := e.cfg.Trade.BudgetUSD
	e.log.Info("executing cycle",
		zap.String("cycle", opp.Identity),
		zap.Float64("expected_yield", opp.NetYield),
		zap.Float64("budget", amount),
	)

	for i, leg := range opp.Cycle.Legs {
		symbol, forward, err := e.resolveSymbol(leg.From, leg.To)
		if err != nil {
			return fmt.Errorf("leg %d: %w", i, err)
		}

		var status string
		var execBase, execQuote float64
		if forward {
			// selling leg.From (market base) into leg.To
			qty := e.roundStep(symbol, amount)
			if qty <= 0 {
				return fmt.Errorf("leg %d %s: quantity rounds to zero", i, symbol)
			}
			status, execBase, execQuote, err = e.cex.PlaceMarketOrder(ctx, symbol, "SELL", qty, false)
			amount = execQuote
			_ = execBase
		} else {
			// buying leg.To (market base) spending leg.From as quote qty
			status, execBase, _, err = e.cex.PlaceMarketOrder(ctx, symbol, "BUY", amount, true)
			amount = execBase
		}
		if err != nil {
			return fmt.Errorf("leg %d %s: %w", i, symbol, err)
		}
		if status != "FILLED" || amount <= 0 {
			return fmt.Errorf("leg %d %s: not filled (status %s)", i, symbol, status)
		}
		e.log.Info("leg filled",
			zap.Int("leg", i),
			zap.String("symbol", symbol),
			zap.Float64("amount_out", amount),
		)
	}

	e.log.Info("cycle executed",
		zap.String("cycle", opp.Identity),
		zap.Float64("final_amount", amount),
		zap.Float64("start_budget", e.cfg.Trade.BudgetUSD),
	)
	return nil
}

// resolveSymbol finds the market for a from->to transition. Forward means
// the market's base asset is the leg's from side (a SELL crosses the leg).
func (e *Executor) resolveSymbol(from, to string) (symbol string, forward bool, err error) {
	if m, ok := e.symbols[from+to]; ok {
		return m.Symbol, true, nil
	}
	if m, ok := e.symbols[to+from]; ok {
		return m.Symbol, false, nil
	}
	return "", false, fmt.Errorf("no market for %s->%s", from, to)
}

// roundStep floors a base quantity to the symbol's lot step.
func (e *Executor) roundStep(symbol string, qty float64) float64 {
	m, ok := e.symbols[symbol]
	if !ok || m.StepSize <= 0 {
		return qty
	}
	stepped := math.Floor(qty/m.StepSize) * m.StepSize
	if stepped < m.MinQty {
		return 0
	}
	return stepped
}
