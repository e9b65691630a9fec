package engine

import (
	"context"
	"errors"
	"time"

	"github.com/you/arb-scan/internal/config"
	"github.com/you/arb-scan/internal/dash"
	"github.com/you/arb-scan/internal/detector"
	"github.com/you/arb-scan/internal/gate"
	"github.com/you/arb-scan/internal/graph"
	imetrics "github.com/you/arb-scan/internal/metrics"
	"github.com/you/arb-scan/internal/risk"
	"github.com/you/arb-scan/internal/scorer"
	"github.com/you/arb-scan/internal/types"
	"go.uber.org/zap"
)

// Engine drives the detect -> score -> decide sequence. One pass runs at a
// time; the feed side only touches the graph's pending queue, which the
// pass drains up front, so the detector always sees a frozen snapshot.
type Engine struct {
	cfg    *config.Config
	log    *zap.Logger
	graph  *graph.Graph
	scorer *scorer.Scorer
	gate   *gate.Gate
	board  *dash.Store // optional
}

func New(cfg *config.Config, g *graph.Graph, board *dash.Store, log *zap.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		log:    log,
		graph:  g,
		scorer: scorer.New(cfg, log),
		gate:   gate.New(cfg, risk.NewEngine(cfg), log),
		board:  board,
	}
}

// RunEvaluationPass performs one full graph-refresh + detect + score +
// decide cycle and returns the dispatched candidates. A pass-level error
// aborts only this pass's output; per-update feed errors never reach here.
func (e *Engine) RunEvaluationPass(ctx context.Context) ([]types.Opportunity, error) {
	start := time.Now()
	imetrics.PassesTotal.Inc()
	defer func() {
		imetrics.PassDuration.Observe(time.Since(start).Seconds())
	}()

	if _, err := e.graph.ApplyPendingUpdates(); err != nil {
		imetrics.PassErrors.Inc()
		return nil, err
	}
	imetrics.GraphEdges.Set(float64(e.graph.EdgeCount()))

	now := time.Now()
	snap := e.graph.Snapshot(now, e.cfg.MaxStaleness())
	imetrics.SnapshotEdges.Set(float64(len(snap.Edges)))
	if e.board != nil {
		e.board.UpdateEdges(snap, now)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cycles, err := detector.FindNegativeCycles(snap, e.cfg.Engine.BaseAsset, e.cfg.Engine.RelaxationEps)
	if err != nil {
		imetrics.PassErrors.Inc()
		return nil, err
	}
	imetrics.CyclesFound.Add(float64(len(cycles)))

	opps := make([]types.Opportunity, 0, len(cycles))
	bestYield := 0.0
	for _, c := range cycles {
		if e.cfg.Engine.MaxCycleLen > 0 && len(c.Legs) > e.cfg.Engine.MaxCycleLen {
			continue
		}
		o := e.scorer.Score(c, now)
		if o.NetYield > bestYield {
			bestYield = o.NetYield
		}
		opps = append(opps, o)
	}
	imetrics.BestNetYield.Set(bestYield)
	e.scorer.Evict(now)

	picked := e.gate.Decide(opps, now)
	imetrics.OppsDispatched.Add(float64(len(picked)))
	if e.board != nil {
		e.board.RecordOpportunities(picked)
	}
	return picked, nil
}

// Run executes one evaluation pass per tick and forwards dispatched
// candidates. Sends never block: a slow dispatcher drops candidates rather
// than stalling the scan loop.
func (e *Engine) Run(ctx context.Context, out chan<- types.Opportunity) {
	t := time.NewTicker(e.cfg.ScanInterval())
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			opps, err := e.RunEvaluationPass(ctx)
			if err != nil {
				switch {
				case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
					return
				case errors.Is(err, types.ErrDisconnectedBase):
					e.log.Warn("base asset disconnected; retrying next tick", zap.Error(err))
				default:
					e.log.Error("evaluation pass failed", zap.Error(err))
				}
				continue
			}
			for _, o := range opps {
				select {
				case out <- o:
				default:
					e.log.Warn("opportunity channel full; dropping", zap.String("cycle", o.Identity))
				}
			}
		}
	}
}
