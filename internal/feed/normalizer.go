package feed

import (
	"fmt"
	"math"
	"time"

	"github.com/you/arb-scan/internal/graph"
	imetrics "github.com/you/arb-scan/internal/metrics"
	"github.com/you/arb-scan/internal/types"
	"go.uber.org/zap"
)

// Normalizer turns raw rate updates into weighted graph edges. It only
// writes to the graph's pending queue; the live structure is mutated by the
// engine at the start of a pass.
type Normalizer struct {
	g   *graph.Graph
	log *zap.Logger
}

func NewNormalizer(g *graph.Graph, log *zap.Logger) *Normalizer {
	return &Normalizer{g: g, log: log}
}

// Handle validates one update and queues the corresponding edge.
// Returns ErrInvalidRate for rate <= 0 or fee outside [0,1); the caller is
// expected to drop the single update and keep consuming.
func (n *Normalizer) Handle(u types.RateUpdate) error {
	if u.Rate <= 0 || math.IsNaN(u.Rate) || math.IsInf(u.Rate, 0) {
		imetrics.FeedErrors.Inc()
		return fmt.Errorf("%w: %s->%s rate %v", types.ErrInvalidRate, u.From, u.To, u.Rate)
	}
	if u.FeeRate < 0 || u.FeeRate >= 1 {
		imetrics.FeedErrors.Inc()
		return fmt.Errorf("%w: %s->%s fee %v", types.ErrInvalidRate, u.From, u.To, u.FeeRate)
	}
	ts := u.Ts
	if ts.IsZero() {
		ts = time.Now()
	}
	n.g.Push(graph.Edge{
		From:   u.From,
		To:     u.To,
		Rate:   u.Rate * (1 - u.FeeRate),
		Fee:    u.FeeRate,
		Weight: graph.Weight(u.Rate, u.FeeRate),
		Ts:     ts,
	})
	imetrics.FeedUpdates.Inc()
	return nil
}

// HandlePair queues both directions for a last-price quote: (rate) and
// (1/rate), each charged the same fee.
func (n *Normalizer) HandlePair(u types.RateUpdate) error {
	if err := n.Handle(u); err != nil {
		return err
	}
	return n.Handle(types.RateUpdate{
		From:    u.To,
		To:      u.From,
		Rate:    1 / u.Rate,
		FeeRate: u.FeeRate,
		Ts:      u.Ts,
	})
}

// FromBookTicker maps a best bid/ask quote for one symbol onto the two
// directed edges it implies: selling base into quote crosses the bid,
// buying base with quote crosses the ask.
func FromBookTicker(meta types.SymbolMeta, bid, ask, fee float64, ts time.Time) []types.RateUpdate {
	out := make([]types.RateUpdate, 0, 2)
	if bid > 0 {
		out = append(out, types.RateUpdate{From: meta.Base, To: meta.Quote, Rate: bid, FeeRate: fee, Ts: ts})
	}
	if ask > 0 {
		out = append(out, types.RateUpdate{From: meta.Quote, To: meta.Base, Rate: 1 / ask, FeeRate: fee, Ts: ts})
	}
	return out
}
