package risk

import (
	"github.com/you/arb-scan/internal/config"
	"github.com/you/arb-scan/internal/types"
)

// Engine holds the dispatch policy thresholds.
type Engine struct{ cfg *config.Config }

func NewEngine(cfg *config.Config) *Engine { return &Engine{cfg: cfg} }

// AllowDispatch requires a margin above break-even, a statistically unusual
// yield, and enough confidence in the underlying quotes.
func (e *Engine) AllowDispatch(o types.Opportunity) bool {
	if o.NetYield <= 1+e.cfg.Risk.MinMargin {
		return false
	}
	if o.ZScore < e.cfg.Risk.ZScoreThreshold {
		return false
	}
	if o.Confidence < e.cfg.Risk.MinConfidence {
		return false
	}
	return true
}
