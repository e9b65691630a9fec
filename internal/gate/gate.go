package gate

import (
	"sort"
	"time"

	"github.com/you/arb-scan/internal/config"
	"github.com/you/arb-scan/internal/risk"
	"github.com/you/arb-scan/internal/types"
	"go.uber.org/zap"
)

// Gate is the last stage before dispatch: it deduplicates overlapping
// cycles, applies the risk policy, suppresses identities inside their
// cooldown window, and emits at most top-K candidates per pass.
type Gate struct {
	cfg      *config.Config
	risk     *risk.Engine
	log      *zap.Logger
	cooldown map[string]time.Time // identity -> cooldown expiry
}

func New(cfg *config.Config, riskEng *risk.Engine, log *zap.Logger) *Gate {
	return &Gate{
		cfg:      cfg,
		risk:     riskEng,
		log:      log,
		cooldown: make(map[string]time.Time, 64),
	}
}

// Decide filters and ranks one pass's opportunities. Identities of the
// returned candidates enter cooldown immediately: a persistent quote glitch
// cannot re-fire every tick.
func (g *Gate) Decide(opps []types.Opportunity, now time.Time) []types.Opportunity {
	g.expire(now)

	// overlapping cycles canonicalize to one identity; keep the best yield
	best := make(map[string]types.Opportunity, len(opps))
	for _, o := range opps {
		if cur, ok := best[o.Identity]; !ok || o.NetYield > cur.NetYield {
			best[o.Identity] = o
		}
	}

	survivors := make([]types.Opportunity, 0, len(best))
	for id, o := range best {
		if until, cooling := g.cooldown[id]; cooling && now.Before(until) {
			continue
		}
		if !g.risk.AllowDispatch(o) {
			continue
		}
		survivors = append(survivors, o)
	}

	sort.Slice(survivors, func(i, j int) bool {
		if survivors[i].NetYield != survivors[j].NetYield {
			return survivors[i].NetYield > survivors[j].NetYield
		}
		return survivors[i].Identity < survivors[j].Identity
	})

	k := g.cfg.Risk.TopK
	if k <= 0 {
		k = 1
	}
	if len(survivors) > k {
		survivors = survivors[:k]
	}

	for _, o := range survivors {
		g.cooldown[o.Identity] = now.Add(g.cfg.Cooldown())
		g.log.Info("opportunity cleared gate",
			zap.String("cycle", o.Identity),
			zap.Float64("net_yield", o.NetYield),
			zap.Float64("z_score", o.ZScore),
			zap.Float64("confidence", o.Confidence),
		)
	}
	return survivors
}

// Cooling reports whether an identity is currently suppressed.
func (g *Gate) Cooling(identity string, now time.Time) bool {
	until, ok := g.cooldown[identity]
	return ok && now.Before(until)
}

func (g *Gate) expire(now time.Time) {
	for id, until := range g.cooldown {
		if !now.Before(until) {
			delete(g.cooldown, id)
		}
	}
}
