package scorer

import (
	"math"
	"time"

	"github.com/you/arb-scan/internal/config"
	"github.com/you/arb-scan/internal/graph"
	"github.com/you/arb-scan/internal/types"
	"go.uber.org/zap"
)

// stddev below this floor means the history is too flat to say anything;
// the opportunity is marked low-confidence instead of producing a huge z.
const stddevFloor = 1e-12

// HistoricalStat is the exponentially-weighted mean/variance of a cycle
// identity's net yield across passes.
type HistoricalStat struct {
	Mean     float64
	Var      float64
	Samples  int
	LastSeen time.Time
}

// Scorer annotates raw cycles with net yield, z-score against the cycle's
// own history, and a confidence grade. The stat table is single-writer:
// exactly one evaluation pass runs at a time (see engine).
type Scorer struct {
	cfg   *config.Config
	log   *zap.Logger
	stats map[string]*HistoricalStat
}

func New(cfg *config.Config, log *zap.Logger) *Scorer {
	return &Scorer{cfg: cfg, log: log, stats: make(map[string]*HistoricalStat, 128)}
}

// Score converts one raw cycle into an Opportunity. The z-score is computed
// against history as it stood before this observation; the observation is
// folded in afterwards.
func (s *Scorer) Score(c types.Cycle, now time.Time) types.Opportunity {
	id := c.Identity()
	yield := graph.Yield(c.RawWeight)

	st, ok := s.stats[id]
	if !ok {
		st = &HistoricalStat{Mean: yield}
		s.stats[id] = st
	}

	var z float64
	sd := math.Sqrt(st.Var)
	sufficient := st.Samples >= s.cfg.Scoring.MinSamples && sd >= stddevFloor
	if sufficient {
		z = (yield - st.Mean) / sd
	}

	opp := types.Opportunity{
		Cycle:      c,
		Identity:   id,
		NetYield:   yield,
		ZScore:     z,
		Confidence: s.confidence(c, st, sufficient, now),
		Samples:    st.Samples,
		Ts:         now,
	}

	s.update(st, yield, now)
	return opp
}

// update folds a new observation into the EWMA mean/variance.
func (s *Scorer) update(st *HistoricalStat, yield float64, now time.Time) {
	a := s.cfg.Scoring.HistoryDecay
	if st.Samples == 0 {
		st.Mean = yield
		st.Var = 0
	} else {
		d := yield - st.Mean
		st.Mean += a * d
		st.Var = (1 - a) * (st.Var + a*d*d)
	}
	st.Samples++
	st.LastSeen = now
}

// confidence blends history depth with edge freshness: a cycle whose worst
// leg is close to the staleness cutoff is graded down even with deep stats.
func (s *Scorer) confidence(c types.Cycle, st *HistoricalStat, sufficient bool, now time.Time) float64 {
	sampleFactor := float64(st.Samples) / float64(s.cfg.Scoring.MinSamples)
	if sampleFactor > 1 {
		sampleFactor = 1
	}
	if !sufficient && sampleFactor == 1 {
		// enough samples but degenerate variance
		sampleFactor = 0.5
	}

	var worstAge time.Duration
	for _, l := range c.Legs {
		if age := now.Sub(l.Ts); age > worstAge {
			worstAge = age
		}
	}
	ageFactor := 1.0
	if max := s.cfg.MaxStaleness(); max > 0 && worstAge > 0 {
		ageFactor = 1 - float64(worstAge)/float64(max)
		if ageFactor < 0 {
			ageFactor = 0
		}
	}
	return sampleFactor * ageFactor
}

// Evict drops stat entries not observed within the configured TTL, bounding
// table growth across long runs.
func (s *Scorer) Evict(now time.Time) int {
	ttl := s.cfg.StatTTL()
	evicted := 0
	for id, st := range s.stats {
		if now.Sub(st.LastSeen) > ttl {
			delete(s.stats, id)
			evicted++
		}
	}
	if evicted > 0 {
		s.log.Debug("evicted idle cycle stats", zap.Int("count", evicted))
	}
	return evicted
}

// StatCount reports the current size of the history table.
func (s *Scorer) StatCount() int { return len(s.stats) }
