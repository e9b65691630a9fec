package types

import (
	"strings"
	"time"
)

// RateUpdate is one raw feed event: an observed exchange rate from one asset
// to another, with the taker fee charged on that conversion.
type RateUpdate struct {
	From    string
	To      string
	Rate    float64
	FeeRate float64
	Ts      time.Time
}

// Leg is a single traded transition inside a cycle.
type Leg struct {
	From   string
	To     string
	Rate   float64 // effective rate after fees
	Weight float64 // -ln(effective rate)
	Ts     time.Time
}

// Cycle is an ordered asset loop v0->v1->...->v0 backed by live edges.
// Cycles are ephemeral: built by the detector, consumed by the scorer.
type Cycle struct {
	Legs      []Leg
	RawWeight float64 // sum of leg weights; negative => arbitrage
}

// Assets returns the asset sequence including the closing repeat of v0.
func (c Cycle) Assets() []string {
	if len(c.Legs) == 0 {
		return nil
	}
	out := make([]string, 0, len(c.Legs)+1)
	for _, l := range c.Legs {
		out = append(out, l.From)
	}
	out = append(out, c.Legs[len(c.Legs)-1].To)
	return out
}

// Identity returns a rotation-normalized key: the cycle rotated so it starts
// at its lexicographically smallest asset. B->C->A->B and A->B->C->A map to
// the same identity. Used for dedup and cooldown bookkeeping.
func (c Cycle) Identity() string {
	n := len(c.Legs)
	if n == 0 {
		return ""
	}
	start := 0
	for i := 1; i < n; i++ {
		if c.Legs[i].From < c.Legs[start].From {
			start = i
		}
	}
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString(c.Legs[(start+i)%n].From)
		b.WriteByte('>')
	}
	b.WriteString(c.Legs[start].From)
	return b.String()
}

// Opportunity is a scored cycle ready for the decision gate.
type Opportunity struct {
	Cycle      Cycle
	Identity   string
	NetYield   float64 // multiplicative return after fees, >1 is profit
	ZScore     float64
	Confidence float64 // 0..1
	Samples    int     // history observations behind the z-score
	Ts         time.Time
}

// SymbolMeta describes one tradable pair as reported by the exchange.
type SymbolMeta struct {
	Symbol      string
	Base        string
	Quote       string
	MinQty      float64
	StepSize    float64
	MinNotional float64
}
