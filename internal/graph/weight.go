package graph

import "math"

const (
	// maxWeight stands in when the effective rate is zero or broken.
	maxWeight = 230.0
	// minWeight caps -log on absurdly large rates.
	minWeight = -230.0
)

// Weight computes the Bellman-Ford edge weight for a quoted rate:
// -ln(rate * (1 - fee)). Summing weights over a cycle is equivalent to
// multiplying rates, so a negative cycle sum means the rate product
// exceeds 1 after fees.
func Weight(rate, fee float64) float64 {
	eff := rate * (1 - fee)
	if eff <= 0 || math.IsNaN(eff) {
		return maxWeight
	}
	if math.IsInf(eff, 1) {
		return minWeight
	}
	w := -math.Log(eff)
	if w > maxWeight {
		return maxWeight
	}
	if w < minWeight {
		return minWeight
	}
	return w
}

// Yield converts a summed cycle weight back to a multiplicative return.
func Yield(totalWeight float64) float64 {
	return math.Exp(-totalWeight)
}
