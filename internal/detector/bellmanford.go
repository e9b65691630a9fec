package detector

import (
	"fmt"
	"math"
	"sort"

	"github.com/you/arb-scan/internal/graph"
	"github.com/you/arb-scan/internal/types"
)

// FindNegativeCycles runs Bellman-Ford over the snapshot with distances
// seeded at the base asset and extracts every negative cycle it can reach.
//
// Snapshot edges are pre-sorted by (from, to), so relaxation order is fixed
// and equal-improvement ties always resolve to the lexicographically
// smaller edge: results are reproducible for a given snapshot. An edge only
// relaxes when the improvement exceeds eps, which keeps floating-point
// noise on true product-1.0 cycles from surfacing as arbitrage.
//
// Returns an empty slice when no negative cycle exists and
// ErrDisconnectedBase when the base has no live outgoing edge.
func FindNegativeCycles(snap *graph.Snapshot, base string, eps float64) ([]types.Cycle, error) {
	n := len(snap.Vertices)
	baseIdx, ok := snap.VertexIndex(base)
	if !ok || snap.OutDegree(base) == 0 {
		return nil, fmt.Errorf("%w: %s", types.ErrDisconnectedBase, base)
	}
	if eps <= 0 {
		eps = 1e-9
	}

	dist := make([]float64, n)
	pred := make([]int, n) // index into snap.Edges, -1 = unset
	for i := range dist {
		dist[i] = math.Inf(1)
		pred[i] = -1
	}
	dist[baseIdx] = 0

	from := make([]int, len(snap.Edges))
	to := make([]int, len(snap.Edges))
	for i, e := range snap.Edges {
		from[i], _ = snap.VertexIndex(e.From)
		to[i], _ = snap.VertexIndex(e.To)
	}

	// |V|-1 guaranteed rounds, with early exit once nothing relaxes
	for round := 0; round < n-1; round++ {
		updated := false
		for i := range snap.Edges {
			u, v := from[i], to[i]
			if math.IsInf(dist[u], 1) {
				continue
			}
			if dist[u]+snap.Edges[i].Weight < dist[v]-eps {
				dist[v] = dist[u] + snap.Edges[i].Weight
				pred[v] = i
				updated = true
			}
		}
		if !updated {
			break
		}
	}

	// the |V|-th round: any edge still relaxing sits on, or leads into,
	// a negative cycle
	var flagged []int
	flaggedSet := make([]bool, n)
	for i := range snap.Edges {
		u, v := from[i], to[i]
		if math.IsInf(dist[u], 1) {
			continue
		}
		if dist[u]+snap.Edges[i].Weight < dist[v]-eps {
			if pred[v] == -1 {
				pred[v] = i
			}
			if !flaggedSet[v] {
				flaggedSet[v] = true
				flagged = append(flagged, v)
			}
		}
	}

	seen := make(map[string]bool)
	var cycles []types.Cycle
	for _, v := range flagged {
		legs := extractCycle(snap, pred, from, v)
		if legs == nil {
			continue
		}
		c := types.Cycle{Legs: legs}
		for _, l := range legs {
			c.RawWeight += l.Weight
		}
		id := c.Identity()
		if seen[id] {
			continue
		}
		seen[id] = true
		cycles = append(cycles, c)
	}

	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i].Identity() < cycles[j].Identity()
	})
	return cycles, nil
}

// extractCycle walks predecessor links backward from start until a vertex
// repeats, then collects the loop. Iterative and bounded by the vertex
// count, never recursive. Cycles of length <= 2 are discarded: a two-edge
// out-and-back is a quoted spread, not an arbitrage loop.
func extractCycle(snap *graph.Snapshot, pred, from []int, start int) []types.Leg {
	n := len(snap.Vertices)

	// locate a vertex that is provably on the cycle
	onCycle := -1
	visited := make([]bool, n)
	cur := start
	for pred[cur] != -1 {
		if visited[cur] {
			onCycle = cur
			break
		}
		visited[cur] = true
		cur = from[pred[cur]]
	}
	if onCycle == -1 {
		return nil
	}

	// collect the loop, walking backward until the repeat closes it
	var legs []types.Leg
	walked := make([]bool, n)
	cur = onCycle
	for pred[cur] != -1 && !walked[cur] {
		walked[cur] = true
		e := snap.Edges[pred[cur]]
		legs = append(legs, types.Leg{From: e.From, To: e.To, Rate: e.Rate, Weight: e.Weight, Ts: e.Ts})
		cur = from[pred[cur]]
	}
	if len(legs) <= 2 {
		return nil
	}

	// predecessor order is reversed relative to trade order
	for i, j := 0, len(legs)-1; i < j; i, j = i+1, j-1 {
		legs[i], legs[j] = legs[j], legs[i]
	}
	return legs
}
