package graph

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/you/arb-scan/internal/types"
)

type edgeKey struct {
	From, To string
}

// Edge is one directed tradable transition with its current quote.
type Edge struct {
	From   string
	To     string
	Rate   float64 // effective rate after fee
	Fee    float64
	Weight float64
	Ts     time.Time
}

// Graph owns the live adjacency structure plus a bounded pending-update
// queue written by the feed side. The queue is drained only at the start of
// an evaluation pass, so feed cadence never races a detection pass.
type Graph struct {
	mu         sync.Mutex
	edges      map[edgeKey]Edge
	pending    map[edgeKey]Edge
	order      []edgeKey // FIFO over distinct pending keys
	maxPending int
}

func New(maxPending int) *Graph {
	if maxPending <= 0 {
		maxPending = 4096
	}
	return &Graph{
		edges:      make(map[edgeKey]Edge, 256),
		pending:    make(map[edgeKey]Edge, 256),
		maxPending: maxPending,
	}
}

// Push queues an edge update. Updates coalesce by (from,to): the newest
// quote for an edge replaces its queued predecessor. When the queue holds
// maxPending distinct edges, the oldest distinct one is dropped so the
// producer never blocks.
func (g *Graph) Push(e Edge) {
	k := edgeKey{e.From, e.To}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, queued := g.pending[k]; queued {
		g.pending[k] = e
		return
	}
	if len(g.order) >= g.maxPending {
		oldest := g.order[0]
		g.order = g.order[1:]
		delete(g.pending, oldest)
	}
	g.pending[k] = e
	g.order = append(g.order, k)
}

// PendingLen reports the number of distinct queued edge updates.
func (g *Graph) PendingLen() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

// ApplyPendingUpdates merges all queued updates into the live structure and
// returns how many were applied. A negative fee or fee >= 1 reaching this
// point violates the graph invariant: the offending update is dropped, the
// merge stops there and the error is surfaced. Updates already merged stay
// merged, and the next pass continues with the rest of the queue.
func (g *Graph) ApplyPendingUpdates() (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	applied := 0
	for len(g.order) > 0 {
		k := g.order[0]
		g.order = g.order[1:]
		e, ok := g.pending[k]
		if !ok {
			continue
		}
		delete(g.pending, k)
		if e.Fee < 0 || e.Fee >= 1 {
			return applied, fmt.Errorf("%w: edge %s->%s fee %v", types.ErrGraphInconsistency, e.From, e.To, e.Fee)
		}
		g.edges[k] = e
		applied++
	}
	return applied, nil
}

// Snapshot returns an immutable copy of the live graph at now, excluding
// edges older than maxAge. The vertex set is exactly the assets with at
// least one live edge. The detector iterates this copy only; later graph
// mutation never reaches it.
func (g *Graph) Snapshot(now time.Time, maxAge time.Duration) *Snapshot {
	g.mu.Lock()
	edges := make([]Edge, 0, len(g.edges))
	for _, e := range g.edges {
		if now.Sub(e.Ts) > maxAge {
			continue
		}
		edges = append(edges, e)
	}
	g.mu.Unlock()

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})

	index := make(map[string]int, len(edges))
	vertices := make([]string, 0, len(edges))
	add := func(a string) {
		if _, ok := index[a]; !ok {
			index[a] = len(vertices)
			vertices = append(vertices, a)
		}
	}
	for _, e := range edges {
		add(e.From)
		add(e.To)
	}
	// vertex indices follow sorted edge order, which is itself deterministic
	return &Snapshot{Edges: edges, Vertices: vertices, index: index}
}

// EdgeCount reports the number of live edges (stale included).
func (g *Graph) EdgeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.edges)
}

// Snapshot is a frozen view of the graph for one evaluation pass.
type Snapshot struct {
	Edges    []Edge   // sorted by (From, To)
	Vertices []string // first-seen order over sorted edges
	index    map[string]int
}

// VertexIndex maps an asset to its dense index within this snapshot.
func (s *Snapshot) VertexIndex(asset string) (int, bool) {
	i, ok := s.index[asset]
	return i, ok
}

// OutDegree counts live outgoing edges from the given asset.
func (s *Snapshot) OutDegree(asset string) int {
	n := 0
	for _, e := range s.Edges {
		if e.From == asset {
			n++
		}
	}
	return n
}
