package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/you/arb-scan/internal/types"
)

func edgeAt(from, to string, rate float64, ts time.Time) Edge {
	return Edge{From: from, To: to, Rate: rate, Weight: Weight(rate, 0), Ts: ts}
}

func TestPush_CoalescesPerEdge(t *testing.T) {
	g := New(16)
	now := time.Now()

	g.Push(edgeAt("A", "B", 2.0, now))
	g.Push(edgeAt("A", "B", 2.5, now))
	assert.Equal(t, 1, g.PendingLen())

	n, err := g.ApplyPendingUpdates()
	assert.NoError(t, err)
	assert.Equal(t, 1, n)

	snap := g.Snapshot(now, time.Minute)
	assert.Len(t, snap.Edges, 1)
	assert.Equal(t, 2.5, snap.Edges[0].Rate)
}

func TestPush_OverflowDropsOldestDistinct(t *testing.T) {
	g := New(2)
	now := time.Now()

	g.Push(edgeAt("A", "B", 1.0, now))
	g.Push(edgeAt("B", "C", 1.0, now))
	g.Push(edgeAt("C", "D", 1.0, now))
	assert.Equal(t, 2, g.PendingLen())

	_, err := g.ApplyPendingUpdates()
	assert.NoError(t, err)

	snap := g.Snapshot(now, time.Minute)
	assert.Len(t, snap.Edges, 2)
	assert.Equal(t, "B", snap.Edges[0].From)
	assert.Equal(t, "C", snap.Edges[1].From)
}

func TestApplyPendingUpdates_BadFeeStopsMerge(t *testing.T) {
	g := New(16)
	now := time.Now()

	g.Push(edgeAt("A", "B", 2.0, now))
	g.Push(Edge{From: "B", To: "C", Rate: 2.0, Fee: 1.5, Ts: now})
	g.Push(edgeAt("C", "D", 2.0, now))

	n, err := g.ApplyPendingUpdates()
	assert.ErrorIs(t, err, types.ErrGraphInconsistency)
	assert.Equal(t, 1, n)

	// the update merged before the bad one stays merged
	snap := g.Snapshot(now, time.Minute)
	assert.Len(t, snap.Edges, 1)
	assert.Equal(t, "A", snap.Edges[0].From)

	// the bad update is gone; the next pass merges what was queued behind it
	n, err = g.ApplyPendingUpdates()
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
	snap = g.Snapshot(now, time.Minute)
	assert.Len(t, snap.Edges, 2)
	assert.Equal(t, "C", snap.Edges[1].From)
}

func TestApplyPendingUpdates_RecoversWhenBadFeeIsFirst(t *testing.T) {
	g := New(16)
	now := time.Now()

	g.Push(Edge{From: "X", To: "Y", Rate: 2.0, Fee: 1.5, Ts: now})
	g.Push(edgeAt("A", "B", 2.0, now))

	n, err := g.ApplyPendingUpdates()
	assert.ErrorIs(t, err, types.ErrGraphInconsistency)
	assert.Equal(t, 0, n)

	n, err = g.ApplyPendingUpdates()
	assert.NoError(t, err)
	assert.Equal(t, 1, n)

	snap := g.Snapshot(now, time.Minute)
	assert.Len(t, snap.Edges, 1)
	assert.Equal(t, "A", snap.Edges[0].From)
	assert.Equal(t, 0, g.PendingLen())
}

func TestSnapshot_ExcludesStaleEdges(t *testing.T) {
	g := New(16)
	now := time.Now()

	g.Push(edgeAt("A", "B", 2.0, now.Add(-10*time.Second)))
	g.Push(edgeAt("B", "C", 2.0, now))
	_, err := g.ApplyPendingUpdates()
	assert.NoError(t, err)

	snap := g.Snapshot(now, 5*time.Second)
	assert.Len(t, snap.Edges, 1)
	assert.Equal(t, "B", snap.Edges[0].From)

	// a stale edge is excluded, not deleted
	assert.Equal(t, 2, g.EdgeCount())
}

func TestSnapshot_VertexSetMatchesLiveEdges(t *testing.T) {
	g := New(16)
	now := time.Now()

	g.Push(edgeAt("A", "B", 2.0, now.Add(-10*time.Second)))
	g.Push(edgeAt("C", "D", 2.0, now))
	_, err := g.ApplyPendingUpdates()
	assert.NoError(t, err)

	snap := g.Snapshot(now, 5*time.Second)
	assert.Equal(t, []string{"C", "D"}, snap.Vertices)

	_, ok := snap.VertexIndex("A")
	assert.False(t, ok)
	i, ok := snap.VertexIndex("C")
	assert.True(t, ok)
	assert.Equal(t, 0, i)
	assert.Equal(t, 1, snap.OutDegree("C"))
	assert.Equal(t, 0, snap.OutDegree("D"))
}

func TestSnapshot_IsolatedFromLaterWrites(t *testing.T) {
	g := New(16)
	now := time.Now()

	g.Push(edgeAt("A", "B", 2.0, now))
	_, err := g.ApplyPendingUpdates()
	assert.NoError(t, err)
	snap := g.Snapshot(now, time.Minute)

	g.Push(edgeAt("A", "B", 9.0, now))
	_, err = g.ApplyPendingUpdates()
	assert.NoError(t, err)

	assert.Equal(t, 2.0, snap.Edges[0].Rate)
}

func TestWeightAndYield(t *testing.T) {
	// negative total weight <=> product above 1
	total := Weight(2.0, 0) + Weight(2.0, 0) + Weight(0.3, 0)
	assert.Less(t, total, 0.0)
	assert.InDelta(t, 1.2, Yield(total), 1e-9)

	// fees shift the break-even point
	withFee := Weight(1.0005, 0.001)
	assert.Greater(t, withFee, 0.0)
}
