package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func cycleOf(assets ...string) Cycle {
	legs := make([]Leg, len(assets))
	for i := range assets {
		legs[i] = Leg{From: assets[i], To: assets[(i+1)%len(assets)]}
	}
	return Cycle{Legs: legs}
}

func TestCycleIdentity_RotationNormalized(t *testing.T) {
	a := cycleOf("A", "B", "C")
	b := cycleOf("B", "C", "A")
	c := cycleOf("C", "A", "B")

	assert.Equal(t, "A>B>C>A", a.Identity())
	assert.Equal(t, a.Identity(), b.Identity())
	assert.Equal(t, a.Identity(), c.Identity())
}

func TestCycleIdentity_ReverseIsDistinct(t *testing.T) {
	fwd := cycleOf("A", "B", "C")
	rev := cycleOf("A", "C", "B")

	// the reverse direction is a different trade sequence
	assert.NotEqual(t, fwd.Identity(), rev.Identity())
	assert.Equal(t, "A>C>B>A", rev.Identity())
}

func TestCycleIdentity_Empty(t *testing.T) {
	assert.Equal(t, "", Cycle{}.Identity())
	assert.Nil(t, Cycle{}.Assets())
}

func TestCycleAssets(t *testing.T) {
	c := cycleOf("B", "C", "A")
	assert.Equal(t, []string{"B", "C", "A", "B"}, c.Assets())
}
