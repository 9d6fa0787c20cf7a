package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoutingSlip_AdvancesThroughItinerary(t *testing.T) {
	slip := NewRoutingSlip("validate", "price", "ship")

	var visited []string
	for {
		name, ok := slip.CurrentStep()
		if !ok {
			break
		}
		visited = append(visited, name)
		slip.Advance()
	}

	assert.Equal(t, []string{"validate", "price", "ship"}, visited)
	assert.True(t, slip.Done())
	assert.Equal(t, 3, slip.Cursor())
}

func TestRoutingSlip_AdvanceSaturates(t *testing.T) {
	slip := NewRoutingSlip("only")
	slip.Advance()
	slip.Advance()
	slip.Advance()

	assert.Equal(t, 1, slip.Cursor())
	_, ok := slip.CurrentStep()
	assert.False(t, ok)
}

func TestRoutingSlip_Empty(t *testing.T) {
	slip := NewRoutingSlip()
	assert.True(t, slip.Done())
	_, ok := slip.CurrentStep()
	assert.False(t, ok)
}

func TestRoutingSlip_ItineraryIsCopied(t *testing.T) {
	steps := []string{"a", "b"}
	slip := NewRoutingSlip(steps...)
	steps[0] = "changed"

	it := slip.Itinerary()
	assert.Equal(t, []string{"a", "b"}, it)

	it[1] = "changed"
	assert.Equal(t, []string{"a", "b"}, slip.Itinerary())
}
