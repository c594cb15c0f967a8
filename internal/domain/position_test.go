package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectionOpposite(t *testing.T) {
	assert.Equal(t, DirectionShort, DirectionLong.Opposite())
	assert.Equal(t, DirectionLong, DirectionShort.Opposite())
	assert.Equal(t, DirectionNone, DirectionNone.Opposite())
}

func TestDirectionEntryAction(t *testing.T) {
	a, ok := DirectionLong.EntryAction()
	assert.True(t, ok)
	assert.Equal(t, ActionBuy, a)

	a, ok = DirectionShort.EntryAction()
	assert.True(t, ok)
	assert.Equal(t, ActionSell, a)

	_, ok = DirectionNone.EntryAction()
	assert.False(t, ok)
}

func TestPositionValid(t *testing.T) {
	assert.True(t, FlatPosition("MNQZ2025").Valid())
	assert.True(t, Position{IsOpen: true, Direction: DirectionLong}.Valid())
	assert.False(t, Position{IsOpen: true, Direction: DirectionNone}.Valid())
	assert.False(t, Position{IsOpen: false, Direction: DirectionShort}.Valid())
}

func TestTrendFreshBoundary(t *testing.T) {
	now := time.Date(2025, 11, 3, 14, 30, 0, 0, time.UTC)
	obs := TrendObservation{ReceivedAt: now.Add(-5 * time.Second)}

	assert.True(t, obs.Fresh(now, 5*time.Second))
	assert.False(t, obs.Fresh(now.Add(time.Millisecond), 5*time.Second))
	assert.Equal(t, DirectionShort, obs.DesiredDirection())
	obs.AboveReference = true
	assert.Equal(t, DirectionLong, obs.DesiredDirection())
}

func TestInstructionOmitsUnknownFields(t *testing.T) {
	in := Instruction{Ticker: "MNQZ2025", Action: ActionExit, Time: time.Unix(0, 0).UTC()}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "price")
	assert.NotContains(t, string(b), "quantity")
	assert.NotContains(t, string(b), "interval")

	in.Price = optional.Some(25312.0)
	in.Quantity = optional.Some(1)
	b, err = json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"price":25312`)
	assert.Contains(t, string(b), `"quantity":1`)
}

func TestDecisionEmits(t *testing.T) {
	d := &Decision{Event: EventDeferred, Instructions: []Instruction{}}
	assert.False(t, d.Emits())
	d.Instructions = append(d.Instructions, Instruction{Action: ActionExit})
	assert.True(t, d.Emits())
}
