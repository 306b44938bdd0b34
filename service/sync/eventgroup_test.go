package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/mkernel/service/scheduler"
)

func TestEventGroup_MaskValidation(t *testing.T) {
	k := scheduler.New()
	g := NewEventGroup(k)

	_, err := g.SetBits(0)
	assert.ErrorIs(t, err, ErrInvalidBits)
	_, err = g.SetBits(1 << 24)
	assert.ErrorIs(t, err, ErrInvalidBits)
	_, err = g.ClearBits(0x80000000)
	assert.ErrorIs(t, err, ErrInvalidBits)
	_, _, err3 := waitBits(g, 0, false, false, 0)
	assert.ErrorIs(t, err3, ErrInvalidBits)
}

func waitBits(g *EventGroup, mask uint32, clear, all bool, timeout scheduler.Ticks) (uint32, uint32, error) {
	v, err := g.WaitBits(mask, clear, all, timeout)
	return v, g.Bits(), err
}

func TestEventGroup_SetWaitClear(t *testing.T) {
	k := scheduler.New()
	g := NewEventGroup(k)

	after, err := g.SetBits(0b011)
	assert.NoError(t, err)
	assert.Equal(t, uint32(0b011), after)

	observed, remaining, err := waitBits(g, 0b001, true, false, 0)
	assert.NoError(t, err)
	assert.NotZero(t, observed&0b001)
	// Only the waited-for bit is consumed.
	assert.Equal(t, uint32(0b010), remaining)
}

func TestEventGroup_ClearReturnsPriorValue(t *testing.T) {
	k := scheduler.New()
	g := NewEventGroup(k)

	_, err := g.SetBits(0b110)
	assert.NoError(t, err)
	before, err := g.ClearBits(0b010)
	assert.NoError(t, err)
	assert.Equal(t, uint32(0b110), before)
	assert.Equal(t, uint32(0b100), g.Bits())
}

func TestEventGroup_WaitForAllBlocksUntilComplete(t *testing.T) {
	k := scheduler.New()
	g := NewEventGroup(k)
	var events []string

	_, err := k.CreateTask("WAITER", func(interface{}) {
		v, wErr := g.WaitBits(0b11, true, true, scheduler.Forever)
		assert.NoError(t, wErr)
		assert.Equal(t, uint32(0b11), v&0b11)
		events = append(events, "woke")
		k.Delay(1000)
	}, 1024, nil, scheduler.PriorityHigh)
	assert.NoError(t, err)

	_, err = k.CreateTask("SETTER", func(interface{}) {
		k.Delay(1)
		_, sErr := g.SetBits(0b01)
		assert.NoError(t, sErr)
		events = append(events, "set:01")
		k.Delay(2)
		_, sErr = g.SetBits(0b10)
		assert.NoError(t, sErr)
		events = append(events, "set:10")
		k.Delay(1000)
	}, 1024, nil, scheduler.PriorityNormal)
	assert.NoError(t, err)

	assert.NoError(t, k.Start())
	step(k, 8)
	assert.Equal(t, []string{"set:01", "set:10", "woke"}, events)
	assert.Equal(t, uint32(0), g.Bits())
}

func TestEventGroup_WaitTimeoutReportsBits(t *testing.T) {
	k := scheduler.New()
	g := NewEventGroup(k)
	_, err := g.SetBits(0b001)
	assert.NoError(t, err)

	var observed uint32
	var waitErr error
	_, err = k.CreateTask("WAITER", func(interface{}) {
		observed, waitErr = g.WaitBits(0b100, false, false, 2)
		k.Delay(1000)
	}, 1024, nil, scheduler.PriorityNormal)
	assert.NoError(t, err)

	assert.NoError(t, k.Start())
	step(k, 4)
	assert.ErrorIs(t, waitErr, ErrTimeout)
	assert.Equal(t, uint32(0b001), observed)
}
