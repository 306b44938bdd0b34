package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/mkernel/service/scheduler"
)

func TestMutex_NonOwnerGiveRejected(t *testing.T) {
	k := scheduler.New()
	m := NewMutex(k)
	var holder *scheduler.Task
	var intruderErr error

	owner, err := k.CreateTask("OWNER", func(interface{}) {
		assert.NoError(t, m.Take(scheduler.Forever))
		holder = m.Owner()
		k.Delay(1000)
	}, 1024, nil, scheduler.PriorityHigh)
	assert.NoError(t, err)

	_, err = k.CreateTask("INTRUDER", func(interface{}) {
		intruderErr = m.Give()
		k.Delay(1000)
	}, 1024, nil, scheduler.PriorityNormal)
	assert.NoError(t, err)

	assert.NoError(t, k.Start())
	step(k, 3)
	assert.Equal(t, owner, holder)
	assert.ErrorIs(t, intruderErr, ErrNotOwner)
	assert.Equal(t, owner, m.Owner())
}

func TestMutex_ContendedHandover(t *testing.T) {
	k := scheduler.New()
	m := NewMutex(k)
	var events []string

	_, err := k.CreateTask("FIRST", func(interface{}) {
		assert.NoError(t, m.Take(scheduler.Forever))
		events = append(events, "first:locked")
		k.Delay(3)
		assert.NoError(t, m.Give())
		events = append(events, "first:released")
		k.Delay(1000)
	}, 1024, nil, scheduler.PriorityHigh)
	assert.NoError(t, err)

	_, err = k.CreateTask("SECOND", func(interface{}) {
		assert.NoError(t, m.Take(scheduler.Forever))
		events = append(events, "second:locked")
		k.Delay(1000)
	}, 1024, nil, scheduler.PriorityNormal)
	assert.NoError(t, err)

	assert.NoError(t, k.Start())
	step(k, 8)
	assert.Equal(t, []string{"first:locked", "first:released", "second:locked"}, events)
}

func TestRecursiveMutex_NestedTakeGive(t *testing.T) {
	k := scheduler.New()
	m := NewRecursiveMutex(k)
	var depths []int
	var finalErr error

	_, err := k.CreateTask("NESTER", func(interface{}) {
		for i := 0; i < 3; i++ {
			assert.NoError(t, m.Take(0))
		}
		depths = append(depths, m.Depth())
		for i := 0; i < 3; i++ {
			assert.NoError(t, m.Give())
		}
		depths = append(depths, m.Depth())
		finalErr = m.Give()
	}, 1024, nil, scheduler.PriorityNormal)
	assert.NoError(t, err)

	assert.NoError(t, k.Start())
	step(k, 2)
	assert.Equal(t, []int{3, 0}, depths)
	assert.ErrorIs(t, finalErr, ErrNotOwner)
	assert.Nil(t, m.Owner())
}

func TestRecursiveMutex_ReleasedOnlyAtZeroDepth(t *testing.T) {
	k := scheduler.New()
	m := NewRecursiveMutex(k)
	var events []string

	_, err := k.CreateTask("OWNER", func(interface{}) {
		assert.NoError(t, m.Take(scheduler.Forever))
		assert.NoError(t, m.Take(scheduler.Forever))
		events = append(events, "owner:nested")
		k.Delay(2)
		assert.NoError(t, m.Give())
		events = append(events, "owner:gave-one")
		k.Delay(2)
		assert.NoError(t, m.Give())
		events = append(events, "owner:gave-all")
		k.Delay(1000)
	}, 1024, nil, scheduler.PriorityHigh)
	assert.NoError(t, err)

	_, err = k.CreateTask("CONTENDER", func(interface{}) {
		assert.NoError(t, m.Take(scheduler.Forever))
		events = append(events, "contender:locked")
		k.Delay(1000)
	}, 1024, nil, scheduler.PriorityNormal)
	assert.NoError(t, err)

	assert.NoError(t, k.Start())
	step(k, 10)
	assert.Equal(t, []string{
		"owner:nested",
		"owner:gave-one",
		"owner:gave-all",
		"contender:locked",
	}, events)
}
