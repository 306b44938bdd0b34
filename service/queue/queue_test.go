package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/mkernel/service/scheduler"
)

func step(k *scheduler.Kernel, n int) {
	for i := 0; i < n; i++ {
		k.Step()
	}
}

func TestQueue_Validation(t *testing.T) {
	k := scheduler.New()
	_, err := New[int](k, 0)
	assert.Error(t, err)
	_, err = New[int](k, -1)
	assert.Error(t, err)
}

func TestQueue_FIFOAndCapacity(t *testing.T) {
	k := scheduler.New()
	q, err := New[string](k, 3)
	assert.NoError(t, err)

	assert.NoError(t, q.Send("a", 0))
	assert.NoError(t, q.Send("b", 0))
	assert.NoError(t, q.Send("c", 0))
	assert.ErrorIs(t, q.Send("d", 0), ErrFull)
	assert.Equal(t, 3, q.Len())

	item, err := q.Receive(0)
	assert.NoError(t, err)
	assert.Equal(t, "a", item)
	assert.NoError(t, q.Send("d", 0))

	for _, want := range []string{"b", "c", "d"} {
		item, err = q.Receive(0)
		assert.NoError(t, err)
		assert.Equal(t, want, item)
	}
	_, err = q.Receive(0)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestQueue_WrapAround(t *testing.T) {
	k := scheduler.New()
	q, err := New[int](k, 2)
	assert.NoError(t, err)

	for round := 0; round < 5; round++ {
		assert.NoError(t, q.Send(round, 0))
		got, rErr := q.Receive(0)
		assert.NoError(t, rErr)
		assert.Equal(t, round, got)
	}
	assert.Zero(t, q.Len())
	assert.Equal(t, 2, q.Cap())
}

func TestQueue_ReceiveWakesOnSend(t *testing.T) {
	k := scheduler.New()
	q, err := New[int](k, 1)
	assert.NoError(t, err)
	var got []int

	_, err = k.CreateTask("CONSUMER", func(interface{}) {
		for {
			v, rErr := q.Receive(scheduler.Forever)
			assert.NoError(t, rErr)
			got = append(got, v)
		}
	}, 1024, nil, scheduler.PriorityHigh)
	assert.NoError(t, err)

	_, err = k.CreateTask("PRODUCER", func(interface{}) {
		for i := 1; i <= 3; i++ {
			assert.NoError(t, q.Send(i, scheduler.Forever))
			k.Delay(1)
		}
		k.Delay(1000)
	}, 1024, nil, scheduler.PriorityNormal)
	assert.NoError(t, err)

	assert.NoError(t, k.Start())
	step(k, 12)
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestQueue_SendTimesOutWhenFull(t *testing.T) {
	k := scheduler.New()
	q, err := New[int](k, 1)
	assert.NoError(t, err)
	assert.NoError(t, q.Send(1, 0))

	var sendErr error
	_, err = k.CreateTask("PRODUCER", func(interface{}) {
		sendErr = q.Send(2, 3)
		k.Delay(1000)
	}, 1024, nil, scheduler.PriorityNormal)
	assert.NoError(t, err)

	assert.NoError(t, k.Start())
	step(k, 6)
	assert.ErrorIs(t, sendErr, ErrTimeout)
	assert.Equal(t, 1, q.Len())
}

func TestQueue_SendUnblocksOnReceive(t *testing.T) {
	k := scheduler.New()
	q, err := New[string](k, 1)
	assert.NoError(t, err)
	assert.NoError(t, q.Send("first", 0))
	var events []string

	_, err = k.CreateTask("PRODUCER", func(interface{}) {
		assert.NoError(t, q.Send("second", scheduler.Forever))
		events = append(events, "sent")
		k.Delay(1000)
	}, 1024, nil, scheduler.PriorityHigh)
	assert.NoError(t, err)

	_, err = k.CreateTask("CONSUMER", func(interface{}) {
		k.Delay(2)
		v, rErr := q.Receive(0)
		assert.NoError(t, rErr)
		events = append(events, "got:"+v)
		k.Delay(1000)
	}, 1024, nil, scheduler.PriorityNormal)
	assert.NoError(t, err)

	assert.NoError(t, k.Start())
	step(k, 6)
	assert.Equal(t, []string{"got:first", "sent"}, events)
	assert.Equal(t, 1, q.Len())
}
