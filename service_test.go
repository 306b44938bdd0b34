package mkernel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/mkernel"
	"github.com/viant/mkernel/service/scheduler"
	"github.com/viant/mkernel/service/timer"
)

func TestService_DefaultProfile(t *testing.T) {
	srv, err := mkernel.New()
	assert.NoError(t, err)
	assert.Equal(t, 32, srv.Config().MaxTasks)
	assert.Equal(t, 1000, srv.Config().TickRateHz)
	assert.NotNil(t, srv.Runtime())
}

func TestService_RejectsInvalidConfig(t *testing.T) {
	_, err := mkernel.New(mkernel.WithConfig(&mkernel.Config{MaxTasks: -1}))
	assert.Error(t, err)
}

func TestRuntime_TaskLifecycle(t *testing.T) {
	srv, err := mkernel.New()
	assert.NoError(t, err)
	rt := srv.Runtime()
	freeBefore := rt.FreeBytes()
	var ticksSeen []scheduler.Ticks

	_, err = rt.CreateTask("sampler", func(interface{}) {
		for i := 0; i < 3; i++ {
			ticksSeen = append(ticksSeen, rt.TickCount())
			rt.Delay(2)
		}
	}, 100, nil, scheduler.PriorityNormal)
	assert.NoError(t, err)
	// Requested stack below the minimum is clamped, so exactly one minimum
	// sized region is carved out of the arena.
	assert.Less(t, rt.FreeBytes(), freeBefore)

	assert.NoError(t, rt.StartDetached())
	for i := 0; i < 8; i++ {
		rt.Step()
	}
	assert.Equal(t, []scheduler.Ticks{0, 2, 4}, ticksSeen)
	// The entry returned, so the stack region went back to the arena.
	assert.Equal(t, freeBefore, rt.FreeBytes())
}

func TestRuntime_TransitionsPublished(t *testing.T) {
	srv, err := mkernel.New()
	assert.NoError(t, err)
	rt := srv.Runtime()

	_, err = rt.CreateTask("worker", func(interface{}) {
		rt.Delay(1000)
	}, 0, nil, scheduler.PriorityHigh)
	assert.NoError(t, err)

	assert.NoError(t, rt.StartDetached())
	rt.Step()

	ctx := context.Background()
	first, err := rt.Transitions().Consume(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "worker", first.Data.To)

	second, err := rt.Transitions().Consume(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "worker", second.Data.From)
	assert.Equal(t, "IDLE", second.Data.To)
}

func TestRuntime_PrimitiveFactories(t *testing.T) {
	srv, err := mkernel.New()
	assert.NoError(t, err)
	rt := srv.Runtime()

	sem, err := rt.NewSemaphore(2, 1)
	assert.NoError(t, err)
	assert.Equal(t, 1, sem.Count())

	assert.NotNil(t, rt.NewMutex())
	assert.NotNil(t, rt.NewRecursiveMutex())
	assert.NotNil(t, rt.NewEventGroup())

	buffer, err := rt.NewMessageBuffer(8)
	assert.NoError(t, err)
	assert.Equal(t, 8, buffer.Cap())

	_, err = mkernel.NewQueue[int](rt, 64)
	assert.Error(t, err)
	q, err := mkernel.NewQueue[int](rt, 4)
	assert.NoError(t, err)
	assert.Equal(t, 4, q.Cap())

	tm, err := rt.NewTimer("heartbeat", 10, true, func(*timer.Timer) {})
	assert.NoError(t, err)
	assert.False(t, tm.IsActive())
}

func TestRuntime_TimerFiresPublished(t *testing.T) {
	srv, err := mkernel.New()
	assert.NoError(t, err)
	rt := srv.Runtime()

	fired := 0
	tm, err := rt.NewTimer("sampler", 2, false, func(*timer.Timer) {
		fired++
	})
	assert.NoError(t, err)
	assert.NoError(t, rt.StartDetached())
	assert.NoError(t, tm.Start(0))
	rt.Step()
	rt.Step()

	assert.Equal(t, 1, fired)
	got, err := rt.TimerFires().Consume(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "sampler", got.Data.Timer)
	assert.Equal(t, uint64(2), got.Data.Tick)
}

func TestRuntime_ShutdownStopsRun(t *testing.T) {
	srv, err := mkernel.New()
	assert.NoError(t, err)
	rt := srv.Runtime()

	done := make(chan error, 1)
	go func() {
		done <- rt.Start(context.Background())
	}()
	rt.Shutdown()
	assert.NoError(t, <-done)
}

func TestLoadConfig(t *testing.T) {
	ctx := context.Background()
	_, err := mkernel.LoadConfig(ctx, "mem://localhost/config/missing.yaml")
	assert.Error(t, err)
}
