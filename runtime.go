package mkernel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/viant/mkernel/service/event"
	"github.com/viant/mkernel/service/heap"
	"github.com/viant/mkernel/service/queue"
	"github.com/viant/mkernel/service/scheduler"
	kernelsync "github.com/viant/mkernel/service/sync"
	"github.com/viant/mkernel/service/timer"
	"github.com/viant/mkernel/tracing"
)

// Runtime is the operational façade of an assembled simulation. It owns the
// task stack regions carved out of the heap arena and bridges kernel context
// switches onto the telemetry publisher.
type Runtime struct {
	config      *Config
	kernel      *scheduler.Kernel
	heap        *heap.Manager
	timers      *timer.Service
	transitions *event.Publisher[event.TaskTransition]
	timerFires  *event.Publisher[event.TimerFired]

	mu     sync.Mutex
	stacks map[uint32]heap.Pointer
}

// bind wires the kernel hooks: context switches are published as telemetry
// and exiting tasks release their stack regions.
func (r *Runtime) bind() {
	r.kernel.OnSwitch(func(prev, next *scheduler.Task, tick scheduler.Ticks) {
		transition := event.TaskTransition{To: next.Name(), Tick: uint64(tick)}
		if prev != nil {
			transition.From = prev.Name()
		}
		ctx := &event.Context{TaskID: next.ID(), TaskName: next.Name(), EventType: "task.switch"}
		r.transitions.TryPublish(event.NewEvent(ctx, transition))
	})
	r.kernel.OnExit(func(t *scheduler.Task) {
		r.mu.Lock()
		pointer, ok := r.stacks[t.ID()]
		if ok {
			delete(r.stacks, t.ID())
		}
		r.mu.Unlock()
		if ok {
			_ = r.heap.Free(pointer)
		}
	})
}

// Start runs the kernel tick loop at the configured rate until the context
// is cancelled or Shutdown is called. It does not return while running.
func (r *Runtime) Start(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "kernel.run", "INTERNAL")
	span.WithAttributes(map[string]string{
		"tickRateHz": fmt.Sprintf("%d", r.config.TickRateHz),
		"maxTasks":   fmt.Sprintf("%d", r.config.MaxTasks),
	})
	err := r.kernel.Run(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	tracing.EndSpan(span, err)
	return err
}

// StartDetached marks the kernel running without driving wall-clock time, so
// callers can advance the simulation deterministically with Step.
func (r *Runtime) StartDetached() error {
	return r.kernel.Start()
}

// Step advances the simulation by one quantum and one tick.
func (r *Runtime) Step() {
	r.kernel.Step()
}

// Shutdown requests a running kernel loop to return.
func (r *Runtime) Shutdown() {
	r.kernel.Stop()
}

// CreateTask registers a task and carves its simulated stack region out of
// the heap arena. Stack sizes below the configured minimum are clamped up.
func (r *Runtime) CreateTask(name string, entry scheduler.EntryFunc, stackSize int, args interface{}, priority scheduler.Priority) (*scheduler.Task, error) {
	_, span := tracing.StartSpan(context.Background(), "kernel.createTask", "INTERNAL")
	span.WithAttributes(map[string]string{"task": name})
	task, err := r.createTask(name, entry, stackSize, args, priority)
	tracing.EndSpan(span, err)
	return task, err
}

func (r *Runtime) createTask(name string, entry scheduler.EntryFunc, stackSize int, args interface{}, priority scheduler.Priority) (*scheduler.Task, error) {
	if stackSize < r.config.MinStackSize {
		stackSize = r.config.MinStackSize
	}
	pointer, err := r.heap.Allocate(stackSize)
	if err != nil {
		return nil, fmt.Errorf("cannot allocate %d byte stack for task %s: %w", stackSize, name, err)
	}
	task, err := r.kernel.CreateTask(name, entry, stackSize, args, priority)
	if err != nil {
		_ = r.heap.Free(pointer)
		return nil, err
	}
	r.mu.Lock()
	r.stacks[task.ID()] = pointer
	r.mu.Unlock()
	return task, nil
}

// Delay blocks the calling task for the given number of ticks.
func (r *Runtime) Delay(ticks scheduler.Ticks) {
	r.kernel.Delay(ticks)
}

// Allocate reserves size bytes from the heap arena.
func (r *Runtime) Allocate(size int) (heap.Pointer, error) {
	return r.heap.Allocate(size)
}

// Free returns an allocation to the heap arena.
func (r *Runtime) Free(pointer heap.Pointer) error {
	return r.heap.Free(pointer)
}

// NewSemaphore creates a counting semaphore bound to this kernel.
func (r *Runtime) NewSemaphore(max, initial int) (*kernelsync.Semaphore, error) {
	return kernelsync.NewSemaphore(r.kernel, max, initial)
}

// NewMutex creates a mutex bound to this kernel.
func (r *Runtime) NewMutex() *kernelsync.Mutex {
	return kernelsync.NewMutex(r.kernel)
}

// NewRecursiveMutex creates a recursive mutex bound to this kernel.
func (r *Runtime) NewRecursiveMutex() *kernelsync.RecursiveMutex {
	return kernelsync.NewRecursiveMutex(r.kernel)
}

// NewEventGroup creates an event group bound to this kernel.
func (r *Runtime) NewEventGroup() *kernelsync.EventGroup {
	return kernelsync.NewEventGroup(r.kernel)
}

// NewMessageBuffer creates a byte-stream channel bound to this kernel.
func (r *Runtime) NewMessageBuffer(capacity int) (*queue.MessageBuffer, error) {
	return queue.NewMessageBuffer(r.kernel, capacity)
}

// NewTimer registers a software timer; it is created stopped. Every expiry
// is additionally published on the timer telemetry stream.
func (r *Runtime) NewTimer(name string, period scheduler.Ticks, autoReload bool, callback func(*timer.Timer)) (*timer.Timer, error) {
	return r.timers.NewTimer(name, period, autoReload, func(t *timer.Timer) {
		fired := event.TimerFired{Timer: t.Name(), Tick: uint64(r.kernel.TickCount())}
		ctx := &event.Context{EventType: "timer.fired"}
		r.timerFires.TryPublish(event.NewEvent(ctx, fired))
		if callback != nil {
			callback(t)
		}
	})
}

// NewQueue creates a typed bounded queue bound to the runtime's kernel. The
// capacity is capped by the configured maximum queue length.
func NewQueue[T any](r *Runtime, capacity int) (*queue.Queue[T], error) {
	if capacity > r.config.MaxQueueLength {
		return nil, fmt.Errorf("queue capacity %d exceeds maximum %d", capacity, r.config.MaxQueueLength)
	}
	return queue.New[T](r.kernel, capacity)
}

// Transitions exposes the context-switch telemetry stream.
func (r *Runtime) Transitions() *event.Publisher[event.TaskTransition] {
	return r.transitions
}

// TimerFires exposes the software-timer expiry telemetry stream.
func (r *Runtime) TimerFires() *event.Publisher[event.TimerFired] {
	return r.timerFires
}

// Kernel exposes the underlying scheduler for advanced use.
func (r *Runtime) Kernel() *scheduler.Kernel {
	return r.kernel
}

// Heap exposes the arena allocator.
func (r *Runtime) Heap() *heap.Manager {
	return r.heap
}

// FreeBytes returns the heap arena's current free byte total.
func (r *Runtime) FreeBytes() int {
	return r.heap.FreeBytes()
}

// TickCount returns the logical clock value.
func (r *Runtime) TickCount() scheduler.Ticks {
	return r.kernel.TickCount()
}
