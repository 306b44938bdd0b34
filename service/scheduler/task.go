package scheduler

import (
	"sync/atomic"

	"github.com/viant/mkernel/internal/list"
)

// Ticks counts logical kernel time. Timeout arguments are expressed in ticks:
// 0 means fail immediately, Forever means wait indefinitely.
type Ticks uint64

// Forever is the unbounded timeout.
const Forever Ticks = ^Ticks(0)

// Priority orders tasks; higher values run first. The kernel is configured
// with a fixed number of levels and level 0 is reserved for the idle task.
type Priority uint8

const (
	PriorityIdle Priority = iota
	PriorityLow
	PriorityBelowNormal
	PriorityNormal
	PriorityAboveNormal
	PriorityHigh
	PriorityRealtime
	PriorityCritical
)

// State is the lifecycle state of a task control block.
type State uint32

const (
	StateRunning State = iota
	StateReady
	StateBlocked
	StateSuspended
	StateDeleted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StateReady:
		return "READY"
	case StateBlocked:
		return "BLOCKED"
	case StateSuspended:
		return "SUSPENDED"
	case StateDeleted:
		return "DELETED"
	}
	return "UNKNOWN"
}

// EntryFunc is a task body. It receives its opaque argument once and is
// expected to run an unbounded loop that yields through Delay, Yield or a
// blocking primitive; returning from the entry deletes the task.
type EntryFunc func(args interface{})

// Task is a task control block. It is owned by the kernel registry for its
// whole lifetime; ready, delayed, suspended and wait lists only reference it.
type Task struct {
	name         string
	id           uint32
	entry        EntryFunc
	args         interface{}
	priority     Priority
	basePriority Priority
	stackSize    int

	state atomic.Uint32

	// Fields below are guarded by the kernel lock.
	wakeAt    Ticks
	timedOut  bool
	waitingOn *WaitQueue
	started   bool
	goroutine int64
	gate      chan struct{}
}

// Name returns the task name.
func (t *Task) Name() string { return t.name }

// ID returns the registry-assigned numeric id.
func (t *Task) ID() uint32 { return t.id }

// Priority returns the task's current priority.
func (t *Task) Priority() Priority { return t.priority }

// BasePriority returns the priority the task was created with. It differs
// from Priority only under priority inheritance, which this kernel documents
// but does not implement.
func (t *Task) BasePriority() Priority { return t.basePriority }

// StackSize returns the simulated stack region size.
func (t *Task) StackSize() int { return t.stackSize }

// State returns the current lifecycle state.
func (t *Task) State() State { return State(t.state.Load()) }

func (t *Task) setState(s State) { t.state.Store(uint32(s)) }

// WaitQueue is a FIFO of tasks blocked on a synchronisation primitive. It
// must only be mutated through kernel methods while holding the kernel lock.
type WaitQueue struct {
	tasks list.List[*Task]
}

// Len returns the number of blocked tasks.
func (q *WaitQueue) Len() int { return q.tasks.Len() }
