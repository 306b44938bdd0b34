package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/petermattis/goid"
	"github.com/viant/mkernel/internal/list"
)

var (
	// ErrTaskLimit indicates the task table is full.
	ErrTaskLimit = errors.New("scheduler: task limit reached")
	// ErrBadPriority indicates a priority outside the configured levels.
	ErrBadPriority = errors.New("scheduler: priority out of range")
	// ErrAlreadyRunning indicates a second Start or Run on a live kernel.
	ErrAlreadyRunning = errors.New("scheduler: kernel already running")
)

// Kernel owns the task registry, the ready/delayed/suspended lists and the
// logical clock, and performs all dispatch decisions. Construct it with New;
// the zero value is not usable.
type Kernel struct {
	maxTasks     int
	levels       int
	tickInterval time.Duration
	logger       *log.Logger

	mu        sync.Mutex
	tasks     []*Task
	ready     []*list.List[*Task]
	delayed   *list.List[*Task]
	suspended *list.List[*Task]
	current   *Task
	idle      *Task
	tick      Ticks
	nextID    uint32

	running        bool
	inQuantum      bool
	switchPending  bool
	lastDispatched *Task

	trap     chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once

	tickFns   []func(Ticks)
	switchFns []func(prev, next *Task, tick Ticks)
	exitFns   []func(t *Task)
}

// New creates a kernel and seeds the non-terminating IDLE task at the lowest
// priority, so the ready structure is never fully empty.
func New(options ...Option) *Kernel {
	k := &Kernel{
		maxTasks:     32,
		levels:       8,
		tickInterval: time.Millisecond,
		delayed:      list.New[*Task](),
		suspended:    list.New[*Task](),
		trap:         make(chan struct{}),
		stopCh:       make(chan struct{}),
		nextID:       1,
	}
	for _, option := range options {
		option(k)
	}
	k.ready = make([]*list.List[*Task], k.levels)
	for i := range k.ready {
		k.ready[i] = list.New[*Task]()
	}
	idle, err := k.CreateTask("IDLE", func(interface{}) {
		for {
			k.Yield()
		}
	}, 0, nil, PriorityIdle)
	if err != nil {
		panic(fmt.Sprintf("scheduler: cannot seed idle task: %v", err))
	}
	k.idle = idle
	return k
}

// CreateTask registers a new task and places it on the ready list at its
// priority. When the kernel is already running and the new priority exceeds
// the current task's, a scheduling decision is taken immediately.
func (k *Kernel) CreateTask(name string, entry EntryFunc, stackSize int, args interface{}, priority Priority) (*Task, error) {
	if entry == nil {
		return nil, errors.New("scheduler: entry function is required")
	}
	k.mu.Lock()
	if int(priority) >= k.levels {
		k.mu.Unlock()
		return nil, ErrBadPriority
	}
	if len(k.tasks) >= k.maxTasks {
		k.mu.Unlock()
		return nil, ErrTaskLimit
	}
	t := &Task{
		name:         name,
		id:           k.nextID,
		entry:        entry,
		args:         args,
		priority:     priority,
		basePriority: priority,
		stackSize:    stackSize,
		gate:         make(chan struct{}),
	}
	k.nextID++
	t.setState(StateReady)
	k.tasks = append(k.tasks, t)
	k.ready[priority].PushBack(t)
	if k.logger != nil {
		k.logger.Printf("created task %s (id %d, priority %d)", name, t.id, priority)
	}
	if k.running && k.current != nil && priority > k.current.priority {
		if caller := k.quantumOwnerLocked(); caller == k.current {
			k.scheduleLocked()
			if k.current != caller {
				// Preempted from task context: the creator parks until
				// its next quantum.
				k.parkCurrent(caller)
			}
		} else if k.inQuantum {
			// A quantum is in flight on another goroutine; the dispatcher
			// applies the switch when it ends.
			k.switchPending = true
		} else {
			k.scheduleLocked()
		}
	}
	k.mu.Unlock()
	return t, nil
}

// Start marks the kernel running and performs the initial scheduling
// decision. Callers driving time by hand use Start plus Step; Run wraps both
// with a wall-clock tick loop.
func (k *Kernel) Start() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.running {
		return ErrAlreadyRunning
	}
	k.running = true
	k.scheduleLocked()
	return nil
}

// Run starts the kernel and drives the tick at the configured rate until the
// context is cancelled or Stop is called. It does not return while running.
func (k *Kernel) Run(ctx context.Context) error {
	if err := k.Start(); err != nil {
		return err
	}
	ticker := time.NewTicker(k.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			k.halt()
			return ctx.Err()
		case <-k.stopCh:
			k.halt()
			return nil
		case <-ticker.C:
			k.Step()
		}
	}
}

// Stop requests Run to return. It is safe to call multiple times.
func (k *Kernel) Stop() {
	k.stopOnce.Do(func() { close(k.stopCh) })
}

func (k *Kernel) halt() {
	k.mu.Lock()
	k.running = false
	k.mu.Unlock()
}

// Running reports whether the kernel has been started.
func (k *Kernel) Running() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.running
}

// Step performs one simulation step: it grants the current task a quantum
// and then advances the logical clock by one tick. Tests use Step directly
// for deterministic schedules.
func (k *Kernel) Step() {
	k.dispatch()
	k.ProcessSysTick()
}

// dispatch applies any pending switch request and hands one quantum to the
// current task. It returns once the task reaches its next suspension point.
func (k *Kernel) dispatch() {
	k.mu.Lock()
	if !k.running {
		k.mu.Unlock()
		return
	}
	if k.switchPending {
		k.switchPending = false
		k.scheduleLocked()
	}
	t := k.current
	if t == nil || t.State() != StateRunning {
		k.mu.Unlock()
		return
	}
	if !t.started {
		t.started = true
		go k.taskLoop(t)
	}
	k.lastDispatched = t
	k.inQuantum = true
	k.mu.Unlock()

	t.gate <- struct{}{}
	<-k.trap

	k.mu.Lock()
	k.inQuantum = false
	k.mu.Unlock()
}

// taskLoop is the goroutine body backing a task. The task executes only
// between a gate grant and the matching trap hand-back, so at most one task
// runs at any time. A returning entry function deletes the task.
func (k *Kernel) taskLoop(t *Task) {
	<-t.gate
	k.mu.Lock()
	t.goroutine = goid.Get()
	k.mu.Unlock()
	t.entry(t.args)

	k.mu.Lock()
	t.setState(StateDeleted)
	k.removeFromAllLocked(t)
	for i, candidate := range k.tasks {
		if candidate == t {
			k.tasks = append(k.tasks[:i], k.tasks[i+1:]...)
			break
		}
	}
	if k.current == t {
		k.current = nil
		k.scheduleLocked()
	}
	if k.logger != nil {
		k.logger.Printf("task %s exited", t.name)
	}
	fns := k.exitFns
	k.mu.Unlock()
	for _, fn := range fns {
		fn(t)
	}
	k.trap <- struct{}{}
}

// Schedule selects the highest-priority ready task and switches to it when
// it differs from the current one. Called from task context it parks the
// caller when it loses the CPU; called from a foreign goroutine during a
// quantum it defers the switch to the dispatcher.
func (k *Kernel) Schedule() {
	k.mu.Lock()
	if caller := k.quantumOwnerLocked(); caller != nil && caller == k.current {
		k.scheduleLocked()
		if k.current != caller {
			k.parkCurrent(caller)
		}
	} else if k.inQuantum {
		k.switchPending = true
	} else {
		k.scheduleLocked()
	}
	k.mu.Unlock()
}

func (k *Kernel) scheduleLocked() {
	next := k.highestReadyLocked()
	if next == nil || next == k.current {
		return
	}
	prev := k.current
	// A running current task only hands over to an equal or higher
	// priority; a blocked, suspended or nil current always does.
	if prev != nil && prev.State() == StateRunning && next.priority < prev.priority {
		return
	}
	if prev != nil && prev.State() == StateRunning {
		prev.setState(StateReady)
		k.ready[prev.priority].PushBack(prev)
	}
	k.ready[next.priority].Remove(next)
	next.setState(StateRunning)
	k.current = next
	if k.logger != nil {
		k.logger.Printf("context switch to %s", next.name)
	}
	for _, fn := range k.switchFns {
		fn(prev, next, k.tick)
	}
}

func (k *Kernel) highestReadyLocked() *Task {
	for p := k.levels - 1; p >= 0; p-- {
		if t, ok := k.ready[p].Front(); ok {
			return t
		}
	}
	return nil
}

// ProcessSysTick advances the logical clock, wakes every delayed task whose
// deadline has elapsed and requests a switch when a woken task outranks the
// current one or when the current priority level holds further ready peers.
func (k *Kernel) ProcessSysTick() {
	k.mu.Lock()
	k.tick++
	now := k.tick

	var due []*Task
	k.delayed.ForEach(func(t *Task) {
		if t.wakeAt <= now {
			due = append(due, t)
		}
	})
	for _, t := range due {
		k.delayed.Remove(t)
		timedOut := t.waitingOn != nil
		if timedOut {
			t.waitingOn.tasks.Remove(t)
		}
		k.unblockLocked(t, timedOut)
	}

	// Round-robin among equal-priority peers once per tick. Rotation only
	// applies when the task that consumed the last quantum still holds the
	// CPU; a task that yielded or blocked has already handed over.
	if k.current != nil && k.current == k.lastDispatched && k.ready[k.current.priority].Len() > 0 {
		k.switchPending = true
	}
	fns := k.tickFns
	k.mu.Unlock()

	for _, fn := range fns {
		fn(now)
	}
}

// Delay blocks the calling task for the given number of ticks. A delay of
// zero is a no-op, as is a call from outside task context.
func (k *Kernel) Delay(ticks Ticks) {
	if ticks == 0 {
		return
	}
	k.mu.Lock()
	t := k.quantumOwnerLocked()
	if t == nil {
		k.mu.Unlock()
		return
	}
	if t != k.current {
		// The owner lost the CPU to an external Suspend mid-quantum; hand
		// the quantum back without registering a delay.
		k.parkCurrent(t)
		k.mu.Unlock()
		return
	}
	t.setState(StateBlocked)
	t.wakeAt = k.tick + ticks
	k.delayed.PushBack(t)
	k.scheduleLocked()
	k.parkCurrent(t)
	k.mu.Unlock()
}

// Yield moves the calling task to the tail of its ready level and hands the
// remainder of its quantum back to the dispatcher.
func (k *Kernel) Yield() {
	k.mu.Lock()
	t := k.quantumOwnerLocked()
	if t == nil {
		k.mu.Unlock()
		return
	}
	if t != k.current {
		k.parkCurrent(t)
		k.mu.Unlock()
		return
	}
	t.setState(StateReady)
	k.ready[t.priority].PushBack(t)
	k.current = nil
	k.scheduleLocked()
	k.parkCurrent(t)
	k.mu.Unlock()
}

// Suspend removes a task from scheduling until Resume. Suspending the
// current task from its own quantum parks it immediately; suspending it
// from another goroutine takes effect at the task's next suspension point.
func (k *Kernel) Suspend(t *Task) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if t == k.idle {
		return errors.New("scheduler: idle task cannot be suspended")
	}
	switch t.State() {
	case StateDeleted:
		return fmt.Errorf("scheduler: task %s is deleted", t.name)
	case StateSuspended:
		return nil
	case StateReady:
		k.ready[t.priority].Remove(t)
	case StateBlocked:
		k.delayed.Remove(t)
		if t.waitingOn != nil {
			t.waitingOn.tasks.Remove(t)
			t.waitingOn = nil
		}
		t.wakeAt = 0
	}
	wasCurrent := t == k.current
	self := wasCurrent && k.quantumOwnerLocked() == t
	if wasCurrent {
		k.current = nil
	}
	t.setState(StateSuspended)
	k.suspended.PushBack(t)
	if wasCurrent {
		k.scheduleLocked()
	}
	if self {
		k.parkCurrent(t)
	}
	return nil
}

// Resume makes a suspended task ready again, requesting preemption when it
// outranks the current task.
func (k *Kernel) Resume(t *Task) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if t.State() != StateSuspended {
		return fmt.Errorf("scheduler: task %s is not suspended", t.name)
	}
	k.suspended.Remove(t)
	t.setState(StateReady)
	k.ready[t.priority].PushBack(t)
	if k.current != nil && t.priority > k.current.priority {
		k.switchPending = true
	}
	return nil
}

// Lock enters the kernel critical section. Synchronisation primitives guard
// their state with it, preserving the kernel-before-primitive lock order.
func (k *Kernel) Lock() { k.mu.Lock() }

// Unlock leaves the kernel critical section.
func (k *Kernel) Unlock() { k.mu.Unlock() }

// BlockCurrentLocked deregisters the calling task from the ready structure,
// appends it to q and schedules away until a wake or until timeout ticks
// elapse. It must be called with the kernel lock held; the lock is released
// while the task is parked and reacquired before returning. The return value
// is false when the wait timed out, or immediately when called with a zero
// timeout or from outside task context.
func (k *Kernel) BlockCurrentLocked(q *WaitQueue, timeout Ticks) bool {
	t := k.quantumOwnerLocked()
	if timeout == 0 || t == nil {
		return false
	}
	if t != k.current {
		k.parkCurrent(t)
		return false
	}
	t.setState(StateBlocked)
	t.waitingOn = q
	t.timedOut = false
	q.tasks.PushBack(t)
	if timeout != Forever {
		t.wakeAt = k.tick + timeout
		k.delayed.PushBack(t)
	}
	k.scheduleLocked()
	k.parkCurrent(t)
	t.waitingOn = nil
	return !t.timedOut
}

// WakeOneLocked moves the longest-waiting task of q back to its ready list.
// Must be called with the kernel lock held.
func (k *Kernel) WakeOneLocked(q *WaitQueue) bool {
	t, ok := q.tasks.PopFront()
	if !ok {
		return false
	}
	k.delayed.Remove(t)
	k.unblockLocked(t, false)
	return true
}

// WakeAllLocked wakes every task blocked on q, returning how many. Must be
// called with the kernel lock held.
func (k *Kernel) WakeAllLocked(q *WaitQueue) int {
	woken := 0
	for k.WakeOneLocked(q) {
		woken++
	}
	return woken
}

func (k *Kernel) unblockLocked(t *Task, timedOut bool) {
	t.timedOut = timedOut
	t.waitingOn = nil
	t.wakeAt = 0
	t.setState(StateReady)
	k.ready[t.priority].PushBack(t)
	if k.current != nil && t.priority > k.current.priority {
		k.switchPending = true
	}
}

// quantumOwnerLocked returns the task whose quantum is in flight, provided
// the caller executes on that task's goroutine. It returns nil between
// quanta and for every foreign goroutine, so blocking entry points degrade
// to their immediate path instead of parking on another task's behalf.
func (k *Kernel) quantumOwnerLocked() *Task {
	if !k.inQuantum {
		return nil
	}
	t := k.lastDispatched
	if t == nil || t.goroutine != goid.Get() {
		return nil
	}
	return t
}

// parkCurrent hands control back to the dispatcher and blocks the calling
// task goroutine until its next quantum. The kernel lock must be held; it is
// released while parked and reacquired before returning.
func (k *Kernel) parkCurrent(t *Task) {
	k.mu.Unlock()
	k.trap <- struct{}{}
	<-t.gate
	k.mu.Lock()
}

func (k *Kernel) removeFromAllLocked(t *Task) {
	k.ready[t.priority].Remove(t)
	k.delayed.Remove(t)
	k.suspended.Remove(t)
	if t.waitingOn != nil {
		t.waitingOn.tasks.Remove(t)
		t.waitingOn = nil
	}
}

// TickCount returns the logical clock value.
func (k *Kernel) TickCount() Ticks {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.tick
}

// TickCountLocked returns the logical clock value; the kernel lock must be
// held.
func (k *Kernel) TickCountLocked() Ticks { return k.tick }

// CurrentTask returns the task currently holding the CPU, or nil before the
// first scheduling decision.
func (k *Kernel) CurrentTask() *Task {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.current
}

// CurrentLocked returns the current task; the kernel lock must be held.
func (k *Kernel) CurrentLocked() *Task { return k.current }

// IdleTask returns the built-in idle task.
func (k *Kernel) IdleTask() *Task { return k.idle }

// TaskCount returns the number of live tasks, including IDLE.
func (k *Kernel) TaskCount() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.tasks)
}

// OnTick registers a callback invoked after every tick, outside the kernel
// lock. The software timer service hooks in here.
func (k *Kernel) OnTick(fn func(tick Ticks)) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.tickFns = append(k.tickFns, fn)
}

// OnSwitch registers a callback invoked on every context switch. It runs
// with the kernel lock held and must not re-enter the kernel; prev is nil
// for the initial dispatch.
func (k *Kernel) OnSwitch(fn func(prev, next *Task, tick Ticks)) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.switchFns = append(k.switchFns, fn)
}

// OnExit registers a callback invoked, outside the kernel lock, after a task
// whose entry function returned has been deleted from the registry. Stack
// region reclamation hooks in here.
func (k *Kernel) OnExit(fn func(t *Task)) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.exitFns = append(k.exitFns, fn)
}
