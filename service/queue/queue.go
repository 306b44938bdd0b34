package queue

import (
	"errors"
	"fmt"

	"github.com/viant/mkernel/service/scheduler"
)

var (
	// ErrFull indicates a send to a full queue with a zero timeout.
	ErrFull = errors.New("queue: full")
	// ErrEmpty indicates a receive from an empty queue with a zero timeout.
	ErrEmpty = errors.New("queue: empty")
	// ErrTimeout indicates a blocking send or receive exceeded its deadline.
	ErrTimeout = errors.New("queue: timed out")
)

// Queue is a fixed-capacity FIFO of typed elements backed by a ring buffer.
// Producer and consumer indices only advance, modulo capacity.
type Queue[T any] struct {
	kernel   *scheduler.Kernel
	items    []T
	head     int
	tail     int
	count    int
	notEmpty scheduler.WaitQueue
	notFull  scheduler.WaitQueue
}

// New creates a queue holding up to capacity elements.
func New[T any](kernel *scheduler.Kernel, capacity int) (*Queue[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("queue: capacity must be positive, got %d", capacity)
	}
	return &Queue[T]{kernel: kernel, items: make([]T, capacity)}, nil
}

// Send appends item, blocking up to timeout ticks while the queue is full.
// A zero timeout fails immediately with ErrFull.
func (q *Queue[T]) Send(item T, timeout scheduler.Ticks) error {
	q.kernel.Lock()
	defer q.kernel.Unlock()

	var deadline scheduler.Ticks
	if timeout != 0 && timeout != scheduler.Forever {
		deadline = q.kernel.TickCountLocked() + timeout
	}
	for q.count == len(q.items) {
		if timeout == 0 {
			return ErrFull
		}
		remaining := scheduler.Forever
		if timeout != scheduler.Forever {
			now := q.kernel.TickCountLocked()
			if now >= deadline {
				return ErrTimeout
			}
			remaining = deadline - now
		}
		if !q.kernel.BlockCurrentLocked(&q.notFull, remaining) {
			return ErrTimeout
		}
	}
	q.items[q.tail] = item
	q.tail = (q.tail + 1) % len(q.items)
	q.count++
	q.kernel.WakeOneLocked(&q.notEmpty)
	return nil
}

// Receive removes and returns the oldest element, blocking up to timeout
// ticks while the queue is empty. A zero timeout fails immediately with
// ErrEmpty.
func (q *Queue[T]) Receive(timeout scheduler.Ticks) (T, error) {
	q.kernel.Lock()
	defer q.kernel.Unlock()

	var zero T
	var deadline scheduler.Ticks
	if timeout != 0 && timeout != scheduler.Forever {
		deadline = q.kernel.TickCountLocked() + timeout
	}
	for q.count == 0 {
		if timeout == 0 {
			return zero, ErrEmpty
		}
		remaining := scheduler.Forever
		if timeout != scheduler.Forever {
			now := q.kernel.TickCountLocked()
			if now >= deadline {
				return zero, ErrTimeout
			}
			remaining = deadline - now
		}
		if !q.kernel.BlockCurrentLocked(&q.notEmpty, remaining) {
			return zero, ErrTimeout
		}
	}
	item := q.items[q.head]
	q.items[q.head] = zero
	q.head = (q.head + 1) % len(q.items)
	q.count--
	q.kernel.WakeOneLocked(&q.notFull)
	return item, nil
}

// Len returns the number of queued elements.
func (q *Queue[T]) Len() int {
	q.kernel.Lock()
	defer q.kernel.Unlock()
	return q.count
}

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int { return len(q.items) }
