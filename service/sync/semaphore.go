package sync

import (
	"errors"
	"fmt"

	"github.com/viant/mkernel/service/scheduler"
)

var (
	// ErrTimeout indicates a blocking operation exceeded its deadline.
	ErrTimeout = errors.New("sync: timed out")
	// ErrOverflow indicates a Give on a semaphore already at its maximum.
	ErrOverflow = errors.New("sync: count already at maximum")
	// ErrNotOwner indicates a Give by a task that does not hold the lock.
	ErrNotOwner = errors.New("sync: caller does not own the lock")
)

// Semaphore is a counting semaphore with an upper bound. Waiters are served
// in FIFO order through the kernel's wait queue.
type Semaphore struct {
	kernel  *scheduler.Kernel
	count   int
	max     int
	waiters scheduler.WaitQueue
}

// NewSemaphore creates a semaphore with the given maximum and initial count.
func NewSemaphore(kernel *scheduler.Kernel, max, initial int) (*Semaphore, error) {
	if max <= 0 {
		return nil, fmt.Errorf("sync: semaphore maximum must be positive, got %d", max)
	}
	if initial < 0 || initial > max {
		return nil, fmt.Errorf("sync: initial count %d outside [0,%d]", initial, max)
	}
	return &Semaphore{kernel: kernel, count: initial, max: max}, nil
}

// Take acquires one unit, blocking up to timeout ticks when the count is
// exhausted. A zero timeout fails immediately with ErrTimeout.
func (s *Semaphore) Take(timeout scheduler.Ticks) error {
	s.kernel.Lock()
	defer s.kernel.Unlock()
	return s.takeLocked(timeout)
}

func (s *Semaphore) takeLocked(timeout scheduler.Ticks) error {
	var deadline scheduler.Ticks
	if timeout != 0 && timeout != scheduler.Forever {
		deadline = s.kernel.TickCountLocked() + timeout
	}
	for {
		if s.count > 0 {
			s.count--
			return nil
		}
		if timeout == 0 {
			return ErrTimeout
		}
		remaining := scheduler.Forever
		if timeout != scheduler.Forever {
			now := s.kernel.TickCountLocked()
			if now >= deadline {
				return ErrTimeout
			}
			remaining = deadline - now
		}
		if !s.kernel.BlockCurrentLocked(&s.waiters, remaining) {
			return ErrTimeout
		}
	}
}

// Give releases one unit and wakes the longest waiter. A Give at the
// maximum count fails with ErrOverflow and leaves the count unchanged.
func (s *Semaphore) Give() error {
	s.kernel.Lock()
	defer s.kernel.Unlock()
	return s.giveLocked()
}

func (s *Semaphore) giveLocked() error {
	if s.count >= s.max {
		return ErrOverflow
	}
	s.count++
	s.kernel.WakeOneLocked(&s.waiters)
	return nil
}

// Reset sets the count, clamped to the maximum, and wakes all waiters for
// re-evaluation.
func (s *Semaphore) Reset(count int) {
	s.kernel.Lock()
	defer s.kernel.Unlock()
	if count < 0 {
		count = 0
	}
	if count > s.max {
		count = s.max
	}
	s.count = count
	s.kernel.WakeAllLocked(&s.waiters)
}

// Count returns the current count.
func (s *Semaphore) Count() int {
	s.kernel.Lock()
	defer s.kernel.Unlock()
	return s.count
}

// Max returns the maximum count.
func (s *Semaphore) Max() int { return s.max }
