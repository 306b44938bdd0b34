package sync

import (
	"github.com/viant/mkernel/service/scheduler"
)

// Mutex is a binary semaphore that records its acquirer so that release by
// a non-owner can be rejected.
//
// Priority inheritance (boosting the holder to the highest waiter's
// priority) is not implemented; the task's base priority is retained so an
// inheritance layer can be added without changing this type.
type Mutex struct {
	Semaphore
	owner *scheduler.Task
}

// NewMutex creates an initially free mutex.
func NewMutex(kernel *scheduler.Kernel) *Mutex {
	return &Mutex{Semaphore: Semaphore{kernel: kernel, count: 1, max: 1}}
}

// Take acquires the mutex, recording the calling task as owner.
func (m *Mutex) Take(timeout scheduler.Ticks) error {
	m.kernel.Lock()
	defer m.kernel.Unlock()
	if err := m.takeLocked(timeout); err != nil {
		return err
	}
	m.owner = m.kernel.CurrentLocked()
	return nil
}

// Give releases the mutex. A Give by a task other than the owner fails with
// ErrNotOwner and leaves the mutex held.
func (m *Mutex) Give() error {
	m.kernel.Lock()
	defer m.kernel.Unlock()
	if m.owner != m.kernel.CurrentLocked() {
		return ErrNotOwner
	}
	m.owner = nil
	return m.giveLocked()
}

// Owner returns the task currently holding the mutex, or nil when it is
// free or was taken from outside task context.
func (m *Mutex) Owner() *scheduler.Task {
	m.kernel.Lock()
	defer m.kernel.Unlock()
	return m.owner
}

// RecursiveMutex is a mutex the same owner may take repeatedly; the
// underlying binary lock is released only when every Take has been matched
// by a Give.
type RecursiveMutex struct {
	Mutex
	depth int
}

// NewRecursiveMutex creates an initially free recursive mutex.
func NewRecursiveMutex(kernel *scheduler.Kernel) *RecursiveMutex {
	return &RecursiveMutex{Mutex: Mutex{Semaphore: Semaphore{kernel: kernel, count: 1, max: 1}}}
}

// Take acquires the lock. A nested Take by the current owner only increments
// the re-entry counter and cannot block.
func (m *RecursiveMutex) Take(timeout scheduler.Ticks) error {
	m.kernel.Lock()
	defer m.kernel.Unlock()
	current := m.kernel.CurrentLocked()
	if m.depth > 0 && m.owner == current {
		m.depth++
		return nil
	}
	if err := m.takeLocked(timeout); err != nil {
		return err
	}
	m.owner = current
	m.depth = 1
	return nil
}

// Give decrements the re-entry counter, releasing the underlying lock when
// it reaches zero. A Give without a matching Take by the caller fails with
// ErrNotOwner.
func (m *RecursiveMutex) Give() error {
	m.kernel.Lock()
	defer m.kernel.Unlock()
	if m.depth == 0 || m.owner != m.kernel.CurrentLocked() {
		return ErrNotOwner
	}
	m.depth--
	if m.depth > 0 {
		return nil
	}
	m.owner = nil
	return m.giveLocked()
}

// Depth returns the current re-entry count.
func (m *RecursiveMutex) Depth() int {
	m.kernel.Lock()
	defer m.kernel.Unlock()
	return m.depth
}
