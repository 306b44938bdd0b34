package sync

import (
	"errors"

	"github.com/viant/mkernel/service/scheduler"
)

// UserBitsMask is the range of event bits available to callers; the top
// eight bits of the word are reserved for kernel control use.
const UserBitsMask uint32 = 0x00FFFFFF

// ErrInvalidBits indicates a mask that is empty or touches reserved bits.
var ErrInvalidBits = errors.New("sync: event bits out of range")

// EventGroup is a word of flag bits tasks can wait on with wait-for-any or
// wait-for-all semantics. Bits are only mutated inside the kernel critical
// section and every waiter re-evaluates its predicate after each SetBits.
type EventGroup struct {
	kernel  *scheduler.Kernel
	bits    uint32
	waiters scheduler.WaitQueue
}

// NewEventGroup creates an event group with all bits clear.
func NewEventGroup(kernel *scheduler.Kernel) *EventGroup {
	return &EventGroup{kernel: kernel}
}

// SetBits sets the bits in mask, wakes all waiters for re-evaluation and
// returns the resulting value.
func (g *EventGroup) SetBits(mask uint32) (uint32, error) {
	if !validMask(mask) {
		return 0, ErrInvalidBits
	}
	g.kernel.Lock()
	defer g.kernel.Unlock()
	g.bits |= mask
	g.kernel.WakeAllLocked(&g.waiters)
	return g.bits, nil
}

// ClearBits clears the bits in mask and returns the value before clearing.
func (g *EventGroup) ClearBits(mask uint32) (uint32, error) {
	if !validMask(mask) {
		return 0, ErrInvalidBits
	}
	g.kernel.Lock()
	defer g.kernel.Unlock()
	before := g.bits
	g.bits &^= mask
	return before, nil
}

// WaitBits blocks until every bit of mask is set (waitForAll) or any bit of
// mask is set, or until timeout. On success the returned value is the bits
// observed when the condition held and, when clearOnExit is set, the mask
// bits are cleared before returning. On timeout the bits observed at that
// moment are returned together with ErrTimeout.
func (g *EventGroup) WaitBits(mask uint32, clearOnExit, waitForAll bool, timeout scheduler.Ticks) (uint32, error) {
	if !validMask(mask) {
		return 0, ErrInvalidBits
	}
	g.kernel.Lock()
	defer g.kernel.Unlock()

	var deadline scheduler.Ticks
	if timeout != 0 && timeout != scheduler.Forever {
		deadline = g.kernel.TickCountLocked() + timeout
	}
	for {
		if g.satisfied(mask, waitForAll) {
			observed := g.bits
			if clearOnExit {
				g.bits &^= mask
			}
			return observed, nil
		}
		if timeout == 0 {
			return g.bits, ErrTimeout
		}
		remaining := scheduler.Forever
		if timeout != scheduler.Forever {
			now := g.kernel.TickCountLocked()
			if now >= deadline {
				return g.bits, ErrTimeout
			}
			remaining = deadline - now
		}
		if !g.kernel.BlockCurrentLocked(&g.waiters, remaining) {
			return g.bits, ErrTimeout
		}
	}
}

// Bits returns the current flag word.
func (g *EventGroup) Bits() uint32 {
	g.kernel.Lock()
	defer g.kernel.Unlock()
	return g.bits
}

func (g *EventGroup) satisfied(mask uint32, waitForAll bool) bool {
	current := g.bits & mask
	if waitForAll {
		return current == mask
	}
	return current != 0
}

func validMask(mask uint32) bool {
	return mask != 0 && mask&^UserBitsMask == 0
}
