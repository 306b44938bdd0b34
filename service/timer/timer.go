// Package timer provides software timers driven by the kernel tick. A timer
// carries a period, a callback and an auto-reload flag; active timers are
// checked once per tick and fire at most once per check even when several
// ticks were coalesced.
package timer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/viant/mkernel/service/scheduler"
)

var (
	// ErrTimerLimit indicates the timer table is full.
	ErrTimerLimit = errors.New("timer: timer limit reached")
	// ErrInactive indicates an operation on a timer that is not running.
	ErrInactive = errors.New("timer: not active")
)

// TickSource is the slice of the kernel a timer service needs: the logical
// clock and the per-tick hook.
type TickSource interface {
	TickCount() scheduler.Ticks
	OnTick(fn func(tick scheduler.Ticks))
}

// Service owns the timer table and drives expiry checks from the tick hook.
type Service struct {
	source    TickSource
	maxTimers int

	mu     sync.Mutex
	timers []*Timer
	nextID uint32
}

// Timer is a one-shot or auto-reload callback scheduled in tick time.
type Timer struct {
	service    *Service
	name       string
	id         uint32
	period     scheduler.Ticks
	autoReload bool
	callback   func(*Timer)

	// Guarded by the service mutex.
	expireAt scheduler.Ticks
	active   bool
}

// New creates a timer service holding up to maxTimers timers and hooks it
// into the tick source.
func New(source TickSource, maxTimers int) *Service {
	s := &Service{source: source, maxTimers: maxTimers, nextID: 1}
	source.OnTick(s.check)
	return s
}

// NewTimer registers a timer with the given period in ticks. The timer is
// created stopped; Start arms it.
func (s *Service) NewTimer(name string, period scheduler.Ticks, autoReload bool, callback func(*Timer)) (*Timer, error) {
	if period == 0 {
		return nil, fmt.Errorf("timer: period must be positive")
	}
	if callback == nil {
		return nil, fmt.Errorf("timer: callback is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.timers) >= s.maxTimers {
		return nil, ErrTimerLimit
	}
	t := &Timer{
		service:    s,
		name:       name,
		id:         s.nextID,
		period:     period,
		autoReload: autoReload,
		callback:   callback,
	}
	s.nextID++
	s.timers = append(s.timers, t)
	return t, nil
}

// Len returns the number of registered timers.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// check runs once per tick, collects the timers due at the given tick and
// fires their callbacks outside the table lock. Auto-reload expiry is
// computed from the tick the timer fired at, so drift never accumulates
// beyond one period.
func (s *Service) check(tick scheduler.Ticks) {
	s.mu.Lock()
	var due []*Timer
	for _, t := range s.timers {
		if !t.active || tick < t.expireAt {
			continue
		}
		if t.autoReload {
			t.expireAt = tick + t.period
		} else {
			t.active = false
		}
		due = append(due, t)
	}
	s.mu.Unlock()

	for _, t := range due {
		t.callback(t)
	}
}

// Start arms the timer with expiry at the current tick plus its period. A
// running timer is re-armed from now. The blockTime argument is accepted for
// interface parity with queue-fed timer services; this service commits the
// command immediately and ignores it.
func (t *Timer) Start(blockTime scheduler.Ticks) error {
	_ = blockTime
	t.service.mu.Lock()
	defer t.service.mu.Unlock()
	t.expireAt = t.service.source.TickCount() + t.period
	t.active = true
	return nil
}

// Stop disarms the timer. Stopping an inactive timer fails with ErrInactive.
func (t *Timer) Stop() error {
	t.service.mu.Lock()
	defer t.service.mu.Unlock()
	if !t.active {
		return ErrInactive
	}
	t.active = false
	return nil
}

// IsActive reports whether the timer is armed.
func (t *Timer) IsActive() bool {
	t.service.mu.Lock()
	defer t.service.mu.Unlock()
	return t.active
}

// Name returns the timer name.
func (t *Timer) Name() string { return t.name }

// ID returns the registry-assigned timer id.
func (t *Timer) ID() uint32 { return t.id }

// Period returns the timer period in ticks.
func (t *Timer) Period() scheduler.Ticks { return t.period }

// AutoReload reports whether the timer re-arms itself after firing.
func (t *Timer) AutoReload() bool { return t.autoReload }
