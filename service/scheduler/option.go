package scheduler

import (
	"log"
	"time"
)

// Option customises a Kernel at construction time.
type Option func(*Kernel)

// WithMaxTasks caps the number of concurrently live tasks, IDLE included.
func WithMaxTasks(max int) Option {
	return func(k *Kernel) {
		if max > 0 {
			k.maxTasks = max
		}
	}
}

// WithPriorityLevels sets the number of priority levels. Valid task
// priorities then span 0 to levels-1.
func WithPriorityLevels(levels int) Option {
	return func(k *Kernel) {
		if levels > 0 {
			k.levels = levels
		}
	}
}

// WithTickInterval sets the wall-clock duration of one tick used by Run.
func WithTickInterval(interval time.Duration) Option {
	return func(k *Kernel) {
		if interval > 0 {
			k.tickInterval = interval
		}
	}
}

// WithLogger enables scheduling trace output.
func WithLogger(logger *log.Logger) Option {
	return func(k *Kernel) {
		k.logger = logger
	}
}
