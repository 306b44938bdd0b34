package event

import (
	"time"

	"github.com/viant/mkernel/internal/clock"
	"github.com/viant/mkernel/internal/idgen"
)

// Context identifies the kernel activity an event originated from.
type Context struct {
	TaskID    uint32 `json:"taskID,omitempty"`
	TaskName  string `json:"taskName,omitempty"`
	EventType string `json:"eventType"`
}

// Event is a telemetry envelope published by the kernel. CreatedAt carries
// host wall-clock time; tick-time belongs in the payload.
type Event[T any] struct {
	ID        string    `json:"id"`
	Context   *Context  `json:"context"`
	CreatedAt time.Time `json:"createdAt"`
	Data      T         `json:"data"`
}

// NewEvent wraps data in an envelope stamped with a fresh id and the current
// wall-clock time.
func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		ID:        idgen.New(),
		Context:   context,
		CreatedAt: clock.Now(),
		Data:      data,
	}
}

// TaskTransition is the payload of a context-switch event.
type TaskTransition struct {
	From string `json:"from,omitempty"`
	To   string `json:"to"`
	Tick uint64 `json:"tick"`
}

// TimerFired is the payload of a software-timer expiry event.
type TimerFired struct {
	Timer string `json:"timer"`
	Tick  uint64 `json:"tick"`
}
