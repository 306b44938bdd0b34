package mkernel

import (
	"log"
	"time"

	"github.com/viant/afs"
	"github.com/viant/mkernel/service/event"
	"github.com/viant/mkernel/service/heap"
	"github.com/viant/mkernel/service/scheduler"
	"github.com/viant/mkernel/service/timer"
)

// Service assembles the kernel, the heap arena, the timer table and the
// telemetry publisher into one simulation instance.
type Service struct {
	config        *Config
	logger        *log.Logger
	kernelOptions []scheduler.Option
	journalURL    string

	runtime *Runtime
}

// New builds a simulation from the given options. Without options the
// default configuration profile is used.
func New(options ...Option) (*Service, error) {
	s := &Service{}
	for _, option := range options {
		option(s)
	}
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if err := s.config.Validate(); err != nil {
		return nil, err
	}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) init() error {
	kernelOptions := []scheduler.Option{
		scheduler.WithMaxTasks(s.config.MaxTasks),
		scheduler.WithPriorityLevels(s.config.Priorities),
		scheduler.WithTickInterval(time.Second / time.Duration(s.config.TickRateHz)),
	}
	if s.logger != nil {
		kernelOptions = append(kernelOptions, scheduler.WithLogger(s.logger))
	}
	kernelOptions = append(kernelOptions, s.kernelOptions...)
	kernel := scheduler.New(kernelOptions...)

	arena, err := heap.New(s.config.HeapSize)
	if err != nil {
		return err
	}

	transitions := event.NewPublisher[event.TaskTransition](4 * s.config.MaxTasks)
	if s.journalURL != "" {
		journal, jErr := event.NewJournal[event.TaskTransition](afs.New(), s.journalURL)
		if jErr != nil {
			return jErr
		}
		transitions.WithJournal(journal)
	}

	s.runtime = &Runtime{
		config:      s.config,
		kernel:      kernel,
		heap:        arena,
		timers:      timer.New(kernel, s.config.MaxTimers),
		transitions: transitions,
		timerFires:  event.NewPublisher[event.TimerFired](4 * s.config.MaxTimers),
		stacks:      map[uint32]heap.Pointer{},
	}
	s.runtime.bind()
	return nil
}

// Runtime returns the simulation runtime façade.
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// Config returns the effective configuration.
func (s *Service) Config() *Config {
	return s.config
}
