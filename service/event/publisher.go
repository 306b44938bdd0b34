package event

import (
	"context"
	"fmt"
	"sync"
)

// Publisher fans kernel telemetry envelopes into a bounded channel. The
// kernel publishes from scheduling hot paths, so TryPublish drops rather
// than blocks when consumers fall behind, and journal persistence runs on
// its own goroutine so a publish never spans I/O.
type Publisher[T any] struct {
	events   chan *Event[T]
	journalQ chan *Event[T]
	wg       sync.WaitGroup
}

// NewPublisher creates a publisher with the given channel capacity.
func NewPublisher[T any](buffer int) *Publisher[T] {
	if buffer <= 0 {
		buffer = 128
	}
	return &Publisher[T]{events: make(chan *Event[T], buffer)}
}

// WithJournal attaches a journal and starts its writer goroutine; every
// accepted event is also queued for appending. Attach before the first
// publish. Returns the publisher for chaining.
func (p *Publisher[T]) WithJournal(journal *Journal[T]) *Publisher[T] {
	p.journalQ = make(chan *Event[T], cap(p.events))
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for event := range p.journalQ {
			_ = journal.Append(context.Background(), event)
		}
	}()
	return p
}

// Close stops the journal writer after draining queued appends. The event
// channel stays usable; publishing after Close is not.
func (p *Publisher[T]) Close() {
	if p.journalQ != nil {
		close(p.journalQ)
		p.wg.Wait()
	}
}

// Publish delivers an event, waiting for channel space until the context is
// done.
func (p *Publisher[T]) Publish(ctx context.Context, event *Event[T]) error {
	select {
	case p.events <- event:
	case <-ctx.Done():
		return ctx.Err()
	}
	if p.journalQ != nil {
		select {
		case p.journalQ <- event:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// TryPublish delivers an event without blocking, reporting whether it was
// accepted. A journal backlog drops the append, never the publish.
func (p *Publisher[T]) TryPublish(event *Event[T]) bool {
	select {
	case p.events <- event:
	default:
		return false
	}
	if p.journalQ != nil {
		select {
		case p.journalQ <- event:
		default:
		}
	}
	return true
}

// Consume retrieves a single event, waiting until one is available or the
// context is done.
func (p *Publisher[T]) Consume(ctx context.Context) (*Event[T], error) {
	select {
	case event := <-p.events:
		return event, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("consuming event: %w", ctx.Err())
	}
}

// Pending returns the number of buffered events.
func (p *Publisher[T]) Pending() int { return len(p.events) }
