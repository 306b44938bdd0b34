package event

import (
	"context"
	"sync"
)

// Listener consumes events from a publisher on a background goroutine and
// hands each one to a handler.
type Listener[T any] struct {
	publisher *Publisher[T]
	handler   func(*Event[T])
	cancel    context.CancelFunc
	done      chan struct{}
	once      sync.Once
}

// NewListener creates a listener bound to publisher; Start begins delivery.
func NewListener[T any](publisher *Publisher[T], handler func(*Event[T])) *Listener[T] {
	return &Listener[T]{publisher: publisher, handler: handler}
}

// Start launches the delivery goroutine. Repeated calls are no-ops.
func (l *Listener[T]) Start() {
	l.once.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		l.cancel = cancel
		l.done = make(chan struct{})
		go l.run(ctx)
	})
}

func (l *Listener[T]) run(ctx context.Context) {
	defer close(l.done)
	for {
		event, err := l.publisher.Consume(ctx)
		if err != nil {
			return
		}
		l.handler(event)
	}
}

// Stop cancels delivery and waits for the goroutine to exit. Events already
// buffered but not yet consumed stay in the publisher.
func (l *Listener[T]) Stop() {
	if l.cancel == nil {
		return
	}
	l.cancel()
	<-l.done
}
