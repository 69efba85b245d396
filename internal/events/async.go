package events

import (
	"log/slog"
	"sync"
)

// AsyncSink hands events to a slower sink on its own goroutine. Events are
// delivered in order; when the buffer is full new events are dropped.
type AsyncSink struct {
	name string
	next Sink
	ch   chan Event

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewAsync starts the delivery goroutine for next.
func NewAsync(name string, next Sink, buffer int) *AsyncSink {
	if buffer <= 0 {
		buffer = 100
	}
	a := &AsyncSink{
		name: name,
		next: next,
		ch:   make(chan Event, buffer),
		done: make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *AsyncSink) run() {
	defer close(a.done)
	for e := range a.ch {
		a.next.Handle(e)
	}
}

func (a *AsyncSink) Handle(e Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	select {
	case a.ch <- e:
	default:
		slog.Warn("event dropped", "sink", a.name, "event", string(e.Name))
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (a *AsyncSink) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.ch)
	}
	a.mu.Unlock()
	<-a.done
}
