// Package events republishes vendor callbacks and lifecycle failures as
// named, JSON-safe events and fans them out to sinks.
package events

import (
	"sync"
	"time"
)

// Name identifies an emitted event. Names are part of the bridge contract.
type Name string

const (
	ChatUpdated             Name = "chatUpdated"
	ThreadUpdated           Name = "threadUpdated"
	ThreadsUpdated          Name = "threadsUpdated"
	AgentTyping             Name = "agentTyping"
	CustomEventMessage      Name = "customEventMessage"
	ContactCustomFieldsSet  Name = "contactCustomFieldsSet"
	CustomerCustomFieldsSet Name = "customerCustomFieldsSet"
	AuthorizationChanged    Name = "authorizationChanged"
	ConnectionError         Name = "connectionError"
	Error                   Name = "error"
	UnexpectedDisconnect    Name = "unexpectedDisconnect"
	TokenRefreshFailed      Name = "tokenRefreshFailed"
	ProactivePopupAction    Name = "proactivePopupAction"
)

// Event is one emission. Payload is one of the payload types in this
// package.
type Event struct {
	Name    Name
	Payload any
	At      time.Time
}

// Envelope is the wire form written to event-stream clients.
type Envelope struct {
	Event   Name  `json:"event"`
	Payload any   `json:"payload"`
	At      int64 `json:"at"`
}

func (e Event) Envelope() Envelope {
	return Envelope{Event: e.Name, Payload: e.Payload, At: e.At.UnixMilli()}
}

// Sink receives emitted events. Handle is called on the emitting goroutine
// and must not block; wrap slow sinks with NewAsync.
type Sink interface {
	Handle(e Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Handle(e Event) { f(e) }

// Emitter fans events out to every registered sink.
type Emitter struct {
	mu    sync.RWMutex
	sinks []Sink
	now   func() time.Time
}

func NewEmitter(sinks ...Sink) *Emitter {
	return &Emitter{sinks: sinks, now: time.Now}
}

// AddSink registers s for subsequent events.
func (e *Emitter) AddSink(s Sink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sinks = append(e.sinks, s)
}

func (e *Emitter) Emit(name Name, payload any) {
	if payload == nil {
		payload = Empty{}
	}
	ev := Event{Name: name, Payload: payload, At: e.now()}

	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, s := range e.sinks {
		s.Handle(ev)
	}
}
