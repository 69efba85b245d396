package events

import (
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/chatbridge/internal/types"
)

func TestEmitter_FansOutToSinks(t *testing.T) {
	var a, b Recorder
	em := NewEmitter(&a)
	em.AddSink(&b)

	em.Emit(ChatUpdated, ChatUpdatedPayload{State: "ready", Mode: "multithread"})

	require.Len(t, a.Events(), 1)
	require.Len(t, b.Events(), 1)
	assert.Equal(t, ChatUpdated, a.Events()[0].Name)
	assert.False(t, a.Events()[0].At.IsZero())
}

func TestEmitter_NilPayloadEncodesAsEmptyObject(t *testing.T) {
	var rec Recorder
	NewEmitter(&rec).Emit(UnexpectedDisconnect, nil)

	raw, err := json.Marshal(rec.Events()[0].Envelope())
	require.NoError(t, err)

	var env map[string]any
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, "unexpectedDisconnect", env["event"])
	assert.Equal(t, map[string]any{}, env["payload"])
}

func TestErrorSink_EmitsPairOnce(t *testing.T) {
	var rec Recorder
	sink := NewErrorSink(NewEmitter(&rec))

	sink.Report(types.PhasePrepare, types.NewPrepareTimeout())

	evs := rec.Events()
	require.Len(t, evs, 2)
	assert.Equal(t, ConnectionError, evs[0].Name)
	assert.Equal(t, ConnectionErrorPayload{Phase: "prepare", Message: "Prepare timeout"}, evs[0].Payload)
	assert.Equal(t, Error, evs[1].Name)
	assert.Equal(t, ErrorPayload{Message: "Prepare timeout"}, evs[1].Payload)
}

func TestErrorSink_PlainErrorAndNil(t *testing.T) {
	var rec Recorder
	sink := NewErrorSink(NewEmitter(&rec))

	sink.Report(types.PhaseRuntime, nil)
	assert.Empty(t, rec.Events())

	sink.Report(types.PhaseRuntime, errors.New("token expired"))
	require.Len(t, rec.Named(ConnectionError), 1)
	assert.Equal(t, "token expired", rec.Named(Error)[0].Payload.(ErrorPayload).Message)
}

func TestAsyncSink_DeliversInOrder(t *testing.T) {
	var rec Recorder
	async := NewAsync("test", &rec, 10)

	for _, n := range []Name{ChatUpdated, ThreadUpdated, AgentTyping} {
		async.Handle(Event{Name: n})
	}
	async.Close()

	evs := rec.Events()
	require.Len(t, evs, 3)
	assert.Equal(t, []Name{ChatUpdated, ThreadUpdated, AgentTyping}, []Name{evs[0].Name, evs[1].Name, evs[2].Name})

	// Handle after Close is a no-op.
	async.Handle(Event{Name: Error})
	assert.Len(t, rec.Events(), 3)
}

func TestAsyncSink_DropsWhenFull(t *testing.T) {
	release := make(chan struct{})
	var delivered atomic.Int32
	slow := SinkFunc(func(Event) {
		<-release
		delivered.Add(1)
	})

	async := NewAsync("slow", slow, 1)
	for i := 0; i < 10; i++ {
		async.Handle(Event{Name: ChatUpdated})
	}
	close(release)
	async.Close()

	assert.Less(t, int(delivered.Load()), 10)
	assert.GreaterOrEqual(t, int(delivered.Load()), 1)
}

func TestBus_SubscribePublish(t *testing.T) {
	bus := NewBus()
	sub1 := bus.Subscribe(4)
	sub2 := bus.Subscribe(4)
	defer bus.Unsubscribe(sub1)
	defer bus.Unsubscribe(sub2)
	assert.Equal(t, 2, bus.Len())

	bus.Handle(Event{Name: ThreadsUpdated})

	for _, sub := range []*Subscription{sub1, sub2} {
		select {
		case got := <-sub.C:
			assert.Equal(t, ThreadsUpdated, got.Name)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(1)
	bus.Unsubscribe(sub)
	bus.Unsubscribe(sub)

	_, ok := <-sub.C
	assert.False(t, ok)
	assert.Equal(t, 0, bus.Len())
}

func TestBus_FullSubscriberDoesNotBlock(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(1)
	defer bus.Unsubscribe(sub)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			bus.Handle(Event{Name: AgentTyping})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}
