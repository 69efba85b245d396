package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/chatbridge/internal/events"
	"github.com/user/chatbridge/internal/retry"
)

type fakeChannel struct {
	fails     int
	published []amqp.Publishing
	keys      []string
	closed    bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	if f.fails > 0 {
		f.fails--
		return errors.New("connection reset")
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func testPublisher(ch channel) *Publisher {
	return &Publisher{
		exchange: DefaultExchange,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		policy:   &retry.Policy{MaxAttempts: 2, InitialDelay: time.Millisecond, Multiplier: 1, MaxDelay: time.Millisecond},
		ch:       ch,
	}
}

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "chatbridge.events.connection_error", RoutingKey(events.ConnectionError))
	assert.Equal(t, "chatbridge.events.error", RoutingKey(events.Error))
	assert.Equal(t, "chatbridge.events.proactive_popup_action", RoutingKey(events.ProactivePopupAction))
}

func TestNewEnvelope(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	env := NewEnvelope("sess-1", events.Event{Name: events.ThreadUpdated, Payload: events.Empty{}, At: at})

	assert.Equal(t, "sess-1", env.Meta.CorrelationID)
	assert.Equal(t, "chatbridge.threadUpdated.v1", env.Meta.Type)
	assert.Equal(t, at, env.Meta.Time)
	assert.NotEmpty(t, env.Meta.ID)
}

func TestSinkPublishes(t *testing.T) {
	ch := &fakeChannel{}
	sink := NewSink(testPublisher(ch), "sess-1")

	sink.Handle(events.Event{Name: events.ChatUpdated, Payload: events.ChatUpdatedPayload{State: "ready", Mode: "livechat"}})

	require.Len(t, ch.published, 1)
	msg := ch.published[0]
	assert.Equal(t, "chatbridge.events.chat_updated", ch.keys[0])
	assert.Equal(t, "sess-1", msg.CorrelationId)
	assert.Equal(t, uint8(amqp.Persistent), msg.DeliveryMode)

	var env struct {
		Meta Meta                      `json:"meta"`
		Data events.ChatUpdatedPayload `json:"data"`
	}
	require.NoError(t, json.Unmarshal(msg.Body, &env))
	assert.Equal(t, "ready", env.Data.State)
	assert.Equal(t, msg.MessageId, env.Meta.ID)
}

func TestPublishDropsBrokenChannel(t *testing.T) {
	ch := &fakeChannel{fails: 1}
	pub := testPublisher(ch)

	// The failed channel is dropped; without a connection it cannot be
	// reopened, so the retry fails permanently.
	err := pub.Publish(context.Background(), "k", NewEnvelope("s", events.Event{Name: events.Error}))
	require.Error(t, err)
	assert.True(t, ch.closed)
	assert.Nil(t, pub.ch)
}
