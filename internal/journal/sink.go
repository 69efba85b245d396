package journal

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/user/chatbridge/internal/events"
	"github.com/user/chatbridge/internal/types"
)

const appendTimeout = 5 * time.Second

// Sink records every emitted event in a store. Handle blocks on storage,
// so it is normally wrapped with events.NewAsync.
type Sink struct {
	store     types.EventStore
	sessionID types.SessionID
	source    string
}

func NewSink(store types.EventStore, sessionID types.SessionID, source string) *Sink {
	return &Sink{store: store, sessionID: sessionID, source: source}
}

func (s *Sink) Handle(e events.Event) {
	ev, err := Record(s.sessionID, s.source, e)
	if err != nil {
		slog.Warn("journal encode failed", "event", string(e.Name), "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
	defer cancel()
	if err := s.store.Append(ctx, ev); err != nil {
		slog.Warn("journal append failed", "event", string(e.Name), "session_id", string(s.sessionID), "error", err)
	}
}

// Record converts an emitted event to a journal entry.
func Record(sessionID types.SessionID, source string, e events.Event) (*types.Event, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}
	return &types.Event{
		ID:        types.NewEventID(),
		SessionID: sessionID,
		Type:      string(e.Name),
		Source:    source,
		At:        e.At,
		Payload:   payload,
	}, nil
}
