package pubsub

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/user/chatbridge/internal/events"
	"github.com/user/chatbridge/internal/types"
)

const producer = "chatbridge"

// Envelope is the message body published for every bridge event.
type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

type Meta struct {
	// Session the event belongs to; consumers group on it.
	CorrelationID string `json:"correlation_id"`
	// Unique event ID
	ID       string    `json:"id"`
	Producer string    `json:"producer"`
	Time     time.Time `json:"time"`
	// Event name and version, e.g. chatbridge.threadUpdated.v1
	Type string `json:"type"`
}

// NewEnvelope wraps e for sessionID.
func NewEnvelope(sessionID types.SessionID, e events.Event) Envelope {
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	return Envelope{
		Meta: Meta{
			CorrelationID: string(sessionID),
			ID:            uuid.NewString(),
			Producer:      producer,
			Time:          at.UTC(),
			Type:          producer + "." + string(e.Name) + ".v1",
		},
		Data: e.Payload,
	}
}

// RoutingKey returns the topic key for an event, e.g.
// chatbridge.events.connection_error.
func RoutingKey(name events.Name) string {
	return producer + ".events." + snake(string(name))
}

func snake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
