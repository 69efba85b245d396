// internal/types/ids.go
package types

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type SessionID string
type EventID string

func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

func NewEventID() EventID {
	return EventID(uuid.New().String())
}

// ParseThreadID validates a thread identifier received at the bridge
// boundary. Thread identifiers are vendor UUIDs.
func ParseThreadID(s string) (uuid.UUID, error) {
	return parseUUID("thread id", s)
}

// ParseTriggerID validates a proactive trigger identifier.
func ParseTriggerID(s string) (uuid.UUID, error) {
	return parseUUID("trigger id", s)
}

func parseUUID(what, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, NewInvalidArgument(fmt.Sprintf("invalid %s %q", what, s), err)
	}
	return id, nil
}
