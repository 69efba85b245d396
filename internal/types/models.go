// internal/types/models.go
package types

import (
	"encoding/json"
	"time"
)

// Event is a journal record of one event emitted across the bridge.
type Event struct {
	ID        EventID         `json:"id"`
	SessionID SessionID       `json:"session_id"`
	Seq       int64           `json:"seq"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	At        time.Time       `json:"at"`
	Payload   json.RawMessage `json:"payload"`
}

// ErrorPhase tags where in the connection lifecycle a failure happened.
type ErrorPhase string

const (
	PhasePreflight ErrorPhase = "preflight"
	PhasePrepare   ErrorPhase = "prepare"
	PhaseConnect   ErrorPhase = "connect"
	PhaseRuntime   ErrorPhase = "runtime"
)
