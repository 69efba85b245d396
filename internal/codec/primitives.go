package codec

import (
	"time"

	"github.com/google/uuid"
)

// Millis converts t to epoch milliseconds. The zero time maps to 0.
func Millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// MillisPtr converts an optional timestamp; nil stays nil.
func MillisPtr(t *time.Time) *int64 {
	if t == nil || t.IsZero() {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

// ID stringifies a vendor identifier. uuid.Nil maps to "".
func ID(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

// Fields copies a string map so callers never share the vendor's map,
// and never returns nil.
func Fields(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
