// Package journal records every event that crosses the bridge, either as
// JSONL files on disk or in Postgres.
package journal

import "github.com/user/chatbridge/internal/types"

// Compile-time interface compliance checks.
var _ types.EventStore = (*FileStore)(nil)
var _ types.EventStore = (*PostgresStore)(nil)
