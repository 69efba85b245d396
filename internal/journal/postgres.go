package journal

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/user/chatbridge/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS bridge_events (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	seq        BIGINT NOT NULL,
	type       TEXT NOT NULL,
	source     TEXT NOT NULL,
	at         TIMESTAMPTZ NOT NULL,
	payload    JSONB NOT NULL,
	UNIQUE (session_id, seq)
)`

// PostgresStore keeps the journal in a bridge_events table.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects with dsn, verifies the connection and creates the
// table when missing.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := NewPostgresStore(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate journal: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Append assigns the next sequence number in the same statement as the
// insert; the unique constraint rejects a concurrent duplicate.
func (s *PostgresStore) Append(ctx context.Context, event *types.Event) error {
	payload := event.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO bridge_events (id, session_id, seq, type, source, at, payload)
		SELECT $1, $2, COALESCE(MAX(seq), 0) + 1, $3, $4, $5, $6
		FROM bridge_events WHERE session_id = $2
		RETURNING seq
	`,
		string(event.ID),
		string(event.SessionID),
		event.Type,
		event.Source,
		event.At,
		string(payload),
	).Scan(&event.Seq)
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Tail(ctx context.Context, sessionID types.SessionID, limit int) ([]*types.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, seq, type, source, at, payload
		FROM (
			SELECT * FROM bridge_events
			WHERE session_id = $1
			ORDER BY seq DESC
			LIMIT $2
		) t
		ORDER BY seq ASC
	`, string(sessionID), limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var out []*types.Event
	for rows.Next() {
		var (
			ev      types.Event
			id, sid string
			payload []byte
		)
		if err := rows.Scan(&id, &sid, &ev.Seq, &ev.Type, &ev.Source, &ev.At, &payload); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		ev.ID = types.EventID(id)
		ev.SessionID = types.SessionID(sid)
		ev.Payload = payload
		out = append(out, &ev)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Count(ctx context.Context, sessionID types.SessionID) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bridge_events WHERE session_id = $1`, string(sessionID)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count journal entries: %w", err)
	}
	return n, nil
}
