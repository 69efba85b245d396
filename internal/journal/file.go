// internal/journal/file.go
package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/user/chatbridge/internal/types"
)

// FileStore is a JSONL-backed append-only journal.
// Events are stored per session in sessions/<sessionID>/events.jsonl.
type FileStore struct {
	root string
	mu   sync.Mutex
	logs map[types.SessionID]*sessionLog
}

// sessionLog serializes writes to one session file and remembers the last
// sequence number once the file has been scanned.
type sessionLog struct {
	mu     sync.Mutex
	seq    int64
	loaded bool
}

func NewFileStore(root string) *FileStore {
	return &FileStore{
		root: root,
		logs: make(map[types.SessionID]*sessionLog),
	}
}

func (f *FileStore) log(sessionID types.SessionID) *sessionLog {
	f.mu.Lock()
	defer f.mu.Unlock()

	if l, ok := f.logs[sessionID]; ok {
		return l
	}
	l := &sessionLog{}
	f.logs[sessionID] = l
	return l
}

func (f *FileStore) path(sessionID types.SessionID) string {
	return filepath.Join(f.root, "sessions", string(sessionID), "events.jsonl")
}

// scan calls fn for each stored event. A missing file yields no events.
func (f *FileStore) scan(sessionID types.SessionID, fn func(*types.Event)) error {
	file, err := os.Open(f.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var ev types.Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			return fmt.Errorf("unmarshal journal entry: %w", err)
		}
		fn(&ev)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan journal: %w", err)
	}
	return nil
}

// lastSeq returns the session's highest sequence number. Caller must hold
// l.mu.
func (f *FileStore) lastSeq(sessionID types.SessionID, l *sessionLog) (int64, error) {
	if l.loaded {
		return l.seq, nil
	}
	var last int64
	if err := f.scan(sessionID, func(ev *types.Event) { last = max(last, ev.Seq) }); err != nil {
		return 0, err
	}
	l.seq, l.loaded = last, true
	return last, nil
}

// Append writes event with the next sequence number for its session.
func (f *FileStore) Append(_ context.Context, event *types.Event) error {
	l := f.log(event.SessionID)
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path(event.SessionID)), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	last, err := f.lastSeq(event.SessionID, l)
	if err != nil {
		return err
	}
	event.Seq = last + 1

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}

	file, err := os.OpenFile(f.path(event.SessionID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write journal entry: %w", err)
	}
	l.seq = event.Seq
	return nil
}

// Tail returns the last limit events for the session, oldest first.
func (f *FileStore) Tail(_ context.Context, sessionID types.SessionID, limit int) ([]*types.Event, error) {
	l := f.log(sessionID)
	l.mu.Lock()
	defer l.mu.Unlock()

	var events []*types.Event
	if err := f.scan(sessionID, func(ev *types.Event) { events = append(events, ev) }); err != nil {
		return nil, err
	}
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	return events, nil
}

func (f *FileStore) Count(_ context.Context, sessionID types.SessionID) (int64, error) {
	l := f.log(sessionID)
	l.mu.Lock()
	defer l.mu.Unlock()

	var n int64
	if err := f.scan(sessionID, func(*types.Event) { n++ }); err != nil {
		return 0, err
	}
	return n, nil
}

// Sessions lists the session IDs that have a journal on disk.
func (f *FileStore) Sessions() ([]types.SessionID, error) {
	entries, err := os.ReadDir(filepath.Join(f.root, "sessions"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read journal dir: %w", err)
	}
	var out []types.SessionID
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, types.SessionID(e.Name()))
		}
	}
	return out, nil
}
