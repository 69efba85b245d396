//go:build integration

package bridge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/user/chatbridge/internal/events"
	"github.com/user/chatbridge/internal/journal"
	"github.com/user/chatbridge/internal/sdk/sim"
	"github.com/user/chatbridge/internal/session"
)

func TestEndToEnd(t *testing.T) {
	dir := t.TempDir()
	store := journal.NewFileStore(dir)

	p := sim.New(sim.DefaultFixture())
	bus := events.NewBus()
	emitter := events.NewEmitter(bus)
	sess := session.New(p, emitter)
	defer sess.Close()

	sink := events.NewAsync("journal", journal.NewSink(store, sess.ID, "bridge"), 64)
	emitter.AddSink(sink)

	ts := httptest.NewServer(NewServer(sess, bus))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/events", nil)
	if err != nil {
		t.Fatalf("dial events: %v", err)
	}
	defer c.CloseNow()

	var snapshot events.Envelope
	if err := wsjson.Read(ctx, c, &snapshot); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}

	post := func(path, body string) {
		t.Helper()
		resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("POST %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode >= 300 {
			t.Fatalf("POST %s: status %d", path, resp.StatusCode)
		}
	}
	post("/connection/prepare-and-connect", envBody)
	post("/threads/"+threadID+"/messages", `{"text":"hello"}`)

	// The simulator answers with an agent reply; wait for it on the stream.
	replies := 0
	for replies < 2 {
		var env map[string]any
		if err := wsjson.Read(ctx, c, &env); err != nil {
			t.Fatalf("read event: %v", err)
		}
		if env["event"] == string(events.ThreadUpdated) {
			replies++
		}
	}

	sink.Close()
	list, err := store.Tail(ctx, sess.ID, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) == 0 {
		t.Fatal("expected journaled events")
	}
	for i, e := range list {
		if e.Seq != int64(i+1) {
			t.Errorf("expected seq %d, got %d", i+1, e.Seq)
		}
	}
}
