package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/user/chatbridge/internal/config"
	"github.com/user/chatbridge/internal/events"
	"github.com/user/chatbridge/internal/sdk/sim"
	"github.com/user/chatbridge/internal/session"
)

func TestRunDemo(t *testing.T) {
	cfg := &config.Config{}
	cfg.Vendor.Name = "US1"
	cfg.Vendor.BrandID = 1
	cfg.Vendor.ChannelID = "chat_demo"

	var rec events.Recorder
	sess := session.New(sim.New(sim.DefaultFixture()), events.NewEmitter(&rec),
		session.WithPaging(10, 5*time.Millisecond, 50))
	defer sess.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out bytes.Buffer
	if err := runDemo(ctx, sess, environment(cfg), "hi", &out); err != nil {
		t.Fatalf("runDemo: %v\n%s", err, out.String())
	}

	for _, want := range []string{"# prepare and connect to chat_demo", "# created thread", `# sent "hi"`, "# disconnected"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
	if len(rec.Named(events.ThreadUpdated)) == 0 {
		t.Error("expected threadUpdated events")
	}
	if len(rec.Named(events.ConnectionError)) != 0 {
		t.Errorf("unexpected connection errors: %+v", rec.Named(events.ConnectionError))
	}
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := printer(&buf)
	p.Handle(events.Event{Name: events.ChatUpdated, Payload: events.ChatUpdatedPayload{State: "ready", Mode: "multithread"}, At: time.UnixMilli(1700000000000)})

	var env struct {
		Event   string                    `json:"event"`
		Payload events.ChatUpdatedPayload `json:"payload"`
		At      int64                     `json:"at"`
	}
	if err := json.Unmarshal(buf.Bytes(), &env); err != nil {
		t.Fatalf("invalid JSON line %q: %v", buf.String(), err)
	}
	if env.Event != "chatUpdated" || env.Payload.State != "ready" || env.At != 1700000000000 {
		t.Errorf("unexpected envelope %+v", env)
	}
}

func TestSessionOptions(t *testing.T) {
	cfg := &config.Config{}
	if got := len(sessionOptions(cfg)); got != 1 {
		t.Errorf("expected only the logger option for zero config, got %d", got)
	}
	cfg.Session.PrepareTimeoutMs = 100
	cfg.Session.ConnectTimeoutMs = 200
	cfg.Session.PageIterations = 3
	if got := len(sessionOptions(cfg)); got != 4 {
		t.Errorf("expected 4 options, got %d", got)
	}
}

func TestPrintSections(t *testing.T) {
	cfg := &config.Config{LogLevel: "debug"}
	cfg.Server.AllowedOrigins = []string{"http://a:1", "http://b:2"}
	cfg.Telegram.Token = "123456:secret"

	var buf bytes.Buffer
	printSections(&buf, config.GroupBySection(config.Entries(cfg, true)))
	out := buf.String()

	for _, want := range []string{
		"[general]\n  data_dir = \n  log_level = debug\n",
		"\n\n[server]\n  server.addr = \n  server.allowed_origins = http://a:1,http://b:2\n",
		"[telegram]\n  telegram.token = ***cret\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "123456") {
		t.Error("secret leaked into list output")
	}
}
