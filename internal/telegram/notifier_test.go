package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/chatbridge/internal/events"
	"github.com/user/chatbridge/internal/retry"
)

type fakeBot struct {
	mu    sync.Mutex
	sent  []string
	fails int
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails > 0 {
		f.fails--
		return tgbotapi.Message{}, errors.New("connection reset by peer")
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig).Text)
	return tgbotapi.Message{}, nil
}

func newTestNotifier(bot *fakeBot, names ...events.Name) *Notifier {
	n := newNotifier(bot, 42, "sess-1", names...)
	n.policy = &retry.Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 1, MaxDelay: time.Millisecond}
	return n
}

func TestSplitMessage(t *testing.T) {
	short := "Hello world"
	parts := splitMessage(short)
	if len(parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(parts))
	}
	if parts[0] != short {
		t.Errorf("expected %q, got %q", short, parts[0])
	}
}

func TestSplitMessageLong(t *testing.T) {
	long := strings.Repeat("a", 5000)
	parts := splitMessage(long)
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if len(parts[0]) != maxTelegramMessage {
		t.Errorf("expected first part length %d, got %d", maxTelegramMessage, len(parts[0]))
	}
}

func TestSplitMessageKeepsRunesWhole(t *testing.T) {
	// One ASCII byte shifts every 3-byte rune across the chunk boundary.
	long := "a" + strings.Repeat("€", 2000)
	parts := splitMessage(long)
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if strings.Join(parts, "") != long {
		t.Fatal("parts do not reassemble the original text")
	}
	for i, p := range parts {
		if len(p) > maxTelegramMessage {
			t.Errorf("part %d is %d bytes", i, len(p))
		}
		if !utf8.ValidString(p) {
			t.Errorf("part %d is not valid UTF-8", i)
		}
	}
}

func TestNotifierForwardsWatchedEvents(t *testing.T) {
	bot := &fakeBot{}
	n := newTestNotifier(bot)

	n.Handle(events.Event{Name: events.ChatUpdated, Payload: events.ChatUpdatedPayload{State: "ready"}, At: time.Now()})
	n.Handle(events.Event{
		Name:    events.ConnectionError,
		Payload: events.ConnectionErrorPayload{Phase: "prepare", Message: "Prepare timeout"},
		At:      time.Now(),
	})

	if len(bot.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(bot.sent))
	}
	if !strings.Contains(bot.sent[0], "connectionError [prepare]: Prepare timeout") {
		t.Errorf("unexpected message %q", bot.sent[0])
	}
	if !strings.Contains(bot.sent[0], "session: sess-1") {
		t.Errorf("message should name the session: %q", bot.sent[0])
	}
}

func TestNotifierCustomEventList(t *testing.T) {
	bot := &fakeBot{}
	n := newTestNotifier(bot, events.ChatUpdated)

	n.Handle(events.Event{Name: events.ChatUpdated, Payload: events.ChatUpdatedPayload{State: "ready", Mode: "livechat"}})
	n.Handle(events.Event{Name: events.ConnectionError, Payload: events.ConnectionErrorPayload{}})

	if len(bot.sent) != 1 || !strings.Contains(bot.sent[0], "ready (livechat)") {
		t.Errorf("unexpected messages %v", bot.sent)
	}
}

func TestNotifierRetriesTransientFailures(t *testing.T) {
	bot := &fakeBot{fails: 2}
	n := newTestNotifier(bot)

	n.Handle(events.Event{Name: events.UnexpectedDisconnect, Payload: events.Empty{}})
	if len(bot.sent) != 1 {
		t.Fatalf("expected delivery after retries, got %d messages", len(bot.sent))
	}
}

func TestHandleCommand(t *testing.T) {
	bot := &fakeBot{}
	n := newTestNotifier(bot)

	n.handleCommand(context.Background(), "status")
	n.SetStatus(func(context.Context) string { return "state: ready" })
	n.handleCommand(context.Background(), "status")
	n.handleCommand(context.Background(), "bogus")

	want := []string{"Status is not available.", "state: ready", "Unknown command. Available: /start, /status"}
	if len(bot.sent) != len(want) {
		t.Fatalf("expected %d replies, got %v", len(want), bot.sent)
	}
	for i := range want {
		if bot.sent[i] != want[i] {
			t.Errorf("reply %d = %q, want %q", i, bot.sent[i], want[i])
		}
	}
}
