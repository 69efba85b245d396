// Package telegram forwards operational bridge events (connection
// failures, dropped sockets, token refresh failures) to a Telegram chat
// and answers /status queries from that chat.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/chatbridge/internal/events"
	"github.com/user/chatbridge/internal/retry"
	"github.com/user/chatbridge/internal/types"
)

const maxTelegramMessage = 4096

// DefaultEvents are forwarded when no explicit list is configured.
var DefaultEvents = []events.Name{
	events.ConnectionError,
	events.UnexpectedDisconnect,
	events.TokenRefreshFailed,
}

// sender is the part of the bot API the notifier uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// StatusFunc reports the bridge status for /status.
type StatusFunc func(ctx context.Context) string

// Notifier is an events.Sink that posts selected events to one chat.
type Notifier struct {
	bot       sender
	api       *tgbotapi.BotAPI
	chatID    int64
	sessionID types.SessionID
	watch     map[events.Name]bool
	policy    *retry.Policy
	status    StatusFunc
}

// New connects to the bot API with token.
func New(token string, chatID int64, sessionID types.SessionID, names ...events.Name) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	n := newNotifier(bot, chatID, sessionID, names...)
	n.api = bot
	return n, nil
}

func newNotifier(bot sender, chatID int64, sessionID types.SessionID, names ...events.Name) *Notifier {
	if len(names) == 0 {
		names = DefaultEvents
	}
	watch := make(map[events.Name]bool, len(names))
	for _, name := range names {
		watch[name] = true
	}
	return &Notifier{
		bot:       bot,
		chatID:    chatID,
		sessionID: sessionID,
		watch:     watch,
		policy:    retry.Default(),
	}
}

// SetStatus installs the /status responder.
func (n *Notifier) SetStatus(fn StatusFunc) {
	n.status = fn
}

// Handle sends e when it is one of the watched events. It blocks on the
// network; wrap with events.NewAsync.
func (n *Notifier) Handle(e events.Event) {
	if !n.watch[e.Name] {
		return
	}
	n.send(context.Background(), formatEvent(n.sessionID, e))
}

func formatEvent(sessionID types.SessionID, e events.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "chatbridge %s", e.Name)
	switch p := e.Payload.(type) {
	case events.ConnectionErrorPayload:
		fmt.Fprintf(&b, " [%s]: %s", p.Phase, p.Message)
	case events.ErrorPayload:
		fmt.Fprintf(&b, ": %s", p.Message)
	case events.ChatUpdatedPayload:
		fmt.Fprintf(&b, ": %s (%s)", p.State, p.Mode)
	}
	fmt.Fprintf(&b, "\nsession: %s\nat: %s", sessionID, e.At.UTC().Format("2006-01-02T15:04:05Z07:00"))
	return b.String()
}

// Start long-polls for commands until ctx is done. It is a no-op for
// notifiers not created with New.
func (n *Notifier) Start(ctx context.Context) {
	if n.api == nil {
		return
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := n.api.GetUpdatesChan(u)

	for {
		select {
		case update := <-updates:
			if update.Message == nil || !update.Message.IsCommand() || update.Message.Chat.ID != n.chatID {
				continue
			}
			n.handleCommand(ctx, update.Message.Command())
		case <-ctx.Done():
			n.api.StopReceivingUpdates()
			return
		}
	}
}

func (n *Notifier) handleCommand(ctx context.Context, command string) {
	switch command {
	case "start":
		n.send(ctx, "chatbridge ops notifications are enabled for this chat.")
	case "status":
		if n.status == nil {
			n.send(ctx, "Status is not available.")
			return
		}
		n.send(ctx, n.status(ctx))
	default:
		n.send(ctx, "Unknown command. Available: /start, /status")
	}
}

func (n *Notifier) send(ctx context.Context, text string) {
	for _, part := range splitMessage(text) {
		msg := tgbotapi.NewMessage(n.chatID, part)
		err := n.policy.Do(ctx, func(context.Context) error {
			_, err := n.bot.Send(msg)
			return err
		})
		if err != nil {
			slog.Warn("telegram send failed", "chat_id", n.chatID, "error", err)
		}
	}
}

func splitMessage(text string) []string {
	if len(text) <= maxTelegramMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		end := min(maxTelegramMessage, len(text))
		if end < len(text) {
			// Never cut a multi-byte rune in half.
			for end > 0 && !utf8.RuneStart(text[end]) {
				end--
			}
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	return parts
}
