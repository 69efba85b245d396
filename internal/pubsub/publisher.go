// Package pubsub publishes bridge events to a RabbitMQ topic exchange so
// backend services can follow chat activity.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/user/chatbridge/internal/events"
	"github.com/user/chatbridge/internal/retry"
	"github.com/user/chatbridge/internal/types"
)

const (
	DefaultExchange = "chatbridge.events"
	publishTimeout  = 5 * time.Second
)

// channel is the subset of *amqp.Channel used for publishing.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher publishes envelopes on one long-lived channel and reopens the
// channel when the broker closes it.
type Publisher struct {
	conn     *amqp.Connection
	exchange string
	log      *slog.Logger
	policy   *retry.Policy

	mu sync.Mutex
	ch channel
}

// Dial connects to url and declares exchange as a durable topic exchange.
func Dial(url, exchange string, logger *slog.Logger) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{
		conn:     conn,
		exchange: exchange,
		log:      logger,
		policy:   retry.Default(),
		ch:       ch,
	}, nil
}

func (p *Publisher) channel() (channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		return p.ch, nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		return nil, retry.Permanent(fmt.Errorf("amqp connection closed"))
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("reopen channel: %w", err)
	}
	p.ch = ch
	return ch, nil
}

func (p *Publisher) dropChannel(ch channel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == ch {
		p.ch.Close()
		p.ch = nil
	}
}

// Publish sends env under key, retrying transient failures.
func (p *Publisher) Publish(ctx context.Context, key string, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     env.Meta.ID,
		CorrelationId: env.Meta.CorrelationID,
		Type:          env.Meta.Type,
		AppId:         env.Meta.Producer,
		Timestamp:     env.Meta.Time,
		Body:          body,
	}

	return p.policy.Do(ctx, func(ctx context.Context) error {
		ch, err := p.channel()
		if err != nil {
			return err
		}
		if err := ch.PublishWithContext(ctx, p.exchange, key, false, false, msg); err != nil {
			p.dropChannel(ch)
			return fmt.Errorf("publish %s: %w", key, err)
		}
		p.log.Debug("published", slog.String("key", key), slog.String("exchange", p.exchange))
		return nil
	})
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.ch != nil {
		p.ch.Close()
		p.ch = nil
	}
	p.mu.Unlock()
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Sink publishes every event of one session. Wrap with events.NewAsync.
type Sink struct {
	pub       *Publisher
	sessionID types.SessionID
}

func NewSink(pub *Publisher, sessionID types.SessionID) *Sink {
	return &Sink{pub: pub, sessionID: sessionID}
}

func (s *Sink) Handle(e events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := s.pub.Publish(ctx, RoutingKey(e.Name), NewEnvelope(s.sessionID, e)); err != nil {
		s.pub.log.Warn("event publish failed", "event", string(e.Name), "error", err)
	}
}
