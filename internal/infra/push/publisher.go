package push

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	EventMatchCreated      = "match.created"
	EventSuperLikeReceived = "superlike.received"
)

type Event struct {
	Type       string    `json:"type"`
	UserID     int64     `json:"user_id"`
	ActorID    int64     `json:"actor_id"`
	SuperLike  bool      `json:"super_like"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher hands notification events to the push pipeline. With no broker
// URI configured every publish is a silent no-op.
type Publisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	enabled  bool
	logger   *zap.Logger
}

func NewPublisher(rabbitURI, exchange string, logger *zap.Logger) (*Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if exchange == "" {
		exchange = "momomi.push"
	}
	if rabbitURI == "" {
		logger.Info("push publisher disabled: no broker uri configured")
		return &Publisher{exchange: exchange, logger: logger}, nil
	}

	conn, err := amqp.Dial(rabbitURI)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	if err := channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare push exchange: %w", err)
	}

	return &Publisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		enabled:  true,
		logger:   logger,
	}, nil
}

// Publish is at-least-once and best-effort. Callers fire it post-commit and
// never let a broker failure surface to the request path.
func (p *Publisher) Publish(ctx context.Context, event Event) error {
	if !p.enabled {
		return nil
	}
	if event.Type == "" || event.UserID <= 0 {
		return fmt.Errorf("invalid push event payload")
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal push event: %w", err)
	}

	err = p.channel.PublishWithContext(ctx, p.exchange, event.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Body:         body,
		Headers: amqp.Table{
			"event_type": event.Type,
			"user_id":    event.UserID,
		},
	})
	if err != nil {
		return fmt.Errorf("publish push event: %w", err)
	}

	return nil
}

func (p *Publisher) Close() error {
	if !p.enabled {
		return nil
	}

	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.logger.Warn("close rabbitmq channel", zap.Error(err))
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("close rabbitmq connection: %w", err)
		}
	}

	return nil
}
