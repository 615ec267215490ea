package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"eventease/internal/domain"
)

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends notification requests to a RabbitMQ topic exchange, one
// message per request, routed by "notification.<group>".
type Publisher struct {
	conn     *amqp.Connection
	ch       channel
	exchange string
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

// RoutingKey is the topic a request of group g is published under.
func RoutingKey(g domain.NotificationGroup) string {
	return "notification." + string(g)
}

// message is the wire form consumed by the delivery service.
type message struct {
	ID          string   `json:"id"`
	EventID     string   `json:"event_id"`
	EventTitle  string   `json:"event_title"`
	OrganizerID string   `json:"organizer_id"`
	UserIDs     []string `json:"user_ids"`
	Title       string   `json:"title"`
	Message     string   `json:"message"`
	Group       string   `json:"group_type"`
	CreatedAt   string   `json:"created_at"`
}

func (p *Publisher) Publish(ctx context.Context, req *domain.NotificationRequest) error {
	b, err := json.Marshal(message{
		ID:          req.ID,
		EventID:     req.EventID,
		EventTitle:  req.EventTitle,
		OrganizerID: req.OrganizerID,
		UserIDs:     req.UserIDs,
		Title:       req.Title,
		Message:     req.Message,
		Group:       string(req.GroupType),
		CreatedAt:   req.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encode notification %s: %w", req.ID, err)
	}
	err = p.ch.PublishWithContext(ctx, p.exchange, RoutingKey(req.GroupType), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    req.ID,
		Timestamp:    req.CreatedAt,
		Body:         b,
	})
	if err != nil {
		return fmt.Errorf("publish notification %s: %w", req.ID, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
