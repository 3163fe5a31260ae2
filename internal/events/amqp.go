package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPPublisher routes each subject to a durable queue of the same name on
// the default exchange. Messages are persistent.
type AMQPPublisher struct {
	conn *amqp.Connection

	mu       sync.Mutex
	ch       *amqp.Channel
	declared map[string]bool
}

func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return &AMQPPublisher{conn: conn, ch: ch, declared: make(map[string]bool)}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, subject string, data interface{}) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	// amqp channels are not safe for concurrent publishers.
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.declared[subject] {
		if _, err := p.ch.QueueDeclare(subject, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", subject, err)
		}
		p.declared[subject] = true
	}

	return p.ch.PublishWithContext(ctx, "", subject, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         subject,
		Body:         body,
	})
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.ch.Close()
	return p.conn.Close()
}
