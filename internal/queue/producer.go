package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Producer struct {
	channel *amqp.Channel
	queue   string
}

// NewProducer declares the durable results queue. Results are routed
// through the default exchange by queue name.
func NewProducer(conn *amqp.Connection, queue string) (*Producer, error) {
	channel, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = channel.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	return &Producer{channel: channel, queue: queue}, nil
}

func (p *Producer) PublishResult(ctx context.Context, result Result) error {
	publishing, err := resultPublishing(result)
	if err != nil {
		return err
	}

	if err := p.channel.PublishWithContext(ctx, "", p.queue, false, false, publishing); err != nil {
		return fmt.Errorf("publish result %s: %w", result.ID, err)
	}
	return nil
}

func resultPublishing(result Result) (amqp.Publishing, error) {
	body, err := json.Marshal(result)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal result: %w", err)
	}

	return amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		CorrelationId: result.ID,
		Body:          body,
	}, nil
}

func (p *Producer) Close() error {
	if p.channel == nil {
		return nil
	}
	return p.channel.Close()
}
