package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const consumerTag = "xxlasr-worker"

// Acknowledger settles a delivery. amqp.Delivery satisfies it.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// Delivery pairs a decoded job with the handle that settles it.
type Delivery struct {
	Job   Job
	Acker Acknowledger
}

type Consumer struct {
	channel *amqp.Channel
	queue   string
	logger  *zap.Logger
}

// NewConsumer opens a channel, declares the durable jobs queue and limits
// unacknowledged deliveries to prefetch.
func NewConsumer(conn *amqp.Connection, queue string, prefetch int, logger *zap.Logger) (*Consumer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	channel, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := channel.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		_ = channel.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	if err := channel.Qos(prefetch, 0, false); err != nil {
		_ = channel.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	return &Consumer{channel: channel, queue: queue, logger: logger}, nil
}

// Consume streams decoded jobs until ctx is done or the broker closes the
// channel. Malformed messages are rejected without requeue.
func (c *Consumer) Consume(ctx context.Context) (<-chan Delivery, error) {
	msgs, err := c.channel.Consume(
		c.queue,
		consumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", c.queue, err)
	}

	out := make(chan Delivery)
	go func() {
		defer close(out)
		decodeDeliveries(ctx, msgs, out, c.logger)
	}()

	go func() {
		<-ctx.Done()
		if err := c.channel.Cancel(consumerTag, false); err != nil {
			c.logger.Debug("cancel consumer", zap.Error(err))
		}
	}()

	c.logger.Info("consuming jobs", zap.String("queue", c.queue))
	return out, nil
}

func decodeDeliveries(ctx context.Context, msgs <-chan amqp.Delivery, out chan<- Delivery, logger *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}

			var job Job
			if err := json.Unmarshal(msg.Body, &job); err != nil {
				logger.Warn("rejecting malformed job", zap.String("message_id", msg.MessageId), zap.Error(err))
				_ = msg.Nack(false, false)
				continue
			}

			select {
			case out <- Delivery{Job: job, Acker: msg}:
			case <-ctx.Done():
				_ = msg.Nack(false, true)
				return
			}
		}
	}
}

func (c *Consumer) Close() error {
	if c.channel == nil {
		return nil
	}
	return c.channel.Close()
}
