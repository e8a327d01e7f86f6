package queue

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

var (
	dialAttempts  = 10
	retryInterval = 5 * time.Second
	dial          = amqp.Dial
)

// Connect dials url, retrying a bounded number of times while the broker
// comes up.
func Connect(ctx context.Context, url string, logger *zap.Logger) (*amqp.Connection, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var lastErr error
	for attempt := 1; attempt <= dialAttempts; attempt++ {
		conn, err := dial(url)
		if err == nil {
			logger.Info("rabbitmq connected")
			return conn, nil
		}
		lastErr = err

		if attempt == dialAttempts {
			break
		}
		logger.Warn("rabbitmq connect failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", dialAttempts),
			zap.Duration("retry_in", retryInterval),
			zap.Error(err),
		)

		timer := time.NewTimer(retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return nil, fmt.Errorf("connect to rabbitmq after %d attempts: %w", dialAttempts, lastErr)
}
