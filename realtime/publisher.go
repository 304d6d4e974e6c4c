package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"order-status-service/models"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultTopicPrefix  = "order-status:"
	DefaultReleaseDelay = time.Second
)

// ErrEmptyToken is returned when an order has no public token to publish on.
var ErrEmptyToken = errors.New("realtime: empty public token")

// Publisher broadcasts status events on a per-order topic named by the
// order's public token.
type Publisher struct {
	broker       Broker
	prefix       string
	releaseDelay time.Duration
	logger       *zap.Logger
}

func NewPublisher(broker Broker, prefix string, releaseDelay time.Duration, logger *zap.Logger) *Publisher {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	if releaseDelay < 0 {
		releaseDelay = DefaultReleaseDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{broker: broker, prefix: prefix, releaseDelay: releaseDelay, logger: logger}
}

// Topic returns the topic name for a public token.
func (p *Publisher) Topic(publicToken string) string {
	return p.prefix + publicToken
}

// Publish opens a handle on the order topic, waits for the subscribe ack,
// sends exactly one status event and releases the handle after the release
// delay. The handle is released on every error path too.
func (p *Publisher) Publish(ctx context.Context, publicToken string, status models.OrderStatus, updatedAt time.Time) error {
	if publicToken == "" {
		return ErrEmptyToken
	}
	topic := p.Topic(publicToken)

	payload, err := json.Marshal(models.NewStatusEvent(status, updatedAt))
	if err != nil {
		return fmt.Errorf("marshal status event: %w", err)
	}

	sub, err := p.broker.Subscribe(ctx, topic)
	if err != nil {
		return err
	}

	if err := p.broker.Publish(ctx, topic, payload); err != nil {
		p.release(sub, topic)
		return err
	}

	time.AfterFunc(p.releaseDelay, func() { p.release(sub, topic) })
	return nil
}

func (p *Publisher) release(sub Subscription, topic string) {
	if err := sub.Close(); err != nil {
		p.logger.Warn("Failed to release realtime topic", zap.String("topic", topic), zap.Error(err))
	}
}

// Watch streams status events for a public token until ctx is done.
// Malformed messages and other event types are dropped.
func (p *Publisher) Watch(ctx context.Context, publicToken string) (<-chan models.StatusEvent, error) {
	if publicToken == "" {
		return nil, ErrEmptyToken
	}
	raw, err := p.broker.Listen(ctx, p.Topic(publicToken))
	if err != nil {
		return nil, err
	}

	out := make(chan models.StatusEvent)
	go func() {
		defer close(out)
		for b := range raw {
			var evt models.StatusEvent
			if err := json.Unmarshal(b, &evt); err != nil || evt.Type != models.EventTypeStatus {
				p.logger.Debug("Dropping realtime message", zap.ByteString("payload", b))
				continue
			}
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
