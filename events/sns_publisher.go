package events

import (
	"context"
	"order-status-service/models"

	aws_pkg "order-status-service/pkg/aws"
)

// SNSPublisher sends domain events to one SNS topic with an event_type
// attribute for subscription filtering.
type SNSPublisher struct {
	client   aws_pkg.SNSPublisher
	topicArn string
}

func NewSNSPublisher(client aws_pkg.SNSPublisher, topicArn string) *SNSPublisher {
	return &SNSPublisher{client: client, topicArn: topicArn}
}

func (p *SNSPublisher) Publish(ctx context.Context, key string, payload []byte) error {
	return p.client.Publish(ctx, p.topicArn, payload, map[string]string{
		"event_type": models.EventTypeStatusChanged,
		"order_id":   key,
	})
}

// Fanout publishes to every target and returns the first error after all
// targets have been tried.
type Fanout []interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

func (f Fanout) Publish(ctx context.Context, key string, payload []byte) error {
	var first error
	for _, p := range f {
		if err := p.Publish(ctx, key, payload); err != nil && first == nil {
			first = err
		}
	}
	return first
}
