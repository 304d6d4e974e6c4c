package tracking

import (
	"context"
	"order-status-service/models"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultPollInterval bounds how stale a tracking view can get when the
// push path is lost.
const DefaultPollInterval = 10 * time.Second

// Source reads the current status through the public read endpoint.
type Source interface {
	Fetch(ctx context.Context, publicToken string) (models.TrackingView, error)
}

// Subscriber streams pushed status events for a public token.
type Subscriber interface {
	Watch(ctx context.Context, publicToken string) (<-chan models.StatusEvent, error)
}

// State is the status a tracking view currently displays.
type State struct {
	Status    models.OrderStatus
	UpdatedAt time.Time
}

// Client keeps a tracking view in sync using push and poll together. Push
// gives low latency; polling runs on a fixed interval regardless of push
// health and caps staleness at one interval.
type Client struct {
	token        string
	source       Source
	subscriber   Subscriber
	pollInterval time.Duration
	logger       *zap.Logger

	mu    sync.Mutex
	state State
}

type Option func(*Client)

func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient builds a client for one order. subscriber may be nil, in which
// case the client only polls.
func NewClient(publicToken string, source Source, subscriber Subscriber, opts ...Option) *Client {
	c := &Client{
		token:        publicToken,
		source:       source,
		subscriber:   subscriber,
		pollInterval: DefaultPollInterval,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current returns the displayed state.
func (c *Client) Current() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Run polls immediately, then every poll interval, and merges push events
// as they arrive. onChange is called whenever the displayed status changes.
// Run returns when ctx is done.
func (c *Client) Run(ctx context.Context, onChange func(State)) error {
	var pushed <-chan models.StatusEvent
	if c.subscriber != nil {
		ch, err := c.subscriber.Watch(ctx, c.token)
		if err != nil {
			c.logger.Warn("Push subscription unavailable, polling only", zap.Error(err))
		} else {
			pushed = ch
		}
	}

	c.poll(ctx, onChange)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.poll(ctx, onChange)
		case evt, ok := <-pushed:
			if !ok {
				c.logger.Warn("Push subscription closed, polling only")
				pushed = nil
				continue
			}
			c.apply(State{Status: evt.Payload.Status, UpdatedAt: evt.Payload.UpdatedAt}, onChange)
		}
	}
}

func (c *Client) poll(ctx context.Context, onChange func(State)) {
	view, err := c.source.Fetch(ctx, c.token)
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Warn("Tracking poll failed", zap.Error(err))
		}
		return
	}
	c.apply(State{Status: view.Status, UpdatedAt: view.UpdatedAt}, onChange)
}

// apply merges a received state. A state older than the displayed one is
// dropped so a late push cannot overwrite a newer poll result. States with
// no timestamp are always applied.
func (c *Client) apply(next State, onChange func(State)) {
	if next.Status == "" {
		return
	}
	c.mu.Lock()
	cur := c.state
	if !next.UpdatedAt.IsZero() && !cur.UpdatedAt.IsZero() && next.UpdatedAt.Before(cur.UpdatedAt) {
		c.mu.Unlock()
		return
	}
	if next.UpdatedAt.IsZero() {
		next.UpdatedAt = cur.UpdatedAt
	}
	c.state = next
	c.mu.Unlock()

	if next.Status != cur.Status && onChange != nil {
		onChange(next)
	}
}
