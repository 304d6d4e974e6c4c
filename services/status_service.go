package services

import (
	"context"
	"encoding/json"
	"net/http"
	"order-status-service/metrics"
	"order-status-service/models"
	"order-status-service/repository"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultSideEffectTimeout = 15 * time.Second

// RealtimePublisher broadcasts a status on the order's public topic.
type RealtimePublisher interface {
	Publish(ctx context.Context, publicToken string, status models.OrderStatus, updatedAt time.Time) error
}

// EventPublisher ships domain events to other services (SNS or Kafka).
type EventPublisher interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

type StatusService struct {
	repo       repository.OrderRepository
	dispatcher Dispatcher
	realtime   RealtimePublisher
	events     EventPublisher
	timeout    time.Duration
	logger     *zap.Logger

	inflight sync.WaitGroup
}

// NewStatusService wires the transition handler. dispatcher, realtime and
// events may be nil, which disables that side effect.
func NewStatusService(
	repo repository.OrderRepository,
	dispatcher Dispatcher,
	realtime RealtimePublisher,
	events EventPublisher,
	sideEffectTimeout time.Duration,
	logger *zap.Logger,
) *StatusService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sideEffectTimeout <= 0 {
		sideEffectTimeout = defaultSideEffectTimeout
	}
	return &StatusService{
		repo:       repo,
		dispatcher: dispatcher,
		realtime:   realtime,
		events:     events,
		timeout:    sideEffectTimeout,
		logger:     logger,
	}
}

// TransitionStatus validates and persists a status change, then starts the
// notification, realtime and domain-event side effects in the background.
// Side-effect failures never reach the caller.
func (s *StatusService) TransitionStatus(ctx context.Context, orderID, requested string) (*models.Order, *ServiceError) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, toServiceError(models.ErrInvalidOrderID)
	}
	status, ok := models.ParseOrderStatus(requested)
	if !ok {
		return nil, toServiceError(models.ErrInvalidStatus)
	}
	id, err := uuid.Parse(orderID)
	if err != nil {
		// An id that is not a uuid cannot exist in the store.
		return nil, toServiceError(models.ErrOrderNotFound)
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.logFailure("Order lookup failed", orderID, err)
		return nil, toServiceError(err)
	}

	updated, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		s.logFailure("Order status update failed", orderID, err)
		return nil, toServiceError(err)
	}

	previous := current.Status
	if models.IsBackward(previous, status) {
		s.logger.Warn("Order status moved backward",
			zap.String("order_id", orderID),
			zap.String("from", string(previous)),
			zap.String("to", string(status)),
		)
	} else {
		s.logger.Info("Order status updated",
			zap.String("order_id", orderID),
			zap.String("from", string(previous)),
			zap.String("to", string(status)),
		)
	}
	metrics.StatusTransitionsTotal.WithLabelValues(string(status)).Inc()

	snapshot := *updated
	s.inflight.Add(1)
	go s.runSideEffects(&snapshot, previous)

	return updated, nil
}

// GetByPublicToken reads an order through its public capability token.
func (s *StatusService) GetByPublicToken(ctx context.Context, token string) (*models.Order, *ServiceError) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, &ServiceError{StatusCode: http.StatusNotFound, Code: "not_found", Message: "Order not found", Err: models.ErrOrderNotFound}
	}
	order, err := s.repo.FindByPublicToken(ctx, token)
	if err != nil {
		svcErr := toServiceError(err)
		if svcErr.StatusCode == http.StatusInternalServerError {
			s.logger.Error("Tracking lookup failed", zap.Error(err))
			svcErr.Message = "Failed to load order"
		}
		return nil, svcErr
	}
	return order, nil
}

// Wait blocks until in-flight side effects finish or ctx is done.
func (s *StatusService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *StatusService) runSideEffects(order *models.Order, previous models.OrderStatus) {
	defer s.inflight.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	var wg sync.WaitGroup
	run := func(name string, fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("Side effect panicked",
						zap.String("side_effect", name),
						zap.String("order_id", order.ID.String()),
						zap.Any("panic", r),
					)
				}
			}()
			fn()
		}()
	}

	if s.dispatcher != nil {
		run("notify", func() { s.dispatcher.Dispatch(ctx, order) })
	}
	if s.realtime != nil {
		run("realtime", func() { s.publishRealtime(ctx, order) })
	}
	if s.events != nil {
		run("event", func() { s.publishEvent(ctx, order, previous) })
	}
	wg.Wait()
}

func (s *StatusService) publishRealtime(ctx context.Context, order *models.Order) {
	if err := s.realtime.Publish(ctx, order.Token(), order.Status, order.UpdatedAt); err != nil {
		metrics.RealtimePublishTotal.WithLabelValues("failed").Inc()
		s.logger.Warn("Realtime publish failed",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
		return
	}
	metrics.RealtimePublishTotal.WithLabelValues("sent").Inc()
}

// publishEvent marshals the domain event and publishes it (non-fatal on error).
func (s *StatusService) publishEvent(ctx context.Context, order *models.Order, previous models.OrderStatus) {
	b, err := json.Marshal(models.StatusChangedEvent{
		EventType:      models.EventTypeStatusChanged,
		OrderID:        order.ID.String(),
		PreviousStatus: previous,
		Status:         order.Status,
		Timestamp:      time.Now().UTC(),
	})
	if err != nil {
		s.logger.Error("Failed to marshal status event", zap.Error(err))
		return
	}
	if err := s.events.Publish(ctx, order.ID.String(), b); err != nil {
		s.logger.Error("Failed to publish status event", zap.String("order_id", order.ID.String()), zap.Error(err))
		return
	}
	s.logger.Debug("Published status event", zap.String("order_id", order.ID.String()))
}

func (s *StatusService) logFailure(msg, orderID string, err error) {
	if toServiceError(err).StatusCode == http.StatusNotFound {
		s.logger.Info(msg, zap.String("order_id", orderID), zap.Error(err))
		return
	}
	s.logger.Error(msg, zap.String("order_id", orderID), zap.Error(err))
}
