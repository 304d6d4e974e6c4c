package controllers

import (
	"context"
	"net/http"
	"order-status-service/models"
	"order-status-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OrderStatusService is the subset of services.StatusService the controller uses.
type OrderStatusService interface {
	TransitionStatus(ctx context.Context, orderID, status string) (*models.Order, *services.ServiceError)
	GetByPublicToken(ctx context.Context, token string) (*models.Order, *services.ServiceError)
}

// StatusWatcher streams realtime status events for a public token.
type StatusWatcher interface {
	Watch(ctx context.Context, publicToken string) (<-chan models.StatusEvent, error)
}

type OrderController struct {
	service OrderStatusService
	watcher StatusWatcher
	logger  *zap.Logger
}

// NewOrderController creates an OrderController. watcher may be nil when
// realtime is disabled; the events stream then answers 503.
func NewOrderController(svc OrderStatusService, watcher StatusWatcher, logger *zap.Logger) *OrderController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderController{service: svc, watcher: watcher, logger: logger}
}

// UpdateStatus handles PATCH /orders/:id/status
func (oc *OrderController) UpdateStatus(ctx *gin.Context) {
	var req models.UpdateStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status", "code": "invalid_status"})
		return
	}

	order, svcErr := oc.service.TransitionStatus(ctx.Request.Context(), ctx.Param("id"), req.Status)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message, "code": svcErr.Code})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"order": order})
}

// TrackOrder handles GET /orders/track/:token
func (oc *OrderController) TrackOrder(ctx *gin.Context) {
	order, svcErr := oc.service.GetByPublicToken(ctx.Request.Context(), ctx.Param("token"))
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message, "code": svcErr.Code})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"order": order.TrackingView()})
}

// StreamOrderEvents handles GET /orders/track/:token/events as Server-Sent
// Events. The current status is sent first, then every realtime event until
// the client disconnects.
func (oc *OrderController) StreamOrderEvents(ctx *gin.Context) {
	token := ctx.Param("token")
	order, svcErr := oc.service.GetByPublicToken(ctx.Request.Context(), token)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message, "code": svcErr.Code})
		return
	}
	if oc.watcher == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "Realtime updates unavailable", "code": "realtime_unavailable"})
		return
	}

	reqCtx := ctx.Request.Context()
	events, err := oc.watcher.Watch(reqCtx, order.Token())
	if err != nil {
		oc.logger.Warn("Realtime watch failed", zap.Error(err))
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "Realtime updates unavailable", "code": "realtime_unavailable"})
		return
	}

	// Content-Type is set by the SSE renderer on the first event.
	ctx.Header("Cache-Control", "no-cache")
	ctx.Header("Connection", "keep-alive")
	ctx.Header("X-Accel-Buffering", "no")

	ctx.SSEvent(models.EventTypeStatus, models.NewStatusEvent(order.Status, order.UpdatedAt))
	ctx.Writer.Flush()

	for {
		select {
		case <-reqCtx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			ctx.SSEvent(models.EventTypeStatus, evt)
			ctx.Writer.Flush()
		}
	}
}
